// Package collectionsync pulls a user's collection from Bangumi through the
// on-disk cache.
//
// The Fetcher walks the paged collection list from offset 0, consulting the
// cache before every page so a rerun after an interruption replays cached
// pages without touching the network. The Enricher optionally fetches episode
// progress per subject with the same cache-first discipline. Neither keeps a
// saved cursor: the resume point is simply the first key missing from the
// cache.
package collectionsync
