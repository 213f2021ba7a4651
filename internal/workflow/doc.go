// Package workflow runs one export end to end.
//
// A Runner locks the cache directory, resolves the access token and the
// owning account, pages through the collection list, optionally enriches
// every entry with episode progress, normalizes the result, prints the
// summary, writes the requested export files, and records the run in the
// snapshot archive when one is configured. No export file is written unless
// the complete record set was normalized.
package workflow
