// Package catalog holds the canonical collection model shared by the sync
// engine, the normalizer, and the exporters.
//
// It owns the closed sets of subject types and collection statuses, the
// immutable StatusLabelTable that maps every (type, status) pair to its
// display verb, the normalized Record shape, and the run-length range
// notation used for watched episode lists.
package catalog
