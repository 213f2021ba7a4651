// Package cache persists raw Bangumi API responses on disk so an interrupted
// export can resume without repeating requests.
//
// Each entry is one JSON envelope file addressed by a deterministic Key.
// Writes are atomic (temp file + rename) so a crash never leaves a partial
// entry, and reads fail open: anything unreadable is a miss. A flock on the
// directory keeps two exports from sharing a cache at the same time.
package cache
