// Package services defines shared helpers consumed by the sync engine and the
// CLI.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, sync phases, and subject IDs for
//     logging.
//   - Structured error markers plus the Wrap helper so failures can be
//     classified (auth, network, shape) without string matching.
//
// Use these helpers when wiring new components so error handling and log
// fields stay uniform across the run.
package services
