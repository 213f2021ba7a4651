// Package main hosts the bgmexport CLI entrypoint and command graph.
//
// The root command runs one export: it resolves configuration and the access
// token, syncs the collection through the on-disk cache, and writes CSV and/or
// JSON files plus a terminal summary. Subcommands manage the cache, the
// configuration file, the keyring copy of the token, and the snapshot archive
// history. Heavy lifting lives in the internal packages; this package only
// wires flags to them.
package main
