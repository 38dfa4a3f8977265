// Package preflight provides readiness checks for the filesystem paths,
// external binaries, and language model providers curator depends on.
//
// The CLI "curator status" command renders these results; the daemon runner
// logs the binary checks at start-up so missing tools show up before the first
// cycle fails on them.
package preflight
