// Package main hosts the curator CLI entrypoint and command graph.
//
// The Cobra command tree starts the daemon, runs one-shot cycles and single
// videos in the foreground, manages the source registry and subscribers in
// the sqlite store, and renders preflight status. Configuration resolution
// lives in commandContext so subcommands only deal with presentation.
package main
