// Package daemon coordinates the long-running curator process.
//
// It holds a flock-based lock so only one daemon works against a database,
// runs processing cycles on the configured daily schedule (plus on demand),
// keeps the Telegram bot loop alive beside the scheduler, and serves a small
// chi status API. Cycle work itself lives in the pipeline package; the daemon
// only decides when it runs and reports what happened.
package daemon
