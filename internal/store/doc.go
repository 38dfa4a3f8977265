// Package store persists curator's source registry and processing history in
// SQLite.
//
// The Store tracks YouTube channels and the video IDs already seen, RSS and
// podcast feeds with their last check time, processed articles and episodes,
// Telegram subscribers, and a publication log used by the CLI and status API.
// Every "already processed" question the pipeline asks is answered here.
//
// Schema changes bump schemaVersion in schema.go; an older database must be
// exported and recreated rather than migrated in place.
package store
