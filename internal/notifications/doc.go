// Package notifications delivers pipeline events via pluggable sinks.
//
// ntfy receives short human-readable pushes, NATS receives a JSON event per
// notification for machine consumers, and the Telegram sink broadcasts newly
// published posts to bot subscribers. NewService wires whichever sinks are
// configured and degrades to a no-op when none are. Pipeline code depends only
// on the small Service interface.
package notifications
