// Package telegram runs curator's subscriber bot over the Telegram Bot API.
//
// Client wraps the two Bot API calls the bot needs, getUpdates as a long poll
// and sendMessage paced by a token bucket. Bot turns incoming commands into
// store mutations or single-video pipeline runs, and Broadcaster pushes text
// to every subscribed chat.
package telegram
