// Package pipeline turns new source items into published posts.
//
// A cycle walks YouTube channels, then RSS feeds, then podcast feeds. Every
// item runs through the same publish step: slug, tag selection, source
// decoration, backend publish, publication log, and notification. Item
// failures are logged and counted without stopping the cycle, and the item is
// left for the next cycle unless its ID was already recorded as seen.
//
// Each cycle carries a request ID in its context so log lines from every
// package involved can be correlated.
package pipeline
