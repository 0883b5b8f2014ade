// Package archive persists feed traffic for later analysis.
//
// Two batch writers cover the feed's data shapes: StoryWriter archives
// reassembled news stories, QuoteWriter appends raw market data messages.
// Each drains a growable buffer so a slow database grows memory instead of
// stalling the connection's read goroutine, accumulates rows, and flushes
// on batch size or on a timer. Inserts are append-only; stories dedupe on
// the provider's story id.
package archive
