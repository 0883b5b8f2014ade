// Package snapshot implements the periodic watchlist refresher.
//
// The refresher re-requests every watched item as a non-streaming snapshot
// on a fixed interval. Streaming updates carry deltas only; a full image
// now and then lets the archive recover from any update the feed dropped
// while a request was in flight.
package snapshot
