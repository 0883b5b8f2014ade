// Package stream tracks open item streams for a feed session.
//
// The registry is the single source of truth for which stream ids are live,
// which item each id was opened for, and which callback should receive its
// traffic. Ids are assigned from a monotonically increasing counter that
// wraps back to 1, never 0, since 0 is reserved for the login stream.
package stream
