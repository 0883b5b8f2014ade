// Package transport carries feed frames over a WebSocket connection.
//
// A transport is one-shot: it is opened once, delivers events to its
// Handler until the connection goes away, and is then discarded.
// Reconnection is a policy decision that belongs to the layer above, which
// simply opens a fresh transport.
package transport
