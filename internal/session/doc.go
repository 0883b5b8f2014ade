// Package session drives one authenticated feed connection.
//
// A session owns the transport, performs the login handshake, and routes
// every inbound frame. The router classifies messages in a fixed order
// (ping, login, status, error, then item data) and consults the stream
// registry to deliver item traffic to the callback that subscribed it.
// Each frame is a fault domain: a failure while handling one message
// abandons the rest of that frame, raises a single processing-error status,
// and leaves later frames unaffected.
package session
