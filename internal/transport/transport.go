package transport

import (
	"context"
	"errors"
	"time"
)

// DefaultSubprotocol is the WebSocket subprotocol the feed speaks.
const DefaultSubprotocol = "tr_json2"

var (
	// ErrNotConnected is returned when sending or closing before a
	// successful Open.
	ErrNotConnected = errors.New("transport: not connected")

	// ErrAlreadyOpen is returned by Open on a transport that already
	// dialed, whether or not the connection is still up.
	ErrAlreadyOpen = errors.New("transport: already open")
)

// Handler receives connection events. OnOpen runs on the goroutine that
// called Open, before any frame is delivered; OnFrame and OnClose run on
// the connection's read goroutine, one at a time and in arrival order.
// OnClose is delivered exactly once, and only after OnOpen.
type Handler interface {
	OnOpen()
	OnFrame(data []byte)
	OnClose(err error)
}

// Transport is a single connection to the feed. Implementations deliver
// events to the Handler they were built with.
type Transport interface {
	// Open dials the endpoint and starts delivering events.
	Open(ctx context.Context, url string) error

	// Send writes one text frame. Safe for concurrent use.
	Send(data []byte) error

	// Close tears the connection down. The Handler still receives its
	// OnClose.
	Close() error
}

// Config shapes a WebSocket transport.
type Config struct {
	// Subprotocol negotiated during the handshake.
	Subprotocol string

	// HandshakeTimeout bounds the dial and upgrade.
	HandshakeTimeout time.Duration

	// WriteTimeout bounds each outbound frame write.
	WriteTimeout time.Duration

	// MaxFrameBytes caps inbound frame size. Zero means no cap, which
	// suits the feed's occasionally large news frames.
	MaxFrameBytes int64
}

// DefaultConfig returns the settings used when a field is left zero.
func DefaultConfig() Config {
	return Config{
		Subprotocol:      DefaultSubprotocol,
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Subprotocol == "" {
		c.Subprotocol = def.Subprotocol
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	return c
}
