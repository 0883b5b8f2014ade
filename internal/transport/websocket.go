package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the WebSocket transport. The zero value is not usable; build one
// with NewConn.
type Conn struct {
	cfg     Config
	handler Handler
	logger  *slog.Logger

	mu sync.Mutex // guards ws and opened across Open/Send/Close
	ws *websocket.Conn

	writeMu    sync.Mutex
	opened     bool
	localClose atomic.Bool
	notifyOnce sync.Once
	done       chan struct{}
}

var _ Transport = (*Conn)(nil)

// NewConn builds a transport that reports to handler. Zero config fields
// take their defaults.
func NewConn(cfg Config, handler Handler, logger *slog.Logger) *Conn {
	if logger == nil {
		logger = slog.Default()
	}
	return &Conn{
		cfg:     cfg.withDefaults(),
		handler: handler,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Open dials url, announces OnOpen, and starts the read loop. The context
// bounds only the dial.
func (c *Conn) Open(ctx context.Context, url string) error {
	c.mu.Lock()
	if c.opened {
		c.mu.Unlock()
		return ErrAlreadyOpen
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.HandshakeTimeout,
		Subprotocols:     []string{c.cfg.Subprotocol},
	}
	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("dial %s: %w", url, err)
	}
	if c.cfg.MaxFrameBytes > 0 {
		ws.SetReadLimit(c.cfg.MaxFrameBytes)
	}
	c.ws = ws
	c.opened = true
	c.mu.Unlock()

	c.logger.Info("transport open",
		"url", url,
		"subprotocol", ws.Subprotocol())

	c.handler.OnOpen()
	go c.readLoop(ws)
	return nil
}

func (c *Conn) readLoop(ws *websocket.Conn) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if c.localClose.Load() {
				err = nil
			}
			c.notifyClose(err)
			return
		}
		c.handler.OnFrame(data)
	}
}

func (c *Conn) notifyClose(err error) {
	c.notifyOnce.Do(func() {
		if err != nil {
			c.logger.Info("transport closed", "error", err)
		} else {
			c.logger.Info("transport closed")
		}
		c.handler.OnClose(err)
		close(c.done)
	})
}

// Send writes one text frame under the configured write deadline.
func (c *Conn) Send(data []byte) error {
	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()
	if ws == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Close sends a close frame, drops the connection, and lets the read loop
// deliver OnClose. Calling Close more than once is harmless.
func (c *Conn) Close() error {
	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()
	if ws == nil {
		return ErrNotConnected
	}

	if c.localClose.Swap(true) {
		return nil
	}

	c.writeMu.Lock()
	ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	// Best effort; the peer may already be gone.
	_ = ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()

	return ws.Close()
}

// Done is closed once OnClose has been delivered.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}
