package session

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rickgao/elektron/internal/stream"
	"github.com/rickgao/elektron/internal/wire"
)

// Routes are the session-side effects the router can trigger while
// classifying traffic.
type Routes interface {
	// SendPong answers a protocol ping.
	SendPong() error

	// LoginResponse records the outcome of the login handshake.
	LoginResponse(ok bool)

	// Notify pushes a status event to the application.
	Notify(code StatusCode, payload json.RawMessage)
}

// RouterStats counts routed traffic by class.
type RouterStats struct {
	Frames   uint64
	Messages uint64
	Pings    uint64
	Logins   uint64
	Statuses uint64
	Errors   uint64
	Data     uint64
	Dropped  uint64
	Faults   uint64
}

// Router classifies inbound messages and hands each to its consumer.
// Classification order is fixed: ping, login domain, status, error, then
// item data. Login outranks status so a rejected login is handled as a
// login response, not as a stream status.
type Router struct {
	reg    *stream.Registry
	routes Routes
	logger *slog.Logger

	mu    sync.Mutex
	stats RouterStats
}

// NewRouter builds a router over the registry and effect sink.
func NewRouter(reg *stream.Registry, routes Routes, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{reg: reg, routes: routes, logger: logger}
}

// ProcessFrame decodes one transport frame and dispatches its messages in
// arrival order. The frame is one fault domain: the first message that
// fails aborts the remainder and raises exactly one processing-error
// status. Frames after a faulted one are unaffected.
func (r *Router) ProcessFrame(data []byte) {
	r.mu.Lock()
	r.stats.Frames++
	r.mu.Unlock()

	msgs, err := wire.DecodeFrame(data)
	if err != nil {
		r.fault(err.Error())
		return
	}
	for i, raw := range msgs {
		if err := r.dispatch(raw); err != nil {
			r.fault(fmt.Sprintf("message %d of %d: %v", i+1, len(msgs), err))
			return
		}
	}
}

// dispatch routes a single message. Panics out of application callbacks
// surface as errors so the frame boundary in ProcessFrame handles them.
func (r *Router) dispatch(raw json.RawMessage) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()

	msg, err := wire.DecodeMessage(raw)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.stats.Messages++
	r.mu.Unlock()

	switch {
	case msg.Type == wire.TypePing:
		r.count(func(s *RouterStats) { s.Pings++ })
		return r.routes.SendPong()

	case msg.Domain == wire.DomainLogin:
		r.count(func(s *RouterStats) { s.Logins++ })
		ok := msg.State != nil && msg.State.Data == wire.DataOK
		r.routes.LoginResponse(ok)
		r.routes.Notify(StatusLoginResponse, raw)
		return nil

	case msg.Type == wire.TypeStatus:
		r.count(func(s *RouterStats) { s.Statuses++ })
		if msg.State.Closed() {
			if r.reg.ReleaseID(msg.ID) {
				r.logger.Debug("provider closed stream", "id", msg.ID)
			}
		}
		r.routes.Notify(StatusMsgStatus, raw)
		return nil

	case msg.Type == wire.TypeError:
		r.count(func(s *RouterStats) { s.Errors++ })
		r.routes.Notify(StatusMsgError, raw)
		return nil

	default:
		return r.deliver(msg, raw)
	}
}

// deliver hands an item message to the callback its stream was opened
// with. Traffic for ids with no live stream is dropped without comment;
// that is the normal aftermath of a close or supersession racing inbound
// data.
func (r *Router) deliver(msg wire.Message, raw json.RawMessage) error {
	r.count(func(s *RouterStats) { s.Data++ })

	cb, live := r.reg.Resolve(msg.ID)
	if !live {
		r.count(func(s *RouterStats) { s.Dropped++ })
		r.logger.Debug("data for unknown stream", "id", msg.ID, "type", msg.Type)
		return nil
	}

	// A snapshot refresh is the stream's final word; release it before the
	// callback runs so bookkeeping is already settled.
	if msg.Type == wire.TypeRefresh && msg.State.NonStreaming() {
		r.reg.ReleaseID(msg.ID)
	}

	if cb == nil {
		r.count(func(s *RouterStats) { s.Dropped++ })
		return nil
	}
	cb(msg, raw)
	return nil
}

func (r *Router) fault(desc string) {
	r.count(func(s *RouterStats) { s.Faults++ })
	r.logger.Error("frame processing failed", "error", desc)
	r.routes.Notify(StatusProcessingError, reason(desc))
}

func (r *Router) count(f func(*RouterStats)) {
	r.mu.Lock()
	f(&r.stats)
	r.mu.Unlock()
}

// Stats returns a snapshot of routing counters.
func (r *Router) Stats() RouterStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}
