package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rickgao/elektron/internal/stream"
	"github.com/rickgao/elektron/internal/transport"
	"github.com/rickgao/elektron/internal/wire"
)

var (
	// ErrNotConnected is returned when an operation needs a live
	// transport and there is none.
	ErrNotConnected = errors.New("session: not connected")

	// ErrAlreadyConnected is returned by Connect while a previous
	// connection is still up.
	ErrAlreadyConnected = errors.New("session: already connected")

	// ErrNotLoggedIn is returned when a request needs an accepted login
	// first.
	ErrNotLoggedIn = errors.New("session: not logged in")
)

// State is the lifecycle position of a session.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateLoggingIn    State = "logging-in"
	StateActive       State = "active"
)

// LoginParams identifies the session to the feed. All three fields ride in
// the login request; the feed rejects logins without an application id and
// position.
type LoginParams struct {
	User          string
	ApplicationID string
	Position      string
}

// Config shapes session behavior.
type Config struct {
	// ClearOnDisconnect drops all stream registrations (and runs the
	// reset hook) when the transport closes. Off by default, so an
	// application can walk its registrations and resubscribe after it
	// reconnects.
	ClearOnDisconnect bool
}

// Dialer builds the transport for one connection attempt. Each Connect
// gets a fresh transport; a session never reuses one.
type Dialer func(h transport.Handler) transport.Transport

// Session drives one feed connection through connect, login, traffic, and
// teardown. It implements transport.Handler; all inbound processing runs
// on the transport's read goroutine, one frame at a time.
type Session struct {
	cfg    Config
	reg    *stream.Registry
	dial   Dialer
	logger *slog.Logger
	router *Router

	notify  NotifyFunc
	onReset func()

	mu       sync.Mutex
	tr       transport.Transport
	state    State
	loggedIn bool
	login    LoginParams
}

var _ transport.Handler = (*Session)(nil)
var _ Routes = (*Session)(nil)

// New builds a session over the registry. Status events are discarded
// until SetNotify installs a sink.
func New(cfg Config, reg *stream.Registry, dial Dialer, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		cfg:    cfg,
		reg:    reg,
		dial:   dial,
		logger: logger,
		notify: func(StatusCode, json.RawMessage) {},
		state:  StateDisconnected,
	}
	s.router = NewRouter(reg, s, logger)
	return s
}

// SetNotify installs the status sink. Must be called before Connect.
func (s *Session) SetNotify(fn NotifyFunc) {
	if fn != nil {
		s.notify = fn
	}
}

// SetResetHook registers extra cleanup to run alongside a
// clear-on-disconnect wipe. Must be called before Connect.
func (s *Session) SetResetHook(fn func()) {
	s.onReset = fn
}

// Connect dials url with a fresh transport and starts the login handshake
// for params. It returns once the transport is open; login completion
// arrives later as a loginResponse status. The context bounds only the
// dial.
func (s *Session) Connect(ctx context.Context, url string, params LoginParams) error {
	s.mu.Lock()
	if s.state != StateDisconnected {
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	s.state = StateConnecting
	s.login = params
	tr := s.dial(s)
	s.tr = tr
	s.mu.Unlock()

	if err := tr.Open(ctx, url); err != nil {
		s.mu.Lock()
		s.state = StateDisconnected
		s.tr = nil
		s.mu.Unlock()
		return err
	}
	return nil
}

// Close tears down the transport. Disconnect bookkeeping happens when the
// transport reports back through OnClose.
func (s *Session) Close() error {
	s.mu.Lock()
	tr := s.tr
	s.mu.Unlock()
	if tr == nil {
		return ErrNotConnected
	}
	return tr.Close()
}

// OnOpen implements transport.Handler. The login request goes out before
// anything else on the connection.
func (s *Session) OnOpen() {
	s.mu.Lock()
	s.state = StateLoggingIn
	login := s.login
	s.mu.Unlock()

	req := wire.NewLoginRequest(login.User, login.ApplicationID, login.Position)
	if err := s.send(req); err != nil {
		// The transport is already failing; its close will follow.
		s.logger.Error("login request failed", "error", err)
	}
	s.notify(StatusConnected, nil)
}

// OnFrame implements transport.Handler.
func (s *Session) OnFrame(data []byte) {
	s.router.ProcessFrame(data)
}

// OnClose implements transport.Handler. Login state always resets;
// registrations survive unless the session was configured to clear them.
func (s *Session) OnClose(err error) {
	s.mu.Lock()
	s.loggedIn = false
	s.state = StateDisconnected
	s.tr = nil
	s.mu.Unlock()

	if s.cfg.ClearOnDisconnect {
		s.reg.Clear()
		if s.onReset != nil {
			s.onReset()
		}
	}
	if err != nil {
		s.logger.Warn("connection lost", "error", err)
	}
	s.notify(StatusDisconnected, nil)
}

// SendPong implements Routes.
func (s *Session) SendPong() error {
	return s.send(wire.NewPong())
}

// LoginResponse implements Routes. A success moves the session to Active;
// a rejection while active demotes it, since the provider has withdrawn
// the session's authorization.
func (s *Session) LoginResponse(ok bool) {
	s.mu.Lock()
	s.loggedIn = ok
	if ok {
		s.state = StateActive
	} else if s.state == StateActive {
		s.state = StateLoggingIn
	}
	user := s.login.User
	s.mu.Unlock()

	if ok {
		s.logger.Info("login accepted", "user", user)
	} else {
		s.logger.Warn("login rejected", "user", user)
	}
}

// Notify implements Routes.
func (s *Session) Notify(code StatusCode, payload json.RawMessage) {
	s.notify(code, payload)
}

// Send marshals one request and writes it to the transport.
func (s *Session) Send(req any) error {
	return s.send(req)
}

func (s *Session) send(req any) error {
	s.mu.Lock()
	tr := s.tr
	s.mu.Unlock()
	if tr == nil {
		return ErrNotConnected
	}

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return tr.Send(data)
}

// State returns the session's lifecycle position.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LoggedIn reports whether the most recent login response was a success
// and the transport is still up.
func (s *Session) LoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loggedIn
}

// Stats returns the router's traffic counters.
func (s *Session) Stats() RouterStats {
	return s.router.Stats()
}
