package elektron

import (
	"log/slog"

	"github.com/rickgao/elektron/internal/session"
	"github.com/rickgao/elektron/internal/transport"
)

// Login identification defaults, used when no option overrides them.
const (
	DefaultApplicationID = "256"
	DefaultPosition      = "127.0.0.1/net"
)

type config struct {
	applicationID     string
	position          string
	clearOnDisconnect bool
	transport         transport.Config
	dialer            session.Dialer
	logger            *slog.Logger
}

func defaultOptions() config {
	return config{
		applicationID: DefaultApplicationID,
		position:      DefaultPosition,
		transport:     transport.DefaultConfig(),
	}
}

// Option configures a Consumer.
type Option func(*config)

// WithApplicationID sets the application id sent in the login request.
func WithApplicationID(id string) Option {
	return func(c *config) {
		if id != "" {
			c.applicationID = id
		}
	}
}

// WithPosition sets the position sent in the login request, normally the
// host's IP in "addr/net" form.
func WithPosition(position string) Option {
	return func(c *config) {
		if position != "" {
			c.position = position
		}
	}
}

// WithClearOnDisconnect makes the consumer drop its stream table and any
// partially assembled stories when the connection goes away, instead of
// keeping them for the application to resubscribe from.
func WithClearOnDisconnect() Option {
	return func(c *config) {
		c.clearOnDisconnect = true
	}
}

// WithTransportConfig overrides WebSocket transport settings such as
// handshake and write timeouts.
func WithTransportConfig(cfg transport.Config) Option {
	return func(c *config) {
		c.transport = cfg
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDialer replaces how the consumer builds its transport for each
// connection attempt. Intended for tests and custom tunnels.
func WithDialer(dial session.Dialer) Option {
	return func(c *config) {
		if dial != nil {
			c.dialer = dial
		}
	}
}
