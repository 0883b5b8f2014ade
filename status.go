package elektron

import (
	"github.com/rickgao/elektron/internal/session"
	"github.com/rickgao/elektron/internal/stream"
)

// StatusCode classifies events delivered to the status handler.
type StatusCode = session.StatusCode

// Status codes, in wire-stable order.
const (
	StatusProcessingError = session.StatusProcessingError
	StatusConnected       = session.StatusConnected
	StatusDisconnected    = session.StatusDisconnected
	StatusLoginResponse   = session.StatusLoginResponse
	StatusMsgStatus       = session.StatusMsgStatus
	StatusMsgError        = session.StatusMsgError
)

// State is the consumer's connection lifecycle position.
type State = session.State

const (
	StateDisconnected = session.StateDisconnected
	StateConnecting   = session.StateConnecting
	StateLoggingIn    = session.StateLoggingIn
	StateActive       = session.StateActive
)

// NoStream is the id returned when an operation addressed an item with no
// open stream. It never collides with a real id.
const NoStream = stream.NoStream

// Connection errors surfaced to callers.
var (
	ErrNotConnected     = session.ErrNotConnected
	ErrAlreadyConnected = session.ErrAlreadyConnected
	ErrNotLoggedIn      = session.ErrNotLoggedIn
)
