package session

import "encoding/json"

// StatusCode classifies events pushed to the status observer.
type StatusCode int

const (
	// StatusProcessingError reports a failure while handling inbound
	// traffic. The payload is a JSON string describing the failure.
	StatusProcessingError StatusCode = iota

	// StatusConnected fires when the transport opens, before login
	// completes. No payload.
	StatusConnected

	// StatusDisconnected fires when the transport goes away, cleanly or
	// not. No payload.
	StatusDisconnected

	// StatusLoginResponse carries the raw login response message.
	StatusLoginResponse

	// StatusMsgStatus carries a raw status message for an item stream.
	StatusMsgStatus

	// StatusMsgError carries a raw error message, usually the provider
	// rejecting something the client sent.
	StatusMsgError
)

func (c StatusCode) String() string {
	switch c {
	case StatusProcessingError:
		return "processingError"
	case StatusConnected:
		return "connected"
	case StatusDisconnected:
		return "disconnected"
	case StatusLoginResponse:
		return "loginResponse"
	case StatusMsgStatus:
		return "msgStatus"
	case StatusMsgError:
		return "msgError"
	default:
		return "unknown"
	}
}

// NotifyFunc receives status events. payload is nil for connection
// lifecycle events and the relevant JSON otherwise.
type NotifyFunc func(code StatusCode, payload json.RawMessage)

// reason wraps a failure description as the payload of a processing-error
// status.
func reason(text string) json.RawMessage {
	data, err := json.Marshal(text)
	if err != nil {
		return json.RawMessage(`"unprintable error"`)
	}
	return data
}
