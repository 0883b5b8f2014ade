package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Message types carried in the "Type" field.
const (
	TypeRefresh = "Refresh"
	TypeUpdate  = "Update"
	TypeStatus  = "Status"
	TypeError   = "Error"
	TypePing    = "Ping"
	TypePong    = "Pong"
	TypeRequest = "Request"
	TypeClose   = "Close"
)

// Model domains carried in the "Domain" field. The feed defaults to
// MarketPrice when a request omits the domain.
const (
	DomainLogin             = "Login"
	DomainMarketPrice       = "MarketPrice"
	DomainMarketByOrder     = "MarketByOrder"
	DomainMarketByPrice     = "MarketByPrice"
	DomainNewsTextAnalytics = "NewsTextAnalytics"
)

// Stream and data state values carried in status and refresh messages.
const (
	StreamOpen         = "Open"
	StreamClosed       = "Closed"
	StreamNonStreaming = "NonStreaming"

	DataOK      = "Ok"
	DataSuspect = "Suspect"
)

// Login key element names.
const (
	ElementApplicationID = "ApplicationId"
	ElementPosition      = "Position"
)

// LoginID is the stream id reserved for the login stream. Item streams
// start at 1 and never reuse it.
const LoginID int64 = 0

// MaxStreamID is the largest item stream id the client will assign. It is
// the largest integer a JSON double can represent exactly, which keeps ids
// loss-free for every peer that parses the feed as standard JSON.
const MaxStreamID int64 = 1<<53 - 1

// Message is one inbound feed message in decoded form. Only the fields the
// client routes on are modeled; the full payload travels alongside as the
// raw frame slice.
type Message struct {
	ID     int64           `json:"ID,omitempty"`
	Type   string          `json:"Type,omitempty"`
	Domain string          `json:"Domain,omitempty"`
	Key    *Key            `json:"Key,omitempty"`
	State  *State          `json:"State,omitempty"`
	Fields json.RawMessage `json:"Fields,omitempty"`
	Text   string          `json:"Text,omitempty"`
}

// Key identifies the item a message belongs to.
type Key struct {
	Name    string `json:"Name,omitempty"`
	Service string `json:"Service,omitempty"`
}

// State reports stream and data condition on refresh and status messages.
type State struct {
	Stream string `json:"Stream,omitempty"`
	Data   string `json:"Data,omitempty"`
	Text   string `json:"Text,omitempty"`
}

// Closed reports whether the state marks the stream as closed by the
// provider.
func (s *State) Closed() bool {
	return s != nil && s.Stream == StreamClosed
}

// NonStreaming reports whether the state marks the stream as a one-shot
// snapshot that the provider will not update again.
func (s *State) NonStreaming() bool {
	return s != nil && s.Stream == StreamNonStreaming
}

// DecodeFrame splits one WebSocket text frame into its individual messages,
// preserving array order. A frame is normally a JSON array; a bare object
// is returned as a single-element slice.
func DecodeFrame(frame []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimLeft(frame, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("decode frame: empty frame")
	}
	if trimmed[0] == '[' {
		var batch []json.RawMessage
		if err := json.Unmarshal(trimmed, &batch); err != nil {
			return nil, fmt.Errorf("decode frame: %w", err)
		}
		return batch, nil
	}
	var single json.RawMessage
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return []json.RawMessage{single}, nil
}

// DecodeMessage parses one raw message out of a frame.
func DecodeMessage(raw []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	return msg, nil
}
