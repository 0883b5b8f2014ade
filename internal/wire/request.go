package wire

import "encoding/json"

// IDList is a set of stream ids on an outbound request. The feed expects a
// bare number when a request names one stream and an array otherwise, so a
// one-element list marshals without brackets.
type IDList []int64

// MarshalJSON implements json.Marshaler.
func (l IDList) MarshalJSON() ([]byte, error) {
	if len(l) == 1 {
		return json.Marshal(l[0])
	}
	return json.Marshal([]int64(l))
}

// NameList is a set of item names on an outbound request key, with the same
// single-versus-array encoding as IDList.
type NameList []string

// MarshalJSON implements json.Marshaler.
func (l NameList) MarshalJSON() ([]byte, error) {
	if len(l) == 1 {
		return json.Marshal(l[0])
	}
	return json.Marshal([]string(l))
}

// RequestKey identifies the item(s) an outbound request addresses. Elements
// is only populated on login.
type RequestKey struct {
	Name     NameList          `json:"Name,omitempty"`
	Service  string            `json:"Service,omitempty"`
	Elements map[string]string `json:"Elements,omitempty"`
}

// ItemRequest subscribes one or more items on a domain. A batch carries as
// many consecutive ids as names. Streaming defaults to true on the wire, so
// it is only encoded when the caller asks for a snapshot.
type ItemRequest struct {
	ID        IDList     `json:"ID"`
	Domain    string     `json:"Domain,omitempty"`
	Key       RequestKey `json:"Key"`
	Streaming *bool      `json:"Streaming,omitempty"`
	View      []string   `json:"View,omitempty"`
}

// LoginRequest opens the login stream on the reserved id 0.
type LoginRequest struct {
	ID     int64      `json:"ID"`
	Domain string     `json:"Domain"`
	Key    RequestKey `json:"Key"`
}

// NewLoginRequest builds the login request for a user. Application id and
// position are required by the feed and identify the connecting process.
func NewLoginRequest(user, applicationID, position string) LoginRequest {
	return LoginRequest{
		ID:     LoginID,
		Domain: DomainLogin,
		Key: RequestKey{
			Name: NameList{user},
			Elements: map[string]string{
				ElementApplicationID: applicationID,
				ElementPosition:      position,
			},
		},
	}
}

// CloseRequest tells the provider to stop one or more streams.
type CloseRequest struct {
	ID   IDList `json:"ID"`
	Type string `json:"Type"`
}

// NewCloseRequest builds a close for the given stream ids.
func NewCloseRequest(ids ...int64) CloseRequest {
	return CloseRequest{ID: IDList(ids), Type: TypeClose}
}

// Pong answers a feed ping. The exchange is a protocol-level heartbeat
// carried in ordinary text frames, not a WebSocket control frame.
type Pong struct {
	Type string `json:"Type"`
}

// NewPong builds the keep-alive reply.
func NewPong() Pong {
	return Pong{Type: TypePong}
}
