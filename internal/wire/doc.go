// Package wire defines the JSON message model of the tr_json2 feed protocol.
//
// Inbound traffic arrives as WebSocket text frames, each carrying a JSON
// array of messages (a bare object is accepted and treated as a one-element
// batch). Outbound requests are single JSON objects: login, item subscribe,
// close, and the keep-alive pong.
//
// The types here are shared by the session, the stream registry, and the
// news pipeline; they carry no behavior beyond JSON shaping.
package wire
