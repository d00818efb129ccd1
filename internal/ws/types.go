package ws

import "encoding/json"

const (
	// client - server
	MsgPing = "ping"

	// server - client
	MsgState = "state"
	MsgPong  = "pong"
	MsgError = "error"
)

// Message is the envelope for every frame on the state stream
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
