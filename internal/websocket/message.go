package websocket

import "encoding/json"

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

// NewStatsMessage builds a stats broadcast frame.
func NewStatsMessage(payload interface{}) []byte {
	b, _ := json.Marshal(Message{Action: "stats_update", Payload: payload})
	return b
}

// NewErrorMessage builds an error frame for a client.
func NewErrorMessage(text string) []byte {
	b, _ := json.Marshal(Message{Action: "error", Payload: text})
	return b
}
