package events

import (
	"encoding/json"
)

// Event types pushed over a user's realtime connection.
const (
	TypeNewMessage          = "new_message"
	TypeConversationsUpdate = "conversations_update"
	TypeUnreadCount         = "unread_count"
)

// Envelope is the wire frame for realtime pushes. Exactly one of the payload
// fields is set, matching Type.
type Envelope struct {
	Type          string          `json:"type"`
	ChatID        string          `json:"chat_id,omitempty"`
	Message       json.RawMessage `json:"message,omitempty"`
	Conversations json.RawMessage `json:"conversations,omitempty"`
	UnreadCount   *int64          `json:"unread_count,omitempty"`
}

// ConnectionRegistry is the live-connection map the hub implements. Send
// reports whether a connection accepted the payload; false means the user has
// no live connection and the push is dropped.
type ConnectionRegistry interface {
	Send(userID string, payload []byte) bool
}

// Publisher delivers an envelope to a user's connection, wherever it lives.
// Delivery is best-effort: a missing connection is not an error.
type Publisher interface {
	PublishToUser(userID string, env Envelope) error
}
