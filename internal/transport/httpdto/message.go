package httpdto

import (
	"time"

	"roamly-chat/internal/domain/chat"
)

type SendMessageRequest struct {
	ChatID     string `json:"chat_id,omitempty"`
	ReceiverID string `json:"receiver_id,omitempty"`
	Text       string `json:"text"`
	Kind       string `json:"kind,omitempty"`
	TripID     string `json:"trip_id,omitempty"`
}

type MessageResponse struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	SenderID  string    `json:"sender_id,omitempty"`
	Text      string    `json:"text"`
	Kind      string    `json:"kind"`
	TripID    string    `json:"trip_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ListMessagesResponse struct {
	Messages []MessageResponse `json:"messages"`
}

func FromMessage(m chat.Message) MessageResponse {
	res := MessageResponse{
		ID:        m.ID.String(),
		ChatID:    m.ChatID.String(),
		Text:      m.Text,
		Kind:      m.Kind,
		CreatedAt: m.CreatedAt,
	}
	if m.SenderID.Valid {
		res.SenderID = m.SenderID.UUID.String()
	}
	if m.TripID.Valid {
		res.TripID = m.TripID.UUID.String()
	}
	return res
}

func FromMessageSlice(messages []chat.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, FromMessage(m))
	}
	return out
}
