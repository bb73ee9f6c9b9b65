package httpdto

import (
	"roamly-chat/internal/services"
)

// The inbox already carries JSON tags on the service types; the HTTP surface
// wraps it in the shared envelope without reshaping.
type ListConversationsResponse struct {
	Conversations services.Inbox `json:"conversations"`
}

type UnreadTotalResponse struct {
	UnreadCount int64 `json:"unread_count"`
}
