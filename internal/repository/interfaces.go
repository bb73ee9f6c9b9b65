package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"roamly-chat/internal/domain/chat"
	"roamly-chat/internal/domain/trip"
	"roamly-chat/internal/domain/user"
)

type ChatRepository interface {
	CreateChat(ctx context.Context, c *chat.Chat) error
	GetChatByID(ctx context.Context, id uuid.UUID) (chat.Chat, error)
	UpdateChatStatus(ctx context.Context, id uuid.UUID, status string) error
	FindPrivateChatBetween(ctx context.Context, userA, userB uuid.UUID) (chat.Chat, error)
	FindPublicChatForTrip(ctx context.Context, tripID uuid.UUID) (chat.Chat, error)

	AddParticipant(ctx context.Context, p *chat.Participant) error
	GetParticipant(ctx context.Context, chatID, userID uuid.UUID) (chat.Participant, error)
	ListParticipants(ctx context.Context, chatID uuid.UUID) ([]chat.Participant, error)
	IsParticipant(ctx context.Context, chatID, userID uuid.UUID) (bool, error)

	CreateMessage(ctx context.Context, m *chat.Message) error
	ListMessages(ctx context.Context, chatID uuid.UUID) ([]chat.Message, error)
	LatestMessage(ctx context.Context, chatID uuid.UUID) (chat.Message, error)

	CountUnread(ctx context.Context, chatID, userID uuid.UUID) (int64, error)
	CountUnreadTotal(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, chatID, userID uuid.UUID, at time.Time) error

	ListInboxRows(ctx context.Context, userID uuid.UUID) ([]chat.InboxRow, error)
}

// TripService is the collaborator contract for trip data: read a trip and
// decide a join request. Everything else about trips happens elsewhere.
type TripService interface {
	GetTrip(ctx context.Context, tripID uuid.UUID) (trip.Details, error)
	SetParticipantStatus(ctx context.Context, tripID, userID uuid.UUID, status string) error
}

// UserDirectory resolves user ids to display profiles for conversation
// summaries.
type UserDirectory interface {
	GetProfile(ctx context.Context, id uuid.UUID) (user.Profile, error)
}
