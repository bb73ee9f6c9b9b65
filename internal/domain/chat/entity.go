package chat

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Chat kinds.
const (
	KindPrivate = "PRIVATE"
	KindPublic  = "PUBLIC"
)

// Chat statuses. REQUESTED marks a private chat opened by an unsolicited
// message; it surfaces in the recipient's message-request inbox until a
// lifecycle event activates it. ARCHIVED is reserved for moderation tooling;
// nothing in this service sets it.
const (
	StatusRequested = "REQUESTED"
	StatusActive    = "ACTIVE"
	StatusArchived  = "ARCHIVED"
)

// Message kinds. GENERAL and REQUEST come from users; GREEN, YELLOW and RED
// are system messages appended by the join-request coordinator.
const (
	MessageGeneral = "GENERAL"
	MessageRequest = "REQUEST"
	MessageGreen   = "GREEN"
	MessageYellow  = "YELLOW"
	MessageRed     = "RED"
)

// Participant roles.
const (
	RoleOwner  = "OWNER"
	RoleAdmin  = "ADMIN"
	RoleMember = "MEMBER"
)

// Chat represents the chats table. A PRIVATE chat holds exactly two
// participants and a PairKey; a PUBLIC chat belongs to a trip and holds its
// approved members.
type Chat struct {
	ID        uuid.UUID
	Kind      string
	TripID    uuid.NullUUID
	PairKey   sql.NullString
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time

	Participants []Participant
}

// Participant represents the chat_participants table. LastReadAt is the
// user's read cursor; unset means nothing has been read.
type Participant struct {
	ID         uuid.UUID
	ChatID     uuid.UUID
	UserID     uuid.UUID
	Role       string
	JoinedAt   time.Time
	LastReadAt sql.NullTime
}

// Message represents the chat_messages table. SenderID is unset for system
// messages. TripID tags a message with the trip it concerns, which lets a
// private chat carry inquiries about several trips.
type Message struct {
	ID        uuid.UUID
	ChatID    uuid.UUID
	SenderID  uuid.NullUUID
	Text      string
	Kind      string
	TripID    uuid.NullUUID
	CreatedAt time.Time
}

// InboxRow is the flat result shape of the one-round-trip conversation
// listing query: the chat, its most recent message, the other participant for
// private chats, and the caller's unread count.
type InboxRow struct {
	ChatID      uuid.UUID
	Kind        string
	Status      string
	TripID      uuid.NullUUID
	OtherUserID uuid.NullUUID
	UnreadCount int64

	MessageID        uuid.NullUUID
	MessageSenderID  uuid.NullUUID
	MessageText      sql.NullString
	MessageKind      sql.NullString
	MessageTripID    uuid.NullUUID
	MessageCreatedAt sql.NullTime
}

// LastMessage reconstructs the row's message, or nil when the chat is empty.
func (r InboxRow) LastMessage() *Message {
	if !r.MessageID.Valid {
		return nil
	}
	return &Message{
		ID:        r.MessageID.UUID,
		ChatID:    r.ChatID,
		SenderID:  r.MessageSenderID,
		Text:      r.MessageText.String,
		Kind:      r.MessageKind.String,
		TripID:    r.MessageTripID,
		CreatedAt: r.MessageCreatedAt.Time,
	}
}

// PairKey builds the canonical key for an unordered pair of users. The chats
// table carries a partial unique index on it, which is what makes concurrent
// first-message sends collapse onto a single private chat.
func PairKey(a, b uuid.UUID) string {
	x, y := a.String(), b.String()
	if strings.Compare(x, y) > 0 {
		x, y = y, x
	}
	return x + ":" + y
}

func (Chat) TableName() string {
	return "chats"
}

func (Participant) TableName() string {
	return "chat_participants"
}

func (Message) TableName() string {
	return "chat_messages"
}
