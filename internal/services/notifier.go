package services

import (
	"context"
	"encoding/json"
	"time"

	"roamly-chat/internal/domain/chat"
	"roamly-chat/internal/events"
	"roamly-chat/pkg/logger"

	"github.com/google/uuid"
)

// Notifier fans state changes out to live connections. State is committed
// before any of this runs, and nothing here can fail the mutation: pushes are
// fired on a detached context and errors are swallowed into logs. A user
// without a connection simply misses the frame and re-fetches over REST.
type Notifier struct {
	inbox     *InboxService
	cursors   *CursorService
	publisher events.Publisher
	log       *logger.Logger
}

func NewNotifier(inbox *InboxService, cursors *CursorService, publisher events.Publisher, log *logger.Logger) *Notifier {
	return &Notifier{inbox: inbox, cursors: cursors, publisher: publisher, log: log}
}

// MessageAppended pushes the new message to every participant except its
// sender, and a refreshed conversation list plus unread total to everyone.
func (n *Notifier) MessageAppended(c chat.Chat, msg chat.Message, participants []chat.Participant) {
	if n == nil || n.publisher == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		frame, err := json.Marshal(messageFrame(msg))
		if err != nil {
			n.logf("notifier: marshal message %s: %v", msg.ID, err)
			return
		}

		for _, p := range participants {
			if !msg.SenderID.Valid || msg.SenderID.UUID != p.UserID {
				n.push(p.UserID, events.Envelope{
					Type:    events.TypeNewMessage,
					ChatID:  c.ID.String(),
					Message: frame,
				})
			}
			n.pushInbox(ctx, p.UserID)
			n.pushUnreadTotal(ctx, p.UserID)
		}
	}()
}

// ConversationsChanged pushes a refreshed list and unread total to each user.
func (n *Notifier) ConversationsChanged(userIDs ...uuid.UUID) {
	if n == nil || n.publisher == nil {
		return
	}
	ids := append([]uuid.UUID(nil), userIDs...)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, id := range ids {
			n.pushInbox(ctx, id)
			n.pushUnreadTotal(ctx, id)
		}
	}()
}

// ReadMarked pushes the user's new unread total after a cursor advance.
func (n *Notifier) ReadMarked(userID uuid.UUID) {
	if n == nil || n.publisher == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		n.pushUnreadTotal(ctx, userID)
	}()
}

func (n *Notifier) pushInbox(ctx context.Context, userID uuid.UUID) {
	inbox, err := n.inbox.ListConversations(ctx, userID)
	if err != nil {
		n.logf("notifier: inbox for %s: %v", userID, err)
		return
	}
	data, err := json.Marshal(inbox)
	if err != nil {
		n.logf("notifier: marshal inbox for %s: %v", userID, err)
		return
	}
	n.push(userID, events.Envelope{
		Type:          events.TypeConversationsUpdate,
		Conversations: data,
	})
}

func (n *Notifier) pushUnreadTotal(ctx context.Context, userID uuid.UUID) {
	total, err := n.cursors.UnreadTotal(ctx, userID)
	if err != nil {
		n.logf("notifier: unread total for %s: %v", userID, err)
		return
	}
	n.push(userID, events.Envelope{
		Type:        events.TypeUnreadCount,
		UnreadCount: &total,
	})
}

func (n *Notifier) push(userID uuid.UUID, env events.Envelope) {
	if err := n.publisher.PublishToUser(userID.String(), env); err != nil {
		n.logf("notifier: push %s to %s: %v", env.Type, userID, err)
	}
}

func (n *Notifier) logf(format string, args ...interface{}) {
	if n.log != nil {
		n.log.Warnf(format, args...)
	}
}

func messageFrame(m chat.Message) MessagePreview {
	frame := MessagePreview{
		ID:        m.ID,
		Text:      m.Text,
		Kind:      m.Kind,
		CreatedAt: m.CreatedAt,
	}
	if m.SenderID.Valid {
		id := m.SenderID.UUID
		frame.SenderID = &id
	}
	if m.TripID.Valid {
		id := m.TripID.UUID
		frame.TripID = &id
	}
	return frame
}
