package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"roamly-chat/internal/domain/chat"
	"roamly-chat/internal/repository"
	roamly_errors "roamly-chat/pkg/errors"
	"roamly-chat/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageService routes outgoing messages: resolves the target chat (an
// explicit chat id, or find-or-create of the private chat for a receiver),
// persists the message together with its status effect, and triggers pushes.
type MessageService struct {
	db       *gorm.DB
	repo     repository.ChatRepository
	cursors  *CursorService
	notifier *Notifier
	log      *logger.Logger
}

func NewMessageService(db *gorm.DB, repo repository.ChatRepository, cursors *CursorService, notifier *Notifier, log *logger.Logger) *MessageService {
	return &MessageService{db: db, repo: repo, cursors: cursors, notifier: notifier, log: log}
}

type SendMessageInput struct {
	ActorID    uuid.UUID
	ChatID     uuid.NullUUID
	ReceiverID uuid.NullUUID
	Text       string
	Kind       string
	TripID     uuid.NullUUID
}

func (in *SendMessageInput) validate() error {
	if strings.TrimSpace(in.Text) == "" {
		return roamly_errors.ErrInvalidInput
	}
	if !in.ChatID.Valid && !in.ReceiverID.Valid {
		return roamly_errors.ErrInvalidInput
	}
	if in.ReceiverID.Valid && in.ReceiverID.UUID == in.ActorID {
		return roamly_errors.ErrInvalidInput
	}
	if in.Kind == "" {
		in.Kind = chat.MessageGeneral
	}
	// Colored kinds are system-only; clients send GENERAL or REQUEST.
	if in.Kind != chat.MessageGeneral && in.Kind != chat.MessageRequest {
		return roamly_errors.ErrInvalidInput
	}
	return nil
}

// Send persists one message. A REQUEST-kind message activates its chat in the
// same transaction as the append, so no reader ever sees the message without
// the status change.
func (s *MessageService) Send(ctx context.Context, in SendMessageInput) (chat.Message, error) {
	if err := in.validate(); err != nil {
		return chat.Message{}, err
	}

	var target chat.Chat
	var err error
	if in.ChatID.Valid {
		target, err = s.repo.GetChatByID(ctx, in.ChatID.UUID)
		if err != nil {
			return chat.Message{}, err
		}
		ok, err := s.repo.IsParticipant(ctx, target.ID, in.ActorID)
		if err != nil {
			return chat.Message{}, err
		}
		if !ok {
			return chat.Message{}, roamly_errors.ErrNotParticipant
		}
	} else {
		status := chat.StatusRequested
		if in.Kind == chat.MessageRequest {
			// A trip-join inquiry is not spam-gated the way a cold
			// general message is.
			status = chat.StatusActive
		}
		target, err = findOrCreatePrivateChat(ctx, s.db, s.repo, in.ActorID, in.ReceiverID.UUID, status)
		if err != nil {
			return chat.Message{}, err
		}
	}

	msg := chat.Message{
		ID:        uuid.New(),
		ChatID:    target.ID,
		SenderID:  uuid.NullUUID{UUID: in.ActorID, Valid: true},
		Text:      in.Text,
		Kind:      in.Kind,
		TripID:    in.TripID,
		CreatedAt: time.Now(),
	}

	err = inChatTransaction(ctx, s.db, s.repo, func(txRepo repository.ChatRepository) error {
		if err := txRepo.CreateMessage(ctx, &msg); err != nil {
			return err
		}
		if msg.Kind == chat.MessageRequest && target.Status != chat.StatusActive {
			if err := txRepo.UpdateChatStatus(ctx, target.ID, chat.StatusActive); err != nil {
				return err
			}
			target.Status = chat.StatusActive
		}
		return nil
	})
	if err != nil {
		return chat.Message{}, err
	}

	if participants, err := s.repo.ListParticipants(ctx, target.ID); err == nil {
		s.notifier.MessageAppended(target, msg, participants)
	} else if s.log != nil {
		s.log.Errorf("send: listing participants of %s for push: %v", target.ID, err)
	}

	return msg, nil
}

// ListMessages returns a chat's history in chronological order and, as a side
// effect, advances the caller's read cursor.
func (s *MessageService) ListMessages(ctx context.Context, actorID, chatID uuid.UUID) ([]chat.Message, error) {
	ok, err := s.repo.IsParticipant(ctx, chatID, actorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, roamly_errors.ErrForbidden
	}

	messages, err := s.repo.ListMessages(ctx, chatID)
	if err != nil {
		return nil, err
	}

	if err := s.cursors.MarkRead(ctx, chatID, actorID); err != nil {
		// Reading still succeeded; the cursor catches up on the next call.
		if s.log != nil {
			s.log.Warnf("list: cursor advance for %s in %s: %v", actorID, chatID, err)
		}
	} else {
		s.notifier.ReadMarked(actorID)
	}

	return messages, nil
}

// inChatTransaction runs fn against a transaction-scoped repository. Without
// a db handle (in-memory repositories in tests) it falls through to the base
// repository.
func inChatTransaction(ctx context.Context, db *gorm.DB, repo repository.ChatRepository, fn func(repository.ChatRepository) error) error {
	if db == nil {
		return fn(repo)
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(repository.NewChatRepository(tx))
	})
}

// findOrCreatePrivateChat resolves the single private chat for a pair,
// creating it with the given initial status when absent. Concurrent creates
// collide on the pair-key unique index; the loser retries as a lookup.
func findOrCreatePrivateChat(ctx context.Context, db *gorm.DB, repo repository.ChatRepository, initiatorID, otherID uuid.UUID, status string) (chat.Chat, error) {
	existing, err := repo.FindPrivateChatBetween(ctx, initiatorID, otherID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, roamly_errors.ErrNotFound) {
		return chat.Chat{}, err
	}

	now := time.Now()
	created := chat.Chat{
		ID:        uuid.New(),
		Kind:      chat.KindPrivate,
		PairKey:   toNullString(chat.PairKey(initiatorID, otherID)),
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = inChatTransaction(ctx, db, repo, func(txRepo repository.ChatRepository) error {
		if err := txRepo.CreateChat(ctx, &created); err != nil {
			return err
		}
		for i, userID := range []uuid.UUID{initiatorID, otherID} {
			role := chat.RoleMember
			if i == 0 {
				role = chat.RoleOwner
			}
			p := chat.Participant{
				ID:       uuid.New(),
				ChatID:   created.ID,
				UserID:   userID,
				Role:     role,
				JoinedAt: now,
			}
			if err := txRepo.AddParticipant(ctx, &p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, roamly_errors.ErrAlreadyExists) {
			// Lost the race; the other side's chat is the chat.
			return repo.FindPrivateChatBetween(ctx, initiatorID, otherID)
		}
		return chat.Chat{}, err
	}

	created.Participants, _ = repo.ListParticipants(ctx, created.ID)
	return created, nil
}
