package services

import (
	"context"
	"errors"
	"time"

	"roamly-chat/internal/repository"
	roamly_errors "roamly-chat/pkg/errors"

	"github.com/google/uuid"
)

// CursorService owns the per-participant read cursor. MarkRead writes only
// now(), so concurrent calls for the same participant may land in any order.
type CursorService struct {
	repo repository.ChatRepository
}

func NewCursorService(repo repository.ChatRepository) *CursorService {
	return &CursorService{repo: repo}
}

// MarkRead advances the caller's cursor. Idempotent: a cursor that is already
// current stays put.
func (s *CursorService) MarkRead(ctx context.Context, chatID, userID uuid.UUID) error {
	if _, err := s.repo.GetParticipant(ctx, chatID, userID); err != nil {
		if errors.Is(err, roamly_errors.ErrNotFound) {
			return roamly_errors.ErrNotParticipant
		}
		return err
	}
	return s.repo.MarkRead(ctx, chatID, userID, time.Now())
}

// UnreadCount counts messages behind the cursor that the user did not send
// themselves. System messages count for everyone except the actor whose
// decision produced them, because the coordinator advances that actor's
// cursor right after inserting them.
func (s *CursorService) UnreadCount(ctx context.Context, chatID, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, chatID, userID)
}

// UnreadTotal sums unread counts over all the user's chats.
func (s *CursorService) UnreadTotal(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnreadTotal(ctx, userID)
}
