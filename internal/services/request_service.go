package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"roamly-chat/internal/domain/chat"
	"roamly-chat/internal/domain/trip"
	"roamly-chat/internal/repository"
	roamly_errors "roamly-chat/pkg/errors"
	"roamly-chat/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GroupChatMinCapacity is the trip capacity at and above which approved
// members get a shared group chat, created once the approved count (creator
// included) reaches the same number.
const GroupChatMinCapacity = 3

// RequestService ties trip join-request decisions to chat state: status
// transitions, system messages, group-chat formation. The multi-step accept
// flow is not one transaction; every step is individually idempotent so a
// retry after a partial run converges instead of duplicating state.
type RequestService struct {
	db        *gorm.DB
	repo      repository.ChatRepository
	trips     repository.TripService
	directory repository.UserDirectory
	cursors   *CursorService
	notifier  *Notifier
	log       *logger.Logger
}

func NewRequestService(
	db *gorm.DB,
	repo repository.ChatRepository,
	trips repository.TripService,
	directory repository.UserDirectory,
	cursors *CursorService,
	notifier *Notifier,
	log *logger.Logger,
) *RequestService {
	return &RequestService{db: db, repo: repo, trips: trips, directory: directory, cursors: cursors, notifier: notifier, log: log}
}

// Accept approves a join request: participant row approved, private chat
// activated with a green system message (unread for the applicant, read for
// the creator), and the trip group chat created or extended once the
// threshold is crossed.
func (s *RequestService) Accept(ctx context.Context, actorID, tripID, applicantID uuid.UUID) error {
	t, err := s.trips.GetTrip(ctx, tripID)
	if err != nil {
		return err
	}
	if t.CreatorID != actorID {
		return roamly_errors.ErrForbidden
	}
	if applicantID == t.CreatorID {
		return roamly_errors.ErrInvalidInput
	}

	// A second accept for the same applicant must not re-announce anything.
	alreadyApproved := containsUUID(t.ApprovedParticipants, applicantID)

	if err := s.trips.SetParticipantStatus(ctx, tripID, applicantID, trip.StatusApproved); err != nil {
		return err
	}

	pc, err := s.ensureActivePrivateChat(ctx, actorID, applicantID)
	if err != nil {
		return err
	}

	notified := false
	if !alreadyApproved {
		if err := s.appendSystemMessage(ctx, pc, chat.MessageGreen, "Your request to join the trip was accepted", tripID, actorID); err != nil {
			return err
		}
		notified = true
	}

	approved := t.ApprovedParticipants
	if !alreadyApproved {
		approved = append(approved, applicantID)
	}
	if t.MaxParticipants >= GroupChatMinCapacity && len(approved) >= GroupChatMinCapacity {
		groupNotified, err := s.ensureGroupChat(ctx, t, approved, applicantID, alreadyApproved)
		if err != nil {
			return err
		}
		notified = notified || groupNotified
	}

	if !notified {
		// Pure re-run: no new messages, but the clients still get a fresh
		// list in case an earlier attempt stopped before its pushes.
		s.notifier.ConversationsChanged(actorID, applicantID)
	}
	return nil
}

// Reject declines a join request: participant row rejected, private chat
// activated with a red system message unread for the applicant. The group
// chat is untouched.
func (s *RequestService) Reject(ctx context.Context, actorID, tripID, applicantID uuid.UUID) error {
	t, err := s.trips.GetTrip(ctx, tripID)
	if err != nil {
		return err
	}
	if t.CreatorID != actorID {
		return roamly_errors.ErrForbidden
	}
	if applicantID == t.CreatorID {
		return roamly_errors.ErrInvalidInput
	}

	if err := s.trips.SetParticipantStatus(ctx, tripID, applicantID, trip.StatusRejected); err != nil {
		return err
	}

	pc, err := s.ensureActivePrivateChat(ctx, actorID, applicantID)
	if err != nil {
		return err
	}

	return s.appendSystemMessage(ctx, pc, chat.MessageRed, "Your request to join the trip was declined", tripID, actorID)
}

// ensureActivePrivateChat finds or creates the creator/applicant private chat
// and makes sure it is ACTIVE. Both halves are no-ops when already satisfied.
func (s *RequestService) ensureActivePrivateChat(ctx context.Context, creatorID, applicantID uuid.UUID) (chat.Chat, error) {
	pc, err := findOrCreatePrivateChat(ctx, s.db, s.repo, creatorID, applicantID, chat.StatusActive)
	if err != nil {
		return chat.Chat{}, err
	}
	if pc.Status != chat.StatusActive {
		if err := s.repo.UpdateChatStatus(ctx, pc.ID, chat.StatusActive); err != nil {
			return chat.Chat{}, err
		}
		pc.Status = chat.StatusActive
	}
	return pc, nil
}

// appendSystemMessage inserts a sender-less message, advances the acting
// user's cursor past it, and pushes to the chat's participants.
func (s *RequestService) appendSystemMessage(ctx context.Context, c chat.Chat, kind, text string, tripID, actorID uuid.UUID) error {
	msg := chat.Message{
		ID:        uuid.New(),
		ChatID:    c.ID,
		Text:      text,
		Kind:      kind,
		TripID:    toNullUUID(tripID),
		CreatedAt: time.Now(),
	}
	if err := s.repo.CreateMessage(ctx, &msg); err != nil {
		return err
	}

	// The decision is the actor's own; it must not show up as unread to them.
	if err := s.cursors.MarkRead(ctx, c.ID, actorID); err != nil && s.log != nil {
		s.log.Warnf("request: cursor advance for %s in %s: %v", actorID, c.ID, err)
	}

	if participants, err := s.repo.ListParticipants(ctx, c.ID); err == nil {
		s.notifier.MessageAppended(c, msg, participants)
	} else if s.log != nil {
		s.log.Errorf("request: listing participants of %s for push: %v", c.ID, err)
	}
	return nil
}

// ensureGroupChat creates the trip's public chat on the first threshold
// crossing (two yellow announcements) or extends it with the newly approved
// member (one yellow announcement). Membership writes are create-if-absent.
func (s *RequestService) ensureGroupChat(ctx context.Context, t trip.Details, approved []uuid.UUID, applicantID uuid.UUID, alreadyApproved bool) (bool, error) {
	gc, err := s.repo.FindPublicChatForTrip(ctx, t.ID)
	switch {
	case err == nil:
		return s.extendGroupChat(ctx, gc, t, approved, applicantID, alreadyApproved)
	case errors.Is(err, roamly_errors.ErrNotFound):
		return s.createGroupChat(ctx, t, approved, applicantID)
	default:
		return false, err
	}
}

func (s *RequestService) createGroupChat(ctx context.Context, t trip.Details, approved []uuid.UUID, applicantID uuid.UUID) (bool, error) {
	now := time.Now()
	gc := chat.Chat{
		ID:        uuid.New(),
		Kind:      chat.KindPublic,
		TripID:    toNullUUID(t.ID),
		Status:    chat.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.repo.CreateChat(ctx, &gc)
	if errors.Is(err, roamly_errors.ErrAlreadyExists) {
		// A concurrent accept created it first; fall back to extending.
		existing, lookupErr := s.repo.FindPublicChatForTrip(ctx, t.ID)
		if lookupErr != nil {
			return false, lookupErr
		}
		return s.extendGroupChat(ctx, existing, t, approved, applicantID, false)
	}
	if err != nil {
		return false, err
	}

	if err := s.ensureMembers(ctx, gc, t.CreatorID, approved); err != nil {
		return false, err
	}

	intro := fmt.Sprintf("Trip created by %s", s.displayName(ctx, t.CreatorID))
	if err := s.appendSystemMessage(ctx, gc, chat.MessageYellow, intro, t.ID, t.CreatorID); err != nil {
		return false, err
	}
	joined := fmt.Sprintf("%s joined the trip", s.displayName(ctx, applicantID))
	if err := s.appendSystemMessage(ctx, gc, chat.MessageYellow, joined, t.ID, t.CreatorID); err != nil {
		return false, err
	}
	return true, nil
}

func (s *RequestService) extendGroupChat(ctx context.Context, gc chat.Chat, t trip.Details, approved []uuid.UUID, applicantID uuid.UUID, alreadyApproved bool) (bool, error) {
	addErr := s.repo.AddParticipant(ctx, &chat.Participant{
		ID:       uuid.New(),
		ChatID:   gc.ID,
		UserID:   applicantID,
		Role:     chat.RoleMember,
		JoinedAt: time.Now(),
	})
	announced := false
	switch {
	case addErr == nil:
		if !alreadyApproved {
			joined := fmt.Sprintf("%s joined the trip", s.displayName(ctx, applicantID))
			if err := s.appendSystemMessage(ctx, gc, chat.MessageYellow, joined, t.ID, t.CreatorID); err != nil {
				return false, err
			}
			announced = true
		}
	case errors.Is(addErr, roamly_errors.ErrAlreadyExists):
		// Membership already in place; nothing to announce.
	default:
		return false, addErr
	}

	// Members approved before the chat existed, or left behind by a partial
	// earlier run, get their rows here.
	if err := s.ensureMembers(ctx, gc, t.CreatorID, approved); err != nil {
		return announced, err
	}
	return announced, nil
}

// ensureMembers gives every approved trip member a participant row, skipping
// rows that already exist.
func (s *RequestService) ensureMembers(ctx context.Context, gc chat.Chat, creatorID uuid.UUID, approved []uuid.UUID) error {
	for _, userID := range approved {
		role := chat.RoleMember
		if userID == creatorID {
			role = chat.RoleOwner
		}
		err := s.repo.AddParticipant(ctx, &chat.Participant{
			ID:       uuid.New(),
			ChatID:   gc.ID,
			UserID:   userID,
			Role:     role,
			JoinedAt: time.Now(),
		})
		if err != nil && !errors.Is(err, roamly_errors.ErrAlreadyExists) {
			return err
		}
	}
	return nil
}

func (s *RequestService) displayName(ctx context.Context, userID uuid.UUID) string {
	profile, err := s.directory.GetProfile(ctx, userID)
	if err != nil || profile.DisplayName == "" {
		return "A traveller"
	}
	return profile.DisplayName
}
