package services

import (
	"context"
	"sort"
	"time"

	"roamly-chat/internal/domain/chat"
	"roamly-chat/internal/repository"
	"roamly-chat/internal/storage"
	"roamly-chat/pkg/logger"

	"github.com/google/uuid"
)

// Inbox buckets, in display order.
const (
	BucketRequested = "requested"
	BucketPrivate   = "private"
	BucketPublic    = "public"
	BucketArchived  = "archived"
)

// Source identifies what a conversation is "about" in the inbox: the other
// person for a private chat, the trip for a group chat. Tagged variant; the
// pointer matching Kind is set.
type Source struct {
	Kind    string         `json:"kind"`
	Private *PrivateSource `json:"private,omitempty"`
	Trip    *TripSource    `json:"trip,omitempty"`
}

type PrivateSource struct {
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatar_url,omitempty"`
}

type TripSource struct {
	TripID   uuid.UUID `json:"trip_id"`
	Title    string    `json:"title"`
	PhotoURL string    `json:"photo_url,omitempty"`
}

type MessagePreview struct {
	ID        uuid.UUID  `json:"id"`
	SenderID  *uuid.UUID `json:"sender_id,omitempty"`
	Text      string     `json:"text"`
	Kind      string     `json:"kind"`
	TripID    *uuid.UUID `json:"trip_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type ConversationSummary struct {
	ChatID      uuid.UUID       `json:"chat_id"`
	Kind        string          `json:"kind"`
	Status      string          `json:"status"`
	Source      Source          `json:"source"`
	LastMessage *MessagePreview `json:"last_message,omitempty"`
	UnreadCount int64           `json:"unread_count"`
}

// Inbox is the bucketed conversation list for one user.
type Inbox struct {
	Requested []ConversationSummary `json:"requested"`
	Private   []ConversationSummary `json:"private"`
	Public    []ConversationSummary `json:"public"`
	Archived  []ConversationSummary `json:"archived"`
}

// InboxService builds the per-user conversation list: one storage round trip,
// deduplicated by chat id, partitioned into buckets, newest activity first.
type InboxService struct {
	repo      repository.ChatRepository
	directory repository.UserDirectory
	trips     repository.TripService
	media     storage.URLResolver
	log       *logger.Logger
}

func NewInboxService(
	repo repository.ChatRepository,
	directory repository.UserDirectory,
	trips repository.TripService,
	media storage.URLResolver,
	log *logger.Logger,
) *InboxService {
	if media == nil {
		media = storage.NoopResolver{}
	}
	return &InboxService{repo: repo, directory: directory, trips: trips, media: media, log: log}
}

func (s *InboxService) ListConversations(ctx context.Context, userID uuid.UUID) (Inbox, error) {
	rows, err := s.repo.ListInboxRows(ctx, userID)
	if err != nil {
		return Inbox{}, err
	}

	// The participant/message joins can multiply rows per chat; keep one.
	seen := make(map[uuid.UUID]struct{}, len(rows))
	summaries := make([]ConversationSummary, 0, len(rows))
	for _, row := range rows {
		if _, dup := seen[row.ChatID]; dup {
			continue
		}
		seen[row.ChatID] = struct{}{}
		summaries = append(summaries, s.summarize(ctx, row))
	}

	// Most recent message first; chats with no messages sort last.
	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i].LastMessage, summaries[j].LastMessage
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	var inbox Inbox
	for _, sum := range summaries {
		switch bucketFor(sum) {
		case BucketArchived:
			inbox.Archived = append(inbox.Archived, sum)
		case BucketRequested:
			inbox.Requested = append(inbox.Requested, sum)
		case BucketPrivate:
			inbox.Private = append(inbox.Private, sum)
		default:
			inbox.Public = append(inbox.Public, sum)
		}
	}
	return inbox, nil
}

// bucketFor applies the bucketing priority: archived wins over everything,
// then the requested inbox for cold private chats, then private, then public.
func bucketFor(sum ConversationSummary) string {
	switch {
	case sum.Status == chat.StatusArchived:
		return BucketArchived
	case sum.Kind == chat.KindPrivate && sum.Status == chat.StatusRequested:
		return BucketRequested
	case sum.Kind == chat.KindPrivate:
		return BucketPrivate
	default:
		return BucketPublic
	}
}

func (s *InboxService) summarize(ctx context.Context, row chat.InboxRow) ConversationSummary {
	sum := ConversationSummary{
		ChatID:      row.ChatID,
		Kind:        row.Kind,
		Status:      row.Status,
		UnreadCount: row.UnreadCount,
		Source:      s.resolveSource(ctx, row),
	}
	if m := row.LastMessage(); m != nil {
		preview := MessagePreview{
			ID:        m.ID,
			Text:      m.Text,
			Kind:      m.Kind,
			CreatedAt: m.CreatedAt,
		}
		if m.SenderID.Valid {
			id := m.SenderID.UUID
			preview.SenderID = &id
		}
		if m.TripID.Valid {
			id := m.TripID.UUID
			preview.TripID = &id
		}
		sum.LastMessage = &preview
	}
	return sum
}

// resolveSource fills in display data from the collaborators. Lookups that
// fail degrade to a bare id; the inbox never fails because a profile or trip
// read did.
func (s *InboxService) resolveSource(ctx context.Context, row chat.InboxRow) Source {
	if row.Kind == chat.KindPrivate {
		src := Source{Kind: chat.KindPrivate, Private: &PrivateSource{}}
		if row.OtherUserID.Valid {
			src.Private.UserID = row.OtherUserID.UUID
			if profile, err := s.directory.GetProfile(ctx, row.OtherUserID.UUID); err == nil {
				src.Private.Name = profile.DisplayName
				src.Private.AvatarURL = s.media.ResolveURL(ctx, profile.AvatarKey)
			} else if s.log != nil {
				s.log.Warnf("inbox: profile lookup failed for %s: %v", row.OtherUserID.UUID, err)
			}
		}
		return src
	}

	src := Source{Kind: chat.KindPublic, Trip: &TripSource{}}
	if row.TripID.Valid {
		src.Trip.TripID = row.TripID.UUID
		if details, err := s.trips.GetTrip(ctx, row.TripID.UUID); err == nil {
			src.Trip.Title = details.Title
			src.Trip.PhotoURL = s.media.ResolveURL(ctx, details.PhotoKey)
		} else if s.log != nil {
			s.log.Warnf("inbox: trip lookup failed for %s: %v", row.TripID.UUID, err)
		}
	}
	return src
}
