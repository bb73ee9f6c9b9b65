package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"roamly-chat/internal/domain/chat"
	"roamly-chat/internal/domain/trip"
	"roamly-chat/internal/domain/user"
	"roamly-chat/internal/events"
	"roamly-chat/internal/repository"
	roamly_errors "roamly-chat/pkg/errors"

	"github.com/google/uuid"
)

// fakeChatRepo is an in-memory ChatRepository that enforces the same
// uniqueness rules as the Postgres schema: one private chat per pair key, one
// public chat per trip, one participant row per (chat, user).
type fakeChatRepo struct {
	mu           sync.Mutex
	chats        map[uuid.UUID]*chat.Chat
	participants []*chat.Participant
	messages     []chat.Message

	// inboxRows, when set, is returned verbatim by ListInboxRows.
	inboxRows []chat.InboxRow
}

var _ repository.ChatRepository = (*fakeChatRepo)(nil)

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{chats: make(map[uuid.UUID]*chat.Chat)}
}

func (f *fakeChatRepo) CreateChat(ctx context.Context, c *chat.Chat) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.chats {
		if c.PairKey.Valid && existing.PairKey.Valid && existing.PairKey.String == c.PairKey.String {
			return roamly_errors.ErrAlreadyExists
		}
		if c.Kind == chat.KindPublic && existing.Kind == chat.KindPublic &&
			c.TripID.Valid && existing.TripID.Valid && existing.TripID.UUID == c.TripID.UUID {
			return roamly_errors.ErrAlreadyExists
		}
	}
	stored := *c
	f.chats[c.ID] = &stored
	return nil
}

func (f *fakeChatRepo) GetChatByID(ctx context.Context, id uuid.UUID) (chat.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.chats[id]
	if !ok {
		return chat.Chat{}, roamly_errors.ErrNotFound
	}
	return *c, nil
}

func (f *fakeChatRepo) UpdateChatStatus(ctx context.Context, id uuid.UUID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.chats[id]
	if !ok {
		return roamly_errors.ErrNotFound
	}
	c.Status = status
	c.UpdatedAt = time.Now()
	return nil
}

func (f *fakeChatRepo) FindPrivateChatBetween(ctx context.Context, userA, userB uuid.UUID) (chat.Chat, error) {
	key := chat.PairKey(userA, userB)
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.chats {
		if c.PairKey.Valid && c.PairKey.String == key {
			return *c, nil
		}
	}
	return chat.Chat{}, roamly_errors.ErrNotFound
}

func (f *fakeChatRepo) FindPublicChatForTrip(ctx context.Context, tripID uuid.UUID) (chat.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.chats {
		if c.Kind == chat.KindPublic && c.TripID.Valid && c.TripID.UUID == tripID {
			return *c, nil
		}
	}
	return chat.Chat{}, roamly_errors.ErrNotFound
}

func (f *fakeChatRepo) AddParticipant(ctx context.Context, p *chat.Participant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.participants {
		if existing.ChatID == p.ChatID && existing.UserID == p.UserID {
			return roamly_errors.ErrAlreadyExists
		}
	}
	stored := *p
	f.participants = append(f.participants, &stored)
	return nil
}

func (f *fakeChatRepo) GetParticipant(ctx context.Context, chatID, userID uuid.UUID) (chat.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.participants {
		if p.ChatID == chatID && p.UserID == userID {
			return *p, nil
		}
	}
	return chat.Participant{}, roamly_errors.ErrNotFound
}

func (f *fakeChatRepo) ListParticipants(ctx context.Context, chatID uuid.UUID) ([]chat.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []chat.Participant
	for _, p := range f.participants {
		if p.ChatID == chatID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeChatRepo) IsParticipant(ctx context.Context, chatID, userID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.participants {
		if p.ChatID == chatID && p.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeChatRepo) CreateMessage(ctx context.Context, m *chat.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, *m)
	return nil
}

func (f *fakeChatRepo) ListMessages(ctx context.Context, chatID uuid.UUID) ([]chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []chat.Message
	for _, m := range f.messages {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeChatRepo) LatestMessage(ctx context.Context, chatID uuid.UUID) (chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.latestLocked(chatID)
	if m == nil {
		return chat.Message{}, roamly_errors.ErrNotFound
	}
	return *m, nil
}

func (f *fakeChatRepo) CountUnread(ctx context.Context, chatID, userID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.countUnreadLocked(chatID, userID), nil
}

func (f *fakeChatRepo) CountUnreadTotal(ctx context.Context, userID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total int64
	for _, p := range f.participants {
		if p.UserID == userID {
			total += f.countUnreadLocked(p.ChatID, userID)
		}
	}
	return total, nil
}

func (f *fakeChatRepo) MarkRead(ctx context.Context, chatID, userID uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.participants {
		if p.ChatID == chatID && p.UserID == userID {
			if !p.LastReadAt.Valid || p.LastReadAt.Time.Before(at) {
				p.LastReadAt.Time = at
				p.LastReadAt.Valid = true
			}
			return nil
		}
	}
	return nil
}

func (f *fakeChatRepo) ListInboxRows(ctx context.Context, userID uuid.UUID) ([]chat.InboxRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inboxRows != nil {
		return f.inboxRows, nil
	}

	var rows []chat.InboxRow
	for _, p := range f.participants {
		if p.UserID != userID {
			continue
		}
		c := f.chats[p.ChatID]
		if c == nil {
			continue
		}
		row := chat.InboxRow{
			ChatID:      c.ID,
			Kind:        c.Kind,
			Status:      c.Status,
			TripID:      c.TripID,
			UnreadCount: f.countUnreadLocked(c.ID, userID),
		}
		if c.Kind == chat.KindPrivate {
			for _, other := range f.participants {
				if other.ChatID == c.ID && other.UserID != userID {
					row.OtherUserID = uuid.NullUUID{UUID: other.UserID, Valid: true}
				}
			}
		}
		if m := f.latestLocked(c.ID); m != nil {
			row.MessageID = uuid.NullUUID{UUID: m.ID, Valid: true}
			row.MessageSenderID = m.SenderID
			row.MessageText.String, row.MessageText.Valid = m.Text, true
			row.MessageKind.String, row.MessageKind.Valid = m.Kind, true
			row.MessageTripID = m.TripID
			row.MessageCreatedAt.Time, row.MessageCreatedAt.Valid = m.CreatedAt, true
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (f *fakeChatRepo) latestLocked(chatID uuid.UUID) *chat.Message {
	var latest *chat.Message
	for i := range f.messages {
		m := &f.messages[i]
		if m.ChatID != chatID {
			continue
		}
		if latest == nil || m.CreatedAt.After(latest.CreatedAt) {
			latest = m
		}
	}
	return latest
}

func (f *fakeChatRepo) countUnreadLocked(chatID, userID uuid.UUID) int64 {
	var cursor time.Time
	var hasCursor bool
	for _, p := range f.participants {
		if p.ChatID == chatID && p.UserID == userID {
			cursor, hasCursor = p.LastReadAt.Time, p.LastReadAt.Valid
		}
	}
	var n int64
	for _, m := range f.messages {
		if m.ChatID != chatID {
			continue
		}
		if m.SenderID.Valid && m.SenderID.UUID == userID {
			continue
		}
		if hasCursor && !m.CreatedAt.After(cursor) {
			continue
		}
		n++
	}
	return n
}

type fakeTrips struct {
	mu       sync.Mutex
	trips    map[uuid.UUID]*trip.Details
	statuses map[uuid.UUID]map[uuid.UUID]string
}

var _ repository.TripService = (*fakeTrips)(nil)

func newFakeTrips() *fakeTrips {
	return &fakeTrips{
		trips:    make(map[uuid.UUID]*trip.Details),
		statuses: make(map[uuid.UUID]map[uuid.UUID]string),
	}
}

func (f *fakeTrips) add(t trip.Details) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := t
	stored.ApprovedParticipants = append([]uuid.UUID(nil), t.ApprovedParticipants...)
	f.trips[t.ID] = &stored
}

func (f *fakeTrips) GetTrip(ctx context.Context, tripID uuid.UUID) (trip.Details, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.trips[tripID]
	if !ok {
		return trip.Details{}, roamly_errors.ErrNotFound
	}
	out := *t
	out.ApprovedParticipants = append([]uuid.UUID(nil), t.ApprovedParticipants...)
	return out, nil
}

func (f *fakeTrips) SetParticipantStatus(ctx context.Context, tripID, userID uuid.UUID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statuses[tripID] == nil {
		f.statuses[tripID] = make(map[uuid.UUID]string)
	}
	f.statuses[tripID][userID] = status

	if status == trip.StatusApproved {
		if t, ok := f.trips[tripID]; ok && !containsUUID(t.ApprovedParticipants, userID) {
			t.ApprovedParticipants = append(t.ApprovedParticipants, userID)
		}
	}
	return nil
}

func (f *fakeTrips) statusOf(tripID, userID uuid.UUID) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses[tripID][userID]
}

type fakeDirectory struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]user.Profile
}

var _ repository.UserDirectory = (*fakeDirectory)(nil)

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{profiles: make(map[uuid.UUID]user.Profile)}
}

func (f *fakeDirectory) add(p user.Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[p.ID] = p
}

func (f *fakeDirectory) GetProfile(ctx context.Context, id uuid.UUID) (user.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return user.Profile{}, roamly_errors.ErrNotFound
	}
	return p, nil
}

type publishedFrame struct {
	userID string
	env    events.Envelope
}

// fakePublisher records every envelope handed to it.
type fakePublisher struct {
	mu     sync.Mutex
	frames []publishedFrame
}

var _ events.Publisher = (*fakePublisher)(nil)

func (f *fakePublisher) PublishToUser(userID string, env events.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, publishedFrame{userID: userID, env: env})
	return nil
}

func (f *fakePublisher) snapshot() []publishedFrame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]publishedFrame(nil), f.frames...)
}

// waitFrames polls until at least n frames arrived. Pushes run on detached
// goroutines, so tests have to wait for them.
func (f *fakePublisher) waitFrames(n int, timeout time.Duration) []publishedFrame {
	deadline := time.Now().Add(timeout)
	for {
		frames := f.snapshot()
		if len(frames) >= n || time.Now().After(deadline) {
			return frames
		}
		time.Sleep(5 * time.Millisecond)
	}
}
