package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"roamly-chat/internal/domain/chat"
	roamly_errors "roamly-chat/pkg/errors"

	"github.com/google/uuid"
)

func newMessageServiceForTest(repo *fakeChatRepo) *MessageService {
	return NewMessageService(nil, repo, NewCursorService(repo), nil, nil)
}

func nullID(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: true}
}

func TestSendRejectsInvalidInput(t *testing.T) {
	repo := newFakeChatRepo()
	svc := newMessageServiceForTest(repo)
	actor, receiver := uuid.New(), uuid.New()

	cases := []struct {
		name string
		in   SendMessageInput
	}{
		{"empty text", SendMessageInput{ActorID: actor, ReceiverID: nullID(receiver)}},
		{"blank text", SendMessageInput{ActorID: actor, ReceiverID: nullID(receiver), Text: "   "}},
		{"no target", SendMessageInput{ActorID: actor, Text: "hi"}},
		{"self receiver", SendMessageInput{ActorID: actor, ReceiverID: nullID(actor), Text: "hi"}},
		{"system kind", SendMessageInput{ActorID: actor, ReceiverID: nullID(receiver), Text: "hi", Kind: chat.MessageGreen}},
	}
	for _, tc := range cases {
		if _, err := svc.Send(context.Background(), tc.in); !errors.Is(err, roamly_errors.ErrInvalidInput) {
			t.Fatalf("%s: got %v, want ErrInvalidInput", tc.name, err)
		}
	}
}

func TestSendToChatRequiresMembership(t *testing.T) {
	repo := newFakeChatRepo()
	svc := newMessageServiceForTest(repo)

	c := chat.Chat{ID: uuid.New(), Kind: chat.KindPublic, Status: chat.StatusActive}
	if err := repo.CreateChat(context.Background(), &c); err != nil {
		t.Fatalf("seed chat: %v", err)
	}

	_, err := svc.Send(context.Background(), SendMessageInput{
		ActorID: uuid.New(),
		ChatID:  nullID(c.ID),
		Text:    "hi",
	})
	if !errors.Is(err, roamly_errors.ErrNotParticipant) {
		t.Fatalf("got %v, want ErrNotParticipant", err)
	}
}

func TestSendColdStartOpensRequestedChat(t *testing.T) {
	repo := newFakeChatRepo()
	svc := newMessageServiceForTest(repo)
	sender, receiver := uuid.New(), uuid.New()

	msg, err := svc.Send(context.Background(), SendMessageInput{
		ActorID:    sender,
		ReceiverID: nullID(receiver),
		Text:       "hello there",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.Kind != chat.MessageGeneral {
		t.Fatalf("message kind = %q, want GENERAL", msg.Kind)
	}

	c, err := repo.GetChatByID(context.Background(), msg.ChatID)
	if err != nil {
		t.Fatalf("chat lookup: %v", err)
	}
	if c.Kind != chat.KindPrivate || c.Status != chat.StatusRequested {
		t.Fatalf("chat = %s/%s, want PRIVATE/REQUESTED", c.Kind, c.Status)
	}

	participants, _ := repo.ListParticipants(context.Background(), c.ID)
	if len(participants) != 2 {
		t.Fatalf("participants = %d, want 2", len(participants))
	}
	roles := map[uuid.UUID]string{}
	for _, p := range participants {
		roles[p.UserID] = p.Role
	}
	if roles[sender] != chat.RoleOwner || roles[receiver] != chat.RoleMember {
		t.Fatalf("roles = %v", roles)
	}

	if n, _ := repo.CountUnread(context.Background(), c.ID, receiver); n != 1 {
		t.Fatalf("receiver unread = %d, want 1", n)
	}
	if n, _ := repo.CountUnread(context.Background(), c.ID, sender); n != 0 {
		t.Fatalf("sender unread = %d, want 0", n)
	}
}

func TestSendRequestKindOpensActiveChat(t *testing.T) {
	repo := newFakeChatRepo()
	svc := newMessageServiceForTest(repo)
	tripID := uuid.New()

	msg, err := svc.Send(context.Background(), SendMessageInput{
		ActorID:    uuid.New(),
		ReceiverID: nullID(uuid.New()),
		Text:       "can I join your trip?",
		Kind:       chat.MessageRequest,
		TripID:     nullID(tripID),
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	c, _ := repo.GetChatByID(context.Background(), msg.ChatID)
	if c.Status != chat.StatusActive {
		t.Fatalf("chat status = %q, want ACTIVE", c.Status)
	}
	if !msg.TripID.Valid || msg.TripID.UUID != tripID {
		t.Fatalf("message trip id not carried: %+v", msg.TripID)
	}
}

func TestSendRequestKindActivatesRequestedChat(t *testing.T) {
	repo := newFakeChatRepo()
	svc := newMessageServiceForTest(repo)
	sender, receiver := uuid.New(), uuid.New()

	first, err := svc.Send(context.Background(), SendMessageInput{
		ActorID:    sender,
		ReceiverID: nullID(receiver),
		Text:       "hello",
	})
	if err != nil {
		t.Fatalf("first send: %v", err)
	}

	// The recipient replies with a join request into the same chat.
	if _, err := svc.Send(context.Background(), SendMessageInput{
		ActorID: receiver,
		ChatID:  nullID(first.ChatID),
		Text:    "join me?",
		Kind:    chat.MessageRequest,
	}); err != nil {
		t.Fatalf("request send: %v", err)
	}

	c, _ := repo.GetChatByID(context.Background(), first.ChatID)
	if c.Status != chat.StatusActive {
		t.Fatalf("chat status = %q, want ACTIVE after request", c.Status)
	}
}

func TestSendReusesPrivateChatInBothDirections(t *testing.T) {
	repo := newFakeChatRepo()
	svc := newMessageServiceForTest(repo)
	a, b := uuid.New(), uuid.New()

	first, err := svc.Send(context.Background(), SendMessageInput{ActorID: a, ReceiverID: nullID(b), Text: "one"})
	if err != nil {
		t.Fatalf("first send: %v", err)
	}
	second, err := svc.Send(context.Background(), SendMessageInput{ActorID: b, ReceiverID: nullID(a), Text: "two"})
	if err != nil {
		t.Fatalf("second send: %v", err)
	}
	if first.ChatID != second.ChatID {
		t.Fatalf("pair got two chats: %s and %s", first.ChatID, second.ChatID)
	}

	c, _ := repo.GetChatByID(context.Background(), first.ChatID)
	if c.Status != chat.StatusRequested {
		t.Fatalf("chat status = %q, want REQUESTED to survive replies", c.Status)
	}
}

// raceRepo pretends the chat does not exist on the first lookup, so the
// create path runs into the uniqueness conflict and has to retry as a lookup.
type raceRepo struct {
	*fakeChatRepo
	missed bool
}

func (r *raceRepo) FindPrivateChatBetween(ctx context.Context, userA, userB uuid.UUID) (chat.Chat, error) {
	if !r.missed {
		r.missed = true
		return chat.Chat{}, roamly_errors.ErrNotFound
	}
	return r.fakeChatRepo.FindPrivateChatBetween(ctx, userA, userB)
}

func TestSendLostCreateRaceFallsBackToLookup(t *testing.T) {
	base := newFakeChatRepo()
	a, b := uuid.New(), uuid.New()

	existing := chat.Chat{
		ID:      uuid.New(),
		Kind:    chat.KindPrivate,
		PairKey: toNullString(chat.PairKey(a, b)),
		Status:  chat.StatusRequested,
	}
	if err := base.CreateChat(context.Background(), &existing); err != nil {
		t.Fatalf("seed chat: %v", err)
	}
	for _, id := range []uuid.UUID{a, b} {
		if err := base.AddParticipant(context.Background(), &chat.Participant{ID: uuid.New(), ChatID: existing.ID, UserID: id, Role: chat.RoleMember}); err != nil {
			t.Fatalf("seed participant: %v", err)
		}
	}

	repo := &raceRepo{fakeChatRepo: base}
	svc := NewMessageService(nil, repo, NewCursorService(repo), nil, nil)

	msg, err := svc.Send(context.Background(), SendMessageInput{ActorID: a, ReceiverID: nullID(b), Text: "hi"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.ChatID != existing.ID {
		t.Fatalf("message landed in %s, want existing chat %s", msg.ChatID, existing.ID)
	}
}

func TestConcurrentFirstMessagesShareOneChat(t *testing.T) {
	repo := newFakeChatRepo()
	svc := newMessageServiceForTest(repo)
	a, b := uuid.New(), uuid.New()

	const senders = 16
	var wg sync.WaitGroup
	chatIDs := make([]uuid.UUID, senders)
	errs := make([]error, senders)
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			actor, receiver := a, b
			if i%2 == 1 {
				actor, receiver = b, a
			}
			msg, err := svc.Send(context.Background(), SendMessageInput{
				ActorID:    actor,
				ReceiverID: nullID(receiver),
				Text:       "first",
			})
			chatIDs[i], errs[i] = msg.ChatID, err
		}(i)
	}
	wg.Wait()

	for i := 0; i < senders; i++ {
		if errs[i] != nil {
			t.Fatalf("send %d: %v", i, errs[i])
		}
		if chatIDs[i] != chatIDs[0] {
			t.Fatalf("send %d landed in %s, send 0 in %s", i, chatIDs[i], chatIDs[0])
		}
	}

	repo.mu.Lock()
	chats := len(repo.chats)
	repo.mu.Unlock()
	if chats != 1 {
		t.Fatalf("pair ended up with %d chats, want 1", chats)
	}
}

func TestListMessagesRequiresMembership(t *testing.T) {
	repo := newFakeChatRepo()
	svc := newMessageServiceForTest(repo)

	c := chat.Chat{ID: uuid.New(), Kind: chat.KindPrivate, Status: chat.StatusActive}
	if err := repo.CreateChat(context.Background(), &c); err != nil {
		t.Fatalf("seed chat: %v", err)
	}

	if _, err := svc.ListMessages(context.Background(), uuid.New(), c.ID); !errors.Is(err, roamly_errors.ErrForbidden) {
		t.Fatalf("got %v, want ErrForbidden", err)
	}
}

func TestListMessagesAdvancesCursor(t *testing.T) {
	repo := newFakeChatRepo()
	svc := newMessageServiceForTest(repo)
	sender, reader := uuid.New(), uuid.New()

	msg, err := svc.Send(context.Background(), SendMessageInput{ActorID: sender, ReceiverID: nullID(reader), Text: "unread until listed"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if n, _ := repo.CountUnread(context.Background(), msg.ChatID, reader); n != 1 {
		t.Fatalf("unread before list = %d, want 1", n)
	}

	history, err := svc.ListMessages(context.Background(), reader, msg.ChatID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(history) != 1 || history[0].ID != msg.ID {
		t.Fatalf("history = %+v, want the one sent message", history)
	}

	if n, _ := repo.CountUnread(context.Background(), msg.ChatID, reader); n != 0 {
		t.Fatalf("unread after list = %d, want 0", n)
	}
}

func TestListMessagesChronological(t *testing.T) {
	repo := newFakeChatRepo()
	svc := newMessageServiceForTest(repo)
	reader := uuid.New()

	c := chat.Chat{ID: uuid.New(), Kind: chat.KindPrivate, Status: chat.StatusActive}
	if err := repo.CreateChat(context.Background(), &c); err != nil {
		t.Fatalf("seed chat: %v", err)
	}
	if err := repo.AddParticipant(context.Background(), &chat.Participant{ID: uuid.New(), ChatID: c.ID, UserID: reader, Role: chat.RoleMember}); err != nil {
		t.Fatalf("seed participant: %v", err)
	}

	base := time.Now().Add(-time.Hour)
	for i, text := range []string{"third", "first", "second"} {
		offsets := []time.Duration{2 * time.Minute, 0, time.Minute}
		m := chat.Message{ID: uuid.New(), ChatID: c.ID, Text: text, Kind: chat.MessageGeneral, CreatedAt: base.Add(offsets[i])}
		if err := repo.CreateMessage(context.Background(), &m); err != nil {
			t.Fatalf("seed message: %v", err)
		}
	}

	history, err := svc.ListMessages(context.Background(), reader, c.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"first", "second", "third"}
	for i, m := range history {
		if m.Text != want[i] {
			t.Fatalf("history[%d] = %q, want %q", i, m.Text, want[i])
		}
	}
}
