package repository

import (
	"context"
	"errors"
	"time"

	"roamly-chat/internal/domain/chat"
	roamly_errors "roamly-chat/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &PostgresChatRepository{db: db}
}

func (r *PostgresChatRepository) CreateChat(ctx context.Context, c *chat.Chat) error {
	res := r.db.WithContext(ctx).Create(c)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return roamly_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresChatRepository) GetChatByID(ctx context.Context, id uuid.UUID) (chat.Chat, error) {
	var c chat.Chat
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chat.Chat{}, roamly_errors.ErrNotFound
		}
		return chat.Chat{}, err
	}
	return c, nil
}

// UpdateChatStatus is a single-row idempotent write; repeating it with the
// same status is a no-op.
func (r *PostgresChatRepository) UpdateChatStatus(ctx context.Context, id uuid.UUID, status string) error {
	res := r.db.WithContext(ctx).
		Model(&chat.Chat{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return roamly_errors.ErrNotFound
	}
	return nil
}

// FindPrivateChatBetween is a point lookup on the canonical pair key, safe to
// run inside the find-or-create transaction.
func (r *PostgresChatRepository) FindPrivateChatBetween(ctx context.Context, userA, userB uuid.UUID) (chat.Chat, error) {
	var c chat.Chat
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Where("kind = ? AND pair_key = ?", chat.KindPrivate, chat.PairKey(userA, userB)).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chat.Chat{}, roamly_errors.ErrNotFound
		}
		return chat.Chat{}, err
	}
	return c, nil
}

func (r *PostgresChatRepository) FindPublicChatForTrip(ctx context.Context, tripID uuid.UUID) (chat.Chat, error) {
	var c chat.Chat
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Where("kind = ? AND trip_id = ?", chat.KindPublic, tripID).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chat.Chat{}, roamly_errors.ErrNotFound
		}
		return chat.Chat{}, err
	}
	return c, nil
}

func (r *PostgresChatRepository) AddParticipant(ctx context.Context, p *chat.Participant) error {
	res := r.db.WithContext(ctx).Create(p)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return roamly_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresChatRepository) GetParticipant(ctx context.Context, chatID, userID uuid.UUID) (chat.Participant, error) {
	var p chat.Participant
	err := r.db.WithContext(ctx).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chat.Participant{}, roamly_errors.ErrNotFound
		}
		return chat.Participant{}, err
	}
	return p, nil
}

func (r *PostgresChatRepository) ListParticipants(ctx context.Context, chatID uuid.UUID) ([]chat.Participant, error) {
	var participants []chat.Participant
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Find(&participants).Error
	if err != nil {
		return nil, err
	}
	return participants, nil
}

func (r *PostgresChatRepository) IsParticipant(ctx context.Context, chatID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&chat.Participant{}).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PostgresChatRepository) CreateMessage(ctx context.Context, m *chat.Message) error {
	res := r.db.WithContext(ctx).Create(m)
	if res.Error != nil {
		return res.Error
	}
	return nil
}

func (r *PostgresChatRepository) ListMessages(ctx context.Context, chatID uuid.UUID) ([]chat.Message, error) {
	var messages []chat.Message
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *PostgresChatRepository) LatestMessage(ctx context.Context, chatID uuid.UUID) (chat.Message, error) {
	var m chat.Message
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at DESC, id DESC").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chat.Message{}, roamly_errors.ErrNotFound
		}
		return chat.Message{}, err
	}
	return m, nil
}

// CountUnread counts messages behind the participant's cursor whose sender is
// absent or another user.
func (r *PostgresChatRepository) CountUnread(ctx context.Context, chatID, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT count(*)
		FROM chat_messages m
		JOIN chat_participants p ON p.chat_id = m.chat_id AND p.user_id = ?
		WHERE m.chat_id = ?
		  AND (m.sender_id IS NULL OR m.sender_id <> p.user_id)
		  AND (p.last_read_at IS NULL OR m.created_at > p.last_read_at)`,
		userID, chatID).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PostgresChatRepository) CountUnreadTotal(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT count(*)
		FROM chat_messages m
		JOIN chat_participants p ON p.chat_id = m.chat_id AND p.user_id = ?
		WHERE (m.sender_id IS NULL OR m.sender_id <> p.user_id)
		  AND (p.last_read_at IS NULL OR m.created_at > p.last_read_at)`,
		userID).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// MarkRead moves the cursor forward only; concurrent calls are safe to apply
// in any order. Zero rows affected means the cursor was already current, not
// an error.
func (r *PostgresChatRepository) MarkRead(ctx context.Context, chatID, userID uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&chat.Participant{}).
		Where("chat_id = ? AND user_id = ? AND (last_read_at IS NULL OR last_read_at < ?)", chatID, userID, at).
		Update("last_read_at", at)
	return res.Error
}

// ListInboxRows fetches the caller's inbox in one round trip: chat, latest
// message, other participant for private chats, and unread count. Rows can
// repeat a chat id when a private chat somehow carries extra participant
// rows; the aggregator deduplicates.
func (r *PostgresChatRepository) ListInboxRows(ctx context.Context, userID uuid.UUID) ([]chat.InboxRow, error) {
	var rows []chat.InboxRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			c.id            AS chat_id,
			c.kind          AS kind,
			c.status        AS status,
			c.trip_id       AS trip_id,
			op.user_id      AS other_user_id,
			(
				SELECT count(*)
				FROM chat_messages m
				WHERE m.chat_id = c.id
				  AND (m.sender_id IS NULL OR m.sender_id <> me.user_id)
				  AND (me.last_read_at IS NULL OR m.created_at > me.last_read_at)
			)               AS unread_count,
			lm.id           AS message_id,
			lm.sender_id    AS message_sender_id,
			lm.text         AS message_text,
			lm.kind         AS message_kind,
			lm.trip_id      AS message_trip_id,
			lm.created_at   AS message_created_at
		FROM chats c
		JOIN chat_participants me
			ON me.chat_id = c.id AND me.user_id = ?
		LEFT JOIN chat_participants op
			ON op.chat_id = c.id AND op.user_id <> me.user_id AND c.kind = 'PRIVATE'
		LEFT JOIN LATERAL (
			SELECT m.id, m.sender_id, m.text, m.kind, m.trip_id, m.created_at
			FROM chat_messages m
			WHERE m.chat_id = c.id
			ORDER BY m.created_at DESC, m.id DESC
			LIMIT 1
		) lm ON true`,
		userID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
