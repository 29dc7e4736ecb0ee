package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/flameapp/flame-backend/internal/db"
)

// MessageRepository provides data access methods for the Message model.
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new repository bound to the given DB connection.
func NewMessageRepository(database *gorm.DB) *MessageRepository {
	return &MessageRepository{db: database}
}

// Create inserts a new message row.
func (r *MessageRepository) Create(ctx context.Context, msg *db.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// GetByID returns the message or gorm.ErrRecordNotFound.
func (r *MessageRepository) GetByID(ctx context.Context, id uint64) (*db.Message, error) {
	var msg db.Message
	if err := r.db.WithContext(ctx).First(&msg, id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// Save writes the full message row back (edits, reactions, soft delete).
func (r *MessageRepository) Save(ctx context.Context, msg *db.Message) error {
	return r.db.WithContext(ctx).Save(msg).Error
}

// ListPage returns up to limit+1 non-deleted messages, newest first.
//
// Behavior:
//   - Soft-deleted messages are excluded.
//   - before (exclusive upper bound on timestamp) implements backwards
//     history paging; zero value means "from the latest".
//   - The caller fetched limit+1 rows to compute hasMore, trims to limit and
//     reverses into chronological order.
func (r *MessageRepository) ListPage(
	ctx context.Context,
	conversationID uint64,
	limit int,
	before time.Time,
) ([]db.Message, error) {
	query := r.db.WithContext(ctx).
		Where("conversation_id = ? AND is_deleted = ?", conversationID, false).
		Order("timestamp DESC, id DESC").
		Limit(limit + 1)

	if !before.IsZero() {
		query = query.Where("timestamp < ?", before)
	}

	var messages []db.Message
	if err := query.Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkRead flips status to read for the given ids within a conversation,
// skipping any message sent by readerID (a user cannot read their own
// messages). Returns how many rows changed.
func (r *MessageRepository) MarkRead(
	ctx context.Context,
	conversationID uint64,
	readerID uint64,
	messageIDs []uint64,
) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("conversation_id = ? AND id IN ? AND sender_id <> ?", conversationID, messageIDs, readerID).
		Update("status", db.StatusRead)
	return res.RowsAffected, res.Error
}
