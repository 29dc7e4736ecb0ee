package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/flameapp/flame-backend/internal/db"
)

// ConversationRepository provides data access for conversation aggregates
// (unread counters, last-message cache, pins, mutes).
type ConversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new repository bound to the given DB connection.
func NewConversationRepository(database *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: database}
}

// GetByID returns the conversation or gorm.ErrRecordNotFound.
func (r *ConversationRepository) GetByID(ctx context.Context, id uint64) (*db.Conversation, error) {
	var conv db.Conversation
	if err := r.db.WithContext(ctx).First(&conv, id).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// GetByMatchID returns the conversation owned by a match.
func (r *ConversationRepository) GetByMatchID(ctx context.Context, matchID uint64) (*db.Conversation, error) {
	var conv db.Conversation
	err := r.db.WithContext(ctx).Where("match_id = ?", matchID).First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListForUser returns the user's conversations, most recently active first.
func (r *ConversationRepository) ListForUser(ctx context.Context, userID uint64) ([]db.Conversation, error) {
	var convs []db.Conversation
	err := r.db.WithContext(ctx).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("updated_at DESC").
		Find(&convs).Error
	return convs, err
}

// ListIDsForUser returns just the conversation ids, used to build a connected
// user's broadcast subscription set.
func (r *ConversationRepository) ListIDsForUser(ctx context.Context, userID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&db.Conversation{}).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Pluck("id", &ids).Error
	return ids, err
}

// ApplyMessagePreview updates the aggregate fields after a message send.
//
// Behavior:
//   - Overwrites the last-message cache (id, preview string, sender, time).
//   - Atomically increments the recipient's unread counter in SQL rather than
//     read-modify-write, so concurrent sends cannot drop increments.
//   - Bumps updated_at so list ordering follows activity.
func (r *ConversationRepository) ApplyMessagePreview(
	ctx context.Context,
	conv *db.Conversation,
	msg *db.Message,
	preview string,
) error {
	unreadCol := "user2_unread_count"
	if conv.User2ID == msg.SenderID {
		unreadCol = "user1_unread_count"
	}
	return r.db.WithContext(ctx).
		Model(&db.Conversation{}).
		Where("id = ?", conv.ID).
		Updates(map[string]any{
			"last_message_id":        msg.ID,
			"last_message_content":   preview,
			"last_message_sender_id": msg.SenderID,
			"last_message_at":        msg.Timestamp,
			"updated_at":             time.Now().UTC(),
			unreadCol:                gorm.Expr(unreadCol + " + 1"),
		}).Error
}

// ResetUnread zeroes the caller's unread counter.
func (r *ConversationRepository) ResetUnread(ctx context.Context, conv *db.Conversation, userID uint64) error {
	col := "user2_unread_count"
	if conv.User1ID == userID {
		col = "user1_unread_count"
	}
	return r.db.WithContext(ctx).
		Model(&db.Conversation{}).
		Where("id = ?", conv.ID).
		Update(col, 0).Error
}

// SetPins writes the pinned-message list back.
func (r *ConversationRepository) SetPins(ctx context.Context, convID uint64, pins []db.PinnedMessage) error {
	return r.db.WithContext(ctx).
		Model(&db.Conversation{}).
		Where("id = ?", convID).
		Update("pinned_messages", pins).Error
}

// SetMute writes one participant's mute expiry (nil clears the mute).
func (r *ConversationRepository) SetMute(ctx context.Context, conv *db.Conversation, userID uint64, until *time.Time) error {
	col := "user2_muted_until"
	if conv.User1ID == userID {
		col = "user1_muted_until"
	}
	return r.db.WithContext(ctx).
		Model(&db.Conversation{}).
		Where("id = ?", conv.ID).
		Update(col, until).Error
}

// SumUnreadForUser totals unread counters across all of the user's
// conversations, backing the cached badge count.
func (r *ConversationRepository) SumUnreadForUser(ctx context.Context, userID uint64) (int64, error) {
	var user1Sum, user2Sum int64
	err := r.db.WithContext(ctx).
		Model(&db.Conversation{}).
		Where("user1_id = ?", userID).
		Select("COALESCE(SUM(user1_unread_count), 0)").
		Scan(&user1Sum).Error
	if err != nil {
		return 0, err
	}
	err = r.db.WithContext(ctx).
		Model(&db.Conversation{}).
		Where("user2_id = ?", userID).
		Select("COALESCE(SUM(user2_unread_count), 0)").
		Scan(&user2Sum).Error
	if err != nil {
		return 0, err
	}
	return user1Sum + user2Sum, nil
}
