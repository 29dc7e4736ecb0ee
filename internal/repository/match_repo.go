package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/flameapp/flame-backend/internal/db"
)

// MatchRepository provides data access for matches and treats a match and its
// conversation as one coupled unit: they are created in the same transaction
// and torn down together.
type MatchRepository struct {
	db *gorm.DB
}

// NewMatchRepository creates a new repository bound to the given DB connection.
func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// PairKey builds the canonical "min:max" key for an unordered user pair.
func PairKey(a, b uint64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// CreateWithConversation creates a match plus its conversation atomically.
//
// Behavior:
//   - Inserts the match with ON CONFLICT (pair_key) DO NOTHING. If another
//     request already created an active match for the pair (the concurrent
//     mutual-like race), the insert affects zero rows and the existing match
//     is returned with created=false.
//   - On a fresh insert the conversation is created in the same transaction,
//     so a conversation can never be missing for a new match.
//
// Example:
//
//	match, created, err := repo.CreateWithConversation(ctx, 1, 2)
func (r *MatchRepository) CreateWithConversation(ctx context.Context, user1ID, user2ID uint64) (*db.Match, bool, error) {
	key := PairKey(user1ID, user2ID)
	match := &db.Match{
		User1ID:   user1ID,
		User2ID:   user2ID,
		PairKey:   &key,
		MatchedAt: time.Now().UTC(),
		IsActive:  true,
	}

	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pair_key"}},
			DoNothing: true,
		}).Create(match)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race: hand back the winner's match.
			return tx.Where("pair_key = ?", key).First(match).Error
		}
		created = true
		conv := &db.Conversation{
			MatchID: match.ID,
			User1ID: user1ID,
			User2ID: user2ID,
		}
		return tx.Create(conv).Error
	})
	if err != nil {
		return nil, false, err
	}
	return match, created, nil
}

// GetByID returns the match or gorm.ErrRecordNotFound.
func (r *MatchRepository) GetByID(ctx context.Context, id uint64) (*db.Match, error) {
	var match db.Match
	if err := r.db.WithContext(ctx).First(&match, id).Error; err != nil {
		return nil, err
	}
	return &match, nil
}

// FindActiveByPair returns the active match for an unordered pair, nil if none.
func (r *MatchRepository) FindActiveByPair(ctx context.Context, a, b uint64) (*db.Match, error) {
	var match db.Match
	err := r.db.WithContext(ctx).
		Where("pair_key = ? AND is_active = ?", PairKey(a, b), true).
		First(&match).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &match, nil
}

// ListActiveForUser returns the user's active matches, newest first.
func (r *MatchRepository) ListActiveForUser(ctx context.Context, userID uint64) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("(user1_id = ? OR user2_id = ?) AND is_active = ?", userID, userID, true).
		Order("matched_at DESC").
		Find(&matches).Error
	return matches, err
}

// Deactivate flips is_active off, clears the pair key so the pair can match
// again later, and deletes the conversation, all in one transaction.
// Used by unmatch, block and swipe-undo.
func (r *MatchRepository) Deactivate(ctx context.Context, matchID uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&db.Match{}).
			Where("id = ?", matchID).
			Updates(map[string]any{
				"is_active": false,
				"pair_key":  nil,
			}).Error; err != nil {
			return err
		}
		return tx.Where("match_id = ?", matchID).Delete(&db.Conversation{}).Error
	})
}

// MarkSeen sets the per-user seen flag on a match.
func (r *MatchRepository) MarkSeen(ctx context.Context, match *db.Match, userID uint64) error {
	col := "user2_seen"
	if match.User1ID == userID {
		col = "user1_seen"
	}
	return r.db.WithContext(ctx).
		Model(&db.Match{}).
		Where("id = ?", match.ID).
		Update(col, true).Error
}
