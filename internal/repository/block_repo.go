package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/flameapp/flame-backend/internal/apperr"
	"github.com/flameapp/flame-backend/internal/db"
)

// BlockRepository provides data access for blocks and abuse reports.
type BlockRepository struct {
	db *gorm.DB
}

// NewBlockRepository creates a new repository bound to the given DB connection.
func NewBlockRepository(database *gorm.DB) *BlockRepository {
	return &BlockRepository{db: database}
}

// Create inserts a directed block; a duplicate maps to a validation error.
func (r *BlockRepository) Create(ctx context.Context, block *db.Block) error {
	err := r.db.WithContext(ctx).Create(block).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Validation("user already blocked")
	}
	return err
}

// ExistsBetween reports whether a block exists in either direction.
func (r *BlockRepository) ExistsBetween(ctx context.Context, a, b uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Block{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Count(&count).Error
	return count > 0, err
}

// BlockedIDsFor returns every user id connected to userID by a block in
// either direction, for the discovery exclusion set.
func (r *BlockRepository) BlockedIDsFor(ctx context.Context, userID uint64) ([]uint64, error) {
	var blocks []db.Block
	err := r.db.WithContext(ctx).
		Where("blocker_id = ? OR blocked_id = ?", userID, userID).
		Find(&blocks).Error
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(blocks))
	for _, b := range blocks {
		if b.BlockerID != userID {
			ids = append(ids, b.BlockerID)
		}
		if b.BlockedID != userID {
			ids = append(ids, b.BlockedID)
		}
	}
	return ids, nil
}

// ListByBlocker returns the blocks the user created, newest first.
func (r *BlockRepository) ListByBlocker(ctx context.Context, blockerID uint64) ([]db.Block, error) {
	var blocks []db.Block
	err := r.db.WithContext(ctx).
		Where("blocker_id = ?", blockerID).
		Order("created_at DESC").
		Find(&blocks).Error
	return blocks, err
}

// Delete removes the block blocker→blocked; missing rows are a NotFound.
func (r *BlockRepository) Delete(ctx context.Context, blockerID, blockedID uint64) error {
	res := r.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&db.Block{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("user not blocked")
	}
	return nil
}

// CreateReport stores an abuse report for moderation.
func (r *BlockRepository) CreateReport(ctx context.Context, report *db.Report) error {
	return r.db.WithContext(ctx).Create(report).Error
}
