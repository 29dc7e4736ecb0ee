package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/flameapp/flame-backend/internal/apperr"
	"github.com/flameapp/flame-backend/internal/db"
)

// SwipeRepository provides data access methods for the Swipe model.
type SwipeRepository struct {
	db *gorm.DB
}

// NewSwipeRepository creates a new repository bound to the given DB connection.
func NewSwipeRepository(database *gorm.DB) *SwipeRepository {
	return &SwipeRepository{db: database}
}

// Create inserts one directional swipe.
//
// Behavior:
//   - The unique (swiper_id, swiped_id) index rejects a second swipe on the
//     same ordered pair; that conflict is mapped to apperr.AlreadySwiped so
//     the duplicate check holds even under concurrent requests.
//
// Example:
//
//	repo.Create(ctx, &db.Swipe{SwiperID: 1, SwipedID: 2, Type: db.SwipeLike})
func (r *SwipeRepository) Create(ctx context.Context, swipe *db.Swipe) error {
	err := r.db.WithContext(ctx).Create(swipe).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.AlreadySwiped("already swiped on this user")
	}
	return err
}

// Exists reports whether swiper already acted on swiped.
func (r *SwipeRepository) Exists(ctx context.Context, swiperID, swipedID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Swipe{}).
		Where("swiper_id = ? AND swiped_id = ?", swiperID, swipedID).
		Count(&count).Error
	return count > 0, err
}

// FindMutualLike returns the reverse-direction like/super_like if one exists,
// nil otherwise. This is the lookup that decides whether a new like creates a
// match.
func (r *SwipeRepository) FindMutualLike(ctx context.Context, swiperID, swipedID uint64) (*db.Swipe, error) {
	var swipe db.Swipe
	err := r.db.WithContext(ctx).
		Where("swiper_id = ? AND swiped_id = ?", swipedID, swiperID).
		Where("type IN ?", []db.SwipeType{db.SwipeLike, db.SwipeSuperLike}).
		First(&swipe).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &swipe, nil
}

// LastBySwiper returns the most recent swipe by created_at, ties broken by
// the store-assigned id (insertion order).
func (r *SwipeRepository) LastBySwiper(ctx context.Context, swiperID uint64) (*db.Swipe, error) {
	var swipe db.Swipe
	err := r.db.WithContext(ctx).
		Where("swiper_id = ?", swiperID).
		Order("created_at DESC, id DESC").
		First(&swipe).Error
	if err != nil {
		return nil, err
	}
	return &swipe, nil
}

// SwipedIDs returns every target the user has already swiped on, for the
// discovery exclusion set.
func (r *SwipeRepository) SwipedIDs(ctx context.Context, swiperID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&db.Swipe{}).
		Where("swiper_id = ?", swiperID).
		Pluck("swiped_id", &ids).Error
	return ids, err
}

// Delete removes a swipe row (undo).
func (r *SwipeRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&db.Swipe{}, id).Error
}
