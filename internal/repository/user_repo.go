package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/flameapp/flame-backend/internal/db"
)

// UserRepository provides data access methods for the User model.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository bound to the given DB connection.
func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// GetByID returns the user or gorm.ErrRecordNotFound.
func (r *UserRepository) GetByID(ctx context.Context, id uint64) (*db.User, error) {
	var user db.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail returns the user with the given email or gorm.ErrRecordNotFound.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*db.User, error) {
	var user db.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts a new user row. Unique email violations surface as
// gorm.ErrDuplicatedKey for the service layer to map.
func (r *UserRepository) Create(ctx context.Context, user *db.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// Save writes the full user row back.
func (r *UserRepository) Save(ctx context.Context, user *db.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// FindDiscoverable returns the raw candidate pool for discovery before
// in-memory filtering.
//
// Behavior:
//   - candidate.gender == lookingFor AND candidate.looking_for == gender
//   - candidate age within [minAge, maxAge]
//   - discovery_enabled = true
//
// Exclusions (swiped/blocked/self) and the distance cutoff are applied by the
// discovery service afterwards; sort order is store-default.
func (r *UserRepository) FindDiscoverable(
	ctx context.Context,
	gender, lookingFor db.Gender,
	minAge, maxAge int,
) ([]db.User, error) {
	var users []db.User
	err := r.db.WithContext(ctx).
		Where("gender = ? AND looking_for = ?", lookingFor, gender).
		Where("age >= ? AND age <= ?", minAge, maxAge).
		Where("discovery_enabled = ?", true).
		Find(&users).Error
	return users, err
}

// RefillSuperLikes resets the quota and advances the reset timestamp to the
// next UTC midnight. Called lazily when the stored reset time has passed.
func (r *UserRepository) RefillSuperLikes(ctx context.Context, userID uint64, quota int, resetAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"super_likes_remaining": quota,
			"super_likes_reset_at":  resetAt,
		}).Error
}

// SpendSuperLike atomically decrements the quota if any remains.
//
// Behavior:
//   - Issues UPDATE ... SET remaining = remaining - 1 WHERE id = ? AND remaining > 0.
//   - Returns false when no row matched, i.e. the quota was already exhausted.
//
// This is the decrement-if-positive primitive that keeps concurrent super
// likes from overspending the daily allotment.
func (r *UserRepository) SpendSuperLike(ctx context.Context, userID uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ? AND super_likes_remaining > 0", userID).
		Update("super_likes_remaining", gorm.Expr("super_likes_remaining - 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RefundSuperLike gives one spent super like back, used when the swipe insert
// fails after the quota was already decremented.
func (r *UserRepository) RefundSuperLike(ctx context.Context, userID uint64) error {
	return r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", userID).
		Update("super_likes_remaining", gorm.Expr("super_likes_remaining + 1")).Error
}

// SetPresence flips the online flag and stamps last_active.
func (r *UserRepository) SetPresence(ctx context.Context, userID uint64, online bool) error {
	return r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"is_online":   online,
			"last_active": time.Now().UTC(),
		}).Error
}

// ClearPremium lazily flips is_premium off once premium_expires_at passes.
func (r *UserRepository) ClearPremium(ctx context.Context, userID uint64) error {
	return r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", userID).
		Update("is_premium", false).Error
}

// DeleteWithRelated removes the user and every row that references them:
// swipes, matches, conversations, blocks and refresh tokens, in one
// transaction. Messages are kept (their conversations are gone; history is
// unreachable but auditable).
func (r *UserRepository) DeleteWithRelated(ctx context.Context, userID uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("swiper_id = ? OR swiped_id = ?", userID, userID).
			Delete(&db.Swipe{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user1_id = ? OR user2_id = ?", userID, userID).
			Delete(&db.Match{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user1_id = ? OR user2_id = ?", userID, userID).
			Delete(&db.Conversation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("blocker_id = ? OR blocked_id = ?", userID, userID).
			Delete(&db.Block{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).
			Delete(&db.RefreshToken{}).Error; err != nil {
			return err
		}
		return tx.Delete(&db.User{}, userID).Error
	})
}
