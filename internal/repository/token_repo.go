package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/flameapp/flame-backend/internal/db"
)

// TokenRepository persists issued refresh tokens for rotation and revocation.
type TokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository creates a new repository bound to the given DB connection.
func NewTokenRepository(database *gorm.DB) *TokenRepository {
	return &TokenRepository{db: database}
}

// Create stores a freshly issued refresh token.
func (r *TokenRepository) Create(ctx context.Context, token *db.RefreshToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

// GetByJTI looks up a refresh token by its unique id.
func (r *TokenRepository) GetByJTI(ctx context.Context, jti string) (*db.RefreshToken, error) {
	var token db.RefreshToken
	if err := r.db.WithContext(ctx).Where("jti = ?", jti).First(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

// Revoke marks one refresh token as no longer usable.
func (r *TokenRepository) Revoke(ctx context.Context, jti string) error {
	return r.db.WithContext(ctx).
		Model(&db.RefreshToken{}).
		Where("jti = ?", jti).
		Update("revoked", true).Error
}

// RevokeAllForUser invalidates every refresh token the user holds, used on
// password change and account deletion.
func (r *TokenRepository) RevokeAllForUser(ctx context.Context, userID uint64) error {
	return r.db.WithContext(ctx).
		Model(&db.RefreshToken{}).
		Where("user_id = ?", userID).
		Update("revoked", true).Error
}
