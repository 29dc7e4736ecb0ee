// Package token issues and validates the JWT pairs used by the REST and
// WebSocket auth boundaries.
package token

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/flameapp/flame-backend/internal/apperr"
	"github.com/flameapp/flame-backend/internal/config"
)

// Token type discriminators carried in the "type" claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Claims is the decoded payload of a Flame JWT.
type Claims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// Service signs and verifies access/refresh token pairs.
type Service struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewService builds a token service from config.
func NewService(cfg *config.Config) *Service {
	return &Service{
		secret:     []byte(cfg.JWT.Secret),
		accessTTL:  cfg.JWT.AccessTTL,
		refreshTTL: cfg.JWT.RefreshTTL,
	}
}

// Pair is one issued access+refresh token set.
type Pair struct {
	AccessToken      string
	RefreshToken     string
	RefreshJTI       string
	RefreshExpiresAt time.Time
	ExpiresIn        int64 // access token lifetime in seconds
}

// IssuePair creates a fresh access+refresh pair for the user.
func (s *Service) IssuePair(userID uint64) (*Pair, error) {
	now := time.Now().UTC()
	sub := strconv.FormatUint(userID, 10)

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Type: TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	})
	accessStr, err := access.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	jti := uuid.NewString()
	refreshExp := now.Add(s.refreshTTL)
	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Type: TypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(refreshExp),
		},
	})
	refreshStr, err := refresh.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &Pair{
		AccessToken:      accessStr,
		RefreshToken:     refreshStr,
		RefreshJTI:       jti,
		RefreshExpiresAt: refreshExp,
		ExpiresIn:        int64(s.accessTTL.Seconds()),
	}, nil
}

// Decode validates the signature and expiry and returns the claims.
// Expired tokens map to apperr.TokenExpired, anything else to Unauthorized.
func (s *Service) Decode(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
			return nil, apperr.TokenExpired("token has expired")
		}
		return nil, apperr.Unauthorized("invalid token")
	}
	return claims, nil
}

// DecodeAccess validates an access-type token and returns the user ID.
func (s *Service) DecodeAccess(tokenStr string) (uint64, error) {
	claims, err := s.Decode(tokenStr)
	if err != nil {
		return 0, err
	}
	if claims.Type != TypeAccess {
		return 0, apperr.Unauthorized("access token required")
	}
	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return 0, apperr.Unauthorized("invalid token subject")
	}
	return userID, nil
}

// DecodeRefresh validates a refresh-type token and returns user ID + jti.
func (s *Service) DecodeRefresh(tokenStr string) (uint64, string, error) {
	claims, err := s.Decode(tokenStr)
	if err != nil {
		return 0, "", err
	}
	if claims.Type != TypeRefresh {
		return 0, "", apperr.Unauthorized("refresh token required")
	}
	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return 0, "", apperr.Unauthorized("invalid token subject")
	}
	return userID, claims.ID, nil
}
