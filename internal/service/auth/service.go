// Package auth implements registration, login and the refresh-token
// lifecycle on top of the token service and user repository.
package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/flameapp/flame-backend/internal/app"
	"github.com/flameapp/flame-backend/internal/apperr"
	"github.com/flameapp/flame-backend/internal/db"
	"github.com/flameapp/flame-backend/internal/platform"
	"github.com/flameapp/flame-backend/internal/repository"
	"github.com/flameapp/flame-backend/internal/token"
)

const verificationCodeTTL = 24 * time.Hour

// RegisterInput is the minimal profile needed to create an account.
type RegisterInput struct {
	Email      string
	Password   string
	Name       string
	Age        int
	Gender     db.Gender
	LookingFor db.Gender
	Interests  []string
}

// AuthResult bundles the user with a fresh token pair.
type AuthResult struct {
	User   *db.User
	Tokens *token.Pair
}

// Service contains the authentication business logic.
type Service struct {
	appCtx *app.AppContext
	users  *repository.UserRepository
	tokens *repository.TokenRepository
	jwt    *token.Service
	mailer platform.Mailer
}

// NewService creates the auth service.
func NewService(appCtx *app.AppContext, jwtSvc *token.Service, mailer platform.Mailer) *Service {
	return &Service{
		appCtx: appCtx,
		users:  repository.NewUserRepository(appCtx.DB),
		tokens: repository.NewTokenRepository(appCtx.DB),
		jwt:    jwtSvc,
		mailer: mailer,
	}
}

// Register creates the account, hashes the password, issues tokens and sends
// the email verification code.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if err := validateRegister(in); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	code := verificationCode()
	codeExpires := time.Now().UTC().Add(verificationCodeTTL)
	user := &db.User{
		Email:                   strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash:            string(hash),
		Name:                    in.Name,
		Age:                     in.Age,
		Gender:                  in.Gender,
		LookingFor:              in.LookingFor,
		Interests:               in.Interests,
		DiscoveryEnabled:        true,
		SuperLikesRemaining:     s.appCtx.Config.Limits.DailySuperLikes,
		VerificationCode:        code,
		VerificationCodeExpires: &codeExpires,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.EmailExists("email is already registered")
		}
		return nil, err
	}

	if err := s.mailer.SendVerificationCode(ctx, user.Email, user.Name, code); err != nil {
		s.appCtx.Logger.Warn("verification mail failed", "user_id", user.ID, "err", err)
	}

	pair, err := s.issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	s.appCtx.Logger.Info("user registered", "user_id", user.ID)
	return &AuthResult{User: user, Tokens: pair}, nil
}

// Login checks the credentials and issues a fresh token pair.
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.InvalidCredentials("invalid email or password")
	}
	if err != nil {
		return nil, err
	}
	if user.PasswordHash == "" {
		return nil, apperr.InvalidCredentials("invalid email or password")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, apperr.InvalidCredentials("invalid email or password")
	}

	pair, err := s.issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Tokens: pair}, nil
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued. A revoked or unknown jti fails Unauthorized.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*token.Pair, error) {
	userID, jti, err := s.jwt.DecodeRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	stored, err := s.tokens.GetByJTI(ctx, jti)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Unauthorized("refresh token not recognized")
	}
	if err != nil {
		return nil, err
	}
	if stored.Revoked || stored.UserID != userID {
		return nil, apperr.Unauthorized("refresh token revoked")
	}

	if err := s.tokens.Revoke(ctx, jti); err != nil {
		return nil, err
	}
	return s.issue(ctx, userID)
}

// Logout revokes the presented refresh token. An already-invalid token is
// still a successful logout.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	_, jti, err := s.jwt.DecodeRefresh(refreshToken)
	if err != nil {
		return nil
	}
	return s.tokens.Revoke(ctx, jti)
}

// VerifyEmail checks the code and flips the verified flag.
func (s *Service) VerifyEmail(ctx context.Context, user *db.User, code string) error {
	if user.IsVerified {
		return nil
	}
	if user.VerificationCode == "" || user.VerificationCode != code {
		return apperr.Validation("invalid verification code")
	}
	if user.VerificationCodeExpires != nil && user.VerificationCodeExpires.Before(time.Now().UTC()) {
		return apperr.Validation("verification code has expired")
	}

	user.IsVerified = true
	user.VerificationCode = ""
	user.VerificationCodeExpires = nil
	return s.users.Save(ctx, user)
}

// ChangePassword verifies the current password, stores the new hash and
// revokes every outstanding refresh token.
func (s *Service) ChangePassword(ctx context.Context, user *db.User, current, next string) error {
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
		return apperr.InvalidCredentials("current password is incorrect")
	}
	if len(next) < 8 {
		return apperr.Validation("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hash)
	if err := s.users.Save(ctx, user); err != nil {
		return err
	}
	return s.tokens.RevokeAllForUser(ctx, user.ID)
}

// issue signs a pair and persists the refresh side for later rotation.
func (s *Service) issue(ctx context.Context, userID uint64) (*token.Pair, error) {
	pair, err := s.jwt.IssuePair(userID)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Create(ctx, &db.RefreshToken{
		UserID:    userID,
		JTI:       pair.RefreshJTI,
		ExpiresAt: pair.RefreshExpiresAt,
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

func validateRegister(in RegisterInput) error {
	if !strings.Contains(in.Email, "@") {
		return apperr.Validation("invalid email address")
	}
	if len(in.Password) < 8 {
		return apperr.Validation("password must be at least 8 characters")
	}
	if in.Name == "" {
		return apperr.Validation("name is required")
	}
	if in.Age < 18 {
		return apperr.Validation("must be at least 18")
	}
	if in.Gender == "" || in.LookingFor == "" {
		return apperr.Validation("gender and looking_for are required")
	}
	return nil
}

// verificationCode returns a 6-digit numeric code.
func verificationCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		// crypto/rand failing means the process is in serious trouble; a
		// constant beats a panic during registration.
		return "000000"
	}
	return fmt.Sprintf("%06d", n.Int64())
}
