// Package swipe implements the decision engine: recording likes/passes/super
// likes, detecting mutual likes and creating the match+conversation pair.
package swipe

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/flameapp/flame-backend/internal/app"
	"github.com/flameapp/flame-backend/internal/apperr"
	"github.com/flameapp/flame-backend/internal/db"
	"github.com/flameapp/flame-backend/internal/repository"
)

// Service contains the swipe/match business logic on top of the repositories.
type Service struct {
	appCtx  *app.AppContext
	users   *repository.UserRepository
	swipes  *repository.SwipeRepository
	matches *repository.MatchRepository
}

// NewService creates the swipe engine with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:  appCtx,
		users:   repository.NewUserRepository(appCtx.DB),
		swipes:  repository.NewSwipeRepository(appCtx.DB),
		matches: repository.NewMatchRepository(appCtx.DB),
	}
}

// Like records a like from swiper toward targetID and returns the match if
// this completed a mutual like.
//
// Behavior:
//   - A second swipe on the same ordered pair fails with AlreadySwiped; the
//     unique index backs the check under concurrency.
//   - On a reverse-direction like/super_like the match and its conversation
//     are created in one step. If two mutual likes race, both callers get
//     the same single match (pair-key insert, losers fall back to the
//     winner's row).
func (s *Service) Like(ctx context.Context, swiper *db.User, targetID uint64) (bool, *db.Match, error) {
	if err := s.checkTarget(ctx, swiper, targetID); err != nil {
		return false, nil, err
	}

	if err := s.swipes.Create(ctx, &db.Swipe{
		SwiperID: swiper.ID,
		SwipedID: targetID,
		Type:     db.SwipeLike,
	}); err != nil {
		return false, nil, err
	}

	return s.checkMutual(ctx, swiper.ID, targetID)
}

// Pass records a pass; passes never match.
func (s *Service) Pass(ctx context.Context, swiper *db.User, targetID uint64) error {
	if err := s.checkTarget(ctx, swiper, targetID); err != nil {
		return err
	}
	return s.swipes.Create(ctx, &db.Swipe{
		SwiperID: swiper.ID,
		SwipedID: targetID,
		Type:     db.SwipePass,
	})
}

// SuperLike records a super like, gated by the daily quota.
//
// Behavior:
//   - The quota refills lazily: when the stored reset timestamp is missing
//     or has passed, remaining is set back to the configured allotment and
//     the reset time advances to the next UTC midnight.
//   - The decrement is a conditional UPDATE (remaining > 0), so concurrent
//     requests cannot overspend; a failed decrement is QuotaExceeded.
//   - Mutual-match detection is identical to Like.
//
// Returns (isMatch, match, remaining).
func (s *Service) SuperLike(ctx context.Context, swiper *db.User, targetID uint64) (bool, *db.Match, int, error) {
	now := time.Now().UTC()
	quota := s.appCtx.Config.Limits.DailySuperLikes

	if swiper.SuperLikesResetAt == nil || swiper.SuperLikesResetAt.Before(now) {
		reset := nextUTCMidnight(now)
		if err := s.users.RefillSuperLikes(ctx, swiper.ID, quota, reset); err != nil {
			return false, nil, 0, err
		}
		swiper.SuperLikesRemaining = quota
		swiper.SuperLikesResetAt = &reset
	}

	if swiper.SuperLikesRemaining <= 0 {
		return false, nil, 0, apperr.QuotaExceeded("no super likes remaining today")
	}

	if err := s.checkTarget(ctx, swiper, targetID); err != nil {
		return false, nil, 0, err
	}

	spent, err := s.users.SpendSuperLike(ctx, swiper.ID)
	if err != nil {
		return false, nil, 0, err
	}
	if !spent {
		return false, nil, 0, apperr.QuotaExceeded("no super likes remaining today")
	}
	swiper.SuperLikesRemaining--

	if err := s.swipes.Create(ctx, &db.Swipe{
		SwiperID: swiper.ID,
		SwipedID: targetID,
		Type:     db.SwipeSuperLike,
	}); err != nil {
		// The quota was spent but the swipe never landed; give it back.
		_ = s.users.RefundSuperLike(ctx, swiper.ID)
		return false, nil, 0, err
	}

	isMatch, match, err := s.checkMutual(ctx, swiper.ID, targetID)
	return isMatch, match, swiper.SuperLikesRemaining, err
}

// UndoLast deletes the user's most recent swipe. Premium only.
//
// Behavior:
//   - Requires active premium; an expired subscription lazily flips
//     is_premium off and still fails Forbidden.
//   - "Most recent" is created_at descending, ties broken by insertion
//     order (row id).
//   - If the undone swipe had produced an active match, the match is
//     deactivated and its conversation deleted.
func (s *Service) UndoLast(ctx context.Context, user *db.User) (*db.Swipe, error) {
	now := time.Now().UTC()
	if !user.IsPremium {
		return nil, apperr.Forbidden("undo requires a premium subscription")
	}
	if user.PremiumExpiresAt != nil && user.PremiumExpiresAt.Before(now) {
		if err := s.users.ClearPremium(ctx, user.ID); err != nil {
			return nil, err
		}
		user.IsPremium = false
		return nil, apperr.Forbidden("premium subscription has expired")
	}

	last, err := s.swipes.LastBySwiper(ctx, user.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("no swipe to undo")
	}
	if err != nil {
		return nil, err
	}

	if last.Type == db.SwipeLike || last.Type == db.SwipeSuperLike {
		match, err := s.matches.FindActiveByPair(ctx, user.ID, last.SwipedID)
		if err != nil {
			return nil, err
		}
		if match != nil {
			if err := s.matches.Deactivate(ctx, match.ID); err != nil {
				return nil, err
			}
		}
	}

	if err := s.swipes.Delete(ctx, last.ID); err != nil {
		return nil, err
	}
	s.appCtx.Logger.Debug("swipe undone", "user_id", user.ID, "swiped_id", last.SwipedID, "type", last.Type)
	return last, nil
}

// checkTarget runs the validations shared by every swipe kind.
func (s *Service) checkTarget(ctx context.Context, swiper *db.User, targetID uint64) error {
	if swiper.ID == targetID {
		return apperr.Validation("cannot swipe on yourself")
	}

	exists, err := s.swipes.Exists(ctx, swiper.ID, targetID)
	if err != nil {
		return err
	}
	if exists {
		return apperr.AlreadySwiped("already swiped on this user")
	}

	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("user not found")
		}
		return err
	}
	return nil
}

// checkMutual creates the match+conversation if the reverse like exists.
func (s *Service) checkMutual(ctx context.Context, swiperID, targetID uint64) (bool, *db.Match, error) {
	mutual, err := s.swipes.FindMutualLike(ctx, swiperID, targetID)
	if err != nil {
		return false, nil, err
	}
	if mutual == nil {
		return false, nil, nil
	}

	match, created, err := s.matches.CreateWithConversation(ctx, swiperID, targetID)
	if err != nil {
		return false, nil, err
	}
	if created {
		s.appCtx.Logger.Info("new match", "match_id", match.ID, "user1", match.User1ID, "user2", match.User2ID)
	}
	return true, match, nil
}

// nextUTCMidnight returns 00:00 UTC of the following day.
func nextUTCMidnight(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}
