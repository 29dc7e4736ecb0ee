// Package user implements profile management and the community surface:
// photos, preferences, location, blocks, reports, the match list and account
// deletion.
package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/flameapp/flame-backend/internal/app"
	"github.com/flameapp/flame-backend/internal/apperr"
	"github.com/flameapp/flame-backend/internal/db"
	"github.com/flameapp/flame-backend/internal/platform"
	"github.com/flameapp/flame-backend/internal/repository"
)

const (
	minInterests = 1
	maxInterests = 10
)

// ProfileUpdate carries the mutable profile fields; nil means unchanged.
type ProfileUpdate struct {
	Name             *string
	Bio              *string
	Age              *int
	Gender           *db.Gender
	LookingFor       *db.Gender
	Interests        []string
	DiscoveryEnabled *bool
}

// MatchView pairs a match with the other participant's profile and whether
// the caller has seen it yet.
type MatchView struct {
	Match     *db.Match
	OtherUser *db.User
	IsNew     bool
}

// Service contains the profile and community business logic.
type Service struct {
	appCtx   *app.AppContext
	users    *repository.UserRepository
	matches  *repository.MatchRepository
	blocks   *repository.BlockRepository
	storage  platform.ObjectStorage
	geocoder platform.Geocoder
}

// NewService creates the user service. Storage and geocoder are the narrow
// collaborators from the platform package.
func NewService(appCtx *app.AppContext, storage platform.ObjectStorage, geocoder platform.Geocoder) *Service {
	return &Service{
		appCtx:   appCtx,
		users:    repository.NewUserRepository(appCtx.DB),
		matches:  repository.NewMatchRepository(appCtx.DB),
		blocks:   repository.NewBlockRepository(appCtx.DB),
		storage:  storage,
		geocoder: geocoder,
	}
}

// GetUser returns a profile, hiding users connected to the viewer by a block
// in either direction behind a plain NotFound.
func (s *Service) GetUser(ctx context.Context, viewerID, targetID uint64) (*db.User, error) {
	target, err := s.users.GetByID(ctx, targetID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, err
	}

	if viewerID != targetID {
		blocked, err := s.blocks.ExistsBetween(ctx, viewerID, targetID)
		if err != nil {
			return nil, err
		}
		if blocked {
			return nil, apperr.NotFound("user not found")
		}
	}
	return target, nil
}

// UpdateProfile applies the non-nil fields and persists the row.
func (s *Service) UpdateProfile(ctx context.Context, user *db.User, in ProfileUpdate) (*db.User, error) {
	if in.Name != nil {
		if *in.Name == "" {
			return nil, apperr.Validation("name cannot be empty")
		}
		user.Name = *in.Name
	}
	if in.Bio != nil {
		user.Bio = *in.Bio
	}
	if in.Age != nil {
		if *in.Age < 18 {
			return nil, apperr.Validation("must be at least 18")
		}
		user.Age = *in.Age
	}
	if in.Gender != nil {
		user.Gender = *in.Gender
	}
	if in.LookingFor != nil {
		user.LookingFor = *in.LookingFor
	}
	if in.Interests != nil {
		if len(in.Interests) < minInterests || len(in.Interests) > maxInterests {
			return nil, apperr.Validation(fmt.Sprintf("interests must have between %d and %d entries", minInterests, maxInterests))
		}
		user.Interests = in.Interests
	}
	if in.DiscoveryEnabled != nil {
		user.DiscoveryEnabled = *in.DiscoveryEnabled
	}

	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdatePreferences replaces the discovery preference block.
func (s *Service) UpdatePreferences(ctx context.Context, user *db.User, prefs db.Preferences) (*db.User, error) {
	if prefs.MinAge < 18 || prefs.MaxAge < prefs.MinAge {
		return nil, apperr.Validation("invalid age range")
	}
	if prefs.MaxDistance <= 0 {
		return nil, apperr.Validation("max distance must be positive")
	}
	user.Preferences = prefs
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateLocation stores the coordinates and fills the display fields via the
// geocoder. A geocoder failure is not fatal; coordinates still land.
func (s *Service) UpdateLocation(ctx context.Context, user *db.User, lat, lon float64) (*db.User, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, apperr.Validation("invalid coordinates")
	}

	loc := &db.Location{Coordinates: &db.Coordinates{Latitude: lat, Longitude: lon}}
	place, err := s.geocoder.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		s.appCtx.Logger.Warn("reverse geocode failed", "user_id", user.ID, "err", err)
	} else {
		loc.City = place.City
		loc.State = place.State
		loc.Country = place.Country
	}

	user.Location = loc
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// AddPhoto uploads the blob and appends it to the photo list.
//
// Behavior:
//   - At most the configured maximum (default 6).
//   - The first photo automatically becomes primary.
func (s *Service) AddPhoto(ctx context.Context, user *db.User, data []byte, filename, contentType string) (*db.User, error) {
	if len(user.Photos) >= s.appCtx.Config.Limits.MaxPhotos {
		return nil, apperr.Validation(fmt.Sprintf("photo limit of %d reached", s.appCtx.Config.Limits.MaxPhotos))
	}

	url, err := s.storage.Upload(ctx, data, "photos", filename, contentType)
	if err != nil {
		return nil, err
	}

	user.Photos = append(user.Photos, db.Photo{
		ID:        uuid.NewString(),
		URL:       url,
		IsPrimary: len(user.Photos) == 0,
		Order:     len(user.Photos),
	})
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeletePhoto removes one photo, keeping the invariants: at least one photo
// remains, exactly one stays primary, orders are renumbered contiguously.
func (s *Service) DeletePhoto(ctx context.Context, user *db.User, photoID string) (*db.User, error) {
	if len(user.Photos) <= 1 {
		return nil, apperr.Validation("cannot delete the last photo")
	}

	kept := make([]db.Photo, 0, len(user.Photos)-1)
	removedPrimary := false
	found := false
	for _, p := range user.Photos {
		if p.ID == photoID {
			found = true
			removedPrimary = p.IsPrimary
			continue
		}
		kept = append(kept, p)
	}
	if !found {
		return nil, apperr.NotFound("photo not found")
	}

	for i := range kept {
		kept[i].Order = i
		if removedPrimary {
			kept[i].IsPrimary = i == 0
		}
	}
	user.Photos = kept
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetPrimaryPhoto marks one photo primary and clears the flag on the rest.
func (s *Service) SetPrimaryPhoto(ctx context.Context, user *db.User, photoID string) (*db.User, error) {
	found := false
	for i := range user.Photos {
		isTarget := user.Photos[i].ID == photoID
		user.Photos[i].IsPrimary = isTarget
		found = found || isTarget
	}
	if !found {
		return nil, apperr.NotFound("photo not found")
	}
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ReorderPhotos rewrites the display order. orderedIDs must be a permutation
// of the current photo ids.
func (s *Service) ReorderPhotos(ctx context.Context, user *db.User, orderedIDs []string) (*db.User, error) {
	if len(orderedIDs) != len(user.Photos) {
		return nil, apperr.Validation("order must list every photo exactly once")
	}
	byID := make(map[string]db.Photo, len(user.Photos))
	for _, p := range user.Photos {
		byID[p.ID] = p
	}

	reordered := make([]db.Photo, 0, len(orderedIDs))
	for i, id := range orderedIDs {
		p, ok := byID[id]
		if !ok {
			return nil, apperr.Validation("unknown photo id in order")
		}
		delete(byID, id)
		p.Order = i
		reordered = append(reordered, p)
	}

	user.Photos = reordered
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// BlockUser creates a directed block and deactivates any active match between
// the pair, which also removes its conversation.
func (s *Service) BlockUser(ctx context.Context, user *db.User, targetID uint64) error {
	if user.ID == targetID {
		return apperr.Validation("cannot block yourself")
	}
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("user not found")
		}
		return err
	}

	if err := s.blocks.Create(ctx, &db.Block{BlockerID: user.ID, BlockedID: targetID}); err != nil {
		return err
	}

	match, err := s.matches.FindActiveByPair(ctx, user.ID, targetID)
	if err != nil {
		return err
	}
	if match != nil {
		if err := s.matches.Deactivate(ctx, match.ID); err != nil {
			return err
		}
	}
	s.appCtx.Logger.Info("user blocked", "blocker_id", user.ID, "blocked_id", targetID)
	return nil
}

// UnblockUser removes the caller's block on targetID. The match stays gone;
// the pair has to like each other again.
func (s *Service) UnblockUser(ctx context.Context, user *db.User, targetID uint64) error {
	return s.blocks.Delete(ctx, user.ID, targetID)
}

// ListBlocked returns the profiles the caller has blocked, newest first.
func (s *Service) ListBlocked(ctx context.Context, userID uint64) ([]db.User, error) {
	blocks, err := s.blocks.ListByBlocker(ctx, userID)
	if err != nil {
		return nil, err
	}
	users := make([]db.User, 0, len(blocks))
	for _, b := range blocks {
		u, err := s.users.GetByID(ctx, b.BlockedID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, nil
}

// ReportUser files an abuse report for moderation.
func (s *Service) ReportUser(ctx context.Context, user *db.User, targetID uint64, reason, details string) error {
	if user.ID == targetID {
		return apperr.Validation("cannot report yourself")
	}
	if reason == "" {
		return apperr.Validation("reason is required")
	}
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("user not found")
		}
		return err
	}
	return s.blocks.CreateReport(ctx, &db.Report{
		ReporterID: user.ID,
		ReportedID: targetID,
		Reason:     reason,
		Details:    details,
	})
}

// ListMatches returns the caller's active matches with the other profile
// attached. newOnly keeps only matches the caller has not seen yet.
func (s *Service) ListMatches(ctx context.Context, userID uint64, newOnly bool) ([]MatchView, error) {
	matches, err := s.matches.ListActiveForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]MatchView, 0, len(matches))
	for i := range matches {
		match := &matches[i]
		if newOnly && !match.IsNewFor(userID) {
			continue
		}
		other, err := s.users.GetByID(ctx, match.OtherUserID(userID))
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		views = append(views, MatchView{
			Match:     match,
			OtherUser: other,
			IsNew:     match.IsNewFor(userID),
		})
	}
	return views, nil
}

// MarkMatchSeen clears the "new" badge on a match for the caller.
func (s *Service) MarkMatchSeen(ctx context.Context, userID, matchID uint64) error {
	match, err := s.getMatch(ctx, userID, matchID)
	if err != nil {
		return err
	}
	return s.matches.MarkSeen(ctx, match, userID)
}

// Unmatch deactivates the match and deletes its conversation. Both swipes
// stay on record, so the pair cannot re-match without an undo.
func (s *Service) Unmatch(ctx context.Context, userID, matchID uint64) error {
	match, err := s.getMatch(ctx, userID, matchID)
	if err != nil {
		return err
	}
	if !match.IsActive {
		return apperr.NotFound("match not found")
	}
	if err := s.matches.Deactivate(ctx, match.ID); err != nil {
		return err
	}
	s.appCtx.Logger.Info("unmatched", "match_id", match.ID, "user_id", userID)
	return nil
}

// DeleteAccount removes the user and everything referencing them.
func (s *Service) DeleteAccount(ctx context.Context, userID uint64) error {
	if err := s.users.DeleteWithRelated(ctx, userID); err != nil {
		return err
	}
	s.appCtx.Logger.Info("account deleted", "user_id", userID)
	return nil
}

func (s *Service) getMatch(ctx context.Context, userID, matchID uint64) (*db.Match, error) {
	match, err := s.matches.GetByID(ctx, matchID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("match not found")
	}
	if err != nil {
		return nil, err
	}
	if match.User1ID != userID && match.User2ID != userID {
		return nil, apperr.Forbidden("not a participant of this match")
	}
	return match, nil
}
