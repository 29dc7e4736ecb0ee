// Package discovery computes the candidate pool for a user's swipe deck:
// preference matching in the store, then in-memory exclusion, distance and
// interest scoring.
package discovery

import (
	"context"
	"math"

	"github.com/flameapp/flame-backend/internal/app"
	"github.com/flameapp/flame-backend/internal/db"
	"github.com/flameapp/flame-backend/internal/repository"
	"github.com/flameapp/flame-backend/internal/utils/pagination"
)

// earthRadiusMiles is the radius used by the haversine distance.
const earthRadiusMiles = 3956.0

const (
	defaultLimit = 20
	maxLimit     = 50
)

// Candidate is one discovery result: the profile plus computed fields.
type Candidate struct {
	User            *db.User
	DistanceMiles   *float64 // nil when either side has no coordinates
	CommonInterests []string
}

// Service builds the discovery deck.
type Service struct {
	appCtx *app.AppContext
	users  *repository.UserRepository
	swipes *repository.SwipeRepository
	blocks *repository.BlockRepository
}

// NewService creates the discovery filter with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx: appCtx,
		users:  repository.NewUserRepository(appCtx.DB),
		swipes: repository.NewSwipeRepository(appCtx.DB),
		blocks: repository.NewBlockRepository(appCtx.DB),
	}
}

// FindCandidates returns one page of the user's deck plus the post-filter
// total.
//
// Behavior:
//   - The store pre-filters on mutual gender preference, the caller's age
//     range and discovery_enabled.
//   - Exclusion set: already-swiped targets, blocks in either direction,
//     and the caller.
//   - Distance: haversine between the two coordinate pairs when both are
//     present; candidates beyond preferences.max_distance are dropped.
//     Candidates missing coordinates are never excluded by distance.
//   - Pagination is applied after filtering, so total counts the filtered
//     list, not the raw pool. Order is whatever the store returned.
func (s *Service) FindCandidates(ctx context.Context, user *db.User, limit, offset int) ([]Candidate, int, error) {
	page := pagination.Clamp(limit, offset, defaultLimit, maxLimit)

	pool, err := s.users.FindDiscoverable(ctx, user.Gender, user.LookingFor,
		user.Preferences.MinAge, user.Preferences.MaxAge)
	if err != nil {
		return nil, 0, err
	}

	excluded, err := s.exclusionSet(ctx, user.ID)
	if err != nil {
		return nil, 0, err
	}

	maxDistance := float64(user.Preferences.MaxDistance)
	candidates := make([]Candidate, 0, len(pool))
	for i := range pool {
		cand := &pool[i]
		if _, skip := excluded[cand.ID]; skip {
			continue
		}

		dist := distanceBetween(user, cand)
		if dist != nil && *dist > maxDistance {
			continue
		}

		candidates = append(candidates, Candidate{
			User:            cand,
			DistanceMiles:   dist,
			CommonInterests: commonInterests(user.Interests, cand.Interests),
		})
	}

	pageItems, total := pagination.Slice(candidates, page)
	return pageItems, total, nil
}

// exclusionSet collects the ids discovery must never surface for userID.
func (s *Service) exclusionSet(ctx context.Context, userID uint64) (map[uint64]struct{}, error) {
	swiped, err := s.swipes.SwipedIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	blocked, err := s.blocks.BlockedIDsFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	excluded := make(map[uint64]struct{}, len(swiped)+len(blocked)+1)
	excluded[userID] = struct{}{}
	for _, id := range swiped {
		excluded[id] = struct{}{}
	}
	for _, id := range blocked {
		excluded[id] = struct{}{}
	}
	return excluded, nil
}

// distanceBetween returns the great-circle distance in miles, or nil when
// either user has no coordinates.
func distanceBetween(a, b *db.User) *float64 {
	if a.Location == nil || a.Location.Coordinates == nil ||
		b.Location == nil || b.Location.Coordinates == nil {
		return nil
	}
	d := haversineMiles(*a.Location.Coordinates, *b.Location.Coordinates)
	return &d
}

// haversineMiles computes the great-circle distance between two coordinate
// pairs on a sphere of radius earthRadiusMiles.
func haversineMiles(a, b db.Coordinates) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMiles * math.Asin(math.Sqrt(h))
}

// commonInterests returns the intersection, preserving the caller's order.
func commonInterests(mine, theirs []string) []string {
	if len(mine) == 0 || len(theirs) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(theirs))
	for _, it := range theirs {
		set[it] = struct{}{}
	}
	var common []string
	for _, it := range mine {
		if _, ok := set[it]; ok {
			common = append(common, it)
		}
	}
	return common
}
