package discovery_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/flameapp/flame-backend/internal/app"
	"github.com/flameapp/flame-backend/internal/cache"
	"github.com/flameapp/flame-backend/internal/config"
	"github.com/flameapp/flame-backend/internal/db"
	"github.com/flameapp/flame-backend/internal/service/discovery"
)

func setupService(t *testing.T) (*discovery.Service, *app.AppContext) {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbase, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)
	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, dbase.AutoMigrate(db.AllModels()...))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	appCtx := app.New(dbase, cache.NewRedisCache(cfg), logger, cfg)
	return discovery.NewService(appCtx), appCtx
}

// at returns a location the given number of degrees of latitude north of
// downtown San Francisco; one degree of latitude is roughly 69 miles.
func at(latOffset float64) *db.Location {
	return &db.Location{
		Coordinates: &db.Coordinates{Latitude: 37.7749 + latOffset, Longitude: -122.4194},
	}
}

func seeker(t *testing.T, appCtx *app.AppContext) *db.User {
	t.Helper()
	user := &db.User{
		Email:            "me@test.com",
		Name:             "Me",
		Age:              30,
		Gender:           db.GenderMale,
		LookingFor:       db.GenderFemale,
		Interests:        []string{"hiking", "cooking", "travel"},
		Location:         at(0),
		DiscoveryEnabled: true,
		Preferences:      db.Preferences{MinAge: 21, MaxAge: 40, MaxDistance: 50},
	}
	require.NoError(t, appCtx.DB.Create(user).Error)
	return user
}

func candidate(t *testing.T, appCtx *app.AppContext, email string, mutate func(*db.User)) *db.User {
	t.Helper()
	user := &db.User{
		Email:            email,
		Name:             email,
		Age:              28,
		Gender:           db.GenderFemale,
		LookingFor:       db.GenderMale,
		Interests:        []string{"cooking", "gaming"},
		Location:         at(0.1),
		DiscoveryEnabled: true,
		Preferences:      db.Preferences{MinAge: 18, MaxAge: 50, MaxDistance: 100},
	}
	if mutate != nil {
		mutate(user)
	}
	require.NoError(t, appCtx.DB.Create(user).Error)
	return user
}

func TestFindCandidatesBasicPoolAndInterests(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)
	me := seeker(t, appCtx)
	candidate(t, appCtx, "near@test.com", nil)

	page, total, err := svc.FindCandidates(ctx, me, 20, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, page, 1)

	assert.Equal(t, []string{"cooking"}, page[0].CommonInterests)
	require.NotNil(t, page[0].DistanceMiles)
	assert.InDelta(t, 6.9, *page[0].DistanceMiles, 1.0)
}

func TestFindCandidatesDistanceCutoff(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)
	me := seeker(t, appCtx)
	near := candidate(t, appCtx, "near@test.com", nil)
	// ~104 miles north, past the 50 mile preference.
	candidate(t, appCtx, "far@test.com", func(u *db.User) { u.Location = at(1.5) })

	page, total, err := svc.FindCandidates(ctx, me, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, page, 1)
	assert.Equal(t, near.ID, page[0].User.ID)
}

// A candidate without coordinates is never excluded by distance.
func TestFindCandidatesMissingCoordinates(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)
	me := seeker(t, appCtx)
	nowhere := candidate(t, appCtx, "nowhere@test.com", func(u *db.User) { u.Location = nil })

	page, total, err := svc.FindCandidates(ctx, me, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, page, 1)
	assert.Equal(t, nowhere.ID, page[0].User.ID)
	assert.Nil(t, page[0].DistanceMiles)
}

func TestFindCandidatesExclusions(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)
	me := seeker(t, appCtx)

	swipedOn := candidate(t, appCtx, "swiped@test.com", nil)
	blocker := candidate(t, appCtx, "blocker@test.com", nil)
	blocked := candidate(t, appCtx, "blocked@test.com", nil)
	kept := candidate(t, appCtx, "kept@test.com", nil)
	// Wrong preference directions never enter the pool.
	candidate(t, appCtx, "wronggender@test.com", func(u *db.User) { u.Gender = db.GenderMale })
	candidate(t, appCtx, "notlooking@test.com", func(u *db.User) { u.LookingFor = db.GenderFemale })
	candidate(t, appCtx, "tooyoung@test.com", func(u *db.User) { u.Age = 18 })
	candidate(t, appCtx, "hidden@test.com", func(u *db.User) { u.DiscoveryEnabled = false })

	require.NoError(t, appCtx.DB.Create(&db.Swipe{SwiperID: me.ID, SwipedID: swipedOn.ID, Type: db.SwipePass}).Error)
	require.NoError(t, appCtx.DB.Create(&db.Block{BlockerID: blocker.ID, BlockedID: me.ID}).Error)
	require.NoError(t, appCtx.DB.Create(&db.Block{BlockerID: me.ID, BlockedID: blocked.ID}).Error)

	page, total, err := svc.FindCandidates(ctx, me, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, page, 1)
	assert.Equal(t, kept.ID, page[0].User.ID)
}

// Pagination runs after filtering, so total reflects the filtered count.
func TestFindCandidatesPagination(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)
	me := seeker(t, appCtx)
	for i := 0; i < 5; i++ {
		candidate(t, appCtx, fmt.Sprintf("c%d@test.com", i), nil)
	}

	first, total, err := svc.FindCandidates(ctx, me, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, first, 2)

	last, total, err := svc.FindCandidates(ctx, me, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, last, 1)

	beyond, total, err := svc.FindCandidates(ctx, me, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Empty(t, beyond)
}
