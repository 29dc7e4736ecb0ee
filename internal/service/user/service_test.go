package user_test

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
	"github.com/flameapp/flame-backend/internal/apperr"
	"github.com/flameapp/flame-backend/internal/cache"
	"github.com/flameapp/flame-backend/internal/config"
	"github.com/flameapp/flame-backend/internal/db"
	"github.com/flameapp/flame-backend/internal/platform"
	"github.com/flameapp/flame-backend/internal/repository"
	"github.com/flameapp/flame-backend/internal/service/user"
)

// memStorage records uploads without touching the disk.
type memStorage struct {
	uploads int
}

func (m *memStorage) Upload(ctx context.Context, data []byte, folder, filename, contentType string) (string, error) {
	m.uploads++
	return fmt.Sprintf("https://cdn.test/%s/%s", folder, filename), nil
}

// staticGeocoder always resolves to the same place.
type staticGeocoder struct{}

func (staticGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (platform.Place, error) {
	return platform.Place{City: "San Francisco", State: "CA", Country: "USA"}, nil
}

func setupService(t *testing.T) (*user.Service, *app.AppContext, *memStorage) {
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

	storage := &memStorage{}
	return user.NewService(appCtx, storage, staticGeocoder{}), appCtx, storage
}

func seedUser(t *testing.T, appCtx *app.AppContext, email string) *db.User {
	t.Helper()
	u := &db.User{
		Email:      email,
		Name:       email,
		Age:        25,
		Gender:     db.GenderMale,
		LookingFor: db.GenderFemale,
		Interests:  []string{"hiking"},
	}
	require.NoError(t, appCtx.DB.Create(u).Error)
	return u
}

func TestGetUserHiddenByBlock(t *testing.T) {
	ctx := context.Background()
	svc, appCtx, _ := setupService(t)
	a := seedUser(t, appCtx, "a@test.com")
	b := seedUser(t, appCtx, "b@test.com")

	_, err := svc.GetUser(ctx, a.ID, b.ID)
	require.NoError(t, err)

	// Either direction of block hides the profile.
	require.NoError(t, appCtx.DB.Create(&db.Block{BlockerID: b.ID, BlockedID: a.ID}).Error)
	_, err = svc.GetUser(ctx, a.ID, b.ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

func TestUpdateLocationUsesGeocoder(t *testing.T) {
	ctx := context.Background()
	svc, appCtx, _ := setupService(t)
	a := seedUser(t, appCtx, "a@test.com")

	updated, err := svc.UpdateLocation(ctx, a, 37.7749, -122.4194)
	require.NoError(t, err)
	require.NotNil(t, updated.Location)
	assert.Equal(t, "San Francisco", updated.Location.City)
	assert.Equal(t, 37.7749, updated.Location.Coordinates.Latitude)

	_, err = svc.UpdateLocation(ctx, a, 91, 0)
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
}

func TestPhotoInvariants(t *testing.T) {
	ctx := context.Background()
	svc, appCtx, storage := setupService(t)
	a := seedUser(t, appCtx, "a@test.com")

	// First photo becomes primary.
	updated, err := svc.AddPhoto(ctx, a, []byte("img"), "one.jpg", "image/jpeg")
	require.NoError(t, err)
	require.Len(t, updated.Photos, 1)
	assert.True(t, updated.Photos[0].IsPrimary)
	assert.Equal(t, 1, storage.uploads)

	for i := 2; i <= 6; i++ {
		updated, err = svc.AddPhoto(ctx, a, []byte("img"), fmt.Sprintf("p%d.jpg", i), "image/jpeg")
		require.NoError(t, err)
	}
	require.Len(t, updated.Photos, 6)

	// Seventh exceeds the limit.
	_, err = svc.AddPhoto(ctx, a, []byte("img"), "seven.jpg", "image/jpeg")
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))

	// Deleting the primary promotes the new first photo.
	primaryID := updated.Photos[0].ID
	updated, err = svc.DeletePhoto(ctx, a, primaryID)
	require.NoError(t, err)
	require.Len(t, updated.Photos, 5)
	assert.True(t, updated.Photos[0].IsPrimary)
	for i, p := range updated.Photos {
		assert.Equal(t, i, p.Order)
	}

	// Exactly one primary after an explicit change.
	updated, err = svc.SetPrimaryPhoto(ctx, a, updated.Photos[3].ID)
	require.NoError(t, err)
	primaries := 0
	for _, p := range updated.Photos {
		if p.IsPrimary {
			primaries++
		}
	}
	assert.Equal(t, 1, primaries)
}

func TestDeleteLastPhotoFails(t *testing.T) {
	ctx := context.Background()
	svc, appCtx, _ := setupService(t)
	a := seedUser(t, appCtx, "a@test.com")

	updated, err := svc.AddPhoto(ctx, a, []byte("img"), "only.jpg", "image/jpeg")
	require.NoError(t, err)

	_, err = svc.DeletePhoto(ctx, a, updated.Photos[0].ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
}

func TestBlockDeactivatesMatch(t *testing.T) {
	ctx := context.Background()
	svc, appCtx, _ := setupService(t)
	a := seedUser(t, appCtx, "a@test.com")
	b := seedUser(t, appCtx, "b@test.com")

	match, _, err := repository.NewMatchRepository(appCtx.DB).CreateWithConversation(ctx, a.ID, b.ID)
	require.NoError(t, err)

	require.NoError(t, svc.BlockUser(ctx, a, b.ID))

	var reloaded db.Match
	require.NoError(t, appCtx.DB.First(&reloaded, match.ID).Error)
	assert.False(t, reloaded.IsActive)

	var convCount int64
	appCtx.DB.Model(&db.Conversation{}).Count(&convCount)
	assert.Equal(t, int64(0), convCount)

	// Self-block and double-block fail validation.
	err = svc.BlockUser(ctx, a, a.ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
	err = svc.BlockUser(ctx, a, b.ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
}

func TestUnblock(t *testing.T) {
	ctx := context.Background()
	svc, appCtx, _ := setupService(t)
	a := seedUser(t, appCtx, "a@test.com")
	b := seedUser(t, appCtx, "b@test.com")

	require.NoError(t, svc.BlockUser(ctx, a, b.ID))

	blocked, err := svc.ListBlocked(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, blocked, 1)
	assert.Equal(t, b.ID, blocked[0].ID)

	require.NoError(t, svc.UnblockUser(ctx, a, b.ID))
	err = svc.UnblockUser(ctx, a, b.ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

func TestListMatchesAndSeen(t *testing.T) {
	ctx := context.Background()
	svc, appCtx, _ := setupService(t)
	a := seedUser(t, appCtx, "a@test.com")
	b := seedUser(t, appCtx, "b@test.com")
	c := seedUser(t, appCtx, "c@test.com")

	matches := repository.NewMatchRepository(appCtx.DB)
	m1, _, err := matches.CreateWithConversation(ctx, a.ID, b.ID)
	require.NoError(t, err)
	_, _, err = matches.CreateWithConversation(ctx, a.ID, c.ID)
	require.NoError(t, err)

	all, err := svc.ListMatches(ctx, a.ID, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, svc.MarkMatchSeen(ctx, a.ID, m1.ID))
	fresh, err := svc.ListMatches(ctx, a.ID, true)
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, c.ID, fresh[0].OtherUser.ID)

	// The other participant's seen flag is independent.
	bView, err := svc.ListMatches(ctx, b.ID, true)
	require.NoError(t, err)
	assert.Len(t, bView, 1)
}

func TestUnmatch(t *testing.T) {
	ctx := context.Background()
	svc, appCtx, _ := setupService(t)
	a := seedUser(t, appCtx, "a@test.com")
	b := seedUser(t, appCtx, "b@test.com")
	outsider := seedUser(t, appCtx, "x@test.com")

	match, _, err := repository.NewMatchRepository(appCtx.DB).CreateWithConversation(ctx, a.ID, b.ID)
	require.NoError(t, err)

	err = svc.Unmatch(ctx, outsider.ID, match.ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeForbidden))

	require.NoError(t, svc.Unmatch(ctx, a.ID, match.ID))

	// A second unmatch finds nothing active.
	err = svc.Unmatch(ctx, b.ID, match.ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

func TestDeleteAccountCascades(t *testing.T) {
	ctx := context.Background()
	svc, appCtx, _ := setupService(t)
	a := seedUser(t, appCtx, "a@test.com")
	b := seedUser(t, appCtx, "b@test.com")

	require.NoError(t, appCtx.DB.Create(&db.Swipe{SwiperID: a.ID, SwipedID: b.ID, Type: db.SwipeLike}).Error)
	_, _, err := repository.NewMatchRepository(appCtx.DB).CreateWithConversation(ctx, a.ID, b.ID)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAccount(ctx, a.ID))

	var users, swipes, matches, convs int64
	appCtx.DB.Model(&db.User{}).Count(&users)
	appCtx.DB.Model(&db.Swipe{}).Count(&swipes)
	appCtx.DB.Model(&db.Match{}).Count(&matches)
	appCtx.DB.Model(&db.Conversation{}).Count(&convs)
	assert.Equal(t, int64(1), users)
	assert.Equal(t, int64(0), swipes)
	assert.Equal(t, int64(0), matches)
	assert.Equal(t, int64(0), convs)
}
