package chat_test

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
	"github.com/flameapp/flame-backend/internal/repository"
	"github.com/flameapp/flame-backend/internal/service/chat"
)

// fixture is a matched pair with an open conversation, ready for messaging.
type fixture struct {
	svc    *chat.Service
	appCtx *app.AppContext
	alice  *db.User
	bob    *db.User
	conv   *db.Conversation
}

func setup(t *testing.T) *fixture {
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

	alice := &db.User{Email: "alice@test.com", Name: "Alice", Age: 30, Gender: db.GenderFemale, LookingFor: db.GenderMale}
	bob := &db.User{Email: "bob@test.com", Name: "Bob", Age: 31, Gender: db.GenderMale, LookingFor: db.GenderFemale}
	require.NoError(t, dbase.Create(alice).Error)
	require.NoError(t, dbase.Create(bob).Error)

	matches := repository.NewMatchRepository(dbase)
	match, _, err := matches.CreateWithConversation(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)
	conv, err := repository.NewConversationRepository(dbase).GetByMatchID(context.Background(), match.ID)
	require.NoError(t, err)

	return &fixture{
		svc:    chat.NewService(appCtx),
		appCtx: appCtx,
		alice:  alice,
		bob:    bob,
		conv:   conv,
	}
}

func (f *fixture) reloadConv(t *testing.T) *db.Conversation {
	t.Helper()
	var conv db.Conversation
	require.NoError(t, f.appCtx.DB.First(&conv, f.conv.ID).Error)
	return &conv
}

func TestSendMessageUpdatesAggregate(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	msg, err := f.svc.SendMessage(ctx, f.alice, chat.SendInput{
		ConversationID: f.conv.ID,
		Content:        "hello",
		Type:           db.MessageText,
	})
	require.NoError(t, err)
	assert.Equal(t, db.StatusSent, msg.Status)

	conv := f.reloadConv(t)
	assert.Equal(t, "hello", conv.LastMessageContent)
	assert.Equal(t, f.alice.ID, conv.LastMessageSenderID)
	assert.Equal(t, 0, conv.UnreadCountFor(f.alice.ID))
	assert.Equal(t, 1, conv.UnreadCountFor(f.bob.ID))
}

func TestSendMessageNonParticipant(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	eve := &db.User{Email: "eve@test.com", Name: "Eve", Age: 30, Gender: db.GenderFemale, LookingFor: db.GenderMale}
	require.NoError(t, f.appCtx.DB.Create(eve).Error)

	_, err := f.svc.SendMessage(ctx, eve, chat.SendInput{ConversationID: f.conv.ID, Content: "hi", Type: db.MessageText})
	assert.True(t, apperr.HasCode(err, apperr.CodeForbidden))
}

func TestSendMessagePreviewStrings(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	cases := []struct {
		msgType db.MessageType
		content string
		preview string
	}{
		{db.MessageImage, "", "📷 Photo"},
		{db.MessageVideo, "", "🎥 Video"},
		{db.MessageVoice, "", "🎤 Voice message"},
		{db.MessageGif, "", "GIF"},
		{db.MessageFile, "", "📎 File"},
	}
	for _, tc := range cases {
		_, err := f.svc.SendMessage(ctx, f.alice, chat.SendInput{
			ConversationID: f.conv.ID,
			Content:        tc.content,
			Type:           tc.msgType,
			MediaURL:       "https://cdn.test/x",
		})
		require.NoError(t, err)
		assert.Equal(t, tc.preview, f.reloadConv(t).LastMessageContent, "type %s", tc.msgType)
	}

	// Long text is truncated to 100 runes.
	long := ""
	for i := 0; i < 30; i++ {
		long += "0123456789"
	}
	_, err := f.svc.SendMessage(ctx, f.alice, chat.SendInput{ConversationID: f.conv.ID, Content: long, Type: db.MessageText})
	require.NoError(t, err)
	assert.Len(t, []rune(f.reloadConv(t).LastMessageContent), 100)
}

func TestReplySnapshotIsImmutable(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	original, err := f.svc.SendMessage(ctx, f.alice, chat.SendInput{ConversationID: f.conv.ID, Content: "original", Type: db.MessageText})
	require.NoError(t, err)

	reply, err := f.svc.SendMessage(ctx, f.bob, chat.SendInput{
		ConversationID: f.conv.ID,
		Content:        "replying",
		Type:           db.MessageText,
		ReplyToID:      original.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, reply.ReplyTo)
	assert.Equal(t, "Alice", reply.ReplyTo.SenderName)
	assert.Equal(t, "original", reply.ReplyTo.Content)

	// Editing the original does not touch the snapshot.
	_, err = f.svc.EditMessage(ctx, f.alice.ID, original.ID, "rewritten")
	require.NoError(t, err)

	var reloaded db.Message
	require.NoError(t, f.appCtx.DB.First(&reloaded, reply.ID).Error)
	assert.Equal(t, "original", reloaded.ReplyTo.Content)
}

func TestEditMessageWindow(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	msg, err := f.svc.SendMessage(ctx, f.alice, chat.SendInput{ConversationID: f.conv.ID, Content: "hello", Type: db.MessageText})
	require.NoError(t, err)

	edited, err := f.svc.EditMessage(ctx, f.alice.ID, msg.ID, "hello, edited")
	require.NoError(t, err)
	assert.True(t, edited.IsEdited)
	assert.NotNil(t, edited.EditedAt)

	// Not the sender.
	_, err = f.svc.EditMessage(ctx, f.bob.ID, msg.ID, "nope")
	assert.True(t, apperr.HasCode(err, apperr.CodeForbidden))

	// Exactly at the 48h boundary the edit must fail.
	boundary := time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, f.appCtx.DB.Model(&db.Message{}).Where("id = ?", msg.ID).Update("timestamp", boundary).Error)
	_, err = f.svc.EditMessage(ctx, f.alice.ID, msg.ID, "too late")
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
}

func TestEditNonTextMessage(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	msg, err := f.svc.SendMessage(ctx, f.alice, chat.SendInput{ConversationID: f.conv.ID, Type: db.MessageImage, MediaURL: "https://cdn.test/p"})
	require.NoError(t, err)

	_, err = f.svc.EditMessage(ctx, f.alice.ID, msg.ID, "caption")
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
}

func TestDeleteMessageIsSoft(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	msg, err := f.svc.SendMessage(ctx, f.alice, chat.SendInput{ConversationID: f.conv.ID, Content: "secret", Type: db.MessageText})
	require.NoError(t, err)

	_, err = f.svc.DeleteMessage(ctx, f.bob.ID, msg.ID, true)
	assert.True(t, apperr.HasCode(err, apperr.CodeForbidden))

	deleted, err := f.svc.DeleteMessage(ctx, f.alice.ID, msg.ID, false)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted)
	assert.NotEqual(t, "secret", deleted.Content)

	// The row survives.
	var reloaded db.Message
	require.NoError(t, f.appCtx.DB.First(&reloaded, msg.ID).Error)
	assert.True(t, reloaded.IsDeleted)
}

func TestReactionsLastWriteWinsPerUser(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	msg, err := f.svc.SendMessage(ctx, f.alice, chat.SendInput{ConversationID: f.conv.ID, Content: "hi", Type: db.MessageText})
	require.NoError(t, err)

	_, err = f.svc.AddReaction(ctx, f.bob.ID, msg.ID, "❤️")
	require.NoError(t, err)
	_, err = f.svc.AddReaction(ctx, f.alice.ID, msg.ID, "😂")
	require.NoError(t, err)
	updated, err := f.svc.AddReaction(ctx, f.bob.ID, msg.ID, "🔥")
	require.NoError(t, err)

	require.Len(t, updated.Reactions, 2)
	byUser := map[uint64]string{}
	for _, r := range updated.Reactions {
		byUser[r.UserID] = r.Emoji
	}
	assert.Equal(t, "🔥", byUser[f.bob.ID])
	assert.Equal(t, "😂", byUser[f.alice.ID])

	// Removing an absent reaction is a no-op.
	removed, err := f.svc.RemoveReaction(ctx, f.bob.ID, msg.ID)
	require.NoError(t, err)
	assert.Len(t, removed.Reactions, 1)
	again, err := f.svc.RemoveReaction(ctx, f.bob.ID, msg.ID)
	require.NoError(t, err)
	assert.Len(t, again.Reactions, 1)
}

func TestPinLimitAndIdempotentUnpin(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	ids := make([]uint64, 0, 6)
	for i := 0; i < 6; i++ {
		msg, err := f.svc.SendMessage(ctx, f.alice, chat.SendInput{ConversationID: f.conv.ID, Content: fmt.Sprintf("m%d", i), Type: db.MessageText})
		require.NoError(t, err)
		ids = append(ids, msg.ID)
	}

	for i := 0; i < 5; i++ {
		_, err := f.svc.PinMessage(ctx, f.alice.ID, f.conv.ID, ids[i])
		require.NoError(t, err)
	}

	// Sixth pin and re-pin both fail validation.
	_, err := f.svc.PinMessage(ctx, f.alice.ID, f.conv.ID, ids[5])
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
	_, err = f.svc.PinMessage(ctx, f.bob.ID, f.conv.ID, ids[0])
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))

	// Unpin is idempotent: unknown ids succeed as a no-op.
	conv, err := f.svc.UnpinMessage(ctx, f.bob.ID, f.conv.ID, ids[0])
	require.NoError(t, err)
	assert.Len(t, conv.PinnedMessages, 4)
	conv, err = f.svc.UnpinMessage(ctx, f.bob.ID, f.conv.ID, 999999)
	require.NoError(t, err)
	assert.Len(t, conv.PinnedMessages, 4)
}

func TestMuteConversation(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	// nil duration mutes indefinitely (expiry ~100 years out).
	conv, err := f.svc.MuteConversation(ctx, f.alice.ID, f.conv.ID, nil)
	require.NoError(t, err)
	until := conv.MutedUntilFor(f.alice.ID)
	require.NotNil(t, until)
	assert.True(t, until.After(time.Now().AddDate(99, 0, 0)))

	// The other participant's mute state is untouched.
	assert.Nil(t, conv.MutedUntilFor(f.bob.ID))

	// A positive duration sets a near expiry.
	hours := 8
	conv, err = f.svc.MuteConversation(ctx, f.alice.ID, f.conv.ID, &hours)
	require.NoError(t, err)
	until = conv.MutedUntilFor(f.alice.ID)
	require.NotNil(t, until)
	assert.WithinDuration(t, time.Now().UTC().Add(8*time.Hour), *until, time.Minute)

	// Zero clears the mute.
	zero := 0
	conv, err = f.svc.MuteConversation(ctx, f.alice.ID, f.conv.ID, &zero)
	require.NoError(t, err)
	assert.Nil(t, conv.MutedUntilFor(f.alice.ID))
}

func TestMarkReadSkipsOwnMessages(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	mine, err := f.svc.SendMessage(ctx, f.alice, chat.SendInput{ConversationID: f.conv.ID, Content: "mine", Type: db.MessageText})
	require.NoError(t, err)
	theirs, err := f.svc.SendMessage(ctx, f.bob, chat.SendInput{ConversationID: f.conv.ID, Content: "theirs", Type: db.MessageText})
	require.NoError(t, err)

	changed, err := f.svc.MarkRead(ctx, f.alice.ID, f.conv.ID, []uint64{mine.ID, theirs.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)

	var reloadedMine, reloadedTheirs db.Message
	require.NoError(t, f.appCtx.DB.First(&reloadedMine, mine.ID).Error)
	require.NoError(t, f.appCtx.DB.First(&reloadedTheirs, theirs.ID).Error)
	assert.Equal(t, db.StatusSent, reloadedMine.Status)
	assert.Equal(t, db.StatusRead, reloadedTheirs.Status)
	assert.Equal(t, 0, f.reloadConv(t).UnreadCountFor(f.alice.ID))
}

// The unread counter resets even when no ids are given.
func TestMarkReadEmptyStillResetsUnread(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.svc.SendMessage(ctx, f.bob, chat.SendInput{ConversationID: f.conv.ID, Content: "ping", Type: db.MessageText})
	require.NoError(t, err)
	require.Equal(t, 1, f.reloadConv(t).UnreadCountFor(f.alice.ID))

	changed, err := f.svc.MarkRead(ctx, f.alice.ID, f.conv.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), changed)
	assert.Equal(t, 0, f.reloadConv(t).UnreadCountFor(f.alice.ID))
}

func TestGetMessagesPagingAndDeleted(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	ids := make([]uint64, 0, 5)
	for i := 0; i < 5; i++ {
		msg, err := f.svc.SendMessage(ctx, f.alice, chat.SendInput{ConversationID: f.conv.ID, Content: fmt.Sprintf("m%d", i), Type: db.MessageText})
		require.NoError(t, err)
		// Spread timestamps so ordering does not depend on insert speed.
		ts := time.Now().UTC().Add(time.Duration(i-10) * time.Minute)
		require.NoError(t, f.appCtx.DB.Model(&db.Message{}).Where("id = ?", msg.ID).Update("timestamp", ts).Error)
		ids = append(ids, msg.ID)
	}

	_, err := f.svc.DeleteMessage(ctx, f.alice.ID, ids[2], false)
	require.NoError(t, err)

	// Full history: deleted message gone, ascending order.
	messages, hasMore, err := f.svc.GetMessages(ctx, f.bob.ID, f.conv.ID, 10, 0)
	require.NoError(t, err)
	assert.False(t, hasMore)
	require.Len(t, messages, 4)
	assert.Equal(t, "m0", messages[0].Content)
	assert.Equal(t, "m4", messages[3].Content)

	// Limited page reports more history behind it.
	page, hasMore, err := f.svc.GetMessages(ctx, f.bob.ID, f.conv.ID, 2, 0)
	require.NoError(t, err)
	assert.True(t, hasMore)
	require.Len(t, page, 2)
	assert.Equal(t, []string{"m3", "m4"}, []string{page[0].Content, page[1].Content})

	// before pages backwards with an exclusive bound.
	older, _, err := f.svc.GetMessages(ctx, f.bob.ID, f.conv.ID, 10, ids[3])
	require.NoError(t, err)
	require.Len(t, older, 2)
	assert.Equal(t, []string{"m0", "m1"}, []string{older[0].Content, older[1].Content})
}

func TestTotalUnreadUsesCache(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.svc.SendMessage(ctx, f.bob, chat.SendInput{ConversationID: f.conv.ID, Content: "one", Type: db.MessageText})
	require.NoError(t, err)
	_, err = f.svc.SendMessage(ctx, f.bob, chat.SendInput{ConversationID: f.conv.ID, Content: "two", Type: db.MessageText})
	require.NoError(t, err)

	total, err := f.svc.TotalUnread(ctx, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	// markRead invalidates, the next read recomputes.
	_, err = f.svc.MarkRead(ctx, f.alice.ID, f.conv.ID, nil)
	require.NoError(t, err)
	total, err = f.svc.TotalUnread(ctx, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

// Full scenario: message lands, recipient's counter rises, markRead flips the
// status and zeroes the counter.
func TestSendThenReadScenario(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	msg, err := f.svc.SendMessage(ctx, f.alice, chat.SendInput{ConversationID: f.conv.ID, Content: "hello", Type: db.MessageText})
	require.NoError(t, err)

	conv := f.reloadConv(t)
	assert.Equal(t, "hello", conv.LastMessageContent)
	require.Equal(t, 1, conv.UnreadCountFor(f.bob.ID))

	changed, err := f.svc.MarkRead(ctx, f.bob.ID, f.conv.ID, []uint64{msg.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)

	var reloaded db.Message
	require.NoError(t, f.appCtx.DB.First(&reloaded, msg.ID).Error)
	assert.Equal(t, db.StatusRead, reloaded.Status)
	assert.Equal(t, 0, f.reloadConv(t).UnreadCountFor(f.bob.ID))
}
