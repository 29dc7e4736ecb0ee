// Package chat implements the conversation and messaging engine: message
// lifecycle (send/edit/delete/react), conversation aggregate state (unread
// counters, last-message cache, pins, mutes) and read marking.
package chat

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/flameapp/flame-backend/internal/app"
	"github.com/flameapp/flame-backend/internal/apperr"
	"github.com/flameapp/flame-backend/internal/cache"
	"github.com/flameapp/flame-backend/internal/db"
	"github.com/flameapp/flame-backend/internal/repository"
)

const (
	editWindow    = 48 * time.Hour
	maxPins       = 5
	previewMaxLen = 100

	// muteForever is the sentinel for an indefinite mute.
	muteForever = 100 * 365 * 24 * time.Hour

	deletedPlaceholder = "This message was deleted"

	defaultPageSize = 50
	maxPageSize     = 100
)

// SendInput carries everything needed to post one message.
type SendInput struct {
	ConversationID uint64
	Content        string
	Type           db.MessageType
	MediaURL       string
	MediaInfo      *db.MediaInfo
	ReplyToID      uint64 // 0 means not a reply
}

// ConversationView is one entry of the conversation list, shaped for the
// caller: their unread counter, their mute expiry and the other profile.
type ConversationView struct {
	Conversation *db.Conversation
	OtherUser    *db.User
	UnreadCount  int
	MutedUntil   *time.Time
}

// Service contains the messaging business logic on top of the repositories.
type Service struct {
	appCtx   *app.AppContext
	users    *repository.UserRepository
	convs    *repository.ConversationRepository
	messages *repository.MessageRepository
	cache    *cache.RedisCache
}

// NewService creates the messaging engine with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		users:    repository.NewUserRepository(appCtx.DB),
		convs:    repository.NewConversationRepository(appCtx.DB),
		messages: repository.NewMessageRepository(appCtx.DB),
		cache:    appCtx.RedisCache,
	}
}

// GetConversation loads the conversation and verifies membership.
func (s *Service) GetConversation(ctx context.Context, conversationID, userID uint64) (*db.Conversation, error) {
	conv, err := s.convs.GetByID(ctx, conversationID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("conversation not found")
	}
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, apperr.Forbidden("not a participant of this conversation")
	}
	return conv, nil
}

// ListConversations returns the caller's conversations, most recently active
// first, each paired with the other participant's profile.
func (s *Service) ListConversations(ctx context.Context, userID uint64) ([]ConversationView, error) {
	convs, err := s.convs.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]ConversationView, 0, len(convs))
	for i := range convs {
		conv := &convs[i]
		other, err := s.users.GetByID(ctx, conv.OtherUserID(userID))
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Participant account is gone; hide the orphaned conversation.
			continue
		}
		if err != nil {
			return nil, err
		}
		views = append(views, ConversationView{
			Conversation: conv,
			OtherUser:    other,
			UnreadCount:  conv.UnreadCountFor(userID),
			MutedUntil:   conv.MutedUntilFor(userID),
		})
	}
	return views, nil
}

// SendMessage persists one message and updates the conversation aggregate.
//
// Behavior:
//   - Sender must be a participant.
//   - A reply snapshots the original's sender name, truncated content and
//     type at send time; the snapshot never changes afterwards.
//   - The conversation's last-message cache takes a type-specific preview
//     string and the recipient's unread counter is incremented atomically.
func (s *Service) SendMessage(ctx context.Context, sender *db.User, in SendInput) (*db.Message, error) {
	conv, err := s.GetConversation(ctx, in.ConversationID, sender.ID)
	if err != nil {
		return nil, err
	}

	if !in.Type.Valid() {
		return nil, apperr.Validation("unknown message type")
	}
	if in.Type == db.MessageText && in.Content == "" {
		return nil, apperr.Validation("message content is required")
	}

	msg := &db.Message{
		ConversationID: conv.ID,
		SenderID:       sender.ID,
		Content:        in.Content,
		Type:           in.Type,
		Status:         db.StatusSent,
		Timestamp:      time.Now().UTC(),
		MediaURL:       in.MediaURL,
		MediaInfo:      in.MediaInfo,
	}

	if in.ReplyToID != 0 {
		reply, err := s.replySnapshot(ctx, conv.ID, in.ReplyToID)
		if err != nil {
			return nil, err
		}
		msg.ReplyTo = reply
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	if err := s.convs.ApplyMessagePreview(ctx, conv, msg, previewFor(msg)); err != nil {
		return nil, err
	}

	recipient := conv.OtherUserID(sender.ID)
	if err := s.cache.InvalidateUnreadTotal(ctx, recipient); err != nil {
		s.appCtx.Logger.Warn("unread cache invalidation failed", "user_id", recipient, "err", err)
	}

	return msg, nil
}

// replySnapshot builds the immutable reply preview from the original message.
func (s *Service) replySnapshot(ctx context.Context, conversationID, replyToID uint64) (*db.ReplyInfo, error) {
	original, err := s.messages.GetByID(ctx, replyToID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("replied-to message not found")
	}
	if err != nil {
		return nil, err
	}
	if original.ConversationID != conversationID {
		return nil, apperr.Validation("replied-to message belongs to another conversation")
	}

	sender, err := s.users.GetByID(ctx, original.SenderID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	name := ""
	if sender != nil {
		name = sender.Name
	}

	return &db.ReplyInfo{
		MessageID:  original.ID,
		SenderID:   original.SenderID,
		SenderName: name,
		Content:    truncate(original.Content, previewMaxLen),
		Type:       original.Type,
	}, nil
}

// EditMessage rewrites a text message's content within the edit window.
//
// Behavior:
//   - Only the sender may edit.
//   - Only text messages are editable.
//   - Fails exactly at and after the 48 hour boundary.
func (s *Service) EditMessage(ctx context.Context, userID, messageID uint64, newContent string) (*db.Message, error) {
	msg, err := s.getMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != userID {
		return nil, apperr.Forbidden("only the sender can edit a message")
	}
	if msg.Type != db.MessageText {
		return nil, apperr.Validation("only text messages can be edited")
	}
	now := time.Now().UTC()
	if !now.Before(msg.Timestamp.Add(editWindow)) {
		return nil, apperr.Validation("messages can only be edited within 48 hours")
	}
	if newContent == "" {
		return nil, apperr.Validation("message content is required")
	}

	msg.Content = newContent
	msg.IsEdited = true
	msg.EditedAt = &now
	if err := s.messages.Save(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// DeleteMessage soft-deletes: the row stays, content becomes a placeholder.
// The forEveryone flag is accepted but both paths behave identically; there
// is no per-user visibility.
func (s *Service) DeleteMessage(ctx context.Context, userID, messageID uint64, forEveryone bool) (*db.Message, error) {
	msg, err := s.getMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != userID {
		return nil, apperr.Forbidden("only the sender can delete a message")
	}

	now := time.Now().UTC()
	msg.IsDeleted = true
	msg.DeletedAt = &now
	msg.Content = deletedPlaceholder
	if err := s.messages.Save(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// AddReaction sets the user's emoji on a message, replacing any prior one.
// At most one reaction per user per message, last write wins.
func (s *Service) AddReaction(ctx context.Context, userID, messageID uint64, emoji string) (*db.Message, error) {
	if emoji == "" {
		return nil, apperr.Validation("emoji is required")
	}
	msg, err := s.getMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetConversation(ctx, msg.ConversationID, userID); err != nil {
		return nil, err
	}

	msg.Reactions = withoutReaction(msg.Reactions, userID)
	msg.Reactions = append(msg.Reactions, db.Reaction{
		Emoji:     emoji,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	})
	if err := s.messages.Save(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// RemoveReaction clears the user's reaction; absent reactions are a no-op.
func (s *Service) RemoveReaction(ctx context.Context, userID, messageID uint64) (*db.Message, error) {
	msg, err := s.getMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetConversation(ctx, msg.ConversationID, userID); err != nil {
		return nil, err
	}

	trimmed := withoutReaction(msg.Reactions, userID)
	if len(trimmed) == len(msg.Reactions) {
		return msg, nil
	}
	msg.Reactions = trimmed
	if err := s.messages.Save(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// PinMessage adds a pin snapshot to the conversation.
//
// Behavior:
//   - The message must belong to the conversation.
//   - Pinning an already-pinned message or a sixth message fails.
//   - The stored snapshot carries a content preview, pinner and time.
func (s *Service) PinMessage(ctx context.Context, userID, conversationID, messageID uint64) (*db.Conversation, error) {
	conv, err := s.GetConversation(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	msg, err := s.getMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.ConversationID != conv.ID {
		return nil, apperr.Validation("message belongs to another conversation")
	}

	for _, pin := range conv.PinnedMessages {
		if pin.MessageID == messageID {
			return nil, apperr.Validation("message is already pinned")
		}
	}
	if len(conv.PinnedMessages) >= maxPins {
		return nil, apperr.Validation("pin limit reached")
	}

	conv.PinnedMessages = append(conv.PinnedMessages, db.PinnedMessage{
		MessageID: messageID,
		Content:   truncate(msg.Content, previewMaxLen),
		PinnedBy:  userID,
		PinnedAt:  time.Now().UTC(),
	})
	if err := s.convs.SetPins(ctx, conv.ID, conv.PinnedMessages); err != nil {
		return nil, err
	}
	return conv, nil
}

// UnpinMessage removes a pin. Unpinning an id that is not pinned succeeds
// as a no-op.
func (s *Service) UnpinMessage(ctx context.Context, userID, conversationID, messageID uint64) (*db.Conversation, error) {
	conv, err := s.GetConversation(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}

	kept := make([]db.PinnedMessage, 0, len(conv.PinnedMessages))
	for _, pin := range conv.PinnedMessages {
		if pin.MessageID != messageID {
			kept = append(kept, pin)
		}
	}
	if len(kept) == len(conv.PinnedMessages) {
		return conv, nil
	}
	conv.PinnedMessages = kept
	if err := s.convs.SetPins(ctx, conv.ID, kept); err != nil {
		return nil, err
	}
	return conv, nil
}

// MuteConversation sets the caller's mute expiry.
//
// Behavior:
//   - durationHours == nil mutes indefinitely (expiry 100 years out).
//   - durationHours == 0 clears the mute.
//   - A positive value mutes for that many hours.
func (s *Service) MuteConversation(ctx context.Context, userID, conversationID uint64, durationHours *int) (*db.Conversation, error) {
	conv, err := s.GetConversation(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}

	var until *time.Time
	now := time.Now().UTC()
	switch {
	case durationHours == nil:
		t := now.Add(muteForever)
		until = &t
	case *durationHours == 0:
		until = nil
	case *durationHours > 0:
		t := now.Add(time.Duration(*durationHours) * time.Hour)
		until = &t
	default:
		return nil, apperr.Validation("mute duration cannot be negative")
	}

	if err := s.convs.SetMute(ctx, conv, userID, until); err != nil {
		return nil, err
	}
	if conv.User1ID == userID {
		conv.User1MutedUntil = until
	} else {
		conv.User2MutedUntil = until
	}
	return conv, nil
}

// MarkRead flips the given messages to read and resets the caller's unread
// counter.
//
// Behavior:
//   - Only messages in the conversation and not sent by the caller change
//     status; the caller's own ids are silently skipped.
//   - The unread counter resets to zero even when messageIDs is empty or
//     nothing matched.
//
// Returns how many messages changed status.
func (s *Service) MarkRead(ctx context.Context, userID, conversationID uint64, messageIDs []uint64) (int64, error) {
	conv, err := s.GetConversation(ctx, conversationID, userID)
	if err != nil {
		return 0, err
	}

	changed, err := s.messages.MarkRead(ctx, conv.ID, userID, messageIDs)
	if err != nil {
		return 0, err
	}
	if err := s.convs.ResetUnread(ctx, conv, userID); err != nil {
		return 0, err
	}
	if err := s.cache.InvalidateUnreadTotal(ctx, userID); err != nil {
		s.appCtx.Logger.Warn("unread cache invalidation failed", "user_id", userID, "err", err)
	}
	return changed, nil
}

// GetMessages returns one page of history in chronological order.
//
// Behavior:
//   - Soft-deleted messages are excluded.
//   - before is a message id whose timestamp becomes an exclusive upper
//     bound; 0 pages from the latest.
//   - limit+1 rows are fetched to compute hasMore, then the page is trimmed
//     and reversed into ascending order.
func (s *Service) GetMessages(ctx context.Context, userID, conversationID uint64, limit int, before uint64) ([]db.Message, bool, error) {
	conv, err := s.GetConversation(ctx, conversationID, userID)
	if err != nil {
		return nil, false, err
	}

	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	var beforeTS time.Time
	if before != 0 {
		anchor, err := s.getMessage(ctx, before)
		if err != nil {
			return nil, false, err
		}
		if anchor.ConversationID != conv.ID {
			return nil, false, apperr.Validation("cursor message belongs to another conversation")
		}
		beforeTS = anchor.Timestamp
	}

	page, err := s.messages.ListPage(ctx, conv.ID, limit, beforeTS)
	if err != nil {
		return nil, false, err
	}

	hasMore := len(page) > limit
	if hasMore {
		page = page[:limit]
	}
	// Newest-first from the store; flip to chronological for the client.
	for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
		page[i], page[j] = page[j], page[i]
	}
	return page, hasMore, nil
}

// TotalUnread returns the badge count, served from Redis when fresh.
func (s *Service) TotalUnread(ctx context.Context, userID uint64) (int64, error) {
	if total, ok, err := s.cache.GetUnreadTotal(ctx, userID); err == nil && ok {
		return total, nil
	}
	total, err := s.convs.SumUnreadForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if err := s.cache.SetUnreadTotal(ctx, userID, total); err != nil {
		s.appCtx.Logger.Warn("unread cache write failed", "user_id", userID, "err", err)
	}
	return total, nil
}

func (s *Service) getMessage(ctx context.Context, id uint64) (*db.Message, error) {
	msg, err := s.messages.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("message not found")
	}
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// previewFor builds the conversation list preview for a message, exhaustive
// over the message types.
func previewFor(msg *db.Message) string {
	switch msg.Type {
	case db.MessageText:
		return truncate(msg.Content, previewMaxLen)
	case db.MessageImage:
		return "📷 Photo"
	case db.MessageVideo:
		return "🎥 Video"
	case db.MessageAudio:
		return "🎵 Audio"
	case db.MessageVoice:
		return "🎤 Voice message"
	case db.MessageGif:
		return "GIF"
	case db.MessageSticker:
		return "😀 Sticker"
	case db.MessageFile:
		return "📎 File"
	default:
		return "Message"
	}
}

func withoutReaction(reactions []db.Reaction, userID uint64) []db.Reaction {
	kept := make([]db.Reaction, 0, len(reactions))
	for _, r := range reactions {
		if r.UserID != userID {
			kept = append(kept, r)
		}
	}
	return kept
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
