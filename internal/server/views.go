package server

import (
	"github.com/gin-gonic/gin"

	"github.com/flameapp/flame-backend/internal/db"
	"github.com/flameapp/flame-backend/internal/service/chat"
	"github.com/flameapp/flame-backend/internal/service/discovery"
	"github.com/flameapp/flame-backend/internal/service/user"
	"github.com/flameapp/flame-backend/internal/token"
)

// ownProfileView is the full serialization a user sees of themselves.
func ownProfileView(u *db.User) gin.H {
	return gin.H{
		"id":                    u.ID,
		"email":                 u.Email,
		"name":                  u.Name,
		"age":                   u.Age,
		"gender":                u.Gender,
		"looking_for":           u.LookingFor,
		"bio":                   u.Bio,
		"interests":             u.Interests,
		"photos":                u.Photos,
		"location":              u.Location,
		"preferences":           u.Preferences,
		"discovery_enabled":     u.DiscoveryEnabled,
		"is_verified":           u.IsVerified,
		"is_premium":            u.IsPremium,
		"super_likes_remaining": u.SuperLikesRemaining,
		"created_at":            u.CreatedAt,
	}
}

// publicProfileView hides contact and account details from other users.
func publicProfileView(u *db.User) gin.H {
	view := gin.H{
		"id":        u.ID,
		"name":      u.Name,
		"age":       u.Age,
		"gender":    u.Gender,
		"bio":       u.Bio,
		"interests": u.Interests,
		"photos":    u.Photos,
		"is_online": u.IsOnline,
	}
	if u.Location != nil {
		view["location"] = gin.H{"city": u.Location.City, "country": u.Location.Country}
	}
	return view
}

func candidateView(c discovery.Candidate) gin.H {
	view := publicProfileView(c.User)
	view["common_interests"] = c.CommonInterests
	if c.DistanceMiles != nil {
		view["distance_miles"] = *c.DistanceMiles
	}
	return view
}

func tokenView(p *token.Pair) gin.H {
	return gin.H{
		"access_token":  p.AccessToken,
		"refresh_token": p.RefreshToken,
		"expires_in":    p.ExpiresIn,
		"token_type":    "Bearer",
	}
}

func matchView(v user.MatchView) gin.H {
	return gin.H{
		"id":         v.Match.ID,
		"matched_at": v.Match.MatchedAt,
		"is_new":     v.IsNew,
		"user":       publicProfileView(v.OtherUser),
	}
}

func conversationView(v chat.ConversationView) gin.H {
	conv := v.Conversation
	return gin.H{
		"id":                     conv.ID,
		"match_id":               conv.MatchID,
		"user":                   publicProfileView(v.OtherUser),
		"last_message_content":   conv.LastMessageContent,
		"last_message_sender_id": conv.LastMessageSenderID,
		"last_message_at":        conv.LastMessageAt,
		"unread_count":           v.UnreadCount,
		"muted_until":            v.MutedUntil,
		"pinned_messages":        conv.PinnedMessages,
		"updated_at":             conv.UpdatedAt,
	}
}

func messageView(m *db.Message) gin.H {
	view := gin.H{
		"id":              m.ID,
		"conversation_id": m.ConversationID,
		"sender_id":       m.SenderID,
		"content":         m.Content,
		"type":            m.Type,
		"status":          m.Status,
		"timestamp":       m.Timestamp,
		"is_edited":       m.IsEdited,
		"is_deleted":      m.IsDeleted,
	}
	if m.MediaURL != "" {
		view["media_url"] = m.MediaURL
	}
	if m.MediaInfo != nil {
		view["media_info"] = m.MediaInfo
	}
	if m.ReplyTo != nil {
		view["reply_to"] = m.ReplyTo
	}
	if len(m.Reactions) > 0 {
		view["reactions"] = m.Reactions
	}
	if m.EditedAt != nil {
		view["edited_at"] = m.EditedAt
	}
	return view
}

func messageViews(msgs []db.Message) []gin.H {
	views := make([]gin.H, 0, len(msgs))
	for i := range msgs {
		views = append(views, messageView(&msgs[i]))
	}
	return views
}
