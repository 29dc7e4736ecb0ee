package server

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/flameapp/flame-backend/internal/db"
	"github.com/flameapp/flame-backend/internal/service/chat"
	"github.com/flameapp/flame-backend/internal/ws"
)

func (s *Server) handleListConversations(c *gin.Context) {
	views, err := s.svcs.Chat.ListConversations(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondErr(c, err)
		return
	}
	out := make([]gin.H, 0, len(views))
	for _, v := range views {
		out = append(out, conversationView(v))
	}
	respondOK(c, gin.H{"conversations": out})
}

func (s *Server) handleUnreadCount(c *gin.Context) {
	total, err := s.svcs.Chat.TotalUnread(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, gin.H{"unread_count": total})
}

func (s *Server) handleGetMessages(c *gin.Context) {
	convID, ok := pathID(c, "id")
	if !ok {
		return
	}
	limit := queryInt(c, "limit", 50)
	before := uint64(queryInt(c, "before", 0))

	messages, hasMore, err := s.svcs.Chat.GetMessages(c.Request.Context(), currentUser(c).ID, convID, limit, before)
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, gin.H{"messages": messageViews(messages), "has_more": hasMore})
}

type sendMessageRequest struct {
	Content   string         `json:"content"`
	Type      db.MessageType `json:"type"`
	MediaURL  string         `json:"media_url"`
	MediaInfo *db.MediaInfo  `json:"media_info"`
	ReplyToID uint64         `json:"reply_to_id"`
}

func (s *Server) handleSendMessage(c *gin.Context) {
	convID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	if req.Type == "" {
		req.Type = db.MessageText
	}
	me := currentUser(c)

	msg, err := s.svcs.Chat.SendMessage(c.Request.Context(), me, chat.SendInput{
		ConversationID: convID,
		Content:        req.Content,
		Type:           req.Type,
		MediaURL:       req.MediaURL,
		MediaInfo:      req.MediaInfo,
		ReplyToID:      req.ReplyToID,
	})
	if err != nil {
		respondErr(c, err)
		return
	}

	s.hub.BroadcastToConversation(ws.Event{
		Event: ws.EvNewMessage,
		Data:  messageView(msg),
	}, convID, me.ID)

	respondCreated(c, messageView(msg))
}

func (s *Server) handleEditMessage(c *gin.Context) {
	msgID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "content is required")
		return
	}
	me := currentUser(c)

	msg, err := s.svcs.Chat.EditMessage(c.Request.Context(), me.ID, msgID, req.Content)
	if err != nil {
		respondErr(c, err)
		return
	}

	s.hub.BroadcastToConversation(ws.Event{
		Event: ws.EvMessageEdited,
		Data:  messageView(msg),
	}, msg.ConversationID, me.ID)

	respondOK(c, messageView(msg))
}

func (s *Server) handleDeleteMessage(c *gin.Context) {
	msgID, ok := pathID(c, "id")
	if !ok {
		return
	}
	me := currentUser(c)
	forEveryone := c.Query("for_everyone") == "true"

	msg, err := s.svcs.Chat.DeleteMessage(c.Request.Context(), me.ID, msgID, forEveryone)
	if err != nil {
		respondErr(c, err)
		return
	}

	s.hub.BroadcastToConversation(ws.Event{
		Event: ws.EvMessageDeleted,
		Data: gin.H{
			"message_id":      msg.ID,
			"conversation_id": msg.ConversationID,
		},
	}, msg.ConversationID, me.ID)

	respondOK(c, messageView(msg))
}

func (s *Server) handleAddReaction(c *gin.Context) {
	msgID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Emoji string `json:"emoji" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "emoji is required")
		return
	}
	me := currentUser(c)

	msg, err := s.svcs.Chat.AddReaction(c.Request.Context(), me.ID, msgID, req.Emoji)
	if err != nil {
		respondErr(c, err)
		return
	}

	s.hub.BroadcastToConversation(ws.Event{
		Event: ws.EvReactionAdded,
		Data: gin.H{
			"message_id":      msg.ID,
			"conversation_id": msg.ConversationID,
			"user_id":         me.ID,
			"emoji":           req.Emoji,
		},
	}, msg.ConversationID, me.ID)

	respondOK(c, messageView(msg))
}

func (s *Server) handleRemoveReaction(c *gin.Context) {
	msgID, ok := pathID(c, "id")
	if !ok {
		return
	}
	me := currentUser(c)

	msg, err := s.svcs.Chat.RemoveReaction(c.Request.Context(), me.ID, msgID)
	if err != nil {
		respondErr(c, err)
		return
	}

	s.hub.BroadcastToConversation(ws.Event{
		Event: ws.EvReactionRemoved,
		Data: gin.H{
			"message_id":      msg.ID,
			"conversation_id": msg.ConversationID,
			"user_id":         me.ID,
		},
	}, msg.ConversationID, me.ID)

	respondOK(c, messageView(msg))
}

func (s *Server) handlePinMessage(c *gin.Context) {
	convID, ok := pathID(c, "id")
	if !ok {
		return
	}
	msgID, ok := pathID(c, "messageId")
	if !ok {
		return
	}
	me := currentUser(c)

	conv, err := s.svcs.Chat.PinMessage(c.Request.Context(), me.ID, convID, msgID)
	if err != nil {
		respondErr(c, err)
		return
	}

	s.hub.BroadcastToConversation(ws.Event{
		Event: ws.EvMessagePinned,
		Data: gin.H{
			"conversation_id": conv.ID,
			"message_id":      msgID,
			"pinned_by":       me.ID,
		},
	}, conv.ID, me.ID)

	respondOK(c, gin.H{"pinned_messages": conv.PinnedMessages})
}

func (s *Server) handleUnpinMessage(c *gin.Context) {
	convID, ok := pathID(c, "id")
	if !ok {
		return
	}
	msgID, ok := pathID(c, "messageId")
	if !ok {
		return
	}
	me := currentUser(c)

	conv, err := s.svcs.Chat.UnpinMessage(c.Request.Context(), me.ID, convID, msgID)
	if err != nil {
		respondErr(c, err)
		return
	}

	s.hub.BroadcastToConversation(ws.Event{
		Event: ws.EvMessageUnpinned,
		Data: gin.H{
			"conversation_id": conv.ID,
			"message_id":      msgID,
		},
	}, conv.ID, me.ID)

	respondOK(c, gin.H{"pinned_messages": conv.PinnedMessages})
}

func (s *Server) handleMarkRead(c *gin.Context) {
	convID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		MessageIDs []uint64 `json:"message_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	me := currentUser(c)

	changed, err := s.svcs.Chat.MarkRead(c.Request.Context(), me.ID, convID, req.MessageIDs)
	if err != nil {
		respondErr(c, err)
		return
	}

	if changed > 0 {
		s.hub.BroadcastToConversation(ws.Event{
			Event: ws.EvMessageStatus,
			Data: gin.H{
				"conversation_id": convID,
				"message_ids":     req.MessageIDs,
				"status":          db.StatusRead,
			},
		}, convID, me.ID)
	}

	respondOK(c, gin.H{"marked_read": changed})
}

func (s *Server) handleMute(c *gin.Context) {
	convID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		DurationHours *int `json:"duration_hours"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	me := currentUser(c)

	conv, err := s.svcs.Chat.MuteConversation(c.Request.Context(), me.ID, convID, req.DurationHours)
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, gin.H{"muted_until": conv.MutedUntilFor(me.ID)})
}

// queryInt parses an optional integer query parameter.
func queryInt(c *gin.Context, name string, def int) int {
	if v := c.Query(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
