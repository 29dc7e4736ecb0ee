package server

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/flameapp/flame-backend/internal/db"
	"github.com/flameapp/flame-backend/internal/repository"
	"github.com/flameapp/flame-backend/internal/ws"
)

func (s *Server) handleDiscover(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	candidates, total, err := s.svcs.Discovery.FindCandidates(c.Request.Context(), currentUser(c), limit, offset)
	if err != nil {
		respondErr(c, err)
		return
	}

	views := make([]gin.H, 0, len(candidates))
	for _, cand := range candidates {
		views = append(views, candidateView(cand))
	}
	respondOK(c, gin.H{"candidates": views, "total": total})
}

func (s *Server) handleLike(c *gin.Context) {
	targetID, ok := pathID(c, "id")
	if !ok {
		return
	}
	me := currentUser(c)

	isMatch, match, err := s.svcs.Swipes.Like(c.Request.Context(), me, targetID)
	if err != nil {
		respondErr(c, err)
		return
	}

	resp := gin.H{"is_match": isMatch}
	if match != nil {
		resp["match_id"] = match.ID
		s.notifyMatch(c.Request.Context(), me, match)
	}
	respondOK(c, resp)
}

func (s *Server) handlePass(c *gin.Context) {
	targetID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := s.svcs.Swipes.Pass(c.Request.Context(), currentUser(c), targetID); err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, gin.H{"is_match": false})
}

func (s *Server) handleSuperLike(c *gin.Context) {
	targetID, ok := pathID(c, "id")
	if !ok {
		return
	}
	me := currentUser(c)

	isMatch, match, remaining, err := s.svcs.Swipes.SuperLike(c.Request.Context(), me, targetID)
	if err != nil {
		respondErr(c, err)
		return
	}

	resp := gin.H{"is_match": isMatch, "super_likes_remaining": remaining}
	if match != nil {
		resp["match_id"] = match.ID
		s.notifyMatch(c.Request.Context(), me, match)
	}
	respondOK(c, resp)
}

func (s *Server) handleUndoSwipe(c *gin.Context) {
	swipe, err := s.svcs.Swipes.UndoLast(c.Request.Context(), currentUser(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, gin.H{
		"undone":    true,
		"user_id":   swipe.SwipedID,
		"type":      swipe.Type,
		"swiped_at": swipe.CreatedAt,
	})
}

// notifyMatch subscribes both participants' live sessions to the new
// conversation and pushes new_match to the other user if connected.
func (s *Server) notifyMatch(ctx context.Context, actor *db.User, match *db.Match) {
	convRepo := repository.NewConversationRepository(s.appCtx.DB)
	conv, err := convRepo.GetByMatchID(ctx, match.ID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.appCtx.Logger.Warn("match notify skipped", "match_id", match.ID, "err", err)
		}
		return
	}

	s.hub.Subscribe(match.User1ID, conv.ID)
	s.hub.Subscribe(match.User2ID, conv.ID)

	otherID := match.OtherUserID(actor.ID)
	s.hub.SendToUser(ws.Event{
		Event: ws.EvNewMatch,
		Data: gin.H{
			"match_id":        match.ID,
			"conversation_id": conv.ID,
			"matched_at":      match.MatchedAt,
			"user": gin.H{
				"id":    actor.ID,
				"name":  actor.Name,
				"photo": actor.PrimaryPhotoURL(),
			},
		},
	}, otherID)
}
