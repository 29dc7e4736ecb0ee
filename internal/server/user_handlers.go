package server

import (
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/flameapp/flame-backend/internal/db"
	"github.com/flameapp/flame-backend/internal/service/user"
)

// pathID parses a numeric path parameter, writing the error response itself.
func pathID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondBadRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

func (s *Server) handleGetMe(c *gin.Context) {
	respondOK(c, ownProfileView(currentUser(c)))
}

type updateProfileRequest struct {
	Name             *string    `json:"name"`
	Bio              *string    `json:"bio"`
	Age              *int       `json:"age"`
	Gender           *db.Gender `json:"gender"`
	LookingFor       *db.Gender `json:"looking_for"`
	Interests        []string   `json:"interests"`
	DiscoveryEnabled *bool      `json:"discovery_enabled"`
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	updated, err := s.svcs.Users.UpdateProfile(c.Request.Context(), currentUser(c), user.ProfileUpdate{
		Name:             req.Name,
		Bio:              req.Bio,
		Age:              req.Age,
		Gender:           req.Gender,
		LookingFor:       req.LookingFor,
		Interests:        req.Interests,
		DiscoveryEnabled: req.DiscoveryEnabled,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, ownProfileView(updated))
}

func (s *Server) handleUpdatePreferences(c *gin.Context) {
	var prefs db.Preferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	updated, err := s.svcs.Users.UpdatePreferences(c.Request.Context(), currentUser(c), prefs)
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, ownProfileView(updated))
}

func (s *Server) handleUpdateLocation(c *gin.Context) {
	var req struct {
		Latitude  float64 `json:"latitude" binding:"required"`
		Longitude float64 `json:"longitude" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "latitude and longitude are required")
		return
	}

	updated, err := s.svcs.Users.UpdateLocation(c.Request.Context(), currentUser(c), req.Latitude, req.Longitude)
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, ownProfileView(updated))
}

func (s *Server) handleAddPhoto(c *gin.Context) {
	file, header, err := c.Request.FormFile("photo")
	if err != nil {
		respondBadRequest(c, "photo file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondErr(c, err)
		return
	}

	updated, err := s.svcs.Users.AddPhoto(c.Request.Context(), currentUser(c),
		data, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		respondErr(c, err)
		return
	}
	respondCreated(c, ownProfileView(updated))
}

func (s *Server) handleDeletePhoto(c *gin.Context) {
	updated, err := s.svcs.Users.DeletePhoto(c.Request.Context(), currentUser(c), c.Param("photoId"))
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, ownProfileView(updated))
}

func (s *Server) handleSetPrimaryPhoto(c *gin.Context) {
	updated, err := s.svcs.Users.SetPrimaryPhoto(c.Request.Context(), currentUser(c), c.Param("photoId"))
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, ownProfileView(updated))
}

func (s *Server) handleReorderPhotos(c *gin.Context) {
	var req struct {
		PhotoIDs []string `json:"photo_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "photo_ids is required")
		return
	}

	updated, err := s.svcs.Users.ReorderPhotos(c.Request.Context(), currentUser(c), req.PhotoIDs)
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, ownProfileView(updated))
}

func (s *Server) handleGetUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	target, err := s.svcs.Users.GetUser(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, publicProfileView(target))
}

func (s *Server) handleBlockUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := s.svcs.Users.BlockUser(c.Request.Context(), currentUser(c), id); err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, gin.H{"blocked": true})
}

func (s *Server) handleUnblockUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := s.svcs.Users.UnblockUser(c.Request.Context(), currentUser(c), id); err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, gin.H{"unblocked": true})
}

func (s *Server) handleListBlocked(c *gin.Context) {
	blocked, err := s.svcs.Users.ListBlocked(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondErr(c, err)
		return
	}
	views := make([]gin.H, 0, len(blocked))
	for i := range blocked {
		views = append(views, publicProfileView(&blocked[i]))
	}
	respondOK(c, gin.H{"users": views})
}

func (s *Server) handleReportUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Reason  string `json:"reason" binding:"required"`
		Details string `json:"details"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "reason is required")
		return
	}

	if err := s.svcs.Users.ReportUser(c.Request.Context(), currentUser(c), id, req.Reason, req.Details); err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, gin.H{"reported": true})
}

func (s *Server) handleDeleteAccount(c *gin.Context) {
	if err := s.svcs.Users.DeleteAccount(c.Request.Context(), currentUser(c).ID); err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, gin.H{"deleted": true})
}

func (s *Server) handleListMatches(c *gin.Context) {
	newOnly := c.Query("new_only") == "true"
	matches, err := s.svcs.Users.ListMatches(c.Request.Context(), currentUser(c).ID, newOnly)
	if err != nil {
		respondErr(c, err)
		return
	}
	views := make([]gin.H, 0, len(matches))
	for _, m := range matches {
		views = append(views, matchView(m))
	}
	respondOK(c, gin.H{"matches": views, "total": len(views)})
}

func (s *Server) handleMarkMatchSeen(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.svcs.Users.MarkMatchSeen(c.Request.Context(), currentUser(c).ID, id); err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, gin.H{"seen": true})
}

func (s *Server) handleUnmatch(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.svcs.Users.Unmatch(c.Request.Context(), currentUser(c).ID, id); err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, gin.H{"unmatched": true})
}
