// Package server is the HTTP surface: gin routing, auth middleware, request
// handlers and the WebSocket upgrade endpoint.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flameapp/flame-backend/internal/app"
	"github.com/flameapp/flame-backend/internal/repository"
	"github.com/flameapp/flame-backend/internal/service/auth"
	"github.com/flameapp/flame-backend/internal/service/chat"
	"github.com/flameapp/flame-backend/internal/service/discovery"
	"github.com/flameapp/flame-backend/internal/service/swipe"
	"github.com/flameapp/flame-backend/internal/service/user"
	"github.com/flameapp/flame-backend/internal/token"
	"github.com/flameapp/flame-backend/internal/ws"
)

// Services groups the business-logic dependencies the handlers call into.
type Services struct {
	Auth      *auth.Service
	Users     *user.Service
	Swipes    *swipe.Service
	Discovery *discovery.Service
	Chat      *chat.Service
}

// Server wires the gin engine to the services and the realtime hub.
type Server struct {
	appCtx *app.AppContext
	engine *gin.Engine
	hub    *ws.Hub
	tokens *token.Service
	users  *repository.UserRepository
	svcs   Services
}

// New builds the router with all routes registered.
func New(appCtx *app.AppContext, tokens *token.Service, hub *ws.Hub, svcs Services) *Server {
	if appCtx.Config.App.ENV == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		appCtx: appCtx,
		engine: gin.New(),
		hub:    hub,
		tokens: tokens,
		users:  repository.NewUserRepository(appCtx.DB),
		svcs:   svcs,
	}
	s.routes()
	return s
}

// Handler exposes the engine for http.Server and tests.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() {
	s.engine.Use(gin.Recovery(), s.requestLogger())

	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/ws", s.handleWebSocket)

	v1 := s.engine.Group("/api/v1")

	authGroup := v1.Group("/auth")
	authGroup.POST("/register", s.handleRegister)
	authGroup.POST("/login", s.handleLogin)
	authGroup.POST("/refresh", s.handleRefresh)
	authGroup.POST("/logout", s.handleLogout)

	private := v1.Group("")
	private.Use(s.authRequired())

	private.POST("/auth/verify-email", s.handleVerifyEmail)
	private.POST("/auth/change-password", s.handleChangePassword)

	private.GET("/users/me", s.handleGetMe)
	private.PATCH("/users/me", s.handleUpdateProfile)
	private.DELETE("/users/me", s.handleDeleteAccount)
	private.PUT("/users/me/preferences", s.handleUpdatePreferences)
	private.PUT("/users/me/location", s.handleUpdateLocation)
	private.POST("/users/me/photos", s.handleAddPhoto)
	private.PUT("/users/me/photos/order", s.handleReorderPhotos)
	private.PUT("/users/me/photos/:photoId/primary", s.handleSetPrimaryPhoto)
	private.DELETE("/users/me/photos/:photoId", s.handleDeletePhoto)

	private.GET("/users/:id", s.handleGetUser)
	private.POST("/users/:id/block", s.handleBlockUser)
	private.DELETE("/users/:id/block", s.handleUnblockUser)
	private.POST("/users/:id/report", s.handleReportUser)
	private.GET("/blocks", s.handleListBlocked)

	private.GET("/discover", s.handleDiscover)

	private.POST("/swipes/like/:id", s.handleLike)
	private.POST("/swipes/pass/:id", s.handlePass)
	private.POST("/swipes/super-like/:id", s.handleSuperLike)
	private.POST("/swipes/undo", s.handleUndoSwipe)

	private.GET("/matches", s.handleListMatches)
	private.POST("/matches/:id/seen", s.handleMarkMatchSeen)
	private.DELETE("/matches/:id", s.handleUnmatch)

	private.GET("/conversations", s.handleListConversations)
	private.GET("/conversations/unread-count", s.handleUnreadCount)
	private.GET("/conversations/:id/messages", s.handleGetMessages)
	private.POST("/conversations/:id/messages", s.handleSendMessage)
	private.POST("/conversations/:id/read", s.handleMarkRead)
	private.POST("/conversations/:id/mute", s.handleMute)
	private.POST("/conversations/:id/pins/:messageId", s.handlePinMessage)
	private.DELETE("/conversations/:id/pins/:messageId", s.handleUnpinMessage)

	private.PATCH("/messages/:id", s.handleEditMessage)
	private.DELETE("/messages/:id", s.handleDeleteMessage)
	private.POST("/messages/:id/reactions", s.handleAddReaction)
	private.DELETE("/messages/:id/reactions", s.handleRemoveReaction)
}

func (s *Server) handleHealth(c *gin.Context) {
	status := gin.H{"status": "ok"}
	if err := s.appCtx.RedisCache.Ping(c.Request.Context()); err != nil {
		status["redis"] = "down"
	}
	c.JSON(http.StatusOK, status)
}
