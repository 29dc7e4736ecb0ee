package server

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/flameapp/flame-backend/internal/apperr"
	"github.com/flameapp/flame-backend/internal/db"
)

// ctxUserKey is the gin context key holding the authenticated *db.User.
const ctxUserKey = "auth_user"

// authRequired validates the Bearer access token and loads the user into the
// request context. Deleted accounts with live tokens get Unauthorized.
func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			respondErr(c, apperr.Unauthorized("missing bearer token"))
			return
		}

		userID, err := s.tokens.DecodeAccess(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			respondErr(c, err)
			return
		}

		user, err := s.users.GetByID(c.Request.Context(), userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondErr(c, apperr.Unauthorized("account no longer exists"))
			return
		}
		if err != nil {
			respondErr(c, err)
			return
		}

		c.Set(ctxUserKey, user)
		c.Next()
	}
}

// currentUser returns the user stored by authRequired.
func currentUser(c *gin.Context) *db.User {
	return c.MustGet(ctxUserKey).(*db.User)
}

// requestLogger logs one line per request with latency and status.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.appCtx.Logger.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
