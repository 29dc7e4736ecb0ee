package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/flameapp/flame-backend/internal/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Token auth happens after the upgrade; the origin check is left to the
	// deployment's reverse proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWebSocket upgrades the connection, authenticates via the token query
// parameter and hands the socket to the hub.
//
// Auth failures close with code 4001 after the upgrade so the client can tell
// a bad token apart from a network error.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.appCtx.Logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	userID, err := s.tokens.DecodeAccess(c.Query("token"))
	if err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(ws.CloseUnauthorized, "unauthorized"))
		_ = conn.Close()
		return
	}

	// The request context dies with the hijacked connection; the hub still
	// needs to persist the offline transition after that, so the client runs
	// on a background context.
	client := ws.NewClient(s.hub, userID, conn)
	client.Run(context.Background())
}
