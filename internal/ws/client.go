package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

// Client is one authenticated WebSocket connection. Inbound frames are
// processed strictly in arrival order on the read pump; outbound events are
// queued on send and written by the write pump.
type Client struct {
	hub    *Hub
	userID uint64
	conn   *websocket.Conn

	send chan Event
	done chan struct{}
	once sync.Once
}

// NewClient wraps an upgraded connection for the given user.
func NewClient(hub *Hub, userID uint64, conn *websocket.Conn) *Client {
	return &Client{
		hub:    hub,
		userID: userID,
		conn:   conn,
		send:   make(chan Event, sendBuffer),
		done:   make(chan struct{}),
	}
}

// UserID returns the authenticated user behind this connection.
func (c *Client) UserID() uint64 { return c.userID }

// Run registers the client and starts both pumps. It blocks until the
// connection drops, then unregisters.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(ctx, c)
	go c.writePump()
	c.readPump(ctx)
}

// closeSend stops the write pump; safe to call more than once.
func (c *Client) closeSend() {
	c.once.Do(func() { close(c.done) })
}

// enqueue queues an outbound event, dropping it if the connection is closing
// or the buffer is full. A slow consumer must not block a broadcast.
func (c *Client) enqueue(event Event) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- event:
	case <-c.done:
	default:
	}
}

// readPump consumes inbound frames one at a time. Any read or decode failure
// terminates the connection; per-frame errors are not reported back.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.closeSend()
		c.hub.Unregister(ctx, c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("read error", "user_id", c.userID, "err", err)
			}
			return
		}

		var event Event
		if err := json.Unmarshal(raw, &event); err != nil {
			c.hub.log.Debug("bad frame", "user_id", c.userID, "err", err)
			return
		}
		c.handle(event, raw)
	}
}

// handle routes one inbound event. Presence-style events fan out to the other
// conversation subscribers without touching persistence; durable read state
// goes through the REST markRead call instead.
func (c *Client) handle(event Event, raw []byte) {
	switch event.Event {
	case EvPing:
		c.enqueue(Event{Event: EvPong})

	case EvTyping, EvStopTyping, EvRecordingVoice:
		frame, ok := c.decodeFrame(raw)
		if !ok || frame.ConversationID == 0 {
			return
		}
		if !c.hub.IsSubscribed(c.userID, frame.ConversationID) {
			return
		}
		out := map[string]any{
			"conversation_id": frame.ConversationID,
			"user_id":         c.userID,
		}
		name := EvUserTyping
		switch event.Event {
		case EvStopTyping:
			name = EvUserStopTyping
		case EvRecordingVoice:
			name = EvUserRecording
		}
		c.hub.BroadcastToConversation(Event{Event: name, Data: out}, frame.ConversationID, c.userID)

	case EvMessageRead:
		frame, ok := c.decodeFrame(raw)
		if !ok || frame.ConversationID == 0 {
			return
		}
		if !c.hub.IsSubscribed(c.userID, frame.ConversationID) {
			return
		}
		c.hub.BroadcastToConversation(Event{
			Event: EvMessageStatus,
			Data: map[string]any{
				"conversation_id": frame.ConversationID,
				"message_ids":     frame.MessageIDs,
				"status":          "read",
			},
		}, frame.ConversationID, c.userID)
	}
}

// decodeFrame re-parses the frame with a typed data payload.
func (c *Client) decodeFrame(raw []byte) (clientFrame, bool) {
	var envelope struct {
		Data clientFrame `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return clientFrame{}, false
	}
	return envelope.Data, true
}

// writePump drains the send queue to the socket and keeps the connection
// alive with protocol-level pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case event := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}

		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
