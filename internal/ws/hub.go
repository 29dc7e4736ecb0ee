// Package ws is the realtime layer: a process-wide hub mapping authenticated
// users to live WebSocket connections and to the conversations they receive
// broadcasts for. The hub is an injected service instance, not package state.
package ws

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/flameapp/flame-backend/internal/cache"
	"github.com/flameapp/flame-backend/internal/repository"
)

const presenceTTL = 2 * time.Minute

// Hub owns the connection registry and subscription map. All three maps are
// guarded by mu; broadcast iterates under RLock and skips users that
// disconnect concurrently.
type Hub struct {
	mu      sync.RWMutex
	clients map[uint64]*Client
	// userID -> set of conversation ids eligible for broadcast delivery
	subscriptions map[uint64]map[uint64]struct{}

	users *repository.UserRepository
	convs *repository.ConversationRepository
	cache *cache.RedisCache
	log   *slog.Logger
}

// NewHub creates the hub. One instance per process, wired in main.
func NewHub(users *repository.UserRepository, convs *repository.ConversationRepository, rc *cache.RedisCache, log *slog.Logger) *Hub {
	return &Hub{
		clients:       make(map[uint64]*Client),
		subscriptions: make(map[uint64]map[uint64]struct{}),
		users:         users,
		convs:         convs,
		cache:         rc,
		log:           log,
	}
}

// Register activates a connection: stores it in the registry, marks the user
// online, snapshots their conversation subscriptions and tells the other
// participants they came online.
//
// A user holds at most one connection. If a second one arrives the superseded
// connection is explicitly closed before being replaced, so the stale handle
// is never silently orphaned.
func (h *Hub) Register(ctx context.Context, c *Client) {
	h.mu.Lock()
	if prev, ok := h.clients[c.userID]; ok && prev != c {
		prev.closeSend()
	}
	h.clients[c.userID] = c
	h.subscriptions[c.userID] = make(map[uint64]struct{})
	h.mu.Unlock()

	if err := h.users.SetPresence(ctx, c.userID, true); err != nil {
		h.log.Error("failed to mark user online", "user_id", c.userID, "err", err)
	}
	if err := h.cache.SetOnline(ctx, c.userID, presenceTTL); err != nil {
		h.log.Warn("presence cache write failed", "user_id", c.userID, "err", err)
	}

	convIDs, err := h.convs.ListIDsForUser(ctx, c.userID)
	if err != nil {
		h.log.Error("failed to load subscriptions", "user_id", c.userID, "err", err)
		convIDs = nil
	}

	h.mu.Lock()
	for _, id := range convIDs {
		h.subscriptions[c.userID][id] = struct{}{}
	}
	h.mu.Unlock()

	h.notifyPresence(ctx, c.userID, true)
	h.log.Debug("client registered", "user_id", c.userID, "conversations", len(convIDs))
}

// Unregister removes the connection from both maps and marks the user
// offline. A connection that was already superseded by a newer one for the
// same user leaves the replacement untouched.
func (h *Hub) Unregister(ctx context.Context, c *Client) {
	h.mu.Lock()
	current, ok := h.clients[c.userID]
	superseded := ok && current != c
	if ok && !superseded {
		delete(h.clients, c.userID)
		delete(h.subscriptions, c.userID)
	}
	h.mu.Unlock()

	if superseded {
		return
	}

	if err := h.users.SetPresence(ctx, c.userID, false); err != nil {
		h.log.Error("failed to mark user offline", "user_id", c.userID, "err", err)
	}
	if err := h.cache.SetOffline(ctx, c.userID); err != nil {
		h.log.Warn("presence cache delete failed", "user_id", c.userID, "err", err)
	}

	h.notifyPresence(ctx, c.userID, false)
	h.log.Debug("client unregistered", "user_id", c.userID)
}

// Subscribe adds a conversation to a connected user's live subscription set.
// Called when a new match creates a conversation mid-session; a no-op for
// users that are not connected (they snapshot on their next connect).
func (h *Hub) Subscribe(userID, conversationID uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subscriptions[userID]; ok {
		set[conversationID] = struct{}{}
	}
}

// IsConnected reports whether the user currently holds a live connection.
func (h *Hub) IsConnected(userID uint64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// IsSubscribed reports whether the user's live session receives broadcasts
// for the conversation.
func (h *Hub) IsSubscribed(userID, conversationID uint64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	set, ok := h.subscriptions[userID]
	if !ok {
		return false
	}
	_, ok = set[conversationID]
	return ok
}

// SendToUser delivers the event directly if the user is connected and
// silently drops it otherwise. There is no offline queueing.
func (h *Hub) SendToUser(event Event, userID uint64) bool {
	h.mu.RLock()
	c, ok := h.clients[userID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	c.enqueue(event)
	return true
}

// BroadcastToConversation delivers the event to every connected user whose
// subscription set contains the conversation, skipping excludeUserID
// (typically the actor who caused the event; 0 excludes nobody).
func (h *Hub) BroadcastToConversation(event Event, conversationID, excludeUserID uint64) {
	h.mu.RLock()
	targets := make([]*Client, 0, 2)
	for userID, set := range h.subscriptions {
		if userID == excludeUserID {
			continue
		}
		if _, ok := set[conversationID]; !ok {
			continue
		}
		if c, connected := h.clients[userID]; connected {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.enqueue(event)
	}
}

// notifyPresence tells the other participant of each of the user's
// conversations that they went on- or offline.
func (h *Hub) notifyPresence(ctx context.Context, userID uint64, online bool) {
	convs, err := h.convs.ListForUser(ctx, userID)
	if err != nil {
		h.log.Warn("presence notify skipped", "user_id", userID, "err", err)
		return
	}
	name := EvUserOffline
	if online {
		name = EvUserOnline
	}
	event := Event{Event: name, Data: map[string]any{"user_id": userID}}
	for _, conv := range convs {
		h.SendToUser(event, conv.OtherUserID(userID))
	}
}
