package controllers

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"nourish/services"
)

type WSClient struct {
	UserID int64
	Conn   *websocket.Conn

	mu sync.Mutex
}

func (c *WSClient) write(kind int, msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(kind, msg)
}

// RealtimeHub tracks websocket clients per user.
type RealtimeHub struct {
	mu      sync.RWMutex
	clients map[int64]map[*WSClient]struct{}
	log     *zap.Logger
}

func NewRealtimeHub(log *zap.Logger) *RealtimeHub {
	return &RealtimeHub{clients: make(map[int64]map[*WSClient]struct{}), log: log}
}

func (h *RealtimeHub) Register(c *WSClient) {
	h.mu.Lock()
	if h.clients[c.UserID] == nil {
		h.clients[c.UserID] = make(map[*WSClient]struct{})
	}
	h.clients[c.UserID][c] = struct{}{}
	h.mu.Unlock()
}

func (h *RealtimeHub) Unregister(c *WSClient) {
	h.mu.Lock()
	if set := h.clients[c.UserID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.UserID)
		}
	}
	h.mu.Unlock()
	_ = c.Conn.Close()
}

// Connected returns how many sockets a user has open.
func (h *RealtimeHub) Connected(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Broadcast sends e to every socket of userID.
func (h *RealtimeHub) Broadcast(userID int64, e services.Event) {
	msg, err := json.Marshal(e)
	if err != nil {
		h.log.Error("encode change event", zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[userID] {
		if err := c.write(websocket.TextMessage, msg); err != nil {
			h.log.Debug("websocket write failed", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
}
