package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const pingInterval = 25 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// LiveChanges streams the caller's change events over a websocket.
func (s *Server) LiveChanges(c *gin.Context) {
	uid := userIDFromCtx(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	cl := &WSClient{UserID: uid, Conn: conn}
	s.Hub.Register(cl)

	done := make(chan struct{})
	go func() {
		t := time.NewTicker(pingInterval)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				if err := cl.write(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// The read loop ends when the client goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			close(done)
			s.Hub.Unregister(cl)
			return
		}
	}
}
