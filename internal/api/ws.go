package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleContestEvents streams a contest's state-change events over a
// websocket. The subscription replays cached events first, then live ones.
func (h *Handler) handleContestEvents(c *gin.Context) {
	slug := c.Param("slug")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.S().Errorf("failed to upgrade websocket for contest %s: %v", slug, err)
		return
	}
	defer conn.Close()

	events, unsubscribe := h.broker.Subscribe(slug)
	defer unsubscribe()

	// Drain the read side so close frames are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				zap.S().Debugf("websocket write for contest %s failed: %v", slug, err)
				return
			}
		case <-done:
			return
		}
	}
}
