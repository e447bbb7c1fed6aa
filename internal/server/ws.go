package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The API is CORS-open; the websocket follows the same policy.
	CheckOrigin: func(*http.Request) bool { return true },
}

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// handleJobEvents streams one job's lifecycle events over a websocket. The
// connection closes after the terminal event. There is no replay: a client
// that connects after completion only gets the close handshake on timeout,
// so clients should subscribe before (or immediately after) uploading.
func (s *Server) handleJobEvents(c *gin.Context) {
	jobID := c.Param("jobID")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("server.ws.upgrade_failed", "job_id", jobID, "error", err)
		return
	}
	defer conn.Close()

	ch, cancel := s.bus.Subscribe(jobID)
	defer cancel()

	// Read pump: we never expect client messages, but reading is how we
	// notice the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	s.logger.Debug("server.ws.subscribed", "job_id", jobID)
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(e); err != nil {
				s.logger.Debug("server.ws.write_failed", "job_id", jobID, "error", err)
				return
			}
			if e.Terminal() {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(e.Status)))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
