package api

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RegisterEventRoutes registers the websocket progress stream.
func (s *Server) RegisterEventRoutes(r *gin.Engine) {
	r.GET("/api/events", s.handleEvents)
}

// handleEvents streams batch events as JSON messages. ?since=N resumes after
// sequence N.
func (s *Server) handleEvents(c *gin.Context) {
	since, _ := strconv.ParseInt(c.Query("since"), 10, 64)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("⚠️  websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	// The client never sends anything useful; reading detects disconnects.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	bus := s.state.Events()
	for {
		wait := bus.Wait()
		for _, ev := range bus.Since(since) {
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
			since = ev.Seq
		}

		select {
		case <-wait:
		case <-closed:
			return
		case <-s.ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		}
	}
}
