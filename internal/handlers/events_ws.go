package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cgportal/feedback-backend/internal/middleware"
	"github.com/cgportal/feedback-backend/internal/services"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 90 * time.Second
	wsPingPeriod = 30 * time.Second
)

var feedbackUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The route sits behind RequireRoles, so the session token is the gate.
		return true
	},
}

// FeedbackEvents streams feedback.created and feedback.updated events to a
// dashboard over WebSocket. Browsers pass the session token as ?token=.
func (h *Handler) FeedbackEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := feedbackUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error
		return
	}
	defer conn.Close()

	sub := h.Hub.Subscribe()
	defer h.Hub.Unsubscribe(sub)

	user := "anonymous"
	if p, ok := middleware.PrincipalFrom(r.Context()); ok {
		user = p.Username
	}
	h.Log.Info("dashboard connected", zap.String("user", user), zap.Int("listeners", h.Hub.Len()))

	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(services.FeedbackEvent{Type: "connected", Timestamp: h.now().UTC()}); err != nil {
		return
	}

	done := make(chan struct{})
	pumped := make(chan struct{})
	go func() {
		defer close(pumped)
		h.pumpEvents(conn, sub, done)
	}()

	// Reader loop: clients only send pings; anything else is discarded
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	}
	close(done)
	<-pumped
	h.Log.Info("dashboard disconnected", zap.String("user", user))
}

// pumpEvents is the only writer on conn after the greeting.
func (h *Handler) pumpEvents(conn *websocket.Conn, sub *services.Subscription, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case msg, ok := <-sub.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				// Dropped by the hub for falling behind
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too slow"))
				conn.Close()
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				conn.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		}
	}
}
