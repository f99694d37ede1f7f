package handlers

import (
	"net/http"
	"time"

	"asciier/internal/logging"
	"asciier/internal/middleware"

	"github.com/gorilla/websocket"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	writeWait  = 10 * time.Second
)

// SessionResponse describes the caller's session.
type SessionResponse struct {
	SessionID    string    `json:"sessionId"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
	Connected    bool      `json:"connected"`
}

// GetSession returns the session resolved for this request. Clients call it
// once to learn their id and send it back on later requests.
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	id := middleware.SessionID(r.Context())
	s, ok := h.sessions.Get(id)
	if !ok {
		writeError(w, notFound("Session not found"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, SessionResponse{
		SessionID:    s.ID,
		CreatedAt:    s.CreatedAt,
		LastActivity: s.LastActivity,
		Connected:    s.Connected,
	})
}

// SessionSocket holds a websocket open for as long as the client is present.
// Closing the last socket for a session starts its disconnect grace period.
// Any message from the client counts as activity.
func (h *Handlers) SessionSocket(w http.ResponseWriter, r *http.Request) {
	id := middleware.SessionID(r.Context())
	if id == "" {
		writeJSONError(w, "Session required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		logging.Debug("websocket upgrade failed for session %s: %v", id, err)
		return
	}
	defer conn.Close()

	h.sessions.Connect(id)
	defer h.sessions.OnDisconnect(id)

	done := make(chan struct{})
	defer close(done)
	go pingLoop(conn, done)

	if err := conn.WriteJSON(map[string]string{"type": "session", "sessionId": id}); err != nil {
		return
	}

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		h.sessions.Touch(id)
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Debug("websocket for session %s closed: %v", id, err)
			}
			return
		}
		h.sessions.Touch(id)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

// pingLoop keeps the connection alive until done is closed.
func pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
