package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/loca555/tls-oracle-near/mpctls"
)

// upgrader mirrors tee_k/main.go's WebSocket upgrader: origin checking is
// left to the gateway in front of this service, not duplicated here.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type streamEvent struct {
	SessionID string `json:"sessionId"`
	State     string `json:"state"`
}

// handleProveStream lets a caller watch a running session's state-machine
// transitions in real time instead of blocking on the whole /prove
// round-trip, the same progress-visibility idea as tee_k/main.go's
// WSConnection.sendResponse, narrowed to one broadcast direction.
func (s *Server) handleProveStream(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		http.Error(w, "sessionId query parameter is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.Warn("prove/stream: websocket upgrade failed")
		return
	}
	defer conn.Close()

	events, unsubscribe := s.Driver.Subscribe(sessionID)
	defer unsubscribe()

	for {
		select {
		case state, ok := <-events:
			if !ok {
				return
			}
			body, err := json.Marshal(streamEvent{SessionID: sessionID, State: state.String()})
			if err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
				return
			}
			if state.Terminal() {
				return
			}
		case <-time.After(mpctls.DefaultSessionTimeout + 10*time.Second):
			return
		}
	}
}
