package admin

import (
	"encoding/json"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/websocket"

	"uoproxy/internal/session"
)

// SessionSummary is the JSON shape returned by GET /api/sessions.
type SessionSummary struct {
	Username        string            `json:"username"`
	ServerIndex     int               `json:"serverIndex"`
	CharacterIndex  int               `json:"characterIndex"`
	Attached        int               `json:"attached"`
	Background      bool              `json:"background"`
	Autoreconnect   bool              `json:"autoreconnect"`
	Metrics         map[string]uint64 `json:"metrics"`
	BroadcastVolume string            `json:"broadcastVolume"`
}

// Server serves the admin HTTP+websocket surface on its own listen
// address, separate from the downstream game-client listener.
type Server struct {
	registry *session.Registry
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewServer builds an admin server backed by registry for session
// listing and hub for the live event feed.
func NewServer(registry *session.Registry, hub *Hub) *Server {
	return &Server{
		registry: registry,
		hub:      hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the mux serving /api/sessions and /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/sessions", s.handleSessions)
	mux.HandleFunc("/ws", s.handleWebsocket)
	return mux
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	summaries := make([]SessionSummary, 0, s.registry.Len())
	for _, sess := range s.registry.Snapshot() {
		metrics := sess.Metrics()
		summaries = append(summaries, SessionSummary{
			Username:        sess.Key.Username,
			ServerIndex:     sess.Key.ServerIndex,
			CharacterIndex:  sess.Key.CharacterIndex,
			Attached:        sess.Endpoints().Len(),
			Background:      sess.Background(),
			Autoreconnect:   sess.Autoreconnect(),
			Metrics:         metrics,
			BroadcastVolume: humanize.Bytes(metrics["broadcast_bytes"]),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(summaries); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	id := s.hub.Join(conn)
	defer s.hub.Leave(id)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
