// Package api exposes an optional debug HTTP server for inspecting
// daemon state.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/wayswitch/wayswitch/internal/config"
	"github.com/wayswitch/wayswitch/internal/logger"
)

// WindowInfo describes one tracked window in a snapshot.
type WindowInfo struct {
	ID         uint32   `json:"id"`
	Title      string   `json:"title"`
	AppID      string   `json:"app_id"`
	HasPreview bool     `json:"has_preview"`
	HasIcon    bool     `json:"has_icon"`
	Outputs    []uint32 `json:"outputs,omitempty"`
}

// Snapshot is a point-in-time view of the daemon state.
type Snapshot struct {
	Visibility string       `json:"visibility"`
	Selected   int          `json:"selected"`
	Windows    []WindowInfo `json:"windows"`
}

// SnapshotFunc produces a snapshot. The daemon supplies one that runs
// the read on its own loop, so handlers never touch shared state.
type SnapshotFunc func() Snapshot

// Server serves the debug endpoints.
type Server struct {
	router    *mux.Router
	snapshot  SnapshotFunc
	configMgr *config.Manager
	upgrader  websocket.Upgrader
	httpSrv   *http.Server

	mu          sync.Mutex
	subscribers map[chan Snapshot]struct{}
}

// NewServer creates a debug server over the given snapshot source.
func NewServer(snapshot SnapshotFunc, configMgr *config.Manager) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		snapshot:  snapshot,
		configMgr: configMgr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Local debug surface only.
				return true
			},
		},
		subscribers: make(map[chan Snapshot]struct{}),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/windows", s.handleWindows).Methods("GET")
	api.HandleFunc("/config", s.handleConfig).Methods("GET")
	api.HandleFunc("/events", s.handleEvents)
}

// Start begins listening on localhost at the given port. It returns
// once the listener goroutine is launched.
func (s *Server) Start(port int) {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	s.httpSrv = &http.Server{Addr: addr, Handler: s.router}

	log := logger.WithComponent("api")
	log.Info().Str("addr", addr).Msg("Debug server listening")

	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Debug server failed")
		}
	}()
}

// Stop shuts the server down and drops all websocket subscribers.
func (s *Server) Stop(ctx context.Context) {
	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			logger.WithComponent("api").Debug().Err(err).Msg("Debug server shutdown")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, ch)
	}
}

// Broadcast pushes a state change to all websocket subscribers. Slow
// subscribers miss intermediate snapshots rather than block the caller.
func (s *Server) Broadcast(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
		}
	}
}

func (s *Server) subscribe() chan Snapshot {
	ch := make(chan Snapshot, 16)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

func (s *Server) unsubscribe(ch chan Snapshot) {
	s.mu.Lock()
	if _, ok := s.subscribers[ch]; ok {
		delete(s.subscribers, ch)
		close(ch)
	}
	s.mu.Unlock()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleWindows(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.snapshot())
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.configMgr.Get())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithComponent("api").Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	updates := s.subscribe()
	defer s.unsubscribe(updates)

	if err := conn.WriteJSON(s.snapshot()); err != nil {
		return
	}

	for snap := range updates {
		if err := conn.WriteJSON(snap); err != nil {
			return
		}
	}
}
