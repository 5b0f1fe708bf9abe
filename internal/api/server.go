package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/zde37/chordsim/internal/chord"
	"github.com/zde37/chordsim/pkg"
)

const requestIDHeader = "X-Request-ID"

// Server exposes a Ring over HTTP and streams its events over WebSocket.
type Server struct {
	httpServer *http.Server
	wsHub      *WebSocketHub
	ring       *chord.Ring
	logger     *pkg.Logger

	handler     http.Handler
	handlerOnce sync.Once
	hubOnce     sync.Once
}

// Config holds the HTTP server configuration.
type Config struct {
	HTTPPort int
}

// NewServer creates a server for ring and registers its WebSocket hub as the
// ring's event broadcaster.
func NewServer(cfg *Config, ring *chord.Ring, logger *pkg.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if ring == nil {
		return nil, fmt.Errorf("ring cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.HTTPPort < 0 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port %d", cfg.HTTPPort)
	}

	wsHub := NewWebSocketHub(logger)
	ring.SetBroadcaster(wsHub)

	s := &Server{
		wsHub:  wsHub,
		ring:   ring,
		logger: logger.WithFields(pkg.Fields{"component": "http_api"}),
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// Hub returns the server's WebSocket hub.
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	s.handlerOnce.Do(func() {
		mux := http.NewServeMux()

		mux.HandleFunc("GET /health", s.healthHandler)
		mux.HandleFunc("GET /api/ring", s.ringHandler)
		mux.HandleFunc("POST /api/nodes", s.joinHandler)
		mux.HandleFunc("DELETE /api/nodes/{id}", s.leaveHandler)
		mux.HandleFunc("GET /api/nodes/{id}/fingers", s.fingersHandler)
		mux.HandleFunc("GET /api/nodes/{id}/keys", s.keysHandler)
		mux.HandleFunc("PUT /api/keys/{key}", s.insertHandler)
		mux.HandleFunc("GET /api/keys/{key}", s.lookupHandler)
		mux.HandleFunc("DELETE /api/keys/{key}", s.removeHandler)

		// WebSocket endpoint for live updates
		mux.HandleFunc("GET /api/ws", s.wsHub.HandleWebSocket)

		s.handler = s.requestIDMiddleware(corsMiddleware(mux))
	})
	return s.handler
}

// StartHub runs the WebSocket hub loop. Start calls it; tests that serve
// Handler directly call it themselves.
func (s *Server) StartHub() {
	s.hubOnce.Do(func() {
		s.wsHub.Start()
	})
}

// Start starts the HTTP server in the background.
func (s *Server) Start() error {
	s.StartHub()
	s.httpServer.Handler = s.Handler()

	s.logger.Info().
		Str("addr", s.httpServer.Addr).
		Msg("Starting HTTP API server")

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping HTTP API server")

	s.ring.SetBroadcaster(nil)

	s.wsHub.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info().Msg("HTTP API server stopped")
	return nil
}

type memberView struct {
	ID       int                 `json:"id"`
	Fingers  []chord.FingerEntry `json:"fingers"`
	KeyCount int                 `json:"key_count"`
	Stats    pkg.Stats           `json:"stats"`
}

type ringView struct {
	M         int          `json:"m"`
	Positions int          `json:"positions"`
	Members   []memberView `json:"members"`
}

type joinRequest struct {
	ID      int  `json:"id"`
	Contact *int `json:"contact,omitempty"`
}

type insertRequest struct {
	From  *int `json:"from,omitempty"`
	Value *int `json:"value,omitempty"`
}

type lookupResponse struct {
	Key   int   `json:"key"`
	Owner int   `json:"owner"`
	Path  []int `json:"path"`
	Hops  int   `json:"hops"`
	Value int   `json:"value"`
	Found bool  `json:"found"`
}

// healthHandler handles health check requests.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"members": s.ring.Len(),
	})
}

func (s *Server) ringHandler(w http.ResponseWriter, r *http.Request) {
	space := s.ring.Space()
	view := ringView{
		M:         space.Bits(),
		Positions: space.Size(),
		Members:   []memberView{},
	}

	for _, id := range s.ring.Members() {
		node, err := s.ring.Member(id)
		if err != nil {
			// Left between listing and reading
			continue
		}
		fingers, err := s.ring.FingerTableOf(node)
		if err != nil {
			s.writeError(w, err)
			return
		}
		keys, err := s.ring.KeysOf(node)
		if err != nil {
			s.writeError(w, err)
			return
		}
		view.Members = append(view.Members, memberView{
			ID:       id,
			Fingers:  fingers,
			KeyCount: len(keys),
			Stats:    node.Stats(),
		})
	}

	writeJSON(w, http.StatusOK, view)
}

func (s *Server) joinHandler(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return
	}

	if _, err := s.ring.Member(req.ID); err == nil {
		s.writeError(w, fmt.Errorf("node %d: %w", req.ID, pkg.ErrDuplicateID))
		return
	}

	node, err := s.ring.CreateNode(req.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var contact *chord.Node
	if req.Contact != nil {
		contact, err = s.ring.Member(*req.Contact)
		if err != nil {
			s.writeError(w, fmt.Errorf("contact: %w", err))
			return
		}
	}

	report, err := s.ring.Join(node, contact)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, report)
}

func (s *Server) leaveHandler(w http.ResponseWriter, r *http.Request) {
	node, ok := s.memberFromPath(w, r)
	if !ok {
		return
	}

	report, err := s.ring.Leave(node)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) fingersHandler(w http.ResponseWriter, r *http.Request) {
	node, ok := s.memberFromPath(w, r)
	if !ok {
		return
	}

	fingers, err := s.ring.FingerTableOf(node)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": node.ID(), "fingers": fingers})
}

func (s *Server) keysHandler(w http.ResponseWriter, r *http.Request) {
	node, ok := s.memberFromPath(w, r)
	if !ok {
		return
	}

	keys, err := s.ring.KeysOf(node)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": node.ID(), "keys": keys})
}

func (s *Server) insertHandler(w http.ResponseWriter, r *http.Request) {
	key, ok := pathInt(w, r, "key")
	if !ok {
		return
	}

	var req insertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return
	}

	from, err := s.startNode(req.From)
	if err != nil {
		s.writeError(w, err)
		return
	}

	value := chord.AbsentValue
	if req.Value != nil {
		value = *req.Value
	}

	if err := s.ring.InsertKey(from, key, value); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"key": key, "value": value})
}

func (s *Server) lookupHandler(w http.ResponseWriter, r *http.Request) {
	key, ok := pathInt(w, r, "key")
	if !ok {
		return
	}
	from, ok := s.startFromQuery(w, r)
	if !ok {
		return
	}

	result, value, found, err := s.ring.Get(from, key)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, lookupResponse{
		Key:   key,
		Owner: result.Owner,
		Path:  result.Path,
		Hops:  result.Hops(),
		Value: value,
		Found: found,
	})
}

func (s *Server) removeHandler(w http.ResponseWriter, r *http.Request) {
	key, ok := pathInt(w, r, "key")
	if !ok {
		return
	}
	from, ok := s.startFromQuery(w, r)
	if !ok {
		return
	}

	if err := s.ring.RemoveKey(from, key); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) memberFromPath(w http.ResponseWriter, r *http.Request) (*chord.Node, bool) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return nil, false
	}
	node, err := s.ring.Member(id)
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return node, true
}

func (s *Server) startFromQuery(w http.ResponseWriter, r *http.Request) (*chord.Node, bool) {
	var from *int
	if raw := r.URL.Query().Get("from"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid from %q", raw)})
			return nil, false
		}
		from = &id
	}

	node, err := s.startNode(from)
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return node, true
}

// startNode resolves the node a request routes from, defaulting to the
// smallest member.
func (s *Server) startNode(id *int) (*chord.Node, error) {
	if id != nil {
		return s.ring.Member(*id)
	}
	members := s.ring.Members()
	if len(members) == 0 {
		return nil, fmt.Errorf("no node to route from: %w", pkg.ErrEmptyRing)
	}
	return s.ring.Member(members[0])
}

func pathInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.PathValue(name)
	v, err := strconv.Atoi(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid %s %q", name, raw)})
		return 0, false
	}
	return v, true
}

// statusFor maps ring errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pkg.ErrInvalidID), errors.Is(err, pkg.ErrInvalidKey):
		return http.StatusBadRequest
	case errors.Is(err, pkg.ErrDuplicateID), errors.Is(err, pkg.ErrEmptyRing):
		return http.StatusConflict
	case errors.Is(err, pkg.ErrNotAMember):
		return http.StatusNotFound
	case errors.Is(err, pkg.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("request_id", w.Header().Get(requestIDHeader)).Msg("Request failed")
	}
	writeJSON(w, status, map[string]string{
		"error":      err.Error(),
		"request_id": w.Header().Get(requestIDHeader),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// requestIDMiddleware tags every request with an id and logs it.
func (s *Server) requestIDMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = xid.New().String()
		}
		w.Header().Set(requestIDHeader, id)

		start := time.Now()
		h.ServeHTTP(w, r)

		s.logger.Debug().
			Str("request_id", id).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("Handled request")
	})
}

// corsMiddleware adds CORS headers to responses.
func corsMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+requestIDHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}
