// Package api exposes the HTTP surface: classification, override
// management, provider administration, health and metrics.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/mailsift/internal/classify/engine"
	"github.com/vietddude/mailsift/internal/core/domain"
	"github.com/vietddude/mailsift/internal/infra/llm"
)

// Pinger reports backend reachability for health checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to the Pinger interface.
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// Server serves the classification HTTP API.
type Server struct {
	engine *engine.Engine
	chain  *llm.Chain
	cache  Pinger // nil when no cache backend configured
	db     Pinger // nil when running on the in-memory store
	log    *slog.Logger
	server *http.Server
}

// NewServer wires the routes.
func NewServer(eng *engine.Engine, chain *llm.Chain, cache, db Pinger, port int, log *slog.Logger) *Server {
	mux := http.NewServeMux()
	s := &Server{
		engine: eng,
		chain:  chain,
		cache:  cache,
		db:     db,
		log:    log,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("POST /classify", s.handleClassify)
	mux.HandleFunc("POST /classify/batch", s.handleClassifyBatch)
	mux.HandleFunc("POST /overrides", s.handleSetOverride)
	mux.HandleFunc("GET /overrides", s.handleGetOverride)
	mux.HandleFunc("DELETE /overrides", s.handleDeleteOverride)
	mux.HandleFunc("GET /providers", s.handleListProviders)
	mux.HandleFunc("POST /providers/{name}/toggle", s.handleToggleProvider)
	mux.HandleFunc("POST /providers/{name}/priority", s.handleProviderPriority)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

type classifyRequest struct {
	domain.Item
	UserID string `json:"user_id"`
}

type classifyResponse struct {
	ItemID string `json:"item_id"`
	domain.Result
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Sender == "" && req.Subject == "" {
		writeError(w, http.StatusBadRequest, "sender or subject is required")
		return
	}

	userID := userIDFrom(r, req.UserID)
	result := s.engine.Classify(r.Context(), req.Item, userID)
	writeJSON(w, http.StatusOK, classifyResponse{ItemID: req.Item.ContentHash(), Result: result})
}

type batchRequest struct {
	Items  []domain.Item `json:"items"`
	UserID string        `json:"user_id"`
}

func (s *Server) handleClassifyBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "items is required")
		return
	}

	userID := userIDFrom(r, req.UserID)
	results := s.engine.ClassifyBatch(r.Context(), req.Items, userID)

	out := make([]classifyResponse, len(results))
	for i := range results {
		out[i] = classifyResponse{ItemID: req.Items[i].ContentHash(), Result: results[i]}
	}
	writeJSON(w, http.StatusOK, out)
}

type overrideRequest struct {
	ItemID   string            `json:"item_id"`
	UserID   string            `json:"user_id"`
	Category domain.Category   `json:"category"`
	Metadata map[string]string `json:"metadata"`
}

func (s *Server) handleSetOverride(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ItemID == "" {
		writeError(w, http.StatusBadRequest, "item_id is required")
		return
	}

	userID := userIDFrom(r, req.UserID)
	override, err := s.engine.SetOverride(r.Context(), req.ItemID, userID, req.Category, req.Metadata)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, override)
}

func (s *Server) handleGetOverride(w http.ResponseWriter, r *http.Request) {
	itemID := r.URL.Query().Get("item_id")
	if itemID == "" {
		writeError(w, http.StatusBadRequest, "item_id is required")
		return
	}
	userID := userIDFrom(r, r.URL.Query().Get("user_id"))

	override, err := s.engine.GetOverride(r.Context(), itemID, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if override == nil {
		writeError(w, http.StatusNotFound, "override not found")
		return
	}
	writeJSON(w, http.StatusOK, override)
}

func (s *Server) handleDeleteOverride(w http.ResponseWriter, r *http.Request) {
	itemID := r.URL.Query().Get("item_id")
	if itemID == "" {
		writeError(w, http.StatusBadRequest, "item_id is required")
		return
	}
	userID := userIDFrom(r, r.URL.Query().Get("user_id"))

	if err := s.engine.DeleteOverride(r.Context(), itemID, userID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.chain.Snapshot())
}

type toggleRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleToggleProvider(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.chain.Toggle(name, req.Enabled); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	// Only entries resolved by this provider are invalidated, the rest of
	// the cache stays valid.
	invalidated, err := s.engine.InvalidateProviderResults(r.Context(), name)
	if err != nil {
		s.log.Warn("cache invalidation failed after toggle", "provider", name, "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"name":        name,
		"enabled":     req.Enabled,
		"invalidated": invalidated,
	})
}

type priorityRequest struct {
	Priority int `json:"priority"`
}

func (s *Server) handleProviderPriority(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var req priorityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.chain.SetPriority(name, req.Priority); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "priority": req.Priority})
}

type healthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

// handleHealth reports degraded, not failing, when providers or backends
// are unreachable: the rule fallback keeps classification functional.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := make(map[string]string)
	status := "healthy"

	check := func(name string, p Pinger) {
		if p == nil {
			components[name] = "not_configured"
			return
		}
		if err := p.Ping(ctx); err != nil {
			components[name] = "unreachable"
			status = "degraded"
			return
		}
		components[name] = "ok"
	}
	check("cache", s.cache)
	check("database", s.db)

	if s.chain.Available() {
		components["providers"] = "ok"
	} else {
		components["providers"] = "none_enabled"
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, healthResponse{Status: status, Components: components})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func userIDFrom(r *http.Request, bodyUserID string) string {
	if header := r.Header.Get("X-User-ID"); header != "" {
		return header
	}
	return bodyUserID
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
