package engine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/redbco/askdata/internal/router"
)

// requestTimeout bounds one query end to end: generation across both
// tiers plus validation and execution.
const requestTimeout = 120 * time.Second

type Server struct {
	engine *Engine
	router *mux.Router
}

func NewServer(engine *Engine) *Server {
	s := &Server{
		engine: engine,
		router: mux.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	// CORS middleware
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-ID")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/query", s.handleQuery).Methods(http.MethodPost)
	api.HandleFunc("/datasources/{id}/schema", s.handleSchema).Methods(http.MethodGet)
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
}

type queryRequest struct {
	Query        string `json:"query"`
	DatasourceID string `json:"datasource_id"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	s.engine.TrackOperation()
	defer s.engine.UntrackOperation()

	requesterID := r.Header.Get("X-User-ID")
	if requesterID == "" {
		http.Error(w, "missing user identity", http.StatusUnauthorized)
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Query == "" || req.DatasourceID == "" {
		http.Error(w, "query and datasource_id are required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	outcome := s.engine.router.Route(ctx, req.Query, req.DatasourceID, requesterID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(outcome)
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	s.engine.TrackOperation()
	defer s.engine.UntrackOperation()

	requesterID := r.Header.Get("X-User-ID")
	if requesterID == "" {
		http.Error(w, "missing user identity", http.StatusUnauthorized)
		return
	}

	datasourceID := mux.Vars(r)["id"]

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	info, err := s.engine.router.SchemaInfo(ctx, datasourceID, requesterID)
	if err != nil {
		switch {
		case errors.Is(err, router.ErrNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, router.ErrAccessDenied):
			http.Error(w, err.Error(), http.StatusForbidden)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.engine.RunHealthChecks(r.Context())
	status, checks := s.engine.HealthReport()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  status,
		"checks":  checks,
		"metrics": s.engine.GetMetrics(),
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
