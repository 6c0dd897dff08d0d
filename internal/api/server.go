// Package api serves a reconciled snapshot over a read-only HTTP API.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/regionsync/internal/reconcile"
)

// Server answers region queries from one immutable snapshot.
type Server struct {
	snap *reconcile.Snapshot
	log  *zap.Logger
}

// NewServer creates a Server for snap.
func NewServer(snap *reconcile.Snapshot, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{snap: snap, log: log}
}

// Handler returns the router with CORS and request logging installed.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Get("/sources", s.sources)
	r.Get("/search", s.search)
	r.Route("/regions", func(r chi.Router) {
		r.Get("/", s.listRegions)
		r.Get("/object/{id}", s.regionByObjectID)
		r.Get("/{ags}", s.regionByKey)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"regions":   s.snap.Len(),
		"generated": s.snap.Generated(),
	})
}

func (s *Server) sources(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snap.Sources())
}

func (s *Server) listRegions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snap.Entities())
}

func (s *Server) regionByKey(w http.ResponseWriter, r *http.Request) {
	ags := chi.URLParam(r, "ags")
	ent, ok := s.snap.ByKey(ags)
	if !ok {
		writeError(w, http.StatusNotFound, "region not found: "+ags)
		return
	}
	writeJSON(w, http.StatusOK, ent)
}

func (s *Server) regionByObjectID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid object id")
		return
	}
	ent, ok := s.snap.ByObjectID(id)
	if !ok {
		writeError(w, http.StatusNotFound, "region not found")
		return
	}
	writeJSON(w, http.StatusOK, ent)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	found := s.snap.FindByName(q)
	if found == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
