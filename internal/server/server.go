// Package server provides the HTTP backend for the enrichment
// dashboard: session upload, analysis runs, and TSV result downloads.
package server

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/seqworks/funcenrich/internal/kegg"
	"github.com/seqworks/funcenrich/internal/keggstore"
	"github.com/seqworks/funcenrich/internal/pipeline"
)

// Server handles dashboard requests. Analysis runs synchronously within
// the triggering request; there are no background workers.
type Server struct {
	pipeline *pipeline.Pipeline
	sessions *sessionStore
	logger   *zap.Logger
}

// New creates a server. The store may be nil to run without a local
// KEGG cache.
func New(client *kegg.Client, store *keggstore.Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := pipeline.New(client, store)
	p.SetLogger(logger)
	return &Server{
		pipeline: p,
		sessions: newSessionStore(),
		logger:   logger,
	}
}

// Router returns the request mux.
func (s *Server) Router() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", s.HealthCheck)
	mux.HandleFunc("POST /api/v1/session", s.CreateSession)
	mux.HandleFunc("GET /api/v1/session/{id}", s.SessionStatus)
	mux.HandleFunc("DELETE /api/v1/session/{id}", s.DeleteSession)
	mux.HandleFunc("POST /api/v1/session/{id}/run", s.RunAnalysis)
	mux.HandleFunc("GET /api/v1/session/{id}/result/{table}", s.DownloadResult)

	return mux
}

// ListenAndServe starts the server on addr.
func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("server starting", zap.String("addr", addr))
	return http.ListenAndServe(addr, s.Router())
}
