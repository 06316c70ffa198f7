// Package api exposes the section engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/cardsections/internal/domain/model"
	"github.com/okian/cardsections/internal/domain/optimizer"
	"github.com/okian/cardsections/internal/domain/recorder"
	"github.com/okian/cardsections/internal/domain/reliability"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	OptimizeDependencies
	SelectionDependencies
	ReliabilityDependencies
	KeywordDependencies
	RebuildDependencies
}

// OptimizeDependencies runs the optimizer.
type OptimizeDependencies interface {
	Optimize(ctx context.Context, keywords []string, baseline []any) optimizer.Result
}

// SelectionDependencies records generation outcomes.
type SelectionDependencies interface {
	Record(ctx context.Context, in recorder.Input) (string, error)
}

// ReliabilityDependencies exposes per-section reliability.
type ReliabilityDependencies interface {
	Reliability(id model.SectionRef) reliability.Entry
	ReliabilityReport() []reliability.Entry
}

// KeywordDependencies exposes keyword correlations.
type KeywordDependencies interface {
	BestSections(keyword string, topN int) []model.ScoredSection
}

// RebuildDependencies replays the event log.
type RebuildDependencies interface {
	Rebuild(ctx context.Context) (int, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	optimizeHandler    *OptimizeHandler
	selectionsHandler  *SelectionsHandler
	reliabilityHandler *ReliabilityHandler
	keywordsHandler    *KeywordsHandler
	rebuildHandler     *RebuildHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		optimizeHandler:    NewOptimizeHandler(deps),
		selectionsHandler:  NewSelectionsHandler(deps),
		reliabilityHandler: NewReliabilityHandler(deps),
		keywordsHandler:    NewKeywordsHandler(deps),
		rebuildHandler:     NewRebuildHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/optimize", MetricsMiddleware(s.optimizeHandler.HandleOptimize, "optimize"))
	mux.HandleFunc("/selections", MetricsMiddleware(s.selectionsHandler.HandlePostSelection, "selections"))
	mux.HandleFunc("/reliability", MetricsMiddleware(s.reliabilityHandler.HandleReport, "reliability"))
	mux.HandleFunc("/reliability/", MetricsMiddleware(s.reliabilityHandler.HandleGetReliability, "reliability"))
	mux.HandleFunc("/keywords/", MetricsMiddleware(s.keywordsHandler.HandleGetSections, "keywords"))
	mux.HandleFunc("/admin/rebuild", MetricsMiddleware(s.rebuildHandler.HandleRebuild, "rebuild"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}
