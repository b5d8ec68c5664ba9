// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/veloclub/segweek/internal/adapters/repository"
	"github.com/veloclub/segweek/internal/domain/model"
	"github.com/veloclub/segweek/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// SubmitObservation runs one observation through the pipeline
	// synchronously and returns the per-week diagnostic trail.
	SubmitObservation(ctx context.Context, o model.Observation) (types.ObservationAck, error)

	// EnqueueObservation pushes an observation for async processing.
	// Returns false on backpressure.
	EnqueueObservation(ctx context.Context, o model.Observation) bool

	// Retract removes the counted activity for a (week, participant) pair.
	Retract(ctx context.Context, weekID, participantID string) error

	// Read operations expose standings data.
	Leaderboard(ctx context.Context, weekID string) ([]types.LeaderboardEntry, error)
	Ghost(ctx context.Context, weekID, participantID string) (*types.GhostComparison, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler       *HealthHandler
	statsHandler        *StatsHandler
	observationsHandler *ObservationsHandler
	resultsHandler      *ResultsHandler
	leaderboardHandler  *LeaderboardHandler
	ghostHandler        *GhostHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:       NewHealthHandler(),
		statsHandler:        NewStatsHandler(statsProvider),
		observationsHandler: NewObservationsHandler(deps),
		resultsHandler:      NewResultsHandler(deps),
		leaderboardHandler:  NewLeaderboardHandler(deps),
		ghostHandler:        NewGhostHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/observations/batch", MetricsMiddleware(s.observationsHandler.HandlePostBatch, "observations_batch"))
	mux.HandleFunc("/observations", MetricsMiddleware(s.observationsHandler.HandlePostObservation, "observations"))
	mux.HandleFunc("/results", MetricsMiddleware(s.resultsHandler.HandleDeleteResult, "results"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/ghost", MetricsMiddleware(s.ghostHandler.HandleGetGhost, "ghost"))
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

// isNotFound translates upstream not-found errors to 404.
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrWeekNotFound) ||
		errors.Is(err, repository.ErrResultNotFound)
}
