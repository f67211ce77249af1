// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	service "github.com/arenalab/policy-arena/internal/app"
	"github.com/arenalab/policy-arena/internal/domain/model"
	"github.com/arenalab/policy-arena/internal/domain/types"
)

// validate checks request payloads against their struct tags.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Dependencies bundles everything the HTTP handlers need from the service
// layer. Using an interface bundle keeps the handler layer loosely coupled
// to implementations in other packages.
type Dependencies interface {
	// Write path.
	SubmitSession(ctx context.Context, in service.SubmitInput) (model.EvalSession, error)
	AddRounds(ctx context.Context, sessionID string, in service.ExtendInput) (model.EvalSession, error)
	DeleteSession(ctx context.Context, sessionID string) (types.DeleteOutcome, error)
	RegisterDataset(ctx context.Context, in service.RegisterDatasetInput) (model.Dataset, error)
	EnqueueRefresh(ctx context.Context, repoID string) error
	EnqueueRefreshAll(ctx context.Context) (int, error)

	// Read path.
	Leaderboard(ctx context.Context, limit int) ([]types.LeaderboardRow, error)
	PolicyRow(ctx context.Context, policyID string) (types.LeaderboardRow, error)
	PolicyHistory(ctx context.Context, policyID string) ([]types.HistoryPoint, error)
	PolicyRounds(ctx context.Context, policyID string, failedOnly bool) ([]types.PolicyRoundView, error)
	HeadToHead(ctx context.Context, policyA, policyB string) (types.HeadToHead, error)
	RecommendOpponents(ctx context.Context, policyID string, limit int) ([]types.OpponentSuggestion, error)
	ListSessionSummaries(ctx context.Context) ([]types.SessionSummary, error)
	SessionDetail(ctx context.Context, sessionID string) (types.SessionDetail, error)
	ListDatasets(ctx context.Context) ([]model.Dataset, error)
}

// Server wires HTTP routes for the arena API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	sessionsHandler    *SessionsHandler
	leaderboardHandler *LeaderboardHandler
	policiesHandler    *PoliciesHandler
	datasetsHandler    *DatasetsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		sessionsHandler:    NewSessionsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps),
		policiesHandler:    NewPoliciesHandler(deps),
		datasetsHandler:    NewDatasetsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.Handle("GET /metrics", s.healthHandler.MetricsHandler())

	mux.HandleFunc("POST /sessions", MetricsMiddleware(s.sessionsHandler.HandleSubmit, "sessions"))
	mux.HandleFunc("GET /sessions", MetricsMiddleware(s.sessionsHandler.HandleList, "sessions"))
	mux.HandleFunc("GET /sessions/{id}", MetricsMiddleware(s.sessionsHandler.HandleDetail, "session_detail"))
	mux.HandleFunc("POST /sessions/{id}/rounds", MetricsMiddleware(s.sessionsHandler.HandleAddRounds, "session_rounds"))
	mux.HandleFunc("DELETE /sessions/{id}", MetricsMiddleware(s.sessionsHandler.HandleDelete, "session_delete"))

	mux.HandleFunc("GET /leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("GET /head-to-head", MetricsMiddleware(s.leaderboardHandler.HandleHeadToHead, "head_to_head"))

	mux.HandleFunc("GET /policies", MetricsMiddleware(s.policiesHandler.HandleList, "policies"))
	mux.HandleFunc("GET /policies/{id}", MetricsMiddleware(s.policiesHandler.HandleGet, "policy_detail"))
	mux.HandleFunc("GET /policies/{id}/history", MetricsMiddleware(s.policiesHandler.HandleHistory, "policy_history"))
	mux.HandleFunc("GET /policies/{id}/rounds", MetricsMiddleware(s.policiesHandler.HandleRounds, "policy_rounds"))
	mux.HandleFunc("GET /policies/{id}/opponents", MetricsMiddleware(s.policiesHandler.HandleOpponents, "policy_opponents"))

	mux.HandleFunc("POST /datasets", MetricsMiddleware(s.datasetsHandler.HandleRegister, "datasets"))
	mux.HandleFunc("GET /datasets", MetricsMiddleware(s.datasetsHandler.HandleList, "datasets"))
	mux.HandleFunc("POST /datasets/refresh-stats", MetricsMiddleware(s.datasetsHandler.HandleRefreshStats, "dataset_refresh"))
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

// decodeAndValidate reads a JSON body into v and runs struct validation.
func decodeAndValidate(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Join(ErrBadRequest, err)
	}
	if err := validate.Struct(v); err != nil {
		return errors.Join(ErrBadRequest, err)
	}
	return nil
}
