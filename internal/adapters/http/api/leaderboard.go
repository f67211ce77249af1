package api

import (
	"fmt"
	"net/http"
	"strconv"
)

// LeaderboardHandler serves ranking and rivalry endpoints.
type LeaderboardHandler struct {
	deps Dependencies
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps Dependencies) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps}
}

// parseLimit reads an optional positive integer query parameter. Zero means
// "use the server default".
func parseLimit(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", ErrBadRequest, name)
	}
	return n, nil
}

// HandleGetLeaderboard returns the current ranking.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, "limit")
	if err != nil {
		writeServiceError(w, err)
		return
	}

	rows, err := h.deps.Leaderboard(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// HandleHeadToHead returns the pairwise record between two policies.
func (h *LeaderboardHandler) HandleHeadToHead(w http.ResponseWriter, r *http.Request) {
	policyA := r.URL.Query().Get("policy_a")
	policyB := r.URL.Query().Get("policy_b")
	if policyA == "" || policyB == "" {
		writeServiceError(w, fmt.Errorf("%w: policy_a and policy_b are required", ErrBadRequest))
		return
	}
	if policyA == policyB {
		writeServiceError(w, fmt.Errorf("%w: policy_a and policy_b must differ", ErrBadRequest))
		return
	}

	h2h, err := h.deps.HeadToHead(r.Context(), policyA, policyB)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h2h)
}
