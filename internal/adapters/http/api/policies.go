package api

import (
	"net/http"
)

// PoliciesHandler serves per-policy views.
type PoliciesHandler struct {
	deps Dependencies
}

// NewPoliciesHandler creates a new policies handler.
func NewPoliciesHandler(deps Dependencies) *PoliciesHandler {
	return &PoliciesHandler{deps: deps}
}

// HandleList returns every policy with its leaderboard row.
func (h *PoliciesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	rows, err := h.deps.Leaderboard(r.Context(), 0)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// HandleGet returns a single policy's leaderboard row.
func (h *PoliciesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	row, err := h.deps.PolicyRow(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

// HandleHistory returns a policy's rating trajectory, oldest first.
func (h *PoliciesHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	points, err := h.deps.PolicyHistory(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

// HandleRounds returns a policy's recorded rounds. Pass failed=1 to keep
// only the failures.
func (h *PoliciesHandler) HandleRounds(w http.ResponseWriter, r *http.Request) {
	failedOnly := r.URL.Query().Get("failed") == "1"

	views, err := h.deps.PolicyRounds(r.Context(), r.PathValue("id"), failedOnly)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// HandleOpponents suggests evaluation opponents near the policy's rating.
func (h *PoliciesHandler) HandleOpponents(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, "limit")
	if err != nil {
		writeServiceError(w, err)
		return
	}

	suggestions, err := h.deps.RecommendOpponents(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestions)
}
