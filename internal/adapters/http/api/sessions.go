package api

import (
	"net/http"

	service "github.com/arenalab/policy-arena/internal/app"
	"github.com/arenalab/policy-arena/internal/domain/model"
)

// SessionsHandler serves session ingestion and inspection endpoints.
type SessionsHandler struct {
	deps Dependencies
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps Dependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

type policyPayload struct {
	Name        string `json:"name" validate:"required"`
	ModelID     string `json:"model_id" validate:"required"`
	Environment string `json:"environment" validate:"required"`
	ModelURL    string `json:"model_url"`
}

type resultPayload struct {
	ModelID      string `json:"model_id" validate:"required"`
	Success      bool   `json:"success"`
	EpisodeIndex int    `json:"episode_index" validate:"gte=0"`
	NumFrames    *int   `json:"num_frames" validate:"omitempty,gt=0"`
}

type submitRequest struct {
	DatasetRepo string            `json:"dataset_repo" validate:"required"`
	Notes       string            `json:"notes"`
	Mode        string            `json:"mode" validate:"omitempty,oneof=manual pool-sample calibrate rollout"`
	Policies    []policyPayload   `json:"policies" validate:"min=1,dive"`
	Rounds      [][]resultPayload `json:"rounds" validate:"dive,dive"`
}

type extendRequest struct {
	Policies []policyPayload   `json:"policies" validate:"dive"`
	Rounds   [][]resultPayload `json:"rounds" validate:"min=1,dive,dive"`
}

func toPolicySpecs(payloads []policyPayload) []service.PolicySpec {
	specs := make([]service.PolicySpec, 0, len(payloads))
	for _, p := range payloads {
		specs = append(specs, service.PolicySpec{
			Name:        p.Name,
			ModelID:     p.ModelID,
			Environment: p.Environment,
			ModelURL:    p.ModelURL,
		})
	}
	return specs
}

func toRounds(payloads [][]resultPayload) [][]service.ResultInput {
	rounds := make([][]service.ResultInput, 0, len(payloads))
	for _, round := range payloads {
		results := make([]service.ResultInput, 0, len(round))
		for _, r := range round {
			results = append(results, service.ResultInput{
				ModelID:      r.ModelID,
				Success:      r.Success,
				EpisodeIndex: r.EpisodeIndex,
				NumFrames:    r.NumFrames,
			})
		}
		rounds = append(rounds, results)
	}
	return rounds
}

// HandleSubmit ingests a full evaluation session.
func (h *SessionsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	sess, err := h.deps.SubmitSession(r.Context(), service.SubmitInput{
		DatasetRepo: req.DatasetRepo,
		Notes:       req.Notes,
		Mode:        model.SessionMode(req.Mode),
		Policies:    toPolicySpecs(req.Policies),
		Rounds:      toRounds(req.Rounds),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// HandleList returns all sessions, newest first.
func (h *SessionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.deps.ListSessionSummaries(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

// HandleDetail returns one session with its round-by-round results.
func (h *SessionsHandler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.deps.SessionDetail(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// HandleAddRounds appends rounds to an existing session.
func (h *SessionsHandler) HandleAddRounds(w http.ResponseWriter, r *http.Request) {
	var req extendRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	sess, err := h.deps.AddRounds(r.Context(), r.PathValue("id"), service.ExtendInput{
		Policies: toPolicySpecs(req.Policies),
		Rounds:   toRounds(req.Rounds),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// HandleDelete removes a session and rebuilds ratings from the remainder.
func (h *SessionsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	out, err := h.deps.DeleteSession(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
