package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	service "github.com/arenalab/policy-arena/internal/app"
	"github.com/arenalab/policy-arena/internal/domain/model"
)

// DatasetsHandler serves dataset registration and stats refresh endpoints.
type DatasetsHandler struct {
	deps Dependencies
}

// NewDatasetsHandler creates a new datasets handler.
func NewDatasetsHandler(deps Dependencies) *DatasetsHandler {
	return &DatasetsHandler{deps: deps}
}

type registerDatasetRequest struct {
	RepoID      string `json:"repo_id" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Task        string `json:"task"`
	SourceType  string `json:"source_type" validate:"required,oneof=teleop rollout dagger eval"`
	Environment string `json:"environment"`
	ModelID     string `json:"model_id"`
	ModelURL    string `json:"model_url"`
}

type refreshStatsRequest struct {
	RepoID string `json:"repo_id"`
}

type refreshStatsResponse struct {
	Queued int `json:"queued"`
}

// HandleRegister records a dataset and queues its first stats refresh.
func (h *DatasetsHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerDatasetRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	d, err := h.deps.RegisterDataset(r.Context(), service.RegisterDatasetInput{
		RepoID:      req.RepoID,
		Name:        req.Name,
		Task:        req.Task,
		SourceType:  model.SourceType(req.SourceType),
		Environment: req.Environment,
		ModelID:     req.ModelID,
		ModelURL:    req.ModelURL,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// HandleList returns all registered datasets.
func (h *DatasetsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	datasets, err := h.deps.ListDatasets(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, datasets)
}

// HandleRefreshStats queues a stats refresh. With a repo_id in the body it
// targets one dataset, otherwise every registered dataset is queued.
func (h *DatasetsHandler) HandleRefreshStats(w http.ResponseWriter, r *http.Request) {
	var req refreshStatsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeServiceError(w, errors.Join(ErrBadRequest, err))
		return
	}

	if req.RepoID != "" {
		if err := h.deps.EnqueueRefresh(r.Context(), req.RepoID); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, refreshStatsResponse{Queued: 1})
		return
	}

	queued, err := h.deps.EnqueueRefreshAll(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, refreshStatsResponse{Queued: queued})
}
