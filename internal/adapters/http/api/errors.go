package api

import (
	"errors"
	"net/http"

	"github.com/arenalab/policy-arena/internal/adapters/repository"
	service "github.com/arenalab/policy-arena/internal/app"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
)

// statusFor maps a service error to an HTTP status and a stable error code.
func statusFor(err error) (int, string) {
	switch {
	case repository.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrInvalidSessionMode),
		errors.Is(err, service.ErrInvalidSourceType),
		errors.Is(err, service.ErrUnknownPolicyRef),
		errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrDatasetExists):
		return http.StatusConflict, "already_exists"
	case errors.Is(err, service.ErrRefreshPending):
		return http.StatusConflict, "refresh_pending"
	case errors.Is(err, ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, err)
}
