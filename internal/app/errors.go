package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrInvalidSessionMode = errors.New("invalid session mode")
	ErrInvalidSourceType  = errors.New("invalid dataset source type")
	ErrUnknownPolicyRef   = errors.New("round result references an undeclared policy")
	ErrDatasetExists      = errors.New("dataset already registered")
	ErrRefreshPending     = errors.New("stats refresh already pending")
)
