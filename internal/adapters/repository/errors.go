package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrPolicyNotFound  = errors.New("policy not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrDatasetNotFound = errors.New("dataset not found")
)

// IsNotFound reports whether err is any of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPolicyNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrDatasetNotFound)
}
