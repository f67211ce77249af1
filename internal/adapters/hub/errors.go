package hub

import "errors"

// ErrHubUnavailable marks non-OK answers from the dataset content server.
var ErrHubUnavailable = errors.New("dataset content server unavailable")
