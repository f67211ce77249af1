package seeder

import "time"

// HTTP and verification constants.
const (
	statusOK             = 200
	statusCreated        = 201
	settleDelay          = 500 * time.Millisecond
	percentageMultiplier = 100.0
	seedRating           = 1500.0
	ratingSumTolerance   = 0.5
)
