// Package rating implements the pairwise ELO update used by the arena.
package rating

import "math"

// Rating constants.
const (
	// KFactor is the fixed K used for every pairwise update.
	KFactor = 32.0

	// Win/draw/loss scores for the A side of a pairwise comparison.
	ScoreWin  = 1.0
	ScoreDraw = 0.5
	ScoreLoss = 0.0
)

// Expected returns the logistic expected score for a player rated a against
// a player rated b.
func Expected(a, b float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (b-a)/400.0))
}

// Update computes new ratings for one pairwise outcome. scoreA is A's score
// (0, 0.5 or 1); B's score is 1-scoreA. Results are rounded to two decimals
// so ratings stay stable across repeated replays.
//
// The exchange is zero-sum: A's delta always equals -B's delta.
func Update(ratingA, ratingB, scoreA float64) (newA, newB float64) {
	ea := Expected(ratingA, ratingB)
	eb := 1.0 - ea
	scoreB := 1.0 - scoreA
	newA = Round2(ratingA + KFactor*(scoreA-ea))
	newB = Round2(ratingB + KFactor*(scoreB-eb))
	return newA, newB
}

// Round2 rounds to two decimal places, halves away from zero.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}
