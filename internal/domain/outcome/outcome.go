// Package outcome derives pairwise win/loss/draw outcomes from a round's
// per-policy results.
package outcome

import "github.com/arenalab/policy-arena/internal/domain/rating"

// Result is one policy's attempt within a round.
type Result struct {
	PolicyID string
	Success  bool
}

// Pairing is the outcome of comparing two results from the same round.
// ScoreA is the first policy's score: 1 win, 0 loss, 0.5 draw.
type Pairing struct {
	PolicyA string
	PolicyB string
	ScoreA  float64
}

// Draw reports whether the pairing ended with both policies on the same
// success value.
func (p Pairing) Draw() bool { return p.ScoreA == rating.ScoreDraw }

// Pairings exhaustively pairs every result against every later result,
// preserving the order results were submitted in. Rating application is
// sequential and reads in-flight deltas, so this ordering is load-bearing
// for reproducible replay.
//
// Rounds with fewer than two results produce no pairings.
func Pairings(results []Result) []Pairing {
	if len(results) < 2 {
		return nil
	}
	out := make([]Pairing, 0, len(results)*(len(results)-1)/2)
	for i := 0; i < len(results); i++ {
		for j := i + 1; j < len(results); j++ {
			out = append(out, Pairing{
				PolicyA: results[i].PolicyID,
				PolicyB: results[j].PolicyID,
				ScoreA:  score(results[i].Success, results[j].Success),
			})
		}
	}
	return out
}

func score(successA, successB bool) float64 {
	switch {
	case successA && !successB:
		return rating.ScoreWin
	case !successA && successB:
		return rating.ScoreLoss
	default:
		return rating.ScoreDraw
	}
}
