// Package replay holds the reference implementation of session rating
// application. Submission, extension and deletion-triggered recomputation
// all run through ApplySession so their outcomes can never drift apart.
package replay

import (
	"github.com/arenalab/policy-arena/internal/domain/model"
	"github.com/arenalab/policy-arena/internal/domain/outcome"
	"github.com/arenalab/policy-arena/internal/domain/rating"
)

// State is a policy's accumulating rating state. Ratings carry at most two
// decimals at every step, matching what gets persisted.
type State struct {
	Rating float64
	Wins   int
	Losses int
	Draws  int
}

// Session is the replay-relevant slice of an eval session: its roster, its
// mode and its rounds, each round's results in original submission order.
type Session struct {
	ID           string
	Mode         model.SessionMode
	Participants []string
	Rounds       [][]outcome.Result
}

// Ensure returns the state for id, seeding a fresh one if absent.
func Ensure(states map[string]*State, id string) *State {
	st, ok := states[id]
	if !ok {
		st = &State{Rating: model.SeedRating}
		states[id] = st
	}
	return st
}

// ApplySession folds one session's rounds into states. Each pairwise update
// reads the latest in-flight ratings of both policies, so ordering follows
// the round order and, within a round, the submission order of results.
//
// Draws increment draw counters and leave ratings untouched. Rating-exempt
// sessions change nothing beyond seeding roster entries already present.
func ApplySession(states map[string]*State, s Session) {
	if s.Mode.RatingExempt() {
		return
	}
	for _, id := range s.Participants {
		Ensure(states, id)
	}
	for _, round := range s.Rounds {
		for _, p := range outcome.Pairings(round) {
			a := Ensure(states, p.PolicyA)
			b := Ensure(states, p.PolicyB)
			if p.Draw() {
				a.Draws++
				b.Draws++
				continue
			}
			a.Rating, b.Rating = rating.Update(a.Rating, b.Rating, p.ScoreA)
			if p.ScoreA == rating.ScoreWin {
				a.Wins++
				b.Losses++
			} else {
				a.Losses++
				b.Wins++
			}
		}
	}
}

// Replay reconstructs rating state from scratch for an ordered session
// history. The input order is the chronological submission order; ELO is
// path-dependent, so callers must not reorder it.
func Replay(sessions []Session) map[string]*State {
	states := make(map[string]*State)
	for _, s := range sessions {
		ApplySession(states, s)
	}
	return states
}
