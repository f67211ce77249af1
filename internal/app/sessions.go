package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/arenalab/policy-arena/internal/adapters/repository"
	"github.com/arenalab/policy-arena/internal/domain/model"
	"github.com/arenalab/policy-arena/internal/domain/outcome"
	"github.com/arenalab/policy-arena/internal/domain/rating"
	"github.com/arenalab/policy-arena/internal/domain/replay"
	"github.com/arenalab/policy-arena/internal/domain/types"
	"github.com/arenalab/policy-arena/pkg/logger"
	"github.com/arenalab/policy-arena/pkg/metrics"
)

// PolicySpec declares one competitor in a submission. ModelID is the
// de-duplication key; resubmitting a known ModelID patches the display
// fields and leaves identity, rating and counters untouched.
type PolicySpec struct {
	Name        string
	ModelID     string
	Environment string
	ModelURL    string
}

// ResultInput is one policy's outcome in one round, referencing the policy
// by its ModelID.
type ResultInput struct {
	ModelID      string
	Success      bool
	EpisodeIndex int
	NumFrames    *int
}

// SubmitInput is one batch submission: a roster plus ordered rounds.
type SubmitInput struct {
	DatasetRepo string
	Notes       string
	Mode        model.SessionMode
	Policies    []PolicySpec
	Rounds      [][]ResultInput
}

// ExtendInput appends rounds to an existing session, optionally widening
// its roster.
type ExtendInput struct {
	Policies []PolicySpec
	Rounds   [][]ResultInput
}

// SubmitSession ingests one batch submission as a single transaction:
// policy upserts, the session row, its round-result rows, and (unless the
// mode is rating-exempt) the per-round ELO application with one history
// entry per participant.
func (s *Service) SubmitSession(ctx context.Context, in SubmitInput) (model.EvalSession, error) {
	mode := in.Mode
	if mode == "" {
		mode = model.ModeManual
	}
	if !mode.Valid() {
		return model.EvalSession{}, fmt.Errorf("%w: %q", ErrInvalidSessionMode, in.Mode)
	}

	s.engineMu.Lock()
	defer s.engineMu.Unlock()

	var session model.EvalSession
	err := s.store.Update(ctx, func(tx repository.Tx) error {
		byModel, rosterIDs, err := upsertPolicies(tx, in.Policies)
		if err != nil {
			return err
		}

		session = model.EvalSession{
			ID:          uuid.NewString(),
			DatasetRepo: in.DatasetRepo,
			Notes:       in.Notes,
			Mode:        mode,
			PolicyIDs:   rosterIDs,
			NumRounds:   len(in.Rounds),
			CreatedAt:   time.Now().UTC(),
		}
		if err := tx.PutSession(session); err != nil {
			return err
		}

		rows, rounds, err := buildRounds(session.ID, 0, in.Rounds, func(modelID string) (string, error) {
			p, ok := byModel[modelID]
			if !ok {
				return "", fmt.Errorf("%w: %s", ErrUnknownPolicyRef, modelID)
			}
			return p.ID, nil
		})
		if err != nil {
			return err
		}
		if err := tx.AppendRoundResults(session.ID, rows); err != nil {
			return err
		}

		return applyRatings(tx, session, rounds)
	})
	if err != nil {
		return model.EvalSession{}, err
	}

	metrics.RecordSessionIngested(string(mode))
	metrics.RecordRoundsIngested(len(in.Rounds))
	s.logger.Info(ctx, "session ingested",
		logger.String("session_id", session.ID),
		logger.String("mode", string(mode)),
		logger.Int("rounds", len(in.Rounds)),
		logger.Int("policies", len(session.PolicyIDs)),
	)
	return session, nil
}

// AddRounds appends rounds to an existing session. Only the new rounds run
// through rating application; history entries are updated in place so one
// entry per (policy, session) survives repeated extension.
func (s *Service) AddRounds(ctx context.Context, sessionID string, in ExtendInput) (model.EvalSession, error) {
	s.engineMu.Lock()
	defer s.engineMu.Unlock()

	var session model.EvalSession
	err := s.store.Update(ctx, func(tx repository.Tx) error {
		var err error
		session, err = tx.GetSession(sessionID)
		if err != nil {
			return err
		}

		byModel, declaredIDs, err := upsertPolicies(tx, in.Policies)
		if err != nil {
			return err
		}

		resolve := func(modelID string) (string, error) {
			if p, ok := byModel[modelID]; ok {
				return p.ID, nil
			}
			p, found, err := tx.FindPolicyByModelID(modelID)
			if err != nil {
				return "", err
			}
			if !found {
				return "", fmt.Errorf("%w: %s", ErrUnknownPolicyRef, modelID)
			}
			return p.ID, nil
		}

		rows, rounds, err := buildRounds(session.ID, session.NumRounds, in.Rounds, resolve)
		if err != nil {
			return err
		}

		// Widen the roster with policies not already present, keeping the
		// original participant order stable.
		seen := make(map[string]bool, len(session.PolicyIDs))
		for _, id := range session.PolicyIDs {
			seen[id] = true
		}
		for _, id := range declaredIDs {
			if !seen[id] {
				session.PolicyIDs = append(session.PolicyIDs, id)
				seen[id] = true
			}
		}
		for _, row := range rows {
			if !seen[row.PolicyID] {
				session.PolicyIDs = append(session.PolicyIDs, row.PolicyID)
				seen[row.PolicyID] = true
			}
		}

		if err := tx.AppendRoundResults(session.ID, rows); err != nil {
			return err
		}
		session.NumRounds += len(in.Rounds)
		if err := tx.PutSession(session); err != nil {
			return err
		}

		return applyRatings(tx, session, rounds)
	})
	if err != nil {
		return model.EvalSession{}, err
	}

	metrics.RecordRoundsIngested(len(in.Rounds))
	s.logger.Info(ctx, "session extended",
		logger.String("session_id", session.ID),
		logger.Int("added_rounds", len(in.Rounds)),
		logger.Int("num_rounds", session.NumRounds),
	)
	return session, nil
}

// DeleteSession removes a session and rebuilds every rating from scratch.
// Pairwise ELO exchanges are not cleanly invertible once sessions for the
// same policy pairs interleave, so deletion replays the remaining history
// instead of rolling back: afterwards the state is exactly what ingesting
// the remaining sessions in their original order would have produced.
func (s *Service) DeleteSession(ctx context.Context, sessionID string) (types.DeleteOutcome, error) {
	s.engineMu.Lock()
	defer s.engineMu.Unlock()

	start := time.Now()
	var out types.DeleteOutcome
	err := s.store.Update(ctx, func(tx repository.Tx) error {
		if _, err := tx.GetSession(sessionID); err != nil {
			return err
		}

		nRounds, err := tx.DeleteRoundResults(sessionID)
		if err != nil {
			return err
		}
		nHistory, err := tx.DeleteAllHistory()
		if err != nil {
			return err
		}
		if err := tx.DeleteSession(sessionID); err != nil {
			return err
		}

		remaining, err := tx.ListSessions()
		if err != nil {
			return err
		}

		states := make(map[string]*replay.State)
		for _, sess := range remaining {
			rounds, err := loadRounds(tx, sess.ID)
			if err != nil {
				return err
			}
			replay.ApplySession(states, replay.Session{
				ID:           sess.ID,
				Mode:         sess.Mode,
				Participants: sess.PolicyIDs,
				Rounds:       rounds,
			})
			if sess.Mode.RatingExempt() {
				continue
			}
			for _, pid := range sess.PolicyIDs {
				st := replay.Ensure(states, pid)
				if err := tx.PutHistoryEntry(model.EloHistoryEntry{
					PolicyID:  pid,
					SessionID: sess.ID,
					Rating:    st.Rating,
					SessionAt: sess.CreatedAt,
				}); err != nil {
					return err
				}
			}
		}

		// Every policy resets to the replayed state, baseline when the
		// remaining history never touched it. Policies are never deleted.
		policies, err := tx.ListPolicies()
		if err != nil {
			return err
		}
		for _, p := range policies {
			st, ok := states[p.ID]
			if !ok {
				st = &replay.State{Rating: model.SeedRating}
			}
			p.Rating = st.Rating
			p.Wins = st.Wins
			p.Losses = st.Losses
			p.Draws = st.Draws
			if err := tx.PutPolicy(p); err != nil {
				return err
			}
		}

		out = types.DeleteOutcome{
			DocumentsDeleted: nRounds + nHistory + 1,
			SessionsReplayed: len(remaining),
		}
		return nil
	})
	if err != nil {
		return types.DeleteOutcome{}, err
	}

	metrics.RecordSessionDeleted()
	metrics.RecordReplay(float64(time.Since(start).Milliseconds()))
	s.logger.Info(ctx, "session deleted and history replayed",
		logger.String("session_id", sessionID),
		logger.Int("documents_deleted", out.DocumentsDeleted),
		logger.Int("sessions_replayed", out.SessionsReplayed),
	)
	return out, nil
}

// upsertPolicies resolves each spec by ModelID, patching display fields on
// known policies and inserting fresh seed-rated ones otherwise.
func upsertPolicies(tx repository.Tx, specs []PolicySpec) (map[string]model.Policy, []string, error) {
	byModel := make(map[string]model.Policy, len(specs))
	ids := make([]string, 0, len(specs))
	for _, spec := range specs {
		if existing, ok := byModel[spec.ModelID]; ok {
			ids = append(ids, existing.ID)
			continue
		}
		p, found, err := tx.FindPolicyByModelID(spec.ModelID)
		if err != nil {
			return nil, nil, err
		}
		if found {
			p.Name = spec.Name
			p.Environment = spec.Environment
			if spec.ModelURL != "" {
				p.ModelURL = spec.ModelURL
			}
		} else {
			p = model.Policy{
				ID:          uuid.NewString(),
				Name:        spec.Name,
				ModelID:     spec.ModelID,
				Environment: spec.Environment,
				ModelURL:    spec.ModelURL,
				Rating:      model.SeedRating,
				CreatedAt:   time.Now().UTC(),
			}
		}
		if err := tx.PutPolicy(p); err != nil {
			return nil, nil, err
		}
		byModel[spec.ModelID] = p
		ids = append(ids, p.ID)
	}
	return byModel, ids, nil
}

// buildRounds turns round inputs into round-result rows and the per-round
// outcome rosters, both in submission order.
func buildRounds(sessionID string, startIndex int, rounds [][]ResultInput, resolve func(modelID string) (string, error)) ([]model.RoundResult, [][]outcome.Result, error) {
	var rows []model.RoundResult
	derived := make([][]outcome.Result, 0, len(rounds))
	for i, round := range rounds {
		results := make([]outcome.Result, 0, len(round))
		for _, r := range round {
			policyID, err := resolve(r.ModelID)
			if err != nil {
				return nil, nil, err
			}
			rows = append(rows, model.RoundResult{
				SessionID:    sessionID,
				RoundIndex:   startIndex + i,
				PolicyID:     policyID,
				Success:      r.Success,
				EpisodeIndex: r.EpisodeIndex,
				NumFrames:    r.NumFrames,
			})
			results = append(results, outcome.Result{PolicyID: policyID, Success: r.Success})
		}
		derived = append(derived, results)
	}
	return rows, derived, nil
}

// applyRatings folds rounds into the session roster's stored ratings and
// upserts one history entry per participant. Deltas accumulate in a local
// state map seeded from the stored rows and commit in one pass, so each
// pairwise update reads its own in-flight deltas without interleaving
// reads and writes against the store.
func applyRatings(tx repository.Tx, session model.EvalSession, rounds [][]outcome.Result) error {
	if session.Mode.RatingExempt() {
		return nil
	}

	states := make(map[string]*replay.State, len(session.PolicyIDs))
	for _, pid := range session.PolicyIDs {
		p, err := tx.GetPolicy(pid)
		if err != nil {
			return err
		}
		states[pid] = &replay.State{
			Rating: p.Rating,
			Wins:   p.Wins,
			Losses: p.Losses,
			Draws:  p.Draws,
		}
	}

	var draws, decisive int
	for _, round := range rounds {
		for _, pairing := range outcome.Pairings(round) {
			if pairing.Draw() {
				draws++
			} else {
				decisive++
			}
		}
	}

	replay.ApplySession(states, replay.Session{
		ID:           session.ID,
		Mode:         session.Mode,
		Participants: session.PolicyIDs,
		Rounds:       rounds,
	})

	for _, pid := range session.PolicyIDs {
		p, err := tx.GetPolicy(pid)
		if err != nil {
			return err
		}
		st := states[pid]
		p.Rating = rating.Round2(st.Rating)
		p.Wins = st.Wins
		p.Losses = st.Losses
		p.Draws = st.Draws
		if err := tx.PutPolicy(p); err != nil {
			return err
		}
		if err := tx.PutHistoryEntry(model.EloHistoryEntry{
			PolicyID:  pid,
			SessionID: session.ID,
			Rating:    p.Rating,
			SessionAt: session.CreatedAt,
		}); err != nil {
			return err
		}
	}

	for i := 0; i < decisive; i++ {
		metrics.RecordRatingUpdate()
	}
	for i := 0; i < draws; i++ {
		metrics.RecordDrawRecorded()
	}
	return nil
}

// loadRounds reassembles a session's rounds from its stored rows: rounds in
// ascending index order, each round's results in original insertion order.
func loadRounds(tx repository.Tx, sessionID string) ([][]outcome.Result, error) {
	rows, err := tx.ListRoundResults(sessionID)
	if err != nil {
		return nil, err
	}
	byIndex := make(map[int][]outcome.Result)
	indices := make([]int, 0)
	for _, row := range rows {
		if _, ok := byIndex[row.RoundIndex]; !ok {
			indices = append(indices, row.RoundIndex)
		}
		byIndex[row.RoundIndex] = append(byIndex[row.RoundIndex], outcome.Result{
			PolicyID: row.PolicyID,
			Success:  row.Success,
		})
	}
	sort.Ints(indices)
	rounds := make([][]outcome.Result, 0, len(indices))
	for _, idx := range indices {
		rounds = append(rounds, byIndex[idx])
	}
	return rounds, nil
}
