package service

import (
	"context"
	"math"
	"sort"

	"github.com/arenalab/policy-arena/internal/adapters/repository"
	"github.com/arenalab/policy-arena/internal/domain/model"
	"github.com/arenalab/policy-arena/internal/domain/outcome"
	"github.com/arenalab/policy-arena/internal/domain/types"
	"github.com/arenalab/policy-arena/pkg/metrics"
)

// unknownPolicyName is reported when a round row references a policy that
// no longer resolves. Views degrade instead of failing the whole query.
const unknownPolicyName = "Unknown"

// Leaderboard returns ranked rows, rating descending. Ties share a rank
// and the following rank is skipped. limit <= 0 means the configured max.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]types.LeaderboardRow, error) {
	if limit <= 0 || limit > s.maxLeaderboardLimit {
		limit = s.maxLeaderboardLimit
	}
	rows, err := s.leaderboardRows(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// leaderboardRows computes the full ranked board.
func (s *Service) leaderboardRows(ctx context.Context) ([]types.LeaderboardRow, error) {
	var rows []types.LeaderboardRow
	err := s.store.View(ctx, func(tx repository.Tx) error {
		policies, err := tx.ListPolicies()
		if err != nil {
			return err
		}
		rows = make([]types.LeaderboardRow, 0, len(policies))
		for _, p := range policies {
			results, err := tx.ListRoundResultsByPolicy(p.ID)
			if err != nil {
				return err
			}
			row := types.LeaderboardRow{
				PolicyID:     p.ID,
				Name:         p.Name,
				ModelID:      p.ModelID,
				Environment:  p.Environment,
				Rating:       p.Rating,
				Wins:         p.Wins,
				Losses:       p.Losses,
				Draws:        p.Draws,
				RoundsPlayed: len(results),
			}
			row.SuccessRate, row.AvgSuccessSteps = deriveRoundStats(results)
			rows = append(rows, row)
		}
		metrics.UpdateTotalPolicies(len(policies))
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Rating != rows[j].Rating {
			return rows[i].Rating > rows[j].Rating
		}
		return rows[i].PolicyID < rows[j].PolicyID
	})
	for i := range rows {
		if i > 0 && rows[i].Rating == rows[i-1].Rating {
			rows[i].Rank = rows[i-1].Rank
		} else {
			rows[i].Rank = i + 1
		}
	}
	return rows, nil
}

// PolicyRow returns the single leaderboard row for one policy, with its
// rank among all policies.
func (s *Service) PolicyRow(ctx context.Context, policyID string) (types.LeaderboardRow, error) {
	rows, err := s.leaderboardRows(ctx)
	if err != nil {
		return types.LeaderboardRow{}, err
	}
	for _, row := range rows {
		if row.PolicyID == policyID {
			return row, nil
		}
	}
	return types.LeaderboardRow{}, repository.ErrPolicyNotFound
}

// PolicyHistory returns a policy's rating series in session order.
func (s *Service) PolicyHistory(ctx context.Context, policyID string) ([]types.HistoryPoint, error) {
	var points []types.HistoryPoint
	err := s.store.View(ctx, func(tx repository.Tx) error {
		if _, err := tx.GetPolicy(policyID); err != nil {
			return err
		}
		entries, err := tx.ListHistoryByPolicy(policyID)
		if err != nil {
			return err
		}
		points = make([]types.HistoryPoint, 0, len(entries))
		for _, e := range entries {
			points = append(points, types.HistoryPoint{
				SessionID: e.SessionID,
				Rating:    e.Rating,
				SessionAt: e.SessionAt,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return points, nil
}

// PolicyRounds returns a policy's recorded rounds, most recent session
// first. With failedOnly set, successful rounds are filtered out.
func (s *Service) PolicyRounds(ctx context.Context, policyID string, failedOnly bool) ([]types.PolicyRoundView, error) {
	var views []types.PolicyRoundView
	err := s.store.View(ctx, func(tx repository.Tx) error {
		if _, err := tx.GetPolicy(policyID); err != nil {
			return err
		}
		results, err := tx.ListRoundResultsByPolicy(policyID)
		if err != nil {
			return err
		}
		sessions, err := tx.ListSessions()
		if err != nil {
			return err
		}
		order := make(map[string]int, len(sessions))
		for i, sess := range sessions {
			order[sess.ID] = i
		}

		views = make([]types.PolicyRoundView, 0, len(results))
		for _, r := range results {
			if failedOnly && r.Success {
				continue
			}
			views = append(views, types.PolicyRoundView{
				SessionID:    r.SessionID,
				RoundIndex:   r.RoundIndex,
				Success:      r.Success,
				EpisodeIndex: r.EpisodeIndex,
				NumFrames:    r.NumFrames,
			})
		}
		sort.SliceStable(views, func(i, j int) bool {
			oi, oj := order[views[i].SessionID], order[views[j].SessionID]
			if oi != oj {
				return oi > oj // later sessions first
			}
			return views[i].RoundIndex > views[j].RoundIndex
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

// HeadToHead re-derives the pairwise record between two policies across
// every session containing both. The rounds feed the same pairing logic as
// ingestion but never touch ratings; this is a reporting-only re-derivation,
// and rating-exempt sessions count here too.
func (s *Service) HeadToHead(ctx context.Context, policyA, policyB string) (types.HeadToHead, error) {
	out := types.HeadToHead{PolicyA: policyA, PolicyB: policyB}
	err := s.store.View(ctx, func(tx repository.Tx) error {
		if _, err := tx.GetPolicy(policyA); err != nil {
			return err
		}
		if _, err := tx.GetPolicy(policyB); err != nil {
			return err
		}
		sessions, err := tx.ListSessions()
		if err != nil {
			return err
		}
		for _, sess := range sessions {
			if !containsBoth(sess.PolicyIDs, policyA, policyB) {
				continue
			}
			rounds, err := loadRounds(tx, sess.ID)
			if err != nil {
				return err
			}
			compared := false
			for _, round := range rounds {
				pair := make([]outcome.Result, 0, 2)
				for _, r := range round {
					if r.PolicyID == policyA || r.PolicyID == policyB {
						pair = append(pair, r)
					}
				}
				for _, p := range outcome.Pairings(pair) {
					compared = true
					scoreA := p.ScoreA
					if p.PolicyA != policyA {
						scoreA = 1 - scoreA
					}
					switch scoreA {
					case 1:
						out.Wins++
					case 0:
						out.Losses++
					default:
						out.Draws++
					}
				}
			}
			if compared {
				out.Sessions++
			}
		}
		return nil
	})
	if err != nil {
		return types.HeadToHead{}, err
	}

	out.Total = out.Wins + out.Draws + out.Losses
	if out.Total > 0 {
		rate := float64(out.Wins) / float64(out.Total)
		out.WinRate = &rate
	}
	return out, nil
}

// ListSessionSummaries lists every session, newest first, rosters resolved
// to display names.
func (s *Service) ListSessionSummaries(ctx context.Context) ([]types.SessionSummary, error) {
	var summaries []types.SessionSummary
	err := s.store.View(ctx, func(tx repository.Tx) error {
		sessions, err := tx.ListSessions()
		if err != nil {
			return err
		}
		names := make(map[string]string)
		summaries = make([]types.SessionSummary, 0, len(sessions))
		for i := len(sessions) - 1; i >= 0; i-- {
			summaries = append(summaries, summarize(tx, sessions[i], names))
		}
		metrics.UpdateTotalSessions(len(sessions))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

// SessionDetail returns one session with its per-round results.
func (s *Service) SessionDetail(ctx context.Context, sessionID string) (types.SessionDetail, error) {
	var detail types.SessionDetail
	err := s.store.View(ctx, func(tx repository.Tx) error {
		sess, err := tx.GetSession(sessionID)
		if err != nil {
			return err
		}
		names := make(map[string]string)
		detail.SessionSummary = summarize(tx, sess, names)

		rows, err := tx.ListRoundResults(sessionID)
		if err != nil {
			return err
		}
		byIndex := make(map[int][]types.ResultView)
		indices := make([]int, 0)
		for _, r := range rows {
			if _, ok := byIndex[r.RoundIndex]; !ok {
				indices = append(indices, r.RoundIndex)
			}
			byIndex[r.RoundIndex] = append(byIndex[r.RoundIndex], types.ResultView{
				PolicyID:     r.PolicyID,
				PolicyName:   policyName(tx, r.PolicyID, names),
				Success:      r.Success,
				EpisodeIndex: r.EpisodeIndex,
				NumFrames:    r.NumFrames,
			})
		}
		sort.Ints(indices)
		detail.Rounds = make([]types.RoundView, 0, len(indices))
		for _, idx := range indices {
			detail.Rounds = append(detail.Rounds, types.RoundView{
				RoundIndex: idx,
				Results:    byIndex[idx],
			})
		}
		return nil
	})
	if err != nil {
		return types.SessionDetail{}, err
	}
	return detail, nil
}

// RecommendOpponents suggests opponents for pool-sample sessions: policies
// in the target's environment, least-played first, then rating closest to
// the pool median. limit <= 0 uses a small default.
func (s *Service) RecommendOpponents(ctx context.Context, policyID string, limit int) ([]types.OpponentSuggestion, error) {
	if limit <= 0 {
		limit = defaultOpponentLimit
	}

	var suggestions []types.OpponentSuggestion
	err := s.store.View(ctx, func(tx repository.Tx) error {
		target, err := tx.GetPolicy(policyID)
		if err != nil {
			return err
		}
		policies, err := tx.ListPolicies()
		if err != nil {
			return err
		}

		// The pool is every policy in the target's environment, target
		// included; the median is taken over the whole pool.
		pool := make([]model.Policy, 0, len(policies))
		ratings := make([]float64, 0, len(policies))
		for _, p := range policies {
			if p.Environment != target.Environment {
				continue
			}
			pool = append(pool, p)
			ratings = append(ratings, p.Rating)
		}
		median := medianOf(ratings)

		suggestions = make([]types.OpponentSuggestion, 0, len(pool))
		for _, p := range pool {
			if p.ID == policyID {
				continue
			}
			rows, err := tx.ListRoundResultsByPolicy(p.ID)
			if err != nil {
				return err
			}
			suggestions = append(suggestions, types.OpponentSuggestion{
				PolicyID:     p.ID,
				Name:         p.Name,
				Rating:       p.Rating,
				RatingGap:    math.Abs(p.Rating - median),
				RoundsPlayed: len(rows),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].RoundsPlayed != suggestions[j].RoundsPlayed {
			return suggestions[i].RoundsPlayed < suggestions[j].RoundsPlayed
		}
		if suggestions[i].RatingGap != suggestions[j].RatingGap {
			return suggestions[i].RatingGap < suggestions[j].RatingGap
		}
		return suggestions[i].PolicyID < suggestions[j].PolicyID
	})
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions, nil
}

func medianOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func deriveRoundStats(results []model.RoundResult) (successRate, avgSuccessSteps *float64) {
	if len(results) == 0 {
		return nil, nil
	}
	var successes, framed, frameSum int
	for _, r := range results {
		if !r.Success {
			continue
		}
		successes++
		if r.NumFrames != nil {
			framed++
			frameSum += *r.NumFrames
		}
	}
	rate := float64(successes) / float64(len(results))
	successRate = &rate
	if framed > 0 {
		avg := float64(frameSum) / float64(framed)
		avgSuccessSteps = &avg
	}
	return successRate, avgSuccessSteps
}

func summarize(tx repository.Tx, sess model.EvalSession, names map[string]string) types.SessionSummary {
	participants := make([]string, 0, len(sess.PolicyIDs))
	for _, pid := range sess.PolicyIDs {
		participants = append(participants, policyName(tx, pid, names))
	}
	return types.SessionSummary{
		ID:           sess.ID,
		DatasetRepo:  sess.DatasetRepo,
		Notes:        sess.Notes,
		Mode:         string(sess.Mode),
		NumRounds:    sess.NumRounds,
		Participants: participants,
		CreatedAt:    sess.CreatedAt,
	}
}

func policyName(tx repository.Tx, policyID string, cache map[string]string) string {
	if name, ok := cache[policyID]; ok {
		return name
	}
	name := unknownPolicyName
	if p, err := tx.GetPolicy(policyID); err == nil {
		name = p.Name
	}
	cache[policyID] = name
	return name
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func containsBoth(ids []string, a, b string) bool {
	return contains(ids, a) && contains(ids, b)
}
