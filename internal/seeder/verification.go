package seeder

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/arenalab/policy-arena/pkg/logger"
)

// verifyLeaderboard checks the board against the rating invariants: every
// seeded policy appears, ratings sum to the seed total, and ranks are
// ordered by rating.
func verifyLeaderboard(ctx context.Context, roster []rosterPolicy, rows []leaderboardRow) error {
	logger.Get().Info(ctx, "verifying leaderboard", logger.Int("entries", len(rows)))

	byModel := make(map[string]leaderboardRow, len(rows))
	for _, row := range rows {
		byModel[row.ModelID] = row
	}

	var missing []string
	for _, p := range roster {
		if _, ok := byModel[p.payload.ModelID]; !ok {
			missing = append(missing, p.payload.ModelID)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("policies missing from leaderboard: %s", strings.Join(missing, ", "))
	}

	// Rating updates are zero-sum, so the seeded policies' ratings must
	// still sum to NumPolicies * 1500.
	var sum float64
	for _, p := range roster {
		sum += byModel[p.payload.ModelID].Rating
	}
	expected := float64(len(roster)) * seedRating
	if math.Abs(sum-expected) > ratingSumTolerance {
		return fmt.Errorf("rating sum drifted: got %.2f, want %.2f", sum, expected)
	}

	for i := 1; i < len(rows); i++ {
		if rows[i].Rating > rows[i-1].Rating {
			return fmt.Errorf("leaderboard out of order at rank %d", rows[i].Rank)
		}
	}

	wins, losses := 0, 0
	for _, row := range rows {
		wins += row.Wins
		losses += row.Losses
	}
	if wins != losses {
		return fmt.Errorf("win/loss totals diverge: %d wins vs %d losses", wins, losses)
	}

	logger.Get().Info(ctx, "leaderboard verified",
		logger.Float64("ratingSum", sum),
		logger.Int("totalWins", wins))
	return nil
}

// displayLeaderboard logs the top of the board.
func displayLeaderboard(ctx context.Context, rows []leaderboardRow, topN int) {
	for i, row := range rows {
		if i >= topN {
			break
		}
		logger.Get().Info(ctx, "leaderboard entry",
			logger.Int("rank", row.Rank),
			logger.String("name", row.Name),
			logger.Float64("rating", row.Rating),
			logger.Int("wins", row.Wins),
			logger.Int("losses", row.Losses),
			logger.Int("draws", row.Draws))
	}
}
