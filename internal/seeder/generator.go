package seeder

import (
	"context"
	"crypto/rand"
	"math/big"
	"strconv"

	"github.com/arenalab/policy-arena/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	minRoster          = 2
	rosterSpread       = 3
	framesBase         = 90
	framesSpread       = 360
)

// rosterPolicy is a generated policy with a fixed success probability, so
// repeated sessions spread the roster across the rating scale.
type rosterPolicy struct {
	payload     policyPayload
	successProb float64
}

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// getRandomInt returns a random int in [0, bound).
func getRandomInt(bound int) int {
	n, _ := rand.Int(rand.Reader, big.NewInt(int64(bound)))
	return int(n.Int64())
}

// generateRoster creates the policy roster. Success probabilities are spread
// evenly so the strongest policy wins most rounds and the weakest loses most.
func generateRoster(ctx context.Context, config *Config) []rosterPolicy {
	logger.Get().Info(ctx, "generating policy roster", logger.Int("numPolicies", config.NumPolicies))

	roster := make([]rosterPolicy, config.NumPolicies)
	for i := range roster {
		name := "seed-policy-" + strconv.Itoa(i)
		roster[i] = rosterPolicy{
			payload: policyPayload{
				Name:        name,
				ModelID:     "seed/" + name,
				Environment: "so100",
			},
			// Evenly spaced in (0, 1): policy 0 is the weakest.
			successProb: float64(i+1) / float64(config.NumPolicies+1),
		}
	}
	return roster
}

// generateSessions builds the session payloads. Each session samples a small
// roster subset and rolls every policy's success per round.
func generateSessions(ctx context.Context, config *Config, roster []rosterPolicy, stats *Stats) []sessionPayload {
	logger.Get().Info(ctx, "generating sessions",
		logger.Int("numSessions", config.NumSessions),
		logger.Int("roundsPerSession", config.RoundsPerSession))

	sessions := make([]sessionPayload, config.NumSessions)
	for i := range sessions {
		sessions[i] = generateSingleSession(i, config, roster)
	}

	stats.SessionsGenerated = len(sessions)
	return sessions
}

func generateSingleSession(index int, config *Config, roster []rosterPolicy) sessionPayload {
	size := minRoster
	if len(roster) > minRoster {
		size += getRandomInt(minInt(rosterSpread, len(roster)-minRoster) + 1)
	}

	// Sample a subset without replacement.
	picked := make([]rosterPolicy, 0, size)
	seen := make(map[int]bool, size)
	for len(picked) < size {
		j := getRandomInt(len(roster))
		if seen[j] {
			continue
		}
		seen[j] = true
		picked = append(picked, roster[j])
	}

	policies := make([]policyPayload, len(picked))
	for i, p := range picked {
		policies[i] = p.payload
	}

	rounds := make([][]resultPayload, config.RoundsPerSession)
	for r := range rounds {
		results := make([]resultPayload, len(picked))
		for i, p := range picked {
			success := getRandomFloat() < p.successProb
			result := resultPayload{
				ModelID:      p.payload.ModelID,
				Success:      success,
				EpisodeIndex: r,
			}
			if success {
				frames := framesBase + getRandomInt(framesSpread)
				result.NumFrames = &frames
			}
			results[i] = result
		}
		rounds[r] = results
	}

	return sessionPayload{
		DatasetRepo: "seed/eval-batch-" + strconv.Itoa(index),
		Notes:       "seeded session",
		Policies:    policies,
		Rounds:      rounds,
	}
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
