// Package types contains the read-side view shapes shared by the service
// and the HTTP API.
package types

import "time"

// LeaderboardRow is one ranked policy with its stored counters and the
// derived per-round statistics. SuccessRate and AvgSuccessSteps are nil
// when the policy has no qualifying rounds.
type LeaderboardRow struct {
	Rank            int      `json:"rank"`
	PolicyID        string   `json:"policy_id"`
	Name            string   `json:"name"`
	ModelID         string   `json:"model_id"`
	Environment     string   `json:"environment"`
	Rating          float64  `json:"rating"`
	Wins            int      `json:"wins"`
	Losses          int      `json:"losses"`
	Draws           int      `json:"draws"`
	RoundsPlayed    int      `json:"rounds_played"`
	SuccessRate     *float64 `json:"success_rate"`
	AvgSuccessSteps *float64 `json:"avg_success_steps"`
}

// HeadToHead tallies the pairwise record between two policies across every
// session they share, from policy A's side. WinRate is nil when no rounds
// compare them.
type HeadToHead struct {
	PolicyA  string   `json:"policy_a"`
	PolicyB  string   `json:"policy_b"`
	Wins     int      `json:"wins"`
	Draws    int      `json:"draws"`
	Losses   int      `json:"losses"`
	Total    int      `json:"total"`
	WinRate  *float64 `json:"win_rate"`
	Sessions int      `json:"sessions"`
}

// HistoryPoint is one sample of a policy's rating series.
type HistoryPoint struct {
	SessionID string    `json:"session_id"`
	Rating    float64   `json:"rating"`
	SessionAt time.Time `json:"session_at"`
}

// SessionSummary lists one session with its roster resolved to names.
type SessionSummary struct {
	ID           string    `json:"id"`
	DatasetRepo  string    `json:"dataset_repo"`
	Notes        string    `json:"notes,omitempty"`
	Mode         string    `json:"mode"`
	NumRounds    int       `json:"num_rounds"`
	Participants []string  `json:"participants"`
	CreatedAt    time.Time `json:"created_at"`
}

// SessionDetail is a session plus its per-round results.
type SessionDetail struct {
	SessionSummary
	Rounds []RoundView `json:"rounds"`
}

// RoundView is one round's roster of results in submission order.
type RoundView struct {
	RoundIndex int          `json:"round_index"`
	Results    []ResultView `json:"results"`
}

// ResultView is one policy's outcome in one round. PolicyName degrades to
// "Unknown" when the referenced policy cannot be resolved.
type ResultView struct {
	PolicyID     string `json:"policy_id"`
	PolicyName   string `json:"policy_name"`
	Success      bool   `json:"success"`
	EpisodeIndex int    `json:"episode_index"`
	NumFrames    *int   `json:"num_frames,omitempty"`
}

// PolicyRoundView is one round outcome seen from a single policy's side.
type PolicyRoundView struct {
	SessionID    string `json:"session_id"`
	RoundIndex   int    `json:"round_index"`
	Success      bool   `json:"success"`
	EpisodeIndex int    `json:"episode_index"`
	NumFrames    *int   `json:"num_frames,omitempty"`
}

// OpponentSuggestion ranks a same-environment policy as an evaluation
// opponent: least-played first, then rating closest to the pool median.
// RatingGap is the distance to that median.
type OpponentSuggestion struct {
	PolicyID     string  `json:"policy_id"`
	Name         string  `json:"name"`
	Rating       float64 `json:"rating"`
	RatingGap    float64 `json:"rating_gap"`
	RoundsPlayed int     `json:"rounds_played"`
}

// DeleteOutcome reports what a session deletion removed and replayed.
type DeleteOutcome struct {
	DocumentsDeleted int `json:"documents_deleted"`
	SessionsReplayed int `json:"sessions_replayed"`
}
