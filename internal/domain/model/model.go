// Package model contains domain models passed between layers.
package model

import "time"

// SeedRating is the rating assigned to a policy on first registration and
// after a replay reset.
const SeedRating = 1500.0

// SessionMode classifies how an eval session was produced.
type SessionMode string

// Session modes. ModeRollout is the only rating-exempt mode: its round
// results are recorded but never feed the rating pipeline.
const (
	ModeManual     SessionMode = "manual"
	ModePoolSample SessionMode = "pool-sample"
	ModeCalibrate  SessionMode = "calibrate"
	ModeRollout    SessionMode = "rollout"
)

// RatingExempt reports whether sessions in this mode are excluded from
// rating computation.
func (m SessionMode) RatingExempt() bool { return m == ModeRollout }

// Valid reports whether the mode is one of the known values.
func (m SessionMode) Valid() bool {
	switch m {
	case ModeManual, ModePoolSample, ModeCalibrate, ModeRollout:
		return true
	}
	return false
}

// Policy is a rated competitor. Created on first appearance of its ModelID
// in a submission and never deleted; replay resets rating and counters
// instead.
type Policy struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ModelID     string    `json:"model_id"` // de-duplication key (opaque artifact identifier)
	Environment string    `json:"environment"`
	ModelURL    string    `json:"model_url,omitempty"`
	Rating      float64   `json:"rating"`
	Wins        int       `json:"wins"`
	Losses      int       `json:"losses"`
	Draws       int       `json:"draws"`
	CreatedAt   time.Time `json:"created_at"`
}

// EvalSession is one batch submission of rounds for a fixed roster.
type EvalSession struct {
	ID          string      `json:"id"`
	DatasetRepo string      `json:"dataset_repo"`
	Notes       string      `json:"notes,omitempty"`
	Mode        SessionMode `json:"mode"`
	PolicyIDs   []string    `json:"policy_ids"`
	NumRounds   int         `json:"num_rounds"`
	CreatedAt   time.Time   `json:"created_at"`
}

// RoundResult is one policy's outcome in one round of one session.
// Immutable once written; removed only by whole-session deletion.
type RoundResult struct {
	SessionID    string `json:"session_id"`
	RoundIndex   int    `json:"round_index"`
	PolicyID     string `json:"policy_id"`
	Success      bool   `json:"success"`
	EpisodeIndex int    `json:"episode_index"`
	NumFrames    *int   `json:"num_frames,omitempty"`
}

// EloHistoryEntry snapshots a policy's rating immediately after a session's
// ELO application. At most one entry exists per (policy, session) pair.
type EloHistoryEntry struct {
	PolicyID  string    `json:"policy_id"`
	SessionID string    `json:"session_id"`
	Rating    float64   `json:"rating"`
	SessionAt time.Time `json:"session_at"` // creation time of the session, orders a policy's series
}

// SourceType classifies how a dataset was collected.
type SourceType string

// Dataset source types.
const (
	SourceTeleop  SourceType = "teleop"
	SourceRollout SourceType = "rollout"
	SourceDagger  SourceType = "dagger"
	SourceEval    SourceType = "eval"
)

// Valid reports whether the source type is one of the known values.
func (s SourceType) Valid() bool {
	switch s {
	case SourceTeleop, SourceRollout, SourceDagger, SourceEval:
		return true
	}
	return false
}

// DatasetStats holds summary counts written back by the stats refresher.
type DatasetStats struct {
	NumEpisodes          int       `json:"num_episodes"`
	NumSuccess           int       `json:"num_success"`
	NumFailure           int       `json:"num_failure"`
	TotalDurationSeconds float64   `json:"total_duration_seconds"`
	NumHumanFrames       *int      `json:"num_human_frames,omitempty"`
	NumPolicyFrames      *int      `json:"num_policy_frames,omitempty"`
	NumAutonomousSuccess *int      `json:"num_autonomous_success,omitempty"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Dataset is a registered episode source in the external content repository.
type Dataset struct {
	RepoID      string       `json:"repo_id"`
	Name        string       `json:"name"`
	Task        string       `json:"task"`
	SourceType  SourceType   `json:"source_type"`
	Environment string       `json:"environment"`
	ModelID     string       `json:"model_id,omitempty"`
	ModelURL    string       `json:"model_url,omitempty"`
	Stats       *DatasetStats `json:"stats,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// EpisodeMeta describes one recorded episode as reported by the external
// dataset content server.
type EpisodeMeta struct {
	EpisodeIndex int  `json:"episode_index"`
	Success      bool `json:"success"`
	NumFrames    *int `json:"num_frames,omitempty"`
}
