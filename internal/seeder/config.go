package seeder

import "time"

// Config holds configuration for the session seeder.
type Config struct {
	BaseURL          string        // Base URL of the service
	NumSessions      int           // Number of sessions to submit
	NumPolicies      int           // Size of the policy roster
	RoundsPerSession int           // Rounds per session
	Timeout          time.Duration // HTTP request timeout
	Verbose          bool          // Enable verbose logging
}

// policyPayload mirrors the API's session roster entry.
type policyPayload struct {
	Name        string `json:"name"`
	ModelID     string `json:"model_id"`
	Environment string `json:"environment"`
	ModelURL    string `json:"model_url,omitempty"`
}

// resultPayload mirrors the API's per-round result entry.
type resultPayload struct {
	ModelID      string `json:"model_id"`
	Success      bool   `json:"success"`
	EpisodeIndex int    `json:"episode_index"`
	NumFrames    *int   `json:"num_frames,omitempty"`
}

// sessionPayload mirrors the API's session submission body.
type sessionPayload struct {
	DatasetRepo string            `json:"dataset_repo"`
	Notes       string            `json:"notes,omitempty"`
	Mode        string            `json:"mode,omitempty"`
	Policies    []policyPayload   `json:"policies"`
	Rounds      [][]resultPayload `json:"rounds"`
}

// sessionResponse is the slice of the created session we care about.
type sessionResponse struct {
	ID        string `json:"id"`
	NumRounds int    `json:"num_rounds"`
}

// leaderboardRow is the slice of the leaderboard response we verify.
type leaderboardRow struct {
	Rank    int     `json:"rank"`
	Name    string  `json:"name"`
	ModelID string  `json:"model_id"`
	Rating  float64 `json:"rating"`
	Wins    int     `json:"wins"`
	Losses  int     `json:"losses"`
	Draws   int     `json:"draws"`
}

// Stats holds seeding statistics.
type Stats struct {
	SessionsGenerated  int
	SessionsSubmitted  int
	SessionsSuccessful int
	SessionsFailed     int
	RoundsSubmitted    int
	LeaderboardEntries int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
