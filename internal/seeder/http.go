package seeder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/arenalab/policy-arena/pkg/logger"
)

// HTTPClient wraps http.Client with a timeout.
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{Timeout: timeout},
	}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// submitSessions submits the sessions one at a time. Submission order is the
// chronological order ratings are computed in, so no concurrency here.
func submitSessions(ctx context.Context, config *Config, sessions []sessionPayload, stats *Stats) error {
	logger.Get().Info(ctx, "submitting sessions", logger.Int("count", len(sessions)))

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/sessions"

	for i, session := range sessions {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled during submission: %w", ctx.Err())
		default:
		}

		stats.SessionsSubmitted++
		created, err := submitSingleSession(ctx, client, url, session)
		if err != nil {
			stats.SessionsFailed++
			logger.Get().Warn(ctx, "session submission failed",
				logger.Int("index", i),
				logger.Error(err))
			continue
		}

		stats.SessionsSuccessful++
		stats.RoundsSubmitted += created.NumRounds
		if config.Verbose {
			logger.Get().Info(ctx, "session submitted",
				logger.Int("index", i),
				logger.String("session_id", created.ID),
				logger.Int("num_rounds", created.NumRounds))
		}
	}

	logger.Get().Info(ctx, "session submission completed",
		logger.Int("successful", stats.SessionsSuccessful),
		logger.Int("failed", stats.SessionsFailed),
		logger.Int("rounds", stats.RoundsSubmitted))
	return nil
}

func submitSingleSession(ctx context.Context, client *HTTPClient, url string, session sessionPayload) (sessionResponse, error) {
	var created sessionResponse

	resp, err := client.Post(ctx, url, session)
	if err != nil {
		return created, err
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return created, err
	}

	if resp.StatusCode != statusCreated {
		return created, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, &created); err != nil {
		return created, fmt.Errorf("failed to decode session response: %w", err)
	}
	return created, nil
}

// getLeaderboard fetches the full leaderboard.
func getLeaderboard(ctx context.Context, config *Config, stats *Stats) ([]leaderboardRow, error) {
	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/leaderboard"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leaderboard: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != statusOK {
		return nil, fmt.Errorf("leaderboard request failed with status %d", resp.StatusCode)
	}

	var rows []leaderboardRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode leaderboard: %w", err)
	}

	stats.LeaderboardEntries = len(rows)
	return rows, nil
}
