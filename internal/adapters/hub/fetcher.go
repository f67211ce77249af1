// Package hub fetches episode metadata from the dataset content server's
// row-filter API.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/arenalab/policy-arena/internal/domain/model"
	"github.com/arenalab/policy-arena/pkg/metrics"
)

const (
	defaultBaseURL  = "https://datasets-server.huggingface.co"
	defaultPageSize = 100
	defaultTimeout  = 30 * time.Second
)

// EpisodeSet is the per-episode metadata of one dataset plus the row total
// reported by the server for the episode-boundary filter.
type EpisodeSet struct {
	Episodes     []model.EpisodeMeta
	NumRowsTotal int
}

// SourceBreakdown summarizes frame provenance for datasets that carry a
// source column (0 = policy, 1 = human).
type SourceBreakdown struct {
	HumanFrames       int
	PolicyFrames      int
	EpisodesWithHuman map[int]bool
}

// Fetcher retrieves episode metadata for a dataset repository.
type Fetcher interface {
	// FetchEpisodes returns one entry per episode, sorted by episode index.
	FetchEpisodes(ctx context.Context, repoID string) (EpisodeSet, error)
	// FetchSourceBreakdown returns nil when the dataset has no source
	// column; that is not an error.
	FetchSourceBreakdown(ctx context.Context, repoID string) (*SourceBreakdown, error)
}

// HTTPFetcher implements Fetcher against a datasets-server compatible API.
type HTTPFetcher struct {
	baseURL  string
	pageSize int
	client   *http.Client
}

// NewHTTPFetcher builds a fetcher with configuration options.
func NewHTTPFetcher(opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		baseURL:  defaultBaseURL,
		pageSize: defaultPageSize,
		client:   &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// filterResponse mirrors the /filter endpoint payload. Only the fields the
// arena reads are declared.
type filterResponse struct {
	NumRowsTotal int `json:"num_rows_total"`
	Rows         []struct {
		Row episodeRow `json:"row"`
	} `json:"rows"`
}

// episodeRow is one frame row. The success column arrives as a bool on some
// datasets and as 0/1 on others.
type episodeRow struct {
	EpisodeIndex int      `json:"episode_index"`
	Success      flexBool `json:"success"`
	Length       *int     `json:"length"`
}

type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "true", "1":
		*b = true
	case "false", "0", "null":
		*b = false
	default:
		return fmt.Errorf("unexpected success value %q", data)
	}
	return nil
}

func (f *HTTPFetcher) filter(ctx context.Context, repoID, where string, offset, length int) (filterResponse, error) {
	start := time.Now()
	defer func() {
		metrics.RecordHubFetchLatency(float64(time.Since(start).Milliseconds()))
	}()

	q := url.Values{}
	q.Set("dataset", repoID)
	q.Set("config", "default")
	q.Set("split", "train")
	q.Set("where", where)
	q.Set("offset", fmt.Sprintf("%d", offset))
	q.Set("length", fmt.Sprintf("%d", length))
	u := f.baseURL + "/filter?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return filterResponse{}, fmt.Errorf("build hub request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return filterResponse{}, fmt.Errorf("fetch %s: %w", repoID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return filterResponse{}, fmt.Errorf("fetch %s: %w (%s)", repoID,
			statusError(resp.StatusCode), string(body))
	}

	var out filterResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return filterResponse{}, fmt.Errorf("decode hub response for %s: %w", repoID, err)
	}
	return out, nil
}

// FetchEpisodes pages through the frame_index=0 rows, one per episode.
func (f *HTTPFetcher) FetchEpisodes(ctx context.Context, repoID string) (EpisodeSet, error) {
	byIndex := map[int]model.EpisodeMeta{}
	var total int

	offset := 0
	for {
		page, err := f.filter(ctx, repoID, "frame_index=0", offset, f.pageSize)
		if err != nil {
			return EpisodeSet{}, err
		}
		total = page.NumRowsTotal
		for _, entry := range page.Rows {
			meta := model.EpisodeMeta{
				EpisodeIndex: entry.Row.EpisodeIndex,
				Success:      bool(entry.Row.Success),
			}
			if entry.Row.Length != nil {
				n := *entry.Row.Length
				meta.NumFrames = &n
			}
			byIndex[entry.Row.EpisodeIndex] = meta
		}
		offset += f.pageSize
		if len(page.Rows) < f.pageSize || offset >= page.NumRowsTotal {
			break
		}
	}

	episodes := make([]model.EpisodeMeta, 0, len(byIndex))
	for _, meta := range byIndex {
		episodes = append(episodes, meta)
	}
	sort.Slice(episodes, func(i, j int) bool {
		return episodes[i].EpisodeIndex < episodes[j].EpisodeIndex
	})
	return EpisodeSet{Episodes: episodes, NumRowsTotal: total}, nil
}

// FetchSourceBreakdown probes the source column with two single-row queries,
// then pages human-source rows to find which episodes had any human frames.
func (f *HTTPFetcher) FetchSourceBreakdown(ctx context.Context, repoID string) (*SourceBreakdown, error) {
	policy, err := f.filter(ctx, repoID, "source=0", 0, 1)
	if err != nil {
		// Datasets without a source column answer the probe with an
		// error status; treat that as "no breakdown available".
		return nil, nil //nolint:nilerr
	}
	human, err := f.filter(ctx, repoID, "source=1", 0, 1)
	if err != nil {
		return nil, nil //nolint:nilerr
	}

	out := &SourceBreakdown{
		PolicyFrames:      policy.NumRowsTotal,
		HumanFrames:       human.NumRowsTotal,
		EpisodesWithHuman: map[int]bool{},
	}

	offset := 0
	for offset < out.HumanFrames {
		page, err := f.filter(ctx, repoID, "source=1", offset, f.pageSize)
		if err != nil {
			return nil, err
		}
		for _, entry := range page.Rows {
			out.EpisodesWithHuman[entry.Row.EpisodeIndex] = true
		}
		if len(page.Rows) == 0 {
			break
		}
		offset += f.pageSize
	}
	return out, nil
}

func statusError(code int) error {
	return fmt.Errorf("%w: status %d", ErrHubUnavailable, code)
}
