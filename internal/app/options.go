package service

import (
	"github.com/arenalab/policy-arena/internal/adapters/hub"
	"github.com/arenalab/policy-arena/internal/adapters/repository"
	"github.com/arenalab/policy-arena/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore injects a pre-built store instead of opening one on Start.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithFetcher injects a pre-built episode metadata fetcher.
func WithFetcher(fetcher hub.Fetcher) Option {
	return func(s *Service) {
		if fetcher != nil {
			s.fetcher = fetcher
		}
	}
}

// WithDBPath sets the on-disk store directory.
func WithDBPath(path string) Option {
	return func(s *Service) {
		s.dbPath = path
	}
}

// WithInMemoryDB keeps the store in memory. Nothing survives Stop.
func WithInMemoryDB(inMemory bool) Option {
	return func(s *Service) {
		s.inMemoryDB = inMemory
	}
}

// WithWorkerCount sets the number of stats-refresh workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the refresh queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithHubBaseURL points the fetcher at a different content server.
func WithHubBaseURL(baseURL string) Option {
	return func(s *Service) {
		s.hubBaseURL = baseURL
	}
}

// WithDatasetFPS sets the frame rate used to convert frame counts into
// episode durations.
func WithDatasetFPS(fps float64) Option {
	return func(s *Service) {
		if fps > 0 {
			s.datasetFPS = fps
		}
	}
}

// WithMaxLeaderboardLimit caps how many rows one leaderboard query returns.
func WithMaxLeaderboardLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxLeaderboardLimit = limit
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}
