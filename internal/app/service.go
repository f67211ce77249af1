// Package service wires the rating engine, the store, the content-server
// fetcher and the background refresh pool behind the API's dependencies.
package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/arenalab/policy-arena/internal/adapters/hub"
	refreshqueue "github.com/arenalab/policy-arena/internal/adapters/mq/queue"
	workerpool "github.com/arenalab/policy-arena/internal/adapters/mq/worker"
	"github.com/arenalab/policy-arena/internal/adapters/repository"
	"github.com/arenalab/policy-arena/internal/domain/dedupe"
	"github.com/arenalab/policy-arena/pkg/logger"
	"github.com/arenalab/policy-arena/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultQueueSize           = 1024
	defaultDatasetFPS          = 15.0
	defaultMaxLeaderboardLimit = 100
	defaultOpponentLimit       = 5
)

// Service implements the API dependencies for the arena.
type Service struct {
	mu sync.RWMutex

	// engineMu serializes the rating mutation path. Submission, extension
	// and deletion all read-modify-write shared policy rows, and replay
	// additionally assumes nothing else is writing; a single writer keeps
	// the chronological replay assumption trivially true.
	engineMu sync.Mutex

	// Core components
	store   repository.Store
	fetcher hub.Fetcher
	queue   refreshqueue.Queue
	pool    *workerpool.Pool
	pending dedupe.Tracker

	// Configuration
	dbPath              string
	inMemoryDB          bool
	workerCount         int
	queueSize           int
	hubBaseURL          string
	datasetFPS          float64
	maxLeaderboardLimit int

	// State
	started bool

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		queueSize:           defaultQueueSize,
		datasetFPS:          defaultDatasetFPS,
		maxLeaderboardLimit: defaultMaxLeaderboardLimit,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting arena service...")

	if s.store == nil {
		store, err := repository.NewBadgerStore(
			repository.WithPath(s.dbPath),
			repository.WithInMemory(s.inMemoryDB),
		)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store = store
	}

	if s.fetcher == nil {
		var opts []hub.Option
		if s.hubBaseURL != "" {
			opts = append(opts, hub.WithBaseURL(s.hubBaseURL))
		}
		s.fetcher = hub.NewHTTPFetcher(opts...)
	}

	s.pending = dedupe.NewInMemoryTracker(
		dedupe.WithMaxSize(s.queueSize),
	)
	s.queue = refreshqueue.NewInMemoryQueue(
		refreshqueue.WithCapacity(s.queueSize),
		refreshqueue.WithBufferSize(s.queueSize),
	)

	s.pool = workerpool.NewPool(s.workerCount, s.queue, s)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "arena service started",
		logger.Int("queueSize", s.queueSize),
		logger.Bool("inMemoryDB", s.inMemoryDB),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping arena service...")

	if s.pool != nil {
		_ = s.pool.Shutdown(ctx)
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error(ctx, "error closing store", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "arena service stopped")
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":   s.started,
		"queueSize": s.queueSize,
	}

	if !s.started {
		return stats
	}

	var policies, sessions, datasets int
	err := s.store.View(ctx, func(tx repository.Tx) error {
		ps, err := tx.ListPolicies()
		if err != nil {
			return err
		}
		ss, err := tx.ListSessions()
		if err != nil {
			return err
		}
		ds, err := tx.ListDatasets()
		if err != nil {
			return err
		}
		policies, sessions, datasets = len(ps), len(ss), len(ds)
		return nil
	})
	if err != nil {
		s.logger.Error(ctx, "error collecting stats", logger.Error(err))
		return stats
	}

	queueLen := s.queue.Len(ctx)
	stats["totalPolicies"] = policies
	stats["totalSessions"] = sessions
	stats["totalDatasets"] = datasets
	stats["queueLength"] = queueLen
	stats["pendingRefreshes"] = s.pending.Size()
	stats["workerCount"] = s.pool.WorkerCount()

	metrics.UpdateTotalPolicies(policies)
	metrics.UpdateTotalSessions(sessions)
	metrics.UpdateQueueSize(queueLen)

	return stats
}
