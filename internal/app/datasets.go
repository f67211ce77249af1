package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	refreshqueue "github.com/arenalab/policy-arena/internal/adapters/mq/queue"
	"github.com/arenalab/policy-arena/internal/adapters/repository"
	"github.com/arenalab/policy-arena/internal/domain/model"
	"github.com/arenalab/policy-arena/pkg/logger"
)

// RegisterDatasetInput declares one episode source in the external content
// repository.
type RegisterDatasetInput struct {
	RepoID      string
	Name        string
	Task        string
	SourceType  model.SourceType
	Environment string
	ModelID     string
	ModelURL    string
}

// RegisterDataset records a dataset and queues its first stats refresh.
func (s *Service) RegisterDataset(ctx context.Context, in RegisterDatasetInput) (model.Dataset, error) {
	if !in.SourceType.Valid() {
		return model.Dataset{}, fmt.Errorf("%w: %q", ErrInvalidSourceType, in.SourceType)
	}

	d := model.Dataset{
		RepoID:      in.RepoID,
		Name:        in.Name,
		Task:        in.Task,
		SourceType:  in.SourceType,
		Environment: in.Environment,
		ModelID:     in.ModelID,
		ModelURL:    in.ModelURL,
		CreatedAt:   time.Now().UTC(),
	}
	err := s.store.Update(ctx, func(tx repository.Tx) error {
		_, err := tx.GetDataset(in.RepoID)
		if err == nil {
			return fmt.Errorf("%w: %s", ErrDatasetExists, in.RepoID)
		}
		if !errors.Is(err, repository.ErrDatasetNotFound) {
			return err
		}
		return tx.PutDataset(d)
	})
	if err != nil {
		return model.Dataset{}, err
	}

	// First stats fill is best effort; the refresh endpoint can retry.
	if err := s.EnqueueRefresh(ctx, in.RepoID); err != nil {
		s.logger.Warn(ctx, "initial stats refresh not queued",
			logger.String("repo_id", in.RepoID),
			logger.Error(err),
		)
	}
	return d, nil
}

// ListDatasets returns every registered dataset.
func (s *Service) ListDatasets(ctx context.Context) ([]model.Dataset, error) {
	var datasets []model.Dataset
	err := s.store.View(ctx, func(tx repository.Tx) error {
		var err error
		datasets, err = tx.ListDatasets()
		return err
	})
	if err != nil {
		return nil, err
	}
	return datasets, nil
}

// EnqueueRefresh queues a stats refresh for one dataset. A dataset with a
// refresh already pending is not queued twice.
func (s *Service) EnqueueRefresh(ctx context.Context, repoID string) error {
	err := s.store.View(ctx, func(tx repository.Tx) error {
		_, err := tx.GetDataset(repoID)
		return err
	})
	if err != nil {
		return err
	}

	if !s.pending.TryAcquire(ctx, refreshKey(repoID)) {
		return fmt.Errorf("%w: %s", ErrRefreshPending, repoID)
	}
	if !s.queue.Enqueue(ctx, refreshqueue.RefreshJob{RepoID: repoID, EnqueuedAt: time.Now()}) {
		s.pending.Release(ctx, refreshKey(repoID))
		return fmt.Errorf("refresh queue full for %s", repoID)
	}
	return nil
}

// EnqueueRefreshAll queues a refresh for every registered dataset and
// returns how many were queued. Datasets with a pending refresh are skipped.
func (s *Service) EnqueueRefreshAll(ctx context.Context) (int, error) {
	datasets, err := s.ListDatasets(ctx)
	if err != nil {
		return 0, err
	}
	queued := 0
	for _, d := range datasets {
		if err := s.EnqueueRefresh(ctx, d.RepoID); err != nil {
			continue
		}
		queued++
	}
	return queued, nil
}

// RefreshDatasetStats pulls episode metadata from the content server and
// writes summary counts back onto the dataset. It runs on the worker pool.
func (s *Service) RefreshDatasetStats(ctx context.Context, repoID string) error {
	defer s.pending.Release(ctx, refreshKey(repoID))

	set, err := s.fetcher.FetchEpisodes(ctx, repoID)
	if err != nil {
		return err
	}
	breakdown, err := s.fetcher.FetchSourceBreakdown(ctx, repoID)
	if err != nil {
		return err
	}

	stats := &model.DatasetStats{
		NumEpisodes: len(set.Episodes),
		UpdatedAt:   time.Now().UTC(),
	}
	framed := 0
	frameSum := 0
	for _, ep := range set.Episodes {
		if ep.Success {
			stats.NumSuccess++
		} else {
			stats.NumFailure++
		}
		if ep.NumFrames != nil {
			framed++
			frameSum += *ep.NumFrames
		}
	}
	// Prefer exact per-episode frame counts for the duration; fall back to
	// the server's row total when the metadata lacks them.
	if framed == len(set.Episodes) && framed > 0 {
		stats.TotalDurationSeconds = float64(frameSum) / s.datasetFPS
	} else {
		stats.TotalDurationSeconds = float64(set.NumRowsTotal) / s.datasetFPS
	}

	if breakdown != nil {
		human := breakdown.HumanFrames
		policy := breakdown.PolicyFrames
		stats.NumHumanFrames = &human
		stats.NumPolicyFrames = &policy

		autonomous := 0
		for _, ep := range set.Episodes {
			if ep.Success && !breakdown.EpisodesWithHuman[ep.EpisodeIndex] {
				autonomous++
			}
		}
		stats.NumAutonomousSuccess = &autonomous
	}

	return s.store.Update(ctx, func(tx repository.Tx) error {
		d, err := tx.GetDataset(repoID)
		if err != nil {
			return err
		}
		d.Stats = stats
		return tx.PutDataset(d)
	})
}

func refreshKey(repoID string) string {
	return "refresh:" + repoID
}
