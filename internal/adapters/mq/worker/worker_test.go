package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	queue "github.com/arenalab/policy-arena/internal/adapters/mq/queue"
	worker "github.com/arenalab/policy-arena/internal/adapters/mq/worker"
	logging "github.com/arenalab/policy-arena/pkg/logger"
)

// Mock implementations for testing.
type mockQueue struct {
	jobChan    chan queue.RefreshJob
	closeError error
	closeOnce  sync.Once
}

func newMockQueue() *mockQueue {
	return &mockQueue{
		jobChan: make(chan queue.RefreshJob, 10),
	}
}

func (mq *mockQueue) Dequeue(ctx context.Context) <-chan queue.RefreshJob {
	return mq.jobChan
}

func (mq *mockQueue) Close() error {
	mq.closeOnce.Do(func() { close(mq.jobChan) })
	return mq.closeError
}

func (mq *mockQueue) addJob(job queue.RefreshJob) {
	mq.jobChan <- job
}

type mockRefresher struct {
	mu        sync.Mutex
	refreshed []string
	errors    map[string]error
}

func newMockRefresher() *mockRefresher {
	return &mockRefresher{errors: make(map[string]error)}
}

func (mr *mockRefresher) RefreshDatasetStats(_ context.Context, repoID string) error {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	if err, ok := mr.errors[repoID]; ok {
		return err
	}
	mr.refreshed = append(mr.refreshed, repoID)
	return nil
}

func (mr *mockRefresher) refreshedRepos() []string {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	out := make([]string, len(mr.refreshed))
	copy(out, mr.refreshed)
	return out
}

func (mr *mockRefresher) failOn(repoID string, err error) {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	mr.errors[repoID] = err
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestWorkerProcessesJobs(t *testing.T) {
	convey.Convey("Given a worker over a mock queue", t, func() {
		if err := logging.Init(); err != nil {
			t.Fatalf("init logger: %v", err)
		}
		mq := newMockQueue()
		mr := newMockRefresher()
		w := worker.NewInMemoryWorker(mq, mr, worker.WithName("test-worker"))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When jobs arrive", func() {
			mq.addJob(queue.RefreshJob{RepoID: "org/so100-teleop", EnqueuedAt: time.Now()})
			mq.addJob(queue.RefreshJob{RepoID: "org/eval-episodes", EnqueuedAt: time.Now()})

			convey.Convey("Then every dataset gets refreshed", func() {
				waitFor(t, func() bool { return len(mr.refreshedRepos()) == 2 })
				convey.So(mr.refreshedRepos(), convey.ShouldResemble,
					[]string{"org/so100-teleop", "org/eval-episodes"})
			})
		})

		convey.Convey("When a refresh fails", func() {
			mr.failOn("org/broken", errors.New("content server down"))
			mq.addJob(queue.RefreshJob{RepoID: "org/broken", EnqueuedAt: time.Now()})
			mq.addJob(queue.RefreshJob{RepoID: "org/healthy", EnqueuedAt: time.Now()})

			convey.Convey("Then the worker keeps going", func() {
				waitFor(t, func() bool { return len(mr.refreshedRepos()) == 1 })
				convey.So(mr.refreshedRepos(), convey.ShouldResemble, []string{"org/healthy"})
			})
		})
	})
}

func TestWorkerShutdown(t *testing.T) {
	convey.Convey("Given a running worker", t, func() {
		if err := logging.Init(); err != nil {
			t.Fatalf("init logger: %v", err)
		}
		mq := newMockQueue()
		mr := newMockRefresher()
		w := worker.NewInMemoryWorker(mq, mr)

		ctx := context.Background()
		go w.Run(ctx)

		convey.Convey("When Shutdown is called", func() {
			shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()
			err := w.Shutdown(shutdownCtx)

			convey.Convey("Then it stops cleanly", func() {
				convey.So(err, convey.ShouldBeNil)
			})
		})
	})
}

func TestPoolDrainsQueueOnShutdown(t *testing.T) {
	convey.Convey("Given a pool over a mock queue", t, func() {
		if err := logging.Init(); err != nil {
			t.Fatalf("init logger: %v", err)
		}
		mq := newMockQueue()
		mr := newMockRefresher()
		pool := worker.NewPool(3, mq, mr)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)

		for _, repo := range []string{"org/a", "org/b", "org/c", "org/d"} {
			mq.addJob(queue.RefreshJob{RepoID: repo, EnqueuedAt: time.Now()})
		}

		convey.Convey("When the pool shuts down", func() {
			err := pool.Shutdown(ctx)

			convey.Convey("Then queued jobs were processed first", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(mr.refreshedRepos(), convey.ShouldHaveLength, 4)
			})
		})
	})
}
