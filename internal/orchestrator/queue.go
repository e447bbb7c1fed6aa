package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/invoicelens/invoice-extractor/internal/common"
)

// Queue runs jobs on a fixed pool of workers over a bounded channel. Under
// load, Enqueue applies backpressure instead of spawning goroutines per job.
type Queue struct {
	orc     *Orchestrator
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*Queue)

func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithJobTimeout(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewQueue(orc *Orchestrator, logger *slog.Logger, opts ...Option) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		orc:     orc,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *Queue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("queue.worker.started", "worker_id", workerID)

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					err := q.orc.Process(ctx, job)
					cancel()

					if err != nil {
						q.logger.Error("queue.job.failed", "worker_id", workerID, "job_id", job.ID, "error", err)
					} else {
						q.logger.Info("queue.job.done", "worker_id", workerID, "job_id", job.ID)
					}
				}

				q.logger.Info("queue.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

// Enqueue submits a job for processing. It blocks when the queue is full and
// fails once shutdown has begun.
func (q *Queue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return fmt.Errorf("%w: queue is shutting down", common.ErrInvalidInput)
	}
	select {
	case q.ch <- job:
		q.logger.Info("queue.job.accepted", "job_id", job.ID, "file", job.FileName)
	default:
		q.logger.Warn("queue.full.backpressure", "job_id", job.ID)
		q.ch <- job
	}
	return nil
}

// Shutdown stops intake and waits for in-flight jobs, bounded by ctx.
func (q *Queue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
	case <-done:
		q.logger.Info("queue.shutdown.drained")
	}
}
