package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Handler runs one job. The returned value is stored as the job result.
type Handler func(ctx context.Context, job *Job) (any, error)

// WorkerOptions configures a worker.
type WorkerOptions struct {
	Concurrency  int
	PollInterval time.Duration
}

// Worker pulls jobs from a queue and runs them with bounded concurrency.
type Worker struct {
	q       *Queue
	handler Handler
	opts    WorkerOptions
	logger  *zap.Logger
}

// NewWorker creates a worker for q.
func NewWorker(q *Queue, handler Handler, opts WorkerOptions, logger *zap.Logger) *Worker {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		q:       q,
		handler: handler,
		opts:    opts,
		logger:  logger.Named("worker").With(zap.String("queue", q.Name())),
	}
}

// Run processes jobs until ctx is cancelled, then waits for in-flight jobs.
// Jobs run detached from ctx so shutdown does not abort a generation midway.
func (w *Worker) Run(ctx context.Context) error {
	sem := semaphore.NewWeighted(int64(w.opts.Concurrency))
	var wg sync.WaitGroup
	defer wg.Wait()

	w.logger.Info("worker started", zap.Int("concurrency", w.opts.Concurrency))
	for {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}

		if n, err := w.q.recoverStalled(ctx); err != nil && ctx.Err() == nil {
			w.logger.Warn("failed to recover stalled jobs", zap.Error(err))
		} else if n > 0 {
			w.logger.Warn("recovered stalled jobs", zap.Int("count", n))
		}
		if n, err := w.q.promoteDue(ctx); err != nil && ctx.Err() == nil {
			w.logger.Warn("failed to promote delayed jobs", zap.Error(err))
		} else if n > 0 {
			w.logger.Debug("promoted delayed jobs", zap.Int("count", n))
		}

		id, err := w.q.pop(ctx, w.opts.PollInterval)
		if err != nil || id == "" {
			sem.Release(1)
			if ctx.Err() != nil {
				break
			}
			if err != nil {
				w.logger.Warn("failed to poll queue", zap.Error(err))
				w.sleep(ctx, w.opts.PollInterval)
			}
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			w.process(context.WithoutCancel(ctx), id)
		}()
	}

	w.logger.Info("worker stopping")
	return nil
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (w *Worker) process(ctx context.Context, id string) {
	logger := w.logger.With(zap.String("job_id", id))

	job, maxAttempts, err := w.q.claim(ctx, id)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			logger.Warn("dropping unknown job")
			return
		}
		logger.Error("failed to claim job", zap.Error(err))
		return
	}
	logger = logger.With(zap.Int("attempt", job.Attempt), zap.Int("max_attempts", maxAttempts))
	logger.Info("job started")

	stopRenew := w.renewLease(ctx, id, logger)
	started := time.Now()
	result, err := w.call(ctx, job)
	stopRenew()
	if err == nil {
		data, mErr := json.Marshal(result)
		if mErr != nil {
			err = fmt.Errorf("failed to marshal result: %w", mErr)
		} else {
			if cErr := w.q.complete(ctx, id, data); cErr != nil {
				logger.Error("failed to record completion", zap.Error(cErr))
				return
			}
			logger.Info("job completed", zap.Duration("elapsed", time.Since(started)))
			return
		}
	}

	if job.Attempt < maxAttempts {
		delay := w.q.backoff(job.Attempt)
		logger.Warn("job failed, retrying", zap.Duration("backoff", delay), zap.Error(err))
		if rErr := w.q.retry(ctx, id, err.Error(), delay); rErr != nil {
			logger.Error("failed to schedule retry", zap.Error(rErr))
		}
		return
	}

	logger.Error("job failed", zap.Duration("elapsed", time.Since(started)), zap.Error(err))
	if fErr := w.q.fail(ctx, id, err.Error()); fErr != nil {
		logger.Error("failed to record failure", zap.Error(fErr))
	}
}

// renewLease keeps the job's lease alive until the returned stop function is
// called.
func (w *Worker) renewLease(ctx context.Context, id string, logger *zap.Logger) (stop func()) {
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(max(w.q.opts.LockDuration/3, time.Millisecond))
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := w.q.extendLease(ctx, id); err != nil {
					logger.Warn("failed to renew job lease", zap.Error(err))
				}
			}
		}
	}()
	return func() {
		close(done)
		<-finished
	}
}

// call runs the handler and turns a panic into an error.
func (w *Worker) call(ctx context.Context, job *Job) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return w.handler(ctx, job)
}
