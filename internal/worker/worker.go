// Package worker runs background jobs on a fixed number of goroutines.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

var ErrStopped = errors.New("worker pool stopped")

type Job any

type ProcessFunc func(ctx context.Context, job Job) error

type WorkerPool struct {
	name       string
	numWorkers int
	jobs       chan Job
	processor  ProcessFunc
	wg         sync.WaitGroup

	stopOnce sync.Once
	mu       sync.RWMutex
	stopped  bool

	processed atomic.Int64
	failed    atomic.Int64
}

func NewWorkerPool(name string, numWorkers int, bufferSize int, processor ProcessFunc) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if bufferSize < 0 {
		bufferSize = 0
	}
	return &WorkerPool{
		name:       name,
		numWorkers: numWorkers,
		jobs:       make(chan Job, bufferSize),
		processor:  processor,
	}
}

func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 1; i <= wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
	slog.Debug("worker pool started", "pool", wp.name, "workers", wp.numWorkers)
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-wp.jobs:
			if !ok {
				return
			}
			if err := wp.processor(ctx, job); err != nil {
				wp.failed.Add(1)
				slog.Warn("job failed", "pool", wp.name, "worker", id, "error", err)
				continue
			}
			wp.processed.Add(1)
		}
	}
}

// Submit queues job, blocking while the buffer is full. It gives up when ctx is done
// or the pool has been stopped.
func (wp *WorkerPool) Submit(ctx context.Context, job Job) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.stopped {
		return ErrStopped
	}

	select {
	case wp.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop closes the queue and waits for workers to drain it. Safe to call more than once.
func (wp *WorkerPool) Stop() {
	wp.stopOnce.Do(func() {
		wp.mu.Lock()
		wp.stopped = true
		close(wp.jobs)
		wp.mu.Unlock()
	})
	wp.wg.Wait()
	slog.Debug("worker pool stopped", "pool", wp.name,
		"processed", wp.processed.Load(), "failed", wp.failed.Load())
}

func (wp *WorkerPool) Processed() int64 { return wp.processed.Load() }

func (wp *WorkerPool) Failed() int64 { return wp.failed.Load() }
