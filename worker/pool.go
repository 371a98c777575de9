// Package worker schedules pipeline runs. Delivery is best effort and at
// most once: a task lost to a crash or a full queue is picked up later by
// the failed-issue reprocessor only if the issue was marked as failed.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"meriawaaz-be/metrics"
)

var (
	ErrQueueFull  = errors.New("task queue full")
	ErrNotRunning = errors.New("task queue not running")
)

// Dispatcher schedules a pipeline run for an issue without waiting for it.
type Dispatcher interface {
	Dispatch(ctx context.Context, issueID string) error
}

// Submitter hands a task to a pool, waiting for room if needed.
type Submitter interface {
	Submit(ctx context.Context, issueID string) error
}

// ProcessFunc runs one task.
type ProcessFunc func(ctx context.Context, issueID string) error

type Stats struct {
	Length    int
	Capacity  int
	Workers   int
	Processed uint64
	Failed    uint64
}

// Pool is a bounded queue drained by a fixed set of workers. Tasks run on
// the pool's own context, never on the context of the request that queued
// them.
type Pool struct {
	jobs      chan string
	workers   int
	process   ProcessFunc
	metrics   metrics.Recorder
	log       *zap.SugaredLogger
	retry     time.Duration
	mu        sync.RWMutex
	started   bool
	stopped   bool
	wg        sync.WaitGroup
	processed uint64
	failed    uint64
}

func NewPool(workers, queueSize int, process ProcessFunc, rec metrics.Recorder, log *zap.SugaredLogger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	if rec == nil {
		rec = metrics.Nop
	}
	return &Pool{
		jobs:    make(chan string, queueSize),
		workers: workers,
		process: process,
		metrics: rec,
		log:     log,
		retry:   10 * time.Millisecond,
	}
}

// Start launches the workers. Cancelling ctx stops them without draining.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

// Dispatch queues the task or fails with ErrQueueFull without blocking.
func (p *Pool) Dispatch(_ context.Context, issueID string) error {
	err := p.tryEnqueue(issueID)
	switch {
	case err == nil:
		p.metrics.RecordDispatch("queued")
	case errors.Is(err, ErrQueueFull):
		p.metrics.RecordDispatch("rejected")
		p.log.Warnw("task queue full, dropping task", "issue_id", issueID)
	default:
		p.metrics.RecordDispatch("error")
	}
	return err
}

// Submit queues the task, waiting for room until ctx is done.
func (p *Pool) Submit(ctx context.Context, issueID string) error {
	ticker := time.NewTicker(p.retry)
	defer ticker.Stop()

	for {
		err := p.tryEnqueue(issueID)
		if err == nil {
			p.metrics.RecordDispatch("queued")
			return nil
		}
		if !errors.Is(err, ErrQueueFull) {
			return err
		}

		select {
		case <-ctx.Done():
			p.metrics.RecordDispatch("rejected")
			return fmt.Errorf("submit %s: %w", issueID, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (p *Pool) tryEnqueue(issueID string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.started || p.stopped {
		return ErrNotRunning
	}
	select {
	case p.jobs <- issueID:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop stops accepting tasks and waits for queued ones to finish until ctx
// is done.
func (p *Pool) Stop(ctx context.Context) {
	p.mu.Lock()
	if !p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		p.log.Warnw("task queue stopped before draining", "remaining", len(p.jobs))
	}
}

func (p *Pool) Stats() Stats {
	return Stats{
		Length:    len(p.jobs),
		Capacity:  cap(p.jobs),
		Workers:   p.workers,
		Processed: atomic.LoadUint64(&p.processed),
		Failed:    atomic.LoadUint64(&p.failed),
	}
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case id, ok := <-p.jobs:
			if !ok {
				return
			}
			p.handle(ctx, id)
		}
	}
}

func (p *Pool) handle(ctx context.Context, issueID string) {
	start := time.Now()
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		atomic.AddUint64(&p.processed, 1)
		if err != nil {
			atomic.AddUint64(&p.failed, 1)
			p.log.Errorw("task failed", "issue_id", issueID, "duration", time.Since(start), "error", err)
			return
		}
		p.log.Infow("task finished", "issue_id", issueID, "duration", time.Since(start))
	}()

	err = p.process(ctx, issueID)
}
