package multiagent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"hedwig/internal/domain"
	"hedwig/internal/infra/logger"
	"hedwig/internal/infra/metrics"
)

// Pool defaults.
const (
	DefaultWorkers   = 4
	DefaultQueueSize = 16
)

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = fmt.Errorf("worker pool closed")

// TaskHandler runs one task to completion. *Orchestrator implements it.
type TaskHandler interface {
	Handle(ctx context.Context, req *domain.TaskRequest) *domain.TaskResult
}

// Completion is a finished pool job.
type Completion struct {
	JobID  string
	Result *domain.TaskResult
}

// Pool runs whole tasks on a bounded number of goroutines so a front end
// stays responsive. Results arrive on the Results channel in completion
// order.
type Pool struct {
	handler   TaskHandler
	semaphore chan struct{}
	results   chan Completion
	logger    *slog.Logger

	mu     sync.Mutex // guards closed and wg.Add
	closed bool
	wg     sync.WaitGroup
	nextID int
}

// NewPool creates a pool running at most workers tasks at once. Results are
// buffered up to queueSize; a full queue holds finished workers until the
// consumer drains it.
func NewPool(h TaskHandler, workers, queueSize int, log *slog.Logger) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Pool{
		handler:   h,
		semaphore: make(chan struct{}, workers),
		results:   make(chan Completion, queueSize),
		logger:    logger.OrDiscard(log),
	}
}

// Workers returns the concurrency bound.
func (p *Pool) Workers() int { return cap(p.semaphore) }

// Results delivers completed jobs. It is closed by Close once every
// submitted job has finished.
func (p *Pool) Results() <-chan Completion { return p.results }

// Submit queues req and returns its job ID without waiting for a worker.
func (p *Pool) Submit(ctx context.Context, req *domain.TaskRequest) (string, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return "", ErrPoolClosed
	}
	p.nextID++
	id := fmt.Sprintf("job-%d", p.nextID)
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		p.results <- Completion{JobID: id, Result: p.run(ctx, req)}
	}()
	p.logger.Debug("task submitted", "job", id)
	return id, nil
}

// run executes one task once a worker slot is free.
func (p *Pool) run(ctx context.Context, req *domain.TaskRequest) *domain.TaskResult {
	select {
	case p.semaphore <- struct{}{}:
		defer func() { <-p.semaphore }()
	case <-ctx.Done():
		return &domain.TaskResult{
			Content:      "Task canceled before it started",
			ErrorKind:    domain.KindTimeout,
			ErrorMessage: ctx.Err().Error(),
			Conversation: domain.CloneMessages(req.Conversation),
		}
	}

	metrics.PoolInFlight.Inc()
	defer metrics.PoolInFlight.Dec()
	return p.handler.Handle(ctx, req)
}

// RunAll runs reqs with the pool's concurrency bound and returns results
// in request order. It waits for every task. Only context cancellation
// produces an error.
func (p *Pool) RunAll(ctx context.Context, reqs []*domain.TaskRequest) ([]*domain.TaskResult, error) {
	out := make([]*domain.TaskResult, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Workers())
	for i, req := range reqs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			metrics.PoolInFlight.Inc()
			defer metrics.PoolInFlight.Dec()
			out[i] = p.handler.Handle(gctx, req)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, fmt.Errorf("run tasks: %w", err)
	}
	return out, nil
}

// Close stops accepting jobs, waits for submitted ones and closes Results.
// The caller must keep draining Results until it is closed.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
	close(p.results)
}
