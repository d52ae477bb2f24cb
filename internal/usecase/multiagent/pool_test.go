package multiagent

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hedwig/internal/domain"
)

// gatedHandler blocks every task until release is closed and tracks the
// peak number of tasks running at once.
type gatedHandler struct {
	release chan struct{}
	running atomic.Int32
	peak    atomic.Int32
}

func newGatedHandler() *gatedHandler {
	return &gatedHandler{release: make(chan struct{})}
}

func (h *gatedHandler) Handle(ctx context.Context, req *domain.TaskRequest) *domain.TaskResult {
	n := h.running.Add(1)
	defer h.running.Add(-1)
	for {
		p := h.peak.Load()
		if n <= p || h.peak.CompareAndSwap(p, n) {
			break
		}
	}
	select {
	case <-h.release:
	case <-ctx.Done():
	}
	return &domain.TaskResult{Success: true, Content: "done: " + req.Prompt}
}

type echoHandler struct{}

func (echoHandler) Handle(_ context.Context, req *domain.TaskRequest) *domain.TaskResult {
	return &domain.TaskResult{Success: true, Content: req.Prompt}
}

func TestPoolDefaults(t *testing.T) {
	p := NewPool(echoHandler{}, 0, 0, nil)
	assert.Equal(t, DefaultWorkers, p.Workers())
	assert.Equal(t, DefaultQueueSize, cap(p.results))
	p.Close()
}

func TestPoolSubmitDeliversResults(t *testing.T) {
	p := NewPool(echoHandler{}, 2, 8, nil)

	ids := make(map[string]string)
	for i := range 5 {
		prompt := fmt.Sprintf("task %d", i)
		id, err := p.Submit(context.Background(), domain.NewTaskRequest(prompt, nil, ""))
		require.NoError(t, err)
		ids[id] = prompt
	}
	assert.Len(t, ids, 5)

	go p.Close()
	got := make(map[string]string)
	for c := range p.Results() {
		got[c.JobID] = c.Result.Content
	}
	assert.Equal(t, ids, got)
}

func TestPoolBoundsConcurrency(t *testing.T) {
	h := newGatedHandler()
	p := NewPool(h, 2, 8, nil)

	for i := range 6 {
		_, err := p.Submit(context.Background(), domain.NewTaskRequest(fmt.Sprintf("t%d", i), nil, ""))
		require.NoError(t, err)
	}
	require.Eventually(t, func() bool { return h.running.Load() == 2 }, time.Second, 5*time.Millisecond)
	close(h.release)

	go p.Close()
	count := 0
	for range p.Results() {
		count++
	}
	assert.Equal(t, 6, count)
	assert.LessOrEqual(t, h.peak.Load(), int32(2))
}

func TestPoolSubmitAfterClose(t *testing.T) {
	p := NewPool(echoHandler{}, 1, 1, nil)
	p.Close()
	p.Close()

	_, err := p.Submit(context.Background(), domain.NewTaskRequest("late", nil, ""))
	assert.ErrorIs(t, err, ErrPoolClosed)
	_, open := <-p.Results()
	assert.False(t, open)
}

func TestPoolCanceledBeforeStart(t *testing.T) {
	h := newGatedHandler()
	p := NewPool(h, 1, 4, nil)

	_, err := p.Submit(context.Background(), domain.NewTaskRequest("occupies the worker", nil, ""))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return h.running.Load() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	id, err := p.Submit(ctx, domain.NewTaskRequest("never runs", nil, ""))
	require.NoError(t, err)
	cancel()

	c := <-p.Results()
	assert.Equal(t, id, c.JobID)
	assert.False(t, c.Result.Success)
	assert.Equal(t, domain.KindTimeout, c.Result.ErrorKind)

	close(h.release)
	go p.Close()
	for range p.Results() {
	}
}

func TestPoolRunAllKeepsOrder(t *testing.T) {
	p := NewPool(echoHandler{}, 3, 0, nil)
	defer p.Close()

	var reqs []*domain.TaskRequest
	for i := range 10 {
		reqs = append(reqs, domain.NewTaskRequest(fmt.Sprintf("task %d", i), nil, ""))
	}
	results, err := p.RunAll(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, results, 10)
	for i, res := range results {
		assert.Equal(t, fmt.Sprintf("task %d", i), res.Content)
	}
}

func TestPoolRunAllBoundsConcurrency(t *testing.T) {
	h := newGatedHandler()
	p := NewPool(h, 2, 0, nil)
	defer p.Close()

	reqs := make([]*domain.TaskRequest, 5)
	for i := range reqs {
		reqs[i] = domain.NewTaskRequest("x", nil, "")
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := p.RunAll(context.Background(), reqs)
		assert.NoError(t, err)
	}()
	require.Eventually(t, func() bool { return h.running.Load() == 2 }, time.Second, 5*time.Millisecond)
	close(h.release)
	wg.Wait()
	assert.Equal(t, int32(2), h.peak.Load())
}

func TestPoolRunAllCanceled(t *testing.T) {
	p := NewPool(echoHandler{}, 1, 0, nil)
	defer p.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.RunAll(ctx, []*domain.TaskRequest{domain.NewTaskRequest("x", nil, "")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPoolWithOrchestrator(t *testing.T) {
	o := NewOrchestrator(newDispatcherWith(newStubAgent("GeneralAgent", nil)), nil)
	p := NewPool(o, 2, 4, nil)
	defer p.Close()

	results, err := p.RunAll(context.Background(), []*domain.TaskRequest{
		domain.NewTaskRequest("one", nil, ""),
		domain.NewTaskRequest("two", nil, ""),
	})
	require.NoError(t, err)
	for _, res := range results {
		assert.True(t, res.Success)
		assert.Equal(t, "GeneralAgent done", res.Content)
	}
}
