// Package scheduler runs one-shot deferred tasks on timers.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/boddenberg/orders-dashboard-go/internal/port"
)

// Timer schedules tasks with time.AfterFunc. Tasks receive the scheduler's
// base context, which Stop cancels.
type Timer struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pending map[*timerTask]struct{}
	running sync.WaitGroup
}

// NewTimer creates a timer scheduler bound to parent.
func NewTimer(parent context.Context) *Timer {
	ctx, cancel := context.WithCancel(parent)
	return &Timer{ctx: ctx, cancel: cancel, pending: make(map[*timerTask]struct{})}
}

// Schedule runs fn once after delay unless the task is cancelled first.
func (s *Timer) Schedule(delay time.Duration, fn func(ctx context.Context)) port.Task {
	t := &timerTask{owner: s, done: make(chan struct{})}

	s.mu.Lock()
	s.pending[t] = struct{}{}
	s.mu.Unlock()

	t.mu.Lock()
	t.timer = time.AfterFunc(delay, func() {
		if !t.start() {
			return
		}
		defer s.running.Done()
		defer t.finish()
		if s.ctx.Err() != nil {
			return
		}
		fn(s.ctx)
	})
	t.mu.Unlock()
	return t
}

// Stop cancels every pending task and the base context, then waits for
// tasks that already started.
func (s *Timer) Stop() {
	s.mu.Lock()
	tasks := make([]*timerTask, 0, len(s.pending))
	for t := range s.pending {
		tasks = append(tasks, t)
	}
	s.mu.Unlock()

	for _, t := range tasks {
		t.Cancel()
	}
	s.cancel()
	s.running.Wait()
}

func (s *Timer) forget(t *timerTask) {
	s.mu.Lock()
	delete(s.pending, t)
	s.mu.Unlock()
}

type timerTask struct {
	owner *Timer
	timer *time.Timer

	mu      sync.Mutex
	started bool
	closed  bool
	done    chan struct{}
}

// start marks the task running; it fails if the task was cancelled.
func (t *timerTask) start() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	t.started = true
	t.owner.running.Add(1)
	t.owner.forget(t)
	return true
}

func (t *timerTask) finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	close(t.done)
}

func (t *timerTask) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started || t.closed {
		return false
	}
	t.closed = true
	close(t.done)
	if t.timer != nil {
		t.timer.Stop()
	}
	t.owner.forget(t)
	return true
}

func (t *timerTask) Done() <-chan struct{} { return t.done }
