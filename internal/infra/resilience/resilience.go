// Package resilience provides fault-tolerance patterns for outgoing calls:
// circuit breaker and bulkhead. Calls are never retried automatically;
// retrying is always a user action.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// ErrUnavailable is returned while the breaker rejects calls.
var ErrUnavailable = errors.New("backend temporarily unavailable")

// abortedError is a failure that happened after the caller's context ended.
// It unwraps to both the call error and the context error.
type abortedError struct {
	err   error
	cause error
}

func (e *abortedError) Error() string   { return e.err.Error() }
func (e *abortedError) Unwrap() []error { return []error{e.err, e.cause} }

// CallerAborted reports whether err came from a call whose own context was
// cancelled or timed out. Such failures say nothing about the backend.
func CallerAborted(err error) bool {
	var a *abortedError
	return errors.As(err, &a)
}

// NewCircuitBreaker creates a circuit breaker with sensible defaults.
// isSuccessful decides which errors count as backend health failures; nil
// counts every error.
func NewCircuitBreaker(name string, isSuccessful func(err error) bool) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,                // half-open: allow 3 requests
		Interval:    30 * time.Second, // closed: reset counters every 30s
		Timeout:     10 * time.Second, // open -> half-open after 10s
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		IsSuccessful: isSuccessful,
	})
}

// Bulkhead limits concurrent access to a resource.
type Bulkhead struct {
	sem chan struct{}
}

// NewBulkhead creates a bulkhead with the given max concurrency.
func NewBulkhead(maxConcurrency int) *Bulkhead {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &Bulkhead{sem: make(chan struct{}, maxConcurrency)}
}

// Acquire blocks until a slot is available or context is cancelled.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot.
func (b *Bulkhead) Release() {
	<-b.sem
}

// Guard bundles a breaker and a bulkhead for one backend.
type Guard struct {
	cb *gobreaker.CircuitBreaker
	bh *Bulkhead
}

// NewGuard creates a guard. Either part may be nil.
func NewGuard(cb *gobreaker.CircuitBreaker, bh *Bulkhead) *Guard {
	return &Guard{cb: cb, bh: bh}
}

// Do runs fn inside the bulkhead and the breaker. Breaker rejections are
// reported as ErrUnavailable.
func Do[T any](ctx context.Context, g *Guard, fn func() (T, error)) (T, error) {
	var zero T
	if g == nil {
		return fn()
	}
	if g.bh != nil {
		if err := g.bh.Acquire(ctx); err != nil {
			return zero, err
		}
		defer g.bh.Release()
	}
	if g.cb == nil {
		return fn()
	}

	result, err := g.cb.Execute(func() (any, error) {
		v, err := fn()
		if err != nil && ctx.Err() != nil {
			err = &abortedError{err: err, cause: ctx.Err()}
		}
		return v, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return zero, ErrUnavailable
	}
	if result == nil {
		return zero, err
	}
	return result.(T), err
}

// State reports the breaker state: "closed", "half-open" or "open".
func (g *Guard) State() string {
	if g == nil || g.cb == nil {
		return gobreaker.StateClosed.String()
	}
	return g.cb.State().String()
}
