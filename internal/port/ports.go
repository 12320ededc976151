// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the dashboard core
// from transports, storage and timers.
package port

import (
	"context"
	"time"

	"github.com/boddenberg/orders-dashboard-go/internal/domain"
)

// IngestionGateway talks to Backend 1. Every sync call requires a bearer token.
type IngestionGateway interface {
	Authenticate(ctx context.Context, username, password string) (*domain.LoginResult, error)
	TriggerSync(ctx context.Context, token string) (*domain.JobAck, error)
	TriggerSyncWithFile(ctx context.Context, token string, file *domain.CsvFileHandle) (*domain.JobAck, error)
}

// QueryGateway talks to Backend 2. The token is advisory: it is attached when
// non-empty and the query must not depend on it.
type QueryGateway interface {
	QueryMetrics(ctx context.Context, token string, filters domain.FilterSet) (*domain.MetricsSnapshot, error)
	QueryTimeSeries(ctx context.Context, token string, filters domain.FilterSet) (domain.TimeSeries, error)
}

// KeyValueStore persists small values across restarts (the session token).
type KeyValueStore interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// TokenSource exposes the current session token, if any.
type TokenSource interface {
	CurrentToken() (string, bool)
}

// Task is a scheduled deferred function.
type Task interface {
	// Cancel stops the task if it has not started. It reports whether it did.
	Cancel() bool
	// Done is closed once the task ran or was cancelled.
	Done() <-chan struct{}
}

// Scheduler runs fn once after delay.
type Scheduler interface {
	Schedule(delay time.Duration, fn func(ctx context.Context)) Task
}

// Cache is a generic in-memory map.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
