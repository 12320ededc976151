package service_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/boddenberg/orders-dashboard-go/internal/domain"
	"github.com/boddenberg/orders-dashboard-go/internal/port"

	"github.com/shopspring/decimal"
)

// --- Query gateway ---

type queryCall struct {
	kind    string
	token   string
	filters domain.FilterSet
}

type mockQuery struct {
	mu    sync.Mutex
	calls []queryCall

	metricsFn func(ctx context.Context, f domain.FilterSet) (*domain.MetricsSnapshot, error)
	seriesFn  func(ctx context.Context, f domain.FilterSet) (domain.TimeSeries, error)
}

func newMockQuery() *mockQuery {
	return &mockQuery{
		metricsFn: func(_ context.Context, _ domain.FilterSet) (*domain.MetricsSnapshot, error) {
			return sampleSnapshot(10), nil
		},
		seriesFn: func(_ context.Context, _ domain.FilterSet) (domain.TimeSeries, error) {
			return sampleSeries(), nil
		},
	}
}

func (m *mockQuery) record(kind, token string, f domain.FilterSet) {
	m.mu.Lock()
	m.calls = append(m.calls, queryCall{kind: kind, token: token, filters: f})
	m.mu.Unlock()
}

func (m *mockQuery) QueryMetrics(ctx context.Context, token string, f domain.FilterSet) (*domain.MetricsSnapshot, error) {
	m.record("metrics", token, f)
	return m.metricsFn(ctx, f)
}

func (m *mockQuery) QueryTimeSeries(ctx context.Context, token string, f domain.FilterSet) (domain.TimeSeries, error) {
	m.record("series", token, f)
	return m.seriesFn(ctx, f)
}

// metricsCalls returns the filters of every metrics query, i.e. one entry per load.
func (m *mockQuery) metricsCalls() []queryCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []queryCall
	for _, c := range m.calls {
		if c.kind == "metrics" {
			out = append(out, c)
		}
	}
	return out
}

func (m *mockQuery) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// --- Ingestion gateway ---

type mockIngest struct {
	mu        sync.Mutex
	syncs     int
	uploads   []*domain.CsvFileHandle
	tokens    []string
	ack       *domain.JobAck
	syncErr   error
	uploadErr error

	authResult *domain.LoginResult
	authErr    error

	// entered and release, when set, hold TriggerSync open until released.
	entered chan struct{}
	release chan struct{}
}

func (m *mockIngest) Authenticate(_ context.Context, _, _ string) (*domain.LoginResult, error) {
	return m.authResult, m.authErr
}

func (m *mockIngest) TriggerSync(_ context.Context, token string) (*domain.JobAck, error) {
	if m.entered != nil {
		m.entered <- struct{}{}
		<-m.release
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncs++
	m.tokens = append(m.tokens, token)
	if m.syncErr != nil {
		return nil, m.syncErr
	}
	return m.jobAck(), nil
}

func (m *mockIngest) TriggerSyncWithFile(_ context.Context, token string, file *domain.CsvFileHandle) (*domain.JobAck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads = append(m.uploads, file)
	m.tokens = append(m.tokens, token)
	if m.uploadErr != nil {
		return nil, m.uploadErr
	}
	return m.jobAck(), nil
}

func (m *mockIngest) jobAck() *domain.JobAck {
	if m.ack != nil {
		return m.ack
	}
	return &domain.JobAck{ID: "job-1", Message: "Pipeline de ingestão disparado com sucesso", AcceptedAt: time.Now()}
}

func (m *mockIngest) syncCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.syncs
}

// --- Token source ---

type staticToken string

func (t staticToken) CurrentToken() (string, bool) { return string(t), t != "" }

// --- Scheduler ---

// manualScheduler records tasks; Fire runs the pending ones as if their delay
// had elapsed.
type manualScheduler struct {
	mu    sync.Mutex
	tasks []*manualTask
}

type manualTask struct {
	delay time.Duration
	fn    func(ctx context.Context)

	mu        sync.Mutex
	ran       bool
	cancelled bool
	done      chan struct{}
}

func (t *manualTask) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ran || t.cancelled {
		return false
	}
	t.cancelled = true
	close(t.done)
	return true
}

func (t *manualTask) Done() <-chan struct{} { return t.done }

func (s *manualScheduler) Schedule(delay time.Duration, fn func(ctx context.Context)) port.Task {
	t := &manualTask{delay: delay, fn: fn, done: make(chan struct{})}
	s.mu.Lock()
	s.tasks = append(s.tasks, t)
	s.mu.Unlock()
	return t
}

// Fire runs every pending task and returns how many ran.
func (s *manualScheduler) Fire() int {
	s.mu.Lock()
	tasks := append([]*manualTask(nil), s.tasks...)
	s.mu.Unlock()

	ran := 0
	for _, t := range tasks {
		t.mu.Lock()
		if t.ran || t.cancelled {
			t.mu.Unlock()
			continue
		}
		t.ran = true
		t.mu.Unlock()

		t.fn(context.Background())
		close(t.done)
		ran++
	}
	return ran
}

func (s *manualScheduler) scheduled() []*manualTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*manualTask(nil), s.tasks...)
}

// --- Key-value store ---

type failingStore struct{}

var errStoreDown = errors.New("storage unavailable")

func (failingStore) Get(string) (string, bool, error) { return "", false, errStoreDown }
func (failingStore) Set(string, string) error         { return errStoreDown }
func (failingStore) Delete(string) error              { return errStoreDown }

// --- Fixtures ---

func sampleSnapshot(approvedOrders int64) *domain.MetricsSnapshot {
	return &domain.MetricsSnapshot{
		FinancialMetrics: domain.FinancialMetrics{
			ApprovedRevenue:  decimal.RequireFromString("1234.5"),
			PendingRevenue:   decimal.RequireFromString("10"),
			CancelledRevenue: decimal.Zero,
		},
		OperationalMetrics: domain.OperationalMetrics{
			ApprovedOrders:  approvedOrders,
			PendingOrders:   1,
			CancelledOrders: 0,
		},
	}
}

func sampleSeries() domain.TimeSeries {
	return domain.TimeSeries{
		{
			Date:            "2024-01-01",
			ApprovedRevenue: decimal.RequireFromString("100"),
			PendingRevenue:  decimal.RequireFromString("20.25"),
			ApprovedOrders:  2,
			PendingOrders:   1,
		},
		{
			Date:             "2024-01-02",
			ApprovedRevenue:  decimal.RequireFromString("50.1"),
			CancelledRevenue: decimal.RequireFromString("5"),
			ApprovedOrders:   1,
			CancelledOrders:  1,
		},
	}
}
