package service_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/orders-dashboard-go/internal/domain"
	"github.com/boddenberg/orders-dashboard-go/internal/infra/client"
	"github.com/boddenberg/orders-dashboard-go/internal/infra/kvstore"
	"github.com/boddenberg/orders-dashboard-go/internal/infra/observability"
	"github.com/boddenberg/orders-dashboard-go/internal/infra/scheduler"
	"github.com/boddenberg/orders-dashboard-go/internal/service"

	"go.uber.org/zap"
)

// backends serves a minimal Backend 1 and Backend 2 from one test server.
type backends struct {
	mu      sync.Mutex
	queries []string
}

func (b *backends) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"token":"tok-e2e","username":"admin","expires_in_hours":24}`)
	})
	mux.HandleFunc("/sync", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-e2e" {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"error":"Token inválido"}`)
			return
		}
		io.WriteString(w, `{"message":"Pipeline de ingestão disparado com sucesso"}`)
	})
	mux.HandleFunc("/api/metrics", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		io.WriteString(w, `{"financial_metrics":{"approved_revenue":100,"pending_revenue":0,"cancelled_revenue":0},
			"operational_metrics":{"approved_orders":2,"pending_orders":0,"cancelled_orders":0}}`)
	})
	mux.HandleFunc("/api/metrics/time-series", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		io.WriteString(w, `{"filters":{"payment_method":"pix"},"data":[{"date":"2024-01-01","approved_revenue":100,"pending_revenue":0,"cancelled_revenue":0,"approved_orders":2,"pending_orders":0,"cancelled_orders":0}]}`)
	})
	return mux
}

func (b *backends) record(r *http.Request) {
	b.mu.Lock()
	b.queries = append(b.queries, r.URL.Path+"?"+r.URL.RawQuery)
	b.mu.Unlock()
}

func (b *backends) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queries)
}

func TestEndToEnd_LoadUnwrapsEnvelope(t *testing.T) {
	be := &backends{}
	srv := httptest.NewServer(be.handler())
	defer srv.Close()

	opts := client.Options{HTTPClient: &http.Client{Timeout: 5 * time.Second}, BaseURL: srv.URL, MaxConcurrency: 4}
	session := service.NewSessionStore(kvstore.NewMemory(), "", zap.NewNop())
	dash := service.NewDashboard(
		client.NewQueryClient(opts), client.NewIngestionClient(opts), session, nil,
		&manualScheduler{}, defaultConfig(), observability.NewMetrics(), zap.NewNop(),
	)

	state := dash.Load(context.Background(), pixFilters())
	if state.Phase != domain.LoadReady {
		t.Fatalf("expected ready, got %+v", state)
	}
	_, series := dash.Data()
	if len(series) != 1 || series[0].Date != "2024-01-01" || series[0].ApprovedOrders != 2 {
		t.Errorf("expected unwrapped one-entry series, got %+v", series)
	}
	for _, q := range be.queries {
		if q != "/api/metrics?payment_method=pix" && q != "/api/metrics/time-series?payment_method=pix" {
			t.Errorf("unexpected query %s", q)
		}
	}
}

func TestEndToEnd_LoginSyncReload(t *testing.T) {
	be := &backends{}
	srv := httptest.NewServer(be.handler())
	defer srv.Close()

	opts := client.Options{HTTPClient: &http.Client{Timeout: 5 * time.Second}, BaseURL: srv.URL, MaxConcurrency: 4}
	ingest := client.NewIngestionClient(opts)
	metrics := observability.NewMetrics()
	session := service.NewSessionStore(kvstore.NewMemory(), "", zap.NewNop())
	timer := scheduler.NewTimer(context.Background())
	defer timer.Stop()

	dash := service.NewDashboard(
		client.NewQueryClient(opts), ingest, session, nil, timer,
		service.DashboardConfig{ReloadDelay: 20 * time.Millisecond}, metrics, zap.NewNop(),
	)
	auth := service.NewAuthService(ingest, session, dash, metrics, zap.NewNop())

	if _, err := auth.Login(context.Background(), "admin", "admin123"); err != nil {
		t.Fatalf("login: %v", err)
	}
	dash.ApplyFilters(context.Background(), pixFilters())
	before := be.count()

	if _, err := dash.Sync(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := dash.WaitReload(ctx); err != nil {
		t.Fatalf("wait reload: %v", err)
	}

	if got := be.count() - before; got != 2 {
		t.Errorf("expected one reload (2 queries), got %d queries", got)
	}
	if got := metrics.Snapshot().ReloadsScheduled; got != 1 {
		t.Errorf("expected 1 scheduled reload, got %d", got)
	}
}

// When one query is rejected the sibling is cancelled; neither counts against
// the breaker of a backend that keeps answering.
func TestEndToEnd_CancelledSiblingKeepsBreakerClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/metrics" {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error":"data inválida"}`)
			return
		}
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
			return
		}
		io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	opts := client.Options{HTTPClient: &http.Client{Timeout: 5 * time.Second}, BaseURL: srv.URL, MaxConcurrency: 4}
	query := client.NewQueryClient(opts)
	session := service.NewSessionStore(kvstore.NewMemory(), "", zap.NewNop())
	dash := service.NewDashboard(query, client.NewIngestionClient(opts), session, nil,
		&manualScheduler{}, defaultConfig(), observability.NewMetrics(), zap.NewNop())

	for i := 0; i < 6; i++ {
		state := dash.Load(context.Background(), domain.FilterSet{})
		if state.Phase != domain.LoadFailed || state.Message != "data inválida" {
			t.Fatalf("load %d: expected remote failure, got %+v", i, state)
		}
	}
	if got := query.BreakerState(); got != "closed" {
		t.Errorf("expected breaker closed, got %q", got)
	}
}
