package cli

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"github.com/boddenberg/orders-dashboard-go/internal/config"
	"github.com/boddenberg/orders-dashboard-go/internal/handler"
	"github.com/boddenberg/orders-dashboard-go/internal/infra/client"
	"github.com/boddenberg/orders-dashboard-go/internal/infra/kvstore"
	"github.com/boddenberg/orders-dashboard-go/internal/infra/observability"
	"github.com/boddenberg/orders-dashboard-go/internal/infra/scheduler"
	"github.com/boddenberg/orders-dashboard-go/internal/port"
	"github.com/boddenberg/orders-dashboard-go/internal/service"

	"go.uber.org/zap"
)

// deps is the wired dashboard core shared by every command.
type deps struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *observability.Metrics
	ingest  *client.IngestionClient
	query   *client.QueryClient
	session *service.SessionStore
	timer   *scheduler.Timer
	dash    *service.Dashboard
	auth    *service.AuthService
}

func build(ctx context.Context, cfg *config.Config, logger *zap.Logger, store port.KeyValueStore) *deps {
	metrics := observability.NewMetrics()

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	uploadClient := &http.Client{Timeout: cfg.UploadTimeout}

	ingest := client.NewIngestionClient(client.Options{
		HTTPClient:     httpClient,
		UploadClient:   uploadClient,
		BaseURL:        cfg.IngestionURL,
		MaxConcurrency: cfg.MaxConcurrency,
	})
	query := client.NewQueryClient(client.Options{
		HTTPClient:     httpClient,
		BaseURL:        cfg.QueryURL,
		MaxConcurrency: cfg.MaxConcurrency,
	})

	session := service.NewSessionStore(store, cfg.SessionTokenKey, logger)
	timer := scheduler.NewTimer(ctx)

	dash := service.NewDashboard(query, ingest, session, service.NewFilterState(), timer,
		service.DashboardConfig{
			ReloadDelay:  cfg.SyncReloadDelay,
			SyncInterval: cfg.SyncMinInterval,
			SyncBurst:    cfg.SyncBurst,
		},
		metrics, logger,
	)
	auth := service.NewAuthService(ingest, session, dash, metrics, logger)

	return &deps{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		ingest:  ingest,
		query:   query,
		session: session,
		timer:   timer,
		dash:    dash,
		auth:    auth,
	}
}

func (d *deps) router() http.Handler {
	backends := []handler.Backend{
		{Name: "ingestion-api", Probe: d.ingest},
		{Name: "query-api", Probe: d.query},
	}
	return handler.WithCORS(handler.NewRouter(d.dash, d.auth, backends, d.metrics, d.logger), d.cfg.CORSOrigins)
}

func (d *deps) close() {
	d.dash.Close()
	d.timer.Stop()
}

// sessionStore picks where the token lives. path "" keeps it in memory.
func sessionStore(path, secret string) port.KeyValueStore {
	if path == "" {
		return kvstore.NewMemory()
	}
	return kvstore.NewFile(path, secret)
}

// defaultSessionFile is where one-shot commands keep the token between runs.
func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "orders-dashboard", "session.json")
}
