package service

import (
	"context"
	"sync"
	"time"

	"github.com/boddenberg/orders-dashboard-go/internal/domain"
	"github.com/boddenberg/orders-dashboard-go/internal/infra/observability"
	"github.com/boddenberg/orders-dashboard-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("service/dashboard")

// Messages shown when a sync is refused locally.
const (
	MsgSessionRequired = "Sessão expirada. Faça login novamente."
	MsgSyncThrottled   = "Aguarde antes de sincronizar novamente."
	MsgSyncInProgress  = "Sincronização em andamento. Aguarde."
)

const (
	syncPlain  = "plain"
	syncUpload = "upload"
)

// DashboardConfig tunes the orchestrator.
type DashboardConfig struct {
	// ReloadDelay is how long after a successful sync the data is re-queried.
	ReloadDelay time.Duration
	// SyncInterval is the minimum spacing between accepted syncs. Zero disables throttling.
	SyncInterval time.Duration
	SyncBurst    int
}

// Dashboard is the data orchestrator. It loads metrics and the time series
// under the applied filters, triggers syncs and schedules the reload that
// follows them. Its methods never panic past their boundary; load failures
// end in a failed LoadState.
type Dashboard struct {
	query     port.QueryGateway
	ingest    port.IngestionGateway
	session   port.TokenSource
	filters   *FilterState
	scheduler port.Scheduler
	limiter   *rate.Limiter // nil: no spacing between syncs
	delay     time.Duration
	metrics   *observability.Metrics
	logger    *zap.Logger

	mu        sync.Mutex
	seq       uint64
	state     domain.LoadState
	snapshot  *domain.MetricsSnapshot
	series    domain.TimeSeries
	viewMode  domain.ViewMode
	sync      domain.SyncStatus
	reload    port.Task
	reloadGen uint64
	closed    bool
}

// NewDashboard creates the orchestrator with all dependencies injected.
func NewDashboard(
	query port.QueryGateway,
	ingest port.IngestionGateway,
	session port.TokenSource,
	filters *FilterState,
	scheduler port.Scheduler,
	cfg DashboardConfig,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Dashboard {
	var limiter *rate.Limiter
	if cfg.SyncInterval > 0 {
		burst := cfg.SyncBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Every(cfg.SyncInterval), burst)
	}
	if filters == nil {
		filters = NewFilterState()
	}

	return &Dashboard{
		query:     query,
		ingest:    ingest,
		session:   session,
		filters:   filters,
		scheduler: scheduler,
		limiter:   limiter,
		delay:     cfg.ReloadDelay,
		metrics:   metrics,
		logger:    logger,
		state:     domain.Idle(),
		viewMode:  domain.ViewRevenue,
		sync:      domain.SyncStatus{Phase: domain.SyncIdle},
	}
}

// Filters exposes the filter state the dashboard reads the applied set from.
func (d *Dashboard) Filters() *FilterState { return d.filters }

// Load queries metrics and the time series concurrently under filters and
// commits both only when both succeed. Only the most recently issued load may
// change state; older ones finishing later are discarded.
func (d *Dashboard) Load(ctx context.Context, filters domain.FilterSet) domain.LoadState {
	ctx, span := tracer.Start(ctx, "Dashboard.Load")
	defer span.End()

	start := time.Now()
	defer func() {
		d.metrics.RecordRequestDuration("load", time.Since(start))
	}()

	d.mu.Lock()
	d.seq++
	seq := d.seq
	d.state = domain.Loading()
	d.mu.Unlock()

	token, _ := d.session.CurrentToken()
	span.SetAttributes(
		attribute.Int64("load.seq", int64(seq)),
		attribute.Bool("auth.token_present", token != ""),
	)

	var (
		snapshot *domain.MetricsSnapshot
		series   domain.TimeSeries
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s, err := d.query.QueryMetrics(gCtx, token, filters)
		if err != nil {
			d.logger.Error("failed to fetch metrics", zap.Uint64("seq", seq), zap.Error(err))
			d.metrics.IncrExternalError("metrics")
			return err
		}
		snapshot = s
		return nil
	})

	g.Go(func() error {
		ts, err := d.query.QueryTimeSeries(gCtx, token, filters)
		if err != nil {
			d.logger.Error("failed to fetch time series", zap.Uint64("seq", seq), zap.Error(err))
			d.metrics.IncrExternalError("time-series")
			return err
		}
		series = ts
		return nil
	})

	err := g.Wait()

	d.mu.Lock()
	defer d.mu.Unlock()

	if seq != d.seq {
		d.logger.Debug("discarding stale load", zap.Uint64("seq", seq), zap.Uint64("latest", d.seq))
		d.metrics.IncrLoad("stale")
		return d.state
	}

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		d.state = domain.Failed(domain.UserMessage(err, domain.MsgQueryFailed))
		d.metrics.IncrLoad("failed")
		return d.state
	}

	if snapshot == nil {
		snapshot = &domain.MetricsSnapshot{}
	}
	if series == nil {
		series = domain.TimeSeries{}
	}
	d.snapshot = snapshot
	d.series = series
	d.state = domain.Ready()
	d.metrics.IncrLoad("ready")
	span.SetAttributes(attribute.Int("series.points", len(series)))
	return d.state
}

// ApplyFilters commits draft as the applied filter set and loads under it.
func (d *Dashboard) ApplyFilters(ctx context.Context, draft domain.FilterSet) domain.LoadState {
	return d.Load(ctx, d.filters.Commit(draft))
}

// ApplyDraft applies whatever draft the filter state holds.
func (d *Dashboard) ApplyDraft(ctx context.Context) domain.LoadState {
	return d.ApplyFilters(ctx, d.filters.Draft())
}

// ClearFilters resets draft and applied and loads with no filters.
func (d *Dashboard) ClearFilters(ctx context.Context) domain.LoadState {
	d.filters.Reset()
	return d.Load(ctx, domain.FilterSet{})
}

// Reload loads again under the applied filters.
func (d *Dashboard) Reload(ctx context.Context) domain.LoadState {
	return d.Load(ctx, d.filters.Applied())
}

// Sync triggers the ingestion pipeline. On success a reload under the filters
// applied right now is scheduled after the settling delay.
func (d *Dashboard) Sync(ctx context.Context) (*domain.JobAck, error) {
	return d.trigger(ctx, syncPlain, nil)
}

// SyncWithFile uploads file and triggers the pipeline with it.
func (d *Dashboard) SyncWithFile(ctx context.Context, file *domain.CsvFileHandle) (*domain.JobAck, error) {
	if file == nil {
		return nil, &domain.ErrValidation{Field: "file", Message: "Nenhum arquivo selecionado."}
	}
	return d.trigger(ctx, syncUpload, file)
}

func (d *Dashboard) trigger(ctx context.Context, kind string, file *domain.CsvFileHandle) (*domain.JobAck, error) {
	ctx, span := tracer.Start(ctx, "Dashboard.Sync")
	defer span.End()
	span.SetAttributes(attribute.String("sync.kind", kind))

	token, ok := d.session.CurrentToken()
	if !ok {
		err := &domain.ErrUnauthorized{Message: MsgSessionRequired}
		d.syncFailed(kind, err.Message)
		return nil, err
	}

	// One sync at a time. The limiter token is only spent once Backend 1
	// accepted the job, so a failed sync can be retried right away.
	d.mu.Lock()
	if d.sync.Phase == domain.SyncRunning {
		// The status already reports the running sync; leave it.
		d.mu.Unlock()
		d.metrics.IncrSync(kind, "throttled")
		d.logger.Info("sync refused, another is running", zap.String("kind", kind))
		return nil, syncError(kind, MsgSyncInProgress, &domain.ErrRateLimited{Action: "sync"})
	}
	if d.limiter != nil && d.limiter.Tokens() < 1 {
		d.sync.Message = MsgSyncThrottled
		d.mu.Unlock()
		d.metrics.IncrSync(kind, "throttled")
		d.logger.Info("sync throttled", zap.String("kind", kind))
		return nil, syncError(kind, MsgSyncThrottled, &domain.ErrRateLimited{Action: "sync"})
	}
	d.sync.Phase = domain.SyncRunning
	d.sync.Message = ""
	d.mu.Unlock()

	start := time.Now()
	var (
		ack *domain.JobAck
		err error
	)
	if kind == syncUpload {
		ack, err = d.ingest.TriggerSyncWithFile(ctx, token, file)
	} else {
		ack, err = d.ingest.TriggerSync(ctx, token)
	}
	d.metrics.RecordRequestDuration("sync_"+kind, time.Since(start))

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		d.logger.Error("sync failed", zap.String("kind", kind), zap.Error(err))
		d.metrics.IncrExternalError("ingestion")
		d.syncFailed(kind, domain.UserMessage(err, fallbackSyncMessage(kind)))
		return nil, err
	}

	if ack == nil {
		ack = &domain.JobAck{AcceptedAt: time.Now().UTC()}
	}
	if d.limiter != nil {
		d.limiter.Allow()
	}
	d.metrics.IncrSync(kind, "ok")
	span.SetAttributes(attribute.String("job.id", ack.ID))
	d.logger.Info("sync accepted",
		zap.String("kind", kind),
		zap.String("job_id", ack.ID),
		zap.Duration("reload_in", d.delay),
	)
	d.scheduleReload(ack)
	return ack, nil
}

// scheduleReload snapshots the applied filters and schedules one reload with
// them. A reload still pending from an earlier sync is replaced.
func (d *Dashboard) scheduleReload(ack *domain.JobAck) {
	filters := d.filters.Applied()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.sync = domain.SyncStatus{Phase: domain.SyncSucceeded, Message: ack.Message, LastJob: ack}
	if d.closed {
		return
	}

	d.cancelReloadLocked()
	d.reloadGen++
	gen := d.reloadGen
	d.reload = d.scheduler.Schedule(d.delay, func(ctx context.Context) {
		d.mu.Lock()
		if d.reloadGen == gen {
			d.reload = nil
			d.sync.ReloadPending = false
		}
		d.mu.Unlock()

		state := d.Load(ctx, filters)
		d.logger.Debug("post-sync reload finished", zap.String("phase", string(state.Phase)))
	})
	d.sync.ReloadPending = true
	d.metrics.IncrReload("scheduled")
}

func (d *Dashboard) syncFailed(kind, message string) {
	d.metrics.IncrSync(kind, "failed")
	d.mu.Lock()
	d.sync.Phase = domain.SyncFailed
	d.sync.Message = message
	d.mu.Unlock()
}

// CancelPendingReload cancels a scheduled post-sync reload that has not
// started. It reports whether one was cancelled.
func (d *Dashboard) CancelPendingReload() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancelReloadLocked()
}

func (d *Dashboard) cancelReloadLocked() bool {
	if d.reload == nil {
		return false
	}
	cancelled := d.reload.Cancel()
	d.reload = nil
	d.sync.ReloadPending = false
	if cancelled {
		d.metrics.IncrReload("cancelled")
	}
	return cancelled
}

// WaitReload blocks until the pending post-sync reload has run, or ctx ends.
// It returns immediately when nothing is pending.
func (d *Dashboard) WaitReload(ctx context.Context) error {
	d.mu.Lock()
	task := d.reload
	d.mu.Unlock()
	if task == nil {
		return nil
	}

	select {
	case <-task.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reset drops everything loaded for the current session: data, filters, view
// mode, sync status and the pending reload. Loads still in flight become stale.
func (d *Dashboard) Reset() {
	d.filters.Reset()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelReloadLocked()
	d.seq++
	d.state = domain.Idle()
	d.snapshot = nil
	d.series = nil
	d.viewMode = domain.ViewRevenue
	d.sync = domain.SyncStatus{Phase: domain.SyncIdle}
}

// Close cancels the pending reload and refuses to schedule new ones.
func (d *Dashboard) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.cancelReloadLocked()
}

// SetViewMode switches the presentation. It never triggers a query.
func (d *Dashboard) SetViewMode(mode domain.ViewMode) {
	d.mu.Lock()
	d.viewMode = mode
	d.mu.Unlock()
}

func (d *Dashboard) ViewMode() domain.ViewMode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.viewMode
}

func (d *Dashboard) State() domain.LoadState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Dashboard) SyncStatus() domain.SyncStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sync
}

// Data returns the last committed snapshot and series.
func (d *Dashboard) Data() (*domain.MetricsSnapshot, domain.TimeSeries) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshot, d.series
}

// View builds the view model in the current view mode.
func (d *Dashboard) View() domain.DashboardView {
	return d.ViewWith(d.ViewMode())
}

// ViewWith builds the view model projected for mode without changing the
// held view mode.
func (d *Dashboard) ViewWith(mode domain.ViewMode) domain.DashboardView {
	d.mu.Lock()
	state, snapshot, series, status := d.state, d.snapshot, d.series, d.sync
	d.mu.Unlock()

	_, authenticated := d.session.CurrentToken()
	return domain.DashboardView{
		Authenticated: authenticated,
		State:         state,
		Filters:       d.filters.Pair(),
		ViewMode:      mode,
		Metrics:       snapshot,
		Cards:         ProjectCards(snapshot),
		Series:        Project(series, mode),
		Sync:          status,
	}
}

func fallbackSyncMessage(kind string) string {
	if kind == syncUpload {
		return domain.MsgUploadFailed
	}
	return domain.MsgSyncFailed
}

func syncError(kind, message string, err error) error {
	if kind == syncUpload {
		return &domain.ErrUpload{Message: message, Err: err}
	}
	return &domain.ErrSync{Message: message, Err: err}
}
