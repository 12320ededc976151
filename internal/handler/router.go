package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/boddenberg/orders-dashboard-go/internal/domain"
	"github.com/boddenberg/orders-dashboard-go/internal/infra/observability"
	"github.com/boddenberg/orders-dashboard-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// maxUploadMemory is how much of a multipart upload is held in memory
// before spilling to temporary files.
const maxUploadMemory = 32 << 20

// BreakerReporter is implemented by the backend clients.
type BreakerReporter interface {
	BreakerState() string
}

// Backend names a backend for the health endpoint.
type Backend struct {
	Name  string
	Probe BreakerReporter
}

// NewRouter creates the HTTP router with all routes and middleware.
// The JSON surface hands the dashboard view model to the rendering side.
func NewRouter(dash *service.Dashboard, authSvc *service.AuthService, backends []Backend, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(backends))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Get("/stats", statsHandler(metrics))

		if dash == nil || authSvc == nil {
			r.Handle("/*", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(w, http.StatusServiceUnavailable, "dashboard not configured")
			}))
			return
		}

		// Session
		r.Post("/session/login", loginHandler(authSvc, logger))
		r.Post("/session/logout", logoutHandler(authSvc))
		r.Get("/session", sessionHandler(authSvc))

		// Dashboard & filters
		r.Get("/dashboard", dashboardHandler(dash, logger))
		r.Post("/dashboard/reload", reloadHandler(dash))
		r.Put("/filters/draft", draftFiltersHandler(dash, logger))
		r.Post("/filters/apply", applyFiltersHandler(dash, logger))
		r.Post("/filters/clear", clearFiltersHandler(dash))
		r.Put("/view-mode", viewModeHandler(dash, logger))

		// Sync (requires a session)
		r.Group(func(r chi.Router) {
			r.Use(RequireSession(authSvc.Session(), logger))
			r.Post("/sync", syncHandler(dash, logger))
			r.Post("/sync/upload", uploadHandler(dash, logger))
		})
	})

	return r
}

// Handlers that change the shared dashboard detach from the request's
// cancellation: a client hanging up must not leave the state failed for
// everyone else. Timeouts still come from the backend clients.

// ============================================================
// Operational
// ============================================================

func healthzHandler(backends []Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services := []domain.ServiceHealth{{Name: "orders-dashboard", Status: "healthy"}}
		for _, b := range backends {
			state := b.Probe.BreakerState()
			status := "healthy"
			switch state {
			case "half-open":
				status = "degraded"
			case "open":
				status = "unhealthy"
			}
			services = append(services, domain.ServiceHealth{Name: b.Name, Status: status, Breaker: state})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func statsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.Snapshot())
	}
}

// ============================================================
// Session
// ============================================================

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func loginHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/session/login")
		defer span.End()

		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		res, err := authSvc.Login(context.WithoutCancel(ctx), req.Username, req.Password)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		info := sessionInfo(authSvc.Session())
		info.Username = res.Username
		writeJSON(w, http.StatusOK, info)
	}
}

func logoutHandler(authSvc *service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authSvc.Logout()
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "Sessão encerrada"})
	}
}

func sessionHandler(authSvc *service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, sessionInfo(authSvc.Session()))
	}
}

func sessionInfo(s *service.SessionStore) domain.SessionInfo {
	info := domain.SessionInfo{Authenticated: s.Authenticated()}
	if exp, ok := s.ExpiresAt(); ok {
		info.ExpiresAt = exp.UTC().Format(time.RFC3339)
	}
	return info
}

// ============================================================
// Dashboard & filters
// ============================================================

func dashboardHandler(dash *service.Dashboard, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view := r.URL.Query().Get("view")
		if view == "" {
			writeJSON(w, http.StatusOK, dash.View())
			return
		}
		mode, err := domain.ParseViewMode(view)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, dash.ViewWith(mode))
	}
}

func reloadHandler(dash *service.Dashboard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/dashboard/reload")
		defer span.End()

		dash.Reload(context.WithoutCancel(ctx))
		writeJSON(w, http.StatusOK, dash.View())
	}
}

type filtersRequest struct {
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	PaymentMethod string `json:"payment_method"`
}

func (f filtersRequest) parse() (domain.FilterSet, error) {
	return domain.ParseFilterSet(f.StartDate, f.EndDate, f.PaymentMethod)
}

func draftFiltersHandler(dash *service.Dashboard, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req filtersRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		draft, err := req.parse()
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		dash.Filters().SetDraft(draft)
		writeJSON(w, http.StatusOK, dash.Filters().Pair())
	}
}

// applyFiltersHandler applies the body's filters when one is sent and the
// held draft otherwise.
func applyFiltersHandler(dash *service.Dashboard, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/filters/apply")
		defer span.End()

		var req filtersRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		switch {
		case errors.Is(err, io.EOF):
			span.SetAttributes(attribute.Bool("filters.from_draft", true))
			dash.ApplyDraft(context.WithoutCancel(ctx))
		case err != nil:
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		default:
			draft, err := req.parse()
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}
			dash.ApplyFilters(context.WithoutCancel(ctx), draft)
		}

		writeJSON(w, http.StatusOK, dash.View())
	}
}

func clearFiltersHandler(dash *service.Dashboard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/filters/clear")
		defer span.End()

		dash.ClearFilters(context.WithoutCancel(ctx))
		writeJSON(w, http.StatusOK, dash.View())
	}
}

func viewModeHandler(dash *service.Dashboard, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Mode string `json:"mode"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		mode, err := domain.ParseViewMode(req.Mode)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		dash.SetViewMode(mode)
		writeJSON(w, http.StatusOK, dash.View())
	}
}

// ============================================================
// Sync
// ============================================================

func syncHandler(dash *service.Dashboard, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/sync")
		defer span.End()

		ack, err := dash.Sync(context.WithoutCancel(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("job.id", ack.ID))
		writeJSON(w, http.StatusAccepted, domain.SyncResponse{Job: ack, Sync: dash.SyncStatus()})
	}
}

func uploadHandler(dash *service.Dashboard, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/sync/upload")
		defer span.End()

		var intake service.Intake
		defer intake.Clear()

		candidate := formFile(r, "file")
		if r.MultipartForm != nil {
			defer r.MultipartForm.RemoveAll()
		}

		handle, err := intake.Select(candidate)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("file.name", handle.Name))

		ack, err := dash.SyncWithFile(context.WithoutCancel(ctx), handle)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusAccepted, domain.SyncResponse{Job: ack, Sync: dash.SyncStatus()})
	}
}

// formFile describes the named multipart field, or returns nil when absent.
func formFile(r *http.Request, field string) *domain.CandidateFile {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return nil
	}
	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		return nil
	}
	fh := headers[0]
	return &domain.CandidateFile{
		Name: fh.Filename,
		Size: fh.Size,
		Open: func() (io.ReadCloser, error) { return fh.Open() },
	}
}
