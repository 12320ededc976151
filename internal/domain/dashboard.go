package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ============================================================
// View mode & load state
// ============================================================

// ViewMode selects which triplet of the time series is presented.
type ViewMode string

const (
	ViewRevenue ViewMode = "revenue"
	ViewOrders  ViewMode = "orders"
)

// ParseViewMode validates s. An empty string yields ViewRevenue.
func ParseViewMode(s string) (ViewMode, error) {
	switch ViewMode(s) {
	case "", ViewRevenue:
		return ViewRevenue, nil
	case ViewOrders:
		return ViewOrders, nil
	}
	return "", &ErrValidation{Field: "mode", Message: fmt.Sprintf("unknown view mode %q", s)}
}

// LoadPhase is the coarse state of the dashboard's main query path.
type LoadPhase string

const (
	LoadIdle    LoadPhase = "idle"
	LoadLoading LoadPhase = "loading"
	LoadReady   LoadPhase = "ready"
	LoadFailed  LoadPhase = "failed"
)

// LoadState drives what the rendering side may display.
// Message is only set when Phase is LoadFailed.
type LoadState struct {
	Phase   LoadPhase `json:"phase"`
	Message string    `json:"message,omitempty"`
}

func Idle() LoadState                 { return LoadState{Phase: LoadIdle} }
func Loading() LoadState              { return LoadState{Phase: LoadLoading} }
func Ready() LoadState                { return LoadState{Phase: LoadReady} }
func Failed(message string) LoadState { return LoadState{Phase: LoadFailed, Message: message} }

// ============================================================
// Backend 1 payloads
// ============================================================

// LoginResult is the body of a successful POST /login.
type LoginResult struct {
	Token          string `json:"token"`
	Username       string `json:"username,omitempty"`
	ExpiresInHours int    `json:"expires_in_hours,omitempty"`
}

// JobAck acknowledges a sync trigger. The job itself runs remotely and its
// completion is not observable from here.
type JobAck struct {
	ID               string          `json:"id"`
	Message          string          `json:"message,omitempty"`
	PipelineResponse json.RawMessage `json:"pipeline_response,omitempty"`
	AcceptedAt       time.Time       `json:"accepted_at"`
}

// SyncPhase tracks the last sync trigger, independently of LoadState.
type SyncPhase string

const (
	SyncIdle      SyncPhase = "idle"
	SyncRunning   SyncPhase = "running"
	SyncSucceeded SyncPhase = "succeeded"
	SyncFailed    SyncPhase = "failed"
)

// SyncStatus is what the rendering side shows next to the sync controls.
type SyncStatus struct {
	Phase         SyncPhase `json:"phase"`
	Message       string    `json:"message,omitempty"`
	LastJob       *JobAck   `json:"last_job,omitempty"`
	ReloadPending bool      `json:"reload_pending"`
}

// ============================================================
// View model
// ============================================================

// FilterPair exposes both filter instances.
type FilterPair struct {
	Draft   FilterSet `json:"draft"`
	Applied FilterSet `json:"applied"`
}

// DashboardView is the single consistent view model handed to renderers.
type DashboardView struct {
	Authenticated bool             `json:"authenticated"`
	State         LoadState        `json:"state"`
	Filters       FilterPair       `json:"filters"`
	ViewMode      ViewMode         `json:"view_mode"`
	Metrics       *MetricsSnapshot `json:"metrics,omitempty"`
	Cards         []MetricCard     `json:"cards,omitempty"`
	Series        ProjectedSeries  `json:"series"`
	Sync          SyncStatus       `json:"sync"`
}

// DashboardStats is returned by GET /v1/stats.
type DashboardStats struct {
	LoadsReady       int64 `json:"loads_ready"`
	LoadsFailed      int64 `json:"loads_failed"`
	LoadsStale       int64 `json:"loads_stale"`
	SyncsOK          int64 `json:"syncs_ok"`
	SyncsFailed      int64 `json:"syncs_failed"`
	SyncsThrottled   int64 `json:"syncs_throttled"`
	ReloadsScheduled int64 `json:"reloads_scheduled"`
}
