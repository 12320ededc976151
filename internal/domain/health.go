package domain

// ============================================================
// Health & Session API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual backend as seen
// through its circuit breaker.
type ServiceHealth struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Breaker string `json:"breaker,omitempty"`
}

// SessionInfo is returned by the session endpoints. The token itself is
// never exposed.
type SessionInfo struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
	ExpiresAt     string `json:"expires_at,omitempty"`
}

// SuccessResponse wraps a successful action without a richer body.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

// SyncResponse is returned by the sync endpoints.
type SyncResponse struct {
	Job  *JobAck    `json:"job"`
	Sync SyncStatus `json:"sync"`
}
