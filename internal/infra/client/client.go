// Package client implements the backend gateway: typed HTTP clients for the
// ingestion service (Backend 1) and the query service (Backend 2). Wire
// details (headers, query strings, multipart bodies, response envelopes)
// stay in this package.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/boddenberg/orders-dashboard-go/internal/infra/observability"
	"github.com/boddenberg/orders-dashboard-go/internal/infra/resilience"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("client")

const (
	// maxErrorBody caps how much of an error response is read.
	maxErrorBody = 64 << 10
	// maxBody caps successful response bodies.
	maxBody = 32 << 20
)

// RequestIDHeader correlates outgoing calls with local logs.
const RequestIDHeader = "X-Request-ID"

// httpError is a non-2xx answer. Message is the backend's "error" field, if any.
type httpError struct {
	status  int
	message string
}

func (e *httpError) Error() string {
	if e.message != "" {
		return fmt.Sprintf("status %d: %s", e.status, e.message)
	}
	return fmt.Sprintf("status %d", e.status)
}

// backendHealthy tells the breaker that 4xx answers and calls abandoned by
// their caller are not backend failures.
func backendHealthy(err error) bool {
	if err == nil || resilience.CallerAborted(err) {
		return true
	}
	var he *httpError
	return errors.As(err, &he) && he.status < http.StatusInternalServerError
}

// remoteParts splits a call error into what the domain error types carry.
func remoteParts(err error) (status int, message string) {
	var he *httpError
	if errors.As(err, &he) {
		return he.status, he.message
	}
	return 0, ""
}

// readRemoteError builds an httpError from a non-2xx response. Backends answer
// {"error": "..."}; anything else yields an empty message.
func readRemoteError(resp *http.Response) *httpError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Error string `json:"error"`
	}
	msg := ""
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(body))), &payload); err == nil {
		msg = strings.TrimSpace(payload.Error)
	}
	return &httpError{status: resp.StatusCode, message: msg}
}

func readBody(resp *http.Response) ([]byte, error) {
	return io.ReadAll(io.LimitReader(resp.Body, maxBody))
}

func isSuccess(code int) bool { return code >= 200 && code < 300 }

// prepare sets the headers every outgoing request carries and returns the request id.
func prepare(ctx context.Context, req *http.Request, token string) string {
	id := uuid.New().String()
	req.Header.Set(RequestIDHeader, id)
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	observability.InjectTraceContext(ctx, req.Header)
	return id
}

// Options configures both clients.
type Options struct {
	HTTPClient     *http.Client
	UploadClient   *http.Client
	BaseURL        string
	MaxConcurrency int
}

func newGuard(name string, maxConcurrency int) *resilience.Guard {
	return resilience.NewGuard(
		resilience.NewCircuitBreaker(name, backendHealthy),
		resilience.NewBulkhead(maxConcurrency),
	)
}

// BreakerState reports the circuit breaker state guarding Backend 2.
func (c *QueryClient) BreakerState() string { return c.guard.State() }

// BreakerState reports the circuit breaker state guarding Backend 1.
func (c *IngestionClient) BreakerState() string { return c.guard.State() }
