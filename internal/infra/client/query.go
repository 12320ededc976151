package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/boddenberg/orders-dashboard-go/internal/domain"
	"github.com/boddenberg/orders-dashboard-go/internal/infra/resilience"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// QueryClient calls the read-only query service (Backend 2). The bearer
// token is advisory here: it is attached when present and never required.
type QueryClient struct {
	httpClient *http.Client
	baseURL    string
	guard      *resilience.Guard
}

// NewQueryClient creates a new QueryClient.
func NewQueryClient(opts Options) *QueryClient {
	return &QueryClient{
		httpClient: opts.HTTPClient,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		guard:      newGuard("query-api", opts.MaxConcurrency),
	}
}

// QueryMetrics fetches GET /api/metrics under the given filters.
func (c *QueryClient) QueryMetrics(ctx context.Context, token string, filters domain.FilterSet) (*domain.MetricsSnapshot, error) {
	ctx, span := tracer.Start(ctx, "QueryClient.QueryMetrics")
	defer span.End()
	span.SetAttributes(attribute.Bool("auth.token_present", token != ""))

	body, err := c.get(ctx, "/api/metrics", token, filters)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, c.queryError("metrics", err)
	}

	var snapshot domain.MetricsSnapshot
	if err := json.Unmarshal(body, &snapshot); err != nil {
		return nil, &domain.ErrQuery{Operation: "metrics", Err: fmt.Errorf("decode metrics: %w", err)}
	}
	return &snapshot, nil
}

// QueryTimeSeries fetches GET /api/metrics/time-series under the given
// filters. The response may be a bare array or a {filters, data} envelope;
// either way the bare series is returned.
func (c *QueryClient) QueryTimeSeries(ctx context.Context, token string, filters domain.FilterSet) (domain.TimeSeries, error) {
	ctx, span := tracer.Start(ctx, "QueryClient.QueryTimeSeries")
	defer span.End()
	span.SetAttributes(attribute.Bool("auth.token_present", token != ""))

	body, err := c.get(ctx, "/api/metrics/time-series", token, filters)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, c.queryError("time-series", err)
	}

	series, err := DecodeTimeSeries(body)
	if err != nil {
		return nil, &domain.ErrQuery{Operation: "time-series", Err: err}
	}
	span.SetAttributes(attribute.Int("series.points", len(series)))
	return series, nil
}

// DecodeTimeSeries normalizes both time-series response shapes.
func DecodeTimeSeries(body []byte) (domain.TimeSeries, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return domain.TimeSeries{}, nil
	}

	switch trimmed[0] {
	case '[':
		var series domain.TimeSeries
		if err := json.Unmarshal(trimmed, &series); err != nil {
			return nil, fmt.Errorf("decode time series: %w", err)
		}
		return series, nil
	case '{':
		var envelope struct {
			Filters json.RawMessage   `json:"filters"`
			Data    domain.TimeSeries `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("decode time series envelope: %w", err)
		}
		if envelope.Data == nil {
			return domain.TimeSeries{}, nil
		}
		return envelope.Data, nil
	}
	return nil, fmt.Errorf("decode time series: unexpected payload starting with %q", trimmed[0])
}

func (c *QueryClient) get(ctx context.Context, path, token string, filters domain.FilterSet) ([]byte, error) {
	url := withQuery(c.baseURL+path, EncodeFilters(filters))

	return resilience.Do(ctx, c.guard, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		prepare(ctx, req, token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if !isSuccess(resp.StatusCode) {
			return nil, readRemoteError(resp)
		}
		return readBody(resp)
	})
}

func (c *QueryClient) queryError(op string, err error) error {
	status, msg := remoteParts(err)
	return &domain.ErrQuery{Operation: op, Status: status, Message: msg, Err: err}
}
