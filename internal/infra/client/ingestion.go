package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/boddenberg/orders-dashboard-go/internal/domain"
	"github.com/boddenberg/orders-dashboard-go/internal/infra/resilience"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// UploadField is the multipart field Backend 1 reads the CSV from.
const UploadField = "file"

// IngestionClient calls the auth & ingestion service (Backend 1). Sync
// endpoints require a bearer token.
type IngestionClient struct {
	httpClient   *http.Client
	uploadClient *http.Client
	baseURL      string
	guard        *resilience.Guard
}

// NewIngestionClient creates a new IngestionClient. Uploads use
// opts.UploadClient when set, since the remote pipeline runs inline.
func NewIngestionClient(opts Options) *IngestionClient {
	upload := opts.UploadClient
	if upload == nil {
		upload = opts.HTTPClient
	}
	return &IngestionClient{
		httpClient:   opts.HTTPClient,
		uploadClient: upload,
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		guard:        newGuard("ingestion-api", opts.MaxConcurrency),
	}
}

// Authenticate exchanges credentials for a session token via POST /login.
func (c *IngestionClient) Authenticate(ctx context.Context, username, password string) (*domain.LoginResult, error) {
	ctx, span := tracer.Start(ctx, "IngestionClient.Authenticate")
	defer span.End()

	payload, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return nil, &domain.ErrAuth{Err: err}
	}

	body, err := resilience.Do(ctx, c.guard, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		prepare(ctx, req, "")
		return c.send(c.httpClient, req)
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		status, msg := remoteParts(err)
		return nil, &domain.ErrAuth{Status: status, Message: msg, Err: err}
	}

	var result domain.LoginResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &domain.ErrAuth{Err: fmt.Errorf("decode login response: %w", err)}
	}
	if result.Token == "" {
		return nil, &domain.ErrAuth{Err: errors.New("login response carried no token")}
	}
	return &result, nil
}

// TriggerSync starts the ingestion pipeline via POST /sync.
func (c *IngestionClient) TriggerSync(ctx context.Context, token string) (*domain.JobAck, error) {
	ctx, span := tracer.Start(ctx, "IngestionClient.TriggerSync")
	defer span.End()

	var jobID string
	body, err := resilience.Do(ctx, c.guard, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sync", http.NoBody)
		if err != nil {
			return nil, err
		}
		jobID = prepare(ctx, req, token)
		return c.send(c.httpClient, req)
	})
	span.SetAttributes(attribute.String("job.id", jobID))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		status, msg := remoteParts(err)
		return nil, &domain.ErrSync{Status: status, Message: msg, Err: err}
	}
	return decodeAck(jobID, body), nil
}

// TriggerSyncWithFile uploads a CSV via POST /sync/upload as the multipart
// field "file"; the pipeline then ingests it.
func (c *IngestionClient) TriggerSyncWithFile(ctx context.Context, token string, file *domain.CsvFileHandle) (*domain.JobAck, error) {
	ctx, span := tracer.Start(ctx, "IngestionClient.TriggerSyncWithFile")
	defer span.End()

	if file == nil || file.Open == nil {
		return nil, &domain.ErrUpload{Err: errors.New("no file to upload")}
	}
	span.SetAttributes(
		attribute.String("file.name", file.Name),
		attribute.Int64("file.size", file.Size),
	)

	form, contentType, err := encodeMultipart(file)
	if err != nil {
		return nil, &domain.ErrUpload{Err: err}
	}

	var jobID string
	body, err := resilience.Do(ctx, c.guard, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sync/upload", bytes.NewReader(form))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		jobID = prepare(ctx, req, token)
		return c.send(c.uploadClient, req)
	})
	span.SetAttributes(attribute.String("job.id", jobID))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		status, msg := remoteParts(err)
		return nil, &domain.ErrUpload{Status: status, Message: msg, Err: err}
	}
	return decodeAck(jobID, body), nil
}

func (c *IngestionClient) send(hc *http.Client, req *http.Request) ([]byte, error) {
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, readRemoteError(resp)
	}
	return readBody(resp)
}

// encodeMultipart buffers the form so the request has a Content-Length.
func encodeMultipart(file *domain.CsvFileHandle) ([]byte, string, error) {
	src, err := file.Open()
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", file.Name, err)
	}
	defer src.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(UploadField, file.Name)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, src); err != nil {
		return nil, "", fmt.Errorf("read %s: %w", file.Name, err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}

// decodeAck reads {message, pipeline_response}. The body is informational,
// so an undecodable one still acknowledges the job.
func decodeAck(jobID string, body []byte) *domain.JobAck {
	ack := &domain.JobAck{ID: jobID, AcceptedAt: time.Now().UTC()}
	var payload struct {
		Message          string          `json:"message"`
		PipelineResponse json.RawMessage `json:"pipeline_response"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		ack.Message = payload.Message
		ack.PipelineResponse = payload.PipelineResponse
	}
	return ack
}
