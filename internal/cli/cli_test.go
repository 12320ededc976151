package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/orders-dashboard-go/internal/cli"
	"github.com/boddenberg/orders-dashboard-go/internal/config"
	"github.com/boddenberg/orders-dashboard-go/internal/domain"
	"github.com/boddenberg/orders-dashboard-go/internal/service"
)

// fakeBackends serves Backend 1 and Backend 2 from one server.
type fakeBackends struct {
	mu      sync.Mutex
	queries []string
	uploads []string
}

func (b *fakeBackends) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "admin123" {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"error":"Credenciais inválidas"}`)
			return
		}
		io.WriteString(w, `{"token":"tok-cli","username":"admin","expires_in_hours":24}`)
	})
	mux.HandleFunc("/sync", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"message":"Pipeline de ingestão disparado com sucesso"}`)
	})
	mux.HandleFunc("/sync/upload", func(w http.ResponseWriter, r *http.Request) {
		f, fh, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error":"Nenhum arquivo enviado"}`)
			return
		}
		defer f.Close()
		b.mu.Lock()
		b.uploads = append(b.uploads, fh.Filename)
		b.mu.Unlock()
		io.WriteString(w, `{"message":"Arquivo recebido"}`)
	})
	mux.HandleFunc("/api/metrics", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		io.WriteString(w, `{"financial_metrics":{"approved_revenue":150.5,"pending_revenue":20,"cancelled_revenue":0},
			"operational_metrics":{"approved_orders":3,"pending_orders":1,"cancelled_orders":0}}`)
	})
	mux.HandleFunc("/api/metrics/time-series", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		io.WriteString(w, `[{"date":"2024-01-01","approved_revenue":150.5,"pending_revenue":20,"cancelled_revenue":0,"approved_orders":3,"pending_orders":1,"cancelled_orders":0}]`)
	})
	return mux
}

func (b *fakeBackends) record(r *http.Request) {
	b.mu.Lock()
	b.queries = append(b.queries, r.URL.Path+"?"+r.URL.RawQuery)
	b.mu.Unlock()
}

func testConfig(t *testing.T, url string) *config.Config {
	t.Helper()
	return &config.Config{
		LogLevel:        "error",
		IngestionURL:    url,
		QueryURL:        url,
		HTTPTimeout:     5 * time.Second,
		UploadTimeout:   5 * time.Second,
		MaxConcurrency:  4,
		SyncReloadDelay: 10 * time.Millisecond,
		SyncMinInterval: time.Millisecond,
		SyncBurst:       1,
		SessionFile:     filepath.Join(t.TempDir(), "session.json"),
		SessionKey:      "test-secret",
		SessionTokenKey: service.DefaultTokenKey,
	}
}

func run(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := cli.New(cfg, "v1.2.3")
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

type viewOutput struct {
	Authenticated bool             `json:"authenticated"`
	State         domain.LoadState `json:"state"`
	ViewMode      domain.ViewMode  `json:"view_mode"`
	Series        struct {
		Labels []string `json:"labels"`
	} `json:"series"`
}

func decodeView(t *testing.T, out string) viewOutput {
	t.Helper()
	var v viewOutput
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	return v
}

func TestVersion(t *testing.T) {
	out, err := run(t, testConfig(t, "http://unused"), "version")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if strings.TrimSpace(out) != "v1.2.3" {
		t.Errorf("expected v1.2.3, got %q", out)
	}
}

func TestLoad_AppliesFiltersAndView(t *testing.T) {
	be := &fakeBackends{}
	srv := httptest.NewServer(be.handler())
	defer srv.Close()

	out, err := run(t, testConfig(t, srv.URL), "load", "--payment", "pix", "--start", "2024-01-01", "--view", "orders")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	v := decodeView(t, out)
	if v.State.Phase != domain.LoadReady {
		t.Errorf("expected ready, got %+v", v.State)
	}
	if v.ViewMode != domain.ViewOrders {
		t.Errorf("expected orders view, got %q", v.ViewMode)
	}
	if len(v.Series.Labels) != 1 || v.Series.Labels[0] != "2024-01-01" {
		t.Errorf("expected one label, got %v", v.Series.Labels)
	}
	for _, q := range be.queries {
		if !strings.Contains(q, "payment_method=pix") || !strings.Contains(q, "start_date=2024-01-01") {
			t.Errorf("query missing filters: %s", q)
		}
	}
}

func TestLoad_InvalidFilters(t *testing.T) {
	_, err := run(t, testConfig(t, "http://unused"), "load", "--payment", "cash")
	if err == nil {
		t.Fatal("expected error for unknown payment method")
	}
}

func TestLoad_BackendDownFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	out, err := run(t, testConfig(t, srv.URL), "load")
	if err == nil || err.Error() != domain.MsgQueryFailed {
		t.Fatalf("expected %q, got %v", domain.MsgQueryFailed, err)
	}
	if v := decodeView(t, out); v.State.Phase != domain.LoadFailed {
		t.Errorf("expected failed state printed, got %+v", v.State)
	}
}

// The session file carries the token from login into later invocations.
func TestLoginSessionSyncLogout(t *testing.T) {
	be := &fakeBackends{}
	srv := httptest.NewServer(be.handler())
	defer srv.Close()
	cfg := testConfig(t, srv.URL)

	if _, err := run(t, cfg, "sync"); err == nil || err.Error() != service.MsgSessionRequired {
		t.Fatalf("expected session required before login, got %v", err)
	}

	if _, err := run(t, cfg, "login", "-u", "admin", "-p", "wrong"); err == nil || err.Error() != "Credenciais inválidas" {
		t.Fatalf("expected remote login error, got %v", err)
	}

	out, err := run(t, cfg, "login", "-u", "admin", "-p", "admin123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	var info domain.SessionInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil || !info.Authenticated || info.Username != "admin" {
		t.Fatalf("expected authenticated admin, got %s (%v)", out, err)
	}

	raw, err := os.ReadFile(cfg.SessionFile)
	if err != nil {
		t.Fatalf("session file: %v", err)
	}
	if strings.Contains(string(raw), "tok-cli") {
		t.Error("token must be sealed on disk")
	}

	out, err = run(t, cfg, "sync", "--wait")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if v := decodeView(t, out); !v.Authenticated || v.State.Phase != domain.LoadReady {
		t.Errorf("expected reloaded authenticated view, got %+v", v)
	}

	if _, err := run(t, cfg, "logout"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	out, err = run(t, cfg, "session")
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if err := json.Unmarshal([]byte(out), &info); err != nil || info.Authenticated {
		t.Errorf("expected no session after logout, got %s", out)
	}
}

func TestUpload(t *testing.T) {
	be := &fakeBackends{}
	srv := httptest.NewServer(be.handler())
	defer srv.Close()
	cfg := testConfig(t, srv.URL)

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "Pedidos.CSV")
	if err := os.WriteFile(csvPath, []byte("id;valor\n1;10\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	txtPath := filepath.Join(dir, "pedidos.txt")
	if err := os.WriteFile(txtPath, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := run(t, cfg, "login", "-u", "admin", "-p", "admin123"); err != nil {
		t.Fatalf("login: %v", err)
	}

	if _, err := run(t, cfg, "upload", txtPath); err == nil || err.Error() != "Por favor, selecione um arquivo CSV válido." {
		t.Errorf("expected CSV rejection, got %v", err)
	}
	if _, err := run(t, cfg, "upload", filepath.Join(dir, "missing.csv")); err == nil || err.Error() != "Nenhum arquivo selecionado." {
		t.Errorf("expected missing file rejection, got %v", err)
	}

	out, err := run(t, cfg, "upload", csvPath)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	var resp domain.SyncResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Job == nil || resp.Job.Message != "Arquivo recebido" {
		t.Errorf("expected ack from backend, got %+v", resp.Job)
	}
	if len(be.uploads) != 1 || be.uploads[0] != "Pedidos.CSV" {
		t.Errorf("expected one upload of Pedidos.CSV, got %v", be.uploads)
	}
}
