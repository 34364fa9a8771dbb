package simplyanalytics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// fakeDispatch is an in-process dispatch endpoint keyed by resource name.
type fakeDispatch struct {
	t   *testing.T
	url string

	mu        sync.Mutex
	responses map[string]string
	calls     map[string]int
	bodies    map[string][]byte
	keys      []string
}

func newFakeDispatch(t *testing.T) (*fakeDispatch, *httptest.Server) {
	t.Helper()
	f := &fakeDispatch{
		t:         t,
		responses: map[string]string{},
		calls:     map[string]int{},
		bodies:    map[string][]byte{},
	}
	server := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(server.Close)
	f.url = server.URL
	return f, server
}

func (f *fakeDispatch) serve(w http.ResponseWriter, r *http.Request) {
	resource := r.URL.Query().Get("r")
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.calls[resource]++
	f.bodies[resource] = body
	if k, ok := r.URL.Query()["k"]; ok {
		f.keys = append(f.keys, k[0])
	}
	resp, ok := f.responses[resource]
	f.mu.Unlock()

	if !ok {
		f.t.Errorf("unexpected resource %q", resource)
		resp = `{"exception":"NotFound","message":"unknown resource"}`
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, resp)
}

func (f *fakeDispatch) set(resource, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[resource] = body
}

func (f *fakeDispatch) callCount(resource string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[resource]
}

func (f *fakeDispatch) lastBody(resource string) map[string]json.RawMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var m map[string]json.RawMessage
	if err := json.Unmarshal(f.bodies[resource], &m); err != nil {
		f.t.Fatalf("decode %s body %q: %v", resource, f.bodies[resource], err)
	}
	return m
}

const (
	datasetsJSON    = `{"ACS":{"name":"American Community Survey","latestEdition":2023},"EASI":{"latestEdition":2024}}`
	institutionJSON = `{"name":"Test University","countries":{"US":{"censusReleases":{"2010":{},"2020":{}}},"CA":{"censusReleases":{"2016":{},"2021":{}}}}}`
)

func newTestClient(t *testing.T, opts ...Option) (*Client, *fakeDispatch) {
	t.Helper()
	f, server := newFakeDispatch(t)
	f.set("attributeDatasetSeries", datasetsJSON)
	f.set("institution", institutionJSON)

	c, err := New(append([]Option{WithURL(server.URL)}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, f
}

func TestNew_InvalidURL(t *testing.T) {
	if _, err := New(WithURL("not a url")); err == nil {
		t.Fatal("expected error for invalid URL")
	}
}

func TestClientOptions(t *testing.T) {
	cfg := &clientConfig{}

	WithKey("secret").apply(cfg)
	if cfg.key != "secret" {
		t.Errorf("key = %q, want secret", cfg.key)
	}

	WithURL("https://example.com/dispatch.php").apply(cfg)
	if cfg.url != "https://example.com/dispatch.php" {
		t.Errorf("url = %q", cfg.url)
	}

	hc := &http.Client{Timeout: time.Second}
	WithHTTPClient(hc).apply(cfg)
	if cfg.httpClient != hc {
		t.Error("expected http client to be set")
	}

	logger := slog.Default()
	WithLogger(logger).apply(cfg)
	if cfg.logger != logger {
		t.Error("expected logger to be set")
	}

	reg := prometheus.NewRegistry()
	WithPrometheus(reg).apply(cfg)
	if cfg.metricsReg != reg {
		t.Error("expected registerer to be set")
	}

	WithRateLimit(5, 0).apply(cfg)
	if cfg.limiter == nil || cfg.limiter.Burst() != 1 || cfg.limiter.Limit() != 5 {
		t.Errorf("limiter = %+v, want 5 rps burst 1", cfg.limiter)
	}
	WithRateLimit(0, 10).apply(cfg)
	if cfg.limiter != nil {
		t.Error("rps <= 0 must disable limiting")
	}

	WithMetadataStore(&memStore{}, time.Minute).apply(cfg)
	if cfg.metaStore == nil || cfg.metaTTL != time.Minute {
		t.Errorf("metadata store = (%v, %v)", cfg.metaStore, cfg.metaTTL)
	}
}

func TestQuery_KeyParam(t *testing.T) {
	c, f := newTestClient(t, WithKey("abc"))
	if _, err := c.Query(context.Background(), "get", "institution", nil); err != nil {
		t.Fatalf("Query: %v", err)
	}

	noKey, f2 := newTestClient(t)
	if _, err := noKey.Query(context.Background(), "get", "institution", nil); err != nil {
		t.Fatalf("Query: %v", err)
	}

	if len(f.keys) != 1 || f.keys[0] != "abc" {
		t.Errorf("keys with key configured = %v, want [abc]", f.keys)
	}
	if len(f2.keys) != 0 {
		t.Errorf("keys without key configured = %v, want none", f2.keys)
	}
}

func TestQuery_RemoteError(t *testing.T) {
	c, f := newTestClient(t)
	f.set("attributes", `{"exception":"QueryException","message":"bad where clause"}`)

	raw, err := c.Query(context.Background(), "get", "attributes", map[string]any{})
	if raw != nil {
		t.Errorf("result = %s, want nil", raw)
	}
	if !errors.Is(err, ErrRemoteService) {
		t.Fatalf("err = %v, want ErrRemoteService", err)
	}
	var remote *RemoteServiceError
	if !errors.As(err, &remote) || remote.Message != "bad where clause" {
		t.Fatalf("err = %v, want message 'bad where clause'", err)
	}
	if errors.Is(err, ErrMalformedResponse) {
		t.Error("remote error must be distinguishable from malformed response")
	}
}

func TestQuery_ReturnsBodyUnchanged(t *testing.T) {
	c, f := newTestClient(t)
	f.set("data/locations2", `[{"name":"Austin"}]`)

	raw, err := c.Query(context.Background(), "get", "data/locations2", nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if string(raw) != `[{"name":"Austin"}]` {
		t.Errorf("raw = %s", raw)
	}
}

func TestQuery_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, f := newTestClient(t, WithPrometheus(reg))
	f.set("attributes", `{"exception":"x","message":"y"}`)

	ctx := context.Background()
	_, _ = c.Query(ctx, "get", "institution", nil)
	_, _ = c.Query(ctx, "get", "attributes", nil)

	if v := testutil.ToFloat64(c.obs.metrics.operations.WithLabelValues("get institution", "ok")); v != 1 {
		t.Errorf("ok counter = %v, want 1", v)
	}
	if v := testutil.ToFloat64(c.obs.metrics.operations.WithLabelValues("get attributes", "error")); v != 1 {
		t.Errorf("error counter = %v, want 1", v)
	}
}

func TestQuery_LogsFailure(t *testing.T) {
	var buf bytes.Buffer
	c, f := newTestClient(t, WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	f.set("attributes", `{"exception":"Busy","message":"try later"}`)

	_, _ = c.Query(context.Background(), "get", "attributes", nil)

	out := buf.String()
	if !strings.Contains(out, "dispatch query failed") || !strings.Contains(out, `op="get attributes"`) {
		t.Errorf("log output = %q", out)
	}
}

func TestNew_PrometheusReuse(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := New(WithPrometheus(reg)); err != nil {
		t.Fatalf("first New: %v", err)
	}
	if _, err := New(WithPrometheus(reg)); err != nil {
		t.Fatalf("second New on same registry: %v", err)
	}
}

func TestObserver_Nil(t *testing.T) {
	var o *observer
	o.observe("noop", time.Now(), nil)
	if o.cacheCounter() != nil {
		t.Error("nil observer must have no cache counter")
	}
}
