// Package dispatch is the HTTP transport for the SimplyAnalytics dispatch endpoint.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/simplyanalytics/internal/domain"
)

// Query parameter names understood by the dispatch endpoint.
const (
	paramView     = "v"
	paramResource = "r"
	paramKey      = "k"
)

// Config holds the transport settings.
type Config struct {
	URL        string
	Key        string
	HTTPClient *http.Client
	// Limiter paces outgoing requests. Nil means unlimited.
	Limiter *rate.Limiter
}

// Transport posts view/resource requests and unwraps the response envelope.
type Transport struct {
	endpoint *url.URL
	key      string
	client   *http.Client
	limiter  *rate.Limiter
}

// New creates a transport. A cookie jar is attached to the HTTP client when
// it has none, so session cookies persist across calls.
func New(cfg Config) (*Transport, error) {
	raw := cfg.URL
	if raw == "" {
		raw = domain.DefaultURL
	}
	endpoint, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint %q: %w", raw, err)
	}
	if endpoint.Scheme == "" || endpoint.Host == "" {
		return nil, fmt.Errorf("endpoint %q must be an absolute URL", raw)
	}

	var client http.Client
	if cfg.HTTPClient != nil {
		client = *cfg.HTTPClient
	}
	if client.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		client.Jar = jar
	}

	return &Transport{endpoint: endpoint, key: cfg.Key, client: &client, limiter: cfg.Limiter}, nil
}

// Endpoint returns the configured endpoint URL.
func (t *Transport) Endpoint() string { return t.endpoint.String() }

// Do sends one request, waiting on the limiter first when one is set.
// A nil payload sends an empty body.
func (t *Transport) Do(ctx context.Context, view, resource string, payload any) (json.RawMessage, error) {
	req, err := t.newRequest(ctx, view, resource, payload)
	if err != nil {
		return nil, err
	}

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("wait for %s/%s rate limit: %w", view, resource, err)
		}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s/%s: %w", view, resource, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s/%s response: %w", view, resource, err)
	}

	return unwrapEnvelope(body)
}

func (t *Transport) newRequest(ctx context.Context, view, resource string, payload any) (*http.Request, error) {
	u := *t.endpoint
	q := u.Query()
	q.Set(paramView, view)
	q.Set(paramResource, resource)
	if t.key != "" {
		q.Set(paramKey, t.key)
	}
	u.RawQuery = q.Encode()

	var body io.Reader = http.NoBody
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s/%s payload: %w", view, resource, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build %s/%s request: %w", view, resource, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// unwrapEnvelope validates the body as JSON and turns an exception envelope
// into a RemoteServiceError. Any other JSON value is returned unchanged.
func unwrapEnvelope(body []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("decode response: invalid JSON (%d bytes)", len(body))
	}

	if len(trimmed) > 0 && trimmed[0] == '{' {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("decode response envelope: %w", err)
		}
		if _, ok := envelope["exception"]; ok {
			return nil, domain.NewRemoteServiceError(envelopeMessage(envelope["message"]))
		}
	}

	return json.RawMessage(trimmed), nil
}

func envelopeMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var msg string
	if json.Unmarshal(raw, &msg) == nil {
		return msg
	}
	return string(raw)
}
