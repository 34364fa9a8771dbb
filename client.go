package simplyanalytics

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/kailas-cloud/simplyanalytics/internal/domain"
	"github.com/kailas-cloud/simplyanalytics/internal/repository/metacache"
	"github.com/kailas-cloud/simplyanalytics/internal/transport/dispatch"
)

// DefaultURL is the public dispatch endpoint used when WithURL is not given.
const DefaultURL = domain.DefaultURL

// MetadataStore is a shared key-value store for metadata responses.
// A missing key should be reported as an error; any error counts as a miss.
type MetadataStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Internal interfaces for substitution in tests.
type transport interface {
	Do(ctx context.Context, view, resource string, payload any) (json.RawMessage, error)
}

type metadataCache interface {
	Load(ctx context.Context, resource string) (json.RawMessage, bool)
	Save(ctx context.Context, resource string, payload json.RawMessage)
}

// Client talks to the SimplyAnalytics dispatch endpoint.
//
// A Client keeps one cookie session and memoizes the dataset-series and
// institution metadata for its lifetime. It is safe for concurrent use;
// two goroutines filling an empty memo at the same time may both fetch.
type Client struct {
	transport transport
	meta      metadataCache
	obs       *observer

	mu          sync.Mutex
	datasets    map[string]DatasetSeries
	institution *Institution
}

// New creates a Client. No request is sent until the first call.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	tr, err := dispatch.New(dispatch.Config{
		URL:        cfg.url,
		Key:        cfg.key,
		HTTPClient: cfg.httpClient,
		Limiter:    cfg.limiter,
	})
	if err != nil {
		return nil, fmt.Errorf("simplyanalytics: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	c := &Client{transport: tr, obs: obs}
	if cfg.metaStore != nil {
		scope := metacache.Scope(tr.Endpoint(), cfg.key)
		c.meta = metacache.New(cfg.metaStore, scope, cfg.metaTTL, obs.cacheCounter(), cfg.logger)
	}
	return c, nil
}

// Query posts payload to the given view and resource and returns the
// decoded response unchanged. A nil payload sends an empty body.
//
// An exception envelope fails with *RemoteServiceError. Transport and
// decoding failures are returned wrapped and are never retried.
func (c *Client) Query(ctx context.Context, view, resource string, payload any) (_ json.RawMessage, err error) {
	start := time.Now()
	defer func() { c.obs.observe(view+" "+resource, start, err) }()

	raw, err := c.transport.Do(ctx, view, resource, payload)
	if err != nil {
		return nil, fmt.Errorf("query %s %s: %w", view, resource, err)
	}
	return raw, nil
}

// fetchMetadata reads a metadata resource through the shared cache tier.
func (c *Client) fetchMetadata(ctx context.Context, resource string) (json.RawMessage, error) {
	if c.meta != nil {
		if raw, ok := c.meta.Load(ctx, resource); ok {
			return raw, nil
		}
	}

	raw, err := c.Query(ctx, domain.ViewGet, resource, nil)
	if err != nil {
		return nil, err
	}

	if c.meta != nil {
		c.meta.Save(ctx, resource, raw)
	}
	return raw, nil
}
