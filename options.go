package simplyanalytics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	key        string
	url        string
	httpClient *http.Client
	limiter    *rate.Limiter

	metaStore MetadataStore
	metaTTL   time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithKey sets the access key sent as the "k" query parameter.
// An empty key sends no parameter.
func WithKey(key string) Option {
	return optionFunc(func(c *clientConfig) {
		c.key = key
	})
}

// WithURL overrides the dispatch endpoint.
// Defaults to https://app.simplyanalytics.com/dispatch.php.
func WithURL(url string) Option {
	return optionFunc(func(c *clientConfig) {
		c.url = url
	})
}

// WithHTTPClient sets the underlying HTTP client (timeouts, proxies, TLS).
// The client is copied; a cookie jar is added to the copy if it has none.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithRateLimit paces outgoing requests to rps per second with the given
// burst. Calls block until a token is available or ctx ends.
// rps <= 0 disables limiting (default).
func WithRateLimit(rps float64, burst int) Option {
	return optionFunc(func(c *clientConfig) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	})
}

// WithMetadataStore adds a shared key-value tier behind the in-memory
// metadata memo, so several clients can reuse one metadata fetch.
// Entries are scoped to the endpoint and access key; clients of
// different accounts never read each other's institution.
// Entries are written with the given TTL (0 = store default, no expiry).
func WithMetadataStore(s MetadataStore, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.metaStore = s
		c.metaTTL = ttl
	})
}

// WithLogger enables structured logging for client operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts, durations and
// metadata cache hits) on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
