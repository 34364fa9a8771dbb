// Package metacache stores raw metadata responses in a shared key-value store.
package metacache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/simplyanalytics/internal/db"
	"github.com/kailas-cloud/simplyanalytics/internal/domain"
)

var cacheKeyPrefix = domain.KeyPrefix + "meta:"

// store is the consumer interface for the metadata cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Scope identifies the account a payload belongs to: the endpoint and a
// digest of the access key. The key itself never reaches the store.
func Scope(endpoint, key string) string {
	sum := sha256.Sum256([]byte(endpoint + "\x00" + key))
	return hex.EncodeToString(sum[:8])
}

// Cache reads and writes metadata payloads keyed by scope and resource name.
// Store failures never fail the caller: they are logged and treated as misses.
type Cache struct {
	store      store
	prefix     string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *slog.Logger
}

// New creates a metadata cache for one scope (see Scope).
// cacheTotal is a counter vec with label "result" ("hit"/"miss"); nil disables it.
// logger may be nil.
func New(s store, scope string, ttl time.Duration, cacheTotal *prometheus.CounterVec, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cache{
		store:      s,
		prefix:     cacheKeyPrefix + scope + ":",
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Load returns the cached payload for resource.
func (c *Cache) Load(ctx context.Context, resource string) (json.RawMessage, bool) {
	key := c.prefix + resource

	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("failed to get cached metadata", "key", key, "error", err)
		}
		c.inc("miss")
		return nil, false
	}
	if len(data) == 0 || !json.Valid(data) {
		c.logger.Warn("discarding unreadable cached metadata", "key", key, "bytes", len(data))
		c.inc("miss")
		return nil, false
	}

	c.inc("hit")
	return json.RawMessage(data), true
}

// Save stores the payload for resource.
func (c *Cache) Save(ctx context.Context, resource string, payload json.RawMessage) {
	key := c.prefix + resource
	if err := c.store.SetWithTTL(ctx, key, payload, c.ttl); err != nil {
		c.logger.Warn("failed to cache metadata", "key", key, "error", err)
	}
}

func (c *Cache) inc(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}
