package rulepack

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Cache keeps validated rulepack bytes in Redis so scoring workers on many
// hosts share one policy copy. A fetched pack whose version differs replaces
// the cached entry, and readers always re-validate through the Loader, so a
// corrupt cache payload can never reach scoring. Source refreshes are rate
// limited.
type Cache struct {
	client  *redis.Client
	loader  *Loader
	limiter *rate.Limiter
	ttl     time.Duration
	logger  *slog.Logger
}

// CacheConfig configures the rulepack cache.
type CacheConfig struct {
	Addr     string
	Password string
	DB       int

	// RefreshInterval throttles how often a source is re-fetched for version
	// checks. Zero means one refresh per minute.
	RefreshInterval time.Duration

	// TTL bounds how long an entry survives without a successful refresh.
	// Zero means 24h.
	TTL time.Duration
}

// NewCache creates a Redis-backed rulepack cache.
func NewCache(cfg CacheConfig, loader *Loader) *Cache {
	interval := cfg.RefreshInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &Cache{
		client:  rdb,
		loader:  loader,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		ttl:     ttl,
		logger:  slog.Default().With("component", "rulepack_cache"),
	}
}

func cacheKey(id string) string {
	return "rulepack:" + id
}

// Get returns the cached rulepack for a regulator namespace, or false when
// no valid entry exists. Re-validation of a cached entry is silent: the audit
// trail records policy loads from a source, not cache reads.
func (c *Cache) Get(ctx context.Context, id string) (*Rulepack, bool) {
	data, err := c.client.Get(ctx, cacheKey(id)).Bytes()
	if err != nil {
		return nil, false
	}

	pack, err := c.loader.parse(data)
	if err != nil {
		// A cache entry that fails validation is evicted, never served.
		c.logger.Warn("evicting invalid cached rulepack", "id", id, "error", err)
		c.client.Del(ctx, cacheKey(id))
		return nil, false
	}
	return pack, true
}

// GetOrFetch returns the rulepack for a regulator namespace, refreshing from
// the source when the rate limiter allows. A version change at the source
// invalidates the cached entry; a fetch failure falls back to the cached copy
// so transient source outages do not block scoring under a known-good policy.
func (c *Cache) GetOrFetch(ctx context.Context, id string, src Source) (*Rulepack, error) {
	cached, haveCached := c.Get(ctx, id)

	if haveCached && !c.limiter.Allow() {
		return cached, nil
	}

	data, err := src.Fetch(ctx)
	if err != nil {
		if haveCached {
			c.logger.Warn("rulepack source unavailable, serving cached copy",
				"id", id, "source", src.Describe(), "version", cached.Version, "error", err)
			return cached, nil
		}
		return nil, fmt.Errorf("rulepack: fetch %s: %w", src.Describe(), err)
	}

	pack, err := c.loader.Load(data)
	if err != nil {
		// Policy authoring defects are fatal even when a cached copy exists:
		// serving stale policy while authors believe a new version is live
		// would make scores silently unreproducible against the source.
		return nil, err
	}

	if haveCached && cached.Version == pack.Version {
		return cached, nil
	}

	if err := c.put(ctx, id, data); err != nil {
		c.logger.Warn("rulepack cache write failed", "id", id, "error", err)
	}
	if haveCached {
		c.logger.Info("rulepack version changed, cache invalidated",
			"id", id, "old_version", cached.Version, "new_version", pack.Version)
	}
	return pack, nil
}

func (c *Cache) put(ctx context.Context, id string, data []byte) error {
	return c.client.Set(ctx, cacheKey(id), data, c.ttl).Err()
}

// Invalidate drops the cached entry for a regulator namespace.
func (c *Cache) Invalidate(ctx context.Context, id string) error {
	return c.client.Del(ctx, cacheKey(id)).Err()
}

// Close releases the underlying Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
