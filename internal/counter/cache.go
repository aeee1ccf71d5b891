package counter

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Storage keys. Both values are decimal strings; the timestamp is epoch millis.
const (
	KeyValue     = "github-stars"
	KeyFetchedAt = "github-stars-fetched-at"
)

// DefaultTTL is how long a cached count is shown without refreshing.
const DefaultTTL = time.Hour

// Store is client-side string storage.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Fetcher retrieves the current count from the external service.
type Fetcher interface {
	FetchCount(ctx context.Context) (int, error)
}

// Entry is a cached count and the time it was fetched.
type Entry struct {
	Value     int
	FetchedAt time.Time
}

// Cache serves a slowly changing count from Store, refreshing it through
// Fetcher once it is older than the TTL.
type Cache struct {
	store   Store
	fetcher Fetcher
	ttl     time.Duration
	now     func() time.Time
	log     *slog.Logger

	mu    sync.Mutex // serialises read-compare-write
	group singleflight.Group
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

func WithLogger(log *slog.Logger) CacheOption {
	return func(c *Cache) { c.log = log }
}

func NewCache(store Store, fetcher Fetcher, opts ...CacheOption) *Cache {
	c := &Cache{
		store:   store,
		fetcher: fetcher,
		ttl:     DefaultTTL,
		now:     time.Now,
		log:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Read returns the cached entry. Missing or unparseable values count as no
// entry. A value without a usable timestamp is returned with a zero FetchedAt,
// which is always stale.
func (c *Cache) Read(ctx context.Context) (Entry, bool) {
	raw, ok, err := c.store.Get(ctx, KeyValue)
	if err != nil {
		c.log.Warn("read cached count", "error", err)
		return Entry{}, false
	}
	if !ok {
		return Entry{}, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		c.log.Warn("discarding unparseable cached count", "value", raw)
		return Entry{}, false
	}

	e := Entry{Value: v}
	rawAt, ok, err := c.store.Get(ctx, KeyFetchedAt)
	if err == nil && ok {
		if ms, err := strconv.ParseInt(rawAt, 10, 64); err == nil {
			e.FetchedAt = time.UnixMilli(ms)
		}
	}
	return e, true
}

// Fresh reports whether e is young enough to show without refreshing.
func (c *Cache) Fresh(e Entry) bool {
	if e.FetchedAt.IsZero() {
		return false
	}
	return c.now().Sub(e.FetchedAt) <= c.ttl
}

// StaleAt returns the first instant at which e is no longer fresh.
func (c *Cache) StaleAt(e Entry) time.Time {
	return e.FetchedAt.Add(c.ttl + time.Millisecond)
}

// Resolve returns the count to display. A fresh entry is returned without a
// request. Otherwise the count is fetched; concurrent callers share a single
// request. A failed fetch falls back to the cached value, if any.
func (c *Cache) Resolve(ctx context.Context) (int, bool) {
	cached, hasCached := c.Read(ctx)
	if hasCached && c.Fresh(cached) {
		return cached.Value, true
	}

	v, err, shared := c.group.Do(KeyValue, func() (any, error) {
		return c.refresh(ctx)
	})
	if err != nil {
		c.log.Warn("refresh count failed", "error", err, "shared", shared)
		if hasCached {
			return cached.Value, true
		}
		return 0, false
	}
	return v.(int), true
}

// refresh fetches the count and stores it unless it is lower than the
// cached one. It returns the value that should be displayed.
func (c *Cache) refresh(ctx context.Context) (int, error) {
	count, err := c.fetcher.FetchCount(ctx)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cur, ok := c.Read(ctx)
	if ok && count < cur.Value {
		c.log.Info("ignoring lower count", "fetched", count, "cached", cur.Value)
		return cur.Value, nil
	}

	if err := c.store.Set(ctx, KeyValue, strconv.Itoa(count)); err != nil {
		c.log.Warn("write cached count", "error", err)
		return count, nil
	}
	if err := c.store.Set(ctx, KeyFetchedAt, strconv.FormatInt(c.now().UnixMilli(), 10)); err != nil {
		c.log.Warn("write cached timestamp", "error", err)
	}
	return count, nil
}
