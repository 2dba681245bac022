package loader

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// ============================================================================
// LOADER — Memoized dataset loading
// ============================================================================
// A dataset is fetched once per source and kept for the TTL (the dashboard
// "session"). Concurrent requests for the same source share one fetch.
// Failures are never cached, so the next request tries again.
// ============================================================================

const (
	DefaultTTL     = 30 * time.Minute
	DefaultTimeout = 20 * time.Second
)

type options struct {
	ttl     time.Duration
	timeout time.Duration
	client  *http.Client
}

// Option configures a Loader.
type Option func(*options)

// WithTTL sets how long a loaded dataset is reused.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithTimeout bounds a single fetch.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithHTTPClient replaces the HTTP client used for remote sources.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

// Loader memoizes datasets per source.
type Loader struct {
	opts  options
	cache *cache.Cache
	group singleflight.Group
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	o := options{ttl: DefaultTTL, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.client == nil {
		o.client = &http.Client{Timeout: o.timeout}
	}
	return &Loader{
		opts:  o,
		cache: cache.New(o.ttl, 2*o.ttl),
	}
}

// TTL returns how long datasets are memoized.
func (l *Loader) TTL() time.Duration { return l.opts.ttl }

// Load returns the dataset for source, fetching it on first use.
// The shared fetch is not tied to any one caller: a caller whose ctx ends
// returns early while the others keep waiting for the result.
func (l *Loader) Load(ctx context.Context, source string) (*Dataset, error) {
	if v, ok := l.cache.Get(source); ok {
		return v.(*Dataset), nil
	}

	shared := context.WithoutCancel(ctx)
	ch := l.group.DoChan(source, func() (interface{}, error) {
		if v, ok := l.cache.Get(source); ok {
			return v, nil
		}
		ds, err := l.load(shared, source)
		if err != nil {
			return nil, err
		}
		l.cache.Set(source, ds, cache.DefaultExpiration)
		return ds, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			log.Printf("❌ load %s: %v", source, res.Err)
			return nil, res.Err
		}
		if res.Shared {
			log.Printf("🔁 shared in-flight load for %s", source)
		}
		return res.Val.(*Dataset), nil
	}
}

func (l *Loader) load(ctx context.Context, source string) (*Dataset, error) {
	ctx, cancel := context.WithTimeout(ctx, l.opts.timeout)
	defer cancel()

	started := time.Now()
	raw, err := Fetch(ctx, l.opts.client, source)
	if err != nil {
		return nil, err
	}

	text, encoding := Decode(raw)
	ds, err := Parse(text, source, encoding)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", source, err)
	}

	log.Printf("📥 loaded %d rows × %d columns from %s (%s, %s)",
		ds.Len(), len(ds.Header), source, encoding, time.Since(started).Round(time.Millisecond))
	if ds.SkippedRows > 0 {
		log.Printf("⚠️ skipped %d malformed rows in %s", ds.SkippedRows, source)
	}
	return ds, nil
}

// Invalidate drops the memoized dataset for source.
func (l *Loader) Invalidate(source string) {
	l.cache.Delete(source)
	l.group.Forget(source)
}

// Flush drops every memoized dataset.
func (l *Loader) Flush() {
	l.cache.Flush()
}

// Cached reports whether source is currently memoized.
func (l *Loader) Cached(source string) bool {
	_, ok := l.cache.Get(source)
	return ok
}
