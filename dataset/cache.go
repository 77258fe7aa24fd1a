package dataset

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Loader produces a fresh snapshot of a dataset.
type Loader interface {
	Load(ctx context.Context, d Descriptor) (*Snapshot, error)
	// Present reports whether the local copy backing d still exists.
	Present(d Descriptor) bool
}

// Pipeline is the standard Loader: sync the local copy, then decode it.
type Pipeline struct {
	store  *LocalStore
	logger *zap.Logger
}

func NewPipeline(store *LocalStore, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{store: store, logger: logger}
}

func (p *Pipeline) Load(ctx context.Context, d Descriptor) (*Snapshot, error) {
	lf, err := p.store.Sync(ctx, d)
	if err != nil {
		return nil, err
	}
	snap, err := Decode(lf.Path, d)
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			// le prochain Sync retéléchargera le fichier
			if rmErr := p.store.Discard(d); rmErr != nil {
				p.logger.Error("discard unreadable file", zap.String("dataset", d.Key), zap.Error(rmErr))
			}
			p.logger.Error("decode failed, local copy discarded", zap.String("dataset", d.Key), zap.Error(err))
		}
		return nil, err
	}
	snap.Stale = lf.Stale
	snap.RefreshErr = lf.Warning
	return snap, nil
}

func (p *Pipeline) Present(d Descriptor) bool {
	return p.store.Exists(d)
}

// entry is immutable once installed.
type entry struct {
	snap      *Snapshot
	expiresAt time.Time
}

// Cache holds the decoded snapshot of every dataset for the whole process.
// Concurrent Gets of an expired dataset share a single refresh.
type Cache struct {
	loader     Loader
	logger     *zap.Logger
	now        func() time.Time
	defaultTTL time.Duration
	retry      time.Duration

	mu      sync.RWMutex
	entries map[string]*entry
	group   singleflight.Group
}

type Option func(*Cache)

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithDefaultTTL applies to descriptors that do not set their own TTL.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.defaultTTL = ttl }
}

// WithRetryInterval delays the next refresh attempt after a stale result.
// Zero retries on the next access.
func WithRetryInterval(d time.Duration) Option {
	return func(c *Cache) { c.retry = d }
}

func NewCache(loader Loader, logger *zap.Logger, opts ...Option) *Cache {
	c := &Cache{
		loader:     loader,
		logger:     logger,
		now:        time.Now,
		defaultTTL: DefaultTTL,
		entries:    make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// Get returns the snapshot of d, refreshing it first when it expired or its
// local copy disappeared. A failed refresh falls back to the previous
// snapshot, marked Stale. The returned Snapshot is the caller's; its Table is
// shared and read-only.
func (c *Cache) Get(ctx context.Context, d Descriptor) (*Snapshot, error) {
	if e := c.lookup(d.Key); e != nil && c.valid(e, d) {
		return e.snap.copy(), nil
	}
	// The refresh is not tied to the first caller: others may be waiting on it.
	ch := c.group.DoChan(d.Key, func() (any, error) {
		return c.refresh(context.WithoutCancel(ctx), d)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot).copy(), nil
	}
}

// Peek returns the current snapshot of key without refreshing it.
func (c *Cache) Peek(key string) (*Snapshot, bool) {
	e := c.lookup(key)
	if e == nil {
		return nil, false
	}
	return e.snap.copy(), true
}

// Invalidate forces the next Get of key to refresh. The current snapshot
// stays available as a fallback.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// les entrées ne sont jamais modifiées en place: un Get concurrent peut les lire
	if e, ok := c.entries[key]; ok {
		c.entries[key] = &entry{snap: e.snap}
	}
}

// Forget drops key and its decoded table, for datasets removed from the catalog.
func (c *Cache) Forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *Cache) lookup(key string) *entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[key]
}

func (c *Cache) valid(e *entry, d Descriptor) bool {
	if !c.now().Before(e.expiresAt) {
		return false
	}
	// stale entries live on after their file was discarded
	return e.snap.Stale || c.loader.Present(d)
}

func (c *Cache) refresh(ctx context.Context, d Descriptor) (*Snapshot, error) {
	// a flight that just ended may already have done the work
	if e := c.lookup(d.Key); e != nil && c.valid(e, d) {
		return e.snap, nil
	}

	start := c.now()
	snap, err := c.loader.Load(ctx, d)
	now := c.now()
	if err != nil {
		prev := c.lookup(d.Key)
		if prev == nil {
			c.logger.Error("dataset refresh failed", zap.String("dataset", d.Key), zap.Error(err))
			return nil, err
		}
		stale := prev.snap.copy()
		stale.Stale = true
		stale.RefreshErr = err
		c.logger.Warn("dataset refresh failed, serving previous snapshot",
			zap.String("dataset", d.Key),
			zap.Time("refreshed_at", prev.snap.RefreshedAt),
			zap.Error(err),
		)
		c.install(d.Key, stale, c.retryAt(prev.expiresAt, now, d))
		return stale, nil
	}

	snap.Key = d.Key
	snap.RefreshedAt = now
	expires := now.Add(d.ttl(c.defaultTTL))
	if snap.Stale {
		expires = c.retryAt(time.Time{}, now, d)
	}
	c.logger.Info("dataset refreshed",
		zap.String("dataset", d.Key),
		zap.Int("rows", snap.Table.Rows()),
		zap.Bool("stale", snap.Stale),
		zap.Duration("took", now.Sub(start)),
	)
	c.install(d.Key, snap, expires)
	return snap, nil
}

// retryAt keeps the old expiry unless a retry interval is configured.
func (c *Cache) retryAt(prev, now time.Time, d Descriptor) time.Time {
	if c.retry <= 0 {
		if prev.After(now) {
			return now
		}
		return prev
	}
	r := c.retry
	if ttl := d.ttl(c.defaultTTL); r > ttl {
		r = ttl
	}
	return now.Add(r)
}

func (c *Cache) install(key string, snap *Snapshot, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &entry{snap: snap, expiresAt: expiresAt}
}
