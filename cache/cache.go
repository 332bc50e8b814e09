package cache

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	json "github.com/goccy/go-json"

	"github.com/agentuity/go-filecache/codec"
	"github.com/agentuity/go-filecache/config"
	"github.com/agentuity/go-filecache/logger"
	"github.com/agentuity/go-filecache/store"
	"github.com/agentuity/go-filecache/sys"
)

// SetItemOptions adjusts a single Set call.
type SetItemOptions struct {
	// TTL is the lifetime in seconds. Zero means the entry never expires.
	TTL uint64 `json:"ttl,omitempty"`
	// Compress overrides the configured default compression for this call only.
	Compress *bool `json:"compress,omitempty"`
}

// Stats describes the backing document at one instant.
type Stats struct {
	// TotalSize counts every stored entry, including expired ones not yet swept.
	TotalSize int `json:"total_size"`
	// ActiveSize counts the entries that have not expired.
	ActiveSize int `json:"active_size"`
}

// Cache is a persistent TTL cache. All methods are safe for concurrent use.
type Cache struct {
	ctx     context.Context
	cancel  context.CancelFunc
	store   store.Store
	hot     *memoryTier
	guard   *guard
	sweeper *sweeper
	policy  codec.Policy
	logger  logger.Logger
	clock   func() time.Time
	once    sync.Once
}

// New returns a Cache and starts its expiry sweeper. Without WithStore the cache
// keeps its document in a JSON file, at WithPath or the default location.
func New(ctx context.Context, opts ...Option) (*Cache, error) {
	o := applyOptions(opts)
	if o.cleanupInterval <= 0 {
		return nil, errors.Wrapf(ErrConfig, "cleanup interval must be positive, got %s", o.cleanupInterval)
	}
	if o.policy.Level < 0 || o.policy.Level > 9 {
		return nil, errors.Wrapf(ErrConfig, "compression level must be between 0 and 9, got %d", o.policy.Level)
	}
	if o.lockTimeout < 0 {
		return nil, errors.Wrapf(ErrConfig, "lock timeout must not be negative, got %s", o.lockTimeout)
	}
	s := o.store
	if s == nil {
		fn := o.path
		if fn == "" {
			var err error
			if fn, err = config.Default().Path(); err != nil {
				return nil, err
			}
		}
		if err := os.MkdirAll(filepath.Dir(fn), 0o755); err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "create cache directory %s", filepath.Dir(fn)), ErrConfig)
		}
		s = store.NewFile(fn)
	}
	log := o.logger
	if log == nil {
		log = logger.NewConsoleLogger()
	}
	log = log.WithPrefix("[filecache]")

	cctx, cancel := context.WithCancel(ctx)
	c := &Cache{
		ctx:    cctx,
		cancel: cancel,
		store:  s,
		guard:  newGuard(o.lockTimeout),
		policy: o.policy,
		logger: log,
		clock:  o.clock,
	}
	if o.hotCache {
		c.hot = newMemoryTier()
	}
	c.sweeper = newSweeper(cctx, o.cleanupInterval, log, func() { c.sweep() })
	c.sweeper.start()
	log.Debug("cache opened at %s", s.Location())
	return c, nil
}

// NewFromConfig validates cfg, opens the configured backend and returns a Cache.
// Options given after cfg take precedence over it.
func NewFromConfig(ctx context.Context, cfg config.Config, opts ...Option) (*Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	base := []Option{
		WithStore(s),
		WithCleanupInterval(cfg.CleanupInterval.Std()),
		WithCompression(cfg.Compression()),
		WithLockTimeout(cfg.LockTimeout.Std()),
	}
	if !cfg.HotCache {
		base = append(base, WithoutHotCache())
	}
	c, err := New(ctx, append(base, opts...)...)
	if err != nil {
		return nil, errors.CombineErrors(err, s.Close())
	}
	return c, nil
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch cfg.Backend {
	case config.BackendRedis:
		s, err := store.OpenRedis(ctx, cfg.RedisURL, cfg.RedisPrefix, cfg.CacheFileName)
		if err != nil {
			return nil, errors.Mark(err, ErrConfig)
		}
		return s, nil
	case config.BackendSQLite:
		if cfg.CacheFileName == "" {
			cfg.CacheFileName = "filecache.db"
		}
	}
	fn, err := cfg.Path()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(fn), 0o755); err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "create cache directory %s", filepath.Dir(fn)), ErrConfig)
	}
	if cfg.Backend == config.BackendSQLite {
		s, err := store.NewSQLite(ctx, fn, store.DefaultDocumentName)
		if err != nil {
			return nil, errors.Mark(err, ErrConfig)
		}
		return s, nil
	}
	return store.NewFile(fn), nil
}

func (c *Cache) now() uint64 {
	secs := c.clock().Unix()
	if secs < 0 {
		return 0
	}
	return uint64(secs)
}

// Location describes where the cache document is stored.
func (c *Cache) Location() string {
	return c.store.Location()
}

// SetCleanupInterval changes the time between expiry sweeps starting with the next one.
func (c *Cache) SetCleanupInterval(d time.Duration) error {
	if d <= 0 {
		return errors.Wrapf(ErrConfig, "cleanup interval must be positive, got %s", d)
	}
	c.sweeper.setInterval(d)
	return nil
}

// Close stops the expiry sweeper and releases the store. It is safe to call more than once.
func (c *Cache) Close() error {
	var err error
	c.once.Do(func() {
		c.sweeper.stop()
		c.cancel()
		err = c.store.Close()
	})
	return err
}

// Set stores value under key, replacing any previous entry. The write is durable
// when Set returns nil.
func (c *Cache) Set(ctx context.Context, key string, value any, opts *SetItemOptions) error {
	payload, err := codec.Marshal(value)
	if err != nil {
		return err
	}
	now := c.now()
	var expiresAt *uint64
	compress := c.policy.Enabled
	if opts != nil {
		if opts.TTL > 0 {
			expiresAt = sys.Ptr(now + opts.TTL)
		}
		if opts.Compress != nil {
			compress = *opts.Compress
		}
	}
	entry := store.Entry{ExpiresAt: expiresAt, IsCompressed: sys.Ptr(compress)}
	if compress {
		framed, err := codec.Frame(payload, c.policy.WithEnabled(true))
		if err != nil {
			return err
		}
		if entry.Value, err = codec.Marshal(base64.StdEncoding.EncodeToString(framed)); err != nil {
			return err
		}
	} else {
		entry.Value = payload
	}

	return c.guard.do(ctx, func(ctx context.Context) error {
		doc, err := c.store.Load(ctx)
		if err != nil {
			return err
		}
		doc[key] = entry
		if err := c.store.Save(ctx, doc); err != nil {
			c.hot.delete(key)
			return err
		}
		c.hot.set(key, payload, expiresAt, now)
		return nil
	})
}

// Get returns the value stored under key as generic JSON data. Absent and expired
// keys both return found false with a nil error.
func (c *Cache) Get(ctx context.Context, key string) (bool, any, error) {
	found, payload, err := c.lookup(ctx, key)
	if !found || err != nil {
		return false, nil, err
	}
	var val any
	if err := json.Unmarshal(payload, &val); err != nil {
		return false, nil, errors.Mark(errors.Wrapf(err, "decode value for %q", key), ErrCorruptPayload)
	}
	return true, val, nil
}

// Has reports whether key is present and not expired.
func (c *Cache) Has(ctx context.Context, key string) (bool, error) {
	now := c.now()
	if _, ok := c.hot.get(key, now); ok {
		return true, nil
	}
	var found bool
	err := c.guard.do(ctx, func(ctx context.Context) error {
		entry, ok := c.loadForRead(ctx)[key]
		if !ok || entry.Expired(now) {
			return nil
		}
		found = true
		// compressed values are mirrored by the next Get, not worth inflating here
		if !entry.Compressed() {
			c.hot.set(key, entry.Value, entry.ExpiresAt, now)
		}
		return nil
	})
	return found, err
}

// Remove deletes key. Removing an absent key is not an error.
func (c *Cache) Remove(ctx context.Context, key string) error {
	return c.guard.do(ctx, func(ctx context.Context) error {
		defer c.hot.delete(key)
		doc, err := c.store.Load(ctx)
		if err != nil {
			return err
		}
		if _, ok := doc[key]; !ok {
			return nil
		}
		delete(doc, key)
		return c.store.Save(ctx, doc)
	})
}

// Clear deletes every entry.
func (c *Cache) Clear(ctx context.Context) error {
	return c.guard.do(ctx, func(ctx context.Context) error {
		defer c.hot.clear()
		return c.store.Save(ctx, store.Document{})
	})
}

// Size returns the number of stored entries, including expired ones not yet swept.
func (c *Cache) Size(ctx context.Context) (int, error) {
	stats, err := c.Stats(ctx)
	return stats.TotalSize, err
}

// ActiveSize returns the number of entries that have not expired.
func (c *Cache) ActiveSize(ctx context.Context) (int, error) {
	stats, err := c.Stats(ctx)
	return stats.ActiveSize, err
}

// Stats returns both counts from a single snapshot of the document.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := c.guard.do(ctx, func(ctx context.Context) error {
		doc := c.loadForRead(ctx)
		stats.TotalSize = len(doc)
		stats.ActiveSize = doc.ActiveCount(c.now())
		return nil
	})
	return stats, err
}

// lookup returns the canonical encoding stored under key, consulting the memory
// tier first and mirroring store hits into it.
func (c *Cache) lookup(ctx context.Context, key string) (bool, []byte, error) {
	now := c.now()
	if payload, ok := c.hot.get(key, now); ok {
		return true, payload, nil
	}
	var (
		found   bool
		payload []byte
	)
	err := c.guard.do(ctx, func(ctx context.Context) error {
		entry, ok := c.loadForRead(ctx)[key]
		if !ok {
			return nil
		}
		if entry.Expired(now) {
			c.logger.Trace("key %q expired at %d", key, *entry.ExpiresAt)
			return nil
		}
		p, err := entryPayload(entry)
		if err != nil {
			return errors.Wrapf(err, "read value for %q", key)
		}
		found, payload = true, p
		c.hot.set(key, p, entry.ExpiresAt, now)
		return nil
	})
	return found, payload, err
}

// loadForRead loads the document, treating a failed read as an empty cache.
// Must be called with the guard held.
func (c *Cache) loadForRead(ctx context.Context) store.Document {
	doc, err := c.store.Load(ctx)
	if err != nil {
		c.logger.Warn("load of %s failed, treating cache as empty: %v", c.store.Location(), err)
		return store.Document{}
	}
	return doc
}

// entryPayload returns the canonical encoding held by entry. The framing marker,
// not the compressed flag, decides how a compressed value is read: a value that is
// not base64 framed text is returned as stored.
func entryPayload(entry store.Entry) ([]byte, error) {
	if len(entry.Value) == 0 {
		return []byte("null"), nil
	}
	if !entry.Compressed() {
		return entry.Value, nil
	}
	var text string
	if err := json.Unmarshal(entry.Value, &text); err != nil {
		// flagged compressed but not framed text, the flag is wrong
		return entry.Value, nil
	}
	framed, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		// plain text under a stale flag
		return entry.Value, nil
	}
	return codec.Unframe(framed)
}

// sweep removes expired entries from both tiers and returns how many were
// removed from the store.
func (c *Cache) sweep() (int, error) {
	now := c.now()
	evicted := c.hot.sweep(now)
	var removed int
	err := c.guard.do(c.ctx, func(ctx context.Context) error {
		doc, err := c.store.Load(ctx)
		if err != nil {
			return err
		}
		expired := doc.ExpiredKeys(now)
		if len(expired) == 0 {
			return nil
		}
		for _, key := range expired {
			delete(doc, key)
		}
		if err := c.store.Save(ctx, doc); err != nil {
			return err
		}
		removed = len(expired)
		return nil
	})
	if err != nil {
		c.logger.Warn("expiry sweep skipped: %v", err)
		return 0, err
	}
	if removed > 0 || evicted > 0 {
		c.logger.Debug("expiry sweep removed %d stored and %d memory entries", removed, evicted)
	}
	return removed, nil
}
