package cache

import (
	"time"

	"github.com/agentuity/go-filecache/codec"
	"github.com/agentuity/go-filecache/config"
	"github.com/agentuity/go-filecache/logger"
	"github.com/agentuity/go-filecache/store"
)

// options holds the resolved construction settings of a Cache.
type options struct {
	store           store.Store
	path            string
	cleanupInterval time.Duration
	lockTimeout     time.Duration
	policy          codec.Policy
	hotCache        bool
	logger          logger.Logger
	clock           func() time.Time
}

// Option configures a Cache.
type Option func(*options)

func defaultOptions() options {
	cfg := config.Default()
	return options{
		cleanupInterval: cfg.CleanupInterval.Std(),
		lockTimeout:     cfg.LockTimeout.Std(),
		policy:          cfg.Compression(),
		hotCache:        cfg.HotCache,
		clock:           time.Now,
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithStore sets the backing store. The cache closes it on Close.
func WithStore(s store.Store) Option {
	return func(o *options) { o.store = s }
}

// WithPath keeps the document in the JSON file at fn. Ignored when WithStore is given.
func WithPath(fn string) Option {
	return func(o *options) { o.path = fn }
}

// WithCleanupInterval sets the time between expiry sweeps. Defaults to 60 seconds.
func WithCleanupInterval(d time.Duration) Option {
	return func(o *options) { o.cleanupInterval = d }
}

// WithCompression sets the default compression policy used by Set.
func WithCompression(p codec.Policy) Option {
	return func(o *options) { o.policy = p }
}

// WithLockTimeout bounds how long an operation waits for the store lock.
// Zero waits until the context is done. Defaults to 30 seconds.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) { o.lockTimeout = d }
}

// WithoutHotCache disables the in-memory tier so every read goes to the store.
func WithoutHotCache() Option {
	return func(o *options) { o.hotCache = false }
}

// WithLogger sets the logger. Defaults to a console logger at the level in FILECACHE_LOG_LEVEL.
func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock replaces the wall clock used for expiry decisions.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}
