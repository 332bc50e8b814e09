// Package config holds the settings consumed when a cache engine is constructed.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"

	"github.com/agentuity/go-filecache/codec"
)

// ErrConfig marks an invalid configuration.
var ErrConfig = errors.New("config: invalid configuration")

const (
	// DefaultFileName is the cache document file name.
	DefaultFileName = "filecache.json"
	// DefaultCleanupInterval is the time between expiry sweeps.
	DefaultCleanupInterval = 60 * time.Second
	// DefaultLockTimeout bounds how long an operation waits for the store lock.
	DefaultLockTimeout = 30 * time.Second
	// AppDirName is the directory created under the user cache directory.
	AppDirName = "filecache"
)

// Backend names a store implementation.
type Backend string

const (
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
	BackendRedis  Backend = "redis"
)

// Duration is a time.Duration that reads from YAML as an integer number of
// seconds or as a duration string such as "90s", "2m" or "1d".
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}
	val, err := str2duration.ParseDuration(raw)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "invalid duration %q", raw), ErrConfig)
	}
	*d = Duration(val)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return str2duration.String(time.Duration(d)), nil
}

// Config is the construction-time configuration of a cache.
type Config struct {
	// CacheDir overrides the directory holding the cache file.
	CacheDir string `yaml:"cache_dir,omitempty"`
	// CacheFileName overrides the cache file name.
	CacheFileName string `yaml:"cache_file_name,omitempty"`
	// CleanupInterval is the time between expiry sweeps.
	CleanupInterval Duration `yaml:"cleanup_interval"`
	// DefaultCompression compresses values unless a call says otherwise.
	DefaultCompression bool `yaml:"default_compression"`
	// CompressionLevel is the zlib level, 0 through 9.
	CompressionLevel int `yaml:"compression_level"`
	// CompressionThreshold is the encoded size in bytes below which values are not compressed.
	CompressionThreshold int `yaml:"compression_threshold"`
	// LockTimeout bounds the wait for the store lock. Zero waits forever.
	LockTimeout Duration `yaml:"lock_timeout"`
	// HotCache keeps recently read values in memory.
	HotCache bool `yaml:"hot_cache"`
	// Backend selects the store implementation.
	Backend Backend `yaml:"backend"`
	// RedisURL is required by the redis backend.
	RedisURL string `yaml:"redis_url,omitempty"`
	// RedisPrefix namespaces the redis key.
	RedisPrefix string `yaml:"redis_prefix,omitempty"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		CleanupInterval:      Duration(DefaultCleanupInterval),
		DefaultCompression:   false,
		CompressionLevel:     codec.DefaultLevel,
		CompressionThreshold: codec.DefaultThreshold,
		LockTimeout:          Duration(DefaultLockTimeout),
		HotCache:             true,
		Backend:              BackendFile,
	}
}

// Load reads the YAML file at filename over the defaults and validates the result.
func Load(filename string) (Config, error) {
	buf, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, errors.Mark(errors.Wrapf(err, "read config %s", filename), ErrConfig)
	}
	return Parse(buf)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(buf []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return Config{}, errors.Mark(errors.Wrap(err, "parse config"), ErrConfig)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that every field is in range.
func (c Config) Validate() error {
	if c.CleanupInterval <= 0 {
		return errors.Wrapf(ErrConfig, "cleanup_interval must be positive, got %s", c.CleanupInterval.Std())
	}
	if c.CompressionLevel < 0 || c.CompressionLevel > 9 {
		return errors.Wrapf(ErrConfig, "compression_level must be between 0 and 9, got %d", c.CompressionLevel)
	}
	if c.CompressionThreshold < 0 {
		return errors.Wrapf(ErrConfig, "compression_threshold must not be negative, got %d", c.CompressionThreshold)
	}
	if c.LockTimeout < 0 {
		return errors.Wrapf(ErrConfig, "lock_timeout must not be negative, got %s", c.LockTimeout.Std())
	}
	switch c.Backend {
	case "", BackendFile, BackendSQLite:
	case BackendRedis:
		if c.RedisURL == "" {
			return errors.Wrap(ErrConfig, "redis_url is required by the redis backend")
		}
	default:
		return errors.Wrapf(ErrConfig, "unknown backend %q", c.Backend)
	}
	return nil
}

// Compression returns the codec policy described by the configuration.
func (c Config) Compression() codec.Policy {
	return codec.Policy{
		Enabled:   c.DefaultCompression,
		Level:     c.CompressionLevel,
		Threshold: c.CompressionThreshold,
	}
}

// Dir returns the cache directory, falling back to the user cache directory.
func (c Config) Dir() (string, error) {
	if c.CacheDir != "" {
		return c.CacheDir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", errors.Mark(errors.Wrap(err, "resolve user cache directory"), ErrConfig)
	}
	return filepath.Join(base, AppDirName), nil
}

// Path returns the full path of the cache file.
func (c Config) Path() (string, error) {
	dir, err := c.Dir()
	if err != nil {
		return "", err
	}
	name := c.CacheFileName
	if name == "" {
		name = DefaultFileName
	}
	return filepath.Join(dir, name), nil
}
