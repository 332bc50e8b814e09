package cache

import (
	"github.com/cockroachdb/errors"

	"github.com/agentuity/go-filecache/codec"
	"github.com/agentuity/go-filecache/config"
	"github.com/agentuity/go-filecache/store"
)

// Error categories returned by the cache. Test for them with errors.Is.
var (
	// ErrLock is returned when the store lock could not be acquired in time.
	ErrLock = errors.New("cache: store lock not acquired")
	// ErrIO is returned when the backing store could not be read or written.
	ErrIO = store.ErrIO
	// ErrSerialization is returned when a value cannot be encoded or decoded.
	ErrSerialization = codec.ErrSerialization
	// ErrCorruptPayload is returned when a stored value is present but unreadable.
	ErrCorruptPayload = codec.ErrCorruptPayload
	// ErrEmptyPayload is returned when a stored compressed value is empty.
	ErrEmptyPayload = codec.ErrEmptyPayload
	// ErrConfig is returned when the cache cannot be constructed from its configuration.
	ErrConfig = config.ErrConfig
)
