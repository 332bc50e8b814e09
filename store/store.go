// Package store persists a whole cache document at a time.
//
// Every [Store] reads and writes the complete key to entry mapping in one operation;
// there is no append log and no partial update. Missing or unparsable data loads as
// an empty [Document] so a damaged backing file heals on the next write, while write
// failures are always returned to the caller as [ErrIO].
//
// Three backends are provided:
//
//   - [NewFile] keeps the document as a JSON file and replaces it atomically.
//   - [NewSQLite] keeps the document as one msgpack row in a SQLite database.
//   - [NewRedis] keeps the document as one msgpack value under a Redis key.
package store

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	json "github.com/goccy/go-json"

	"github.com/agentuity/go-filecache/sys"
)

// ErrIO marks a failed read or write against the backing medium.
var ErrIO = errors.New("store: io error")

// DefaultQueryTimeout bounds a single SQLite or Redis operation.
const DefaultQueryTimeout = 5 * time.Second

// Entry is the durable unit of storage.
type Entry struct {
	// Value is the canonical JSON encoding of the stored value, or when IsCompressed is
	// set, a JSON string holding the base64 encoding of the framed payload.
	Value json.RawMessage `json:"value" msgpack:"value"`
	// ExpiresAt is the expiry instant in seconds since the epoch. Nil never expires.
	ExpiresAt *uint64 `json:"expires_at,omitempty" msgpack:"expires_at,omitempty"`
	// IsCompressed records that Value is a base64 framed payload.
	IsCompressed *bool `json:"is_compressed,omitempty" msgpack:"is_compressed,omitempty"`
}

// Expired reports whether the entry is past its expiry at now (seconds since the epoch).
// An entry expiring at now is still live.
func (e Entry) Expired(now uint64) bool {
	return e.ExpiresAt != nil && *e.ExpiresAt < now
}

// Compressed reports whether the entry claims to hold a framed payload.
func (e Entry) Compressed() bool {
	return sys.Deref(e.IsCompressed, false)
}

// Document maps keys to entries.
type Document map[string]Entry

// ExpiredKeys returns the keys of all entries expired at now.
func (d Document) ExpiredKeys(now uint64) []string {
	var keys []string
	for key, entry := range d {
		if entry.Expired(now) {
			keys = append(keys, key)
		}
	}
	return keys
}

// ActiveCount returns the number of entries not expired at now.
func (d Document) ActiveCount(now uint64) int {
	var count int
	for _, entry := range d {
		if !entry.Expired(now) {
			count++
		}
	}
	return count
}

// Store reads and writes a whole [Document].
type Store interface {
	// Load returns the current document. Missing or unparsable data is an empty
	// document and not an error; a failure to read the medium is [ErrIO].
	Load(ctx context.Context) (Document, error)
	// Save replaces the stored document with doc.
	Save(ctx context.Context, doc Document) error
	// Location describes where the document lives.
	Location() string
	// Close releases the resources held by the store.
	Close() error
}

func ioError(err error, format string, args ...any) error {
	return errors.Mark(errors.Wrapf(err, format, args...), ErrIO)
}
