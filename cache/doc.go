// Package cache provides a persistent key-value cache with per-entry expiry,
// optional per-value compression and a background expiry sweeper.
//
// # Cache
//
// [New] returns a [Cache] whose entries live in a single document held by a
// [store.Store]. By default the document is a JSON file in the user cache
// directory; [WithPath] picks another file and [WithStore] any other backend.
// [NewFromConfig] builds the cache from a [config.Config], opening the file,
// SQLite or Redis store it names.
//
// The six operations are [Cache.Set], [Cache.Get], [Cache.Has],
// [Cache.Remove], [Cache.Clear] and [Cache.Stats] (with [Cache.Size] and
// [Cache.ActiveSize] as shorthands). Every operation that touches the store
// runs a complete load, mutate and save sequence while holding a single lock,
// so concurrent callers never lose each other's writes. Waiting for the lock
// honours the caller's context and the lock timeout ([WithLockTimeout]) and
// fails with [ErrLock]. Once the lock is held, the sequence runs to completion.
//
// # Expiry
//
// An entry set with a TTL of N seconds expires at now+N, in whole seconds
// since the Unix epoch. It is expired once the current second is strictly
// greater than that instant, so an entry is still readable during the second
// it expires in. A TTL of zero means the entry never expires.
//
// Expired entries are invisible to [Cache.Get] and [Cache.Has] immediately.
// They still count toward [Stats.TotalSize] until the sweeper removes them,
// which happens every cleanup interval ([WithCleanupInterval],
// [Cache.SetCleanupInterval]).
//
// # Compression
//
// Values are stored as JSON. With compression enabled, by default or per call
// via [SetItemOptions.Compress], a value whose encoding reaches the threshold
// is zlib compressed and stored as base64 text with a one byte marker. Smaller
// values are stored with the same marker and no compression. See package codec.
//
// # Memory tier
//
// Unless [WithoutHotCache] is given, values read or written are mirrored in
// memory and served from there until they expire or are replaced.
//
// # Generic Helpers
//
// [GetAs] decodes a value into a concrete type:
//
//	found, user, err := cache.GetAs[User](ctx, c, "user:123")
//
// [Exec] is a cache-aside helper that combines lookup and population:
//
//	found, user, err := cache.Exec(ctx, c, "user:123", &cache.SetItemOptions{TTL: 300},
//	    func(ctx context.Context) (User, bool, error) {
//	        return db.FindUser(ctx, 123)
//	    })
//
// # Errors
//
// Errors carry one of the categories [ErrIO], [ErrLock], [ErrSerialization],
// [ErrCorruptPayload], [ErrEmptyPayload] or [ErrConfig]; test for them with
// errors.Is.
package cache
