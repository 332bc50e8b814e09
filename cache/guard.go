package cache

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/semaphore"
)

// guard serializes every load, mutate and store sequence against the backing store.
type guard struct {
	sem     *semaphore.Weighted
	timeout time.Duration
}

func newGuard(timeout time.Duration) *guard {
	return &guard{sem: semaphore.NewWeighted(1), timeout: timeout}
}

// do runs fn while holding the lock. Waiting honours ctx and the guard timeout and
// fails with ErrLock; once the lock is held fn runs to completion even if ctx is
// cancelled, so a document is never left half written.
func (g *guard) do(ctx context.Context, fn func(ctx context.Context) error) error {
	wctx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	if err := g.sem.Acquire(wctx, 1); err != nil {
		return errors.Mark(errors.Wrap(err, "acquire store lock"), ErrLock)
	}
	defer g.sem.Release(1)
	return fn(context.WithoutCancel(ctx))
}
