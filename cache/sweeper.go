package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agentuity/go-filecache/logger"
)

// sweeper calls fn every interval until stopped. A new interval applies from the
// next sleep; the one in progress is not cut short.
type sweeper struct {
	ctx       context.Context
	cancel    context.CancelFunc
	fn        func()
	logger    logger.Logger
	interval  atomic.Int64
	cycles    atomic.Int64
	waitGroup sync.WaitGroup
	once      sync.Once
}

func newSweeper(parent context.Context, interval time.Duration, log logger.Logger, fn func()) *sweeper {
	ctx, cancel := context.WithCancel(parent)
	s := &sweeper{ctx: ctx, cancel: cancel, fn: fn, logger: log}
	s.interval.Store(int64(interval))
	return s
}

func (s *sweeper) start() {
	s.waitGroup.Add(1)
	go s.run()
}

func (s *sweeper) setInterval(d time.Duration) {
	s.interval.Store(int64(d))
}

func (s *sweeper) stop() {
	s.once.Do(func() {
		s.cancel()
		s.waitGroup.Wait()
	})
}

func (s *sweeper) run() {
	defer s.waitGroup.Done()
	for {
		timer := time.NewTimer(time.Duration(s.interval.Load()))
		select {
		case <-s.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.cycle()
		}
	}
}

func (s *sweeper) cycle() {
	defer s.cycles.Add(1)
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("expiry sweep panicked: %v", r)
		}
	}()
	s.fn()
}
