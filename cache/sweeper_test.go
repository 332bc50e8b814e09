package cache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/agentuity/go-filecache/logger"
)

func TestSweeperRuns(t *testing.T) {
	var calls atomic.Int64
	s := newSweeper(context.Background(), 5*time.Millisecond, logger.NewTestLogger(), func() { calls.Add(1) })
	s.start()
	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
	s.stop()
	stopped := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, calls.Load())
	s.stop()
}

func TestSweeperIntervalChange(t *testing.T) {
	var calls atomic.Int64
	s := newSweeper(context.Background(), time.Hour, logger.NewTestLogger(), func() { calls.Add(1) })
	s.setInterval(5 * time.Millisecond)
	s.start()
	defer s.stop()
	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, time.Millisecond)
}

func TestSweeperRecoversFromPanic(t *testing.T) {
	log := logger.NewTestLogger()
	s := newSweeper(context.Background(), 5*time.Millisecond, log, func() { panic("boom") })
	s.start()
	defer s.stop()
	assert.Eventually(t, func() bool { return s.cycles.Load() >= 2 }, time.Second, time.Millisecond)
	assert.True(t, log.Contains("ERROR", "boom"))
}

func TestSweeperStopsWithParent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := newSweeper(ctx, time.Hour, logger.NewTestLogger(), func() {})
	s.start()
	cancel()
	done := make(chan struct{})
	go func() {
		s.stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
