package phase

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomz197/sieve/internal/level"
	"github.com/tomz197/sieve/internal/physics"
)

type recorder struct {
	mu        sync.Mutex
	phases    []Phase
	firstAt   time.Time
	completes atomic.Int32
	last      level.Config
}

func (r *recorder) options(interval time.Duration) Options {
	return Options{
		Interval: interval,
		OnPhaseChange: func(p Phase) {
			r.mu.Lock()
			if len(r.phases) == 0 {
				r.firstAt = time.Now()
			}
			r.phases = append(r.phases, p)
			r.mu.Unlock()
		},
		OnComplete: func(cfg level.Config) {
			r.mu.Lock()
			r.last = cfg
			r.mu.Unlock()
			r.completes.Add(1)
		},
	}
}

func (r *recorder) seen() []Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Phase(nil), r.phases...)
}

func start(t *testing.T, cfg level.Config, opts Options) *Controller {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	c := NewController(cfg, opts)
	go c.Run(ctx)
	return c
}

func TestControllerEntersClearing(t *testing.T) {
	const interval = 50 * time.Millisecond
	rec := &recorder{}
	cfg := level.ForLevel(1)
	c := start(t, cfg, rec.options(interval))

	reported := time.Now()
	for i := 0; i < cfg.StoneCount; i++ {
		require.True(t, c.Report(Report{ID: physics.StoneID(i), Kind: physics.KindStone, Pos: physics.Vec3{X: 0.5}}))
	}

	require.Eventually(t, func() bool {
		return len(rec.seen()) == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, []Phase{Clearing}, rec.seen())
	rec.mu.Lock()
	elapsed := rec.firstAt.Sub(reported)
	rec.mu.Unlock()
	assert.LessOrEqual(t, elapsed, 2*interval, "clearing must follow within one check")
	assert.Zero(t, rec.completes.Load())
}

func TestControllerCompletesOnce(t *testing.T) {
	rec := &recorder{}
	cfg := level.ForLevel(1)
	c := start(t, cfg, rec.options(10*time.Millisecond))

	for i := 0; i < cfg.StoneCount; i++ {
		c.Report(Report{ID: physics.StoneID(i), Kind: physics.KindStone})
	}
	for i := 0; i < cfg.BeanCount; i++ {
		c.Report(Report{ID: physics.BeanID(i), Kind: physics.KindBean, Pos: physics.Vec3{Y: -4}})
	}

	require.Eventually(t, func() bool {
		return rec.completes.Load() == 1
	}, time.Second, 5*time.Millisecond)

	// Keep reporting after completion; the callback must not fire again.
	for i := 0; i < cfg.BeanCount; i++ {
		c.Report(Report{ID: physics.BeanID(i), Kind: physics.KindBean, Pos: physics.Vec3{Y: -8}})
	}
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, int32(1), rec.completes.Load())
	assert.Equal(t, []Phase{Clearing, Complete}, rec.seen())
	rec.mu.Lock()
	assert.Equal(t, cfg, rec.last)
	rec.mu.Unlock()
}

func TestControllerResetStartsOver(t *testing.T) {
	rec := &recorder{}
	cfg := level.ForLevel(1)
	c := start(t, cfg, rec.options(10*time.Millisecond))

	for i := 0; i < cfg.StoneCount; i++ {
		c.Report(Report{ID: physics.StoneID(i), Kind: physics.KindStone})
	}
	require.Eventually(t, func() bool {
		return len(rec.seen()) == 1
	}, time.Second, 5*time.Millisecond)

	next := level.ForLevel(2)
	require.NoError(t, c.Reset(context.Background(), next))

	// Level 2 needs four stones; three old reports must not satisfy it.
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, rec.seen(), 1)

	for i := 0; i < next.StoneCount; i++ {
		c.Report(Report{ID: physics.StoneID(i), Kind: physics.KindStone})
	}
	require.Eventually(t, func() bool {
		return len(rec.seen()) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []Phase{Clearing, Clearing}, rec.seen())
}

func TestControllerResetAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := NewController(level.ForLevel(1), Options{})
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	// Fill the inbox so the send cannot succeed either.
	for c.Report(Report{}) {
	}
	err := c.Reset(context.Background(), level.ForLevel(2))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestControllerReportNeverBlocks(t *testing.T) {
	c := NewController(level.ForLevel(1), Options{})
	accepted := 0
	for i := 0; i < inboxSize+10; i++ {
		if c.Report(Report{ID: physics.BeanID(i), Kind: physics.KindBean}) {
			accepted++
		}
	}
	assert.Equal(t, inboxSize, accepted)
}
