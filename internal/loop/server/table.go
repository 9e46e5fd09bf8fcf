package server

import (
	"context"
	"io"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tomz197/sieve/internal/config"
	"github.com/tomz197/sieve/internal/level"
	"github.com/tomz197/sieve/internal/phase"
	"github.com/tomz197/sieve/internal/physics"
	"github.com/tomz197/sieve/internal/tilt"
)

// levelResetTimeout bounds how long a level change waits for the phase
// controller to acknowledge the reset.
const levelResetTimeout = time.Second

// table is one client's sieve: a physics world, the tilt fuser steering it
// and the phase controller watching it. Only the server goroutine touches
// the world and the bookkeeping fields; snapshot is read by the client.
type table struct {
	world      *physics.World
	fuser      *tilt.Fuser
	controller *phase.Controller
	cancel     context.CancelFunc
	rng        *rand.Rand
	log        *log.Logger

	phaseCh    chan phase.Phase
	completeCh chan level.Config
	noticeCh   chan error

	level       level.Config
	phase       phase.Phase
	started     bool
	paused      bool
	thresholds  phase.Thresholds
	clearRadius float64

	// filtered collects bean ids dropped this tick; reused between ticks.
	filtered []string

	snapshot atomic.Pointer[TableSnapshot]
}

func newTable(tuning config.Tuning, seed int64, logger *log.Logger) *table {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	t := &table{
		world:       physics.NewWorld(physics.DefaultSieve()),
		fuser:       tilt.NewFuser(tuning.TiltParams()),
		rng:         rand.New(rand.NewSource(seed)),
		log:         logger,
		phaseCh:     make(chan phase.Phase, 8),
		completeCh:  make(chan level.Config, 2),
		noticeCh:    make(chan error, 4),
		thresholds:  tuning.Thresholds(),
		clearRadius: tuning.Phase.ClearRadius,
	}
	t.controller = phase.NewController(level.ForLevel(1), phase.Options{
		Interval:   tuning.Phase.CheckInterval,
		Thresholds: t.thresholds,
		OnPhaseChange: func(p phase.Phase) {
			select {
			case t.phaseCh <- p:
			default:
			}
		},
		OnComplete: func(cfg level.Config) {
			select {
			case t.completeCh <- cfg:
			default:
			}
		},
	})
	t.snapshot.Store(emptySnapshot())
	return t
}

// start runs the phase controller until stop is called or ctx ends.
func (t *table) start(ctx context.Context) {
	ctx, t.cancel = context.WithCancel(ctx)
	go t.controller.Run(ctx)
}

func (t *table) stop() {
	if t.cancel != nil {
		t.cancel()
	}
}

// notice queues a message for the player. Safe to call from any goroutine.
func (t *table) notice(err error) {
	select {
	case t.noticeCh <- err:
	default:
	}
}

// startLevel rebuilds the world for level n. Stale controller events from
// the previous level are discarded once the controller has reset.
func (t *table) startLevel(ctx context.Context, n int) error {
	cfg := level.ForLevel(n)

	t.world.Reset()
	physics.SpawnLevel(t.world, cfg.StoneCount, cfg.BeanCount, t.rng)
	t.fuser.Reset()

	rctx, cancel := context.WithTimeout(ctx, levelResetTimeout)
	defer cancel()
	if err := t.controller.Reset(rctx, cfg); err != nil {
		return err
	}
	t.drainEvents()

	t.level = cfg
	t.phase = phase.Gathering
	t.started = true
	t.paused = false
	return nil
}

// stopLevel halts stepping and clears what the controller has observed, so
// no transition of the abandoned level can fire later.
func (t *table) stopLevel(ctx context.Context) error {
	if !t.started {
		return nil
	}
	t.started = false
	t.paused = true

	rctx, cancel := context.WithTimeout(ctx, levelResetTimeout)
	defer cancel()
	if err := t.controller.Reset(rctx, t.level); err != nil {
		return err
	}
	t.drainEvents()
	return nil
}

func (t *table) drainEvents() {
	for {
		select {
		case <-t.phaseCh:
		case <-t.completeCh:
		default:
			return
		}
	}
}

// step advances the simulation and feeds the phase controller.
func (t *table) step(dt time.Duration) {
	if !t.started || t.paused {
		return
	}
	v := t.fuser.Current()
	t.world.SetOrientation(v.X, v.Z)
	t.world.Step(dt)

	if t.phase == phase.Clearing {
		t.filtered = t.filtered[:0]
		t.world.Each(func(b physics.Body) {
			if b.Kind == physics.KindBean && !b.Filtered && b.Pos.Horizontal() > t.clearRadius {
				t.filtered = append(t.filtered, b.ID)
			}
		})
		for _, id := range t.filtered {
			t.world.SetFiltered(id, true)
		}
	}

	dropped := 0
	t.world.Each(func(b physics.Body) {
		if !t.controller.Report(phase.Report{ID: b.ID, Kind: b.Kind, Pos: b.Pos}) {
			dropped++
		}
	})
	if dropped > 0 {
		t.log.Debug("phase reports dropped", "level", t.level.Number, "count", dropped)
	}
}

// events collects what the controller decided since the last tick. Phase
// changes are drained before completions so a level that clears within one
// tick still ends on Complete.
func (t *table) events() []ClientEvent {
	var out []ClientEvent
	for drained := false; !drained; {
		select {
		case p := <-t.phaseCh:
			// Complete is reported through completeCh.
			if p == phase.Complete || t.paused {
				continue
			}
			t.phase = p
			out = append(out, ClientEvent{Type: EventPhaseChanged, Phase: p, Level: t.level})
		default:
			drained = true
		}
	}
	for drained := false; !drained; {
		select {
		case cfg := <-t.completeCh:
			if cfg.Number != t.level.Number || t.paused {
				continue
			}
			t.phase = phase.Complete
			t.paused = true
			out = append(out, ClientEvent{Type: EventLevelComplete, Phase: phase.Complete, Level: cfg})
		default:
			drained = true
		}
	}
	for drained := false; !drained; {
		select {
		case err := <-t.noticeCh:
			out = append(out, ClientEvent{Type: EventSensorNotice, Level: t.level, Err: err})
		default:
			drained = true
		}
	}
	return out
}

// publish stores a fresh snapshot of the table.
func (t *table) publish(pairCode string, players int, dt time.Duration) {
	s := &TableSnapshot{
		Level:        t.level,
		Phase:        t.phase,
		Started:      t.started,
		Paused:       t.paused,
		Tilt:         t.fuser.Current(),
		Source:       t.fuser.Source(),
		Sieve:        t.world.Sieve(),
		Rotation:     t.world.Rotation(),
		Bodies:       t.world.AppendBodies(make([]physics.Body, 0, t.world.Len())),
		GatherRadius: t.thresholds.GatherRadius,
		ClearRadius:  t.clearRadius,
		PairCode:     pairCode,
		Players:      players,
		Delta:        dt,
	}
	t.snapshot.Store(s)
}
