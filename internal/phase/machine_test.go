package phase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomz197/sieve/internal/level"
	"github.com/tomz197/sieve/internal/physics"
)

func observeStones(m *Machine, n int, pos physics.Vec3) {
	for i := 0; i < n; i++ {
		m.Observe(Report{ID: physics.StoneID(i), Kind: physics.KindStone, Pos: pos})
	}
}

func observeBeans(m *Machine, n int, pos physics.Vec3) {
	for i := 0; i < n; i++ {
		m.Observe(Report{ID: physics.BeanID(i), Kind: physics.KindBean, Pos: pos})
	}
}

func TestMachineGathersWhenAllStonesCentred(t *testing.T) {
	m := NewMachine(level.ForLevel(1), DefaultThresholds())
	observeStones(m, 3, physics.Vec3{X: 0.6, Y: 0.5, Z: 0.6})

	p, changed := m.Evaluate()
	assert.True(t, changed)
	assert.Equal(t, Clearing, p)
}

func TestMachineIgnoresPartialStoneSet(t *testing.T) {
	m := NewMachine(level.ForLevel(1), DefaultThresholds())
	observeStones(m, 2, physics.Vec3{})

	p, changed := m.Evaluate()
	assert.False(t, changed)
	assert.Equal(t, Gathering, p)
}

func TestMachineStoneOnBoundaryIsNotGathered(t *testing.T) {
	m := NewMachine(level.ForLevel(1), DefaultThresholds())
	observeStones(m, 2, physics.Vec3{})
	m.Observe(Report{ID: physics.StoneID(2), Kind: physics.KindStone, Pos: physics.Vec3{X: 1.4}})

	_, changed := m.Evaluate()
	assert.False(t, changed)
}

func TestMachineHeightDoesNotCountForGathering(t *testing.T) {
	m := NewMachine(level.ForLevel(1), DefaultThresholds())
	observeStones(m, 3, physics.Vec3{Y: 100})

	p, _ := m.Evaluate()
	assert.Equal(t, Clearing, p)
}

func TestMachineClearsWhenAllBeansBelow(t *testing.T) {
	cfg := level.ForLevel(1)
	m := NewMachine(cfg, DefaultThresholds())
	observeStones(m, cfg.StoneCount, physics.Vec3{})
	_, _ = m.Evaluate()

	observeBeans(m, cfg.BeanCount-1, physics.Vec3{Y: -4})
	p, changed := m.Evaluate()
	require.False(t, changed, "missing bean must block completion")
	require.Equal(t, Clearing, p)

	m.Observe(Report{ID: physics.BeanID(cfg.BeanCount - 1), Kind: physics.KindBean, Pos: physics.Vec3{Y: -3}})
	_, changed = m.Evaluate()
	assert.True(t, changed)
	assert.Equal(t, Complete, m.Phase())
}

func TestMachineBeanAboveClearHeightBlocks(t *testing.T) {
	cfg := level.ForLevel(2)
	m := NewMachine(cfg, DefaultThresholds())
	observeStones(m, cfg.StoneCount, physics.Vec3{})
	_, _ = m.Evaluate()

	observeBeans(m, cfg.BeanCount, physics.Vec3{Y: -5})
	m.Observe(Report{ID: physics.BeanID(0), Kind: physics.KindBean, Pos: physics.Vec3{Y: -2.9}})
	_, changed := m.Evaluate()
	assert.False(t, changed)
}

func TestMachineNeverRegresses(t *testing.T) {
	cfg := level.ForLevel(1)
	m := NewMachine(cfg, DefaultThresholds())
	observeStones(m, cfg.StoneCount, physics.Vec3{})
	_, _ = m.Evaluate()

	observeStones(m, cfg.StoneCount, physics.Vec3{X: 4})
	p, changed := m.Evaluate()
	assert.False(t, changed)
	assert.Equal(t, Clearing, p)

	observeBeans(m, cfg.BeanCount, physics.Vec3{Y: -10})
	_, _ = m.Evaluate()
	observeBeans(m, cfg.BeanCount, physics.Vec3{Y: 1})
	p, changed = m.Evaluate()
	assert.False(t, changed)
	assert.Equal(t, Complete, p)
}

func TestMachineResetClearsTracking(t *testing.T) {
	m := NewMachine(level.ForLevel(1), DefaultThresholds())
	observeStones(m, 3, physics.Vec3{})
	_, _ = m.Evaluate()

	next := level.ForLevel(2)
	m.Reset(next)
	assert.Equal(t, Gathering, m.Phase())
	assert.Equal(t, next, m.Level())

	// Stale level-1 positions must not carry over.
	p, changed := m.Evaluate()
	assert.False(t, changed)
	assert.Equal(t, Gathering, p)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "gathering", Gathering.String())
	assert.Equal(t, "clearing", Clearing.String())
	assert.Equal(t, "complete", Complete.String())
	assert.Equal(t, "unknown", Phase(9).String())
}
