// Package phase tracks a level's progress from gathering the stones to
// clearing the beans.
package phase

import (
	"github.com/tomz197/sieve/internal/level"
	"github.com/tomz197/sieve/internal/physics"
)

// Phase is the objective currently in play.
type Phase int

const (
	// Gathering: push every stone into the centre.
	Gathering Phase = iota
	// Clearing: drop every bean through the sieve.
	Clearing
	// Complete is terminal until the next Reset.
	Complete
)

func (p Phase) String() string {
	switch p {
	case Gathering:
		return "gathering"
	case Clearing:
		return "clearing"
	case Complete:
		return "complete"
	default:
		return "unknown"
	}
}

// Report is the latest known position of one body.
type Report struct {
	ID   string
	Kind physics.Kind
	Pos  physics.Vec3
}

// Thresholds are the distances the phase checks compare against.
type Thresholds struct {
	// GatherRadius is the horizontal distance from the centre every stone
	// must be within.
	GatherRadius float64
	// ClearHeight is the height every bean must be below.
	ClearHeight float64
}

// DefaultThresholds returns the stock gather radius and clear height.
func DefaultThresholds() Thresholds {
	return Thresholds{GatherRadius: 1.4, ClearHeight: -3}
}

// Machine is the synchronous phase state machine. It is not safe for
// concurrent use; the Controller owns one.
type Machine struct {
	cfg    level.Config
	th     Thresholds
	phase  Phase
	stones map[string]physics.Vec3
	beans  map[string]physics.Vec3
}

// NewMachine returns a machine in the Gathering phase for cfg.
func NewMachine(cfg level.Config, th Thresholds) *Machine {
	m := &Machine{th: th}
	m.Reset(cfg)
	return m
}

// Reset starts cfg from Gathering with no tracked positions.
func (m *Machine) Reset(cfg level.Config) {
	m.cfg = cfg
	m.phase = Gathering
	m.stones = make(map[string]physics.Vec3, cfg.StoneCount)
	m.beans = make(map[string]physics.Vec3, cfg.BeanCount)
}

// Observe records the latest position for r.ID.
func (m *Machine) Observe(r Report) {
	switch r.Kind {
	case physics.KindStone:
		m.stones[r.ID] = r.Pos
	case physics.KindBean:
		m.beans[r.ID] = r.Pos
	}
}

// Phase returns the current phase without evaluating.
func (m *Machine) Phase() Phase { return m.phase }

// Level returns the level the machine is tracking.
func (m *Machine) Level() level.Config { return m.cfg }

// Evaluate runs the check for the current phase and reports whether it
// advanced. At most one transition happens per call.
func (m *Machine) Evaluate() (Phase, bool) {
	switch m.phase {
	case Gathering:
		if m.gathered() {
			m.phase = Clearing
			return m.phase, true
		}
	case Clearing:
		if m.cleared() {
			m.phase = Complete
			return m.phase, true
		}
	}
	return m.phase, false
}

// gathered requires every stone of the level to be tracked; a partial set
// never passes.
func (m *Machine) gathered() bool {
	if len(m.stones) != m.cfg.StoneCount {
		return false
	}
	for _, p := range m.stones {
		if p.Horizontal() >= m.th.GatherRadius {
			return false
		}
	}
	return true
}

func (m *Machine) cleared() bool {
	if len(m.beans) != m.cfg.BeanCount {
		return false
	}
	for _, p := range m.beans {
		if p.Y > m.th.ClearHeight {
			return false
		}
	}
	return true
}
