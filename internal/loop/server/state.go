package server

import (
	"time"

	"github.com/tomz197/sieve/internal/level"
	"github.com/tomz197/sieve/internal/phase"
	"github.com/tomz197/sieve/internal/physics"
	"github.com/tomz197/sieve/internal/tilt"
)

// TableSnapshot is an immutable view of one client's table for rendering.
// Bodies is never shared with the simulation.
type TableSnapshot struct {
	Level    level.Config
	Phase    phase.Phase
	Started  bool // A level has been started on this table
	Paused   bool // The level is complete and the table is frozen
	Tilt     tilt.Vector
	Source   tilt.Source
	Sieve    physics.Sieve
	Rotation physics.Mat3
	Bodies   []physics.Body

	GatherRadius float64
	ClearRadius  float64

	PairCode string // Code a phone enters to steer this table; empty without a bridge
	Players  int    // Tables on the server
	Delta    time.Duration
}

// Remaining counts the bodies of kind k that still count against the
// current objective: stones outside the gather zone while gathering, beans
// still on the mesh while clearing.
func (s *TableSnapshot) Remaining(k physics.Kind) int {
	n := 0
	for _, b := range s.Bodies {
		if b.Kind != k {
			continue
		}
		switch k {
		case physics.KindStone:
			if b.Pos.Horizontal() >= s.GatherRadius {
				n++
			}
		case physics.KindBean:
			if !b.Filtered {
				n++
			}
		}
	}
	return n
}

func emptySnapshot() *TableSnapshot {
	return &TableSnapshot{
		Sieve:    physics.DefaultSieve(),
		Rotation: physics.RotationXZ(0, 0),
		Bodies:   []physics.Body{},
	}
}
