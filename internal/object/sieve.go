package object

import (
	"math"

	"github.com/tomz197/sieve/internal/draw"
	"github.com/tomz197/sieve/internal/phase"
	"github.com/tomz197/sieve/internal/physics"
)

const (
	rimSegments  = 48
	zoneDots     = 24
	rimSpokes    = 8
	blinkRateHz  = 3.0
	zoneDotEvery = rimSegments / zoneDots
)

// Sieve draws the tilted sieve: the rim at plate level and at full height,
// joined by a few struts, plus the ring marking the current objective.
type Sieve struct {
	Shape    physics.Sieve
	Rotation physics.Mat3
	Phase    phase.Phase

	// GatherRadius is marked while gathering, ClearRadius while clearing.
	GatherRadius float64
	ClearRadius  float64

	// Blink counts down while the level-complete ring flashes.
	Blink float64
}

// Update advances the blink timer.
func (s *Sieve) Update(ctx UpdateContext) (bool, error) {
	if s.Blink > 0 {
		s.Blink = math.Max(0, s.Blink-ctx.Delta.Seconds())
	}
	return false, nil
}

// Draw renders the sieve.
func (s *Sieve) Draw(ctx DrawContext) error {
	inner := s.Shape.InnerRadius()
	base := s.ring(ctx, inner, 0)
	top := s.ring(ctx, inner, s.Shape.RimHeight)

	n := len(base)
	for i := 0; i < n; i++ {
		ctx.Canvas.DrawLine(base[i], base[(i+1)%n])
		ctx.Canvas.DrawLine(top[i], top[(i+1)%n])
		if i%(n/rimSpokes) == 0 {
			ctx.Canvas.DrawLine(base[i], top[i])
		}
	}

	switch s.Phase {
	case phase.Gathering:
		s.dottedRing(ctx, s.GatherRadius)
	case phase.Clearing:
		s.dottedRing(ctx, s.ClearRadius)
	case phase.Complete:
		if ShouldRenderBlink(s.Blink, blinkRateHz) {
			s.dottedRing(ctx, s.GatherRadius)
		}
	}
	return nil
}

// ring returns the projected points of a circle of radius r at height y in
// the sieve's frame.
func (s *Sieve) ring(ctx DrawContext, r, y float64) []draw.Point {
	pts := make([]draw.Point, rimSegments)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / rimSegments
		local := physics.Vec3{X: r * math.Cos(a), Y: y, Z: r * math.Sin(a)}
		pts[i] = ctx.View.Project(s.Rotation.Mul(local))
	}
	return pts
}

func (s *Sieve) dottedRing(ctx DrawContext, r float64) {
	if r <= 0 {
		return
	}
	for i, p := range s.ring(ctx, r, 0) {
		if i%zoneDotEvery == 0 {
			ctx.Canvas.SetFloat(p.X, p.Y)
		}
	}
}
