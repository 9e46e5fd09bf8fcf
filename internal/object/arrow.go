package object

import (
	"math"

	"github.com/tomz197/sieve/internal/draw"
	"github.com/tomz197/sieve/internal/tilt"
)

// TiltArrow is a small gauge showing which way the sieve is tipped. It
// points downhill and grows with the tilt.
type TiltArrow struct {
	At    draw.Point // Logical centre of the gauge
	Tilt  tilt.Vector
	Limit float64 // Tilt magnitude drawn at full size
	Size  float64 // Full-size arrow length in logical units
}

// Update is a no-op.
func (a TiltArrow) Update(ctx UpdateContext) (bool, error) {
	return false, nil
}

// Draw renders the arrow as a filled triangle, or a dot when level.
func (a TiltArrow) Draw(ctx DrawContext) error {
	// A positive X tilt lowers the +Z edge; a positive Z tilt raises +X.
	dx := -a.Tilt.Z
	dy := a.Tilt.X
	mag := math.Hypot(dx, dy)
	if mag < 1e-3 || a.Limit <= 0 {
		ctx.Canvas.SetFloat(a.At.X, a.At.Y)
		return nil
	}

	angle := math.Atan2(dy, dx)
	size := a.Size * math.Min(1, mag/a.Limit)
	if size < 2 {
		size = 2
	}

	// Triangle vertices relative to center:
	// - Nose: in the downhill direction
	// - Wings: ~143° either side of the nose
	noseAngle := angle
	leftAngle := angle + 2.5
	rightAngle := angle - 2.5

	triangle := ctx.Canvas.BorrowPoints(3)
	triangle[0] = draw.Point{X: a.At.X + math.Cos(noseAngle)*size, Y: a.At.Y + math.Sin(noseAngle)*size}
	triangle[1] = draw.Point{X: a.At.X + math.Cos(leftAngle)*size*0.6, Y: a.At.Y + math.Sin(leftAngle)*size*0.6}
	triangle[2] = draw.Point{X: a.At.X + math.Cos(rightAngle)*size*0.6, Y: a.At.Y + math.Sin(rightAngle)*size*0.6}

	ctx.Canvas.DrawPolygon(triangle, true)
	return nil
}
