package object

import (
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/tomz197/sieve/internal/draw"
	"github.com/tomz197/sieve/internal/physics"
)

// stoneVertices is the number of corners of a stone outline.
const stoneVertices = 9

// Stone draws a stone body as an irregular filled polygon. The outline is
// derived from the body ID so a stone keeps its shape between frames.
type Stone struct {
	Body physics.Body
}

// Update is a no-op; stones move with the simulation snapshot.
func (s Stone) Update(ctx UpdateContext) (bool, error) {
	return false, nil
}

// Draw renders the stone at its projected position.
func (s Stone) Draw(ctx DrawContext) error {
	center := ctx.View.Project(s.Body.Pos)
	radius := s.Body.Radius * ctx.View.Scale

	h := xxhash.Sum64String(s.Body.ID)
	rot := float64(h%360) * math.Pi / 180

	points := ctx.Canvas.BorrowPoints(stoneVertices)
	for i := range points {
		// Vary radius by ±20% for an irregular shape, one byte of hash each
		jitter := float64((h>>(i*7))&0x7f) / 0x7f
		dist := radius * (0.8 + 0.4*jitter)
		a := rot + float64(i)*2*math.Pi/stoneVertices
		points[i] = draw.Point{
			X: center.X + math.Cos(a)*dist,
			Y: center.Y + math.Sin(a)*dist,
		}
	}

	ctx.Canvas.DrawPolygon(points, true)
	return nil
}
