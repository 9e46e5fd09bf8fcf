package object

import (
	"time"

	"github.com/tomz197/sieve/internal/draw"
	"github.com/tomz197/sieve/internal/physics"
)

// Spawner allows objects to spawn new objects during update.
type Spawner interface {
	Spawn(obj Object)
}

// UpdateContext provides all the information an object needs during update.
type UpdateContext struct {
	Delta   time.Duration
	Spawner Spawner
}

// View maps world positions onto the logical canvas. The sieve is seen from
// above and slightly in front, so height shifts things up the screen.
type View struct {
	CenterX float64 // Logical position of the world origin
	CenterY float64
	Scale   float64 // Logical units per world unit
	Lift    float64 // Screen rise per unit of height, as a fraction of Scale
}

// Project converts a world position to logical canvas coordinates.
func (v View) Project(p physics.Vec3) draw.Point {
	return draw.Point{
		X: v.CenterX + p.X*v.Scale,
		Y: v.CenterY + (p.Z-p.Y*v.Lift)*v.Scale,
	}
}

// DrawContext provides drawing resources for objects.
type DrawContext struct {
	Canvas *draw.Canvas      // High-resolution canvas (2x vertical)
	Writer *draw.ChunkWriter // Text overlay drawn after the canvas
	View   View
}

// WriteText draws s at a logical position as a text overlay and marks the
// cells for repaint. Positions off the canvas are skipped.
func (ctx DrawContext) WriteText(at draw.Point, s string, width int) {
	col, row := ctx.Canvas.LogicalToTerminal(at.X, at.Y)
	col -= width / 2
	if row < 1 || row > ctx.Canvas.TerminalHeight() {
		return
	}
	if col < 1 || col+width-1 > ctx.Canvas.TerminalWidth() {
		return
	}
	ctx.Writer.WriteAt(col, row, s)
	ctx.Canvas.MarkTextDirty(col, row, width)
}

// Object is a drawable and updatable game entity.
type Object interface {
	// Update updates the object state. Returns true if the object should be removed.
	Update(ctx UpdateContext) (remove bool, err error)

	// Draw draws the object. Use ctx.Canvas for shapes, ctx.Writer for text.
	Draw(ctx DrawContext) error
}

// Releasable is implemented by pooled objects that can be returned to a pool.
type Releasable interface {
	// Release returns the object to its pool for reuse.
	Release()
}

// ReleaseObject releases an object back to its pool if it implements Releasable.
func ReleaseObject(obj Object) {
	if r, ok := obj.(Releasable); ok {
		r.Release()
	}
}

// ShouldRenderBlink returns true if an object with remaining blink time
// should be rendered this frame.
// Returns true always if remainingTime <= 0.
func ShouldRenderBlink(remainingTime float64, frequency float64) bool {
	if remainingTime <= 0 {
		return true
	}
	// Blink based on frequency (e.g., 5.0 = 5Hz, 10.0 = 10Hz)
	phase := int(remainingTime * frequency)
	return phase%2 != 0
}
