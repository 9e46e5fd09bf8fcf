package draw

// Point represents a 2D coordinate.
type Point struct {
	X, Y float64
}

// Block characters for drawing.
const (
	BlockFull      = '█'
	BlockUpperHalf = '▀'
	BlockLowerHalf = '▄'
)

// Glyphs used for bodies drawn as text over the canvas.
const (
	GlyphBean = '●'
	GlyphDust = '·'
)

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
