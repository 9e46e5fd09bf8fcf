package object

import (
	"github.com/tomz197/sieve/internal/draw"
	"github.com/tomz197/sieve/internal/physics"
)

// Bean draws a bean body as a coloured glyph over the canvas.
type Bean struct {
	Body  physics.Body
	Color string // ANSI foreground sequence
}

// Update is a no-op; beans move with the simulation snapshot.
func (b Bean) Update(ctx UpdateContext) (bool, error) {
	return false, nil
}

// Draw renders the bean. Beans that dropped through the mesh are dimmed.
func (b Bean) Draw(ctx DrawContext) error {
	glyph := string(draw.GlyphBean)
	color := b.Color
	if b.Body.Filtered {
		glyph = string(draw.GlyphDust)
		color = draw.ColorDim
	}
	ctx.WriteText(ctx.View.Project(b.Body.Pos), color+glyph+draw.ColorReset, 1)
	return nil
}
