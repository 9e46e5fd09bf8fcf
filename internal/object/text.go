package object

import (
	"unicode/utf8"

	"github.com/tomz197/sieve/internal/draw"
)

// Text is a label anchored to a logical canvas position and centred on it.
type Text struct {
	At    draw.Point
	Value string
	Color string // Optional ANSI foreground sequence
}

// Draw writes the text over the canvas.
func (t Text) Draw(ctx DrawContext) error {
	if t.Value == "" {
		return nil
	}
	s := t.Value
	if t.Color != "" {
		s = t.Color + s + draw.ColorReset
	}
	ctx.WriteText(t.At, s, utf8.RuneCountInString(t.Value))
	return nil
}

// Update is a no-op for static text.
func (t Text) Update(ctx UpdateContext) (bool, error) {
	return false, nil
}
