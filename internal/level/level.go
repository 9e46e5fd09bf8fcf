// Package level derives per-level object counts and colours.
package level

import (
	"fmt"
	"strconv"
)

// MaxLevel is the last level before the game wraps back to the menu.
const MaxLevel = 10

// Bean colours alternate by level parity.
const (
	ColorOdd  = "#ffeb3b"
	ColorEven = "#ff5252"
)

// Config describes the contents of one level. It is derived from the level
// number and never changes once created.
type Config struct {
	Number     int
	StoneCount int
	BeanCount  int
	BeanColor  string
}

// ForLevel returns the configuration for level n.
func ForLevel(n int) Config {
	color := ColorOdd
	if n%2 == 0 {
		color = ColorEven
	}
	return Config{
		Number:     n,
		StoneCount: min(3+n/2, 10),
		BeanCount:  min(10+n*5, 60),
		BeanColor:  color,
	}
}

// Next returns the level that follows n. After MaxLevel it returns 1 and
// false, meaning the run is over and the game should go back to the menu.
func Next(n int) (int, bool) {
	if n >= MaxLevel {
		return 1, false
	}
	return n + 1, true
}

// RGB parses BeanColor ("#rrggbb") into its components.
func (c Config) RGB() (r, g, b uint8, err error) {
	s := c.BeanColor
	if len(s) != 7 || s[0] != '#' {
		return 0, 0, 0, fmt.Errorf("level: bad colour %q", s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("level: bad colour %q: %w", s, err)
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v), nil
}
