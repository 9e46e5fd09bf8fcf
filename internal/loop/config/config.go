// Package config centralizes the fixed game loop parameters. Gameplay values
// that may be tuned at startup live in internal/config.Tuning.
package config

import "time"

// View resolution - the visible viewport in logical units.
// Actual rendering scales to fit terminal size.
const (
	ViewWidth  = 120 // Logical viewport width
	ViewHeight = 80  // Logical viewport height (in sub-pixels, so 40 terminal rows)
)

// Max render resolution in terminal cells; larger terminals get a border.
const (
	MaxTermWidth  = 160
	MaxTermHeight = 50
)

// Projection of the sieve onto the view.
const (
	ViewScale = 6.0 // Logical units per world unit
	ViewLift  = 0.5 // Screen rise per unit of height, relative to ViewScale
)

// Pointer fallback
const (
	PointerKeySpeed = 1.5 // Pointer units per second while an arrow is held
)

// Effects
const (
	DustPerBean          = 3
	CompleteBlinkSeconds = 2.0
	CompleteBurstCount   = 40
)

// Shutdown
const (
	ShutdownDisplaySeconds = 10.0 // Seconds to show shutdown message before auto-disconnect
)

// Inactivity
const (
	InactivityWarnUser       = 90  // Seconds
	InactivityDisconnectUser = 120 // Seconds
)

// Client rendering
const (
	ClientTargetFPS       = 60
	ClientTargetFrameTime = time.Second / ClientTargetFPS
)

// Server tick rate
const (
	ServerTickRate = 60
	ServerTickTime = time.Second / ServerTickRate
	// MaxStep caps the simulated time per tick after a stall.
	MaxStep = 50 * time.Millisecond
)
