// Package tilt turns device orientation readings or pointer positions into
// the bounded, smoothed rotation applied to the sieve.
package tilt

import (
	"errors"
	"math"
)

// Sensor failure kinds. Neither is fatal: the game keeps running on the
// pointer fallback.
var (
	ErrPermissionDenied  = errors.New("tilt: sensor permission denied")
	ErrSensorUnavailable = errors.New("tilt: orientation sensor unavailable")
)

// Vector is a rotation about the X and Z axes, in radians.
type Vector struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

// Params are the fusion constants.
type Params struct {
	BaselineBeta float64 // Degrees; the angle a phone is usually held at
	Limit        float64 // Max |component| in radians
	Smoothing    float64 // Exponential smoothing factor per update
	PointerScale float64 // Pointer [-1,1] to radians
	Deadband     float64 // Sensor components below this defer to the pointer
}

// DefaultParams returns the stock fusion constants.
func DefaultParams() Params {
	return Params{
		BaselineBeta: 45,
		Limit:        0.7,
		Smoothing:    0.2,
		PointerScale: 0.4,
		Deadband:     0.01,
	}
}

// Clamp bounds both components to [-limit, limit].
func (v Vector) Clamp(limit float64) Vector {
	return Vector{X: clamp(v.X, limit), Z: clamp(v.Z, limit)}
}

// Target converts raw orientation angles (degrees) into the tilt they ask for.
func Target(beta, gamma float64, p Params) Vector {
	return Vector{
		X: clamp(degToRad(beta-p.BaselineBeta), p.Limit),
		Z: clamp(degToRad(-gamma), p.Limit),
	}
}

// Smooth moves current towards target by alpha.
func Smooth(current, target Vector, alpha float64) Vector {
	return Vector{
		X: current.X + (target.X-current.X)*alpha,
		Z: current.Z + (target.Z-current.Z)*alpha,
	}
}

// FromPointer maps a pointer in normalised screen space (x right, y up, both
// in [-1,1]) to a tilt. Moving the pointer up raises the far edge and dips
// the near one.
func FromPointer(x, y float64, p Params) Vector {
	return Vector{X: y * p.PointerScale, Z: -x * p.PointerScale}
}

func clamp(v, limit float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-limit, math.Min(limit, v))
}

func degToRad(d float64) float64 {
	return d * math.Pi / 180
}
