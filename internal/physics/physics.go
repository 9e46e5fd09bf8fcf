// Package physics is a small headless rigid-sphere simulation of the sieve:
// a kinematic plate with a rim, and stones and beans resting on it.
package physics

import "math"

// Vec3 is a point or direction in world space. Y is up.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// Dot returns the dot product of v and o.
func (v Vec3) Dot(o Vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

// Len returns the length of v.
func (v Vec3) Len() float64 { return math.Sqrt(v.Dot(v)) }

// Horizontal returns the distance from the vertical axis through the origin.
func (v Vec3) Horizontal() float64 { return math.Hypot(v.X, v.Z) }

// SpheresOverlap checks if two spheres overlap.
func SpheresOverlap(a Vec3, ra float64, b Vec3, rb float64) bool {
	d := b.Sub(a)
	minDist := ra + rb
	return d.Dot(d) < minDist*minDist
}

// Mat3 is a row-major rotation matrix.
type Mat3 [3][3]float64

// RotationXZ builds the rotation for Euler angles (x, 0, z) applied in XYZ
// order, matching how the sieve is tilted.
func RotationXZ(x, z float64) Mat3 {
	sa, ca := math.Sin(x), math.Cos(x)
	sc, cc := math.Sin(z), math.Cos(z)
	return Mat3{
		{cc, -sc, 0},
		{ca * sc, ca * cc, -sa},
		{sa * sc, sa * cc, ca},
	}
}

// Mul returns m * v (local to world).
func (m Mat3) Mul(v Vec3) Vec3 {
	return Vec3{
		m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// MulT returns transpose(m) * v (world to local).
func (m Mat3) MulT(v Vec3) Vec3 {
	return Vec3{
		m[0][0]*v.X + m[1][0]*v.Y + m[2][0]*v.Z,
		m[0][1]*v.X + m[1][1]*v.Y + m[2][1]*v.Z,
		m[0][2]*v.X + m[1][2]*v.Y + m[2][2]*v.Z,
	}
}
