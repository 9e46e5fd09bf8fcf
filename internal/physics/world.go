package physics

import (
	"math"
	"time"
)

// Sieve describes the kinematic plate and its rim. The plate's top surface
// passes through the origin; the rim is a wall standing on the plate edge.
type Sieve struct {
	Radius         float64 // Outer plate radius
	RimThickness   float64
	RimHeight      float64 // Height of the rim top above the plate
	PlateThickness float64
}

// DefaultSieve matches the reference scene: a radius 5 disc with a rim
// reaching 2.5 units above it.
func DefaultSieve() Sieve {
	return Sieve{
		Radius:         5,
		RimThickness:   0.5,
		RimHeight:      2.5,
		PlateThickness: 0.5,
	}
}

// InnerRadius is where the rim wall begins.
func (s Sieve) InnerRadius() float64 {
	return s.Radius - s.RimThickness/2
}

const (
	gravity       = -30.0
	substeps      = 4
	frictionScale = 6.0 // Converts Friction to a per-second tangential decay
	gridCellSize  = 1.0 // >= twice the largest body radius
	gridExtent    = 6.0
	sinkDepth     = -10.0 // Filtered bodies below this stop moving
)

// World owns every body on one sieve. It is not safe for concurrent use; the
// game server steps it from a single goroutine.
type World struct {
	sieve  Sieve
	rot    Mat3
	tiltX  float64
	tiltZ  float64
	bodies []*Body
	byID   map[string]*Body
	grid   *SpatialGrid
}

// NewWorld creates an empty world with a level sieve.
func NewWorld(s Sieve) *World {
	return &World{
		sieve: s,
		rot:   RotationXZ(0, 0),
		byID:  make(map[string]*Body),
		grid:  NewSpatialGrid(gridExtent, gridCellSize),
	}
}

// Sieve returns the plate geometry.
func (w *World) Sieve() Sieve { return w.sieve }

// Add inserts a body. A body with an existing ID replaces the old one.
func (w *World) Add(b Body) {
	if old, ok := w.byID[b.ID]; ok {
		*old = b
		return
	}
	nb := b
	w.bodies = append(w.bodies, &nb)
	w.byID[b.ID] = &nb
}

// Reset removes every body and levels the sieve.
func (w *World) Reset() {
	w.bodies = w.bodies[:0]
	clear(w.byID)
	w.SetOrientation(0, 0)
}

// Len returns the number of bodies.
func (w *World) Len() int { return len(w.bodies) }

// SetOrientation is the kinematic command: the sieve's rotation about X and Z.
func (w *World) SetOrientation(x, z float64) {
	w.tiltX, w.tiltZ = x, z
	w.rot = RotationXZ(x, z)
}

// Orientation returns the current sieve rotation.
func (w *World) Orientation() (x, z float64) { return w.tiltX, w.tiltZ }

// Rotation returns the sieve's local-to-world rotation.
func (w *World) Rotation() Mat3 { return w.rot }

// SetFiltered toggles a body's collision filter. Returns false if the body
// does not exist.
func (w *World) SetFiltered(id string, filtered bool) bool {
	b, ok := w.byID[id]
	if !ok {
		return false
	}
	b.Filtered = filtered
	return true
}

// Body returns a copy of the body with the given id.
func (w *World) Body(id string) (Body, bool) {
	b, ok := w.byID[id]
	if !ok {
		return Body{}, false
	}
	return *b, true
}

// Each calls fn for every body in insertion order.
func (w *World) Each(fn func(b Body)) {
	for _, b := range w.bodies {
		fn(*b)
	}
}

// AppendBodies appends copies of all bodies to dst and returns it.
func (w *World) AppendBodies(dst []Body) []Body {
	for _, b := range w.bodies {
		dst = append(dst, *b)
	}
	return dst
}

// Step advances the simulation by dt.
func (w *World) Step(dt time.Duration) {
	h := dt.Seconds() / substeps
	if h <= 0 {
		return
	}
	for i := 0; i < substeps; i++ {
		w.integrate(h)
		w.collidePairs()
	}
}

// integrate applies gravity and damping, moves bodies, and resolves contact
// with the sieve.
func (w *World) integrate(h float64) {
	for _, b := range w.bodies {
		if b.Filtered && b.Pos.Y < sinkDepth {
			b.Vel = Vec3{}
			continue
		}
		b.Vel.Y += gravity * h
		damp := math.Pow(1-b.LinearDamping, h)
		b.Vel = b.Vel.Scale(damp)
		b.Pos = b.Pos.Add(b.Vel.Scale(h))

		if !b.Filtered {
			w.collideSieve(b, h)
		}
	}
}

// collideSieve resolves a body against the plate and the rim in the sieve's
// local frame.
func (w *World) collideSieve(b *Body, h float64) {
	s := w.sieve
	lp := w.rot.MulT(b.Pos)
	lv := w.rot.MulT(b.Vel)
	r := b.Radius
	rho := math.Hypot(lp.X, lp.Z)
	touched := false

	// Plate top.
	if rho <= s.Radius && lp.Y < r && lp.Y > -s.PlateThickness {
		lp.Y = r
		if lv.Y < 0 {
			lv.Y = -lv.Y * b.Restitution
		}
		decay := math.Max(0, 1-b.Friction*frictionScale*h)
		lv.X *= decay
		lv.Z *= decay
		touched = true
	}

	// Rim wall, a ring between the inner radius and the plate edge. Bodies
	// are pushed out of whichever face is nearer their centre.
	inner := s.InnerRadius()
	if lp.Y < s.RimHeight+r && lp.Y > -s.PlateThickness && rho+r > inner && rho-r < s.Radius && rho > 0 {
		nx, nz := lp.X/rho, lp.Z/rho
		limit, sign := inner-r, 1.0
		if rho > (inner+s.Radius)/2 {
			limit, sign = s.Radius+r, -1.0
		}
		lp.X, lp.Z = nx*limit, nz*limit
		// vr is the speed into the wall.
		vr := sign * (lv.X*nx + lv.Z*nz)
		if vr > 0 {
			k := sign * (1 + b.Restitution) * vr
			lv.X -= k * nx
			lv.Z -= k * nz
		}
		touched = true
	}

	if touched {
		b.Pos = w.rot.Mul(lp)
		b.Vel = w.rot.Mul(lv)
	}
}

// collidePairs separates overlapping unfiltered bodies and exchanges impulse
// along the contact normal.
func (w *World) collidePairs() {
	w.grid.Clear()
	for i, b := range w.bodies {
		if !b.Filtered {
			w.grid.Insert(b.Pos.X, b.Pos.Z, i)
		}
	}

	for i, a := range w.bodies {
		if a.Filtered {
			continue
		}
		w.grid.QueryAround(a.Pos.X, a.Pos.Z, func(j int) bool {
			if j <= i {
				return false
			}
			b := w.bodies[j]
			if SpheresOverlap(a.Pos, a.Radius, b.Pos, b.Radius) {
				resolvePair(a, b)
			}
			return false
		})
	}
}

// resolvePair handles a collision between two spheres.
func resolvePair(a, b *Body) {
	d := b.Pos.Sub(a.Pos)
	dist := d.Len()
	if dist == 0 {
		// Coincident centres: push apart vertically.
		d = Vec3{Y: 1}
		dist = 1e-6
	}
	n := d.Scale(1 / dist)

	totalMass := a.Mass + b.Mass

	// Relative velocity along the collision normal
	dvn := a.Vel.Sub(b.Vel).Dot(n)
	if dvn > 0 {
		e := math.Min(a.Restitution, b.Restitution)
		impulse := (1 + e) * dvn / totalMass
		a.Vel = a.Vel.Sub(n.Scale(impulse * b.Mass))
		b.Vel = b.Vel.Add(n.Scale(impulse * a.Mass))
	}

	// Separate proportionally to the other body's share of the mass.
	overlap := a.Radius + b.Radius - dist
	if overlap > 0 {
		a.Pos = a.Pos.Sub(n.Scale(overlap * b.Mass / totalMass))
		b.Pos = b.Pos.Add(n.Scale(overlap * a.Mass / totalMass))
	}
}

// RimPoint returns the world position where the rim meets the plate at angle
// theta, for drawing the tilted sieve.
func (w *World) RimPoint(theta float64) Vec3 {
	r := w.sieve.InnerRadius()
	return w.rot.Mul(Vec3{X: r * math.Cos(theta), Z: r * math.Sin(theta)})
}
