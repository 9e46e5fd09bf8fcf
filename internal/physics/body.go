package physics

import (
	"fmt"
	"math/rand"
)

// Kind distinguishes the two body types on the sieve.
type Kind int

const (
	KindStone Kind = iota
	KindBean
)

func (k Kind) String() string {
	switch k {
	case KindStone:
		return "stone"
	case KindBean:
		return "bean"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Body is a dynamic sphere.
type Body struct {
	ID   string
	Kind Kind
	Pos  Vec3
	Vel  Vec3

	Radius        float64
	Mass          float64
	LinearDamping float64 // Fraction of velocity lost per second
	Friction      float64 // Tangential slowdown while touching the plate
	Restitution   float64 // Bounciness, 0..1

	// Filtered bodies collide with nothing and fall through the sieve.
	Filtered bool
}

// NewStone returns a heavy, sluggish stone.
func NewStone(id string, pos Vec3) Body {
	return Body{
		ID:            id,
		Kind:          KindStone,
		Pos:           pos,
		Radius:        0.45,
		Mass:          5,
		LinearDamping: 0.5,
		Friction:      0.4,
		Restitution:   0.1,
	}
}

// NewBean returns a light, slippery bean.
func NewBean(id string, pos Vec3) Body {
	return Body{
		ID:            id,
		Kind:          KindBean,
		Pos:           pos,
		Radius:        0.2,
		Mass:          0.2,
		LinearDamping: 0.1,
		Friction:      0.1,
		Restitution:   0.3,
	}
}

// StoneID and BeanID name bodies the way the phase tracker expects.
func StoneID(i int) string { return fmt.Sprintf("stone-%d", i) }
func BeanID(i int) string  { return fmt.Sprintf("bean-%d", i) }

// SpawnLevel drops stones and beans above the sieve. Stones start within
// [-2,2] on both horizontal axes and stack upward from y=3; beans start
// within [-3,3] and stack upward from y=5.
func SpawnLevel(w *World, stones, beans int, rng *rand.Rand) {
	for i := 0; i < stones; i++ {
		pos := Vec3{
			X: rng.Float64()*4 - 2,
			Y: 3 + float64(i)*0.5,
			Z: rng.Float64()*4 - 2,
		}
		w.Add(NewStone(StoneID(i), pos))
	}
	for i := 0; i < beans; i++ {
		pos := Vec3{
			X: rng.Float64()*6 - 3,
			Y: 5 + float64(i)*0.4,
			Z: rng.Float64()*6 - 3,
		}
		w.Add(NewBean(BeanID(i), pos))
	}
}
