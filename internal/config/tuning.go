package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tomz197/sieve/internal/phase"
	"github.com/tomz197/sieve/internal/tilt"
)

// ErrInvalidTuning is wrapped by every Validate failure.
var ErrInvalidTuning = errors.New("invalid tuning")

// Tuning holds the gameplay values that may be overridden from a file.
type Tuning struct {
	Tilt   TiltTuning   `yaml:"tilt"`
	Phase  PhaseTuning  `yaml:"phase"`
	Bridge BridgeTuning `yaml:"bridge"`
}

// TiltTuning mirrors tilt.Params.
type TiltTuning struct {
	BaselineBeta float64 `yaml:"baseline_beta"`
	Limit        float64 `yaml:"limit"`
	Smoothing    float64 `yaml:"smoothing"`
	PointerScale float64 `yaml:"pointer_scale"`
	Deadband     float64 `yaml:"deadband"`
}

// PhaseTuning controls the objective checks.
type PhaseTuning struct {
	CheckInterval time.Duration `yaml:"check_interval"`
	GatherRadius  float64       `yaml:"gather_radius"`
	ClearHeight   float64       `yaml:"clear_height"`
	// ClearRadius is how far from the centre a bean must roll during
	// clearing before it drops through the mesh.
	ClearRadius float64 `yaml:"clear_radius"`
}

// BridgeTuning limits phone traffic.
type BridgeTuning struct {
	OrientationRate  float64 `yaml:"orientation_rate"` // frames per second
	OrientationBurst int     `yaml:"orientation_burst"`
}

// DefaultTuning returns the built-in values.
func DefaultTuning() Tuning {
	tp := tilt.DefaultParams()
	th := phase.DefaultThresholds()
	return Tuning{
		Tilt: TiltTuning{
			BaselineBeta: tp.BaselineBeta,
			Limit:        tp.Limit,
			Smoothing:    tp.Smoothing,
			PointerScale: tp.PointerScale,
			Deadband:     tp.Deadband,
		},
		Phase: PhaseTuning{
			CheckInterval: phase.DefaultInterval,
			GatherRadius:  th.GatherRadius,
			ClearHeight:   th.ClearHeight,
			ClearRadius:   2.5,
		},
		Bridge: BridgeTuning{
			OrientationRate:  60,
			OrientationBurst: 10,
		},
	}
}

// LoadTuning decodes YAML from r over the defaults. Keys missing from the
// document keep their default value.
func LoadTuning(r io.Reader) (Tuning, error) {
	t := DefaultTuning()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&t); err != nil && !errors.Is(err, io.EOF) {
		return Tuning{}, fmt.Errorf("decode tuning: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Tuning{}, err
	}
	return t, nil
}

// LoadTuningFile opens path and calls LoadTuning.
func LoadTuningFile(path string) (Tuning, error) {
	f, err := os.Open(path)
	if err != nil {
		return Tuning{}, fmt.Errorf("open tuning: %w", err)
	}
	defer f.Close()

	t, err := LoadTuning(f)
	if err != nil {
		return Tuning{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Validate rejects values the game cannot run with.
func (t Tuning) Validate() error {
	switch {
	case t.Tilt.Limit <= 0:
		return fmt.Errorf("%w: tilt.limit must be positive", ErrInvalidTuning)
	case t.Tilt.Smoothing <= 0 || t.Tilt.Smoothing > 1:
		return fmt.Errorf("%w: tilt.smoothing must be in (0,1]", ErrInvalidTuning)
	case t.Tilt.PointerScale < 0:
		return fmt.Errorf("%w: tilt.pointer_scale must not be negative", ErrInvalidTuning)
	case t.Tilt.Deadband < 0:
		return fmt.Errorf("%w: tilt.deadband must not be negative", ErrInvalidTuning)
	case t.Phase.CheckInterval <= 0:
		return fmt.Errorf("%w: phase.check_interval must be positive", ErrInvalidTuning)
	case t.Phase.GatherRadius <= 0:
		return fmt.Errorf("%w: phase.gather_radius must be positive", ErrInvalidTuning)
	case t.Phase.ClearRadius <= 0:
		return fmt.Errorf("%w: phase.clear_radius must be positive", ErrInvalidTuning)
	case t.Bridge.OrientationRate <= 0 || t.Bridge.OrientationBurst < 1:
		return fmt.Errorf("%w: bridge rate and burst must be positive", ErrInvalidTuning)
	}
	return nil
}

// TiltParams converts the tilt section for tilt.NewFuser.
func (t Tuning) TiltParams() tilt.Params {
	return tilt.Params{
		BaselineBeta: t.Tilt.BaselineBeta,
		Limit:        t.Tilt.Limit,
		Smoothing:    t.Tilt.Smoothing,
		PointerScale: t.Tilt.PointerScale,
		Deadband:     t.Tilt.Deadband,
	}
}

// Thresholds converts the phase section for phase.NewMachine.
func (t Tuning) Thresholds() phase.Thresholds {
	return phase.Thresholds{
		GatherRadius: t.Phase.GatherRadius,
		ClearHeight:  t.Phase.ClearHeight,
	}
}
