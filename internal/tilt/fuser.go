package tilt

import (
	"math"
	"sync"
)

// Source identifies where the current tilt comes from.
type Source int

const (
	SourcePointer Source = iota
	SourceSensor
)

func (s Source) String() string {
	if s == SourceSensor {
		return "sensor"
	}
	return "pointer"
}

// Fuser combines the smoothed sensor tilt with the pointer fallback.
// A single Fuser is shared by reference between the producers (bridge,
// terminal pointer) and the consumer (physics); it is safe for concurrent use.
type Fuser struct {
	mu        sync.RWMutex
	params    Params
	sensor    Vector
	pointer   Vector
	sensorErr error
}

// NewFuser returns a Fuser at rest.
func NewFuser(p Params) *Fuser {
	return &Fuser{params: p}
}

// Orientation applies one sensor event. A nil angle means the platform had no
// reading and the event is ignored.
func (f *Fuser) Orientation(beta, gamma *float64) {
	if beta == nil || gamma == nil {
		return
	}
	target := Target(*beta, *gamma, f.params)

	f.mu.Lock()
	f.sensor = Smooth(f.sensor, target, f.params.Smoothing)
	f.sensorErr = nil
	f.mu.Unlock()
}

// Pointer records the pointer position, normalised to [-1,1] with y up.
func (f *Fuser) Pointer(x, y float64) {
	v := FromPointer(clamp(x, 1), clamp(y, 1), f.params)

	f.mu.Lock()
	f.pointer = v
	f.mu.Unlock()
}

// Current returns the tilt to apply. Each axis uses the sensor value when it
// is outside the dead band and the pointer value otherwise.
func (f *Fuser) Current() Vector {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := f.pointer
	if math.Abs(f.sensor.X) > f.params.Deadband {
		out.X = f.sensor.X
	}
	if math.Abs(f.sensor.Z) > f.params.Deadband {
		out.Z = f.sensor.Z
	}
	return out.Clamp(f.params.Limit)
}

// Source reports which input is currently steering.
func (f *Fuser) Source() Source {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if math.Abs(f.sensor.X) > f.params.Deadband || math.Abs(f.sensor.Z) > f.params.Deadband {
		return SourceSensor
	}
	return SourcePointer
}

// SetSensorError records why sensor input is missing.
func (f *Fuser) SetSensorError(err error) {
	f.mu.Lock()
	f.sensorErr = err
	if err != nil {
		f.sensor = Vector{}
	}
	f.mu.Unlock()
}

// SensorError returns the last recorded sensor failure, if any.
func (f *Fuser) SensorError() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.sensorErr
}

// Reset zeroes both sources. The recorded sensor error is kept.
func (f *Fuser) Reset() {
	f.mu.Lock()
	f.sensor = Vector{}
	f.pointer = Vector{}
	f.mu.Unlock()
}
