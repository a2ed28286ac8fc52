package vortex

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// SonicBand is the half-width of the Mach interval around 1 that the
	// linearized kernel refuses.
	SonicBand = 1e-3

	// MaxMach is the largest free-stream Mach number accepted.
	MaxMach = 5.0
)

// FlowCondition is the free-stream state shared by every kernel and force
// evaluation of one solution. It is immutable once built, so one value may be
// shared freely between goroutines.
type FlowCondition struct {
	mach      float64
	velocity  r3.Vec
	direction r3.Vec
	speed     float64
	density   float64
}

// NewFlowCondition validates and builds a flow condition.
func NewFlowCondition(mach float64, velocity r3.Vec, density float64) (FlowCondition, error) {
	switch {
	case math.IsNaN(mach) || mach < 0 || mach > MaxMach:
		return FlowCondition{}, fmt.Errorf("%w: %g not in [0, %g]", ErrInvalidMach, mach, MaxMach)
	case math.Abs(mach-1) < SonicBand:
		return FlowCondition{}, fmt.Errorf("%w: %g", ErrSonicMach, mach)
	case !(density > 0) || math.IsInf(density, 0):
		return FlowCondition{}, fmt.Errorf("%w: %g", ErrInvalidDensity, density)
	}

	speed := r3.Norm(velocity)
	if !(speed > 0) || math.IsInf(speed, 0) {
		return FlowCondition{}, fmt.Errorf("%w: %v", ErrZeroFreeStream, velocity)
	}

	return FlowCondition{
		mach:      mach,
		velocity:  velocity,
		direction: r3.Scale(1/speed, velocity),
		speed:     speed,
		density:   density,
	}, nil
}

// Mach returns the free-stream Mach number.
func (fc FlowCondition) Mach() float64 { return fc.mach }

// Beta2 returns 1 - M², negative in supersonic flow.
func (fc FlowCondition) Beta2() float64 { return 1 - fc.mach*fc.mach }

// Supersonic reports whether the free stream is supersonic.
func (fc FlowCondition) Supersonic() bool { return fc.mach > 1 }

func (fc FlowCondition) Velocity() r3.Vec  { return fc.velocity }
func (fc FlowCondition) Direction() r3.Vec { return fc.direction }
func (fc FlowCondition) Speed() float64    { return fc.speed }
func (fc FlowCondition) Density() float64  { return fc.density }

// String implements fmt.Stringer.
func (fc FlowCondition) String() string {
	return fmt.Sprintf("M=%.3f V=(%.3f, %.3f, %.3f) rho=%.4f",
		fc.mach, fc.velocity.X, fc.velocity.Y, fc.velocity.Z, fc.density)
}
