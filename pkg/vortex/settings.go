package vortex

import (
	"fmt"
	"math"
)

// Settings controls the near-field treatment of the kernel.
type Settings struct {
	// CoreRatio sets the default core radius as a fraction of edge length.
	CoreRatio float64 `yaml:"core_ratio"`

	// CollocationRatio sets the radius, as a fraction of edge length, inside
	// which a field point counts as lying on the supporting line.
	CollocationRatio float64 `yaml:"collocation_ratio"`

	// TransitionFactor is the multiple of the core radius at which the
	// regularization has fully faded out.
	TransitionFactor float64 `yaml:"transition_factor"`
}

// DefaultSettings returns the settings used by Setup.
func DefaultSettings() Settings {
	return Settings{
		CoreRatio:        0.1,
		CollocationRatio: 1e-6,
		TransitionFactor: 2.0,
	}
}

// Validate checks the tier ordering collocation < core < transition holds.
func (s Settings) Validate() error {
	finite := func(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

	switch {
	case !finite(s.CoreRatio) || s.CoreRatio <= 0:
		return fmt.Errorf("%w: core ratio %g must be positive", ErrInvalidSettings, s.CoreRatio)
	case !finite(s.CollocationRatio) || s.CollocationRatio <= 0:
		return fmt.Errorf("%w: collocation ratio %g must be positive", ErrInvalidSettings, s.CollocationRatio)
	case s.CollocationRatio >= s.CoreRatio:
		return fmt.Errorf("%w: collocation ratio %g must be below core ratio %g",
			ErrInvalidSettings, s.CollocationRatio, s.CoreRatio)
	case !finite(s.TransitionFactor) || s.TransitionFactor <= 1:
		return fmt.Errorf("%w: transition factor %g must exceed 1", ErrInvalidSettings, s.TransitionFactor)
	}
	return nil
}
