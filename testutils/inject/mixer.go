// Package inject provides test doubles whose methods can be overridden one at a time.
package inject

import (
	"context"

	"robobot.dev/raubase/components/mixer"
)

// Mixer is an injected mixer.
type Mixer struct {
	mixer.Mixer
	SetVelocityFunc       func(ctx context.Context, velocity float64) error
	SetTurnRateFunc       func(ctx context.Context, rate float64) error
	SetDesiredHeadingFunc func(ctx context.Context, heading float64) error
	SetEdgeModeFunc       func(ctx context.Context, side mixer.Side, offset float64) error
	SetMaxTurnRateFunc    func(ctx context.Context, rate float64) error
}

// NewMixer returns a new injected mixer wrapping m.
func NewMixer(m mixer.Mixer) *Mixer {
	return &Mixer{Mixer: m}
}

// SetVelocity calls the injected SetVelocity or the real version.
func (m *Mixer) SetVelocity(ctx context.Context, velocity float64) error {
	if m.SetVelocityFunc == nil {
		return m.Mixer.SetVelocity(ctx, velocity)
	}
	return m.SetVelocityFunc(ctx, velocity)
}

// SetTurnRate calls the injected SetTurnRate or the real version.
func (m *Mixer) SetTurnRate(ctx context.Context, rate float64) error {
	if m.SetTurnRateFunc == nil {
		return m.Mixer.SetTurnRate(ctx, rate)
	}
	return m.SetTurnRateFunc(ctx, rate)
}

// SetDesiredHeading calls the injected SetDesiredHeading or the real version.
func (m *Mixer) SetDesiredHeading(ctx context.Context, heading float64) error {
	if m.SetDesiredHeadingFunc == nil {
		return m.Mixer.SetDesiredHeading(ctx, heading)
	}
	return m.SetDesiredHeadingFunc(ctx, heading)
}

// SetEdgeMode calls the injected SetEdgeMode or the real version.
func (m *Mixer) SetEdgeMode(ctx context.Context, side mixer.Side, offset float64) error {
	if m.SetEdgeModeFunc == nil {
		return m.Mixer.SetEdgeMode(ctx, side, offset)
	}
	return m.SetEdgeModeFunc(ctx, side, offset)
}

// SetMaxTurnRate calls the injected SetMaxTurnRate or the real version.
func (m *Mixer) SetMaxTurnRate(ctx context.Context, rate float64) error {
	if m.SetMaxTurnRateFunc == nil {
		return m.Mixer.SetMaxTurnRate(ctx, rate)
	}
	return m.SetMaxTurnRateFunc(ctx, rate)
}
