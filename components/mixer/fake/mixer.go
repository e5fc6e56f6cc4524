// Package fake implements a recording mixer.
package fake

import (
	"context"
	"sync"

	"robobot.dev/raubase/components/mixer"
)

// Mixer records every command in order.
type Mixer struct {
	mu       sync.Mutex
	commands []mixer.Command
}

// NewMixer returns an empty recording mixer.
func NewMixer() *Mixer {
	return &Mixer{}
}

func (m *Mixer) record(cmd mixer.Command) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, cmd)
	return nil
}

// SetVelocity records the command.
func (m *Mixer) SetVelocity(ctx context.Context, velocity float64) error {
	return m.record(mixer.Command{Kind: mixer.Velocity, Value: velocity})
}

// SetTurnRate records the command.
func (m *Mixer) SetTurnRate(ctx context.Context, rate float64) error {
	return m.record(mixer.Command{Kind: mixer.TurnRate, Value: rate})
}

// SetDesiredHeading records the command.
func (m *Mixer) SetDesiredHeading(ctx context.Context, heading float64) error {
	return m.record(mixer.Command{Kind: mixer.DesiredHeading, Value: heading})
}

// SetEdgeMode records the command.
func (m *Mixer) SetEdgeMode(ctx context.Context, side mixer.Side, offset float64) error {
	return m.record(mixer.Command{Kind: mixer.EdgeMode, Value: offset, Side: side})
}

// SetMaxTurnRate records the command.
func (m *Mixer) SetMaxTurnRate(ctx context.Context, rate float64) error {
	return m.record(mixer.Command{Kind: mixer.MaxTurnRate, Value: rate})
}

// Commands returns a copy of the recorded commands.
func (m *Mixer) Commands() []mixer.Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mixer.Command, len(m.commands))
	copy(out, m.commands)
	return out
}

// Last returns the last n commands, or fewer when less were recorded.
func (m *Mixer) Last(n int) []mixer.Command {
	cmds := m.Commands()
	if len(cmds) < n {
		return cmds
	}
	return cmds[len(cmds)-n:]
}
