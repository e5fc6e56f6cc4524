// Package fake implements a fake servo controller.
package fake

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// Setting is the last command received on one channel.
type Setting struct {
	Enabled bool
	Target  int
	Speed   int
}

// Servo moves enabled channels to their target immediately.
type Servo struct {
	mu       sync.Mutex
	channels int
	settings map[int]Setting
	position map[int]int
}

// NewServo returns a controller with channels 1..channels.
func NewServo(channels int) *Servo {
	return &Servo{channels: channels, settings: map[int]Setting{}, position: map[int]int{}}
}

func (s *Servo) check(channel int) error {
	if channel < 1 || channel > s.channels {
		return errors.Errorf("no servo channel %d", channel)
	}
	return nil
}

// SetServo records the setting and jumps to the target when enabled.
func (s *Servo) SetServo(ctx context.Context, channel int, enabled bool, target, speed int) error {
	if err := s.check(channel); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[channel] = Setting{Enabled: enabled, Target: target, Speed: speed}
	if enabled {
		s.position[channel] = target
	}
	return nil
}

// Position returns the channel position.
func (s *Servo) Position(ctx context.Context, channel int) (int, error) {
	if err := s.check(channel); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position[channel], nil
}

// Setting returns the last setting of a channel.
func (s *Servo) Setting(channel int) (Setting, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	setting, ok := s.settings[channel]
	return setting, ok
}
