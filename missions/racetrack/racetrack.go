// Package racetrack races along the line at full speed from the start for a fixed distance.
package racetrack

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"robobot.dev/raubase/config"
	"robobot.dev/raubase/logging"
	"robobot.dev/raubase/mission"
	"robobot.dev/raubase/missions/internal/lineup"
)

// Name is the registered mission name.
const Name = "racetrack"

// Period is the racetrack cycle period.
const Period = 4 * time.Millisecond

// State is a state of the racetrack mission.
type State int

// States of the racetrack mission.
const (
	FindLine State = iota
	Launch
	Race
)

func (s State) String() string {
	switch s {
	case FindLine:
		return "FindLine"
	case Launch:
		return "Launch"
	case Race:
		return "Race"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Config holds the race settings.
type Config struct {
	lineup.Config `mapstructure:",squash"`
	Velocity      float64 `mapstructure:"velocity" toml:"velocity"`
	// LaunchDistance is driven on the start offset before switching to RaceOffset.
	LaunchDistance float64 `mapstructure:"launch_distance" toml:"launch_distance"`
	RaceOffset     float64 `mapstructure:"race_offset" toml:"race_offset"`
	// Length is the race distance from the start line.
	Length  float64       `mapstructure:"length" toml:"length"`
	Timeout time.Duration `mapstructure:"timeout" toml:"timeout"`
}

// Validate ensures the race settings are usable.
func (c Config) Validate(path string) error {
	if err := c.Config.Validate(path); err != nil {
		return err
	}
	if c.Velocity <= 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("velocity must be positive, got %v", c.Velocity))
	}
	if c.LaunchDistance < 0 || c.Length <= c.LaunchDistance {
		return utils.NewConfigValidationError(path,
			errors.Errorf("length %v must exceed launch_distance %v", c.Length, c.LaunchDistance))
	}
	if c.Timeout <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "timeout")
	}
	if need := time.Duration(c.Length / c.Velocity * float64(time.Second)); c.Timeout < need {
		return utils.NewConfigValidationError(path,
			errors.Errorf("timeout %v is shorter than the %v the race takes at %v m/s", c.Timeout, need, c.Velocity))
	}
	return nil
}

// Profiles of the racetrack mission.
var Profiles = mission.Profiles[Config]{
	Default: "default",
	Builtin: map[string]Config{
		"default": func() Config {
			line := lineup.Default("right", 0)
			line.FindLineTimeout = 5 * time.Second
			return Config{
				Config:         line,
				Velocity:       0.7,
				LaunchDistance: 0.1,
				RaceOffset:     -0.04,
				Length:         20,
				Timeout:        40 * time.Second,
			}
		}(),
	},
}

// Table returns the racetrack state machine.
func Table(cfg Config) mission.Table[State] {
	return mission.Table[State]{
		Name:    Name,
		Period:  Period,
		Initial: FindLine,
		States: []mission.StateSpec[State]{
			lineup.FindLine(cfg.Config, FindLine, Launch, func(c *mission.Cycle) {
				c.SetVelocity(cfg.Velocity)
			}),
			{
				ID: Launch,
				Rules: []mission.Rule[State]{{
					Name: "launched",
					When: mission.DistanceAbove(cfg.LaunchDistance),
					Do: func(c *mission.Cycle) {
						c.Logf("launched after %.3f m", c.View().Pose.Distance)
						c.FollowEdge(cfg.Side(), cfg.RaceOffset)
					},
					Next: Race,
				}},
				Timeout:        cfg.Timeout,
				TimeoutMessage: "Did not get off the start line",
			},
			{
				ID: Race,
				Rules: []mission.Rule[State]{{
					Name: "finish line",
					When: mission.DistanceAbove(cfg.Length),
					Do: func(c *mission.Cycle) {
						c.ResetPose()
						c.Log("Reached finish line")
						c.SetVelocity(0)
					},
					Outcome: mission.Finished,
				}},
				Timeout:        cfg.Timeout,
				TimeoutMessage: "Race took too long, probably off the track",
			},
		},
	}
}

// New builds the mission from its config section.
func New(section *config.Section, logger logging.Logger) (mission.Mission, error) {
	cfg, profile := mission.LoadConfig(section, Profiles, logger)
	return mission.FromTable(Name, func() mission.Table[State] { return Table(cfg) }).WithProfile(profile), nil
}

func init() {
	mission.Register(mission.Registration{
		Name:        Name,
		Description: "race along the line for a fixed distance",
		Profiles:    Profiles.Names(),
		Constructor: New,
	})
}
