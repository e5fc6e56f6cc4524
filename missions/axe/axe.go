// Package axe follows the line to the swinging axe gate, waits while the axe blocks the front
// range sensor and then drives through.
package axe

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
const Name = "axe"

// State is a state of the axe mission.
type State int

// States of the axe mission.
const (
	FindLine State = iota
	FollowToAxe
	WaitForAxe
	DriveThrough
)

func (s State) String() string {
	switch s {
	case FindLine:
		return "FindLine"
	case FollowToAxe:
		return "FollowToAxe"
	case WaitForAxe:
		return "WaitForAxe"
	case DriveThrough:
		return "DriveThrough"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Config holds the axe thresholds.
type Config struct {
	lineup.Config `mapstructure:",squash"`
	Velocity      float64 `mapstructure:"velocity" toml:"velocity"`
	// StopDistance is the front range at which something blocks the robot.
	StopDistance float64 `mapstructure:"stop_distance" toml:"stop_distance"`
	// PassVelocity and Length describe the run through the gate.
	PassVelocity float64 `mapstructure:"pass_velocity" toml:"pass_velocity"`
	Length       float64 `mapstructure:"length" toml:"length"`

	FollowTimeout time.Duration `mapstructure:"follow_timeout" toml:"follow_timeout"`
	WaitTimeout   time.Duration `mapstructure:"wait_timeout" toml:"wait_timeout"`
	PassTimeout   time.Duration `mapstructure:"pass_timeout" toml:"pass_timeout"`
}

// Validate ensures the thresholds are usable.
func (c Config) Validate(path string) error {
	if err := c.Config.Validate(path); err != nil {
		return err
	}
	if c.StopDistance <= 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("stop_distance must be positive, got %v", c.StopDistance))
	}
	if c.PassVelocity <= 0 || c.Length <= 0 {
		return utils.NewConfigValidationError(path, errors.New("pass_velocity and length must be positive"))
	}
	for name, d := range map[string]time.Duration{
		"follow_timeout": c.FollowTimeout,
		"wait_timeout":   c.WaitTimeout,
		"pass_timeout":   c.PassTimeout,
	} {
		if d <= 0 {
			return utils.NewConfigValidationFieldRequiredError(path, name)
		}
	}
	return nil
}

// Profiles of the axe mission.
var Profiles = mission.Profiles[Config]{
	Default: "default",
	Builtin: map[string]Config{
		"default": func() Config {
			line := lineup.Default("right", -0.04)
			line.LineGone = 0.02
			return Config{
				Config:        line,
				Velocity:      0.3,
				StopDistance:  0.25,
				PassVelocity:  0.5,
				Length:        5,
				FollowTimeout: time.Minute,
				WaitTimeout:   30 * time.Second,
				PassTimeout:   30 * time.Second,
			}
		}(),
	},
}

// Table returns the axe state machine.
func Table(cfg Config) mission.Table[State] {
	return mission.Table[State]{
		Name:    Name,
		Initial: FindLine,
		States: []mission.StateSpec[State]{
			lineup.FindLine(cfg.Config, FindLine, FollowToAxe, func(c *mission.Cycle) {
				c.Logf("Follow Line with velocity %.2f", cfg.Velocity)
				c.SetVelocity(cfg.Velocity)
			}),
			{
				ID: FollowToAxe,
				Rules: []mission.Rule[State]{{
					Name: "axe ahead",
					When: mission.RangeBelow(0, cfg.StopDistance),
					Do: func(c *mission.Cycle) {
						c.ResetPose()
						c.Log("Waiting for axe")
						c.SetVelocity(0)
					},
					Next: WaitForAxe,
				}},
				Timeout:        cfg.FollowTimeout,
				TimeoutMessage: "Never reached the axe",
			},
			{
				ID: WaitForAxe,
				Rules: []mission.Rule[State]{{
					Name: "axe clear",
					When: mission.Not(mission.RangeBelow(0, cfg.StopDistance)),
					Do: func(c *mission.Cycle) {
						c.Log("Axe is clear, driving through")
						c.SetVelocity(cfg.PassVelocity)
					},
					Next: DriveThrough,
				}},
				Timeout:        cfg.WaitTimeout,
				TimeoutMessage: "Axe never cleared",
			},
			{
				ID: DriveThrough,
				Rules: []mission.Rule[State]{{
					Name:    "through the gate",
					When:    mission.DistanceAbove(cfg.Length),
					Do:      func(c *mission.Cycle) { c.Stop() },
					Outcome: mission.Finished,
				}},
				Timeout:        cfg.PassTimeout,
				TimeoutMessage: "Gave up driving through the axe gate",
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
		Description: "wait for the axe to clear the path and drive through the gate",
		Profiles:    Profiles.Names(),
		Constructor: New,
	})
}
