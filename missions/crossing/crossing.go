// Package crossing follows the line from the start to the first crossing. A crossing that is
// passed without being seen is searched again in the other direction with a lower width
// threshold.
package crossing

import (
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"robobot.dev/raubase/config"
	"robobot.dev/raubase/logging"
	"robobot.dev/raubase/mission"
	"robobot.dev/raubase/missions/internal/lineup"
)

// Name is the registered mission name.
const Name = "crossing"

// State is a state of the crossing mission.
type State int

// States of the crossing mission.
const (
	FindLine State = iota
	FindCrossing
)

func (s State) String() string {
	switch s {
	case FindLine:
		return "FindLine"
	case FindCrossing:
		return "FindCrossing"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Config holds the crossing search settings.
type Config struct {
	lineup.Config `mapstructure:",squash"`
	Velocity      float64 `mapstructure:"velocity" toml:"velocity"`
	BackVelocity  float64 `mapstructure:"back_velocity" toml:"back_velocity"`
	// CrossingWidth is the first threshold. Each miss lowers it by CrossingStep, never below
	// MinCrossingWidth.
	CrossingWidth    float64 `mapstructure:"crossing_width" toml:"crossing_width"`
	CrossingStep     float64 `mapstructure:"crossing_step" toml:"crossing_step"`
	MinCrossingWidth float64 `mapstructure:"min_crossing_width" toml:"min_crossing_width"`
	// MissDistance is driven without a crossing before the search turns around.
	MissDistance float64       `mapstructure:"miss_distance" toml:"miss_distance"`
	Timeout      time.Duration `mapstructure:"timeout" toml:"timeout"`
}

// Validate ensures the search settings are usable.
func (c Config) Validate(path string) error {
	if err := c.Config.Validate(path); err != nil {
		return err
	}
	if c.Velocity <= 0 || c.BackVelocity >= 0 {
		return utils.NewConfigValidationError(path,
			errors.Errorf("velocity must be positive and back_velocity negative, got %v and %v", c.Velocity, c.BackVelocity))
	}
	if c.MinCrossingWidth <= c.LineWidth || c.CrossingWidth < c.MinCrossingWidth {
		return utils.NewConfigValidationError(path,
			errors.Errorf("need line_width %v < min_crossing_width %v <= crossing_width %v",
				c.LineWidth, c.MinCrossingWidth, c.CrossingWidth))
	}
	if c.CrossingStep < 0 || c.MissDistance <= 0 {
		return utils.NewConfigValidationError(path, errors.New("crossing_step and miss_distance must be positive"))
	}
	if c.Timeout <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "timeout")
	}
	return nil
}

// Profiles of the crossing mission.
var Profiles = mission.Profiles[Config]{
	Default: "default",
	Builtin: map[string]Config{
		"default": func() Config {
			line := lineup.Default("left", 0.03)
			line.SearchVelocity = 0.01
			line.SearchTurnRate = 1.0
			return Config{
				Config:           line,
				Velocity:         0.25,
				BackVelocity:     -0.15,
				CrossingWidth:    0.09,
				CrossingStep:     0.005,
				MinCrossingWidth: 0.05,
				MissDistance:     10,
				Timeout:          2 * time.Minute,
			}
		}(),
	},
}

// Table returns the crossing state machine.
func Table(cfg Config) mission.Table[State] {
	threshold := cfg.CrossingWidth
	forward := true
	return mission.Table[State]{
		Name:    Name,
		Period:  4 * time.Millisecond,
		Initial: FindLine,
		States: []mission.StateSpec[State]{
			lineup.FindLine(cfg.Config, FindLine, FindCrossing, func(c *mission.Cycle) {
				c.Logf("Follow Line with velocity %.2f", cfg.Velocity)
				c.SetVelocity(cfg.Velocity)
			}),
			{
				ID: FindCrossing,
				Rules: []mission.Rule[State]{
					{
						Name: "First split found",
						When: func(v mission.View) bool { return v.Edge.Width > threshold },
						Do: func(c *mission.Cycle) {
							c.Logf("First split found, width %.3f", c.View().Edge.Width)
							c.ResetPose()
						},
						Outcome: mission.Finished,
					},
					{
						Name: "crossing missed",
						When: mission.DistanceAbove(cfg.MissDistance),
						Do: func(c *mission.Cycle) {
							c.ResetPose()
							threshold = math.Max(cfg.MinCrossingWidth, threshold-cfg.CrossingStep)
							forward = !forward
							if forward {
								c.SetVelocity(cfg.Velocity)
							} else {
								c.SetVelocity(cfg.BackVelocity)
							}
							c.Logf("Crossing missed, lowering threshold to %.3f", threshold)
						},
						Next: FindCrossing,
					},
				},
				Timeout:        cfg.Timeout,
				TimeoutMessage: "No crossing found",
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
		Description: "follow the line from the start to the first crossing",
		Profiles:    Profiles.Names(),
		Constructor: New,
	})
}
