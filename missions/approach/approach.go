// Package approach follows the line from the start until an obstacle is close and then creeps
// up to it.
package approach

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
const Name = "approach"

// State is a state of the approach mission.
type State int

// States of the approach mission.
const (
	FindLine State = iota
	FollowToObstacle
	Creep
)

func (s State) String() string {
	switch s {
	case FindLine:
		return "FindLine"
	case FollowToObstacle:
		return "FollowToObstacle"
	case Creep:
		return "Creep"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Config holds the approach thresholds.
type Config struct {
	lineup.Config `mapstructure:",squash"`
	// Velocity is the line following velocity.
	Velocity float64 `mapstructure:"velocity" toml:"velocity"`
	// ObstacleDistance is the front range that counts as reaching the obstacle.
	ObstacleDistance float64 `mapstructure:"obstacle_distance" toml:"obstacle_distance"`
	CreepVelocity    float64 `mapstructure:"creep_velocity" toml:"creep_velocity"`
	CreepDistance    float64 `mapstructure:"creep_distance" toml:"creep_distance"`
	// Timeout bounds the follow and the creep.
	Timeout time.Duration `mapstructure:"timeout" toml:"timeout"`
}

// Validate ensures the thresholds are usable.
func (c Config) Validate(path string) error {
	if err := c.Config.Validate(path); err != nil {
		return err
	}
	if c.ObstacleDistance <= 0 {
		return utils.NewConfigValidationError(path,
			errors.Errorf("obstacle_distance must be positive, got %v", c.ObstacleDistance))
	}
	if c.CreepVelocity <= 0 || c.CreepDistance <= 0 {
		return utils.NewConfigValidationError(path, errors.New("creep_velocity and creep_distance must be positive"))
	}
	if c.Timeout <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "timeout")
	}
	return nil
}

func profile(offset, velocity, searchVelocity, searchTurnRate, obstacle float64) Config {
	line := lineup.Default("right", offset)
	line.SearchVelocity = searchVelocity
	line.SearchTurnRate = searchTurnRate
	return Config{
		Config:           line,
		Velocity:         velocity,
		ObstacleDistance: obstacle,
		CreepVelocity:    0.025,
		CreepDistance:    0.20,
		Timeout:          30 * time.Second,
	}
}

// Profiles are the two start plans: mission0 drives fast until the obstacle touches the sensor,
// plan40 drives slowly and stops 20 cm before it.
var Profiles = mission.Profiles[Config]{
	Default: "mission0",
	Builtin: map[string]Config{
		"mission0": profile(0.02, 0.6, 0.1, 0.05, 0.01),
		"plan40":   profile(-0.04, 0.2, 0, 0.2, 0.20),
	},
}

// Table returns the approach state machine.
func Table(cfg Config) mission.Table[State] {
	return mission.Table[State]{
		Name:    Name,
		Initial: FindLine,
		States: []mission.StateSpec[State]{
			lineup.FindLine(cfg.Config, FindLine, FollowToObstacle, func(c *mission.Cycle) {
				c.Logf("Follow Line with velocity %.2f", cfg.Velocity)
				c.SetVelocity(cfg.Velocity)
			}),
			{
				ID: FollowToObstacle,
				Rules: []mission.Rule[State]{{
					Name: "object found",
					When: mission.RangeBelow(0, cfg.ObstacleDistance),
					Do: func(c *mission.Cycle) {
						c.ResetPose()
						c.Log("Object Found")
						c.SetVelocity(cfg.CreepVelocity)
					},
					Next: Creep,
				}},
				Timeout:        cfg.Timeout,
				TimeoutMessage: "No obstacle found",
			},
			{
				ID: Creep,
				Rules: []mission.Rule[State]{{
					Name:    "at obstacle",
					When:    mission.DistanceAbove(cfg.CreepDistance),
					Do:      func(c *mission.Cycle) { c.Stop() },
					Outcome: mission.Finished,
				}},
				Timeout:        cfg.Timeout,
				TimeoutMessage: "Did not reach obstacle",
			},
		},
	}
}

// New builds the mission from its config section.
func New(section *config.Section, logger logging.Logger) (mission.Mission, error) {
	cfg, resolved := mission.LoadConfig(section, Profiles, logger)
	return mission.FromTable(Name, func() mission.Table[State] { return Table(cfg) }).WithProfile(resolved), nil
}

func init() {
	mission.Register(mission.Registration{
		Name:        Name,
		Description: "follow the line to an obstacle and creep up to it",
		Profiles:    Profiles.Names(),
		Constructor: New,
	})
}
