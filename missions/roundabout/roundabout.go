// Package roundabout follows the line into the roundabout, drives around the ring counting the
// branches it passes and leaves on the configured exit.
package roundabout

import (
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"robobot.dev/raubase/components/mixer"
	"robobot.dev/raubase/config"
	"robobot.dev/raubase/logging"
	"robobot.dev/raubase/mission"
	"robobot.dev/raubase/missions/internal/lineup"
)

// Name is the registered mission name.
const Name = "roundabout"

// State is a state of the roundabout mission.
type State int

// States of the roundabout mission.
const (
	FindLine State = iota
	FollowToRoundabout
	TurnIn
	OnRing
	TurnOut
	Leave
)

var stateNames = map[State]string{
	FindLine:           "FindLine",
	FollowToRoundabout: "FollowToRoundabout",
	TurnIn:             "TurnIn",
	OnRing:             "OnRing",
	TurnOut:            "TurnOut",
	Leave:              "Leave",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Config holds the roundabout settings. Turns are heading changes in radians, positive to the
// left.
type Config struct {
	lineup.Config   `mapstructure:",squash"`
	Velocity        float64 `mapstructure:"velocity" toml:"velocity"`
	RoundaboutWidth float64 `mapstructure:"roundabout_width" toml:"roundabout_width"`
	TurnIn          float64 `mapstructure:"turn_in" toml:"turn_in"`
	TurnOut         float64 `mapstructure:"turn_out" toml:"turn_out"`
	TurnTolerance   float64 `mapstructure:"turn_tolerance" toml:"turn_tolerance"`

	RingEdge     string  `mapstructure:"ring_edge" toml:"ring_edge"`
	RingOffset   float64 `mapstructure:"ring_offset" toml:"ring_offset"`
	RingVelocity float64 `mapstructure:"ring_velocity" toml:"ring_velocity"`
	// ExitWidth is the line width of a branch leaving the ring. Exit counts the branches, the
	// one joined from not included.
	ExitWidth float64 `mapstructure:"exit_width" toml:"exit_width"`
	Exit      int     `mapstructure:"exit" toml:"exit"`

	ExitVelocity float64       `mapstructure:"exit_velocity" toml:"exit_velocity"`
	ExitDistance float64       `mapstructure:"exit_distance" toml:"exit_distance"`
	Timeout      time.Duration `mapstructure:"timeout" toml:"timeout"`
}

// Validate ensures the settings are usable.
func (c Config) Validate(path string) error {
	if err := c.Config.Validate(path); err != nil {
		return err
	}
	if _, err := mixer.ParseSide(c.RingEdge); err != nil {
		return utils.NewConfigValidationError(path, errors.Wrap(err, "ring_edge"))
	}
	if c.RoundaboutWidth <= c.LineWidth || c.ExitWidth <= c.LineWidth {
		return utils.NewConfigValidationError(path,
			errors.Errorf("roundabout_width %v and exit_width %v must exceed line_width %v",
				c.RoundaboutWidth, c.ExitWidth, c.LineWidth))
	}
	for name, turn := range map[string]float64{"turn_in": c.TurnIn, "turn_out": c.TurnOut} {
		if math.Abs(turn) <= c.TurnTolerance {
			return utils.NewConfigValidationError(path,
				errors.Errorf("%s %v must exceed turn_tolerance %v", name, turn, c.TurnTolerance))
		}
	}
	if c.Exit < 1 {
		return utils.NewConfigValidationError(path, errors.Errorf("exit must be at least 1, got %d", c.Exit))
	}
	if c.Velocity <= 0 || c.RingVelocity <= 0 || c.ExitVelocity <= 0 || c.ExitDistance <= 0 {
		return utils.NewConfigValidationError(path, errors.New("velocities and exit_distance must be positive"))
	}
	if c.Timeout <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "timeout")
	}
	return nil
}

// Profiles of the roundabout mission.
var Profiles = mission.Profiles[Config]{
	Default: "default",
	Builtin: map[string]Config{
		"default": {
			Config:          lineup.Default("right", 0),
			Velocity:        0.3,
			RoundaboutWidth: 0.07,
			TurnIn:          0.8,
			TurnOut:         -0.8,
			TurnTolerance:   0.02,
			RingEdge:        "right",
			RingVelocity:    0.2,
			ExitWidth:       0.06,
			Exit:            2,
			ExitVelocity:    0.3,
			ExitDistance:    0.5,
			Timeout:         30 * time.Second,
		},
	},
}

// Table returns the roundabout state machine.
func Table(cfg Config) mission.Table[State] {
	ring, _ := mixer.ParseSide(cfg.RingEdge)
	wide := mission.WidthAbove(cfg.ExitWidth)
	// The robot joins the ring on a branch, which is not counted.
	onBranch := true
	passed := 0
	return mission.Table[State]{
		Name:    Name,
		Initial: FindLine,
		States: []mission.StateSpec[State]{
			lineup.FindLine(cfg.Config, FindLine, FollowToRoundabout, func(c *mission.Cycle) {
				c.Logf("Follow Line with velocity %.2f", cfg.Velocity)
				c.SetVelocity(cfg.Velocity)
			}),
			{
				ID: FollowToRoundabout,
				Rules: []mission.Rule[State]{{
					Name: "roundabout",
					When: mission.WidthAbove(cfg.RoundaboutWidth),
					Do: func(c *mission.Cycle) {
						c.Log("Found roundabout, turning in")
						c.ResetPose()
						c.SetVelocity(cfg.RingVelocity)
						c.SetDesiredHeading(cfg.TurnIn)
					},
					Next: TurnIn,
				}},
				Timeout:        cfg.Timeout,
				TimeoutMessage: "No roundabout found",
			},
			{
				ID: TurnIn,
				Rules: []mission.Rule[State]{{
					Name: "on ring",
					When: mission.TurnedAbove(math.Abs(cfg.TurnIn) - cfg.TurnTolerance),
					Do: func(c *mission.Cycle) {
						c.ResetPose()
						c.SetDesiredHeading(0)
						c.FollowEdge(ring, cfg.RingOffset)
					},
					Next: OnRing,
				}},
				Timeout:        cfg.Timeout,
				TimeoutMessage: "Did not turn into the roundabout",
			},
			{
				ID: OnRing,
				Rules: []mission.Rule[State]{
					{
						Name: "take exit",
						When: func(v mission.View) bool { return !onBranch && passed+1 == cfg.Exit && wide(v) },
						Do: func(c *mission.Cycle) {
							c.Logf("Taking exit %d", cfg.Exit)
							c.ResetPose()
							c.SetDesiredHeading(cfg.TurnOut)
						},
						Next: TurnOut,
					},
					{
						Name: "pass exit",
						When: func(v mission.View) bool { return !onBranch && wide(v) },
						Do: func(c *mission.Cycle) {
							onBranch = true
							passed++
							c.Logf("Passed exit %d of %d", passed, cfg.Exit)
						},
						Next: OnRing,
					},
					{
						Name: "branch behind",
						When: func(v mission.View) bool { return onBranch && !wide(v) },
						Do:   func(*mission.Cycle) { onBranch = false },
						Next: OnRing,
					},
				},
				Timeout:        cfg.Timeout,
				TimeoutMessage: "Exit never found on the ring",
			},
			{
				ID: TurnOut,
				Rules: []mission.Rule[State]{{
					Name: "off ring",
					When: mission.TurnedAbove(math.Abs(cfg.TurnOut) - cfg.TurnTolerance),
					Do: func(c *mission.Cycle) {
						c.ResetPose()
						cfg.FollowEdge()(c)
						c.SetVelocity(cfg.ExitVelocity)
					},
					Next: Leave,
				}},
				Timeout:        cfg.Timeout,
				TimeoutMessage: "Did not turn out of the roundabout",
			},
			{
				ID: Leave,
				Rules: []mission.Rule[State]{{
					Name:    "left the roundabout",
					When:    mission.DistanceAbove(cfg.ExitDistance),
					Outcome: mission.Finished,
				}},
				Timeout:        cfg.Timeout,
				TimeoutMessage: "Did not leave the roundabout",
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
		Description: "drive around the roundabout and leave on the configured exit",
		Profiles:    Profiles.Names(),
		Constructor: New,
	})
}
