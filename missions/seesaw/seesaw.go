// Package seesaw drives over the seesaw: follow the line to the intersection before it, creep
// up to the tilting point, wait for the seesaw to tip, go down, and turn back onto the line
// after it.
package seesaw

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
const Name = "seesaw"

// State is a state of the seesaw mission.
type State int

// States of the seesaw mission.
const (
	FindLine State = iota
	FollowToIntersection
	ToEdge
	OverEdge
	ToTiltPoint
	Tilt
	GoDown
	RecoverLine
	TurnOntoLine
	Leave
)

var stateNames = map[State]string{
	FindLine:             "FindLine",
	FollowToIntersection: "FollowToIntersection",
	ToEdge:               "ToEdge",
	OverEdge:             "OverEdge",
	ToTiltPoint:          "ToTiltPoint",
	Tilt:                 "Tilt",
	GoDown:               "GoDown",
	RecoverLine:          "RecoverLine",
	TurnOntoLine:         "TurnOntoLine",
	Leave:                "Leave",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Config holds the seesaw thresholds. Distances are in meters from the previous landmark.
type Config struct {
	lineup.Config `mapstructure:",squash"`
	Velocity      float64 `mapstructure:"velocity" toml:"velocity"`
	// IntersectionWidth is the line width of the intersection in front of the seesaw.
	IntersectionWidth float64 `mapstructure:"intersection_width" toml:"intersection_width"`

	ApproachVelocity   float64 `mapstructure:"approach_velocity" toml:"approach_velocity"`
	IntersectionToEdge float64 `mapstructure:"intersection_to_edge" toml:"intersection_to_edge"`
	EdgeVelocity       float64 `mapstructure:"edge_velocity" toml:"edge_velocity"`
	EdgeWidth          float64 `mapstructure:"edge_width" toml:"edge_width"`
	TiltVelocity       float64 `mapstructure:"tilt_velocity" toml:"tilt_velocity"`
	EdgeToTiltPoint    float64 `mapstructure:"edge_to_tilt_point" toml:"edge_to_tilt_point"`
	// TiltWait is the pause at the tilting point.
	TiltWait     time.Duration `mapstructure:"tilt_wait" toml:"tilt_wait"`
	DownVelocity float64       `mapstructure:"down_velocity" toml:"down_velocity"`

	RecoverVelocity float64 `mapstructure:"recover_velocity" toml:"recover_velocity"`
	// TurnRate and TurnAngle turn the robot back onto the line after the seesaw.
	TurnRate     float64 `mapstructure:"turn_rate" toml:"turn_rate"`
	TurnAngle    float64 `mapstructure:"turn_angle" toml:"turn_angle"`
	ExitVelocity float64 `mapstructure:"exit_velocity" toml:"exit_velocity"`
	ExitDistance float64 `mapstructure:"exit_distance" toml:"exit_distance"`

	// Timeout bounds every state except the tilt wait.
	Timeout time.Duration `mapstructure:"timeout" toml:"timeout"`
}

// Validate ensures the thresholds are usable.
func (c Config) Validate(path string) error {
	if err := c.Config.Validate(path); err != nil {
		return err
	}
	if c.IntersectionWidth <= c.LineWidth {
		return utils.NewConfigValidationError(path,
			errors.Errorf("intersection_width %v must exceed line_width %v", c.IntersectionWidth, c.LineWidth))
	}
	for name, v := range map[string]float64{
		"approach_velocity":    c.ApproachVelocity,
		"intersection_to_edge": c.IntersectionToEdge,
		"edge_velocity":        c.EdgeVelocity,
		"edge_width":           c.EdgeWidth,
		"tilt_velocity":        c.TiltVelocity,
		"edge_to_tilt_point":   c.EdgeToTiltPoint,
		"down_velocity":        c.DownVelocity,
		"recover_velocity":     c.RecoverVelocity,
		"exit_distance":        c.ExitDistance,
	} {
		if v <= 0 {
			return utils.NewConfigValidationError(path, errors.Errorf("%s must be positive, got %v", name, v))
		}
	}
	if c.TurnRate == 0 || c.TurnAngle == 0 {
		return utils.NewConfigValidationError(path, errors.New("turn_rate and turn_angle must be set"))
	}
	if c.TiltWait < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("tilt_wait must not be negative, got %v", c.TiltWait))
	}
	if c.Timeout <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "timeout")
	}
	return nil
}

// Profiles of the seesaw mission.
var Profiles = mission.Profiles[Config]{
	Default: "default",
	Builtin: map[string]Config{
		"default": {
			Config:             lineup.Default("left", 0),
			Velocity:           0.3,
			IntersectionWidth:  0.06,
			ApproachVelocity:   0.07,
			IntersectionToEdge: 0.23,
			EdgeVelocity:       0.02,
			EdgeWidth:          0.098,
			TiltVelocity:       0.1,
			EdgeToTiltPoint:    0.84,
			TiltWait:           3 * time.Second,
			DownVelocity:       0.05,
			RecoverVelocity:    0.1,
			TurnRate:           -0.5,
			TurnAngle:          -1.3,
			ExitVelocity:       0.5,
			ExitDistance:       0.3,
			Timeout:            30 * time.Second,
		},
	},
}

// Table returns the seesaw state machine.
func Table(cfg Config) mission.Table[State] {
	follow := cfg.FollowEdge()
	// drive returns a state that runs then and moves on once d meters are driven since the
	// last reset.
	drive := func(id, next State, d float64, then mission.Action) mission.StateSpec[State] {
		return mission.StateSpec[State]{
			ID:             id,
			Rules:          []mission.Rule[State]{{Name: id.String() + " done", When: mission.DistanceAbove(d), Do: then, Next: next}},
			Timeout:        cfg.Timeout,
			TimeoutMessage: fmt.Sprintf("%s did not cover %.3f m", id, d),
		}
	}
	return mission.Table[State]{
		Name:    Name,
		Initial: FindLine,
		States: []mission.StateSpec[State]{
			lineup.FindLine(cfg.Config, FindLine, FollowToIntersection, func(c *mission.Cycle) {
				c.Logf("Follow Line with velocity %.2f", cfg.Velocity)
				c.SetVelocity(cfg.Velocity)
			}),
			{
				ID: FollowToIntersection,
				Rules: []mission.Rule[State]{{
					Name: "intersection",
					When: mission.WidthAbove(cfg.IntersectionWidth),
					Do: func(c *mission.Cycle) {
						follow(c)
						c.Log("found intersection")
						c.SetVelocity(cfg.ApproachVelocity)
						c.ResetPose()
					},
					Next: ToEdge,
				}},
				Timeout:        cfg.Timeout,
				TimeoutMessage: "No intersection before the seesaw",
			},
			drive(ToEdge, OverEdge, cfg.IntersectionToEdge, func(c *mission.Cycle) {
				c.Log("robot on the edge")
				c.SetVelocity(cfg.EdgeVelocity)
				c.ResetPose()
			}),
			drive(OverEdge, ToTiltPoint, cfg.EdgeWidth, func(c *mission.Cycle) {
				c.Log("coming to tilting point")
				c.SetVelocity(cfg.TiltVelocity)
				c.ResetPose()
			}),
			drive(ToTiltPoint, Tilt, cfg.EdgeToTiltPoint, func(c *mission.Cycle) {
				c.Log("robot on the tilting point")
				c.SetVelocity(0)
			}),
			{
				ID: Tilt,
				Rules: []mission.Rule[State]{{
					Name: "tilted",
					When: mission.InStateFor(cfg.TiltWait),
					Do: func(c *mission.Cycle) {
						follow(c)
						c.Log("going down")
						c.SetVelocity(cfg.DownVelocity)
					},
					Next: GoDown,
				}},
				Timeout:        cfg.TiltWait + time.Second,
				TimeoutMessage: "Seesaw did not tilt",
			},
			{
				ID: GoDown,
				Rules: []mission.Rule[State]{{
					Name: "line gone",
					When: mission.WidthBelow(cfg.LineGone),
					Do: func(c *mission.Cycle) {
						c.ResetPose()
						c.Log("No Line")
						c.SetVelocity(cfg.RecoverVelocity)
					},
					Next: RecoverLine,
				}},
				Timeout:        cfg.Timeout,
				TimeoutMessage: "Never left the seesaw",
			},
			{
				ID: RecoverLine,
				Rules: []mission.Rule[State]{{
					Name: "line back",
					When: mission.WidthAbove(cfg.LineWidth),
					Do: func(c *mission.Cycle) {
						c.SetVelocity(0)
						c.ResetPose()
						c.SetTurnRate(cfg.TurnRate)
					},
					Next: TurnOntoLine,
				}},
				Timeout:        cfg.Timeout,
				TimeoutMessage: "Line not found after the seesaw",
			},
			{
				ID: TurnOntoLine,
				Rules: []mission.Rule[State]{{
					Name: "turned",
					When: mission.TurnedAbove(math.Abs(cfg.TurnAngle)),
					Do: func(c *mission.Cycle) {
						follow(c)
						c.Log("back on the line")
						c.SetVelocity(cfg.ExitVelocity)
						c.ResetPose()
					},
					Next: Leave,
				}},
				Timeout:        cfg.Timeout,
				TimeoutMessage: "Did not turn back onto the line",
			},
			{
				ID: Leave,
				Rules: []mission.Rule[State]{{
					Name:    "left the seesaw",
					When:    mission.DistanceAbove(cfg.ExitDistance),
					Outcome: mission.Finished,
				}},
				Timeout:        cfg.Timeout,
				TimeoutMessage: "Did not leave the seesaw",
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
		Description: "cross the seesaw and turn back onto the line behind it",
		Profiles:    Profiles.Names(),
		Constructor: New,
	})
}
