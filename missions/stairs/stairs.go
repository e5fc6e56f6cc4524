// Package stairs takes the robot down the staircase: find the stairs intersection, lower the arm,
// then repeat a step down and a short back up against the step until the bottom. At the bottom
// the robot finds the line again, turning against the wall when it landed off the line, and
// finishes at the first intersection.
package stairs

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"robobot.dev/raubase/components/lineedge"
	"robobot.dev/raubase/components/mixer"
	"robobot.dev/raubase/components/servo"
	"robobot.dev/raubase/config"
	"robobot.dev/raubase/logging"
	"robobot.dev/raubase/mission"
)

// Name is the registered mission name.
const Name = "stairs"

// Period is the cycle period of the stairs mission.
const Period = 2 * time.Millisecond

// State is a state of the stairs mission.
type State int

// States of the stairs mission.
const (
	WaitForLine State = iota
	FindCrossing
	FollowToIntersection
	ToStairs
	LowerArm
	StepDown
	BackUp
	Bottom
	Creep
	TurnLeft
	BackToWall
	FindEdge
	OnEdge
	FinishAtIntersection
)

var stateNames = map[State]string{
	WaitForLine:          "WaitForLine",
	FindCrossing:         "FindCrossing",
	FollowToIntersection: "FollowToIntersection",
	ToStairs:             "ToStairs",
	LowerArm:             "LowerArm",
	StepDown:             "StepDown",
	BackUp:               "BackUp",
	Bottom:               "Bottom",
	Creep:                "Creep",
	TurnLeft:             "TurnLeft",
	BackToWall:           "BackToWall",
	FindEdge:             "FindEdge",
	OnEdge:               "OnEdge",
	FinishAtIntersection: "FinishAtIntersection",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Config holds the stairs thresholds.
type Config struct {
	CrossingWidth   float64 `mapstructure:"crossing_width" toml:"crossing_width"`
	ForwardVelocity float64 `mapstructure:"forward_velocity" toml:"forward_velocity"`
	SlowVelocity    float64 `mapstructure:"slow_velocity" toml:"slow_velocity"`
	BackVelocity    float64 `mapstructure:"back_velocity" toml:"back_velocity"`

	// IntersectionDistance is the minimum drive from the seesaw crossing to the stairs
	// intersection, StairsDistance the drive from there to the first step.
	IntersectionDistance float64 `mapstructure:"intersection_distance" toml:"intersection_distance"`
	StairsDistance       float64 `mapstructure:"stairs_distance" toml:"stairs_distance"`

	ArmUp        int           `mapstructure:"arm_up" toml:"arm_up"`
	ArmUpSpeed   int           `mapstructure:"arm_up_speed" toml:"arm_up_speed"`
	ArmDown      int           `mapstructure:"arm_down" toml:"arm_down"`
	ArmSpeed     int           `mapstructure:"arm_speed" toml:"arm_speed"`
	ArmTolerance int           `mapstructure:"arm_tolerance" toml:"arm_tolerance"`
	ArmWait      time.Duration `mapstructure:"arm_wait" toml:"arm_wait"`

	Steps        int           `mapstructure:"steps" toml:"steps"`
	StepDistance float64       `mapstructure:"step_distance" toml:"step_distance"`
	BackUpTime   time.Duration `mapstructure:"back_up_time" toml:"back_up_time"`
	// WoodAfterStep swaps the line calibration after this many steps, zero never.
	WoodAfterStep int    `mapstructure:"wood_after_step" toml:"wood_after_step"`
	Calibration   string `mapstructure:"calibration" toml:"calibration"`

	CreepDistance float64       `mapstructure:"creep_distance" toml:"creep_distance"`
	TurnHeading   float64       `mapstructure:"turn_heading" toml:"turn_heading"`
	TurnTolerance float64       `mapstructure:"turn_tolerance" toml:"turn_tolerance"`
	WallDistance  float64       `mapstructure:"wall_distance" toml:"wall_distance"`
	WallTime      time.Duration `mapstructure:"wall_time" toml:"wall_time"`
	EdgeHeading   float64       `mapstructure:"edge_heading" toml:"edge_heading"`
	EdgeSearch    float64       `mapstructure:"edge_search" toml:"edge_search"`

	WaitForLine time.Duration `mapstructure:"wait_for_line" toml:"wait_for_line"`
	Timeout     time.Duration `mapstructure:"timeout" toml:"timeout"`
}

// Validate ensures the thresholds are usable.
func (c Config) Validate(path string) error {
	for name, v := range map[string]float64{
		"crossing_width":        c.CrossingWidth,
		"slow_velocity":         c.SlowVelocity,
		"intersection_distance": c.IntersectionDistance,
		"stairs_distance":       c.StairsDistance,
		"step_distance":         c.StepDistance,
		"creep_distance":        c.CreepDistance,
		"turn_tolerance":        c.TurnTolerance,
		"edge_search":           c.EdgeSearch,
	} {
		if v <= 0 {
			return utils.NewConfigValidationError(path, errors.Errorf("%s must be positive, got %v", name, v))
		}
	}
	if c.BackVelocity >= 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("back_velocity must be negative, got %v", c.BackVelocity))
	}
	if c.Steps <= 0 || c.WoodAfterStep < 0 || c.WoodAfterStep > c.Steps {
		return utils.NewConfigValidationError(path,
			errors.Errorf("need 0 <= wood_after_step (%d) <= steps (%d) and steps > 0", c.WoodAfterStep, c.Steps))
	}
	if _, ok := lineedge.Known(c.Calibration); !ok {
		return utils.NewConfigValidationError(path, errors.Errorf("unknown calibration %q", c.Calibration))
	}
	for name, d := range map[string]time.Duration{
		"arm_wait":      c.ArmWait,
		"back_up_time":  c.BackUpTime,
		"wall_time":     c.WallTime,
		"wait_for_line": c.WaitForLine,
		"timeout":       c.Timeout,
	} {
		if d <= 0 {
			return utils.NewConfigValidationFieldRequiredError(path, name)
		}
	}
	return nil
}

// Profiles of the stairs mission.
var Profiles = mission.Profiles[Config]{
	Default: "default",
	Builtin: map[string]Config{
		"default": {
			CrossingWidth:        0.05,
			ForwardVelocity:      0.3,
			SlowVelocity:         0.15,
			BackVelocity:         -0.15,
			IntersectionDistance: 0.2,
			StairsDistance:       0.6,
			ArmUp:                -900,
			ArmUpSpeed:           200,
			ArmDown:              300,
			ArmSpeed:             400,
			ArmTolerance:         10,
			ArmWait:              2 * time.Second,
			Steps:                5,
			StepDistance:         0.3,
			BackUpTime:           time.Second,
			WoodAfterStep:        3,
			Calibration:          lineedge.Wood.Name,
			CreepDistance:        0.1,
			TurnHeading:          1.57,
			TurnTolerance:        0.1,
			WallDistance:         0.5,
			WallTime:             time.Second,
			EdgeHeading:          -0.2,
			EdgeSearch:           0.5,
			WaitForLine:          10 * time.Second,
			Timeout:              30 * time.Second,
		},
	},
}

// Table returns the stairs state machine.
func Table(cfg Config) mission.Table[State] {
	steps := 0
	calibration, _ := lineedge.Known(cfg.Calibration)
	crossing := mission.And(mission.EdgeValid, mission.WidthAbove(cfg.CrossingWidth))
	backedUp := mission.InStateFor(cfg.BackUpTime)
	state := func(id State, timeout time.Duration, message string, rules ...mission.Rule[State]) mission.StateSpec[State] {
		return mission.StateSpec[State]{ID: id, Rules: rules, Timeout: timeout, TimeoutMessage: message}
	}

	return mission.Table[State]{
		Name:    Name,
		Initial: WaitForLine,
		Period:  Period,
		States: []mission.StateSpec[State]{
			state(WaitForLine, cfg.WaitForLine, "Did not find Line", mission.Rule[State]{
				Name: "line found",
				When: mission.EdgeValid,
				Do: func(c *mission.Cycle) {
					c.Log("Started on a line")
					c.SetServo(servo.Arm, true, cfg.ArmUp, cfg.ArmUpSpeed)
					c.FollowEdge(mixer.RightEdge, 0)
					c.SetVelocity(cfg.ForwardVelocity)
				},
				Next: FindCrossing,
			}),
			state(FindCrossing, cfg.Timeout, "No crossing to the seesaw", mission.Rule[State]{
				Name: "crossing",
				When: crossing,
				Do: func(c *mission.Cycle) {
					c.Log("Crossed intersection to seesaw - continue until next intersection")
					c.SetVelocity(cfg.SlowVelocity)
					c.ResetPose()
				},
				Next: FollowToIntersection,
			}),
			state(FollowToIntersection, cfg.Timeout, "No stairs intersection", mission.Rule[State]{
				Name: "stairs intersection",
				When: mission.And(crossing, mission.DistanceAbove(cfg.IntersectionDistance)),
				Do: func(c *mission.Cycle) {
					c.Log("Reached Stairs Intersection")
					c.ResetPose()
					c.FollowEdge(mixer.LeftEdge, 0)
				},
				Next: ToStairs,
			}),
			state(ToStairs, cfg.Timeout, "Did not reach the stairs", mission.Rule[State]{
				Name: "at stairs",
				When: mission.DistanceAbove(cfg.StairsDistance),
				Do: func(c *mission.Cycle) {
					c.Log("Reached start of Stairs, put down servo")
					c.SetVelocity(0)
					c.SetServo(servo.Arm, true, cfg.ArmDown, cfg.ArmSpeed)
				},
				Next: LowerArm,
			}),
			state(LowerArm, cfg.ArmWait+time.Second, "Arm did not go down", mission.Rule[State]{
				Name: "arm down",
				When: mission.Or(mission.InStateFor(cfg.ArmWait), mission.ServoNear(servo.Arm, cfg.ArmDown, cfg.ArmTolerance)),
				Do: func(c *mission.Cycle) {
					c.Log("Servo Is Down, drive forward")
					c.FollowEdge(mixer.LeftEdge, 0)
					c.SetVelocity(cfg.SlowVelocity)
					c.ResetPose()
				},
				Next: StepDown,
			}),
			state(StepDown, cfg.Timeout, "Step down did not complete", mission.Rule[State]{
				Name: "stepped down",
				When: mission.DistanceAbove(cfg.StepDistance),
				Do: func(c *mission.Cycle) {
					steps++
					c.Logf("Down Step, drive Back (%d of %d)", steps, cfg.Steps)
					c.ResetPose()
					c.SetVelocity(cfg.BackVelocity)
					if steps == cfg.WoodAfterStep {
						c.Logf("change calibration to %s", calibration.Name)
						c.Calibrate(calibration)
					}
				},
				Next: BackUp,
			}),
			state(BackUp, cfg.BackUpTime+time.Second, "Back up did not complete",
				mission.Rule[State]{
					Name: "next step",
					When: mission.And(backedUp, func(mission.View) bool { return steps < cfg.Steps }),
					Do: func(c *mission.Cycle) {
						c.Log("Backed up against step")
						c.SetVelocity(0)
					},
					Next: LowerArm,
				},
				mission.Rule[State]{
					Name: "last step",
					When: backedUp,
					Do: func(c *mission.Cycle) {
						c.Log("Backed up against step")
						c.SetVelocity(0)
						c.Log("Down of staircase")
					},
					Next: Bottom,
				},
			),
			state(Bottom, cfg.Timeout, "Lost at the bottom of the stairs",
				mission.Rule[State]{
					Name: "on edge",
					When: mission.EdgeValid,
					Do:   func(c *mission.Cycle) { c.Log("on valid edge, keep Line following") },
					Next: OnEdge,
				},
				mission.Rule[State]{
					Name: "off edge",
					Do: func(c *mission.Cycle) {
						c.Log("not on valid edge, initiate turn")
						c.ResetPose()
						c.SetVelocity(cfg.SlowVelocity)
					},
					Next: Creep,
				},
			),
			state(Creep, cfg.Timeout, "Creep did not complete", mission.Rule[State]{
				Name: "crept",
				When: mission.DistanceAbove(cfg.CreepDistance),
				Do: func(c *mission.Cycle) {
					c.Log("stop and turn left")
					c.SetVelocity(0)
					c.ResetPose()
					c.SetDesiredHeading(cfg.TurnHeading)
				},
				Next: TurnLeft,
			}),
			state(TurnLeft, cfg.Timeout, "Turn did not complete", mission.Rule[State]{
				Name: "turned",
				When: mission.TurnedWithin(cfg.TurnHeading, cfg.TurnTolerance),
				Do: func(c *mission.Cycle) {
					c.Log("drive slowly backward")
					c.ResetPose()
					c.SetDesiredHeading(0)
					c.SetVelocity(cfg.BackVelocity)
				},
				Next: BackToWall,
			}),
			state(BackToWall, cfg.WallTime+time.Second, "Did not reach the wall", mission.Rule[State]{
				Name: "at wall",
				When: mission.Or(mission.DistanceAbove(cfg.WallDistance), mission.InStateFor(cfg.WallTime)),
				Do: func(c *mission.Cycle) {
					c.Log("against the wall, turning a bit right")
					c.SetVelocity(cfg.SlowVelocity)
					c.ResetPose()
					c.SetDesiredHeading(cfg.EdgeHeading)
				},
				Next: FindEdge,
			}),
			state(FindEdge, cfg.Timeout, "No edge after the stairs",
				mission.Rule[State]{Name: "edge found", When: mission.EdgeValid, Next: OnEdge},
				mission.Rule[State]{Name: "No edge after the stairs", When: mission.DistanceAbove(cfg.EdgeSearch), Outcome: mission.Lost},
			),
			state(OnEdge, cfg.Timeout, "Could not follow the edge", mission.Rule[State]{
				Name: "following",
				Do: func(c *mission.Cycle) {
					c.Log("on edge, drive slowly forward")
					c.ResetPose()
					c.FollowEdge(mixer.RightEdge, 0)
					c.SetVelocity(cfg.SlowVelocity)
				},
				Next: FinishAtIntersection,
			}),
			state(FinishAtIntersection, cfg.Timeout, "No intersection after the stairs", mission.Rule[State]{
				Name: "FINISHED: detected first intersection after staircase",
				When: crossing,
				Do: func(c *mission.Cycle) {
					c.Log("FINISHED: detected first intersection after staircase")
				},
				Outcome: mission.Finished,
			}),
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
		Description: "drive down the staircase and find the line at the bottom",
		Profiles:    Profiles.Names(),
		Constructor: New,
	})
}
