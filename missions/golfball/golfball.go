// Package golfball drives to the golf ball area, centers the ball in the camera image with a
// deadband controller, creeps onto it, lowers the arm and turns away with the ball.
package golfball

import (
	"fmt"
	"image"
	"math"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"robobot.dev/raubase/components/mixer"
	"robobot.dev/raubase/components/servo"
	"robobot.dev/raubase/config"
	"robobot.dev/raubase/logging"
	"robobot.dev/raubase/mission"
)

// Name is the registered mission name.
const Name = "golfball"

// Period is the golfball cycle period.
const Period = 2 * time.Millisecond

// State is a state of the golfball mission.
type State int

// States of the golfball mission.
const (
	FindLine State = iota
	FollowLine
	TurnToBall
	Align
	Creep
	LowerArm
	FinalTurn
)

var stateNames = map[State]string{
	FindLine:   "FindLine",
	FollowLine: "FollowLine",
	TurnToBall: "TurnToBall",
	Align:      "Align",
	Creep:      "Creep",
	LowerArm:   "LowerArm",
	FinalTurn:  "FinalTurn",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Config holds the golf ball settings. Image coordinates are pixels.
type Config struct {
	Edge           string  `mapstructure:"edge" toml:"edge"`
	Offset         float64 `mapstructure:"offset" toml:"offset"`
	LineWidth      float64 `mapstructure:"line_width" toml:"line_width"`
	Velocity       float64 `mapstructure:"velocity" toml:"velocity"`
	FollowDistance float64 `mapstructure:"follow_distance" toml:"follow_distance"`
	// TurnAngle is turned towards the ball area and again with the ball.
	TurnAngle     float64 `mapstructure:"turn_angle" toml:"turn_angle"`
	TurnTolerance float64 `mapstructure:"turn_tolerance" toml:"turn_tolerance"`

	DeadbandX int     `mapstructure:"deadband_x" toml:"deadband_x"`
	DeadbandY int     `mapstructure:"deadband_y" toml:"deadband_y"`
	KX        float64 `mapstructure:"k_x" toml:"k_x"`
	KY        float64 `mapstructure:"k_y" toml:"k_y"`
	TargetX   int     `mapstructure:"target_x" toml:"target_x"`
	TargetY   int     `mapstructure:"target_y" toml:"target_y"`
	// AlignTimeout bounds the whole alignment.
	AlignTimeout time.Duration `mapstructure:"align_timeout" toml:"align_timeout"`

	CreepVelocity float64 `mapstructure:"creep_velocity" toml:"creep_velocity"`
	DistY         float64 `mapstructure:"dist_y" toml:"dist_y"`
	ServoDown     int     `mapstructure:"servo_down" toml:"servo_down"`
	ServoVelocity int     `mapstructure:"servo_velocity" toml:"servo_velocity"`
	ServoError    int     `mapstructure:"servo_error" toml:"servo_error"`

	// Timeout bounds the drive and turn states.
	Timeout time.Duration `mapstructure:"timeout" toml:"timeout"`
}

// Validate ensures the settings are usable.
func (c Config) Validate(path string) error {
	if _, err := mixer.ParseSide(c.Edge); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	for name, v := range map[string]float64{
		"line_width":      c.LineWidth,
		"velocity":        c.Velocity,
		"follow_distance": c.FollowDistance,
		"turn_tolerance":  c.TurnTolerance,
		"k_x":             c.KX,
		"k_y":             c.KY,
		"creep_velocity":  c.CreepVelocity,
		"dist_y":          c.DistY,
	} {
		if v <= 0 {
			return utils.NewConfigValidationError(path, errors.Errorf("%s must be positive, got %v", name, v))
		}
	}
	if c.DeadbandX <= 0 || c.DeadbandY <= 0 || c.ServoError <= 0 {
		return utils.NewConfigValidationError(path, errors.New("deadband_x, deadband_y and servo_error must be positive"))
	}
	if c.ServoVelocity <= 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("servo_velocity must be positive, got %d", c.ServoVelocity))
	}
	if math.Abs(c.TurnAngle) <= c.TurnTolerance {
		return utils.NewConfigValidationError(path,
			errors.Errorf("turn_angle %v must exceed turn_tolerance %v", c.TurnAngle, c.TurnTolerance))
	}
	if c.AlignTimeout <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "align_timeout")
	}
	if c.Timeout <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "timeout")
	}
	return nil
}

// Profiles of the golfball mission.
var Profiles = mission.Profiles[Config]{
	Default: "default",
	Builtin: map[string]Config{
		"default": {
			Edge:           "left",
			LineWidth:      0.02,
			Velocity:       0.4,
			FollowDistance: 1,
			TurnAngle:      math.Pi / 2,
			TurnTolerance:  0.1,
			DeadbandX:      10,
			DeadbandY:      10,
			KX:             0.3,
			KY:             0.05,
			TargetX:        320,
			TargetY:        400,
			AlignTimeout:   20 * time.Second,
			CreepVelocity:  0.1,
			DistY:          0.1,
			ServoDown:      300,
			ServoVelocity:  400,
			ServoError:     10,
			Timeout:        10 * time.Second,
		},
	},
}

func sign(v int) float64 {
	if v > 0 {
		return 1
	}
	return -1
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Table returns the golfball state machine.
func Table(cfg Config) mission.Table[State] {
	side, _ := mixer.ParseSide(cfg.Edge)
	onLine := mission.And(mission.EdgeValid, mission.WidthAbove(cfg.LineWidth))
	turned := mission.TurnedWithin(cfg.TurnAngle, cfg.TurnTolerance)

	var (
		ball       image.Point
		seen       bool
		aligned    bool
		correcting string
	)
	correct := func(c *mission.Cycle, kind string) {
		if correcting != kind {
			c.Logf("Correcting %s-offset", kind)
			correcting = kind
		}
	}

	return mission.Table[State]{
		Name:    Name,
		Period:  Period,
		Initial: FindLine,
		States: []mission.StateSpec[State]{
			{
				ID: FindLine,
				Rules: []mission.Rule[State]{
					{
						Name: "on line",
						When: onLine,
						Do: func(c *mission.Cycle) {
							c.ResetPose()
							c.Log("Started on Line")
							c.Logf("Follow Line with velocity %.2f", cfg.Velocity)
							c.FollowEdge(side, cfg.Offset)
							c.SetVelocity(cfg.Velocity)
						},
						Next: FollowLine,
					},
					{Name: "No line at the start", Outcome: mission.Lost},
				},
				Timeout: cfg.Timeout,
			},
			{
				ID: FollowLine,
				Rules: []mission.Rule[State]{
					{Name: "Lost the line", When: mission.Not(onLine), Outcome: mission.Lost},
					{
						Name: "driven far enough",
						When: mission.DistanceAbove(cfg.FollowDistance),
						Do: func(c *mission.Cycle) {
							c.Log("Driven far enough")
							c.SetVelocity(0)
							c.ResetPose()
							c.SetDesiredHeading(cfg.TurnAngle)
						},
						Next: TurnToBall,
					},
				},
				Timeout:        cfg.Timeout,
				TimeoutMessage: "Did not reach the golf ball area",
			},
			{
				ID: TurnToBall,
				Rules: []mission.Rule[State]{{
					Name: "turned",
					When: turned,
					Do: func(c *mission.Cycle) {
						c.ResetPose()
						c.SetTurnRate(0)
						c.Log("Finished Turn")
					},
					Next: Align,
				}},
				Timeout:        cfg.Timeout,
				TimeoutMessage: "Did not turn to the golf ball",
			},
			{
				ID: Align,
				Rules: []mission.Rule[State]{
					{
						Name: "aligned",
						When: func(mission.View) bool { return aligned },
						Do: func(c *mission.Cycle) {
							c.Logf("Golfball aligned at X = %d, Y = %d", ball.X, ball.Y)
							c.ResetPose()
							c.SetVelocity(cfg.CreepVelocity)
							c.Log("Drive Forward Open-Loop")
						},
						Next: Creep,
					},
					{
						Name: "track ball",
						Do: func(c *mission.Cycle) {
							center, found := c.FindBall()
							if !found {
								c.Lose("No Golfball Found")
								return
							}
							if !seen {
								c.Logf("Golfball found at X = %d, Y = %d", center.X, center.Y)
								seen = true
							}
							ball = center
							ex, ey := cfg.TargetX-ball.X, cfg.TargetY-ball.Y
							switch {
							case abs(ex) > cfg.DeadbandX:
								c.SetVelocity(0)
								c.SetTurnRate(cfg.KX * sign(ex))
								correct(c, "x")
							case abs(ey) > cfg.DeadbandY:
								c.SetTurnRate(0)
								c.SetVelocity(cfg.KY * sign(ey))
								correct(c, "y")
							default:
								c.SetTurnRate(0)
								c.SetVelocity(0)
								aligned = true
							}
						},
						Next: Align,
					},
				},
				Timeout:        cfg.AlignTimeout,
				TimeoutMessage: "Golfball alignment took too long",
			},
			{
				ID: Creep,
				Rules: []mission.Rule[State]{{
					Name: "over the ball",
					When: mission.DistanceAbove(cfg.DistY),
					Do: func(c *mission.Cycle) {
						c.SetVelocity(0)
						c.SetServo(servo.Arm, true, cfg.ServoDown, cfg.ServoVelocity)
						c.Log("Set Servo down")
					},
					Next: LowerArm,
				}},
				Timeout:        cfg.Timeout,
				TimeoutMessage: "Did not reach the golf ball",
			},
			{
				ID: LowerArm,
				Rules: []mission.Rule[State]{{
					Name: "arm down",
					When: mission.ServoNear(servo.Arm, cfg.ServoDown, cfg.ServoError),
					Do: func(c *mission.Cycle) {
						c.ResetPose()
						c.SetDesiredHeading(cfg.TurnAngle)
						c.Log("Servo reached down position")
						c.Log("Start Turning 90 deg")
					},
					Next: FinalTurn,
				}},
				Timeout:        cfg.Timeout,
				TimeoutMessage: "Servo never reached down position",
			},
			{
				ID: FinalTurn,
				Rules: []mission.Rule[State]{{
					Name: "turned with the ball",
					When: turned,
					Do: func(c *mission.Cycle) {
						c.SetTurnRate(0)
						c.Log("Finished Turn, finish Program")
					},
					Outcome: mission.Finished,
				}},
				Timeout:        cfg.Timeout,
				TimeoutMessage: "Did not turn with the golf ball",
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
		Description: "center the golf ball in the camera, pick it up with the arm and turn away",
		Profiles:    Profiles.Names(),
		Constructor: New,
	})
}
