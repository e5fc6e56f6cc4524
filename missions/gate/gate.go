// Package gate holds the two gate maneuvers: gate-open pushes the gate open coming from the
// start side, gate-close closes it again on the way back. Both are fixed sequences of drive,
// turn and range-wait steps.
package gate

import (
	"math"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"robobot.dev/raubase/components/lineedge"
	"robobot.dev/raubase/components/mixer"
	"robobot.dev/raubase/config"
	"robobot.dev/raubase/logging"
	"robobot.dev/raubase/mission"
)

// Mission names.
const (
	OpenName  = "gate-open"
	CloseName = "gate-close"
)

// State names a step of a gate maneuver.
type State string

func (s State) String() string {
	return string(s)
}

// Config holds the gate thresholds shared by both maneuvers.
type Config struct {
	// StartCrossingWidth detects the crossing at the start of gate-open, CrossingWidth every
	// later crossing.
	StartCrossingWidth float64 `mapstructure:"start_crossing_width" toml:"start_crossing_width"`
	CrossingWidth      float64 `mapstructure:"crossing_width" toml:"crossing_width"`
	Offset             float64 `mapstructure:"offset" toml:"offset"`

	Velocity     float64 `mapstructure:"velocity" toml:"velocity"`
	SlowVelocity float64 `mapstructure:"slow_velocity" toml:"slow_velocity"`
	FastVelocity float64 `mapstructure:"fast_velocity" toml:"fast_velocity"`
	ExitVelocity float64 `mapstructure:"exit_velocity" toml:"exit_velocity"`

	// PostDistance and PushDistance are side ranges that detect the gate posts.
	PostDistance float64 `mapstructure:"post_distance" toml:"post_distance"`
	PushDistance float64 `mapstructure:"push_distance" toml:"push_distance"`
	// ClearDistance is the front range at which the way ahead is open.
	ClearDistance float64 `mapstructure:"clear_distance" toml:"clear_distance"`
	// GateDistance is the front range at which gate-close sees the gate.
	GateDistance float64 `mapstructure:"gate_distance" toml:"gate_distance"`
	// BlackAfter is the drive from the start crossing onto the black floor.
	BlackAfter float64 `mapstructure:"black_after" toml:"black_after"`

	TurnTolerance float64 `mapstructure:"turn_tolerance" toml:"turn_tolerance"`
	FastTurnRate  float64 `mapstructure:"fast_turn_rate" toml:"fast_turn_rate"`
	SlowTurnRate  float64 `mapstructure:"slow_turn_rate" toml:"slow_turn_rate"`

	WoodCalibration  string `mapstructure:"wood_calibration" toml:"wood_calibration"`
	BlackCalibration string `mapstructure:"black_calibration" toml:"black_calibration"`

	// StepTimeout bounds every step.
	StepTimeout time.Duration `mapstructure:"step_timeout" toml:"step_timeout"`
}

// Validate ensures the thresholds are usable.
func (c Config) Validate(path string) error {
	for name, v := range map[string]float64{
		"start_crossing_width": c.StartCrossingWidth,
		"crossing_width":       c.CrossingWidth,
		"velocity":             c.Velocity,
		"slow_velocity":        c.SlowVelocity,
		"fast_velocity":        c.FastVelocity,
		"exit_velocity":        c.ExitVelocity,
		"post_distance":        c.PostDistance,
		"push_distance":        c.PushDistance,
		"clear_distance":       c.ClearDistance,
		"gate_distance":        c.GateDistance,
		"black_after":          c.BlackAfter,
		"turn_tolerance":       c.TurnTolerance,
		"fast_turn_rate":       c.FastTurnRate,
		"slow_turn_rate":       c.SlowTurnRate,
	} {
		if v <= 0 {
			return utils.NewConfigValidationError(path, errors.Errorf("%s must be positive, got %v", name, v))
		}
	}
	for name, cal := range map[string]string{"wood_calibration": c.WoodCalibration, "black_calibration": c.BlackCalibration} {
		if _, ok := lineedge.Known(cal); !ok {
			return utils.NewConfigValidationError(path, errors.Errorf("%s: unknown calibration %q", name, cal))
		}
	}
	if c.StepTimeout <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "step_timeout")
	}
	return nil
}

// Profiles of both gate missions.
var Profiles = mission.Profiles[Config]{
	Default: "default",
	Builtin: map[string]Config{
		"default": {
			StartCrossingWidth: 0.06,
			CrossingWidth:      0.07,
			Velocity:           0.15,
			SlowVelocity:       0.1,
			FastVelocity:       0.6,
			ExitVelocity:       0.2,
			PostDistance:       0.2,
			PushDistance:       0.15,
			ClearDistance:      0.5,
			GateDistance:       0.3,
			BlackAfter:         0.30,
			TurnTolerance:      0.02,
			FastTurnRate:       3,
			SlowTurnRate:       1,
			WoodCalibration:    lineedge.GateWood.Name,
			BlackCalibration:   lineedge.GateBlack.Name,
			StepTimeout:        20 * time.Second,
		},
	},
}

// maneuver collects the steps of a gate maneuver.
type maneuver struct {
	cfg   Config
	steps []mission.Step[State]
}

func (m *maneuver) step(name State, until mission.Predicate, then ...mission.Action) {
	m.steps = append(m.steps, mission.Step[State]{State: name, Until: until, Then: chain(then...)})
}

func chain(actions ...mission.Action) mission.Action {
	return func(c *mission.Cycle) {
		for _, a := range actions {
			a(c)
		}
	}
}

func (m *maneuver) table(name string) mission.Table[State] {
	return mission.Sequence(name, 0, m.cfg.StepTimeout, m.steps)
}

// turned matches once the heading change since the last reset is within tolerance of heading.
func (m *maneuver) turned(heading float64) mission.Predicate {
	return mission.TurnedAbove(math.Abs(heading) - m.cfg.TurnTolerance)
}

func reset(c *mission.Cycle) { c.ResetPose() }

func stop(c *mission.Cycle) { c.SetVelocity(0) }

func velocity(v float64) mission.Action {
	return func(c *mission.Cycle) { c.SetVelocity(v) }
}

// turnTo stops, resets the pose and turns to heading.
func turnTo(heading float64) mission.Action {
	return func(c *mission.Cycle) {
		c.SetVelocity(0)
		c.ResetPose()
		c.SetDesiredHeading(heading)
	}
}

// holdAndGo resets the pose, holds the reached heading and drives at v.
func holdAndGo(v float64) mission.Action {
	return func(c *mission.Cycle) {
		c.ResetPose()
		c.SetDesiredHeading(0)
		c.SetVelocity(v)
	}
}

func (m *maneuver) followLine(c *mission.Cycle) {
	c.FollowEdge(mixer.RightEdge, m.cfg.Offset)
}

func maxTurnRate(rate float64) mission.Action {
	return func(c *mission.Cycle) { c.SetMaxTurnRate(rate) }
}

func calibrate(name string) mission.Action {
	cal, _ := lineedge.Known(name)
	return func(c *mission.Cycle) { c.Calibrate(cal) }
}

func logf(format string, args ...interface{}) mission.Action {
	return func(c *mission.Cycle) { c.Logf(format, args...) }
}

// OpenTable returns the gate-open maneuver.
func OpenTable(cfg Config) mission.Table[State] {
	m := &maneuver{cfg: cfg}
	crossing := mission.WidthAbove(cfg.CrossingWidth)

	m.step("Start", mission.Always,
		logf("Start Open Gate"), reset, calibrate(cfg.WoodCalibration), maxTurnRate(cfg.FastTurnRate),
		m.followLine, velocity(cfg.Velocity))
	m.step("FindCrossing", mission.WidthAbove(cfg.StartCrossingWidth),
		logf("Found crossing, change line sensor thresholds"), reset)
	m.step("OntoBlackFloor", mission.DistanceAbove(cfg.BlackAfter),
		logf("%.0f cm after crossing, on black floor now", cfg.BlackAfter*100), calibrate(cfg.BlackCalibration), reset)
	m.step("FindPost", mission.RangeBelow(1, cfg.PostDistance),
		logf("Found gate post"), maxTurnRate(cfg.SlowTurnRate), turnTo(-1.25))
	m.step("TurnFromPost", m.turned(-1.25), holdAndGo(cfg.Velocity))
	m.step("WaitForClear", mission.RangeAbove(0, cfg.ClearDistance), reset, velocity(cfg.Velocity))
	m.step("PastPost", mission.DistanceAbove(0.2), turnTo(-1.5))
	m.step("TurnAlongGate", m.turned(-1.5), holdAndGo(cfg.Velocity))
	m.step("AlongGate", mission.DistanceAbove(0.5), turnTo(1.6))
	m.step("TurnToGate", m.turned(1.6), holdAndGo(cfg.SlowVelocity))
	m.step("FindGate", mission.RangeBelow(1, cfg.PostDistance), turnTo(1.6))
	m.step("TurnBehindGate", m.turned(1.6), holdAndGo(cfg.Velocity))
	m.step("FindGateEdge", mission.RangeBelow(1, cfg.PushDistance), reset, velocity(cfg.FastVelocity))
	m.step("PushGate", mission.DistanceAbove(0.45), logf("Gate pushed open"), reset, stop)
	m.step("Settle", mission.InStateFor(time.Second), turnTo(-1.6))
	m.step("TurnAway", m.turned(-1.6), holdAndGo(cfg.SlowVelocity))
	m.step("DriveAway", mission.DistanceAbove(0.7), reset, velocity(-cfg.SlowVelocity))
	m.step("BackToCrossing", crossing, turnTo(-1.4))
	m.step("TurnToLine", m.turned(-1.4), holdAndGo(cfg.ExitVelocity))
	m.step("OntoLine", mission.DistanceAbove(0.2),
		maxTurnRate(cfg.FastTurnRate), velocity(cfg.ExitVelocity), m.followLine)
	m.step("FindSecondPost", mission.RangeBelow(1, cfg.PushDistance), reset)
	m.step("PastSecondPost", mission.DistanceAbove(0.4), maxTurnRate(cfg.SlowTurnRate), turnTo(-1.6))
	m.step("TurnOffLine", m.turned(-1.6), holdAndGo(cfg.SlowVelocity))
	m.step("OffLine", mission.DistanceAbove(0.4), reset, velocity(-cfg.SlowVelocity))
	m.step("BackToLine", crossing, turnTo(-1.3))
	m.step("TurnOntoLine", m.turned(-1.3),
		reset, maxTurnRate(cfg.FastTurnRate), velocity(cfg.ExitVelocity), m.followLine)
	m.step("Leave", mission.DistanceAbove(1.3), stop)
	return m.table(OpenName)
}

// CloseTable returns the gate-close maneuver.
func CloseTable(cfg Config) mission.Table[State] {
	m := &maneuver{cfg: cfg}
	crossing := mission.WidthAbove(cfg.CrossingWidth - 0.02)

	m.step("Start", mission.Always, logf("Start Close Gate"), reset, m.followLine, velocity(cfg.Velocity))
	m.step("FindCrossing", crossing, reset, m.followLine, velocity(cfg.Velocity))
	m.step("PastCrossing", mission.DistanceAbove(0.25), turnTo(1.6))
	m.step("TurnLeft", m.turned(1.6), holdAndGo(cfg.Velocity))
	m.step("ToGate", mission.DistanceAbove(0.4), turnTo(-1.6))
	m.step("TurnRight", m.turned(-1.6), holdAndGo(cfg.Velocity))
	m.step("FindGate", mission.RangeBelow(0, cfg.GateDistance), logf("Found gate"), reset, velocity(cfg.Velocity))
	m.step("PushGate", mission.DistanceAbove(0.9), reset, func(c *mission.Cycle) { c.SetDesiredHeading(-1.6) })
	m.step("TurnToLine", m.turned(-1.6), holdAndGo(2*cfg.Velocity))
	m.step("FindLine", crossing, logf("Gate closed"), stop, func(c *mission.Cycle) { c.SetDesiredHeading(0.8) })
	return m.table(CloseName)
}

func newMission(name string, build func(Config) mission.Table[State]) mission.Constructor {
	return func(section *config.Section, logger logging.Logger) (mission.Mission, error) {
		cfg, profile := mission.LoadConfig(section, Profiles, logger)
		return mission.FromTable(name, func() mission.Table[State] { return build(cfg) }).WithProfile(profile), nil
	}
}

func init() {
	mission.Register(mission.Registration{
		Name:        OpenName,
		Description: "push the gate open coming from the start side",
		Profiles:    Profiles.Names(),
		Constructor: newMission(OpenName, OpenTable),
	})
	mission.Register(mission.Registration{
		Name:        CloseName,
		Description: "close the gate on the way back",
		Profiles:    Profiles.Names(),
		Constructor: newMission(CloseName, CloseTable),
	})
}
