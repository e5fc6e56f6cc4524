// Package lineup holds the line settings every line following mission shares and the state
// that puts the robot on the line at the start of a mission.
package lineup

import (
	"time"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"robobot.dev/raubase/components/mixer"
	"robobot.dev/raubase/mission"
)

// Config is embedded with `mapstructure:",squash"` in mission configs.
type Config struct {
	// Edge is the followed line edge, left or right.
	Edge string `mapstructure:"edge" toml:"edge"`
	// Offset is the lateral offset from the edge in meters.
	Offset float64 `mapstructure:"offset" toml:"offset"`
	// LineWidth is the width above which the robot is on the line.
	LineWidth float64 `mapstructure:"line_width" toml:"line_width"`
	// LineGone is the width below which the line is lost.
	LineGone float64 `mapstructure:"line_gone" toml:"line_gone"`
	// SearchVelocity and SearchTurnRate move the robot while no line is seen.
	SearchVelocity float64 `mapstructure:"search_velocity" toml:"search_velocity"`
	SearchTurnRate float64 `mapstructure:"search_turn_rate" toml:"search_turn_rate"`
	// FindLineTimeout ends the mission when no line is found.
	FindLineTimeout time.Duration `mapstructure:"find_line_timeout" toml:"find_line_timeout"`
}

// Default returns the settings most missions start from.
func Default(edge string, offset float64) Config {
	return Config{
		Edge:            edge,
		Offset:          offset,
		LineWidth:       0.02,
		LineGone:        0.01,
		SearchVelocity:  0,
		SearchTurnRate:  0.2,
		FindLineTimeout: 10 * time.Second,
	}
}

// Validate ensures the line settings are usable.
func (c Config) Validate(path string) error {
	if _, err := mixer.ParseSide(c.Edge); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	if c.LineWidth <= 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("line_width must be positive, got %v", c.LineWidth))
	}
	if c.LineGone < 0 || c.LineGone > c.LineWidth {
		return utils.NewConfigValidationError(path,
			errors.Errorf("line_gone must be in [0, line_width=%v], got %v", c.LineWidth, c.LineGone))
	}
	if c.FindLineTimeout <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "find_line_timeout")
	}
	return nil
}

// Side returns the followed edge. Validate has checked it.
func (c Config) Side() mixer.Side {
	side, _ := mixer.ParseSide(c.Edge)
	return side
}

// FollowEdge returns an action following the configured edge.
func (c Config) FollowEdge() mission.Action {
	return func(cyc *mission.Cycle) {
		cyc.FollowEdge(c.Side(), c.Offset)
	}
}

// FindLine is the starting state of a line following mission. On a line wider than LineWidth the
// pose is reset, the robot starts following the configured edge and onLine runs before the
// move to next. With no line the robot searches in place, or slowly in a circle, until
// FindLineTimeout.
func FindLine[S mission.StateID](c Config, id, next S, onLine mission.Action) mission.StateSpec[S] {
	searching := false
	return mission.StateSpec[S]{
		ID: id,
		Rules: []mission.Rule[S]{
			{
				Name: "on line",
				When: mission.WidthAbove(c.LineWidth),
				Do: func(cyc *mission.Cycle) {
					cyc.ResetPose()
					cyc.Log("Started on Line")
					cyc.FollowEdge(c.Side(), c.Offset)
					if onLine != nil {
						onLine(cyc)
					}
				},
				Next: next,
			},
			{
				Name: "no line",
				When: mission.WidthBelow(c.LineGone),
				Do: func(cyc *mission.Cycle) {
					cyc.ResetPose()
					if !searching {
						cyc.Log("No Line")
						searching = true
					}
					cyc.SetVelocity(c.SearchVelocity)
					cyc.SetTurnRate(c.SearchTurnRate)
				},
				Next: id,
			},
		},
		Timeout:        c.FindLineTimeout,
		TimeoutMessage: "Never found Line",
	}
}
