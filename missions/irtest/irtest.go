// Package irtest records both distance sensors for a while and logs a summary, for checking
// the sensors and their calibration on the real robot.
package irtest

import (
	"strconv"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"robobot.dev/raubase/config"
	"robobot.dev/raubase/control"
	"robobot.dev/raubase/logging"
	"robobot.dev/raubase/mission"
)

// Name is the registered mission name.
const Name = "irtest"

// Header is the first line of the sample table in the mission log.
const Header = "Time stamp, IR dist 0, IR dist 1"

// State is a state of the irtest mission.
type State int

// Sample is the only state.
const Sample State = 0

func (s State) String() string {
	return "Sample"
}

// Config holds the sampling settings.
type Config struct {
	Duration time.Duration `mapstructure:"duration" toml:"duration"`
	Interval time.Duration `mapstructure:"interval" toml:"interval"`
	// Sensors lists the range sensors sampled.
	Sensors []int `mapstructure:"sensors" toml:"sensors"`
	// Window is the number of samples averaged into the settled reading.
	Window int `mapstructure:"window" toml:"window"`
}

// Validate ensures the sampling settings are usable.
func (c Config) Validate(path string) error {
	if c.Duration <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "duration")
	}
	if c.Interval <= 0 || c.Interval > c.Duration {
		return utils.NewConfigValidationError(path,
			errors.Errorf("interval must be in (0, duration=%v], got %v", c.Duration, c.Interval))
	}
	if len(c.Sensors) == 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "sensors")
	}
	if c.Window <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "window")
	}
	return nil
}

// Profiles of the irtest mission.
var Profiles = mission.Profiles[Config]{
	Default: "default",
	Builtin: map[string]Config{
		"default": {Duration: 10 * time.Second, Interval: 100 * time.Millisecond, Sensors: []int{0, 1}, Window: 5},
	},
}

// Summary describes the samples of one sensor.
type Summary struct {
	Sensor  int
	Samples int
	Mean    float64
	Median  float64
	Stddev  float64
	Min     float64
	Max     float64
}

// Summarize computes the summary of one sensor's samples.
func Summarize(sensor int, samples []float64) (Summary, error) {
	data := stats.Float64Data(samples)
	s := Summary{Sensor: sensor, Samples: len(samples)}
	var err, errs error
	s.Mean, err = data.Mean()
	errs = multierr.Append(errs, err)
	s.Median, err = data.Median()
	errs = multierr.Append(errs, err)
	s.Stddev, err = data.StandardDeviation()
	errs = multierr.Append(errs, err)
	s.Min, err = data.Min()
	errs = multierr.Append(errs, err)
	s.Max, err = data.Max()
	errs = multierr.Append(errs, err)
	return s, errors.Wrapf(errs, "sensor %d", sensor)
}

// Table returns the irtest state machine.
func Table(cfg Config, logger logging.Logger) mission.Table[State] {
	samples := make(map[int][]float64, len(cfg.Sensors))
	settled := make(map[int]control.Block, len(cfg.Sensors))
	for _, i := range cfg.Sensors {
		b, err := control.NewBlock(control.MovingAverageConfig("ir"+strconv.Itoa(i), cfg.Window), logger)
		if err != nil {
			logger.Warnw("no settled reading", "sensor", i, "error", err)
			continue
		}
		settled[i] = b
	}
	started := false
	return mission.Table[State]{
		Name:    Name,
		Period:  cfg.Interval,
		Initial: Sample,
		States: []mission.StateSpec[State]{{
			ID: Sample,
			Rules: []mission.Rule[State]{
				{
					Name: "sampled",
					When: mission.InStateFor(cfg.Duration),
					Do: func(c *mission.Cycle) {
						for _, i := range cfg.Sensors {
							s, err := Summarize(i, samples[i])
							if err != nil {
								c.Logf("IR dist %d: no summary: %v", i, err)
								continue
							}
							c.Logf("IR dist %d: %d samples, mean %.3f, median %.3f, stddev %.4f, min %.3f, max %.3f",
								i, s.Samples, s.Mean, s.Median, s.Stddev, s.Min, s.Max)
							if b, ok := settled[i]; ok {
								c.Logf("IR dist %d: settled %.3f over the last %d samples", i, b.Output(c.Context()), cfg.Window)
							}
						}
					},
					Outcome: mission.Finished,
				},
				{
					Name: "sample",
					Do: func(c *mission.Cycle) {
						if !started {
							c.Log(Header)
							started = true
						}
						v := c.View()
						line := ""
						for _, i := range cfg.Sensors {
							r, ok := v.Range(i)
							if !ok {
								c.Lose(errors.Errorf("no range sensor %d", i).Error())
								return
							}
							samples[i] = append(samples[i], r)
							if b, ok := settled[i]; ok {
								b.Next(c.Context(), r, cfg.Interval)
							}
							line += " " + strconv.FormatFloat(r, 'f', 3, 64)
						}
						c.Logf("%.3f%s", v.InState.Seconds(), line)
					},
					Next: Sample,
				},
			},
			Timeout: cfg.Duration + time.Second,
		}},
	}
}

// New builds the mission from its config section.
func New(section *config.Section, logger logging.Logger) (mission.Mission, error) {
	cfg, profile := mission.LoadConfig(section, Profiles, logger)
	return mission.FromTable(Name, func() mission.Table[State] { return Table(cfg, logger) }).WithProfile(profile), nil
}

func init() {
	mission.Register(mission.Registration{
		Name:        Name,
		Description: "log the distance sensors for a while and summarize them",
		Profiles:    Profiles.Names(),
		Constructor: New,
	})
}
