// Package missiontest runs missions against a simulated world in tests.
package missiontest

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.viam.com/test"

	"robobot.dev/raubase/config"
	"robobot.dev/raubase/logging"
	"robobot.dev/raubase/mission"
	"robobot.dev/raubase/missionlog"
	"robobot.dev/raubase/sim"
	"robobot.dev/raubase/utils"
)

// Start is the simulated wall clock time every run starts at.
var Start = time.Unix(1_700_000_000, 0)

// Run is a finished simulated mission run.
type Run struct {
	World  *sim.World
	Log    *missionlog.Memory
	Result mission.Result
}

// Messages returns the mission log messages in order.
func (r *Run) Messages() []string {
	lines := r.Log.Lines()
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, line.Message)
	}
	return out
}

// States returns the distinct states the run logged, in order of first appearance.
func (r *Run) States() []string {
	var out []string
	seen := map[string]bool{}
	for _, line := range r.Log.Lines() {
		if !seen[line.State] {
			seen[line.State] = true
			out = append(out, line.State)
		}
	}
	return out
}

// New builds a registered mission from the given TOML. An empty string gives the default
// profile.
func New(tb testing.TB, name, toml string) mission.Mission {
	tb.Helper()
	logger := logging.NewTestLogger(tb)
	store, err := config.FromReader("", strings.NewReader(toml), logger)
	test.That(tb, err, test.ShouldBeNil)
	reg, ok := mission.Lookup(name)
	test.That(tb, ok, test.ShouldBeTrue)
	m, err := reg.Constructor(store.Section(name), logger)
	test.That(tb, err, test.ShouldBeNil)
	return m
}

// RunWorld runs m against world on a deterministic clock.
func RunWorld(tb testing.TB, m mission.Mission, world *sim.World) *Run {
	tb.Helper()
	r, err := world.Robot()
	test.That(tb, err, test.ShouldBeNil)
	log := missionlog.NewMemory()
	env := mission.Env{
		Robot:  r,
		Clock:  sim.NewClock(world, Start),
		Log:    log,
		Logger: logging.NewTestLogger(tb),
		Stop:   utils.NewStopFlag(),
	}
	res := m.Run(context.Background(), env)
	return &Run{World: world, Log: log, Result: res}
}

// RunTrace runs m against a world scripted by trace.
func RunTrace(tb testing.TB, m mission.Mission, trace *sim.Trace) *Run {
	tb.Helper()
	world, err := sim.NewWorldFromTrace(trace, logging.NewTestLogger(tb))
	test.That(tb, err, test.ShouldBeNil)
	return RunWorld(tb, m, world)
}

// Trace parses a YAML trace.
func Trace(tb testing.TB, yaml string) *sim.Trace {
	tb.Helper()
	tr, err := sim.ParseTrace(strings.NewReader(yaml))
	test.That(tb, err, test.ShouldBeNil)
	return tr
}
