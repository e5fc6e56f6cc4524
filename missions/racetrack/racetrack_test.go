package racetrack_test

import (
	"testing"
	"time"

	"go.viam.com/test"

	"robobot.dev/raubase/components/mixer"
	"robobot.dev/raubase/mission"
	"robobot.dev/raubase/missions/racetrack"
	"robobot.dev/raubase/testutils/missiontest"
)

func TestDefaultProfile(t *testing.T) {
	cfg := racetrack.Profiles.Builtin["default"]
	test.That(t, cfg.Validate("racetrack"), test.ShouldBeNil)
	test.That(t, racetrack.Table(cfg).Validate(), test.ShouldBeNil)

	// 20 m at 0.7 m/s does not fit in 20 s.
	cfg.Timeout = 20 * time.Second
	test.That(t, cfg.Validate("racetrack"), test.ShouldNotBeNil)
	cfg = racetrack.Profiles.Builtin["default"]
	cfg.Length = 0.05
	test.That(t, cfg.Validate("racetrack"), test.ShouldNotBeNil)
}

func TestShortRace(t *testing.T) {
	m := missiontest.New(t, racetrack.Name, `
[racetrack]
length = 2.0
`)
	run := missiontest.RunTrace(t, m, missiontest.Trace(t, `
name: short
mission: racetrack
initial:
  line: {width: 0.03}
`))
	test.That(t, run.Result.Outcome, test.ShouldEqual, mission.Finished)
	test.That(t, run.Result.FinalState, test.ShouldEqual, "Race")
	test.That(t, run.States(), test.ShouldResemble, []string{"FindLine", "Launch", "Race"})
	test.That(t, run.Messages(), test.ShouldContain, "Reached finish line")
	test.That(t, run.World.Odometer(), test.ShouldBeGreaterThan, 2.0)

	var edges []mixer.Command
	for _, cmd := range run.World.Commands() {
		if cmd.Kind == mixer.EdgeMode {
			edges = append(edges, cmd)
		}
	}
	test.That(t, edges, test.ShouldResemble, []mixer.Command{
		{Kind: mixer.EdgeMode, Side: mixer.RightEdge, Value: 0},
		{Kind: mixer.EdgeMode, Side: mixer.RightEdge, Value: -0.04},
	})
}

func TestInvalidConfigRacesDefault(t *testing.T) {
	// 2 m at 0.5 m/s does not fit in 3 s, so the built in profile races instead.
	m := missiontest.New(t, racetrack.Name, `
[racetrack]
length = 2.0
timeout = "3s"
velocity = 0.5
`)
	run := missiontest.RunTrace(t, m, missiontest.Trace(t, `
name: full
mission: racetrack
initial:
  line: {width: 0.03}
`))
	test.That(t, run.Result.Outcome, test.ShouldEqual, mission.Finished)
	test.That(t, run.World.Commands(), test.ShouldContain, mixer.Command{Kind: mixer.Velocity, Value: 0.7})
	test.That(t, run.World.Odometer(), test.ShouldBeGreaterThan, 20.0)
	test.That(t, run.Result.Elapsed, test.ShouldBeBetween, 28*time.Second, 40*time.Second)
}
