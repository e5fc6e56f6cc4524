package crossing_test

import (
	"testing"

	"go.viam.com/test"

	"robobot.dev/raubase/components/mixer"
	"robobot.dev/raubase/mission"
	"robobot.dev/raubase/missions/crossing"
	"robobot.dev/raubase/testutils/missiontest"
)

func TestDefaultProfile(t *testing.T) {
	cfg := crossing.Profiles.Builtin["default"]
	test.That(t, cfg.Validate("crossing"), test.ShouldBeNil)
	test.That(t, crossing.Table(cfg).Validate(), test.ShouldBeNil)

	bad := cfg
	bad.BackVelocity = 0.15
	test.That(t, bad.Validate("crossing"), test.ShouldNotBeNil)
	bad = cfg
	bad.MinCrossingWidth = 0.01
	test.That(t, bad.Validate("crossing"), test.ShouldNotBeNil)
	bad = cfg
	bad.CrossingWidth = 0.04
	test.That(t, bad.Validate("crossing"), test.ShouldNotBeNil)
}

func TestFindsCrossingOnTheWayBack(t *testing.T) {
	// The crossing is too narrow on the way out and is found after turning around.
	m := missiontest.New(t, crossing.Name, `
[crossing]
miss_distance = 1.0
`)
	run := missiontest.RunTrace(t, m, missiontest.Trace(t, `
name: narrow-crossing
mission: crossing
initial:
  line: {width: 0.03}
events:
  - at: 2s
    line: {width: 0.087}
  - at: 2400ms
    line: {width: 0.03}
  - at: 6s
    line: {width: 0.087}
`))
	test.That(t, run.Result.Outcome, test.ShouldEqual, mission.Finished)
	test.That(t, run.Result.FinalState, test.ShouldEqual, "FindCrossing")
	test.That(t, run.Messages(), test.ShouldContain, "Crossing missed, lowering threshold to 0.085")
	test.That(t, run.Messages(), test.ShouldContain, "First split found, width 0.087")
	test.That(t, run.World.Commands(), test.ShouldContain, mixer.Command{Kind: mixer.Velocity, Value: -0.15})
	test.That(t, run.World.Commands()[0], test.ShouldResemble,
		mixer.Command{Kind: mixer.EdgeMode, Side: mixer.LeftEdge, Value: 0.03})
}

func TestThresholdFloor(t *testing.T) {
	m := missiontest.New(t, crossing.Name, `
[crossing]
miss_distance = 0.2
min_crossing_width = 0.088
`)
	run := missiontest.RunTrace(t, m, missiontest.Trace(t, `
name: floor
mission: crossing
initial:
  line: {width: 0.03}
events:
  - at: 3s
    line: {width: 0.0885}
`))
	test.That(t, run.Result.Outcome, test.ShouldEqual, mission.Finished)
	msgs := run.Messages()
	test.That(t, msgs, test.ShouldContain, "Crossing missed, lowering threshold to 0.088")
	test.That(t, msgs, test.ShouldNotContain, "Crossing missed, lowering threshold to 0.083")
}
