package approach_test

import (
	"testing"
	"time"

	"go.viam.com/test"

	"robobot.dev/raubase/components/mixer"
	"robobot.dev/raubase/mission"
	"robobot.dev/raubase/missions/approach"
	"robobot.dev/raubase/testutils/missiontest"
)

func TestProfiles(t *testing.T) {
	test.That(t, approach.Profiles.Names(), test.ShouldResemble, []string{"mission0", "plan40"})
	for name, cfg := range approach.Profiles.Builtin {
		test.That(t, cfg.Validate(name), test.ShouldBeNil)
		test.That(t, approach.Table(cfg).Validate(), test.ShouldBeNil)
	}

	cfg := approach.Profiles.Builtin["plan40"]
	cfg.Edge = "middle"
	test.That(t, cfg.Validate("approach"), test.ShouldNotBeNil)
	cfg = approach.Profiles.Builtin["plan40"]
	cfg.CreepDistance = 0
	test.That(t, cfg.Validate("approach"), test.ShouldNotBeNil)
}

const trace = `
name: approach-test
mission: approach
initial:
  line: {width: 0.03}
events:
  - distance: 1.0
    ranges: {0: 0.005}
`

func TestReachesObstacle(t *testing.T) {
	m := missiontest.New(t, approach.Name, "")
	run := missiontest.RunTrace(t, m, missiontest.Trace(t, trace))

	test.That(t, run.Result.Outcome, test.ShouldEqual, mission.Finished)
	test.That(t, run.Result.FinalState, test.ShouldEqual, "Creep")
	test.That(t, run.Result.Transitions, test.ShouldEqual, 2)
	test.That(t, run.Messages(), test.ShouldContain, "Object Found")
	test.That(t, run.Messages(), test.ShouldContain, "Follow Line with velocity 0.60")
	test.That(t, run.World.Odometer(), test.ShouldBeGreaterThan, 1.2)

	cmds := run.World.Commands()
	test.That(t, cmds[0], test.ShouldResemble, mixer.Command{Kind: mixer.EdgeMode, Side: mixer.RightEdge, Value: 0.02})
	test.That(t, cmds[len(cmds)-2:], test.ShouldResemble, []mixer.Command{
		{Kind: mixer.Velocity, Value: 0},
		{Kind: mixer.TurnRate, Value: 0},
	})
}

func TestPlan40StopsEarlier(t *testing.T) {
	m := missiontest.New(t, approach.Name, `
[approach]
profile = "plan40"
`)
	run := missiontest.RunTrace(t, m, missiontest.Trace(t, `
name: plan40
mission: approach
initial:
  line: {width: 0.03}
events:
  - distance: 0.5
    ranges: {0: 0.15}
`))
	test.That(t, run.Result.Outcome, test.ShouldEqual, mission.Finished)
	test.That(t, run.Messages(), test.ShouldContain, "Follow Line with velocity 0.20")
}

func TestNeverFindsLine(t *testing.T) {
	m := missiontest.New(t, approach.Name, `
[approach]
find_line_timeout = "1s"
`)
	run := missiontest.RunTrace(t, m, missiontest.Trace(t, `
name: dark
mission: approach
initial:
  line: {width: 0, valid: false}
`))
	test.That(t, run.Result.Outcome, test.ShouldEqual, mission.Lost)
	test.That(t, run.Result.Reason, test.ShouldEqual, "Never found Line")
	test.That(t, run.Result.Elapsed, test.ShouldBeBetweenOrEqual, time.Second, time.Second+10*time.Millisecond)

	msgs := run.Messages()
	noLine := 0
	for _, msg := range msgs {
		if msg == "No Line" {
			noLine++
		}
	}
	test.That(t, noLine, test.ShouldEqual, 1)
}
