package stairs_test

import (
	"strings"
	"testing"
	"time"

	"go.viam.com/test"

	"robobot.dev/raubase/components/mixer"
	"robobot.dev/raubase/mission"
	"robobot.dev/raubase/missions/stairs"
	"robobot.dev/raubase/testutils/missiontest"
)

func TestDefaultProfile(t *testing.T) {
	cfg := stairs.Profiles.Builtin["default"]
	test.That(t, cfg.Validate("stairs"), test.ShouldBeNil)
	test.That(t, stairs.Table(cfg).Validate(), test.ShouldBeNil)

	bad := cfg
	bad.Calibration = "carpet"
	test.That(t, bad.Validate("stairs"), test.ShouldNotBeNil)
	bad = cfg
	bad.BackVelocity = 0.1
	test.That(t, bad.Validate("stairs"), test.ShouldNotBeNil)
	bad = cfg
	bad.WoodAfterStep = 6
	test.That(t, bad.Validate("stairs"), test.ShouldNotBeNil)
}

func TestDidNotFindLine(t *testing.T) {
	m := missiontest.New(t, stairs.Name, "")
	run := missiontest.RunTrace(t, m, missiontest.Trace(t, `
name: dark
mission: stairs
initial:
  line: {valid: false, width: 0}
`))
	test.That(t, run.Result.Outcome, test.ShouldEqual, mission.Lost)
	test.That(t, run.Result.Reason, test.ShouldEqual, "Did not find Line")
	test.That(t, run.Result.Elapsed, test.ShouldBeBetweenOrEqual, 10*time.Second, 10*time.Second+stairs.Period)

	lines := run.Log.Lines()
	test.That(t, lines[len(lines)-2].Message, test.ShouldEqual, "Did not find Line")
	test.That(t, lines[len(lines)-2].Time.Sub(missiontest.Start), test.ShouldBeGreaterThan, 10*time.Second)

	cmds := run.World.Commands()
	test.That(t, cmds, test.ShouldResemble, []mixer.Command{
		{Kind: mixer.Velocity, Value: 0},
		{Kind: mixer.TurnRate, Value: 0},
	})
}

func TestDownTheStairs(t *testing.T) {
	m := missiontest.New(t, stairs.Name, `
[stairs]
edge_search = 2.0
`)
	run := missiontest.RunTrace(t, m, missiontest.Trace(t, `
name: stairs-test
mission: stairs
initial:
  line: {width: 0.03}
events:
  - distance: 0.5
    line: {width: 0.07}
  - distance: 0.6
    line: {width: 0.03}
  - distance: 1.0
    line: {width: 0.07}
  - distance: 1.1
    line: {width: 0.03}
  - distance: 2.0
    line: {width: 0, valid: false}
  - at: 31s
    line: {width: 0.07, valid: true}
`))
	test.That(t, run.Result.Outcome, test.ShouldEqual, mission.Finished)
	test.That(t, run.Result.FinalState, test.ShouldEqual, "FinishAtIntersection")
	test.That(t, run.States(), test.ShouldResemble, []string{
		"WaitForLine", "FindCrossing", "FollowToIntersection", "ToStairs", "LowerArm", "StepDown", "BackUp",
		"Bottom", "Creep", "TurnLeft", "BackToWall", "FindEdge", "OnEdge", "FinishAtIntersection",
	})

	steps := 0
	for _, msg := range run.Messages() {
		if strings.HasPrefix(msg, "Down Step, drive Back") {
			steps++
		}
	}
	test.That(t, steps, test.ShouldEqual, 5)
	test.That(t, run.Messages(), test.ShouldContain, "Down Step, drive Back (3 of 5)")
	test.That(t, run.Messages(), test.ShouldContain, "change calibration to wood")
	test.That(t, run.World.Calibrations(), test.ShouldResemble, []string{"wood"})
	test.That(t, run.Result.Elapsed, test.ShouldBeGreaterThan, 31*time.Second)
}
