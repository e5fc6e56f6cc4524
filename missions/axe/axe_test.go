package axe_test

import (
	"testing"
	"time"

	"go.viam.com/test"

	"robobot.dev/raubase/mission"
	"robobot.dev/raubase/missions/axe"
	"robobot.dev/raubase/testutils/missiontest"
)

func TestDefaultProfile(t *testing.T) {
	cfg := axe.Profiles.Builtin["default"]
	test.That(t, cfg.Validate("axe"), test.ShouldBeNil)
	test.That(t, axe.Table(cfg).Validate(), test.ShouldBeNil)

	cfg.WaitTimeout = 0
	test.That(t, cfg.Validate("axe"), test.ShouldNotBeNil)
}

func TestWaitsForAxe(t *testing.T) {
	m := missiontest.New(t, axe.Name, "")
	run := missiontest.RunTrace(t, m, missiontest.Trace(t, `
name: axe-test
mission: axe
initial:
  line: {width: 0.03}
events:
  - distance: 1.0
    ranges: {0: 0.1}
  - at: 5s
    ranges: {0: 2.0}
`))
	test.That(t, run.Result.Outcome, test.ShouldEqual, mission.Finished)
	test.That(t, run.States(), test.ShouldResemble, []string{"FindLine", "FollowToAxe", "WaitForAxe", "DriveThrough"})
	test.That(t, run.Messages(), test.ShouldContain, "Waiting for axe")

	// The robot stands still until the axe clears at 5 s, then needs 10 s for 5 m.
	test.That(t, run.Result.Elapsed, test.ShouldBeGreaterThan, 14*time.Second)
	test.That(t, run.World.Odometer(), test.ShouldBeGreaterThan, 5.9)
}

func TestAxeNeverClears(t *testing.T) {
	m := missiontest.New(t, axe.Name, `
[axe]
wait_timeout = "2s"
`)
	run := missiontest.RunTrace(t, m, missiontest.Trace(t, `
name: blocked
mission: axe
initial:
  line: {width: 0.03}
  ranges: {0: 0.2}
`))
	test.That(t, run.Result.Outcome, test.ShouldEqual, mission.Lost)
	test.That(t, run.Result.FinalState, test.ShouldEqual, "WaitForAxe")
	test.That(t, run.Result.Reason, test.ShouldEqual, "Axe never cleared")
	test.That(t, run.World.Odometer(), test.ShouldBeLessThan, 0.01)
}
