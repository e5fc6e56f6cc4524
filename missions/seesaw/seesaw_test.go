package seesaw_test

import (
	"testing"
	"time"

	"go.viam.com/test"

	"robobot.dev/raubase/components/mixer"
	"robobot.dev/raubase/mission"
	"robobot.dev/raubase/missions/seesaw"
	"robobot.dev/raubase/testutils/missiontest"
)

const course = `
name: seesaw-test
mission: seesaw
initial:
  line: {width: 0.03}
events:
  - distance: 0.5
    line: {width: 0.07}
  - distance: 0.6
    line: {width: 0.03}
  - distance: 2.0
    line: {width: 0, valid: false}
  - distance: 2.2
    line: {width: 0.03, valid: true}
`

func TestDefaultProfile(t *testing.T) {
	cfg := seesaw.Profiles.Builtin["default"]
	test.That(t, cfg.Validate("seesaw"), test.ShouldBeNil)
	test.That(t, seesaw.Table(cfg).Validate(), test.ShouldBeNil)

	cfg.IntersectionWidth = 0.01
	test.That(t, cfg.Validate("seesaw"), test.ShouldNotBeNil)
	cfg = seesaw.Profiles.Builtin["default"]
	cfg.TurnAngle = 0
	test.That(t, cfg.Validate("seesaw"), test.ShouldNotBeNil)
}

func TestCrossesSeesaw(t *testing.T) {
	m := missiontest.New(t, seesaw.Name, "")
	run := missiontest.RunTrace(t, m, missiontest.Trace(t, course))

	test.That(t, run.Result.Outcome, test.ShouldEqual, mission.Finished)
	test.That(t, run.Result.FinalState, test.ShouldEqual, "Leave")
	test.That(t, run.States(), test.ShouldResemble, []string{
		"FindLine", "FollowToIntersection", "ToEdge", "OverEdge", "ToTiltPoint", "Tilt",
		"GoDown", "RecoverLine", "TurnOntoLine", "Leave",
	})
	test.That(t, run.Messages(), test.ShouldContain, "robot on the tilting point")
	test.That(t, run.Messages(), test.ShouldContain, "back on the line")
	test.That(t, run.World.Commands(), test.ShouldContain, mixer.Command{Kind: mixer.TurnRate, Value: -0.5})

	// Waiting at the tilting point alone takes 3 s.
	var tilt, down time.Time
	for _, line := range run.Log.Lines() {
		switch line.Message {
		case "robot on the tilting point":
			tilt = line.Time
		case "going down":
			down = line.Time
		}
	}
	test.That(t, down.Sub(tilt), test.ShouldBeBetween, 3*time.Second, 3100*time.Millisecond)
}

func TestSeesawNeverTilts(t *testing.T) {
	// Without an intersection the mission gives up instead of driving forever.
	m := missiontest.New(t, seesaw.Name, `
[seesaw]
timeout = "2s"
`)
	run := missiontest.RunTrace(t, m, missiontest.Trace(t, `
name: no-intersection
mission: seesaw
initial:
  line: {width: 0.03}
`))
	test.That(t, run.Result.Outcome, test.ShouldEqual, mission.Lost)
	test.That(t, run.Result.FinalState, test.ShouldEqual, "FollowToIntersection")
	test.That(t, run.Result.Reason, test.ShouldEqual, "No intersection before the seesaw")
}
