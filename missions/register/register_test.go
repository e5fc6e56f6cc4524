package register_test

import (
	"testing"

	"github.com/samber/lo"
	"go.viam.com/test"

	"robobot.dev/raubase/mission"
	_ "robobot.dev/raubase/missions/register"
	"robobot.dev/raubase/sim"
	"robobot.dev/raubase/testutils/missiontest"
)

func TestAllRegistered(t *testing.T) {
	names := lo.Map(mission.Registered(), func(r mission.Registration, _ int) string { return r.Name })
	test.That(t, names, test.ShouldResemble, []string{
		"approach", "axe", "crossing", "gate-close", "gate-open", "golfball", "irtest", "racetrack",
		"roundabout", "seesaw", "stairs",
	})
	for _, reg := range mission.Registered() {
		test.That(t, reg.Description, test.ShouldNotBeEmpty)
		test.That(t, reg.Profiles, test.ShouldNotBeEmpty)
	}
}

func TestBuiltinTraces(t *testing.T) {
	for _, name := range sim.BuiltinTraces() {
		t.Run(name, func(t *testing.T) {
			tr, err := sim.BuiltinTrace(name)
			test.That(t, err, test.ShouldBeNil)
			_, ok := mission.Lookup(tr.Mission)
			test.That(t, ok, test.ShouldBeTrue)
			if tr.Expect.Outcome == "" {
				t.Skipf("trace %s has no expected outcome", name)
			}

			run := missiontest.RunTrace(t, missiontest.New(t, tr.Mission, ""), tr)
			test.That(t, run.Result.Outcome.String(), test.ShouldEqual, tr.Expect.Outcome)
			if tr.Expect.State != "" {
				test.That(t, run.Result.FinalState, test.ShouldEqual, tr.Expect.State)
			}
		})
	}
}
