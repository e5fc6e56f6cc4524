package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.viam.com/test"

	"robobot.dev/raubase/logging"
	"robobot.dev/raubase/mission"
)

func TestRecordAndQuery(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	path := filepath.Join(t.TempDir(), FileName)
	store, err := Open(ctx, path, logger)
	test.That(t, err, test.ShouldBeNil)

	start := time.Unix(1_700_000_000, 0)
	seq, err := store.BeginSequence(ctx, start, "run")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, seq, test.ShouldNotBeEmpty)

	first, err := store.Record(ctx, Run{
		SequenceID: seq,
		Mission:    "stairs",
		Profile:    "default",
		StartedAt:  start,
		Result: mission.Result{
			Outcome: mission.Finished, FinalState: "FinishAtIntersection", Reason: "intersection",
			Cycles: 2500, Transitions: 14, Elapsed: 10 * time.Second,
		},
	})
	test.That(t, err, test.ShouldBeNil)
	_, err = store.Record(ctx, Run{
		SequenceID: seq,
		Mission:    "seesaw",
		Profile:    "default",
		StartedAt:  start.Add(11 * time.Second),
		Result: mission.Result{
			Outcome: mission.Lost, FinalState: "FindLine", Reason: "stop requested", Stopped: true,
			Cycles: 3, Elapsed: 12 * time.Millisecond,
		},
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, store.EndSequence(ctx, seq, mission.Lost), test.ShouldBeNil)
	test.That(t, store.EndSequence(ctx, "missing", mission.Lost), test.ShouldNotBeNil)

	runs, err := store.Runs(ctx, Query{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, runs, test.ShouldHaveLength, 2)
	test.That(t, runs[0].Mission, test.ShouldEqual, "seesaw")
	test.That(t, runs[0].Result.Outcome, test.ShouldEqual, mission.Lost)
	test.That(t, runs[0].Result.Stopped, test.ShouldBeTrue)
	test.That(t, runs[0].Result.Elapsed, test.ShouldEqual, 12*time.Millisecond)
	test.That(t, runs[1].ID, test.ShouldEqual, first)
	test.That(t, runs[1].StartedAt.Equal(start), test.ShouldBeTrue)
	test.That(t, runs[1].Result.Transitions, test.ShouldEqual, 14)

	runs, err = store.Runs(ctx, Query{Mission: "stairs", Limit: 5})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, runs, test.ShouldHaveLength, 1)
	test.That(t, runs[0].Result.Reason, test.ShouldEqual, "intersection")
	test.That(t, store.Close(), test.ShouldBeNil)

	// Reopening keeps the runs.
	store, err = Open(ctx, path, logger)
	test.That(t, err, test.ShouldBeNil)
	defer store.Close()
	runs, err = store.Runs(ctx, Query{Limit: 1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, runs, test.ShouldHaveLength, 1)
}

func TestOpenFails(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "missing", "dir", FileName), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}
