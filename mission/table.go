package mission

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"robobot.dev/raubase/robot"
)

// View is what a predicate sees: the cycle's snapshot plus timing.
type View struct {
	robot.Snapshot
	// InState is the time since the current state was entered.
	InState time.Duration
	// Elapsed is the time since the mission started.
	Elapsed time.Duration
	// Cycle counts from 1.
	Cycle int
}

// Predicate is a rule condition.
type Predicate func(v View) bool

// Action issues commands when its rule fires.
type Action func(c *Cycle)

// Rule is one transition out of a state. A nil When always matches. With Outcome Running the
// machine moves to Next, or stays when Next is the current state; Finished and Lost end the run.
type Rule[S StateID] struct {
	Name    string
	When    Predicate
	Do      Action
	Next    S
	Outcome Outcome
}

// StateSpec is one state and its rules, evaluated in order.
type StateSpec[S StateID] struct {
	ID    S
	Rules []Rule[S]
	// Timeout ends the run Lost when the state is not left within this long, self-loop rules
	// included. It is mandatory.
	Timeout time.Duration
	// TimeoutMessage is logged when the timeout fires.
	TimeoutMessage string
}

// Table is a complete mission state machine.
type Table[S StateID] struct {
	Name    string
	Initial S
	// Period is the cycle period, DefaultPeriod when zero.
	Period time.Duration
	States []StateSpec[S]
}

// Validate rejects tables the runtime cannot run to completion: an undeclared initial state,
// duplicate states, a state without a positive timeout, or a rule pointing at an undeclared
// state.
func (t Table[S]) Validate() error {
	var err error
	if t.Name == "" {
		err = multierr.Append(err, errors.New("table has no name"))
	}
	if t.Period < 0 {
		err = multierr.Append(err, errors.Errorf("negative period %v", t.Period))
	}
	declared := make(map[S]bool, len(t.States))
	for _, st := range t.States {
		if declared[st.ID] {
			err = multierr.Append(err, errors.Errorf("state %s declared twice", st.ID))
		}
		declared[st.ID] = true
		if st.Timeout <= 0 {
			err = multierr.Append(err, errors.Errorf("state %s has no timeout", st.ID))
		}
	}
	if !declared[t.Initial] {
		err = multierr.Append(err, errors.Errorf("initial state %s is undeclared", t.Initial))
	}
	for _, st := range t.States {
		for i, r := range st.Rules {
			if r.Outcome == Running && !declared[r.Next] {
				err = multierr.Append(err, errors.Errorf("state %s rule %d (%s) goes to undeclared state %s",
					st.ID, i, r.Name, r.Next))
			}
		}
	}
	return errors.Wrapf(err, "mission %s", t.Name)
}

func (t Table[S]) period() time.Duration {
	if t.Period == 0 {
		return DefaultPeriod
	}
	return t.Period
}

func (t Table[S]) index() map[S]*StateSpec[S] {
	idx := make(map[S]*StateSpec[S], len(t.States))
	for i := range t.States {
		idx[t.States[i].ID] = &t.States[i]
	}
	return idx
}
