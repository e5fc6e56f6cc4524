package mission

import "time"

// Step is one stage of a linear maneuver: wait until Until holds, run Then and move on.
type Step[S StateID] struct {
	State S
	Until Predicate
	Then  Action
	// Timeout overrides the sequence timeout for this step when set.
	Timeout time.Duration
	// TimeoutMessage is logged when the step times out.
	TimeoutMessage string
}

// Sequence builds a table that runs steps in order and finishes after the last one.
func Sequence[S StateID](name string, period, timeout time.Duration, steps []Step[S]) Table[S] {
	t := Table[S]{Name: name, Period: period}
	if len(steps) > 0 {
		t.Initial = steps[0].State
	}
	for i, st := range steps {
		rule := Rule[S]{Name: st.State.String(), When: st.Until, Do: st.Then}
		if i == len(steps)-1 {
			rule.Outcome = Finished
		} else {
			rule.Next = steps[i+1].State
		}
		spec := StateSpec[S]{ID: st.State, Rules: []Rule[S]{rule}, Timeout: timeout, TimeoutMessage: st.TimeoutMessage}
		if st.Timeout > 0 {
			spec.Timeout = st.Timeout
		}
		if spec.TimeoutMessage == "" {
			spec.TimeoutMessage = st.State.String() + " timed out"
		}
		t.States = append(t.States, spec)
	}
	return t
}
