package mission

import (
	"context"
	"fmt"

	"robobot.dev/raubase/logging"
)

// Run executes table until it finishes, gets lost, or is stopped. It never panics on a malformed
// table: an invalid table or an unknown state ends the run Lost. Whenever the outcome is Lost,
// including a stop, the mixer is commanded to zero velocity and then zero turn rate before
// Run returns.
func Run[S StateID](ctx context.Context, env Env, table Table[S]) Result {
	if env.Logger == nil {
		env.Logger = logging.NewBlankLogger("")
	}
	if env.Robot == nil || env.Clock == nil {
		env.Logger.Errorw("mission environment has no robot or clock", "mission", table.Name)
		return Result{Mission: table.Name, Outcome: Lost, FinalState: table.Initial.String(), Reason: "no robot or clock"}
	}
	r := &runner[S]{
		ctx:     ctx,
		env:     &env,
		table:   table,
		mission: NewTimer(env.Clock),
		inState: NewTimer(env.Clock),
		state:   table.Initial,
		result:  Result{Mission: table.Name},
	}
	r.env.record(r.state.String(), table.Name+" started")

	if err := table.Validate(); err != nil {
		r.lose(err.Error())
	} else {
		r.loop()
	}
	return r.finish()
}

type runner[S StateID] struct {
	ctx     context.Context
	env     *Env
	table   Table[S]
	mission *Timer
	inState *Timer
	state   S
	outcome Outcome
	result  Result
}

func (r *runner[S]) loop() {
	states := r.table.index()
	period := r.table.period()
	for {
		if r.ctx.Err() != nil || (r.env.Stop != nil && r.env.Stop.Stopped()) {
			r.result.Stopped = true
			r.lose("stop requested")
			return
		}
		r.result.Cycles++

		// Validate rejects tables naming undeclared states, so the index holds every state the
		// run can reach.
		spec, ok := states[r.state]
		if !ok {
			r.lose(fmt.Sprintf("Unknown state %s", r.state))
			return
		}
		snap, err := r.env.Robot.Snapshot(r.ctx, r.env.Clock.Now())
		if err != nil {
			r.lose(err.Error())
			return
		}
		view := View{
			Snapshot: snap,
			InState:  snap.Time.Sub(r.inState.Mark()),
			Elapsed:  snap.Time.Sub(r.mission.Mark()),
			Cycle:    r.result.Cycles,
		}

		before := r.state
		r.step(spec, view)
		if r.outcome == Running && r.state == before && view.InState > spec.Timeout {
			msg := spec.TimeoutMessage
			if msg == "" {
				msg = fmt.Sprintf("%s timed out after %v", r.state, spec.Timeout)
			}
			r.lose(msg)
		}
		if r.outcome != Running {
			return
		}
		r.env.Clock.Sleep(period)
	}
}

// step runs the first matching rule of the current state.
func (r *runner[S]) step(spec *StateSpec[S], view View) {
	for _, rule := range spec.Rules {
		if rule.When != nil && !rule.When(view) {
			continue
		}
		c := &Cycle{ctx: r.ctx, env: r.env, view: view, state: r.state.String()}
		if rule.Do != nil {
			rule.Do(c)
		}
		switch {
		case c.err != nil:
			r.lose(c.err.Error())
		case c.lost != "":
			r.lose(c.lost)
		case rule.Outcome == Finished:
			r.outcome = Finished
			r.result.Reason = rule.Name
		case rule.Outcome == Lost:
			reason := rule.Name
			if reason == "" {
				reason = fmt.Sprintf("lost in state %s", r.state)
			}
			r.lose(reason)
		case rule.Next != r.state:
			r.transition(rule.Next)
		}
		return
	}
}

func (r *runner[S]) transition(next S) {
	r.env.record(r.state.String(), fmt.Sprintf("State change from %s to %s", r.state, next))
	r.env.Logger.Debugw("state change", "mission", r.table.Name, "from", r.state.String(), "to", next.String())
	r.state = next
	r.result.Transitions++
	r.inState.Reset()
}

func (r *runner[S]) lose(reason string) {
	r.outcome = Lost
	r.result.Reason = reason
	r.env.record(r.state.String(), reason)
}

func (r *runner[S]) finish() Result {
	r.result.Outcome = r.outcome
	r.result.FinalState = r.state.String()
	r.result.Elapsed = r.mission.Elapsed()

	if r.outcome == Lost {
		r.env.record(r.state.String(), r.table.Name+" got lost - stopping")
		// The fail-safe stop must go out even when the run was cancelled.
		stopCtx := context.WithoutCancel(r.ctx)
		if err := r.env.Robot.Mixer.SetVelocity(stopCtx, 0); err != nil {
			r.env.Logger.Errorw("fail-safe stop: set velocity failed", "mission", r.table.Name, "error", err)
		}
		if err := r.env.Robot.Mixer.SetTurnRate(stopCtx, 0); err != nil {
			r.env.Logger.Errorw("fail-safe stop: set turn rate failed", "mission", r.table.Name, "error", err)
		}
	} else {
		r.env.record(r.state.String(), r.table.Name+" finished")
	}

	r.env.Logger.Infow("mission ended",
		"mission", r.table.Name,
		"outcome", r.result.Outcome.String(),
		"state", r.result.FinalState,
		"reason", r.result.Reason,
		"cycles", r.result.Cycles,
		"elapsed", r.result.Elapsed.String(),
		"stopped", r.result.Stopped,
	)
	return r.result
}
