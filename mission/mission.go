// Package mission is the state machine runtime shared by every mission. A mission is a table of
// states; each state holds rules evaluated first-match-wins once per cycle against a fresh
// sensor snapshot. The runtime owns the polling loop, transition logging, per-state timeouts,
// cancellation and the fail-safe stop.
package mission

import (
	"context"
	"fmt"
	"time"

	"robobot.dev/raubase/logging"
	"robobot.dev/raubase/robot"
)

// DefaultPeriod is the cycle period used when a table does not set one.
const DefaultPeriod = 4 * time.Millisecond

// StateID identifies a state of one mission. Missions declare a closed enumeration, e.g.
// `type State int`, with a String method.
type StateID interface {
	comparable
	fmt.Stringer
}

// Outcome is the status of a mission run.
type Outcome int

const (
	// Running means the loop continues.
	Running Outcome = iota
	// Finished is normal completion.
	Finished
	// Lost is any unrecoverable condition.
	Lost
)

func (o Outcome) String() string {
	switch o {
	case Running:
		return "running"
	case Finished:
		return "finished"
	case Lost:
		return "lost"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Clock is the time source of the runtime. `clock.New()` from github.com/benbjohnson/clock
// satisfies it, as does the simulator's stepping clock.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// Recorder receives mission log lines. missionlog.Log and missionlog.Memory implement it.
type Recorder interface {
	Record(at time.Time, state, message string)
}

// Stopper is the process wide stop flag.
type Stopper interface {
	Stopped() bool
}

// Env holds the collaborators of a mission run.
type Env struct {
	Robot  *robot.Robot
	Clock  Clock
	Log    Recorder
	Logger logging.Logger
	Stop   Stopper
}

// Result describes a finished run.
type Result struct {
	Mission     string
	Outcome     Outcome
	FinalState  string
	Reason      string
	Cycles      int
	Transitions int
	Elapsed     time.Duration
	// Stopped is true when the run ended because of the stop flag or context cancellation.
	Stopped bool
}

// Mission is a runnable mission.
type Mission interface {
	Name() string
	Run(ctx context.Context, env Env) Result
}

// Profiled is a mission built from a named configuration profile.
type Profiled interface {
	// Profile returns the profile the mission resolved, after any fallback to the default.
	Profile() string
}

// TableMission runs a table built afresh for every run, so per run scratch state captured by
// the table's closures never leaks between runs.
type TableMission[S StateID] struct {
	name    string
	profile string
	build   func() Table[S]
}

// FromTable returns a mission running the tables produced by build.
func FromTable[S StateID](name string, build func() Table[S]) *TableMission[S] {
	return &TableMission[S]{name: name, build: build}
}

// Name returns the mission name.
func (m *TableMission[S]) Name() string {
	return m.name
}

// WithProfile records the profile the mission's config was resolved from.
func (m *TableMission[S]) WithProfile(profile string) *TableMission[S] {
	m.profile = profile
	return m
}

// Profile returns the recorded profile, empty when none was set.
func (m *TableMission[S]) Profile() string {
	return m.profile
}

// Table returns a fresh table.
func (m *TableMission[S]) Table() Table[S] {
	return m.build()
}

// Run runs a fresh table.
func (m *TableMission[S]) Run(ctx context.Context, env Env) Result {
	return Run(ctx, env, m.build())
}
