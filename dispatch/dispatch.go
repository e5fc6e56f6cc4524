// Package dispatch runs the configured mission sequence: it prepares the robot, runs each
// enabled mission in order with its own mission log, and shuts the robot down safely at the
// end whatever happened.
package dispatch

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"robobot.dev/raubase/components/servo"
	"robobot.dev/raubase/config"
	"robobot.dev/raubase/history"
	"robobot.dev/raubase/logging"
	"robobot.dev/raubase/mission"
	"robobot.dev/raubase/missionlog"
	"robobot.dev/raubase/robot"
)

// settleSlice bounds how long the settle delay sleeps before checking for a stop.
const settleSlice = 50 * time.Millisecond

// Options are the collaborators of a sequence.
type Options struct {
	Config *config.Store
	Robot  *robot.Robot
	Clock  mission.Clock
	Stop   mission.Stopper
	Logger logging.Logger
	// History records the runs when set.
	History *history.Store
	// Source names where the sequence ran, e.g. "robot" or "sim:axe".
	Source string
	// Missions replaces the configured sequence when set.
	Missions []string
}

// Entry is one mission of a sequence.
type Entry struct {
	Mission string
	Profile string
	// Skipped is set for missions whose run flag is false.
	Skipped   bool
	StartedAt time.Time
	// LogPath is the mission logfile, empty when logging to the console only.
	LogPath string
	Result  mission.Result
}

// Report describes a finished sequence.
type Report struct {
	SequenceID string
	Entries    []Entry
	// Outcome is Finished when every mission that ran finished.
	Outcome mission.Outcome
}

// Ran returns the entries of the missions that were run.
func (r Report) Ran() []Entry {
	return lo.Reject(r.Entries, func(e Entry, _ int) bool { return e.Skipped })
}

// Resolve looks up every mission of a sequence. Nothing runs when a name is unknown.
func Resolve(names []string) ([]mission.Registration, error) {
	if len(names) == 0 {
		return nil, errors.New("no missions to run")
	}
	unknown := lo.Reject(names, func(name string, _ int) bool {
		_, ok := mission.Lookup(name)
		return ok
	})
	if len(unknown) > 0 {
		known := lo.Map(mission.Registered(), func(r mission.Registration, _ int) string { return r.Name })
		return nil, errors.Errorf("unknown missions %v, have %v", unknown, known)
	}
	return lo.Map(names, func(name string, _ int) mission.Registration {
		reg, _ := mission.Lookup(name)
		return reg
	}), nil
}

// Run runs the mission sequence. The returned error reports problems around the missions,
// such as a failed shutdown command or history write; how the missions went is in the report.
func Run(ctx context.Context, opts Options) (Report, error) {
	svc := opts.Config.Service()
	names := svc.Missions
	if len(opts.Missions) > 0 {
		names = opts.Missions
	}
	regs, err := Resolve(names)
	if err != nil {
		return Report{Outcome: mission.Lost}, err
	}
	if err := os.MkdirAll(svc.LogDir, 0o755); err != nil {
		opts.Logger.Warnw("cannot create log directory, mission logs go to the console", "dir", svc.LogDir, "error", err)
	}

	d := &dispatcher{opts: opts, svc: svc, report: Report{Outcome: mission.Finished}}
	d.begin(ctx)
	d.prepare(ctx)
	for _, reg := range regs {
		if !d.runOne(ctx, reg) {
			break
		}
	}
	d.settle(ctx)
	d.shutdown(ctx)
	d.end(ctx)
	return d.report, d.err
}

type dispatcher struct {
	opts   Options
	svc    config.Service
	report Report
	err    error
}

func (d *dispatcher) begin(ctx context.Context) {
	if d.opts.History == nil {
		return
	}
	id, err := d.opts.History.BeginSequence(ctx, d.opts.Clock.Now(), d.opts.Source)
	if err != nil {
		d.err = multierr.Append(d.err, err)
		return
	}
	d.report.SequenceID = id
}

// prepare switches the indicator on and parks the servo.
func (d *dispatcher) prepare(ctx context.Context) {
	r := d.opts.Robot
	d.err = multierr.Append(d.err, errors.Wrap(r.SetIndicator(ctx, true), "failed to switch indicator on"))
	if d.svc.ParkChannel > 0 {
		d.err = multierr.Append(d.err, errors.Wrap(
			r.Servo.SetServo(ctx, d.svc.ParkChannel, true, d.svc.ParkPosition, d.svc.ParkSpeed),
			"failed to park servo"))
	}
}

// runOne runs a mission and reports whether the sequence continues.
func (d *dispatcher) runOne(ctx context.Context, reg mission.Registration) bool {
	logger := d.opts.Logger
	sec := d.opts.Config.Section(reg.Name)
	flags := sec.Flags()
	entry := Entry{Mission: reg.Name, Profile: sec.String("profile", lo.FirstOrEmpty(reg.Profiles))}
	if !flags.Run {
		logger.Infow("mission disabled, skipping", "mission", reg.Name)
		entry.Skipped = true
		d.report.Entries = append(d.report.Entries, entry)
		return true
	}

	m, err := reg.Constructor(sec, logger.Sublogger(reg.Name))
	if err != nil {
		d.err = multierr.Append(d.err, errors.Wrapf(err, "failed to build mission %s", reg.Name))
		d.report.Outcome = mission.Lost
		return false
	}

	if p, ok := m.(mission.Profiled); ok && p.Profile() != "" {
		entry.Profile = p.Profile()
	}

	log := missionlog.Open(d.svc.LogDir, reg.Name, missionlog.Options{File: flags.Log, Console: flags.Print}, logger)
	entry.LogPath = log.Path()
	entry.StartedAt = d.opts.Clock.Now()
	logger.Infow("mission starting", "mission", reg.Name, "profile", entry.Profile)
	entry.Result = m.Run(ctx, mission.Env{
		Robot:  d.opts.Robot,
		Clock:  d.opts.Clock,
		Log:    log,
		Logger: logger.Sublogger(reg.Name),
		Stop:   d.opts.Stop,
	})
	d.err = multierr.Append(d.err, log.Close())
	d.report.Entries = append(d.report.Entries, entry)

	if d.opts.History != nil {
		_, err := d.opts.History.Record(ctx, history.Run{
			SequenceID: d.report.SequenceID,
			Mission:    reg.Name,
			Profile:    entry.Profile,
			StartedAt:  entry.StartedAt,
			Result:     entry.Result,
		})
		d.err = multierr.Append(d.err, err)
	}

	if entry.Result.Outcome == mission.Finished {
		return true
	}
	d.report.Outcome = mission.Lost
	if entry.Result.Stopped {
		return false
	}
	if d.svc.ContinueOnLost {
		logger.Warnw("mission did not finish, continuing", "mission", reg.Name, "reason", entry.Result.Reason)
		return true
	}
	return false
}

// settle waits for the robot to come to rest. A stop request or cancellation cuts it short.
func (d *dispatcher) settle(ctx context.Context) {
	for left := d.svc.Settle; left > 0; left -= settleSlice {
		if ctx.Err() != nil || (d.opts.Stop != nil && d.opts.Stop.Stopped()) {
			return
		}
		d.opts.Clock.Sleep(min(left, settleSlice))
	}
}

// shutdown stops the robot, switches the indicator off and releases the parked servo. Every
// step is attempted even when an earlier one fails or the context is cancelled.
func (d *dispatcher) shutdown(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	r := d.opts.Robot
	d.err = multierr.Combine(d.err,
		errors.Wrap(r.Stop(ctx), "failed to stop robot"),
		errors.Wrap(r.SetIndicator(ctx, false), "failed to switch indicator off"),
	)
	if d.svc.ParkChannel > 0 {
		d.err = multierr.Append(d.err,
			errors.Wrap(servo.Disable(ctx, r.Servo, d.svc.ParkChannel), "failed to release servo"))
	}
}

func (d *dispatcher) end(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	if d.opts.History != nil && d.report.SequenceID != "" {
		d.err = multierr.Append(d.err, d.opts.History.EndSequence(ctx, d.report.SequenceID, d.report.Outcome))
	}
	d.err = multierr.Append(d.err, d.opts.Config.Save())
	d.opts.Logger.Infow("sequence ended",
		"outcome", d.report.Outcome.String(),
		"missions", len(d.report.Ran()),
		"skipped", len(d.report.Entries)-len(d.report.Ran()),
	)
}
