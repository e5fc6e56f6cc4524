package cli

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"robobot.dev/raubase/dispatch"
	"robobot.dev/raubase/mission"
	"robobot.dev/raubase/robot"
	"robobot.dev/raubase/sim"
	"robobot.dev/raubase/utils"
)

// SimAction runs one mission against the world a trace scripts. The configuration file is
// read but never written.
func SimAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("sim needs exactly one trace, a built in name or a YAML file")
	}
	logger, err := newLogger(c)
	if err != nil {
		return err
	}
	trace, err := sim.LoadTrace(c.Args().First())
	if err != nil {
		return err
	}
	name := trace.Mission
	if c.String(simFlagMission) != "" {
		name = c.String(simFlagMission)
	}
	store, err := readConfigCopy(c, logger)
	if err != nil {
		return err
	}
	if dir := c.String(simFlagLogDir); dir != "" {
		store.Section("service").Set("log_dir", dir)
	}

	world, err := sim.NewWorldFromTrace(trace, logger.Sublogger("world"))
	if err != nil {
		return err
	}
	r, err := robot.New(world.Parts())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()
	stop := utils.NewStopFlag()
	signals := stop.StopOnSignal(ctx, logger)
	defer signals.Stop()

	var clk mission.Clock = sim.NewClock(world, clock.New().Now())
	if c.Bool(simFlagRealtime) {
		wall := clock.New()
		stepper := world.Run(ctx, wall)
		defer stepper.Stop()
		clk = wall
	}

	report, err := dispatch.Run(ctx, dispatch.Options{
		Config:   store,
		Robot:    r,
		Clock:    clk,
		Stop:     stop,
		Logger:   logger,
		Source:   "sim:" + trace.Name,
		Missions: []string{name},
	})
	if len(report.Entries) > 0 {
		printReport(c.App.Writer, report)
		printf(c.App.Writer, "simulated %v, odometer %.3f m", world.Elapsed(), world.Odometer())
	}
	if err != nil {
		return err
	}
	if name != trace.Mission || trace.Expect.Outcome == "" {
		return exitOnLost(report)
	}
	return checkExpect(trace, report)
}

// checkExpect compares the last run of a sequence with what the trace expects.
func checkExpect(trace *sim.Trace, report dispatch.Report) error {
	ran := report.Ran()
	if len(ran) == 0 {
		return cli.Exit(fmt.Sprintf("trace %s expects %s, but nothing ran", trace.Name, trace.Expect.Outcome), 1)
	}
	res := ran[len(ran)-1].Result
	if res.Outcome.String() != trace.Expect.Outcome {
		return cli.Exit(fmt.Sprintf("trace %s expects %s, got %s (%s)",
			trace.Name, trace.Expect.Outcome, res.Outcome, res.Reason), 1)
	}
	if trace.Expect.State != "" && res.FinalState != trace.Expect.State {
		return cli.Exit(fmt.Sprintf("trace %s expects to end in %s, ended in %s",
			trace.Name, trace.Expect.State, res.FinalState), 1)
	}
	return nil
}
