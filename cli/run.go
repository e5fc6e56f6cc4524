package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"robobot.dev/raubase/components/board/periph"
	"robobot.dev/raubase/config"
	"robobot.dev/raubase/dispatch"
	"robobot.dev/raubase/history"
	"robobot.dev/raubase/logging"
	_ "robobot.dev/raubase/missions/register"
	"robobot.dev/raubase/robot"
	"robobot.dev/raubase/sim"
	"robobot.dev/raubase/utils"
)

const (
	serviceLogMaxSizeMB  = 10
	serviceLogMaxBackups = 5
)

// RunAction runs the mission sequence on the robot. The drive and sensor parts are served by
// the real time world; the indicator LED is driven over GPIO when one is configured.
func RunAction(c *cli.Context) (err error) {
	logger, err := newLogger(c)
	if err != nil {
		return err
	}
	store, err := readConfig(c, logger)
	if err != nil {
		return err
	}
	svc := store.Service()

	if svc.ServiceLog != "" {
		if mkErr := os.MkdirAll(filepath.Dir(svc.ServiceLog), 0o755); mkErr != nil {
			warningf(c.App.ErrWriter, "cannot create service log directory: %v", mkErr)
		} else {
			appender := logging.NewFileAppender(svc.ServiceLog, serviceLogMaxSizeMB, serviceLogMaxBackups)
			logger.AddAppender(appender)
			defer func() {
				err = multierr.Combine(err, appender.Close())
			}()
		}
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	world, err := sim.NewWorld(sim.DefaultConfig(), logger.Sublogger("world"))
	if err != nil {
		return err
	}
	clk := clock.New()
	stepper := world.Run(ctx, clk)
	defer stepper.Stop()

	parts := world.Parts()
	if svc.IndicatorPin != "" {
		pin, pinErr := periph.GPIOPinByName(svc.IndicatorPin)
		if pinErr != nil {
			logger.Warnw("no indicator LED", "pin", svc.IndicatorPin, "error", pinErr)
		} else {
			parts.Indicator = pin
		}
	}
	r, err := robot.New(parts)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, r.Close(context.Background()))
	}()

	stop := utils.NewStopFlag()
	signals := stop.StopOnSignal(ctx, logger)
	defer signals.Stop()
	if svc.StopFile != "" {
		if mkErr := os.MkdirAll(filepath.Dir(svc.StopFile), 0o755); mkErr != nil {
			logger.Warnw("cannot create stop file directory", "error", mkErr)
		} else if watcher, watchErr := stop.StopOnFile(ctx, svc.StopFile, logger); watchErr != nil {
			logger.Warnw("stop file is not watched", "path", svc.StopFile, "error", watchErr)
		} else {
			defer watcher.Stop()
			printf(c.App.Writer, "create %s to stop", svc.StopFile)
		}
	}

	hist, err := openHistory(ctx, svc, logger)
	if err != nil {
		logger.Warnw("run history is not recorded", "error", err)
	} else {
		defer func() {
			err = multierr.Combine(err, hist.Close())
		}()
	}

	report, err := dispatch.Run(ctx, dispatch.Options{
		Config:   store,
		Robot:    r,
		Clock:    clk,
		Stop:     stop,
		Logger:   logger,
		History:  hist,
		Source:   "robot",
		Missions: c.Args().Slice(),
	})
	if len(report.Entries) > 0 {
		printReport(c.App.Writer, report)
	}
	if stop.Stopped() {
		printf(c.App.Writer, "stopped: %s", stop.Reason())
	}
	if err != nil {
		return err
	}
	return exitOnLost(report)
}

func openHistory(ctx context.Context, svc config.Service, logger logging.Logger) (*history.Store, error) {
	if err := os.MkdirAll(svc.LogDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create %s", svc.LogDir)
	}
	return history.Open(ctx, filepath.Join(svc.LogDir, history.FileName), logger.Sublogger("history"))
}
