package utils

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"robobot.dev/raubase/logging"
)

// StopFlag is the process wide operator stop. Missions check it once per cycle.
type StopFlag struct {
	stopped atomic.Bool
	reason  atomic.String
}

// NewStopFlag returns a cleared flag.
func NewStopFlag() *StopFlag {
	return &StopFlag{}
}

// Stop sets the flag. The first reason is kept.
func (sf *StopFlag) Stop(reason string) {
	if sf.stopped.CompareAndSwap(false, true) {
		sf.reason.Store(reason)
	}
}

// Stopped reports whether the flag is set.
func (sf *StopFlag) Stopped() bool {
	return sf.stopped.Load()
}

// Reason returns why the flag was set, empty when it was not.
func (sf *StopFlag) Reason() string {
	return sf.reason.Load()
}

// StopOnSignal sets the flag on SIGINT or SIGTERM until ctx is done.
func (sf *StopFlag) StopOnSignal(ctx context.Context, logger logging.Logger) StoppableWorkers {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	return NewStoppableWorkers(ctx, func(ctx context.Context) {
		defer signal.Stop(sigs)
		select {
		case <-ctx.Done():
		case sig := <-sigs:
			logger.Warnw("stop requested by signal", "signal", sig.String())
			sf.Stop("signal " + sig.String())
		}
	})
}

// StopOnFile sets the flag when path is created, e.g. with `touch log/stop`. An existing file
// is removed first so a stale request does not stop the next run.
func (sf *StopFlag) StopOnFile(ctx context.Context, path string, logger logging.Logger) (StoppableWorkers, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "failed to clear stop file %s", path)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create stop file watcher")
	}
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		//nolint:errcheck
		watcher.Close()
		return nil, errors.Wrapf(err, "failed to watch %s", dir)
	}
	target := filepath.Clean(path)
	return NewStoppableWorkers(ctx, func(ctx context.Context) {
		//nolint:errcheck
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) == target && event.Has(fsnotify.Create) {
					logger.Warnw("stop requested by stop file", "path", path)
					sf.Stop("stop file " + path)
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warnw("stop file watcher error", "error", err)
			}
		}
	}), nil
}
