package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"robobot.dev/raubase/config"
	"robobot.dev/raubase/dispatch"
	"robobot.dev/raubase/logging"
	"robobot.dev/raubase/mission"
)

// printf prints a message with no prefix.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

// warningf prints a message prefixed with a bold yellow "Warning: ".
func warningf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	color.New(color.Bold, color.FgYellow).Fprint(w, "Warning: ")
	printf(w, format, a...)
}

// newLogger returns the process logger writing to the app's error output. --log patterns
// apply to the subloggers created afterwards.
func newLogger(c *cli.Context) (logging.Logger, error) {
	level := logging.DEBUG
	if !c.Bool(debugFlag) {
		var err error
		if level, err = logging.LevelFromString(c.String(logLevelFlag)); err != nil {
			return nil, errors.Wrapf(err, "invalid --%s", logLevelFlag)
		}
	}
	patterns := make([]logging.LoggerPatternConfig, 0, len(c.StringSlice(logFlag)))
	for _, spec := range c.StringSlice(logFlag) {
		lpc, err := logging.ParsePatternConfig(spec)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid --%s", logFlag)
		}
		patterns = append(patterns, lpc)
	}

	logger := logging.NewBlankLogger("robobot")
	logger.AddAppender(logging.NewWriterAppender(c.App.ErrWriter))
	if len(patterns) > 0 {
		if err := logging.UpdateLoggerConfig(patterns, logger); err != nil {
			return nil, err
		}
	}
	logger.SetLevel(level)
	return logger, nil
}

// readConfig reads the configuration file. A missing file gives an empty configuration that
// is created on the first save.
func readConfig(c *cli.Context, logger logging.Logger) (*config.Store, error) {
	return config.Read(c.String(configFlag), logger)
}

// readConfigCopy reads the configuration without binding it to its file, so filled in
// defaults are never written back.
func readConfigCopy(c *cli.Context, logger logging.Logger) (*config.Store, error) {
	path := c.String(configFlag)
	//nolint:gosec
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return config.New(logger), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open config %s", path)
	}
	//nolint:errcheck
	defer f.Close()
	return config.FromReader("", f, logger)
}

// printReport writes a table of the missions of a sequence.
func printReport(w io.Writer, report dispatch.Report) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"#", "Mission", "Profile", "Outcome", "State", "Reason", "Elapsed", "Log"})
	for i, e := range report.Entries {
		if e.Skipped {
			t.AppendRow(table.Row{i + 1, e.Mission, e.Profile, "skipped", "", "", "", ""})
			continue
		}
		res := e.Result
		t.AppendRow(table.Row{
			i + 1, e.Mission, e.Profile, outcomeString(res), res.FinalState, res.Reason,
			res.Elapsed.Round(time.Millisecond), e.LogPath,
		})
	}
	t.AppendFooter(table.Row{"", "", "", report.Outcome.String()})
	t.Render()
}

func outcomeString(res mission.Result) string {
	if res.Stopped {
		return res.Outcome.String() + " (stopped)"
	}
	return res.Outcome.String()
}

// exitOnLost turns a sequence that did not finish into a non-zero exit.
func exitOnLost(report dispatch.Report) error {
	if report.Outcome == mission.Finished {
		return nil
	}
	lost := []string{}
	for _, e := range report.Ran() {
		if e.Result.Outcome != mission.Finished {
			lost = append(lost, e.Mission)
		}
	}
	return cli.Exit(fmt.Sprintf("missions did not finish: %s", strings.Join(lost, ", ")), 1)
}
