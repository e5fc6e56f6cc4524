// Package cli contains the robobot command line.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	configFlag   = "config"
	debugFlag    = "debug"
	logLevelFlag = "log-level"
	logFlag      = "log"

	simFlagRealtime = "realtime"
	simFlagMission  = "mission"
	simFlagLogDir   = "log-dir"

	historyFlagMission = "mission"
	historyFlagLimit   = "limit"
	historyFlagDB      = "db"

	configFlagSave = "save"
)

var app = &cli.App{
	Name:            "robobot",
	Usage:           "run and simulate line following robot missions",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    configFlag,
			Aliases: []string{"c"},
			Value:   "robot.toml",
			Usage:   "load configuration from `FILE`",
		},
		&cli.BoolFlag{
			Name:    debugFlag,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
		&cli.StringFlag{
			Name:  logLevelFlag,
			Value: "info",
			Usage: "minimum `LEVEL` of process log lines",
		},
		&cli.StringSliceFlag{
			Name:  logFlag,
			Usage: "set the level of the named loggers, e.g. robobot.seesaw=debug or robobot.*=warn",
		},
	},
	Commands: []*cli.Command{
		{
			Name:      "run",
			Usage:     "run the configured mission sequence",
			ArgsUsage: "[mission...]",
			Description: `Runs the missions listed in the [service] table, or the missions given as
arguments, one after another. Create the stop file or send SIGINT to stop.`,
			Action: RunAction,
		},
		{
			Name:      "sim",
			Usage:     "run a mission against a scripted simulated world",
			ArgsUsage: "<trace>",
			Description: `Runs the mission of a trace, a built in trace name or a YAML file, and checks
the outcome the trace expects. Use "robobot list" to see the built in traces.`,
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  simFlagRealtime,
					Usage: "step the world on the wall clock instead of deterministically",
				},
				&cli.StringFlag{
					Name:  simFlagMission,
					Usage: "run `MISSION` instead of the trace's mission",
				},
				&cli.StringFlag{
					Name:  simFlagLogDir,
					Usage: "write mission logs to `DIR` instead of the configured log_dir",
				},
			},
			Action: SimAction,
		},
		{
			Name:   "list",
			Usage:  "list missions, their profiles and run flags, and the built in traces",
			Action: ListAction,
		},
		{
			Name:  "config",
			Usage: "print the configuration with every default filled in",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  configFlagSave,
					Usage: "write the filled in configuration back to the file",
				},
			},
			Action: ConfigAction,
		},
		{
			Name:  "history",
			Usage: "show recorded mission runs, newest first",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  historyFlagMission,
					Usage: "only show runs of `MISSION`",
				},
				&cli.IntFlag{
					Name:  historyFlagLimit,
					Value: 20,
					Usage: "show at most `N` runs",
				},
				&cli.StringFlag{
					Name:  historyFlagDB,
					Usage: "read the history database at `FILE` instead of the one in log_dir",
				},
			},
			Action: HistoryAction,
		},
	},
}

// NewApp returns the robobot command line writing to out and errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
