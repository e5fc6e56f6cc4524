package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"robobot.dev/raubase/config"
	"robobot.dev/raubase/history"
	"robobot.dev/raubase/mission"
	"robobot.dev/raubase/sim"
)

// ListAction prints the registered missions with their profiles and configured run flags,
// then the built in traces.
func ListAction(c *cli.Context) error {
	logger, err := newLogger(c)
	if err != nil {
		return err
	}
	store, err := readConfigCopy(c, logger)
	if err != nil {
		return err
	}
	sequence := store.Service().Missions

	t := table.NewWriter()
	t.SetOutputMirror(c.App.Writer)
	t.AppendHeader(table.Row{"Mission", "Profiles", "Profile", "Run", "Log", "Print", "In sequence", "Description"})
	for _, reg := range mission.Registered() {
		sec := store.Section(reg.Name)
		profiles := lo.Uniq(append(append([]string{}, reg.Profiles...), sec.ProfileNames()...))
		t.AppendRow(table.Row{
			reg.Name,
			strings.Join(profiles, ", "),
			sec.String("profile", lo.FirstOrEmpty(reg.Profiles)),
			sec.Bool("run", true),
			sec.Bool("log", true),
			sec.Bool("print", true),
			lo.Contains(sequence, reg.Name),
			reg.Description,
		})
	}
	t.Render()

	traces := table.NewWriter()
	traces.SetOutputMirror(c.App.Writer)
	traces.AppendHeader(table.Row{"Trace", "Mission", "Expect", "Description"})
	for _, name := range sim.BuiltinTraces() {
		tr, err := sim.BuiltinTrace(name)
		if err != nil {
			return err
		}
		expect := tr.Expect.Outcome
		if tr.Expect.State != "" {
			expect += " in " + tr.Expect.State
		}
		traces.AppendRow(table.Row{name, tr.Mission, expect, tr.Description})
	}
	traces.Render()
	return nil
}

// ConfigAction fills in every default of the service table and the mission tables and prints
// the result. With --save the file is updated too.
func ConfigAction(c *cli.Context) error {
	logger, err := newLogger(c)
	if err != nil {
		return err
	}
	var store *config.Store
	if c.Bool(configFlagSave) {
		store, err = readConfig(c, logger)
	} else {
		store, err = readConfigCopy(c, logger)
	}
	if err != nil {
		return err
	}
	fillDefaults(store)

	var buf bytes.Buffer
	if err := store.Encode(&buf); err != nil {
		return err
	}
	//nolint:errcheck
	c.App.Writer.Write(buf.Bytes())
	if !c.Bool(configFlagSave) {
		return nil
	}
	if err := store.Save(); err != nil {
		return err
	}
	printf(c.App.Writer, "saved %s", store.Path())
	return nil
}

// fillDefaults writes the service settings and the run flags of every mission into the store.
func fillDefaults(store *config.Store) {
	svc := store.Service()
	sec := store.Section(config.ServiceSection)
	for key, value := range map[string]interface{}{
		"missions":         svc.Missions,
		"log_dir":          svc.LogDir,
		"service_log":      svc.ServiceLog,
		"continue_on_lost": svc.ContinueOnLost,
		"settle":           svc.Settle.String(),
		"indicator_pin":    svc.IndicatorPin,
		"park_channel":     svc.ParkChannel,
		"park_position":    svc.ParkPosition,
		"park_speed":       svc.ParkSpeed,
		"stop_file":        svc.StopFile,
	} {
		if !sec.Has(key) {
			sec.Set(key, value)
		}
	}
	for _, reg := range mission.Registered() {
		mSec := store.Section(reg.Name)
		mSec.Flags()
		if !mSec.Has("profile") {
			mSec.Set("profile", lo.FirstOrEmpty(reg.Profiles))
		}
	}
}

// HistoryAction prints recorded runs.
func HistoryAction(c *cli.Context) (err error) {
	logger, err := newLogger(c)
	if err != nil {
		return err
	}
	path := c.String(historyFlagDB)
	if path == "" {
		store, err := readConfigCopy(c, logger)
		if err != nil {
			return err
		}
		path = filepath.Join(store.Service().LogDir, history.FileName)
	}
	hist, err := history.Open(c.Context, path, logger.Sublogger("history"))
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := hist.Close(); err == nil {
			err = closeErr
		}
	}()
	runs, err := hist.Runs(c.Context, history.Query{
		Mission: c.String(historyFlagMission),
		Limit:   c.Int(historyFlagLimit),
	})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		printf(c.App.Writer, "no runs recorded in %s", path)
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(c.App.Writer)
	t.AppendHeader(table.Row{"Started", "Mission", "Profile", "Outcome", "State", "Reason", "Elapsed", "Cycles", "Sequence"})
	for _, run := range runs {
		res := run.Result
		t.AppendRow(table.Row{
			run.StartedAt.Local().Format(time.DateTime), run.Mission, run.Profile, outcomeString(res),
			res.FinalState, res.Reason, res.Elapsed.Round(time.Millisecond), res.Cycles, shortID(run.SequenceID),
		})
	}
	t.Render()
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
