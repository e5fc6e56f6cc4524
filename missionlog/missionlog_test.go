package missionlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.viam.com/test"

	"robobot.dev/raubase/logging"
)

func TestFormatLine(t *testing.T) {
	at := time.Unix(1700000000, 42_170_000)
	test.That(t, FormatLine(at, "FollowLine", "Started on Line"), test.ShouldEqual,
		"1700000000.0421 FollowLine % Started on Line")
	test.That(t, FormatLine(time.Unix(5, 0), "1", "x"), test.ShouldEqual, "5.0000 1 % x")
}

func TestLogFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log_seesaw.txt")
	test.That(t, os.WriteFile(path, []byte("stale content\n"), 0o600), test.ShouldBeNil)

	logger, observed := logging.NewObservedTestLogger(t)
	l := Open(dir, "seesaw", Options{File: true, Console: true}, logger)
	test.That(t, l.Path(), test.ShouldEqual, path)
	l.Record(time.Unix(10, 0), "Start", "seesaw started")
	l.Record(time.Unix(10, 500_000_000), "Start", "State change from Start to Follow")
	test.That(t, l.Close(), test.ShouldBeNil)
	test.That(t, l.Close(), test.ShouldBeNil)
	test.That(t, l.Lines(), test.ShouldEqual, 2)

	content, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	lines := strings.Split(strings.TrimSuffix(string(content), "\n"), "\n")
	test.That(t, lines, test.ShouldResemble, []string{
		"% Mission seesaw logfile",
		"% 1 \tTime (sec)",
		"% 2 \tMission state",
		"% 3 \t% Mission status (mostly for debug)",
		"10.0000 Start % seesaw started",
		"10.5000 Start % State change from Start to Follow",
	})
	test.That(t, observed.FilterMessage("10.0000 Start % seesaw started").Len(), test.ShouldEqual, 1)
}

func TestLogFileDisabled(t *testing.T) {
	dir := t.TempDir()
	logger, observed := logging.NewObservedTestLogger(t)
	l := Open(dir, "axe", Options{}, logger)
	l.Record(time.Unix(1, 0), "Start", "quiet")
	test.That(t, l.Close(), test.ShouldBeNil)
	test.That(t, l.Path(), test.ShouldEqual, "")
	test.That(t, observed.Len(), test.ShouldEqual, 0)

	_, err := os.Stat(filepath.Join(dir, FileName("axe")))
	test.That(t, os.IsNotExist(err), test.ShouldBeTrue)
}

func TestOpenFailureDegradesToConsole(t *testing.T) {
	logger, observed := logging.NewObservedTestLogger(t)
	l := Open(filepath.Join(t.TempDir(), "missing", "dir"), "stairs", Options{File: true}, logger)
	test.That(t, l.Path(), test.ShouldEqual, "")
	test.That(t, observed.FilterMessage("mission logfile unavailable, logging to console only").Len(), test.ShouldEqual, 1)

	l.Record(time.Unix(3, 0), "Start", "still here")
	test.That(t, observed.FilterMessage("3.0000 Start % still here").Len(), test.ShouldEqual, 1)
	test.That(t, l.Close(), test.ShouldBeNil)
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	m.Record(time.Unix(2, 0), "A", "one")
	lines := m.Lines()
	test.That(t, lines, test.ShouldHaveLength, 1)
	test.That(t, lines[0].String(), test.ShouldEqual, "2.0000 A % one")
}
