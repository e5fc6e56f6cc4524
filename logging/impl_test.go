package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"
)

type BasicStruct struct {
	X int
	y string
	z string
}

type User struct {
	Name string
}

type StructWithStruct struct {
	x int
	Y User
	z string
}

// assertLogMatches will fuzzy match log lines. Notably, this checks the time format, but ignores
// the exact time. And it expects a match on the filename, but the exact line number can be wrong.
func assertLogMatches(t *testing.T, actual *bytes.Buffer, expected string) {
	t.Helper()

	output, err := actual.ReadString('\n')
	test.That(t, err, test.ShouldBeNil)

	actualParts := strings.Split(strings.TrimSuffix(output, "\n"), "\t")
	expectedParts := strings.Split(expected, "\t")
	test.That(t, len(actualParts), test.ShouldEqual, len(expectedParts))

	_, err = time.Parse(DefaultTimeFormatStr, actualParts[0])
	test.That(t, err, test.ShouldBeNil)
	// Log level and logger name.
	test.That(t, actualParts[1], test.ShouldEqual, expectedParts[1])
	test.That(t, actualParts[2], test.ShouldEqual, expectedParts[2])

	// Filename:line_number.
	actualFilename, actualLineNumber, found := strings.Cut(actualParts[3], ":")
	test.That(t, found, test.ShouldBeTrue)
	expectedFilename, _, found := strings.Cut(expectedParts[3], ":")
	test.That(t, found, test.ShouldBeTrue)
	test.That(t, actualFilename, test.ShouldEqual, expectedFilename)
	_, err = strconv.Atoi(actualLineNumber)
	test.That(t, err, test.ShouldBeNil)

	// Log message.
	test.That(t, actualParts[4], test.ShouldEqual, expectedParts[4])
	if len(actualParts) == 5 {
		return
	}

	// Compare the structured fields as maps, key order is not part of the contract.
	expectedMap := make(map[string]any)
	test.That(t, json.Unmarshal([]byte(expectedParts[5]), &expectedMap), test.ShouldBeNil)
	actualMap := make(map[string]any)
	test.That(t, json.Unmarshal([]byte(actualParts[5]), &actualMap), test.ShouldBeNil)
	test.That(t, actualMap, test.ShouldResemble, expectedMap)
}

func newBufferLogger(name string, level Level) (*impl, *bytes.Buffer) {
	notStdout := &bytes.Buffer{}
	return newImpl(name, level, true, nil, NewWriterAppender(notStdout)), notStdout
}

func TestConsoleOutputFormat(t *testing.T) {
	logger, notStdout := newBufferLogger("impl", DEBUG)

	logger.Info("impl Info log")
	assertLogMatches(t, notStdout,
		`2023-10-30T09:12:09.459Z	INFO	impl	logging/impl_test.go:80	impl Info log`)

	logger.Infof("impl %s log", "infof")
	assertLogMatches(t, notStdout,
		`2023-10-30T09:45:20.764Z	INFO	impl	logging/impl_test.go:84	impl infof log`)

	logger.Infow("impl logw", "key", "value")
	assertLogMatches(t, notStdout,
		`2023-10-30T13:19:45.806Z	INFO	impl	logging/impl_test.go:88	impl logw	{"key":"value"}`)

	logger.Infow("StructWithStruct", "key", "val", "StructWithStruct", StructWithStruct{1, User{"alice"}, "foo"})
	assertLogMatches(t, notStdout,
		`2023-10-30T13:20:47.129Z	INFO	impl	logging/impl_test.go:92	StructWithStruct	{"StructWithStruct":{"Y":{"Name":"alice"}},"key":"val"}`)

	logger.Infow("BasicStruct", "implOneKey", "1val", "BasicStruct", BasicStruct{1, "alice", "foo"})
	assertLogMatches(t, notStdout,
		`2023-10-30T13:20:47.129Z	INFO	impl	logging/impl_test.go:96	BasicStruct	{"BasicStruct":{"X":1},"implOneKey":"1val"}`)

	logger.Warnw("unpaired", "dangling")
	assertLogMatches(t, notStdout,
		`2023-10-30T13:20:47.129Z	WARN	impl	logging/impl_test.go:100	unpaired	{"dangling":"unpaired log key"}`)

	logger.Errorw("impl logw", "fmt.Sprintf", fmt.Sprintf("%+v", BasicStruct{1, "y", "z"}))
	assertLogMatches(t, notStdout,
		`2023-10-30T13:20:47.129Z	ERROR	impl	logging/impl_test.go:104	impl logw	{"fmt.Sprintf":"{X:1 y:y z:z}"}`)
}

func TestLevelFiltering(t *testing.T) {
	logger, notStdout := newBufferLogger("filter", WARN)

	logger.Debug("hidden")
	logger.Info("hidden")
	test.That(t, notStdout.Len(), test.ShouldEqual, 0)

	logger.Warn("shown")
	assertLogMatches(t, notStdout,
		`2023-10-30T09:12:09.459Z	WARN	filter	logging/impl_test.go:115	shown`)

	logger.SetLevel(ERROR)
	logger.Warnf("hidden %d", 1)
	test.That(t, notStdout.Len(), test.ShouldEqual, 0)

	logger.SetLevel(DEBUG)
	test.That(t, logger.GetLevel(), test.ShouldEqual, DEBUG)
	test.That(t, logger.Level().String(), test.ShouldEqual, "debug")
}

func TestClockStampsEntries(t *testing.T) {
	clk := clock.NewMock()
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	clk.Set(start)
	notStdout := &bytes.Buffer{}
	logger := newImpl("sim", INFO, true, clk, NewWriterAppender(notStdout))

	logger.Info("first")
	clk.Add(1500 * time.Millisecond)
	logger.Sublogger("world").Info("second")

	lines := strings.Split(strings.TrimSpace(notStdout.String()), "\n")
	test.That(t, lines, test.ShouldHaveLength, 2)
	test.That(t, lines[0], test.ShouldStartWith, "2026-03-01T10:00:00.000Z\tINFO\tsim\t")
	test.That(t, lines[1], test.ShouldStartWith, "2026-03-01T10:00:01.500Z\tINFO\tsim.world\t")
}

func TestSublogger(t *testing.T) {
	logger, notStdout := newBufferLogger("mission", INFO)
	sub := logger.Sublogger("seesaw")
	sub.Info("hello")
	assertLogMatches(t, notStdout,
		`2023-10-30T09:12:09.459Z	INFO	mission.seesaw	logging/impl_test.go:134	hello`)

	// Subloggers copy the level at creation and change independently afterwards.
	sub.SetLevel(ERROR)
	test.That(t, logger.GetLevel(), test.ShouldEqual, INFO)
}

func TestObservedTestLogger(t *testing.T) {
	logger, observed := NewObservedTestLogger(t)
	logger.Infow("state change", "from", 1, "to", 2)
	logger.Debug("tick")

	test.That(t, observed.Len(), test.ShouldEqual, 2)
	entries := observed.FilterMessage("state change").All()
	test.That(t, entries, test.ShouldHaveLength, 1)
	test.That(t, entries[0].ContextMap()["to"], test.ShouldEqual, int64(2))
}

func TestLevelFromString(t *testing.T) {
	for input, expected := range map[string]Level{
		"debug":   DEBUG,
		"INFO":    INFO,
		"warning": WARN,
		"Error":   ERROR,
	} {
		level, err := LevelFromString(input)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, level, test.ShouldEqual, expected)
	}

	_, err := LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)

	var level Level
	test.That(t, json.Unmarshal([]byte(`"warn"`), &level), test.ShouldBeNil)
	test.That(t, level, test.ShouldEqual, WARN)
	out, err := json.Marshal(ERROR)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(out), test.ShouldEqual, `"Error"`)
}

type recordingTB struct {
	testing.TB
	lines []string
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Log(args ...interface{}) {
	r.lines = append(r.lines, fmt.Sprint(args...))
}

func TestTestAppenderUsesConsoleFormat(t *testing.T) {
	tb := &recordingTB{TB: t}
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	logger := newImpl("tracer", DEBUG, true, mock, NewTestAppender(tb))

	logger.Infow("state change", "from", "Drive", "to", "Creep")
	logger.Sublogger("plant").Debug("stepped")

	test.That(t, tb.lines, test.ShouldHaveLength, 2)
	parts := strings.Split(tb.lines[0], "\t")
	test.That(t, parts, test.ShouldHaveLength, 6)
	test.That(t, parts[0], test.ShouldEqual, "2026-03-01T10:00:00.000Z")
	test.That(t, parts[1:3], test.ShouldResemble, []string{"INFO", "tracer"})
	test.That(t, parts[3], test.ShouldStartWith, "logging/impl_test.go:")
	test.That(t, parts[4], test.ShouldEqual, "state change")
	test.That(t, parts[5], test.ShouldEqual, `{"from":"Drive","to":"Creep"}`)
	test.That(t, tb.lines[1], test.ShouldContainSubstring, "DEBUG\ttracer.plant\t")
	test.That(t, tb.lines[1], test.ShouldEndWith, "\tstepped")
}
