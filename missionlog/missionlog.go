// Package missionlog writes the per mission text log: one line per state change or debug
// message, in the format read by the course analysis scripts.
package missionlog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"robobot.dev/raubase/logging"
)

// Options select the outputs of a mission log.
type Options struct {
	// File enables the logfile.
	File bool
	// Console echoes every line to the structured logger.
	Console bool
}

// FileName returns the logfile name of a mission.
func FileName(mission string) string {
	return "log_" + mission + ".txt"
}

// FormatLine renders one log line without the trailing newline, e.g.
// "1700000000.0421 FollowLine % Started on Line".
func FormatLine(at time.Time, state, message string) string {
	return fmt.Sprintf("%d.%04d %s %% %s", at.Unix(), at.Nanosecond()/100000, state, message)
}

// Log is an open mission log. The zero value is not usable; use Open.
type Log struct {
	mu      sync.Mutex
	mission string
	path    string
	file    *os.File
	w       *bufio.Writer
	console bool
	logger  logging.Logger
	lines   int
}

// Open starts a mission log in dir. The file is truncated. When it cannot be created the log
// continues console only and the failure is reported once through logger.
func Open(dir, mission string, opts Options, logger logging.Logger) *Log {
	l := &Log{mission: mission, console: opts.Console, logger: logger}
	if !opts.File {
		return l
	}

	l.path = filepath.Join(dir, FileName(mission))
	f, err := os.Create(l.path)
	if err != nil {
		logger.Warnw("mission logfile unavailable, logging to console only",
			"mission", mission, "path", l.path, "error", err)
		l.console = true
		l.path = ""
		return l
	}
	l.file = f
	l.w = bufio.NewWriter(f)
	fmt.Fprintf(l.w, "%% Mission %s logfile\n", mission)
	fmt.Fprintf(l.w, "%% 1 \tTime (sec)\n")
	fmt.Fprintf(l.w, "%% 2 \tMission state\n")
	fmt.Fprintf(l.w, "%% 3 \t%% Mission status (mostly for debug)\n")
	return l
}

// Path returns the logfile path, empty when logging to console only.
func (l *Log) Path() string {
	return l.path
}

// Record appends one line.
func (l *Log) Record(at time.Time, state, message string) {
	line := FormatLine(at, state, message)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines++
	if l.w != nil {
		l.w.WriteString(line)
		l.w.WriteByte('\n')
	}
	if l.console {
		l.logger.Info(line)
	}
}

// Lines returns how many lines were recorded.
func (l *Log) Lines() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lines
}

// Close flushes and closes the file. It is safe to call more than once.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := multierr.Combine(
		errors.Wrapf(l.w.Flush(), "failed to flush %s", l.path),
		errors.Wrapf(l.file.Close(), "failed to close %s", l.path),
	)
	l.file = nil
	l.w = nil
	return err
}

// Line is one recorded line.
type Line struct {
	Time    time.Time
	State   string
	Message string
}

func (line Line) String() string {
	return FormatLine(line.Time, line.State, line.Message)
}

// Memory keeps lines in memory. It is used by tests and by the simulator's trace comparison.
type Memory struct {
	mu    sync.Mutex
	lines []Line
}

// NewMemory returns an empty in memory log.
func NewMemory() *Memory {
	return &Memory{}
}

// Record appends one line.
func (m *Memory) Record(at time.Time, state, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = append(m.lines, Line{Time: at, State: state, Message: message})
}

// Lines returns a copy of the recorded lines.
func (m *Memory) Lines() []Line {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Line, len(m.lines))
	copy(out, m.lines)
	return out
}
