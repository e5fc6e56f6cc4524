package sim

import (
	"bytes"
	"embed"
	"image"
	"io"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"robobot.dev/raubase/logging"
)

// Trace scripts the surroundings of one simulated run.
//
//	name: axe
//	mission: axe
//	events:
//	  - distance: 1.0
//	    ranges: {0: 0.1}
//	  - at: 6s
//	    ranges: {0: 2.0}
type Trace struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Mission     string  `yaml:"mission"`
	World       Config  `yaml:"world"`
	Initial     Event   `yaml:"initial"`
	Events      []Event `yaml:"events"`
	Expect      Expect  `yaml:"expect"`
}

// Expect is the outcome a trace is written for.
type Expect struct {
	Outcome string `yaml:"outcome"`
	State   string `yaml:"state"`
}

// Event changes sensor readings once the simulated time reaches At or the odometer reaches
// Distance. Unset fields keep their value.
type Event struct {
	At       *time.Duration  `yaml:"at"`
	Distance *float64        `yaml:"distance"`
	Line     *LineEvent      `yaml:"line"`
	Ranges   map[int]float64 `yaml:"ranges"`
	Ball     *BallEvent      `yaml:"ball"`
	Accel    []float64       `yaml:"accel"`
}

// LineEvent sets the line detector reading.
type LineEvent struct {
	Width *float64 `yaml:"width"`
	Valid *bool    `yaml:"valid"`
}

// BallEvent places the golf ball in the camera image, or removes it with found: false.
type BallEvent struct {
	X     int   `yaml:"x"`
	Y     int   `yaml:"y"`
	Found *bool `yaml:"found"`
}

// Validate checks that every event has exactly one trigger and sane values.
func (t *Trace) Validate() error {
	var err error
	if t.Name == "" {
		err = multierr.Append(err, errors.New("trace has no name"))
	}
	if t.Initial.At != nil || t.Initial.Distance != nil {
		err = multierr.Append(err, errors.New("initial readings take no trigger"))
	}
	err = multierr.Append(err, t.Initial.validateValues("initial"))
	for i, ev := range t.Events {
		where := "event " + strconv.Itoa(i)
		if (ev.At == nil) == (ev.Distance == nil) {
			err = multierr.Append(err, errors.Errorf("%s needs exactly one of at or distance", where))
		}
		if ev.At != nil && *ev.At < 0 {
			err = multierr.Append(err, errors.Errorf("%s at %v is negative", where, *ev.At))
		}
		if ev.Distance != nil && *ev.Distance < 0 {
			err = multierr.Append(err, errors.Errorf("%s distance %v is negative", where, *ev.Distance))
		}
		err = multierr.Append(err, ev.validateValues(where))
	}
	return errors.Wrapf(err, "trace %s", t.Name)
}

func (ev Event) validateValues(where string) error {
	var err error
	if ev.Accel != nil && len(ev.Accel) != 3 {
		err = multierr.Append(err, errors.Errorf("%s accel needs 3 values, got %d", where, len(ev.Accel)))
	}
	for i, r := range ev.Ranges {
		if i < 0 || r < 0 {
			err = multierr.Append(err, errors.Errorf("%s range %d=%v is invalid", where, i, r))
		}
	}
	return err
}

// ParseTrace decodes and validates a YAML trace.
func ParseTrace(r io.Reader) (*Trace, error) {
	var t Trace
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return nil, errors.Wrap(err, "failed to decode trace")
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// ReadTrace reads a trace file.
func ReadTrace(filename string) (*Trace, error) {
	buf, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read trace %s", filename)
	}
	t, err := ParseTrace(bytes.NewReader(buf))
	return t, errors.Wrapf(err, "trace file %s", filename)
}

//go:embed traces/*.yaml
var builtinTraces embed.FS

// BuiltinTraces returns the names of the traces shipped with the simulator.
func BuiltinTraces() []string {
	entries, err := builtinTraces.ReadDir("traces")
	if err != nil {
		return nil
	}
	names := lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
		return strings.TrimSuffix(e.Name(), ".yaml"), strings.HasSuffix(e.Name(), ".yaml")
	})
	sort.Strings(names)
	return names
}

// BuiltinTrace returns a trace shipped with the simulator.
func BuiltinTrace(name string) (*Trace, error) {
	buf, err := builtinTraces.ReadFile(path.Join("traces", name+".yaml"))
	if err != nil {
		return nil, errors.Errorf("no built in trace %q, have %s", name, strings.Join(BuiltinTraces(), ", "))
	}
	return ParseTrace(bytes.NewReader(buf))
}

// LoadTrace returns the built in trace name, or reads name as a file when it is not built in.
func LoadTrace(name string) (*Trace, error) {
	if lo.Contains(BuiltinTraces(), name) {
		return BuiltinTrace(name)
	}
	return ReadTrace(name)
}

// NewWorldFromTrace builds the trace's world with its initial readings and scheduled events.
func NewWorldFromTrace(t *Trace, logger logging.Logger) (*World, error) {
	w, err := NewWorld(t.World, logger)
	if err != nil {
		return nil, err
	}
	w.Script(t.Initial)
	w.Schedule(t.Events...)
	return w, nil
}

// Script applies an event's readings now, ignoring its trigger.
func (w *World) Script(ev Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.apply(ev)
}

// Schedule adds triggered events.
func (w *World) Schedule(events ...Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events.add(events...)
}

func (w *World) apply(ev Event) {
	if ev.Line != nil {
		if ev.Line.Width != nil {
			w.edge.Width = *ev.Line.Width
		}
		if ev.Line.Valid != nil {
			w.edge.Valid = *ev.Line.Valid
		}
	}
	for i, r := range ev.Ranges {
		if i < len(w.ranges) {
			w.ranges[i] = r
		}
	}
	if ev.Ball != nil {
		found := ev.Ball.Found == nil || *ev.Ball.Found
		w.ball = ball{center: image.Pt(ev.Ball.X, ev.Ball.Y), found: found, heading: w.yaw, travel: w.travel}
	}
	if len(ev.Accel) == 3 {
		w.accel = r3.Vector{X: ev.Accel[0], Y: ev.Accel[1], Z: ev.Accel[2]}
	}
}

// schedule holds pending events in trigger order, one queue per trigger kind.
type schedule struct {
	byTime     []Event
	byDistance []Event
}

func (s *schedule) add(events ...Event) {
	s.byTime = append(s.byTime, lo.Filter(events, func(ev Event, _ int) bool { return ev.At != nil })...)
	s.byDistance = append(s.byDistance, lo.Filter(events, func(ev Event, _ int) bool { return ev.Distance != nil })...)
	sort.SliceStable(s.byTime, func(i, j int) bool { return *s.byTime[i].At < *s.byTime[j].At })
	sort.SliceStable(s.byDistance, func(i, j int) bool { return *s.byDistance[i].Distance < *s.byDistance[j].Distance })
}

// due pops the events triggered at elapsed time and odometer reading, time events first.
func (s *schedule) due(elapsed time.Duration, odometer float64) []Event {
	var out []Event
	for len(s.byTime) > 0 && *s.byTime[0].At <= elapsed {
		out = append(out, s.byTime[0])
		s.byTime = s.byTime[1:]
	}
	for len(s.byDistance) > 0 && *s.byDistance[0].Distance <= odometer {
		out = append(out, s.byDistance[0])
		s.byDistance = s.byDistance[1:]
	}
	return out
}
