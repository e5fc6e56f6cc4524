package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.viam.com/test"

	"robobot.dev/raubase/logging"
)

const sample = `
[service]
missions = ["axe", "seesaw"]
settle = "250ms"
continue_on_lost = true

[seesaw]
run = "false"
log = true
print = "yes please"
velocity = 0.25
profile = "fast"

[seesaw.profiles.fast]
velocity = 0.4
wait = "2s"
`

type seesawConf struct {
	Velocity float64       `mapstructure:"velocity"`
	Wait     time.Duration `mapstructure:"wait"`
	Edge     float64       `mapstructure:"edge"`
}

func TestSectionLookups(t *testing.T) {
	logger, observed := logging.NewObservedTestLogger(t)
	s, err := FromReader("", strings.NewReader(sample), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Sections(), test.ShouldResemble, []string{"seesaw", "service"})

	sec := s.Section("seesaw")
	test.That(t, sec.Bool("run", true), test.ShouldBeFalse)
	test.That(t, sec.Bool("log", false), test.ShouldBeTrue)
	test.That(t, sec.Bool("missing", true), test.ShouldBeTrue)
	test.That(t, sec.Float("velocity", 0), test.ShouldEqual, 0.25)
	test.That(t, sec.String("profile", "default"), test.ShouldEqual, "fast")
	test.That(t, sec.Int("velocity", 3), test.ShouldEqual, 0)

	// Malformed values fall back with a warning.
	test.That(t, sec.Bool("print", false), test.ShouldBeFalse)
	test.That(t, observed.FilterMessage("malformed config value, using default").Len(), test.ShouldEqual, 1)
	test.That(t, sec.ProfileNames(), test.ShouldResemble, []string{"fast"})
}

func TestSectionDecode(t *testing.T) {
	s, err := FromReader("", strings.NewReader(sample), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	sec := s.Section("seesaw")

	conf := seesawConf{Velocity: 0.3, Wait: 3 * time.Second, Edge: 0.098}
	test.That(t, sec.Decode(&conf), test.ShouldBeNil)
	test.That(t, conf, test.ShouldResemble, seesawConf{Velocity: 0.25, Wait: 3 * time.Second, Edge: 0.098})

	test.That(t, sec.DecodeProfile("fast", &conf), test.ShouldBeNil)
	test.That(t, conf, test.ShouldResemble, seesawConf{Velocity: 0.4, Wait: 2 * time.Second, Edge: 0.098})

	test.That(t, sec.DecodeProfile("absent", &conf), test.ShouldBeNil)

	bad, err := FromReader("", strings.NewReader("[seesaw]\nvelocity = \"fast\"\n"), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, bad.Section("seesaw").Decode(&conf), test.ShouldNotBeNil)
}

func TestFlagsWriteBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "robot.toml")
	s, err := Read(path, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Dirty(), test.ShouldBeFalse)

	flags := s.Section("axe").Flags()
	test.That(t, flags, test.ShouldResemble, Flags{Run: true, Log: true, Print: true})
	test.That(t, s.Dirty(), test.ShouldBeTrue)
	test.That(t, s.Save(), test.ShouldBeNil)
	test.That(t, s.Dirty(), test.ShouldBeFalse)

	reread, err := Read(path, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	sec := reread.Section("axe")
	test.That(t, sec.Has("run"), test.ShouldBeTrue)
	test.That(t, sec.Has("print"), test.ShouldBeTrue)

	// Existing flags are left alone.
	sec.Set("run", false)
	test.That(t, sec.Flags().Run, test.ShouldBeFalse)

	disabled, err := FromReader("", strings.NewReader("[axe]\nrun = false\n"), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	flags = disabled.Section("axe").Flags()
	test.That(t, flags, test.ShouldResemble, Flags{Run: false, Log: true, Print: true})
	test.That(t, disabled.Section("axe").Bool("run", true), test.ShouldBeFalse)
	test.That(t, disabled.Dirty(), test.ShouldBeTrue)

	quiet, err := FromReader("", strings.NewReader("[axe]\nprint = false\n"), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, quiet.Section("axe").Flags(), test.ShouldResemble, Flags{Run: true, Log: true, Print: false})
}

func TestReadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "robot.toml")
	test.That(t, os.WriteFile(path, []byte("[axe\n"), 0o600), test.ShouldBeNil)
	_, err := Read(path, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "failed to decode config")
}

func TestService(t *testing.T) {
	s, err := FromReader("", strings.NewReader(sample), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	svc := s.Service()
	test.That(t, svc.Missions, test.ShouldResemble, []string{"axe", "seesaw"})
	test.That(t, svc.Settle, test.ShouldEqual, 250*time.Millisecond)
	test.That(t, svc.ContinueOnLost, test.ShouldBeTrue)
	test.That(t, svc.LogDir, test.ShouldEqual, "log")

	logger, observed := logging.NewObservedTestLogger(t)
	empty, err := FromReader("", strings.NewReader("[service]\nmissions = []\n"), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, empty.Service(), test.ShouldResemble, DefaultService())
	test.That(t, observed.FilterMessage("invalid service config, using defaults").Len(), test.ShouldEqual, 1)

	var buf bytes.Buffer
	test.That(t, s.Encode(&buf), test.ShouldBeNil)
	test.That(t, buf.String(), test.ShouldContainSubstring, "[seesaw.profiles.fast]")
}
