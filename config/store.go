// Package config is the robot's configuration store: a TOML file with one table per mission and
// a few service tables. Lookups never fail; a missing or malformed value yields the caller's
// default and a warning.
package config

import (
	"bytes"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"robobot.dev/raubase/logging"
)

// DefaultPath is the configuration file used when none is given.
const DefaultPath = "robot.toml"

// ProfilesKey is the table inside a section that holds named profile overrides.
const ProfilesKey = "profiles"

// Store holds the parsed configuration.
type Store struct {
	mu     sync.Mutex
	path   string
	data   map[string]interface{}
	dirty  bool
	logger logging.Logger
}

// New returns an empty store that is not backed by a file.
func New(logger logging.Logger) *Store {
	return &Store{data: map[string]interface{}{}, logger: logger}
}

// Read loads the store from path. A missing file gives an empty store that Save will create.
func Read(path string, logger logging.Logger) (*Store, error) {
	buf, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logger.Infow("no configuration file, using defaults", "path", path)
		s := New(logger)
		s.path = path
		return s, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %s", path)
	}
	return FromReader(path, bytes.NewReader(buf), logger)
}

// FromReader parses TOML from r. originalPath is where Save writes, empty for none.
func FromReader(originalPath string, r io.Reader, logger logging.Logger) (*Store, error) {
	data := map[string]interface{}{}
	if err := toml.NewDecoder(r).Decode(&data); err != nil {
		return nil, errors.Wrapf(err, "failed to decode config %s", originalPath)
	}
	return &Store{path: originalPath, data: data, logger: logger}, nil
}

// Path returns the backing file, empty when there is none.
func (s *Store) Path() string {
	return s.path
}

// Dirty reports whether defaults were written since the last Save.
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Section returns the named table, created on first write.
func (s *Store) Section(name string) *Section {
	return &Section{store: s, name: name}
}

// Sections lists the top level tables, sorted.
func (s *Store) Sections() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for k, v := range s.data {
		if _, ok := v.(map[string]interface{}); ok {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}

// Encode writes the store as TOML.
func (s *Store) Encode(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return toml.NewEncoder(w).Encode(s.data)
}

// Save writes the store back to its file when defaults were added.
func (s *Store) Save() error {
	if s.path == "" || !s.Dirty() {
		return nil
	}
	var buf bytes.Buffer
	if err := s.Encode(&buf); err != nil {
		return errors.Wrap(err, "failed to encode config")
	}
	if err := os.WriteFile(s.path, buf.Bytes(), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write config %s", s.path)
	}
	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()
	return nil
}

// Section is one table of the store.
type Section struct {
	store *Store
	name  string
}

// Name returns the table name.
func (sec *Section) Name() string {
	return sec.name
}

// table returns the section map, nil when absent. The store lock must be held.
func (sec *Section) table() map[string]interface{} {
	t, _ := sec.store.data[sec.name].(map[string]interface{})
	return t
}

func (sec *Section) lookup(key string) (interface{}, bool) {
	sec.store.mu.Lock()
	defer sec.store.mu.Unlock()
	v, ok := sec.table()[key]
	return v, ok
}

// Has reports whether key is set.
func (sec *Section) Has(key string) bool {
	_, ok := sec.lookup(key)
	return ok
}

// Set stores a value and marks the store dirty.
func (sec *Section) Set(key string, value interface{}) {
	sec.store.mu.Lock()
	defer sec.store.mu.Unlock()
	t := sec.table()
	if t == nil {
		t = map[string]interface{}{}
		sec.store.data[sec.name] = t
	}
	t[key] = value
	sec.store.dirty = true
}

func (sec *Section) malformed(key string, v interface{}, err error) {
	sec.store.logger.Warnw("malformed config value, using default",
		"section", sec.name, "key", key, "value", v, "error", err)
}

// Bool returns a boolean; "true"/"false" strings are accepted.
func (sec *Section) Bool(key string, def bool) bool {
	v, ok := sec.lookup(key)
	if !ok {
		return def
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		sec.malformed(key, v, err)
		return def
	}
	return b
}

// Float returns a number.
func (sec *Section) Float(key string, def float64) float64 {
	v, ok := sec.lookup(key)
	if !ok {
		return def
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		sec.malformed(key, v, err)
		return def
	}
	return f
}

// Int returns an integer.
func (sec *Section) Int(key string, def int) int {
	v, ok := sec.lookup(key)
	if !ok {
		return def
	}
	i, err := cast.ToIntE(v)
	if err != nil {
		sec.malformed(key, v, err)
		return def
	}
	return i
}

// String returns a string.
func (sec *Section) String(key, def string) string {
	v, ok := sec.lookup(key)
	if !ok {
		return def
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		sec.malformed(key, v, err)
		return def
	}
	return s
}

// Decode decodes the section's plain keys into out, a pointer to a struct with mapstructure
// tags. Fields of out without a key keep their value, and the profiles table is skipped.
func (sec *Section) Decode(out interface{}) error {
	sec.store.mu.Lock()
	input := make(map[string]interface{}, len(sec.table()))
	for k, v := range sec.table() {
		if k != ProfilesKey {
			input[k] = v
		}
	}
	sec.store.mu.Unlock()
	return errors.Wrapf(decode(input, out), "section %s", sec.name)
}

// DecodeProfile decodes the [<section>.profiles.<profile>] table into out. A missing table is
// not an error.
func (sec *Section) DecodeProfile(profile string, out interface{}) error {
	sec.store.mu.Lock()
	profiles, _ := sec.table()[ProfilesKey].(map[string]interface{})
	input, _ := profiles[profile].(map[string]interface{})
	sec.store.mu.Unlock()
	if input == nil {
		return nil
	}
	return errors.Wrapf(decode(input, out), "section %s profile %s", sec.name, profile)
}

// ProfileNames lists the profile tables of the section.
func (sec *Section) ProfileNames() []string {
	sec.store.mu.Lock()
	defer sec.store.mu.Unlock()
	profiles, _ := sec.table()[ProfilesKey].(map[string]interface{})
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func decode(input map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}
