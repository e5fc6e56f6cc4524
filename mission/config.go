package mission

import (
	"sort"

	"github.com/samber/lo"

	"robobot.dev/raubase/config"
	"robobot.dev/raubase/logging"
)

// Validator is implemented by mission configs.
type Validator interface {
	Validate(path string) error
}

// Profiles are the built in configurations of a mission. Near duplicate variants of a mission
// are separate profiles rather than a merged guess.
type Profiles[T Validator] struct {
	Default string
	Builtin map[string]T
}

// Names returns the profile names, default first.
func (p Profiles[T]) Names() []string {
	rest := lo.Without(lo.Keys(p.Builtin), p.Default)
	sort.Strings(rest)
	return append([]string{p.Default}, rest...)
}

// LoadConfig resolves a mission config: the profile named by the section's `profile` key (the
// default profile when absent), then the section's own keys, then the
// [<mission>.profiles.<profile>] table. A config that fails to decode or validate is reported
// and the untouched built in profile is used.
func LoadConfig[T Validator](section *config.Section, profiles Profiles[T], logger logging.Logger) (T, string) {
	name := section.String("profile", profiles.Default)
	base, ok := profiles.Builtin[name]
	if !ok {
		logger.Errorw("unknown mission profile, using default",
			"mission", section.Name(), "profile", name, "default", profiles.Default)
		name = profiles.Default
		base = profiles.Builtin[name]
	}

	cfg := base
	err := section.Decode(&cfg)
	if err == nil {
		err = section.DecodeProfile(name, &cfg)
	}
	if err == nil {
		err = cfg.Validate(section.Name())
	}
	if err != nil {
		logger.Errorw("invalid mission config, using built in profile",
			"mission", section.Name(), "profile", name, "error", err)
		return base, name
	}
	return cfg, name
}
