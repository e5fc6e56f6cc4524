package logging

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// LoggerPatternConfig is an instance of a level specification for a given logger.
type LoggerPatternConfig struct {
	Pattern string `json:"pattern" toml:"pattern"`
	Level   string `json:"level" toml:"level"`
}

const (
	// e.g. "seesaw".
	validLoggerSectionName = `[a-zA-Z0-9]+([_-]*[a-zA-Z0-9]+)*`
	// e.g. "seesaw" or "*".
	validLoggerSectionNameWithWildcard = `(` + validLoggerSectionName + `|\*)`
	// e.g. "mission.*.seesaw". Restricted to the entire pattern.
	validLoggerName = `^` + validLoggerSectionNameWithWildcard + `(\.` + validLoggerSectionNameWithWildcard + `)*$`
)

var (
	loggerPatternRegexp  = regexp.MustCompile(validLoggerName)
	globalLoggerRegistry = newRegistry()
)

func validatePattern(pattern string) bool {
	return loggerPatternRegexp.MatchString(pattern)
}

func buildRegexFromPattern(pattern string) string {
	var matcher strings.Builder
	matcher.WriteRune('^')
	for _, ch := range pattern {
		switch ch {
		case '*':
			matcher.WriteString(`.*`)
		case '.':
			matcher.WriteString(`\.`)
		default:
			matcher.WriteRune(ch)
		}
	}
	matcher.WriteRune('$')
	return matcher.String()
}

// ParsePatternConfig parses a `pattern=level` pair as accepted by the `--log` flag,
// e.g. "mission.seesaw=debug".
func ParsePatternConfig(spec string) (LoggerPatternConfig, error) {
	pattern, level, found := strings.Cut(spec, "=")
	if !found || pattern == "" {
		return LoggerPatternConfig{}, errors.Errorf("log level %q must have the form pattern=level", spec)
	}
	if !validatePattern(pattern) {
		return LoggerPatternConfig{}, errors.Errorf("invalid logger pattern %q", pattern)
	}
	if _, err := LevelFromString(level); err != nil {
		return LoggerPatternConfig{}, err
	}
	return LoggerPatternConfig{Pattern: pattern, Level: level}, nil
}

// Registry tracks named loggers so their levels can be changed by pattern after creation.
type Registry struct {
	mu        sync.RWMutex
	loggers   map[string]Logger
	logConfig []LoggerPatternConfig
}

func newRegistry() *Registry {
	return &Registry{
		loggers: make(map[string]Logger),
	}
}

// register stores the logger under its name, replacing any previous logger of the same name, and
// applies the current pattern configuration to it.
func (lr *Registry) register(name string, logger Logger) {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	lr.loggers[name] = logger
	for _, lpc := range lr.logConfig {
		if matchesPattern(lpc.Pattern, name) {
			if level, err := LevelFromString(lpc.Level); err == nil {
				logger.SetLevel(level)
			}
		}
	}
}

func (lr *Registry) loggerNamed(name string) (logger Logger, ok bool) {
	lr.mu.RLock()
	defer lr.mu.RUnlock()
	logger, ok = lr.loggers[name]
	return
}

// Update replaces the pattern configuration. Matching loggers take the level of the last pattern
// that matches them; all others are reset to INFO. Invalid patterns are reported to errorLogger
// and skipped.
func (lr *Registry) Update(logConfig []LoggerPatternConfig, errorLogger Logger) error {
	valid := make([]LoggerPatternConfig, 0, len(logConfig))
	for _, lpc := range logConfig {
		if !validatePattern(lpc.Pattern) {
			errorLogger.Warnw("failed to validate a pattern", "pattern", lpc.Pattern)
			continue
		}
		if _, err := LevelFromString(lpc.Level); err != nil {
			return err
		}
		valid = append(valid, lpc)
	}

	lr.mu.Lock()
	defer lr.mu.Unlock()
	lr.logConfig = valid
	for name, logger := range lr.loggers {
		level := INFO
		for _, lpc := range valid {
			if matchesPattern(lpc.Pattern, name) {
				//nolint:errcheck
				level, _ = LevelFromString(lpc.Level)
			}
		}
		logger.SetLevel(level)
	}
	return nil
}

// Names returns the sorted names of all registered loggers.
func (lr *Registry) Names() []string {
	lr.mu.RLock()
	defer lr.mu.RUnlock()
	names := make([]string, 0, len(lr.loggers))
	for name := range lr.loggers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func matchesPattern(pattern, name string) bool {
	r, err := regexp.Compile(buildRegexFromPattern(pattern))
	if err != nil {
		return false
	}
	return r.MatchString(name)
}

func register(logger *impl) Logger {
	if logger.name != "" {
		globalLoggerRegistry.register(logger.name, logger)
	}
	return logger
}

// UpdateLoggerConfig applies pattern based levels to every logger created so far and to every
// logger created afterwards.
func UpdateLoggerConfig(logConfig []LoggerPatternConfig, errorLogger Logger) error {
	return globalLoggerRegistry.Update(logConfig, errorLogger)
}

// RegisteredLoggerNames lists the names of every logger created through this package.
func RegisteredLoggerNames() []string {
	return globalLoggerRegistry.Names()
}
