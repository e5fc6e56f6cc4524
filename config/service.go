package config

import (
	"time"

	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// ServiceSection is the table holding the dispatcher settings.
const ServiceSection = "service"

// Service holds the dispatcher settings.
type Service struct {
	// Missions are run in order.
	Missions []string `mapstructure:"missions" toml:"missions"`
	// LogDir receives the mission logfiles and the run history.
	LogDir string `mapstructure:"log_dir" toml:"log_dir"`
	// ServiceLog is the rotating log of the process itself, empty to disable.
	ServiceLog string `mapstructure:"service_log" toml:"service_log"`
	// ContinueOnLost keeps running the sequence after a mission that did not finish.
	ContinueOnLost bool `mapstructure:"continue_on_lost" toml:"continue_on_lost"`
	// Settle is the pause after the last mission before shutting down.
	Settle time.Duration `mapstructure:"settle" toml:"settle"`
	// IndicatorPin is the GPIO of the status LED, empty when there is none.
	IndicatorPin string `mapstructure:"indicator_pin" toml:"indicator_pin"`
	// ParkChannel, ParkPosition and ParkSpeed place the servo before the first mission.
	ParkChannel  int `mapstructure:"park_channel" toml:"park_channel"`
	ParkPosition int `mapstructure:"park_position" toml:"park_position"`
	ParkSpeed    int `mapstructure:"park_speed" toml:"park_speed"`
	// StopFile requests a stop when created.
	StopFile string `mapstructure:"stop_file" toml:"stop_file"`
}

// DefaultService returns the settings used for keys the file does not set.
func DefaultService() Service {
	return Service{
		Missions:     []string{"stairs", "seesaw"},
		LogDir:       "log",
		ServiceLog:   "log/robobot.log",
		Settle:       time.Second,
		IndicatorPin: "GPIO16",
		ParkChannel:  2,
		ParkPosition: -900,
		ParkSpeed:    200,
		StopFile:     "log/stop",
	}
}

// Validate ensures the settings can be used.
func (s Service) Validate(path string) error {
	if len(s.Missions) == 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "missions")
	}
	if s.LogDir == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "log_dir")
	}
	if s.Settle < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("settle must not be negative, got %v", s.Settle))
	}
	if s.ParkChannel < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("park_channel must not be negative, got %d", s.ParkChannel))
	}
	return nil
}

// Service decodes the service table over the defaults. An invalid table is reported and the
// defaults are used.
func (s *Store) Service() Service {
	cfg := DefaultService()
	sec := s.Section(ServiceSection)
	if sec.Has("missions") {
		cfg.Missions = nil
	}
	if err := sec.Decode(&cfg); err != nil {
		s.logger.Errorw("invalid service config, using defaults", "error", err)
		return DefaultService()
	}
	if err := cfg.Validate(ServiceSection); err != nil {
		s.logger.Errorw("invalid service config, using defaults", "error", err)
		return DefaultService()
	}
	return cfg
}
