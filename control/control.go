// Package control holds the small discrete controllers the simulator's drive plant and the
// sensor checks are built from. Blocks are configured by name and attributes and stepped with
// the elapsed time.
package control

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"robobot.dev/raubase/logging"
)

type blockType string

const (
	blockPID           blockType = "PID"
	blockRateLimiter   blockType = "rateLimiter"
	blockMovingAverage blockType = "movingAverage"
)

// AttributeMap holds the block specific settings.
type AttributeMap map[string]interface{}

// Has reports whether key is set.
func (a AttributeMap) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// Float64 returns key as a float, def when it is absent or not numeric.
func (a AttributeMap) Float64(key string, def float64) float64 {
	v, ok := a[key]
	if !ok {
		return def
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return def
	}
	return f
}

// Int returns key as an int, def when it is absent or not numeric.
func (a AttributeMap) Int(key string, def int) int {
	v, ok := a[key]
	if !ok {
		return def
	}
	i, err := cast.ToIntE(v)
	if err != nil {
		return def
	}
	return i
}

// BlockConfig configures a block.
type BlockConfig struct {
	Name      string       `json:"name"`
	Type      blockType    `json:"type"`
	Attribute AttributeMap `json:"attributes"`
}

// Block is a discrete single input single output element.
type Block interface {
	// Reset returns the block to its initial state.
	Reset(ctx context.Context) error

	// Next computes the output for input x after dt. It returns false when the output is not
	// valid; the previous output should then be used.
	Next(ctx context.Context, x float64, dt time.Duration) (float64, bool)

	// UpdateConfig reconfigures the block and resets it.
	UpdateConfig(ctx context.Context, config BlockConfig) error

	// Output returns the most recent valid output.
	Output(ctx context.Context) float64

	// Config returns the block configuration.
	Config(ctx context.Context) BlockConfig
}

// NewBlock creates a block from its configuration.
func NewBlock(config BlockConfig, logger logging.Logger) (Block, error) {
	switch config.Type {
	case blockPID:
		return newPID(config, logger)
	case blockRateLimiter:
		return newRateLimiter(config, logger)
	case blockMovingAverage:
		return newMovingAverage(config, logger)
	default:
		return nil, errors.Errorf("unsupported block type %q for block %s", config.Type, config.Name)
	}
}

// PIDConfig returns the configuration of a PID block with output limited to +-limit.
func PIDConfig(name string, kp, ki, kd, limit float64) BlockConfig {
	return BlockConfig{Name: name, Type: blockPID, Attribute: AttributeMap{
		"kP": kp, "kI": ki, "kD": kd, "limit_up": limit, "limit_lo": -limit,
	}}
}

// RateLimiterConfig returns the configuration of a block limiting the slope of its input to
// maxRate units per second.
func RateLimiterConfig(name string, maxRate float64) BlockConfig {
	return BlockConfig{Name: name, Type: blockRateLimiter, Attribute: AttributeMap{"max_rate": maxRate}}
}

// MovingAverageConfig returns the configuration of a moving average over size samples.
func MovingAverageConfig(name string, size int) BlockConfig {
	return BlockConfig{Name: name, Type: blockMovingAverage, Attribute: AttributeMap{"filter_size": size}}
}
