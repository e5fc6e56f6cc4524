package control

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"

	"robobot.dev/raubase/logging"
)

// rateLimiter follows its input with a bounded slope, the acceleration limit of a velocity
// profile.
type rateLimiter struct {
	mu      sync.Mutex
	cfg     BlockConfig
	maxRate float64
	y       float64
	logger  logging.Logger
}

func newRateLimiter(config BlockConfig, logger logging.Logger) (Block, error) {
	r := &rateLimiter{cfg: config, logger: logger}
	if err := r.reset(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *rateLimiter) Next(ctx context.Context, x float64, dt time.Duration) (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	step := r.maxRate * dt.Seconds()
	velUp := r.y + step
	velDown := r.y - step
	r.y = math.Max(velDown, math.Min(velUp, x))
	return r.y, true
}

func (r *rateLimiter) reset() error {
	if !r.cfg.Attribute.Has("max_rate") {
		return errors.Errorf("rate limiter block %s needs max_rate field", r.cfg.Name)
	}
	r.maxRate = r.cfg.Attribute.Float64("max_rate", 0)
	if r.maxRate <= 0 {
		return errors.Errorf("rate limiter block %s max_rate must be positive", r.cfg.Name)
	}
	r.y = 0
	return nil
}

func (r *rateLimiter) Reset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reset()
}

func (r *rateLimiter) UpdateConfig(ctx context.Context, config BlockConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = config
	return r.reset()
}

func (r *rateLimiter) Output(ctx context.Context) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.y
}

func (r *rateLimiter) Config(ctx context.Context) BlockConfig {
	return r.cfg
}
