package control

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"robobot.dev/raubase/logging"
)

// movingAverage is a FIR moving average over the last filter_size inputs.
type movingAverage struct {
	mu     sync.Mutex
	cfg    BlockConfig
	size   int
	buf    []float64
	next   int
	sum    float64
	y      float64
	logger logging.Logger
}

func newMovingAverage(config BlockConfig, logger logging.Logger) (Block, error) {
	f := &movingAverage{cfg: config, logger: logger}
	if err := f.reset(); err != nil {
		return nil, err
	}
	return f, nil
}

// Next adds x. The output is invalid until the window is full.
func (f *movingAverage) Next(ctx context.Context, x float64, dt time.Duration) (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.buf) < f.size {
		f.buf = append(f.buf, x)
		f.sum += x
		if len(f.buf) < f.size {
			return f.y, false
		}
	} else {
		f.sum += x - f.buf[f.next]
		f.buf[f.next] = x
		f.next = (f.next + 1) % f.size
	}
	f.y = f.sum / float64(f.size)
	return f.y, true
}

func (f *movingAverage) reset() error {
	if !f.cfg.Attribute.Has("filter_size") {
		return errors.Errorf("filter %s should have a filter_size field", f.cfg.Name)
	}
	f.size = f.cfg.Attribute.Int("filter_size", 0)
	if f.size <= 0 {
		return errors.Errorf("filter %s filter_size must be positive", f.cfg.Name)
	}
	f.buf = make([]float64, 0, f.size)
	f.next = 0
	f.sum = 0
	f.y = 0
	return nil
}

func (f *movingAverage) Reset(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reset()
}

func (f *movingAverage) UpdateConfig(ctx context.Context, config BlockConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cfg = config
	return f.reset()
}

func (f *movingAverage) Output(ctx context.Context) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.y
}

func (f *movingAverage) Config(ctx context.Context) BlockConfig {
	return f.cfg
}
