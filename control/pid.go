package control

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"robobot.dev/raubase/logging"
)

// basicPID is a PID controller with output clamping and integrator anti-windup.
type basicPID struct {
	mu      sync.Mutex
	cfg     BlockConfig
	error   float64
	kI      float64
	kD      float64
	kP      float64
	int     float64
	sat     int
	y       float64
	limUp   float64
	limLo   float64
	started bool
	logger  logging.Logger
}

func newPID(config BlockConfig, logger logging.Logger) (Block, error) {
	p := &basicPID{cfg: config, logger: logger}
	if err := p.reset(); err != nil {
		return nil, err
	}
	return p, nil
}

// Next steps the controller with error x. The output is false while the integrator saturates
// in the direction of the error; the last output stays in effect.
func (p *basicPID) Next(ctx context.Context, x float64, dt time.Duration) (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	dtS := dt.Seconds()
	if dtS <= 0 {
		return p.y, false
	}
	if (p.sat > 0 && x > 0) || (p.sat < 0 && x < 0) {
		return p.y, false
	}
	p.int += p.kI * x * dtS
	switch {
	case p.int > p.limUp:
		p.int = p.limUp
		p.sat = 1
	case p.int < p.limLo:
		p.int = p.limLo
		p.sat = -1
	default:
		p.sat = 0
	}
	deriv := 0.0
	if p.started {
		deriv = (x - p.error) / dtS
	}
	p.started = true
	output := p.kP*x + p.int + p.kD*deriv
	p.error = x
	switch {
	case output > p.limUp:
		output = p.limUp
	case output < p.limLo:
		output = p.limLo
	}
	p.y = output
	return p.y, true
}

func (p *basicPID) reset() error {
	p.int = 0
	p.error = 0
	p.sat = 0
	p.y = 0
	p.started = false

	if !p.cfg.Attribute.Has("kI") &&
		!p.cfg.Attribute.Has("kD") &&
		!p.cfg.Attribute.Has("kP") {
		return errors.Errorf("pid block %s should have at least one kI, kP or kD field", p.cfg.Name)
	}
	p.kI = p.cfg.Attribute.Float64("kI", 0.0)
	p.kD = p.cfg.Attribute.Float64("kD", 0.0)
	p.kP = p.cfg.Attribute.Float64("kP", 0.0)
	p.limUp = p.cfg.Attribute.Float64("limit_up", 100.0)
	p.limLo = p.cfg.Attribute.Float64("limit_lo", -100.0)
	if p.limLo >= p.limUp {
		return errors.Errorf("pid block %s limit_lo %v must be below limit_up %v", p.cfg.Name, p.limLo, p.limUp)
	}
	return nil
}

func (p *basicPID) Reset(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reset()
}

func (p *basicPID) UpdateConfig(ctx context.Context, config BlockConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg = config
	return p.reset()
}

func (p *basicPID) Output(ctx context.Context) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.y
}

func (p *basicPID) Config(ctx context.Context) BlockConfig {
	return p.cfg
}
