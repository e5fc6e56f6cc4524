package sim

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/utils"

	rutils "robobot.dev/raubase/utils"
)

// Clock is the deterministic time source of a simulated run. Time only moves when the mission
// sleeps, and the world is stepped through the slept interval, so identical traces produce
// identical runs.
type Clock struct {
	mu    sync.Mutex
	world *World
	now   time.Time
}

// NewClock returns a clock stepping world, starting at start.
func NewClock(world *World, start time.Time) *Clock {
	return &Clock{world: world, now: start}
}

// Now returns the simulated time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep steps the world through d in integration steps.
func (c *Clock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	step := c.world.cfg.Step
	for d > 0 {
		dt := step
		if d < dt {
			dt = d
		}
		c.now = c.now.Add(dt)
		c.world.Step(c.now, dt)
		d -= dt
	}
}

// Run steps the world in real time on its own goroutine until ctx is done or the workers are
// stopped. Missions then run against clk, normally clock.New().
func (w *World) Run(ctx context.Context, clk clock.Clock) rutils.StoppableWorkers {
	step := w.cfg.Step
	return rutils.NewStoppableWorkers(ctx, func(ctx context.Context) {
		ticker := clk.Ticker(step)
		defer ticker.Stop()
		last := clk.Now()
		for {
			if !utils.SelectContextOrWaitChan(ctx, ticker.C) {
				return
			}
			now := clk.Now()
			w.Step(now, now.Sub(last))
			last = now
		}
	})
}
