// Package sim is a deterministic plant for the robot: a drive that integrates the mixer
// commands into odometry, a heading hold, servos that move at their commanded speed, and
// sensor readings scripted by a trace. It implements every component interface, so missions run
// against it unchanged.
package sim

import (
	"context"
	"image"
	"math"
	"sync"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"robobot.dev/raubase/components/lineedge"
	"robobot.dev/raubase/components/mixer"
	"robobot.dev/raubase/components/movementsensor"
	"robobot.dev/raubase/components/odometry"
	"robobot.dev/raubase/control"
	"robobot.dev/raubase/logging"
	"robobot.dev/raubase/robot"
)

// Gravity is the standstill accelerometer reading along Z.
const Gravity = 9.81

// Config describes the simulated robot.
type Config struct {
	// Step is the integration step.
	Step time.Duration `yaml:"step"`
	// MaxAcceleration limits velocity changes, m/s^2.
	MaxAcceleration float64 `yaml:"max_acceleration"`
	// MaxTurnRate limits the heading hold until a mission sets its own limit, rad/s.
	MaxTurnRate float64 `yaml:"max_turn_rate"`
	// HeadingKp and HeadingKd are the heading hold gains.
	HeadingKp float64 `yaml:"heading_kp"`
	HeadingKd float64 `yaml:"heading_kd"`
	// Ranges is the number of distance sensors and Far their reading with nothing in view.
	Ranges int     `yaml:"ranges"`
	Far    float64 `yaml:"far"`
	// ServoChannels is the number of servo channels.
	ServoChannels int `yaml:"servo_channels"`
	// PixelsPerRadian and PixelsPerMeter move a seen ball in the image as the robot turns and
	// drives.
	PixelsPerRadian float64 `yaml:"pixels_per_radian"`
	PixelsPerMeter  float64 `yaml:"pixels_per_meter"`
}

// DefaultConfig returns the robot used when a trace does not describe one.
func DefaultConfig() Config {
	return Config{
		Step:            time.Millisecond,
		MaxAcceleration: 2,
		MaxTurnRate:     3,
		HeadingKp:       6,
		HeadingKd:       0.05,
		Ranges:          2,
		Far:             2,
		ServoChannels:   4,
		PixelsPerRadian: 400,
		PixelsPerMeter:  1000,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Step <= 0 {
		c.Step = def.Step
	}
	if c.MaxAcceleration <= 0 {
		c.MaxAcceleration = def.MaxAcceleration
	}
	if c.MaxTurnRate <= 0 {
		c.MaxTurnRate = def.MaxTurnRate
	}
	if c.HeadingKp <= 0 {
		c.HeadingKp = def.HeadingKp
	}
	if c.HeadingKd < 0 {
		c.HeadingKd = def.HeadingKd
	}
	if c.Ranges <= 0 {
		c.Ranges = def.Ranges
	}
	if c.Far <= 0 {
		c.Far = def.Far
	}
	if c.ServoChannels <= 0 {
		c.ServoChannels = def.ServoChannels
	}
	if c.PixelsPerRadian == 0 {
		c.PixelsPerRadian = def.PixelsPerRadian
	}
	if c.PixelsPerMeter == 0 {
		c.PixelsPerMeter = def.PixelsPerMeter
	}
	return c
}

type steering int

const (
	steerTurnRate steering = iota
	steerHeading
	steerEdge
)

type servoState struct {
	enabled  bool
	target   int
	speed    int
	position float64
}

type ball struct {
	center  image.Point
	found   bool
	heading float64
	travel  float64
}

// World is the simulated robot and its surroundings.
type World struct {
	mu     sync.Mutex
	cfg    Config
	logger logging.Logger
	odo    *odometry.Accumulator

	velocityLimiter control.Block
	headingHold     control.Block

	// commanded
	velocity    float64
	turnRate    float64
	heading     float64
	steer       steering
	maxTurnRate float64
	commands    []mixer.Command

	// plant
	elapsed  time.Duration
	speed    float64
	rate     float64
	odometer float64
	travel   float64
	yaw      float64
	servos   map[int]*servoState

	// scripted
	edge         lineedge.Reading
	ranges       []float64
	accel        r3.Vector
	ball         ball
	calibrations []string
	events       *schedule
}

// NewWorld returns a world at rest with a valid line under the sensor and nothing in range.
func NewWorld(cfg Config, logger logging.Logger) (*World, error) {
	cfg = cfg.withDefaults()
	limiter, err := control.NewBlock(control.RateLimiterConfig("velocity", cfg.MaxAcceleration), logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create velocity limiter")
	}
	hold, err := control.NewBlock(control.PIDConfig("heading", cfg.HeadingKp, 0, cfg.HeadingKd, cfg.MaxTurnRate), logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create heading hold")
	}
	w := &World{
		cfg:             cfg,
		logger:          logger,
		odo:             odometry.NewAccumulator(),
		velocityLimiter: limiter,
		headingHold:     hold,
		maxTurnRate:     cfg.MaxTurnRate,
		servos:          map[int]*servoState{},
		edge:            lineedge.Reading{Width: 0.02, Valid: true},
		ranges:          make([]float64, cfg.Ranges),
		accel:           r3.Vector{Z: Gravity},
		events:          &schedule{},
	}
	for i := range w.ranges {
		w.ranges[i] = cfg.Far
	}
	for ch := 1; ch <= cfg.ServoChannels; ch++ {
		w.servos[ch] = &servoState{}
	}
	return w, nil
}

// Parts returns the world as robot parts. Indicator is left for the caller.
func (w *World) Parts() robot.Parts {
	return robot.Parts{
		Mixer:    w,
		Servo:    w,
		Odometry: w,
		Line:     w,
		Ranges:   w,
		IMU:      w,
		Balls:    w,
	}
}

// Robot assembles a robot whose every part is this world.
func (w *World) Robot() (*robot.Robot, error) {
	return robot.New(w.Parts())
}

// Step advances the plant by dt. at is the time after the step.
func (w *World) Step(at time.Time, dt time.Duration) {
	ctx := context.Background()
	w.mu.Lock()
	defer w.mu.Unlock()

	w.speed, _ = w.velocityLimiter.Next(ctx, w.velocity, dt)
	switch w.steer {
	case steerTurnRate:
		w.rate = w.turnRate
	case steerHeading:
		pose, _ := w.odo.Pose(ctx)
		if rate, ok := w.headingHold.Next(ctx, w.heading-pose.Turned, dt); ok {
			w.rate = rate
		}
		w.rate = math.Max(-w.maxTurnRate, math.Min(w.maxTurnRate, w.rate))
	case steerEdge:
		// the edge controller keeps the robot on the line, which the plant models as straight
		w.rate = 0
	}

	dDist := w.speed * dt.Seconds()
	dTurned := w.rate * dt.Seconds()
	w.odo.Integrate(at, dDist, dTurned, w.speed)
	w.odometer += math.Abs(dDist)
	w.travel += dDist
	w.yaw += dTurned
	w.elapsed += dt

	for _, s := range w.servos {
		if !s.enabled {
			continue
		}
		step := float64(s.speed) * dt.Seconds()
		d := float64(s.target) - s.position
		if math.Abs(d) <= step || s.speed <= 0 {
			s.position = float64(s.target)
		} else {
			s.position += math.Copysign(step, d)
		}
	}

	for _, ev := range w.events.due(w.elapsed, w.odometer) {
		w.apply(ev)
	}
}

// Elapsed returns the simulated time since the world was created.
func (w *World) Elapsed() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.elapsed
}

// Odometer returns the total distance driven, never reset.
func (w *World) Odometer() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.odometer
}

// Commands returns a copy of every mixer command received.
func (w *World) Commands() []mixer.Command {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]mixer.Command, len(w.commands))
	copy(out, w.commands)
	return out
}

// Calibrations returns the names of the calibrations applied, oldest first.
func (w *World) Calibrations() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.calibrations...)
}

func (w *World) command(cmd mixer.Command) {
	w.commands = append(w.commands, cmd)
}

// SetVelocity implements mixer.Mixer.
func (w *World) SetVelocity(ctx context.Context, velocity float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.command(mixer.Command{Kind: mixer.Velocity, Value: velocity})
	w.velocity = velocity
	return nil
}

// SetTurnRate implements mixer.Mixer.
func (w *World) SetTurnRate(ctx context.Context, rate float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.command(mixer.Command{Kind: mixer.TurnRate, Value: rate})
	w.turnRate = rate
	w.steer = steerTurnRate
	return nil
}

// SetDesiredHeading implements mixer.Mixer.
func (w *World) SetDesiredHeading(ctx context.Context, heading float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.command(mixer.Command{Kind: mixer.DesiredHeading, Value: heading})
	if w.steer != steerHeading {
		if err := w.headingHold.Reset(ctx); err != nil {
			return err
		}
	}
	w.heading = heading
	w.steer = steerHeading
	return nil
}

// SetEdgeMode implements mixer.Mixer.
func (w *World) SetEdgeMode(ctx context.Context, side mixer.Side, offset float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.command(mixer.Command{Kind: mixer.EdgeMode, Value: offset, Side: side})
	w.steer = steerEdge
	return nil
}

// SetMaxTurnRate implements mixer.Mixer.
func (w *World) SetMaxTurnRate(ctx context.Context, rate float64) error {
	if rate <= 0 {
		return errors.Errorf("max turn rate must be positive, got %v", rate)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.command(mixer.Command{Kind: mixer.MaxTurnRate, Value: rate})
	w.maxTurnRate = rate
	return nil
}

// Pose implements odometry.Odometry.
func (w *World) Pose(ctx context.Context) (odometry.Pose, error) {
	return w.odo.Pose(ctx)
}

// Reset implements odometry.Odometry.
func (w *World) Reset(ctx context.Context) error {
	return w.odo.Reset(ctx)
}

// Edge implements lineedge.Detector.
func (w *World) Edge(ctx context.Context) (lineedge.Reading, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.edge, nil
}

// Calibrate implements lineedge.Detector.
func (w *World) Calibrate(ctx context.Context, calibration lineedge.Calibration) error {
	if err := calibration.Validate("calibration"); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calibrations = append(w.calibrations, calibration.Name)
	return nil
}

// Ranges implements rangefinder.Rangefinder.
func (w *World) Ranges(ctx context.Context) ([]float64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]float64(nil), w.ranges...), nil
}

// Readings implements movementsensor.IMU. The gyro reports the plant's turn rate.
func (w *World) Readings(ctx context.Context) (movementsensor.IMUReading, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return movementsensor.IMUReading{
		Acceleration:    w.accel,
		AngularVelocity: r3.Vector{Z: w.rate * 180 / math.Pi},
	}, nil
}

// SetServo implements servo.Servo.
func (w *World) SetServo(ctx context.Context, channel int, enabled bool, target, speed int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.servos[channel]
	if !ok {
		return errors.Errorf("no servo channel %d", channel)
	}
	s.enabled = enabled
	if enabled {
		s.target = target
		s.speed = speed
	}
	return nil
}

// Position implements servo.Servo.
func (w *World) Position(ctx context.Context, channel int) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.servos[channel]
	if !ok {
		return 0, errors.Errorf("no servo channel %d", channel)
	}
	return int(math.Round(s.position)), nil
}

// FindBall implements vision.BallFinder. A ball placed by the trace moves in the image as the
// robot turns and drives towards it.
func (w *World) FindBall(ctx context.Context) (image.Point, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.ball.found {
		return image.Point{}, false, nil
	}
	dx := (w.yaw - w.ball.heading) * w.cfg.PixelsPerRadian
	dy := (w.travel - w.ball.travel) * w.cfg.PixelsPerMeter
	return w.ball.center.Add(image.Pt(int(math.Round(dx)), int(math.Round(dy)))), true, nil
}
