// Package fake assembles a robot from in memory fakes.
package fake

import (
	"robobot.dev/raubase/components/board/fake"
	linefake "robobot.dev/raubase/components/lineedge/fake"
	mixerfake "robobot.dev/raubase/components/mixer/fake"
	imufake "robobot.dev/raubase/components/movementsensor/fake"
	"robobot.dev/raubase/components/odometry"
	rangefake "robobot.dev/raubase/components/rangefinder/fake"
	servofake "robobot.dev/raubase/components/servo/fake"
	"robobot.dev/raubase/robot"
	visionfake "robobot.dev/raubase/services/vision/fake"
)

// Robot exposes the concrete fakes behind a robot.Robot so tests can drive them.
type Robot struct {
	*robot.Robot
	Mixer     *mixerfake.Mixer
	Servo     *servofake.Servo
	Odometry  *odometry.Accumulator
	Line      *linefake.Detector
	Ranges    *rangefake.Rangefinder
	IMU       *imufake.IMU
	Balls     *visionfake.BallFinder
	Indicator *fake.GPIOPin
}

// NewRobot returns a robot with two range sensors reading 2 m, a valid line and a level IMU.
func NewRobot() *Robot {
	f := &Robot{
		Mixer:     mixerfake.NewMixer(),
		Servo:     servofake.NewServo(4),
		Odometry:  odometry.NewAccumulator(),
		Line:      linefake.NewDetector(),
		Ranges:    rangefake.NewRangefinder(2, 2),
		IMU:       imufake.NewIMU(),
		Balls:     visionfake.NewBallFinder(),
		Indicator: &fake.GPIOPin{},
	}
	r, err := robot.New(robot.Parts{
		Mixer:     f.Mixer,
		Servo:     f.Servo,
		Odometry:  f.Odometry,
		Line:      f.Line,
		Ranges:    f.Ranges,
		IMU:       f.IMU,
		Balls:     f.Balls,
		Indicator: f.Indicator,
	})
	if err != nil {
		// unreachable, every required part is set above
		panic(err)
	}
	f.Robot = r
	return f
}
