package sim

import (
	"math"
	"sync"
)

const (
	// DefaultMaxSpeed is the wheel speed at full power in mm/s.
	DefaultMaxSpeed = 600
	// DefaultTrack is the distance between the wheels in mm.
	DefaultTrack = 90
	// DefaultStepHz is the rate the pose is integrated at.
	DefaultStepHz = 1000
)

// Chassis is a differential drive body moved by the brushed motor powers.
// It is attached to the board clock as a device so it moves in simulated
// time.
//
// Upside down, the wheels swap sides and spin the other way relative to
// the ground.
type Chassis struct {
	MaxSpeed float64
	Track    float64
	// Power reads the applied power of a brushed channel.
	Power func(ch int) int
	// Inverted tells whether the chassis is upside down.
	Inverted func() bool

	lock     sync.Mutex
	pose     Pose2D
	period   uint32
	secs     float64
	residual uint32
}

// NewChassis creates a Chassis for a CPU running at hz.
func NewChassis(hz uint32, power func(int) int, inverted func() bool) *Chassis {
	period := hz / DefaultStepHz
	if period == 0 {
		period = 1
	}
	return &Chassis{
		MaxSpeed: DefaultMaxSpeed,
		Track:    DefaultTrack,
		Power:    power,
		Inverted: inverted,
		period:   period,
		secs:     float64(period) / float64(hz),
	}
}

// Step implements Device.
func (c *Chassis) Step(cycles uint32) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.residual += cycles
	for c.residual >= c.period {
		c.residual -= c.period
		c.integrate()
	}
}

func (c *Chassis) integrate() {
	left, right := c.WheelSpeeds()
	speed := (left + right) / 2
	c.pose.Pos2D.OffsetBy(c.pose.Orientation.Project(speed * c.secs))
	c.pose.Orientation = c.pose.Orientation.AddRadians((right - left) / c.Track * c.secs)
}

// WheelSpeeds returns the ground speed of the left and right wheels in mm/s.
func (c *Chassis) WheelSpeeds() (left, right float64) {
	l, r := float64(c.Power(0)), float64(c.Power(1))
	if c.Inverted != nil && c.Inverted() {
		l, r = -r, -l
	}
	scale := c.MaxSpeed / 255
	return l * scale, r * scale
}

// Pose returns the current pose.
func (c *Chassis) Pose() Pose2D {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.pose
}

// SetPose places the chassis.
func (c *Chassis) SetPose(pose Pose2D) {
	c.lock.Lock()
	c.pose = pose
	c.lock.Unlock()
}

// UpsideDown tells whether an attitude in degrees has the top facing
// the ground.
func UpsideDown(roll, pitch float64) bool {
	return math.Cos(roll*math.Pi/180)*math.Cos(pitch*math.Pi/180) < 0
}
