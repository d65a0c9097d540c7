package sim

import (
	"context"
	"time"

	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"

	"github.com/robotalks/flipbot/pkg/firmware"
	fx "github.com/robotalks/flipbot/pkg/framework"
	hsim "github.com/robotalks/flipbot/pkg/hal/sim"
	"github.com/robotalks/flipbot/pkg/telemetry"
)

const (
	// DefaultDecivolts is the initial battery voltage.
	DefaultDecivolts = 74
	// BridgeHz is the PWM rate of the simulated motor controller feeding
	// the pulse inputs.
	BridgeHz = 625
	// IdleSleep is how long the firmware loop yields between iterations.
	IdleSleep = 200 * time.Microsecond
)

// Simulator runs the firmware on a simulated board in a flat world.
type Simulator struct {
	Topics   telemetry.Topics
	Config   *firmware.Config
	Board    *hsim.Board
	Firmware *firmware.Firmware
	Chassis  *Chassis

	// Inputs and Throttle drive the pulse inputs. Nil unless the firmware
	// decodes pulses.
	Inputs   [2]*hsim.BridgeSource
	Throttle *hsim.ServoSource
}

// New creates a Simulator.
func New(conf *firmware.Config, topics telemetry.Topics) (*Simulator, error) {
	b := hsim.NewBoard(conf.CPUHz)
	b.Battery.Set(DefaultDecivolts)
	s := &Simulator{Topics: topics, Config: conf, Board: b}
	if conf.Source == firmware.SourcePulse {
		period := conf.CPUHz / BridgeHz
		s.Inputs[0] = hsim.NewBridgeSource(b.GPIO, conf.Pins.Input1.A, conf.Pins.Input1.B, period)
		s.Inputs[1] = hsim.NewBridgeSource(b.GPIO, conf.Pins.Input2.A, conf.Pins.Input2.B, period)
		s.Throttle = hsim.NewServoSource(b.GPIO, conf.Pins.Throttle, conf.CPUHz)
		b.Clock.Attach(s.Inputs[0], s.Inputs[1], s.Throttle)
	}
	fw, err := firmware.New(conf, firmware.SimHardware(b))
	if err != nil {
		return nil, err
	}
	fw.Loop.Idle = func() { time.Sleep(IdleSleep) }
	s.Firmware = fw
	s.Chassis = NewChassis(conf.CPUHz, fw.Motors.BrushedPower, func() bool {
		return UpsideDown(b.Accel.Attitude())
	})
	b.Clock.Attach(s.Chassis)
	return s, nil
}

// Name implements fx.Named.
func (s *Simulator) Name() string {
	return "simulator"
}

// SetTilt sets the chassis attitude.
func (s *Simulator) SetTilt(m *telemetry.Tilt) {
	s.Board.Accel.SetAttitude(m.Roll, m.Pitch)
	glog.V(2).Infof("tilt roll=%.1f pitch=%.1f", m.Roll, m.Pitch)
}

// SetInput drives the simulated inputs. Pulse inputs are ignored when
// the firmware doesn't decode them.
func (s *Simulator) SetInput(m *telemetry.Input) {
	if s.Throttle != nil {
		s.Inputs[0].SetPower(int(m.Motor1))
		s.Inputs[1].SetPower(int(m.Motor2))
		s.Throttle.SetWidth(time.Duration(m.ThrottleMicros) * time.Microsecond)
	}
	// active low
	s.Board.GPIO.SetPin(s.Config.Pins.Button, !m.Button)
	if m.Decivolts != 0 {
		s.Board.Battery.Set(uint16(m.Decivolts))
	}
	glog.V(2).Infof("input %s", m.String())
}

// HandleTilt implements telemetry.Handler.
func (s *Simulator) HandleTilt(topic string, payload []byte) {
	var m telemetry.Tilt
	if err := proto.Unmarshal(payload, &m); err != nil {
		glog.Warningf("invalid tilt on %s: %v", topic, err)
		return
	}
	s.SetTilt(&m)
}

// HandleInput implements telemetry.Handler.
func (s *Simulator) HandleInput(topic string, payload []byte) {
	var m telemetry.Input
	if err := proto.Unmarshal(payload, &m); err != nil {
		glog.Warningf("invalid input on %s: %v", topic, err)
		return
	}
	s.SetInput(&m)
}

// Subscribe receives commands from q.
func (s *Simulator) Subscribe(q *telemetry.Queue) {
	q.Sub(s.Topics.Tilt(), s.HandleTilt)
	q.Sub(s.Topics.Input(), s.HandleInput)
}

// Status reports the firmware state with the chassis pose.
func (s *Simulator) Status() *telemetry.Status {
	m := telemetry.NewStatus(s.Topics.Type, s.Topics.ID, s.Firmware.Snapshot())
	pose := s.Chassis.Pose()
	m.X, m.Y, m.Heading = pose.X, pose.Y, pose.Orientation.Degrees()
	return m
}

// Run implements fx.Runnable. The clock follows wall time.
func (s *Simulator) Run(ctx context.Context) error {
	return fx.NewRunnerWith(ctx).
		Go(fx.NamedRun("clock", s.Board.Clock), s.Firmware).
		Wait()
}
