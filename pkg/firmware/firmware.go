// Package firmware wires the control engine together: it reads the
// accelerometer, filters the orientation and drives the motors from a
// cooperative loop paced by the display tick interrupt.
package firmware

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/golang/glog"

	fx "github.com/robotalks/flipbot/pkg/framework"
	"github.com/robotalks/flipbot/pkg/hal"
	"github.com/robotalks/flipbot/pkg/lis2hh12"
	"github.com/robotalks/flipbot/pkg/motor"
	"github.com/robotalks/flipbot/pkg/orient"
	"github.com/robotalks/flipbot/pkg/pulse"
	"github.com/robotalks/flipbot/pkg/twi"
)

const (
	// TickHz is the nominal display tick rate pacing the loop.
	TickHz = 484
	// TickPrescaler is the display tick timer prescaler.
	TickPrescaler = 256
	// SamplerPrescaler is the pulse sampler timer prescaler.
	SamplerPrescaler = 8
	// ButtonValue is displayed while the button is held.
	ButtonValue = 888
)

// Hardware is the set of capabilities the firmware runs on.
type Hardware struct {
	GPIO hal.GPIO
	TWI  hal.TWI
	// TickTimer paces the loop.
	TickTimer hal.Timer
	// SamplerTimer runs the pulse decoder. Only used with SourcePulse.
	SamplerTimer   hal.Timer
	BrushedTimers  [2]hal.Timer
	SharedTimer    hal.Timer
	BrushlessTimer hal.Timer
	Voltmeter      hal.Voltmeter
	Display        hal.Display
	// Delay overrides the bus settle delay implementation.
	Delay hal.Delay
}

// Registers are the values published by the loop for other contexts.
type Registers struct {
	Downness     atomic.Int32
	Raw          atomic.Int32
	Filtered     atomic.Int32
	Accel        [3]atomic.Int32
	Samples      atomic.Uint32
	SensorErrors atomic.Uint32
	Decivolts    atomic.Uint32
	Display      atomic.Uint32
}

// Firmware is the control engine.
type Firmware struct {
	Config  *Config
	Regs    Registers
	Loop    *fx.Loop
	Bus     *twi.Driver
	Sensor  *lis2hh12.Sensor
	Filter  *orient.Filter
	Motors  *motor.Driver
	Decoder *pulse.Decoder
	Source  CommandSource

	hw      Hardware
	applied Command
	polled  bool
}

// New creates the firmware. Motor outputs start braked.
func New(conf *Config, hw Hardware) (*Firmware, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	f := &Firmware{
		Config: conf,
		Loop:   fx.NewLoop(),
		Filter: orient.NewFilter(),
		hw:     hw,
	}
	f.Filter.Down = conf.DownVector()
	f.Filter.Deadzone = conf.Deadzone
	f.Filter.Timeout = conf.Timeout
	f.Regs.Filtered.Store(int32(f.Filter.Filtered()))

	f.Bus = twi.New(hw.TWI)
	if hw.Delay != nil {
		f.Bus.Delay = hw.Delay
	}
	f.Sensor = lis2hh12.New(f.Bus)

	mconf := motor.Config{
		Brushed:       [2]motor.PinPair{conf.Pins.Motor1, conf.Pins.Motor2},
		Brushless:     conf.Pins.Brushless,
		BrushedTimers: hw.BrushedTimers,
	}
	if conf.SharedTimer {
		mconf.SharedTimer = hw.SharedTimer
	}
	if conf.Brushless {
		mconf.BrushlessTimer = hw.BrushlessTimer
	}
	motors, err := motor.New(hw.GPIO, mconf)
	if err != nil {
		return nil, fmt.Errorf("motor setup error: %w", err)
	}
	f.Motors = motors

	switch conf.Source {
	case SourceFixed:
		f.Source = conf.Fixed
	case SourcePulse:
		f.Decoder = pulse.NewDecoder(hw.GPIO)
		f.Source = NewPulseDecoded(f.Decoder, conf.Pins, conf.Throttle)
	}

	// pull-up
	hw.GPIO.SetPin(conf.Pins.Button, true)

	f.AddToLoop(f.Loop)
	return f, nil
}

// Name implements fx.Named.
func (f *Firmware) Name() string {
	return "firmware"
}

// AddToLoop implements fx.LoopAdder.
func (f *Firmware) AddToLoop(l *fx.Loop) {
	l.AddEvery(fx.PrLvSense, f.Config.PollTicks, fx.ControlFunc(f.pollSensor))
	l.AddEvery(fx.PrLvSense, f.Config.VoltmeterTicks, fx.ControlFunc(f.readBattery))
	l.AddController(fx.PrLvControl, fx.ControlFunc(f.checkButton))
	l.AddController(fx.PrLvAcuate, fx.ControlFunc(f.driveMotors))
}

func timerTop(cpuHz uint32, prescaler uint16, hz uint32, max uint32) uint16 {
	top := cpuHz / uint32(prescaler) / hz
	if top > 0 {
		top--
	}
	if top > max {
		top = max
	}
	return uint16(top)
}

// Start initializes the peripherals, applies the initial command and
// configures the accelerometer. A missing accelerometer is not fatal.
func (f *Firmware) Start() error {
	f.Bus.Init(f.Config.CPUHz, f.Config.BusHz)
	err := f.hw.TickTimer.Configure(hal.TimerConfig{
		Mode:       hal.TimerCTC,
		Prescaler:  TickPrescaler,
		Top:        timerTop(f.Config.CPUHz, TickPrescaler, TickHz, 0xff),
		OnCompareA: f.Loop.Tick,
	})
	if err != nil {
		return fmt.Errorf("tick timer error: %w", err)
	}
	if f.Decoder != nil {
		err = f.hw.SamplerTimer.Configure(hal.TimerConfig{
			Mode:       hal.TimerCTC,
			Prescaler:  SamplerPrescaler,
			Top:        timerTop(f.Config.CPUHz, SamplerPrescaler, pulse.SampleHz, 0xff),
			OnCompareA: f.Decoder.Tick,
		})
		if err != nil {
			return fmt.Errorf("sampler timer error: %w", err)
		}
	}

	f.apply(true)
	f.showBattery()

	if err := f.Sensor.Configure(f.Config.Ctrl1); err != nil {
		glog.Warningf("accelerometer setup failed: %v", err)
	}
	glog.Infof("firmware started: source=%s shared-timer=%v brushless=%v",
		f.Config.Source, f.Config.SharedTimer, f.Config.Brushless)
	return nil
}

// Run implements fx.Runnable.
func (f *Firmware) Run(ctx context.Context) error {
	if err := f.Start(); err != nil {
		return err
	}
	return f.Loop.Run(ctx)
}

func (f *Firmware) pollSensor(fx.ControlContext) error {
	v, err := f.Sensor.Read()
	f.polled = true
	if err != nil {
		f.Regs.SensorErrors.Add(1)
		glog.V(2).Infof("accelerometer read failed, orientation is stale: %v", err)
		return nil
	}
	sign := f.Filter.Update(orient.Vector(v))
	for n := range v {
		f.Regs.Accel[n].Store(int32(v[n]))
	}
	f.Regs.Downness.Store(int32(f.Filter.Downness()))
	f.Regs.Raw.Store(int32(f.Filter.Raw()))
	if prev := orient.Sign(f.Regs.Filtered.Swap(int32(sign))); prev != sign {
		glog.Infof("orientation changed: %d -> %d", prev, sign)
	}
	f.Regs.Samples.Add(1)
	return nil
}

func (f *Firmware) readBattery(fx.ControlContext) error {
	f.showBattery()
	return nil
}

func (f *Firmware) showBattery() {
	v := f.hw.Voltmeter.Read()
	f.Regs.Decivolts.Store(uint32(v))
	f.show(v)
}

func (f *Firmware) checkButton(fx.ControlContext) error {
	if !f.hw.GPIO.GetPin(f.Config.Pins.Button) {
		f.show(ButtonValue)
	}
	return nil
}

func (f *Firmware) show(v uint16) {
	f.hw.Display.Show(v)
	f.Regs.Display.Store(uint32(v))
}

func (f *Firmware) driveMotors(fx.ControlContext) error {
	f.apply(f.polled)
	f.polled = false
	return nil
}

// apply writes the current command oriented by the filtered sign.
// Timing is recomputed when the command changed or force is set.
func (f *Firmware) apply(force bool) {
	cmd := f.Source.Command()
	sign := int(f.Filter.Filtered())
	for n := range cmd.Brushed {
		cmd.Brushed[n] *= sign
	}
	if cmd == f.applied && !force {
		return
	}
	for n, p := range cmd.Brushed {
		f.Motors.SetBrushedPower(n, p)
	}
	f.Motors.SetBrushlessPower(cmd.Brushless)
	f.Motors.SetShutdown(cmd.Shutdown)
	f.Motors.RecomputeTiming()
	if cmd != f.applied {
		glog.V(4).Infof("motor command: %+v", cmd)
	}
	f.applied = cmd
}

// Applied returns the last command written to the motors.
func (f *Firmware) Applied() Command {
	return f.applied
}
