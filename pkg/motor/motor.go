// Package motor synthesizes motor drive signals from timer interrupts.
//
// Brushed motors are driven through an H-bridge by a pair of direction
// pins. Each PWM period starts with an on-event which drives the pair in
// the commanded direction and ends the active phase with an off-event
// which brakes the motor by driving both pins high. The brushless ESC
// receives one servo pulse per frame.
package motor

import (
	"errors"
	"sync/atomic"

	"github.com/robotalks/flipbot/pkg/hal"
)

const (
	// MaxPower is the largest power magnitude.
	MaxPower = 255
	// Margin snaps powers within it of 0 or MaxPower to fully off or on.
	Margin = 1
	// Prescaler is the timer clock divider for all motor timers.
	Prescaler = 64
	// BrushedTop is the dual-timer PWM period in timer ticks.
	BrushedTop = 486
	// SharedTop is the shared 8-bit timer period in timer ticks.
	SharedTop = 255
	// BrushlessTop is the servo frame period in timer ticks.
	BrushlessTop = 2550
)

// ErrNoTimer indicates the brushed motors have no timer to run on.
var ErrNoTimer = errors.New("no brushed motor timer")

// PinPair is the pair of H-bridge direction pins of a brushed motor.
type PinPair struct {
	A hal.Pin `yaml:"a"`
	B hal.Pin `yaml:"b"`
}

// Config selects pins and timers. When SharedTimer is set both brushed
// motors run on it, otherwise each runs on its own BrushedTimers entry.
// A nil BrushlessTimer leaves the brushless output idle low.
type Config struct {
	Brushed        [2]PinPair
	Brushless      hal.Pin
	BrushedTimers  [2]hal.Timer
	SharedTimer    hal.Timer
	BrushlessTimer hal.Timer
}

type brushed struct {
	gpio  hal.GPIO
	pins  PinPair
	power atomic.Int32
}

func abs(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func (m *brushed) on() {
	if p := m.power.Load(); abs(p) >= Margin {
		m.gpio.SetPin(m.pins.A, p < 0)
		m.gpio.SetPin(m.pins.B, p > 0)
	}
}

func (m *brushed) off() {
	if abs(m.power.Load()) <= MaxPower-Margin {
		m.brake()
	}
}

func (m *brushed) brake() {
	m.gpio.SetPin(m.pins.A, true)
	m.gpio.SetPin(m.pins.B, true)
}

type brushless struct {
	gpio     hal.GPIO
	pin      hal.Pin
	power    atomic.Int32
	shutdown atomic.Bool
}

func (m *brushless) on() {
	if !m.shutdown.Load() {
		m.gpio.SetPin(m.pin, true)
	}
}

func (m *brushless) off() {
	m.gpio.SetPin(m.pin, false)
}

// BrushlessPulse is the servo pulse width in timer ticks for power.
// It spans 1.02ms at 0 to 2.04ms at MaxPower.
func BrushlessPulse(power uint8) uint16 {
	return uint16((uint32(power)*2 + 510) * BrushlessTop / (255 * 40))
}

// BrushedCompare is the dual-timer off-event compare value for power.
func BrushedCompare(power int) uint16 {
	if power < 0 {
		power = -power
	}
	return uint16(power * BrushedTop / MaxPower)
}

type strategy interface {
	configure(m [2]*brushed) error
	recompute(m [2]*brushed)
}

// Driver owns the motor outputs.
type Driver struct {
	brushed   [2]*brushed
	brushless *brushless
	strategy  strategy
	bltimer   hal.Timer
}

// New creates a Driver, brakes the brushed motors and starts the timers.
func New(gpio hal.GPIO, conf Config) (*Driver, error) {
	d := &Driver{
		brushless: &brushless{gpio: gpio, pin: conf.Brushless},
		bltimer:   conf.BrushlessTimer,
	}
	switch {
	case conf.SharedTimer != nil:
		d.strategy = &sharedTimer{timer: conf.SharedTimer}
	case conf.BrushedTimers[0] != nil && conf.BrushedTimers[1] != nil:
		d.strategy = &dualTimer{timers: conf.BrushedTimers}
	default:
		return nil, ErrNoTimer
	}
	for n := range d.brushed {
		d.brushed[n] = &brushed{gpio: gpio, pins: conf.Brushed[n]}
		d.brushed[n].brake()
	}
	gpio.SetPin(conf.Brushless, false)
	if err := d.strategy.configure(d.brushed); err != nil {
		return nil, err
	}
	if d.bltimer != nil {
		err := d.bltimer.Configure(hal.TimerConfig{
			Mode:       hal.TimerCTC,
			Prescaler:  Prescaler,
			Top:        BrushlessTop,
			OnCompareA: d.brushless.on,
			OnCompareB: d.brushless.off,
		})
		if err != nil {
			return nil, err
		}
	}
	d.RecomputeTiming()
	return d, nil
}

// SetBrushedPower sets the signed power of brushed motor ch, clamped to
// [-MaxPower, MaxPower].
func (d *Driver) SetBrushedPower(ch int, power int) {
	if power > MaxPower {
		power = MaxPower
	} else if power < -MaxPower {
		power = -MaxPower
	}
	d.brushed[ch].power.Store(int32(power))
}

// BrushedPower returns the power of brushed motor ch.
func (d *Driver) BrushedPower(ch int) int {
	return int(d.brushed[ch].power.Load())
}

// SetBrushlessPower sets the brushless throttle.
func (d *Driver) SetBrushlessPower(power uint8) {
	d.brushless.power.Store(int32(power))
}

// BrushlessPower returns the brushless throttle.
func (d *Driver) BrushlessPower() uint8 {
	return uint8(d.brushless.power.Load())
}

// SetShutdown suppresses the brushless pulse.
func (d *Driver) SetShutdown(shutdown bool) {
	d.brushless.shutdown.Store(shutdown)
}

// Shutdown checks whether the brushless pulse is suppressed.
func (d *Driver) Shutdown() bool {
	return d.brushless.shutdown.Load()
}

// RecomputeTiming loads compare values for the current powers.
// It must be called after any power changes.
func (d *Driver) RecomputeTiming() {
	d.strategy.recompute(d.brushed)
	if d.bltimer != nil {
		pulse := BrushlessPulse(d.BrushlessPower())
		hal.Critical(d.bltimer, func() {
			d.bltimer.SetCompare(hal.CompareB, pulse)
		})
	}
}

// dualTimer runs each brushed motor on its own CTC timer: compare A at
// the period end is the on-event, compare B the off-event.
type dualTimer struct {
	timers [2]hal.Timer
}

func (s *dualTimer) configure(m [2]*brushed) error {
	for n, timer := range s.timers {
		err := timer.Configure(hal.TimerConfig{
			Mode:       hal.TimerCTC,
			Prescaler:  Prescaler,
			Top:        BrushedTop,
			OnCompareA: m[n].on,
			OnCompareB: m[n].off,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *dualTimer) recompute(m [2]*brushed) {
	for n, timer := range s.timers {
		ticks := BrushedCompare(int(m[n].power.Load()))
		hal.Critical(timer, func() {
			timer.SetCompare(hal.CompareB, ticks)
		})
	}
}

// sharedTimer runs both brushed motors on one free-running 8-bit timer:
// overflow is the on-event of both, compare A and B the off-events.
type sharedTimer struct {
	timer hal.Timer
}

func (s *sharedTimer) configure(m [2]*brushed) error {
	return s.timer.Configure(hal.TimerConfig{
		Mode:      hal.TimerFreeRunning,
		Prescaler: Prescaler,
		Top:       SharedTop,
		OnOverflow: func() {
			m[0].on()
			m[1].on()
		},
		OnCompareA: m[0].off,
		OnCompareB: m[1].off,
	})
}

func (s *sharedTimer) recompute(m [2]*brushed) {
	a := uint16(abs(m[0].power.Load()))
	b := uint16(abs(m[1].power.Load()))
	hal.Critical(s.timer, func() {
		s.timer.SetCompare(hal.CompareA, a)
		s.timer.SetCompare(hal.CompareB, b)
	})
}
