// Package pulse measures the duty cycle of pulse-width inputs by sampling
// them from a periodic timer interrupt.
package pulse

import (
	"sync/atomic"

	"github.com/robotalks/flipbot/pkg/hal"
)

const (
	// SampleHz is the nominal sampler tick rate.
	SampleHz = 10000
	// BrushedWindow is the window for H-bridge direction inputs.
	BrushedWindow uint16 = 64
	// BrushlessWindow covers one 20ms servo frame at SampleHz.
	BrushlessWindow uint16 = 200
)

// Accumulator counts high samples over a window.
type Accumulator struct {
	High   uint16
	Total  uint16
	Window uint16
}

// Add adds one sample. When the window is full it returns the duty cycle
// and high count and resets.
func (a *Accumulator) Add(high bool) (duty uint8, count uint16, done bool) {
	if high {
		a.High++
	}
	a.Total++
	if a.Total < a.Window {
		return 0, 0, false
	}
	count = a.High
	d := uint32(a.High) * 255 / uint32(a.Window)
	if d > 255 {
		d = 255
	}
	a.High, a.Total = 0, 0
	return uint8(d), count, true
}

type channel struct {
	pin hal.Pin
	acc Accumulator

	duty    atomic.Uint32
	count   atomic.Uint32
	windows atomic.Uint32
}

// Decoder samples a set of input channels.
// Channels are added before the sampler interrupt is enabled; afterwards
// Tick is the only writer of the accumulators and the getters only read
// published values.
type Decoder struct {
	gpio     hal.GPIO
	channels []*channel
}

// NewDecoder creates a Decoder.
func NewDecoder(gpio hal.GPIO) *Decoder {
	return &Decoder{gpio: gpio}
}

// AddChannel adds an input and returns its index. A zero window selects
// BrushedWindow.
func (d *Decoder) AddChannel(pin hal.Pin, window uint16) int {
	if window == 0 {
		window = BrushedWindow
	}
	d.channels = append(d.channels, &channel{pin: pin, acc: Accumulator{Window: window}})
	return len(d.channels) - 1
}

// Channels returns the number of channels.
func (d *Decoder) Channels() int {
	return len(d.channels)
}

// Tick samples all channels once. It runs in interrupt context.
func (d *Decoder) Tick() {
	for _, ch := range d.channels {
		if duty, count, done := ch.acc.Add(d.gpio.GetPin(ch.pin)); done {
			ch.duty.Store(uint32(duty))
			ch.count.Store(uint32(count))
			ch.windows.Add(1)
		}
	}
}

// Duty returns the last published duty cycle of channel ch.
func (d *Decoder) Duty(ch int) uint8 {
	return uint8(d.channels[ch].duty.Load())
}

// Count returns the high sample count of the last window of channel ch.
// For a servo input it is the pulse width in sampler ticks.
func (d *Decoder) Count(ch int) uint16 {
	return uint16(d.channels[ch].count.Load())
}

// Windows returns how many windows channel ch has completed.
func (d *Decoder) Windows(ch int) uint32 {
	return d.channels[ch].windows.Load()
}

// BrushedCommand returns the signed command of the differential pair a, b
// as duty(b) - duty(a).
func (d *Decoder) BrushedCommand(a, b int) int {
	return int(d.Duty(b)) - int(d.Duty(a))
}

// Throttle maps a servo pulse width, in sampler ticks, to a throttle.
type Throttle struct {
	// ShutdownCount is the smallest valid pulse. Anything shorter,
	// including no pulse at all, shuts the motor down.
	ShutdownCount uint16 `yaml:"shutdown_count"`
	// LowCount and HighCount split the band into three levels.
	LowCount  uint16 `yaml:"low_count"`
	HighCount uint16 `yaml:"high_count"`
	// Linear maps [MinCount, MaxCount] onto [0, 255] instead.
	Linear   bool   `yaml:"linear"`
	MinCount uint16 `yaml:"min_count"`
	MaxCount uint16 `yaml:"max_count"`
}

// DefaultThrottle expects 1ms-2ms pulses sampled at SampleHz.
var DefaultThrottle = Throttle{
	ShutdownCount: 8,
	LowCount:      13,
	HighCount:     17,
	MinCount:      10,
	MaxCount:      20,
}

// Decode returns the throttle and whether the motor must be shut down.
func (t Throttle) Decode(count uint16) (throttle uint8, shutdown bool) {
	if count < t.ShutdownCount {
		return 0, true
	}
	if !t.Linear {
		switch {
		case count < t.LowCount:
			return 0, false
		case count > t.HighCount:
			return 255, false
		}
		return 127, false
	}
	switch {
	case count <= t.MinCount:
		return 0, false
	case count >= t.MaxCount:
		return 255, false
	}
	return uint8(uint32(count-t.MinCount) * 255 / uint32(t.MaxCount-t.MinCount)), false
}
