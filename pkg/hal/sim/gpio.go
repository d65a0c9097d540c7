package sim

import (
	"sync"
	"time"

	"github.com/robotalks/flipbot/pkg/hal"
)

// GPIO is a simulated bank of digital lines. It implements hal.GPIO and
// counts level transitions per pin.
type GPIO struct {
	lock    sync.Mutex
	levels  map[hal.Pin]bool
	toggles map[hal.Pin]int
}

// NewGPIO creates a GPIO bank with all lines low.
func NewGPIO() *GPIO {
	return &GPIO{
		levels:  make(map[hal.Pin]bool),
		toggles: make(map[hal.Pin]int),
	}
}

// SetPin implements hal.GPIO.
func (g *GPIO) SetPin(pin hal.Pin, high bool) {
	g.lock.Lock()
	if g.levels[pin] != high {
		g.levels[pin] = high
		g.toggles[pin]++
	}
	g.lock.Unlock()
}

// GetPin implements hal.GPIO.
func (g *GPIO) GetPin(pin hal.Pin) bool {
	g.lock.Lock()
	defer g.lock.Unlock()
	return g.levels[pin]
}

// Toggles returns the number of transitions seen on pin.
func (g *GPIO) Toggles(pin hal.Pin) int {
	g.lock.Lock()
	defer g.lock.Unlock()
	return g.toggles[pin]
}

// ResetToggles clears all transition counters.
func (g *GPIO) ResetToggles() {
	g.lock.Lock()
	g.toggles = make(map[hal.Pin]int)
	g.lock.Unlock()
}

// PulseSource drives a pin with a periodic pulse, like an RC receiver
// output. A zero high time keeps the line low.
type PulseSource struct {
	gpio   hal.GPIO
	pin    hal.Pin
	lock   sync.Mutex
	period uint32
	high   uint32
	phase  uint32
}

// NewPulseSource creates a PulseSource with period in CPU cycles.
func NewPulseSource(gpio hal.GPIO, pin hal.Pin, period uint32) *PulseSource {
	return &PulseSource{gpio: gpio, pin: pin, period: period}
}

// SetHigh sets the high time per period in CPU cycles.
func (s *PulseSource) SetHigh(cycles uint32) {
	s.lock.Lock()
	if cycles > s.period {
		cycles = s.period
	}
	s.high = cycles
	s.lock.Unlock()
}

// Step implements Device.
func (s *PulseSource) Step(cycles uint32) {
	s.lock.Lock()
	s.phase = (s.phase + cycles) % s.period
	high := s.phase < s.high
	s.lock.Unlock()
	s.gpio.SetPin(s.pin, high)
}

// ServoSource is a PulseSource emitting a servo frame every 20ms.
type ServoSource struct {
	*PulseSource
	hz uint32
}

// NewServoSource creates a ServoSource on pin for a CPU running at hz.
func NewServoSource(gpio hal.GPIO, pin hal.Pin, hz uint32) *ServoSource {
	return &ServoSource{
		PulseSource: NewPulseSource(gpio, pin, hz/50),
		hz:          hz,
	}
}

// SetWidth sets the pulse width. Zero stops the pulses.
func (s *ServoSource) SetWidth(w time.Duration) {
	s.SetHigh(uint32(uint64(w) * uint64(s.hz) / uint64(time.Second)))
}

// BridgeSource drives a differential pair the way an H-bridge controller
// does: the line selected by the sign idles low for |power|/255 of the
// period, the other stays high.
type BridgeSource struct {
	A, B *PulseSource
}

// NewBridgeSource creates a BridgeSource with the given period in CPU cycles.
func NewBridgeSource(gpio hal.GPIO, a, b hal.Pin, period uint32) *BridgeSource {
	s := &BridgeSource{
		A: NewPulseSource(gpio, a, period),
		B: NewPulseSource(gpio, b, period),
	}
	s.SetPower(0)
	return s
}

// SetPower sets the signed power in [-255, 255].
func (s *BridgeSource) SetPower(power int) {
	if power > 255 {
		power = 255
	} else if power < -255 {
		power = -255
	}
	full := s.A.period
	a, b := full, full
	if power > 0 {
		a = full - full*uint32(power)/255
	} else if power < 0 {
		b = full - full*uint32(-power)/255
	}
	s.A.SetHigh(a)
	s.B.SetHigh(b)
}

// Step implements Device.
func (s *BridgeSource) Step(cycles uint32) {
	s.A.Step(cycles)
	s.B.Step(cycles)
}
