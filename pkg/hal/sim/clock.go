package sim

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robotalks/flipbot/pkg/hal"
)

var (
	// ErrPrescaler indicates a zero prescaler.
	ErrPrescaler = errors.New("invalid prescaler")
	// ErrTopRange indicates Top does not fit the timer width.
	ErrTopRange = errors.New("top out of timer range")
)

// Device is advanced by the clock in CPU cycles.
type Device interface {
	Step(cycles uint32)
}

// Clock drives simulated time. Every step advances all attached devices
// and then runs pending interrupt handlers, so timer events are handled in
// simulated time order.
type Clock struct {
	Hz uint32
	// Resolution is the number of CPU cycles per step.
	Resolution uint32

	irq     *IRQ
	lock    sync.Mutex
	devices []Device
	cycles  uint64
}

// NewClock creates a clock running at hz.
func NewClock(irq *IRQ, hz uint32) *Clock {
	return &Clock{Hz: hz, Resolution: 8, irq: irq}
}

// Attach adds devices advanced by the clock.
func (c *Clock) Attach(devs ...Device) *Clock {
	c.lock.Lock()
	c.devices = append(c.devices, devs...)
	c.lock.Unlock()
	return c
}

// Cycles returns elapsed CPU cycles.
func (c *Clock) Cycles() uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.cycles
}

// Advance runs the simulation for the given number of CPU cycles.
func (c *Clock) Advance(cycles uint64) {
	res := uint64(c.Resolution)
	if res == 0 {
		res = 1
	}
	for cycles > 0 {
		step := res
		if cycles < step {
			step = cycles
		}
		cycles -= step
		c.lock.Lock()
		for _, dev := range c.devices {
			dev.Step(uint32(step))
		}
		c.cycles += step
		c.lock.Unlock()
		c.irq.Poll()
	}
}

// AdvanceTime runs the simulation for d of simulated time.
func (c *Clock) AdvanceTime(d time.Duration) {
	c.Advance(uint64(d) * uint64(c.Hz) / uint64(time.Second))
}

// Run advances simulated time along with wall time until ctx is done.
// Pending handlers are also dispatched between steps so bus transactions
// complete while the clock waits.
func (c *Clock) Run(ctx context.Context) error {
	const slice = time.Millisecond
	ticker := time.NewTicker(slice)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.irq.wake:
			c.irq.Poll()
		case <-ticker.C:
			c.AdvanceTime(slice)
		}
	}
}

// Timer is a simulated peripheral timer. It implements hal.Timer.
type Timer struct {
	*Source
	Name string
	Bits uint

	lock     sync.Mutex
	cfg      hal.TimerConfig
	enabled  bool
	compare  [2]uint16
	counter  uint16
	residual uint32

	vecA, vecB, vecOverflow *Vector
}

// NewTimer creates a timer with the given counter width.
func NewTimer(irq *IRQ, name string, bits uint) *Timer {
	src := irq.NewSource()
	return &Timer{
		Source:      src,
		Name:        name,
		Bits:        bits,
		vecA:        src.Vector(name + ".compa"),
		vecB:        src.Vector(name + ".compb"),
		vecOverflow: src.Vector(name + ".ovf"),
	}
}

// Configure implements hal.Timer.
func (t *Timer) Configure(cfg hal.TimerConfig) error {
	if cfg.Prescaler == 0 {
		return ErrPrescaler
	}
	if t.Bits < 16 && uint32(cfg.Top) >= uint32(1)<<t.Bits {
		return ErrTopRange
	}
	t.lock.Lock()
	t.cfg = cfg
	t.enabled = true
	t.counter = 0
	t.residual = 0
	if cfg.Mode == hal.TimerCTC {
		t.compare[hal.CompareA] = cfg.Top
	}
	t.lock.Unlock()
	t.vecA.SetHandler(cfg.OnCompareA)
	t.vecB.SetHandler(cfg.OnCompareB)
	t.vecOverflow.SetHandler(cfg.OnOverflow)
	return nil
}

// SetCompare implements hal.Timer.
func (t *Timer) SetCompare(ch hal.CompareChannel, ticks uint16) {
	t.lock.Lock()
	t.compare[ch] = ticks
	t.lock.Unlock()
}

// Compare returns the current compare value.
func (t *Timer) Compare(ch hal.CompareChannel) uint16 {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.compare[ch]
}

// Config returns the last applied configuration.
func (t *Timer) Config() hal.TimerConfig {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.cfg
}

// Step implements Device.
func (t *Timer) Step(cycles uint32) {
	var raise []*Vector
	t.lock.Lock()
	if !t.enabled {
		t.lock.Unlock()
		return
	}
	t.residual += cycles
	ticks := t.residual / uint32(t.cfg.Prescaler)
	t.residual %= uint32(t.cfg.Prescaler)
	for ; ticks > 0; ticks-- {
		raise = t.tick(raise)
	}
	t.lock.Unlock()
	for _, v := range raise {
		v.Raise()
	}
}

func (t *Timer) tick(raise []*Vector) []*Vector {
	if t.counter >= t.cfg.Top {
		t.counter = 0
		if t.cfg.Mode == hal.TimerFreeRunning {
			raise = append(raise, t.vecOverflow)
		}
	} else {
		t.counter++
	}
	if t.counter == t.compare[hal.CompareA] {
		raise = append(raise, t.vecA)
	}
	if t.counter == t.compare[hal.CompareB] {
		raise = append(raise, t.vecB)
	}
	return raise
}
