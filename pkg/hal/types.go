// Package hal defines the hardware capabilities the control engine depends on.
package hal

import "time"

// Pin identifies a digital I/O line on the board.
type Pin uint8

// GPIO drives and samples digital lines.
type GPIO interface {
	SetPin(pin Pin, high bool)
	GetPin(pin Pin) bool
}

// InterruptSource can be masked for a critical section.
type InterruptSource interface {
	// MaskInterrupts blocks until no handler of this source is running and
	// prevents new ones from starting.
	MaskInterrupts()
	// UnmaskInterrupts re-enables the source. Pending events are delivered.
	UnmaskInterrupts()
}

// Critical runs fn with src masked.
func Critical(src InterruptSource, fn func()) {
	src.MaskInterrupts()
	defer src.UnmaskInterrupts()
	fn()
}

// TimerMode selects how the counter wraps.
type TimerMode int

const (
	// TimerCTC clears the counter on compare match A (Top).
	TimerCTC TimerMode = iota
	// TimerFreeRunning counts to Top and overflows.
	TimerFreeRunning
)

// CompareChannel selects an output compare register.
type CompareChannel int

// Compare channels.
const (
	CompareA CompareChannel = iota
	CompareB
)

// TimerConfig configures a hardware timer and its interrupt handlers.
// A nil handler leaves that interrupt disabled.
type TimerConfig struct {
	Mode      TimerMode
	Prescaler uint16
	// Top is the period in timer ticks. In CTC mode it is also compare A.
	Top uint16

	OnCompareA func()
	OnCompareB func()
	OnOverflow func()
}

// Timer is a peripheral timer with compare-match interrupts.
type Timer interface {
	InterruptSource
	Configure(TimerConfig) error
	SetCompare(ch CompareChannel, ticks uint16)
}

// Voltmeter samples the battery sense line.
type Voltmeter interface {
	// Read performs one blocking conversion and returns tenths of a volt.
	Read() uint16
}

// Display shows a number on the diagnostic display.
type Display interface {
	Show(value uint16)
}

// Delay blocks the calling context for d.
type Delay func(d time.Duration)
