package sim

import (
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
)

// Voltmeter is a simulated battery sense line. It implements hal.Voltmeter.
type Voltmeter struct {
	decivolts atomic.Uint32
	reads     atomic.Uint32
}

// Set sets the battery voltage in tenths of a volt.
func (v *Voltmeter) Set(decivolts uint16) {
	v.decivolts.Store(uint32(decivolts))
}

// Read implements hal.Voltmeter.
func (v *Voltmeter) Read() uint16 {
	v.reads.Add(1)
	return uint16(v.decivolts.Load())
}

// Reads returns the number of conversions performed.
func (v *Voltmeter) Reads() int {
	return int(v.reads.Load())
}

// Display records shown values. It implements hal.Display.
type Display struct {
	lock   sync.Mutex
	values []uint16
}

// Show implements hal.Display.
func (d *Display) Show(value uint16) {
	d.lock.Lock()
	d.values = append(d.values, value)
	d.lock.Unlock()
}

// Last returns the last shown value and whether any was shown.
func (d *Display) Last() (uint16, bool) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if len(d.values) == 0 {
		return 0, false
	}
	return d.values[len(d.values)-1], true
}

// Values returns all shown values.
func (d *Display) Values() []uint16 {
	d.lock.Lock()
	defer d.lock.Unlock()
	return append([]uint16(nil), d.values...)
}

// Board is a complete simulated controller board.
type Board struct {
	Hz    uint32
	IRQ   *IRQ
	Clock *Clock
	GPIO  *GPIO

	// Timer0 and Timer2 are 8-bit, the rest 16-bit.
	Timer0, Timer1, Timer2, Timer3, Timer4 *Timer

	TWI     *TWIBus
	Accel   *Accelerometer
	Battery *Voltmeter
	Display *Display
}

// AccelAddress is the bus address of the on-board accelerometer.
const AccelAddress = 0x1e

// DefaultMount is the gravity direction seen by the accelerometer while
// the robot stands upright.
var DefaultMount = mgl64.Vec3{0, 12, -9}

// NewBoard creates a board clocked at hz.
func NewBoard(hz uint32) *Board {
	irq := NewIRQ()
	b := &Board{
		Hz:      hz,
		IRQ:     irq,
		Clock:   NewClock(irq, hz),
		GPIO:    NewGPIO(),
		Timer0:  NewTimer(irq, "timer0", 8),
		Timer1:  NewTimer(irq, "timer1", 16),
		Timer2:  NewTimer(irq, "timer2", 8),
		Timer3:  NewTimer(irq, "timer3", 16),
		Timer4:  NewTimer(irq, "timer4", 16),
		TWI:     NewTWIBus(irq),
		Accel:   NewAccelerometer(AccelAddress, DefaultMount),
		Battery: &Voltmeter{},
		Display: &Display{},
	}
	b.TWI.Attach(b.Accel)
	b.Clock.Attach(b.Timer0, b.Timer1, b.Timer2, b.Timer3, b.Timer4)
	return b
}
