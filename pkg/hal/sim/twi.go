package sim

import (
	"sync"

	"github.com/robotalks/flipbot/pkg/hal"
)

// TWITarget is a device attached to the simulated two-wire bus.
type TWITarget interface {
	Address() uint8
	// Begin is called when the target is addressed and returns whether
	// the address is acknowledged.
	Begin(read bool) bool
	// Write delivers a byte from the master and returns the acknowledge.
	Write(b byte) bool
	// Read supplies the next byte to the master.
	Read() byte
	// End is called on stop.
	End()
}

type busPhase int

const (
	busIdle busPhase = iota
	busStarted
	busWrite
	busRead
	busRejected
)

// BusStats records what happened on the simulated wire.
type BusStats struct {
	Starts   int
	Stops    int
	Address  []byte
	Written  []byte
	ReadAcks []bool
}

// TWIBus is a simulated master-mode two-wire peripheral with attached
// targets. It implements hal.TWI.
type TWIBus struct {
	*Source

	lock    sync.Mutex
	vec     *Vector
	targets []TWITarget
	divisor uint8
	enabled bool
	status  hal.TWIStatus
	data    byte
	phase   busPhase
	active  TWITarget
	stats   BusStats
}

// NewTWIBus creates a TWIBus.
func NewTWIBus(irq *IRQ) *TWIBus {
	src := irq.NewSource()
	return &TWIBus{
		Source: src,
		vec:    src.Vector("twi"),
		status: hal.TWIStatusNoInfo,
	}
}

// Attach connects targets to the bus.
func (b *TWIBus) Attach(targets ...TWITarget) *TWIBus {
	b.lock.Lock()
	b.targets = append(b.targets, targets...)
	b.lock.Unlock()
	return b
}

// SetInterruptHandler implements hal.TWI.
func (b *TWIBus) SetInterruptHandler(fn func()) {
	b.vec.SetHandler(fn)
}

// SetBitRate implements hal.TWI.
func (b *TWIBus) SetBitRate(divisor uint8) {
	b.lock.Lock()
	b.divisor = divisor
	b.lock.Unlock()
}

// BitRate returns the loaded divisor.
func (b *TWIBus) BitRate() uint8 {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.divisor
}

// Status implements hal.TWI.
func (b *TWIBus) Status() hal.TWIStatus {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.status
}

// WriteData implements hal.TWI.
func (b *TWIBus) WriteData(v byte) {
	b.lock.Lock()
	b.data = v
	b.lock.Unlock()
}

// ReadData implements hal.TWI.
func (b *TWIBus) ReadData() byte {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.data
}

// Control implements hal.TWI.
func (b *TWIBus) Control(c hal.TWIControl) {
	if b.control(c) {
		b.vec.Raise()
	}
}

func (b *TWIBus) control(c hal.TWIControl) bool {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.enabled = c.Has(hal.TWIEnable)
	if !b.enabled {
		b.release()
		return false
	}
	switch {
	case c.Has(hal.TWIStop):
		if b.phase != busIdle {
			b.stats.Stops++
		}
		b.release()
		b.status = hal.TWIStatusNoInfo
		return false
	case c.Has(hal.TWIStart | hal.TWIClearFlag):
		if b.phase == busIdle {
			b.status = hal.TWIStatusStart
		} else {
			if b.active != nil {
				b.active.End()
				b.active = nil
			}
			b.status = hal.TWIStatusRepStart
		}
		b.stats.Starts++
		b.phase = busStarted
		return true
	case c.Has(hal.TWIClearFlag):
		return b.advance(c.Has(hal.TWIAck))
	}
	return false
}

func (b *TWIBus) advance(ack bool) bool {
	switch b.phase {
	case busStarted:
		sla := b.data
		read := sla&1 != 0
		b.stats.Address = append(b.stats.Address, sla)
		b.active = b.find(sla >> 1)
		acked := b.active != nil && b.active.Begin(read)
		switch {
		case acked && read:
			b.phase, b.status = busRead, hal.TWIStatusMRSlaveAck
		case acked:
			b.phase, b.status = busWrite, hal.TWIStatusMTSlaveAck
		case read:
			b.phase, b.status = busRejected, hal.TWIStatusMRSlaveNack
		default:
			b.phase, b.status = busRejected, hal.TWIStatusMTSlaveNack
		}
	case busWrite:
		b.stats.Written = append(b.stats.Written, b.data)
		if b.active.Write(b.data) {
			b.status = hal.TWIStatusMTDataAck
		} else {
			b.status = hal.TWIStatusMTDataNack
		}
	case busRead:
		b.data = b.active.Read()
		b.stats.ReadAcks = append(b.stats.ReadAcks, ack)
		if ack {
			b.status = hal.TWIStatusMRDataAck
		} else {
			b.status = hal.TWIStatusMRDataNack
		}
	default:
		return false
	}
	return true
}

func (b *TWIBus) find(addr uint8) TWITarget {
	for _, t := range b.targets {
		if t.Address() == addr {
			return t
		}
	}
	return nil
}

func (b *TWIBus) release() {
	if b.active != nil {
		b.active.End()
		b.active = nil
	}
	b.phase = busIdle
}

// Idle checks whether the bus is released.
func (b *TWIBus) Idle() bool {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.phase == busIdle
}

// Stats returns a copy of the wire statistics.
func (b *TWIBus) Stats() BusStats {
	b.lock.Lock()
	defer b.lock.Unlock()
	s := b.stats
	s.Address = append([]byte(nil), s.Address...)
	s.Written = append([]byte(nil), s.Written...)
	s.ReadAcks = append([]bool(nil), s.ReadAcks...)
	return s
}

// ResetStats clears the wire statistics.
func (b *TWIBus) ResetStats() {
	b.lock.Lock()
	b.stats = BusStats{}
	b.lock.Unlock()
}

// RegisterDevice is a target with a byte register file and an
// auto-incrementing register pointer. The first byte written after the
// address selects the register.
type RegisterDevice struct {
	addr uint8

	lock    sync.Mutex
	regs    [256]byte
	ptr     uint8
	first   bool
	written int

	// NackAddress rejects the address.
	NackAddress bool
	// NackAfter rejects data bytes once that many were accepted in the
	// current transaction. Negative disables it.
	NackAfter int
	// OnRead is called before a register is read.
	OnRead func(reg uint8)
}

// NewRegisterDevice creates a RegisterDevice at addr.
func NewRegisterDevice(addr uint8) *RegisterDevice {
	return &RegisterDevice{addr: addr, NackAfter: -1}
}

// Address implements TWITarget.
func (d *RegisterDevice) Address() uint8 {
	return d.addr
}

// Begin implements TWITarget.
func (d *RegisterDevice) Begin(read bool) bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.NackAddress {
		return false
	}
	d.first = !read
	d.written = 0
	return true
}

// Write implements TWITarget.
func (d *RegisterDevice) Write(b byte) bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.NackAfter >= 0 && d.written >= d.NackAfter {
		return false
	}
	d.written++
	if d.first {
		d.ptr = b
		d.first = false
		return true
	}
	d.regs[d.ptr] = b
	d.ptr++
	return true
}

// Read implements TWITarget.
func (d *RegisterDevice) Read() byte {
	d.lock.Lock()
	reg := d.ptr
	fn := d.OnRead
	d.lock.Unlock()
	if fn != nil {
		fn(reg)
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	v := d.regs[d.ptr]
	d.ptr++
	return v
}

// End implements TWITarget.
func (d *RegisterDevice) End() {}

// Set writes registers starting at reg.
func (d *RegisterDevice) Set(reg uint8, vals ...byte) {
	d.lock.Lock()
	for _, v := range vals {
		d.regs[reg] = v
		reg++
	}
	d.lock.Unlock()
}

// Get returns the value of a register.
func (d *RegisterDevice) Get(reg uint8) byte {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.regs[reg]
}

// Seek sets the register pointer.
func (d *RegisterDevice) Seek(reg uint8) {
	d.lock.Lock()
	d.ptr = reg
	d.lock.Unlock()
}
