package twi

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

var (
	// ErrAddress indicates a transfer to an address other than the target's.
	ErrAddress = errors.New("address not supported")
	// ErrTooLong indicates a transfer exceeding BufferSize.
	ErrTooLong = errors.New("transfer too long")
	// ErrNack indicates the transfer was not acknowledged.
	ErrNack = errors.New("not acknowledged")
)

// PeriphBus exposes a Driver as an i2c.Bus.
type PeriphBus struct {
	Driver *Driver
	CPUHz  uint32
}

var _ i2c.Bus = &PeriphBus{}

// NewPeriphBus creates a PeriphBus.
func NewPeriphBus(d *Driver, cpuHz uint32) *PeriphBus {
	return &PeriphBus{Driver: d, CPUHz: cpuHz}
}

func (b *PeriphBus) String() string {
	return fmt.Sprintf("twi@%#02x", b.Driver.Address)
}

// Tx implements i2c.Bus. A write is sent first, then the read.
func (b *PeriphBus) Tx(addr uint16, w, r []byte) error {
	if addr != uint16(b.Driver.Address) {
		return fmt.Errorf("tx %#x: %w", addr, ErrAddress)
	}
	if len(w) > BufferSize || len(r) > BufferSize {
		return ErrTooLong
	}
	if len(w) > 0 && !b.Driver.Send(w) {
		return fmt.Errorf("write %#x: %w", addr, ErrNack)
	}
	if len(r) > 0 && !b.Driver.ReceiveInto(r) {
		return fmt.Errorf("read %#x: %w", addr, ErrNack)
	}
	return nil
}

// SetSpeed implements i2c.Bus.
func (b *PeriphBus) SetSpeed(f physic.Frequency) error {
	hz := f / physic.Hertz
	if hz <= 0 || hz > physic.Frequency(b.CPUHz) {
		return fmt.Errorf("invalid bus speed %s", f)
	}
	b.Driver.Init(b.CPUHz, uint32(hz))
	return nil
}

// Halt implements conn.Resource.
func (b *PeriphBus) Halt() error {
	return nil
}
