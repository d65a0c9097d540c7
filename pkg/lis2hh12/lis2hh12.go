// Package lis2hh12 reads samples from a LIS2HH12 accelerometer.
package lis2hh12

import (
	"encoding/binary"
	"errors"
)

// Register map.
const (
	RegWhoAmI = 0x0f
	RegCtrl1  = 0x20
	RegCtrl2  = 0x21
	RegCtrl3  = 0x22
	RegCtrl4  = 0x23
	RegCtrl5  = 0x24
	RegCtrl6  = 0x25
	RegCtrl7  = 0x26
	RegStatus = 0x27
	RegOutXL  = 0x28
	RegOutXH  = 0x29
	RegOutYL  = 0x2a
	RegOutYH  = 0x2b
	RegOutZL  = 0x2c
	RegOutZH  = 0x2d
)

const (
	// Address is the bus address with SA0 high.
	Address = 0x1e
	// Identity is the WHO_AM_I value.
	Identity = 0x41
	// DefaultCtrl1 selects 400Hz output with block data update and all
	// axes enabled.
	DefaultCtrl1 = 0x4f
)

var (
	// ErrNack indicates the device did not acknowledge.
	ErrNack = errors.New("lis2hh12: not acknowledged")
	// ErrIdentity indicates an unexpected WHO_AM_I value.
	ErrIdentity = errors.New("lis2hh12: unexpected identity")
)

// Bus is the subset of the bus master the sensor needs.
type Bus interface {
	Send(data []byte) bool
	ReceiveInto(buf []byte) bool
}

// Sensor reads acceleration samples.
type Sensor struct {
	bus Bus
	buf [6]byte
}

// New creates a Sensor.
func New(bus Bus) *Sensor {
	return &Sensor{bus: bus}
}

// Configure writes CTRL1.
func (s *Sensor) Configure(ctrl1 byte) error {
	if !s.bus.Send([]byte{RegCtrl1, ctrl1}) {
		return ErrNack
	}
	return nil
}

// Identify checks WHO_AM_I.
func (s *Sensor) Identify() error {
	if !s.bus.Send([]byte{RegWhoAmI}) || !s.bus.ReceiveInto(s.buf[:1]) {
		return ErrNack
	}
	if s.buf[0] != Identity {
		return ErrIdentity
	}
	return nil
}

// Read returns the raw X, Y, Z sample.
func (s *Sensor) Read() ([3]int16, error) {
	var v [3]int16
	if !s.bus.Send([]byte{RegOutXL}) || !s.bus.ReceiveInto(s.buf[:]) {
		return v, ErrNack
	}
	for i := range v {
		v[i] = int16(binary.LittleEndian.Uint16(s.buf[i*2:]))
	}
	return v, nil
}
