package firmware

import (
	"github.com/robotalks/flipbot/pkg/orient"
	"github.com/robotalks/flipbot/pkg/twi"
)

// Snapshot is a consistent-enough view of the firmware state for
// observers. Every field is read atomically on its own.
type Snapshot struct {
	Downness     int
	Raw          orient.Sign
	Filtered     orient.Sign
	Accel        [3]int16
	Samples      uint32
	SensorErrors uint32

	Brushed   [2]int
	Brushless uint8
	Shutdown  bool

	Decivolts uint16
	Display   uint16
	Duty      []uint8

	Bus        twi.Stats
	BusState   twi.LinkState
	Iterations uint64
}

// Snapshot captures the current state. Safe from any goroutine.
func (f *Firmware) Snapshot() Snapshot {
	s := Snapshot{
		Downness:     int(f.Regs.Downness.Load()),
		Raw:          orient.Sign(f.Regs.Raw.Load()),
		Filtered:     orient.Sign(f.Regs.Filtered.Load()),
		Samples:      f.Regs.Samples.Load(),
		SensorErrors: f.Regs.SensorErrors.Load(),
		Brushless:    f.Motors.BrushlessPower(),
		Shutdown:     f.Motors.Shutdown(),
		Decivolts:    uint16(f.Regs.Decivolts.Load()),
		Display:      uint16(f.Regs.Display.Load()),
		Bus:          f.Bus.Stats(),
		BusState:     f.Bus.State(),
		Iterations:   f.Loop.Iterations(),
	}
	for n := range s.Accel {
		s.Accel[n] = int16(f.Regs.Accel[n].Load())
	}
	for n := range s.Brushed {
		s.Brushed[n] = f.Motors.BrushedPower(n)
	}
	if f.Decoder != nil {
		s.Duty = make([]uint8, f.Decoder.Channels())
		for n := range s.Duty {
			s.Duty[n] = f.Decoder.Duty(n)
		}
	}
	return s
}
