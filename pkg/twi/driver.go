// Package twi implements an interrupt-driven two-wire bus master talking
// to a single fixed-address target.
package twi

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/robotalks/flipbot/pkg/hal"
)

const (
	// DefaultAddress is the 7-bit target address.
	DefaultAddress uint8 = 0x1e
	// DefaultFrequency is the bus clock in Hz.
	DefaultFrequency uint32 = 50000
	// DefaultSettleDelay is waited after each transaction.
	DefaultSettleDelay = time.Millisecond
	// BufferSize is the largest transfer in bytes.
	BufferSize = 16
)

// Direction is the transfer direction of a transaction.
type Direction int

// Directions.
const (
	DirectionSend Direction = iota
	DirectionReceive
)

// Outcome is the result of a transaction.
type Outcome int

// Outcomes.
const (
	OutcomePending Outcome = iota
	OutcomeAcked
	OutcomeNackAbort
)

// LinkState is the position of the master in the bus protocol.
type LinkState int32

// Link states.
const (
	StateIdle LinkState = iota
	StateAddress
	StateTransmit
	StateReceiveMulti
	StateReceiveLast
	StateStopPending
)

func (s LinkState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAddress:
		return "address"
	case StateTransmit:
		return "transmit"
	case StateReceiveMulti:
		return "receive"
	case StateReceiveLast:
		return "receive-last"
	case StateStopPending:
		return "stop"
	}
	return "unknown"
}

// Transaction is the single in-flight transfer.
// Between start and the busy flag clearing it is owned by the interrupt
// handler.
type Transaction struct {
	Direction Direction
	Buf       [BufferSize]byte
	Len       int
	Outcome   Outcome

	cursor int
}

func (t *Transaction) remaining() int {
	return t.Len - t.cursor
}

// Stats are transaction counters.
type Stats struct {
	Transactions uint32
	NackAborts   uint32
	Unexpected   uint32
	Rejected     uint32
}

// Driver is the bus master.
type Driver struct {
	// Address is the 7-bit target address.
	Address uint8
	// SettleDelay is waited after every transaction before returning.
	SettleDelay time.Duration
	// Delay implements the settle wait. Defaults to time.Sleep.
	Delay hal.Delay

	hw    hal.TWI
	txn   Transaction
	busy  atomic.Bool
	state atomic.Int32

	transactions atomic.Uint32
	nacks        atomic.Uint32
	unexpected   atomic.Uint32
	rejected     atomic.Uint32
}

// New creates a Driver and installs its interrupt handler.
func New(hw hal.TWI) *Driver {
	d := &Driver{
		Address:     DefaultAddress,
		SettleDelay: DefaultSettleDelay,
		Delay:       time.Sleep,
		hw:          hw,
	}
	hw.SetInterruptHandler(d.HandleInterrupt)
	return d
}

// Divisor computes the bit rate divisor for the bus clock.
func Divisor(cpuHz, targetHz uint32) uint8 {
	if targetHz == 0 {
		targetHz = DefaultFrequency
	}
	q := cpuHz / targetHz
	if q <= 16 {
		return 0
	}
	if v := (q - 16) / 2; v < 256 {
		return uint8(v)
	}
	return 255
}

// Init loads the bit rate and enables the peripheral and its interrupt.
// A zero targetHz selects DefaultFrequency.
func (d *Driver) Init(cpuHz, targetHz uint32) {
	d.hw.SetBitRate(Divisor(cpuHz, targetHz))
	d.hw.Control(hal.TWIEnable | hal.TWIInterrupt)
}

// Send writes data to the target. Data beyond BufferSize is dropped.
// It blocks until the transaction completes and returns false if the
// target did not acknowledge or another transaction is in flight.
func (d *Driver) Send(data []byte) bool {
	if !d.busy.CompareAndSwap(false, true) {
		d.rejected.Add(1)
		return false
	}
	t := &d.txn
	t.Direction = DirectionSend
	t.Len = copy(t.Buf[:], data)
	return d.run()
}

// Receive reads count bytes from the target. Counts beyond BufferSize are
// truncated. Nothing is returned unless the whole transfer succeeded.
func (d *Driver) Receive(count int) ([]byte, bool) {
	if count <= 0 {
		return []byte{}, true
	}
	if count > BufferSize {
		count = BufferSize
	}
	buf := make([]byte, count)
	if !d.ReceiveInto(buf) {
		return nil, false
	}
	return buf, true
}

// ReceiveInto reads len(buf) bytes into buf without allocating.
// buf is left untouched on failure.
func (d *Driver) ReceiveInto(buf []byte) bool {
	if len(buf) == 0 {
		return true
	}
	if len(buf) > BufferSize {
		buf = buf[:BufferSize]
	}
	if !d.busy.CompareAndSwap(false, true) {
		d.rejected.Add(1)
		return false
	}
	t := &d.txn
	t.Direction = DirectionReceive
	t.Len = len(buf)
	if !d.run() {
		return false
	}
	copy(buf, t.Buf[:t.Len])
	return true
}

func (d *Driver) run() bool {
	t := &d.txn
	t.cursor = 0
	t.Outcome = OutcomePending
	d.hw.Control(hal.TWIStart | hal.TWIClearFlag | hal.TWIEnable | hal.TWIInterrupt)
	for d.busy.Load() {
		runtime.Gosched()
	}
	if d.Delay != nil {
		d.Delay(d.SettleDelay)
	}
	// a stop raises no further event, the settle delay covers the release.
	d.state.CompareAndSwap(int32(StateStopPending), int32(StateIdle))
	d.transactions.Add(1)
	if t.Outcome == OutcomeNackAbort {
		d.nacks.Add(1)
		return false
	}
	return true
}

// Busy checks whether a transaction is in flight.
func (d *Driver) Busy() bool {
	return d.busy.Load()
}

// State returns the current link state.
func (d *Driver) State() LinkState {
	return LinkState(d.state.Load())
}

// Stats returns the transaction counters.
func (d *Driver) Stats() Stats {
	return Stats{
		Transactions: d.transactions.Load(),
		NackAborts:   d.nacks.Load(),
		Unexpected:   d.unexpected.Load(),
		Rejected:     d.rejected.Load(),
	}
}

const ctlNext = hal.TWIClearFlag | hal.TWIEnable | hal.TWIInterrupt

// HandleInterrupt advances the transaction after a bus event.
// It runs in interrupt context and never blocks.
func (d *Driver) HandleInterrupt() {
	t := &d.txn
	switch d.hw.Status() {
	case hal.TWIStatusStart, hal.TWIStatusRepStart:
		sla := d.Address << 1
		if t.Direction == DirectionReceive {
			sla |= 1
		}
		d.hw.WriteData(sla)
		d.hw.Control(ctlNext)
		d.setState(StateAddress)
	case hal.TWIStatusMTSlaveAck, hal.TWIStatusMTDataAck:
		if t.cursor < t.Len {
			d.hw.WriteData(t.Buf[t.cursor])
			t.cursor++
			d.hw.Control(ctlNext)
			d.setState(StateTransmit)
			return
		}
		d.finish(OutcomeAcked)
	case hal.TWIStatusMTSlaveNack, hal.TWIStatusMTDataNack:
		t.cursor = t.Len
		d.finish(OutcomeNackAbort)
	case hal.TWIStatusMRSlaveAck:
		d.armReceive()
	case hal.TWIStatusMRSlaveNack:
		d.finish(OutcomeNackAbort)
	case hal.TWIStatusMRDataAck:
		if t.cursor < t.Len {
			t.Buf[t.cursor] = d.hw.ReadData()
			t.cursor++
		}
		d.armReceive()
	case hal.TWIStatusMRDataNack:
		if t.cursor < t.Len {
			t.Buf[t.cursor] = d.hw.ReadData()
			t.cursor++
		}
		d.finish(OutcomeAcked)
	default:
		d.unexpected.Add(1)
		d.hw.Control(ctlNext)
	}
}

// armReceive requests the next byte and acknowledges it unless it is the
// last one.
func (d *Driver) armReceive() {
	if d.txn.remaining() > 1 {
		d.hw.Control(ctlNext | hal.TWIAck)
		d.setState(StateReceiveMulti)
		return
	}
	d.hw.Control(ctlNext)
	d.setState(StateReceiveLast)
}

func (d *Driver) finish(outcome Outcome) {
	d.txn.Outcome = outcome
	d.hw.Control(ctlNext | hal.TWIStop)
	d.setState(StateStopPending)
	d.busy.Store(false)
}

func (d *Driver) setState(s LinkState) {
	d.state.Store(int32(s))
}
