package hal

// TWIControl is a set of control bits written to the two-wire peripheral.
type TWIControl uint8

// Control bits.
const (
	// TWIEnable keeps the peripheral enabled.
	TWIEnable TWIControl = 1 << iota
	// TWIInterrupt enables the peripheral interrupt.
	TWIInterrupt
	// TWIClearFlag acknowledges the current event and lets the peripheral
	// proceed with the next bus operation.
	TWIClearFlag
	// TWIStart requests a (repeated) start condition.
	TWIStart
	// TWIStop requests a stop condition.
	TWIStop
	// TWIAck arms acknowledgment of the next received byte.
	TWIAck
)

// Has checks whether all bits in b are set.
func (c TWIControl) Has(b TWIControl) bool {
	return c&b == b
}

// TWIStatus is the peripheral status code reported with each event.
// Values follow the common master-mode status table.
type TWIStatus uint8

// Master mode status codes.
const (
	TWIStatusStart       TWIStatus = 0x08
	TWIStatusRepStart    TWIStatus = 0x10
	TWIStatusMTSlaveAck  TWIStatus = 0x18
	TWIStatusMTSlaveNack TWIStatus = 0x20
	TWIStatusMTDataAck   TWIStatus = 0x28
	TWIStatusMTDataNack  TWIStatus = 0x30
	TWIStatusArbLost     TWIStatus = 0x38
	TWIStatusMRSlaveAck  TWIStatus = 0x40
	TWIStatusMRSlaveNack TWIStatus = 0x48
	TWIStatusMRDataAck   TWIStatus = 0x50
	TWIStatusMRDataNack  TWIStatus = 0x58
	TWIStatusNoInfo      TWIStatus = 0xf8
	TWIStatusBusError    TWIStatus = 0x00
)

// TWI is a master-mode two-wire peripheral. The peripheral raises its
// interrupt after each completed bus event; the handler inspects Status and
// answers with Control.
type TWI interface {
	// SetBitRate loads the clock divisor.
	SetBitRate(divisor uint8)
	Control(TWIControl)
	Status() TWIStatus
	WriteData(byte)
	ReadData() byte
	// SetInterruptHandler installs the handler run after each bus event.
	SetInterruptHandler(fn func())
}
