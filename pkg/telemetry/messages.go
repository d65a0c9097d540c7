package telemetry

import (
	"github.com/golang/protobuf/proto"

	"github.com/robotalks/flipbot/pkg/firmware"
)

// Status is the periodic state report of a robot.
type Status struct {
	Type            string   `protobuf:"bytes,1,opt,name=type,proto3" json:"type,omitempty"`
	ID              string   `protobuf:"bytes,2,opt,name=id,proto3" json:"id,omitempty"`
	Downness        int32    `protobuf:"varint,3,opt,name=downness,proto3" json:"downness"`
	Raw             int32    `protobuf:"varint,4,opt,name=raw,proto3" json:"raw"`
	Filtered        int32    `protobuf:"varint,5,opt,name=filtered,proto3" json:"filtered"`
	Accel           []int32  `protobuf:"varint,6,rep,packed,name=accel,proto3" json:"accel,omitempty"`
	Brushed         []int32  `protobuf:"varint,7,rep,packed,name=brushed,proto3" json:"brushed,omitempty"`
	Brushless       uint32   `protobuf:"varint,8,opt,name=brushless,proto3" json:"brushless"`
	Shutdown        bool     `protobuf:"varint,9,opt,name=shutdown,proto3" json:"shutdown"`
	Decivolts       uint32   `protobuf:"varint,10,opt,name=decivolts,proto3" json:"decivolts"`
	Duty            []uint32 `protobuf:"varint,11,rep,packed,name=duty,proto3" json:"duty,omitempty"`
	Samples         uint32   `protobuf:"varint,12,opt,name=samples,proto3" json:"samples"`
	SensorErrors    uint32   `protobuf:"varint,13,opt,name=sensor_errors,json=sensorErrors,proto3" json:"sensor_errors"`
	BusTransactions uint32   `protobuf:"varint,14,opt,name=bus_transactions,json=busTransactions,proto3" json:"bus_transactions"`
	BusNacks        uint32   `protobuf:"varint,15,opt,name=bus_nacks,json=busNacks,proto3" json:"bus_nacks"`
	Iterations      uint64   `protobuf:"varint,16,opt,name=iterations,proto3" json:"iterations"`
	// X, Y and Heading are the chassis pose, only reported by simulators.
	X       float64 `protobuf:"fixed64,17,opt,name=x,proto3" json:"x,omitempty"`
	Y       float64 `protobuf:"fixed64,18,opt,name=y,proto3" json:"y,omitempty"`
	Heading float64 `protobuf:"fixed64,19,opt,name=heading,proto3" json:"heading,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *Status) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Status) Reset() { *m = Status{} }

// String implements proto.Message.
func (m *Status) String() string { return proto.CompactTextString(m) }

// NewStatus builds a Status from a firmware snapshot.
func NewStatus(typ, id string, s firmware.Snapshot) *Status {
	m := &Status{
		Type:            typ,
		ID:              id,
		Downness:        int32(s.Downness),
		Raw:             int32(s.Raw),
		Filtered:        int32(s.Filtered),
		Brushless:       uint32(s.Brushless),
		Shutdown:        s.Shutdown,
		Decivolts:       uint32(s.Decivolts),
		Samples:         s.Samples,
		SensorErrors:    s.SensorErrors,
		BusTransactions: s.Bus.Transactions,
		BusNacks:        s.Bus.NackAborts,
		Iterations:      s.Iterations,
	}
	for _, v := range s.Accel {
		m.Accel = append(m.Accel, int32(v))
	}
	for _, v := range s.Brushed {
		m.Brushed = append(m.Brushed, int32(v))
	}
	for _, v := range s.Duty {
		m.Duty = append(m.Duty, uint32(v))
	}
	return m
}

// Tilt sets the simulated chassis attitude in degrees.
type Tilt struct {
	Roll  float64 `protobuf:"fixed64,1,opt,name=roll,proto3" json:"roll"`
	Pitch float64 `protobuf:"fixed64,2,opt,name=pitch,proto3" json:"pitch"`
}

// ProtoMessage implements proto.Message.
func (m *Tilt) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Tilt) Reset() { *m = Tilt{} }

// String implements proto.Message.
func (m *Tilt) String() string { return proto.CompactTextString(m) }

// Input drives the simulated inputs.
type Input struct {
	// Motor1 and Motor2 are the commanded powers on the differential
	// pulse inputs.
	Motor1 int32 `protobuf:"varint,1,opt,name=motor1,proto3" json:"motor1"`
	Motor2 int32 `protobuf:"varint,2,opt,name=motor2,proto3" json:"motor2"`
	// ThrottleMicros is the servo pulse width. Zero means no signal.
	ThrottleMicros uint32 `protobuf:"varint,3,opt,name=throttle_micros,json=throttleMicros,proto3" json:"throttle_micros"`
	Button         bool   `protobuf:"varint,4,opt,name=button,proto3" json:"button"`
	// Decivolts sets the battery voltage unless zero.
	Decivolts uint32 `protobuf:"varint,5,opt,name=decivolts,proto3" json:"decivolts"`
}

// ProtoMessage implements proto.Message.
func (m *Input) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Input) Reset() { *m = Input{} }

// String implements proto.Message.
func (m *Input) String() string { return proto.CompactTextString(m) }
