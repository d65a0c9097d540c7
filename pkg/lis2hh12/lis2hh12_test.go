package lis2hh12

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type regBus struct {
	regs  [256]byte
	ptr   byte
	nack  bool
	sends [][]byte
}

func (b *regBus) Send(data []byte) bool {
	if b.nack {
		return false
	}
	b.sends = append(b.sends, append([]byte(nil), data...))
	b.ptr = data[0]
	for _, v := range data[1:] {
		b.regs[b.ptr] = v
		b.ptr++
	}
	return true
}

func (b *regBus) ReceiveInto(buf []byte) bool {
	if b.nack {
		return false
	}
	for i := range buf {
		buf[i] = b.regs[b.ptr]
		b.ptr++
	}
	return true
}

func TestConfigure(t *testing.T) {
	bus := &regBus{}
	s := New(bus)
	require.NoError(t, s.Configure(DefaultCtrl1))
	require.Equal(t, [][]byte{{RegCtrl1, DefaultCtrl1}}, bus.sends)
	require.Equal(t, byte(DefaultCtrl1), bus.regs[RegCtrl1])
	bus.nack = true
	require.Equal(t, ErrNack, s.Configure(DefaultCtrl1))
}

func TestIdentify(t *testing.T) {
	bus := &regBus{}
	s := New(bus)
	require.Equal(t, ErrIdentity, s.Identify())
	bus.regs[RegWhoAmI] = Identity
	require.NoError(t, s.Identify())
}

func TestRead(t *testing.T) {
	testCases := []struct {
		name string
		raw  []byte
		v    [3]int16
	}{
		{"zero", []byte{0, 0, 0, 0, 0, 0}, [3]int16{0, 0, 0}},
		{"upright", []byte{0, 0, 0x33, 0x33, 0x9a, 0xd9}, [3]int16{0, 13107, -9830}},
		{"extremes", []byte{0xff, 0x7f, 0x00, 0x80, 0xff, 0xff}, [3]int16{32767, -32768, -1}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			bus := &regBus{}
			copy(bus.regs[RegOutXL:], tc.raw)
			v, err := New(bus).Read()
			require.NoError(t, err)
			require.Equal(t, tc.v, v)
			require.Equal(t, [][]byte{{RegOutXL}}, bus.sends)
		})
	}
}

func TestReadNack(t *testing.T) {
	_, err := New(&regBus{nack: true}).Read()
	require.Equal(t, ErrNack, err)
}
