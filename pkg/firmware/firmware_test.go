package firmware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/flipbot/pkg/hal"
	"github.com/robotalks/flipbot/pkg/hal/sim"
	"github.com/robotalks/flipbot/pkg/lis2hh12"
	"github.com/robotalks/flipbot/pkg/orient"
)

// pollPeriod is a bit longer than the sensor poll interval so every loop
// step polls exactly once.
const pollPeriod = 13 * time.Millisecond

type firmwareTestEnv struct {
	t     *testing.T
	ctx   context.Context
	board *sim.Board
	fw    *Firmware
}

func newFirmwareTestEnv(t *testing.T, conf *Config, setup ...func(*sim.Board)) *firmwareTestEnv {
	board := sim.NewBoard(conf.CPUHz)
	board.Battery.Set(74)
	for _, fn := range setup {
		fn(board)
	}
	hw := SimHardware(board)
	hw.Delay = func(time.Duration) {}
	fw, err := New(conf, hw)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go board.IRQ.Run(ctx)
	require.NoError(t, fw.Start())
	return &firmwareTestEnv{t: t, ctx: ctx, board: board, fw: fw}
}

func (e *firmwareTestEnv) cycle(n int) {
	for i := 0; i < n; i++ {
		e.board.Clock.AdvanceTime(pollPeriod)
		e.fw.Loop.Step(e.ctx)
	}
}

func TestStart(t *testing.T) {
	env := newFirmwareTestEnv(t, NewConfig())
	require.Equal(t, byte(lis2hh12.DefaultCtrl1), env.board.Accel.Get(lis2hh12.RegCtrl1))
	require.Equal(t, uint8(72), env.board.TWI.BitRate())
	last, ok := env.board.Display.Last()
	require.True(t, ok)
	require.Equal(t, uint16(74), last)

	snap := env.fw.Snapshot()
	require.Equal(t, orient.Upright, snap.Filtered)
	require.Equal(t, [2]int{200, -200}, snap.Brushed)
	require.True(t, snap.Shutdown)
	require.Equal(t, hal.TimerCTC, env.board.Timer1.Config().Mode)
	require.Equal(t, uint16(381), env.board.Timer1.Compare(hal.CompareB))
	require.Equal(t, uint16(381), env.board.Timer3.Compare(hal.CompareB))
}

func TestFlip(t *testing.T) {
	conf := NewConfig()
	env := newFirmwareTestEnv(t, conf)
	env.cycle(3)
	snap := env.fw.Snapshot()
	require.Equal(t, uint32(3), snap.Samples)
	require.Equal(t, 14, snap.Downness)
	require.Equal(t, orient.Upright, snap.Raw)
	require.Equal(t, orient.Upright, snap.Filtered)
	require.Equal(t, [3]int16{0, 13107, -9830}, snap.Accel)

	env.board.Accel.SetAttitude(180, 0)
	env.cycle(conf.Timeout - 1)
	snap = env.fw.Snapshot()
	require.Equal(t, -14, snap.Downness)
	require.Equal(t, orient.Inverted, snap.Raw)
	require.Equal(t, orient.Upright, snap.Filtered)
	require.Equal(t, [2]int{200, -200}, snap.Brushed)

	env.cycle(1)
	snap = env.fw.Snapshot()
	require.Equal(t, orient.Inverted, snap.Filtered)
	require.Equal(t, [2]int{-200, 200}, snap.Brushed)
	require.Equal(t, Command{Brushed: [2]int{-200, 200}, Shutdown: true}, env.fw.Applied())

	env.cycle(10)
	require.Equal(t, [2]int{-200, 200}, env.fw.Snapshot().Brushed)
	require.Equal(t, uint32(0), env.fw.Snapshot().SensorErrors)
}

func TestSensorFailureKeepsOrientation(t *testing.T) {
	env := newFirmwareTestEnv(t, NewConfig())
	env.cycle(2)
	env.board.Accel.NackAddress = true
	env.board.Accel.SetAttitude(180, 0)
	env.cycle(60)
	snap := env.fw.Snapshot()
	require.Equal(t, orient.Upright, snap.Filtered)
	require.Equal(t, uint32(60), snap.SensorErrors)
	require.Equal(t, uint32(2), snap.Samples)
	require.Equal(t, [2]int{200, -200}, snap.Brushed)
	require.True(t, snap.Bus.NackAborts >= 60)
}

func TestDeadzoneStopsMotors(t *testing.T) {
	conf := NewConfig()
	env := newFirmwareTestEnv(t, conf)
	env.board.Accel.SetAttitude(90, 0)
	env.cycle(conf.Timeout)
	snap := env.fw.Snapshot()
	require.Equal(t, orient.Undecided, snap.Filtered)
	require.Equal(t, [2]int{0, 0}, snap.Brushed)
}

func TestBattery(t *testing.T) {
	conf := NewConfig()
	conf.VoltmeterTicks = 10
	env := newFirmwareTestEnv(t, conf)
	env.board.Battery.Set(71)
	env.cycle(1)
	last, _ := env.board.Display.Last()
	require.Equal(t, uint16(74), last)
	env.cycle(1)
	last, _ = env.board.Display.Last()
	require.Equal(t, uint16(71), last)
	require.Equal(t, uint16(71), env.fw.Snapshot().Decivolts)
}

func TestButton(t *testing.T) {
	conf := NewConfig()
	env := newFirmwareTestEnv(t, conf)
	env.cycle(1)
	last, _ := env.board.Display.Last()
	require.Equal(t, uint16(74), last)
	env.board.GPIO.SetPin(conf.Pins.Button, false)
	env.cycle(1)
	last, _ = env.board.Display.Last()
	require.Equal(t, uint16(ButtonValue), last)
	require.Equal(t, uint16(ButtonValue), env.fw.Snapshot().Display)
}

func TestSharedTimer(t *testing.T) {
	conf := NewConfig()
	conf.SharedTimer = true
	env := newFirmwareTestEnv(t, conf)
	env.cycle(2)
	require.Equal(t, hal.TimerFreeRunning, env.board.Timer1.Config().Mode)
	require.Equal(t, uint16(200), env.board.Timer1.Compare(hal.CompareA))
	require.Equal(t, uint16(200), env.board.Timer1.Compare(hal.CompareB))
	require.Equal(t, [2]int{200, -200}, env.fw.Snapshot().Brushed)
}

func TestPulseSource(t *testing.T) {
	const bridgePeriod = 12800
	conf := NewConfig()
	conf.Source = SourcePulse
	conf.Brushless = true
	var (
		in1, in2 *sim.BridgeSource
		throttle *sim.ServoSource
	)
	env := newFirmwareTestEnv(t, conf, func(b *sim.Board) {
		in1 = sim.NewBridgeSource(b.GPIO, conf.Pins.Input1.A, conf.Pins.Input1.B, bridgePeriod)
		in2 = sim.NewBridgeSource(b.GPIO, conf.Pins.Input2.A, conf.Pins.Input2.B, bridgePeriod)
		throttle = sim.NewServoSource(b.GPIO, conf.Pins.Throttle, conf.CPUHz)
		b.Clock.Attach(in1, in2, throttle)
	})
	snap := env.fw.Snapshot()
	require.True(t, snap.Shutdown)
	require.Len(t, snap.Duty, 5)

	in1.SetPower(100)
	in2.SetPower(-150)
	throttle.SetWidth(2 * time.Millisecond)
	env.cycle(10)
	snap = env.fw.Snapshot()
	require.InDelta(t, 100, snap.Brushed[0], 16)
	require.InDelta(t, -150, snap.Brushed[1], 16)
	require.False(t, snap.Shutdown)
	require.Equal(t, uint8(255), snap.Brushless)
	require.Equal(t, uint16(255), env.board.Timer4.Compare(hal.CompareB))

	throttle.SetWidth(0)
	env.cycle(6)
	snap = env.fw.Snapshot()
	require.True(t, snap.Shutdown)
	require.Equal(t, uint8(0), snap.Brushless)
}

func TestUnknownSource(t *testing.T) {
	conf := NewConfig()
	conf.Source = "radio"
	_, err := New(conf, SimHardware(sim.NewBoard(conf.CPUHz)))
	require.True(t, errors.Is(err, ErrUnknownSource))
}
