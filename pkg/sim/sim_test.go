package sim

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/flipbot/pkg/firmware"
	"github.com/robotalks/flipbot/pkg/orient"
	"github.com/robotalks/flipbot/pkg/telemetry"
)

const testHz = 8000000

func TestAngle(t *testing.T) {
	testCases := []struct {
		degrees float64
		radians float64
	}{
		{0, 0},
		{90, math.Pi / 2},
		{180, math.Pi},
		{-180, math.Pi},
		{270, -math.Pi / 2},
		{-450, -math.Pi / 2},
	}
	for _, tc := range testCases {
		t.Run("", func(t *testing.T) {
			require.InDelta(t, tc.radians, AngleFromDegrees(tc.degrees).Radians(), 1e-9)
		})
	}
	require.InDelta(t, -90, AngleFromDegrees(180).AddRadians(math.Pi/2).Degrees(), 1e-9)
}

func TestUpsideDown(t *testing.T) {
	require.False(t, UpsideDown(0, 0))
	require.False(t, UpsideDown(60, -30))
	require.True(t, UpsideDown(180, 0))
	require.True(t, UpsideDown(0, 135))
	require.False(t, UpsideDown(180, 180))
}

func TestChassis(t *testing.T) {
	const speed = 100.0 * DefaultMaxSpeed / 255
	testCases := []struct {
		name     string
		power    [2]int
		inverted bool
		x        float64
		turn     float64
	}{
		{"forward", [2]int{100, 100}, false, speed, 0},
		{"backward", [2]int{-100, -100}, false, -speed, 0},
		{"inverted forward", [2]int{-100, -100}, true, speed, 0},
		{"spin", [2]int{-100, 100}, false, 0, 2 * speed / DefaultTrack},
		{"inverted spin", [2]int{-100, 100}, true, 0, 2 * speed / DefaultTrack},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewChassis(testHz,
				func(ch int) int { return tc.power[ch] },
				func() bool { return tc.inverted })
			c.Step(testHz / 4)
			pose := c.Pose()
			require.InDelta(t, tc.x/4, pose.X, 1e-6)
			require.InDelta(t, 0, pose.Y, 1e-6)
			require.InDelta(t, tc.turn/4, pose.Orientation.Radians(), 1e-6)
		})
	}
}

func newTestSimulator(t *testing.T, conf *firmware.Config) *Simulator {
	s, err := New(conf, telemetry.Topics{Type: "flipbot", ID: "sim"})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.Board.IRQ.Run(ctx)
	require.NoError(t, s.Firmware.Start())
	return s
}

func (s *Simulator) cycle(n int) {
	for i := 0; i < n; i++ {
		s.Board.Clock.AdvanceTime(13 * time.Millisecond)
		s.Firmware.Loop.Step(context.Background())
	}
}

func TestSimulatorFlip(t *testing.T) {
	s := newTestSimulator(t, firmware.NewConfig())
	s.cycle(2)
	m := s.Status()
	require.Equal(t, "sim", m.ID)
	require.Equal(t, []int32{200, -200}, m.Brushed)
	require.True(t, m.Heading < 0)

	payload, err := proto.Marshal(&telemetry.Tilt{Roll: 180})
	require.NoError(t, err)
	s.HandleTilt("flipbot/sim/cmd/tilt", payload)
	s.cycle(orient.DefaultTimeout + 1)
	m = s.Status()
	require.Equal(t, int32(orient.Inverted), m.Filtered)
	require.Equal(t, []int32{-200, 200}, m.Brushed)
	require.InDelta(t, 0, m.X, 1e-6)
}

func TestSimulatorInput(t *testing.T) {
	conf := firmware.NewConfig()
	conf.Source = firmware.SourcePulse
	s := newTestSimulator(t, conf)

	payload, err := proto.Marshal(&telemetry.Input{
		Motor1:         120,
		Motor2:         120,
		ThrottleMicros: 2000,
		Button:         true,
		Decivolts:      81,
	})
	require.NoError(t, err)
	s.HandleInput("flipbot/sim/cmd/input", payload)
	s.HandleInput("flipbot/sim/cmd/input", []byte{0xff})
	require.False(t, s.Board.GPIO.GetPin(conf.Pins.Button))
	require.Equal(t, uint16(81), s.Board.Battery.Read())

	s.cycle(10)
	m := s.Status()
	require.InDelta(t, 120, m.Brushed[0], 16)
	require.InDelta(t, 120, m.Brushed[1], 16)
	require.False(t, m.Shutdown)
	require.True(t, m.X > 0)
	last, _ := s.Board.Display.Last()
	require.Equal(t, uint16(firmware.ButtonValue), last)
}
