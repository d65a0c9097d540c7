package pulse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/flipbot/pkg/hal"
	"github.com/robotalks/flipbot/pkg/hal/sim"
)

func TestAccumulator(t *testing.T) {
	acc := Accumulator{Window: 4}
	for _, high := range []bool{true, false, true} {
		_, _, done := acc.Add(high)
		require.False(t, done)
	}
	duty, count, done := acc.Add(false)
	require.True(t, done)
	require.Equal(t, uint8(127), duty)
	require.Equal(t, uint16(2), count)
	require.Equal(t, Accumulator{Window: 4}, acc)
}

// wave drives pin high for the first high samples of every period.
func wave(d *Decoder, gpio *sim.GPIO, pin hal.Pin, period, high, samples int) {
	for i := 0; i < samples; i++ {
		gpio.SetPin(pin, i%period < high)
		d.Tick()
	}
}

func TestDuty(t *testing.T) {
	testCases := []struct {
		name   string
		window uint16
		period int
		high   int
		duty   uint8
	}{
		{"static-high", BrushedWindow, 1, 1, 255},
		{"static-low", BrushedWindow, 1, 0, 0},
		{"half", BrushedWindow, 16, 8, 127},
		{"quarter", BrushedWindow, 8, 2, 63},
		{"servo-1.5ms", BrushlessWindow, 200, 15, 19},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gpio := sim.NewGPIO()
			d := NewDecoder(gpio)
			ch := d.AddChannel(3, tc.window)
			wave(d, gpio, 3, tc.period, tc.high, int(tc.window))
			require.Equal(t, uint32(1), d.Windows(ch))
			require.Equal(t, tc.duty, d.Duty(ch))
		})
	}
}

func TestPublishOnlyOnFullWindow(t *testing.T) {
	gpio := sim.NewGPIO()
	d := NewDecoder(gpio)
	ch := d.AddChannel(1, 0)
	wave(d, gpio, 1, 1, 1, int(BrushedWindow)-1)
	require.Equal(t, uint32(0), d.Windows(ch))
	require.Equal(t, uint8(0), d.Duty(ch))
	d.Tick()
	require.Equal(t, uint32(1), d.Windows(ch))
	require.Equal(t, uint8(255), d.Duty(ch))
}

func TestBrushedCommand(t *testing.T) {
	gpio := sim.NewGPIO()
	d := NewDecoder(gpio)
	a := d.AddChannel(1, BrushedWindow)
	b := d.AddChannel(2, BrushedWindow)
	for i := 0; i < int(BrushedWindow); i++ {
		gpio.SetPin(1, true)
		gpio.SetPin(2, i%2 == 0)
		d.Tick()
	}
	require.Equal(t, 127-255, d.BrushedCommand(a, b))
	require.Equal(t, 255-127, d.BrushedCommand(b, a))
}

func TestThrottle(t *testing.T) {
	linear := DefaultThrottle
	linear.Linear = true
	testCases := []struct {
		name     string
		mapping  Throttle
		count    uint16
		throttle uint8
		shutdown bool
	}{
		{"absent", DefaultThrottle, 0, 0, true},
		{"below-shutdown", DefaultThrottle, 7, 0, true},
		{"at-shutdown", DefaultThrottle, 8, 0, false},
		{"low", DefaultThrottle, 12, 0, false},
		{"mid-low", DefaultThrottle, 13, 127, false},
		{"mid-high", DefaultThrottle, 17, 127, false},
		{"high", DefaultThrottle, 18, 255, false},
		{"linear-absent", linear, 3, 0, true},
		{"linear-min", linear, 10, 0, false},
		{"linear-mid", linear, 15, 127, false},
		{"linear-max", linear, 20, 255, false},
		{"linear-over", linear, 40, 255, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			throttle, shutdown := tc.mapping.Decode(tc.count)
			require.Equal(t, tc.throttle, throttle)
			require.Equal(t, tc.shutdown, shutdown)
		})
	}
}

func TestSampledServo(t *testing.T) {
	const hz = 8000000
	board := sim.NewBoard(hz)
	servo := sim.NewServoSource(board.GPIO, 5, hz)
	servo.SetWidth(1500 * time.Microsecond)
	board.Clock.Attach(servo)

	d := NewDecoder(board.GPIO)
	ch := d.AddChannel(5, BrushlessWindow)
	require.NoError(t, board.Timer2.Configure(hal.TimerConfig{
		Mode:       hal.TimerCTC,
		Prescaler:  8,
		Top:        hz/8/SampleHz - 1,
		OnCompareA: d.Tick,
	}))
	board.Clock.AdvanceTime(60 * time.Millisecond)
	require.True(t, d.Windows(ch) >= 2)
	require.Equal(t, uint16(15), d.Count(ch))
	_, shutdown := DefaultThrottle.Decode(d.Count(ch))
	require.False(t, shutdown)

	servo.SetWidth(0)
	board.Clock.AdvanceTime(60 * time.Millisecond)
	require.Equal(t, uint16(0), d.Count(ch))
	_, shutdown = DefaultThrottle.Decode(d.Count(ch))
	require.True(t, shutdown)
}
