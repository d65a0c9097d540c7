package firmware

import (
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/flipbot/pkg/motor"
	"github.com/robotalks/flipbot/pkg/orient"
)

func TestDefaultConfig(t *testing.T) {
	conf := NewConfig()
	require.NoError(t, conf.Validate())
	require.Equal(t, orient.DefaultDown, conf.DownVector())
	require.Equal(t, Command{Brushed: [2]int{200, -200}, Shutdown: true}, conf.Fixed.Command())
	conf.Down[0] = 100
	require.Equal(t, int16(0), Default().Down[0])
}

func TestParseConfig(t *testing.T) {
	conf, err := ParseConfig([]byte(`
source: pulse
shared_timer: true
down: [0, 10, -10]
timeout: 20
fixed:
  brushed1: 150
  brushed2: 150
  shutdown: false
throttle:
  linear: true
pins:
  motor1: {a: 30, b: 31}
`))
	require.NoError(t, err)
	require.Equal(t, SourcePulse, conf.Source)
	require.True(t, conf.SharedTimer)
	require.Equal(t, orient.Vector{0, 10, -10}, conf.DownVector())
	require.Equal(t, 20, conf.Timeout)
	require.Equal(t, orient.DefaultDeadzone, conf.Deadzone)
	require.Equal(t, FixedProfile{Brushed1: 150, Brushed2: 150}, conf.Fixed)
	require.True(t, conf.Throttle.Linear)
	require.Equal(t, motor.PinPair{A: 30, B: 31}, conf.Pins.Motor1)
	require.Equal(t, Default().Pins.Motor2, conf.Pins.Motor2)
}

func TestParseConfigErrors(t *testing.T) {
	testCases := []struct {
		name string
		yaml string
	}{
		{"unknown-source", "source: radio"},
		{"short-down", "down: [1, 2]"},
		{"negative-ticks", "poll_ticks: -1"},
		{"malformed", "source: [fixed"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tc.yaml))
			require.Error(t, err)
		})
	}
	_, err := ParseConfig([]byte("source: radio"))
	require.True(t, errors.Is(err, ErrUnknownSource))
}

func TestLoadConfig(t *testing.T) {
	dir, err := ioutil.TempDir("", "flipbot")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	fn := filepath.Join(dir, "robot.yaml")
	require.NoError(t, ioutil.WriteFile(fn, []byte("brushless: true\nvoltmeter_ticks: 100\n"), 0644))
	conf, err := LoadConfig(fn)
	require.NoError(t, err)
	require.True(t, conf.Brushless)
	require.Equal(t, int32(100), conf.VoltmeterTicks)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}
