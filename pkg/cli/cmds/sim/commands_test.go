package sim

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/flipbot/pkg/telemetry"
)

func TestParseTilt(t *testing.T) {
	msg, err := ParseTilt([]string{"180"})
	require.NoError(t, err)
	require.Equal(t, &telemetry.Tilt{Roll: 180}, msg)

	msg, err = ParseTilt([]string{"-30", "12.5"})
	require.NoError(t, err)
	require.Equal(t, &telemetry.Tilt{Roll: -30, Pitch: 12.5}, msg)

	_, err = ParseTilt(nil)
	require.Error(t, err)
	_, err = ParseTilt([]string{"x"})
	require.Error(t, err)
}

func TestParseInput(t *testing.T) {
	testCases := []struct {
		name string
		args []string
		msg  *telemetry.Input
		ok   bool
	}{
		{"empty", nil, &telemetry.Input{}, true},
		{"motors", []string{"motor1=200", "m2=-200"}, &telemetry.Input{Motor1: 200, Motor2: -200}, true},
		{"throttle", []string{"throttle=1500", "b=1", "volts=74"}, &telemetry.Input{ThrottleMicros: 1500, Button: true, Decivolts: 74}, true},
		{"no value", []string{"motor1"}, nil, false},
		{"bad value", []string{"motor1=fast"}, nil, false},
		{"negative throttle", []string{"throttle=-1"}, nil, false},
		{"unknown", []string{"gear=2"}, nil, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := ParseInput(tc.args)
			if !tc.ok {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.msg, msg)
		})
	}
}
