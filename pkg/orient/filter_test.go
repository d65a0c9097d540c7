package orient

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	upright  = Vector{0, 13107, -9830}
	inverted = Vector{0, -13107, 9830}
	level    = Vector{16384, 0, 0}
)

func TestDownness(t *testing.T) {
	testCases := []struct {
		name     string
		v        Vector
		downness int
	}{
		{"upright", upright, 14},
		{"inverted", inverted, -14},
		{"level", level, 0},
		{"truncated-components", Vector{999, 999, -999}, 0},
		{"edge-positive", Vector{0, 2000, -1000}, 2},
		{"edge-negative", Vector{0, -2000, 1000}, -2},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.downness, Downness(tc.v, DefaultDown))
		})
	}
}

func TestRawSign(t *testing.T) {
	testCases := []struct {
		name string
		v    Vector
		raw  Sign
	}{
		{"upright", upright, Upright},
		{"inverted", inverted, Inverted},
		{"deadzone", Vector{0, 1000, -1000}, Undecided},
		{"edge-positive", Vector{0, 2000, -1000}, Upright},
		{"edge-negative", Vector{0, -2000, 1000}, Inverted},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := NewFilter()
			f.Update(tc.v)
			require.Equal(t, tc.raw, f.Raw())
		})
	}
}

func feed(f *Filter, v Vector, n int) Sign {
	s := f.Filtered()
	for i := 0; i < n; i++ {
		s = f.Update(v)
	}
	return s
}

func TestFilterInitial(t *testing.T) {
	f := NewFilter()
	require.Equal(t, Upright, f.Filtered())
	require.Equal(t, Upright, f.Update(inverted))
}

func TestFilterHysteresis(t *testing.T) {
	f := NewFilter()
	require.Equal(t, Upright, feed(f, inverted, DefaultTimeout-1))
	require.Equal(t, DefaultTimeout-1, f.Stable())
	require.Equal(t, Inverted, f.Update(inverted))
	require.Equal(t, Inverted, feed(f, inverted, 100))
	require.Equal(t, DefaultTimeout, f.Stable())
}

func TestFilterReset(t *testing.T) {
	f := NewFilter()
	feed(f, inverted, DefaultTimeout-1)
	require.Equal(t, Upright, f.Update(upright))
	require.Equal(t, 1, f.Stable())
	require.Equal(t, Upright, feed(f, inverted, DefaultTimeout-1))
	require.Equal(t, Inverted, f.Update(inverted))
}

func TestFilterDeadzone(t *testing.T) {
	f := NewFilter()
	require.Equal(t, Upright, feed(f, level, DefaultTimeout-1))
	require.Equal(t, Undecided, f.Update(level))
	require.Equal(t, 0, f.Downness())
}
