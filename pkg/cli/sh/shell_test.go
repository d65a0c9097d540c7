package sh

import (
	"testing"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/flipbot/pkg/telemetry"
)

func statusPayload(t *testing.T, id string, iterations uint64) []byte {
	data, err := proto.Marshal(&telemetry.Status{Type: "flipbot", ID: id, Iterations: iterations})
	require.NoError(t, err)
	return data
}

func TestStatusBoard(t *testing.T) {
	b := NewStatusBoard()
	b.Handle("flipbot/r2/status", statusPayload(t, "r2", 1))
	b.Handle("flipbot/r1/status", statusPayload(t, "r1", 1))
	b.Handle("flipbot/bad/status", []byte{0xff})
	require.Equal(t, []string{"r1", "r2"}, b.IDs())

	_, ok := b.Next("r1", 10*time.Millisecond)
	require.False(t, ok)

	go func() {
		time.Sleep(10 * time.Millisecond)
		b.Handle("flipbot/r2/status", statusPayload(t, "r2", 2))
		b.Handle("flipbot/r1/status", statusPayload(t, "r1", 2))
	}()
	m, ok := b.Next("r1", 5*time.Second)
	require.True(t, ok)
	require.Equal(t, uint64(2), m.Iterations)
}
