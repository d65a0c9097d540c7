package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTickCounter(t *testing.T) {
	var c TickCounter
	for i := 0; i < 5; i++ {
		c.Tick()
		require.False(t, c.Elapsed(5))
	}
	c.Tick()
	require.True(t, c.Elapsed(5))
	require.Equal(t, int32(0), c.Ticks())
	require.False(t, c.Elapsed(5))
}

func TestLoopPriority(t *testing.T) {
	var order []int
	record := func(n int) Controller {
		return ControlFunc(func(cc ControlContext) error {
			order = append(order, cc.PriorityLevel()*10+n)
			return nil
		})
	}
	l := NewLoop().
		AddController(PrLvAcuate, record(1)).
		AddController(PrLvSense, record(1), record(2)).
		AddController(PrLvControl, record(1))
	l.Step(context.Background())
	require.Equal(t, []int{41, 42, 81, 121}, order)
	require.Equal(t, uint64(1), l.Iterations())
}

func TestLoopEvery(t *testing.T) {
	var fast, slow, always int
	l := NewLoop()
	l.AddEvery(PrLvSense, 5, ControlFunc(func(ControlContext) error {
		fast++
		return nil
	}))
	l.AddEvery(PrLvControl, 20, ControlFunc(func(ControlContext) error {
		slow++
		return nil
	}))
	l.AddController(PrLvAcuate, ControlFunc(func(ControlContext) error {
		always++
		return nil
	}))
	ctx := context.Background()
	for i := 0; i < 42; i++ {
		l.Tick()
		l.Step(ctx)
	}
	require.Equal(t, 7, fast)
	require.Equal(t, 2, slow)
	require.Equal(t, 42, always)
}

func TestLoopErrorsDoNotStop(t *testing.T) {
	var ran bool
	l := NewLoop().
		AddController(PrLvSense, ControlFunc(func(ControlContext) error {
			return errors.New("sensor failure")
		})).
		AddController(PrLvControl, ControlFunc(func(ControlContext) error {
			ran = true
			return nil
		}))
	l.Step(context.Background())
	require.True(t, ran)
}

func TestLoopRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := NewLoop()
	var idle int
	l.Idle = func() {
		idle++
		if idle == 3 {
			cancel()
		}
	}
	require.Equal(t, context.Canceled, l.Run(ctx))
	require.Equal(t, uint64(3), l.Iterations())
}

type errRunnable struct {
	err error
}

func (r *errRunnable) Run(ctx context.Context) error {
	if r.err != nil {
		return r.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestRunnerAggregates(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	failure := errors.New("failure")
	r := NewRunnerWith(ctx)
	r.Go(&errRunnable{err: failure}, NamedRun("idle", &errRunnable{}))
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := r.Wait()
	require.Error(t, err)
	agg, ok := err.(*AggregatedError)
	require.True(t, ok)
	require.Equal(t, []error{failure}, agg.Errors)
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Add(nil).Aggregate())
	errs.Add(errors.New("a"), nil, errors.New("b"))
	require.Equal(t, "Multiple errors:\na\nb", errs.Aggregate().Error())
}
