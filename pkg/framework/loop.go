package framework

import (
	"context"
	"log"
	"sync/atomic"

	"github.com/golang/glog"
)

// TickCounter counts ticks delivered from interrupt context.
type TickCounter struct {
	ticks atomic.Int32
}

// Tick adds one tick. Safe from interrupt context.
func (c *TickCounter) Tick() {
	c.ticks.Add(1)
}

// Ticks returns the accumulated ticks.
func (c *TickCounter) Ticks() int32 {
	return c.ticks.Load()
}

// Elapsed checks whether more than threshold ticks accumulated and, if
// so, consumes them.
func (c *TickCounter) Elapsed(threshold int32) bool {
	n := c.ticks.Load()
	if n <= threshold {
		return false
	}
	c.ticks.Add(-n)
	return true
}

// Loop is a cooperative control loop. Every iteration runs the
// controllers by priority level. Controllers added with Every are gated
// by their own TickCounter which the loop ticks from Tick.
type Loop struct {
	// Idle is called after every iteration if set.
	Idle func()

	controllers [PriorityLevels][]Controller
	counters    []*TickCounter
	iteration   uint64
}

// LoopAdder provides specific logic to add components to loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}

type loopIteration struct {
	ctx           context.Context
	priorityLevel int
	iteration     uint64
}

type gatedController struct {
	counter   *TickCounter
	threshold int32
	ctl       Controller
}

func (c *gatedController) Control(cc ControlContext) error {
	if !c.counter.Elapsed(c.threshold) {
		return nil
	}
	return c.ctl.Control(cc)
}

// NewLoop creates a Loop.
func NewLoop() *Loop {
	return &Loop{}
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddController registers controllers run on every iteration.
func (l *Loop) AddController(priorityLevel int, ctls ...Controller) *Loop {
	l.controllers[priorityLevel] = append(l.controllers[priorityLevel], ctls...)
	return l
}

// Every wraps ctl so it only runs once more than threshold ticks have
// been delivered since it last ran. Must be called before ticks start.
func (l *Loop) Every(threshold int32, ctl Controller) Controller {
	counter := &TickCounter{}
	l.counters = append(l.counters, counter)
	return &gatedController{counter: counter, threshold: threshold, ctl: ctl}
}

// AddEvery registers tick gated controllers.
func (l *Loop) AddEvery(priorityLevel int, threshold int32, ctls ...Controller) *Loop {
	for _, ctl := range ctls {
		l.AddController(priorityLevel, l.Every(threshold, ctl))
	}
	return l
}

// Tick delivers one tick to all gated controllers.
// It is called from the tick interrupt.
func (l *Loop) Tick() {
	for _, c := range l.counters {
		c.Tick()
	}
}

// Iterations returns the number of completed iterations.
func (l *Loop) Iterations() uint64 {
	return atomic.LoadUint64(&l.iteration)
}

// Step runs one iteration.
func (l *Loop) Step(ctx context.Context) {
	iter := &loopIteration{ctx: ctx, iteration: atomic.LoadUint64(&l.iteration)}
	for i := 0; i < PriorityLevels; i++ {
		iter.priorityLevel = i
		runControllers(iter, l.controllers[i])
	}
	atomic.AddUint64(&l.iteration, 1)
}

// Run implements Runnable.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		l.Step(ctx)
		if l.Idle != nil {
			l.Idle()
		}
	}
}

// RunOrFail is intended to be used in main to simply run the loop.
func (l *Loop) RunOrFail() {
	if err := l.Run(context.TODO()); err != nil {
		log.Fatalln(err)
	}
}

func (t *loopIteration) Context() context.Context {
	return t.ctx
}

func (t *loopIteration) PriorityLevel() int {
	return t.priorityLevel
}

func (t *loopIteration) Iteration() uint64 {
	return t.iteration
}

func runControllers(iter *loopIteration, ctls []Controller) {
	for _, ctl := range ctls {
		if err := ctl.Control(iter); err != nil {
			glog.Errorf("controller error: %v", err)
		}
	}
}
