package telemetry

import (
	"context"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/flipbot/pkg/framework"
)

// Sink receives status reports.
type Sink interface {
	PublishStatus(*Status) error
}

// MQTTSink publishes status to an MQTT topic.
type MQTTSink struct {
	Queue *Queue
	Topic string
}

// PublishStatus implements Sink.
func (s *MQTTSink) PublishStatus(m *Status) error {
	return s.Queue.PubMsg(s.Topic, m)
}

// Publisher periodically reports status to sinks.
type Publisher struct {
	Interval time.Duration
	Source   func() *Status
	Sinks    []Sink
}

// DefaultInterval is the default reporting interval.
const DefaultInterval = 100 * time.Millisecond

// Name implements fx.Named.
func (p *Publisher) Name() string {
	return "telemetry"
}

// Publish reports the current status once.
func (p *Publisher) Publish() error {
	m := p.Source()
	var errs fx.AggregatedError
	for _, sink := range p.Sinks {
		errs.Add(sink.PublishStatus(m))
	}
	return errs.Aggregate()
}

// Run implements fx.Runnable. Publish failures are logged, not fatal.
func (p *Publisher) Run(ctx context.Context) error {
	interval := p.Interval
	if interval == 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.Publish(); err != nil {
				glog.Warningf("publish status error: %v", err)
			}
		}
	}
}
