package metrics

import (
	"context"

	"github.com/kilianp07/evsmart/core/events"
	coremetrics "github.com/kilianp07/evsmart/core/metrics"
	"github.com/kilianp07/evsmart/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records schedule
// refreshes on sinks implementing ScheduleRecorder. It stops when the context
// is canceled. The returned channel is closed once the collector stopped.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	rec, ok := sink.(coremetrics.ScheduleRecorder)
	if bus == nil || !ok {
		close(done)
		return done
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if e, ok := ev.(events.ScheduleUpdated); ok {
					_ = rec.RecordSchedule(coremetrics.ScheduleEvent{
						Summary: e.Summary,
						Rebuilt: e.Rebuilt,
						Stats:   e.Stats,
						Time:    e.At,
					})
				}
			}
		}
	}()
	return done
}
