package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kilianp07/evsmart/core/coordinator"
	"github.com/kilianp07/evsmart/infra/logger"
)

// TickSpec fires at the start of every hour.
const TickSpec = "0 * * * *"

// Evaluator is the write side of the coordinator.
type Evaluator interface {
	Evaluate(ctx context.Context, ev coordinator.Event) error
}

// newTicker schedules hourly ticks in loc. A tick is dropped when the
// previous one has not been consumed yet.
func newTicker(loc *time.Location, out chan<- coordinator.Event, clock func() time.Time, log logger.Logger) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(loc))
	_, err := c.AddFunc(TickSpec, func() {
		select {
		case out <- coordinator.Tick(clock()):
		default:
			log.Warnf("hourly tick dropped: dispatcher busy")
		}
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// dispatch evaluates events one at a time until ctx is done or both
// channels are closed. Evaluation errors are logged.
func dispatch(ctx context.Context, ev Evaluator, inputs, ticks <-chan coordinator.Event, log logger.Logger) {
	for inputs != nil || ticks != nil {
		var (
			e  coordinator.Event
			ok bool
		)
		select {
		case <-ctx.Done():
			return
		case e, ok = <-inputs:
			if !ok {
				inputs = nil
				continue
			}
		case e, ok = <-ticks:
			if !ok {
				ticks = nil
				continue
			}
		}
		if err := ev.Evaluate(ctx, e); err != nil {
			log.Warnf("evaluation after %s: %v", e.Kind, err)
		}
	}
}
