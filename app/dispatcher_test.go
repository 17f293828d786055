package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evsmart/core/coordinator"
	"github.com/kilianp07/evsmart/infra/logger"
)

type recordingEvaluator struct {
	mu    sync.Mutex
	kinds []coordinator.EventKind
	err   error
}

func (r *recordingEvaluator) Evaluate(_ context.Context, ev coordinator.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, ev.Kind)
	return r.err
}

func TestDispatchSerializesUntilClosed(t *testing.T) {
	ev := &recordingEvaluator{err: errors.New("charger offline")}
	inputs := make(chan coordinator.Event, 2)
	ticks := make(chan coordinator.Event, 1)
	inputs <- coordinator.Event{Kind: coordinator.EventSoC}
	inputs <- coordinator.Event{Kind: coordinator.EventPrices}
	ticks <- coordinator.Tick(time.Now())
	close(inputs)
	close(ticks)

	dispatch(context.Background(), ev, inputs, ticks, logger.NopLogger{})
	assert.ElementsMatch(t, []coordinator.EventKind{coordinator.EventSoC, coordinator.EventPrices, coordinator.EventTick}, ev.kinds)
}

func TestDispatchStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		dispatch(ctx, &recordingEvaluator{}, make(chan coordinator.Event), nil, logger.NopLogger{})
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatch did not stop")
	}
}

func TestTickerSchedulesHourly(t *testing.T) {
	oslo, err := time.LoadLocation("Europe/Oslo")
	if err != nil {
		t.Skip("tzdata not available")
	}
	ticks := make(chan coordinator.Event, 1)
	fixed := time.Date(2022, 10, 1, 3, 0, 0, 0, oslo)
	c, err := newTicker(oslo, ticks, func() time.Time { return fixed }, logger.NopLogger{})
	require.NoError(t, err)

	entries := c.Entries()
	require.Len(t, entries, 1)
	next := entries[0].Schedule.Next(time.Date(2022, 10, 1, 3, 20, 0, 0, oslo))
	assert.True(t, next.Equal(time.Date(2022, 10, 1, 4, 0, 0, 0, oslo)), next.String())

	// a second tick is dropped while the first one is pending
	entries[0].Job.Run()
	entries[0].Job.Run()
	require.Len(t, ticks, 1)
	ev := <-ticks
	assert.Equal(t, coordinator.EventTick, ev.Kind)
	assert.True(t, ev.Time.Equal(fixed))
}
