package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evsmart/core/model"
)

// dayPattern has its cheapest five hour run between 03:00 and 08:00.
var dayPattern = []float64{50, 40, 30, 10, 10, 10, 10, 10, 30, 60, 70, 80, 80, 70, 60, 60, 70, 90, 100, 90, 80, 70, 60, 55}

var oct1 = time.Date(2022, 10, 1, 0, 0, 0, 0, time.UTC)

type tomorrowKind int

const (
	tomorrowNone tomorrowKind = iota
	tomorrowInvalid
	tomorrowValid
)

func entries(day time.Time, withValues bool) []model.FeedEntry {
	out := make([]model.FeedEntry, len(dayPattern))
	for i := range dayPattern {
		start := day.Add(time.Duration(i) * time.Hour)
		e := model.FeedEntry{Start: start, End: start.Add(time.Hour)}
		if withValues {
			v := dayPattern[i]
			e.Value = &v
		}
		out[i] = e
	}
	return out
}

func feed(day time.Time, kind tomorrowKind) model.PriceFeed {
	cur := dayPattern[0]
	f := model.PriceFeed{CurrentPrice: &cur, RawToday: entries(day, true)}
	switch kind {
	case tomorrowInvalid:
		f.RawTomorrow = entries(day.AddDate(0, 0, 1), false)
	case tomorrowValid:
		f.RawTomorrow = entries(day.AddDate(0, 0, 1), true)
	}
	return f
}

func at(day time.Time, hour int) time.Time {
	return day.Add(time.Duration(hour) * time.Hour)
}

func testConfig(ready int) Config {
	return Config{
		PctPerHour:       3,
		ReadyHour:        ready,
		StartHour:        StartAt(ready),
		DefaultTargetSoC: 80,
		Location:         time.UTC,
		Switches:         model.Switches{Active: true, Continuous: true, EVConnected: true},
	}
}

type mockCharger struct {
	mock.Mock
}

func (m *mockCharger) TurnOn(context.Context) error  { return m.Called().Error(0) }
func (m *mockCharger) TurnOff(context.Context) error { return m.Called().Error(0) }

func acceptingCharger() *mockCharger {
	m := &mockCharger{}
	m.On("TurnOn").Return(nil)
	m.On("TurnOff").Return(nil)
	return m
}

func mustEval(t *testing.T, c *Coordinator, ev Event) {
	t.Helper()
	require.NoError(t, c.Evaluate(context.Background(), ev))
}

func socEvent(t time.Time, v float64) Event {
	return Event{Kind: EventSoC, Time: t, SoC: &SoCInput{Value: v}}
}

func priceEvent(t time.Time, f model.PriceFeed) Event {
	return Event{Kind: EventPrices, Time: t, Prices: &PriceInput{Feed: f}}
}

func switchEvent(t time.Time, name string, on bool) Event {
	return Event{Kind: EventSwitch, Time: t, Switch: &SwitchInput{Name: name, On: on}}
}

// primed returns a coordinator that received SoC 66 and the prices at hour.
func primed(t *testing.T, cfg Config, ctrl *mockCharger, day time.Time, hour int, kind tomorrowKind) *Coordinator {
	t.Helper()
	c, err := New(cfg, ctrl, nil, nil, nil)
	require.NoError(t, err)
	mustEval(t, c, socEvent(at(day, hour), 66))
	mustEval(t, c, priceEvent(at(day, hour), feed(day, kind)))
	return c
}
