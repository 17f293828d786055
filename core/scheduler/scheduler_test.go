package scheduler

import (
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evsmart/core/model"
)

var day = time.Date(2022, 10, 1, 0, 0, 0, 0, time.UTC)

func hoursFrom(first time.Time, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = first.Add(time.Duration(i) * time.Hour)
	}
	return out
}

func TestComputeContinuousCheapestRun(t *testing.T) {
	sched := Compute(twoDays(day, false), baseParams(), at(day, 2))
	assert.Equal(t, hoursFrom(at(day, 3), 5), chargingHours(sched))

	sum := sched.Summary(at(day, 2))
	require.True(t, sum.IsPlanned)
	assert.Equal(t, at(day, 3), *sum.StartTime)
	assert.Equal(t, at(day, 8), *sum.StopTime)
	assert.Equal(t, 5, sum.NumberOfHours)
	assert.InDelta(t, 10.0, sum.MeanPrice, 1e-9)
}

func TestComputeNonContinuousTiesFavourEarliest(t *testing.T) {
	p := baseParams()
	p.Continuous = false
	p.CurrentSoC = 74 // two hours
	sched := Compute(twoDays(day, false), p, at(day, 0))
	assert.Equal(t, hoursFrom(at(day, 3), 2), chargingHours(sched))
}

func TestComputeZeroHours(t *testing.T) {
	p := baseParams()
	p.CurrentSoC = 80
	sched := Compute(twoDays(day, true), p, at(day, 2))
	assert.Empty(t, chargingHours(sched))
	assert.False(t, sched.Summary(at(day, 2)).IsPlanned)
}

func TestComputeSlotsStayInWindow(t *testing.T) {
	p := baseParams()
	p.ReadyHour = 18
	p.StartHour = 12
	sched := Compute(twoDays(day, true), p, at(day, 2))
	require.Equal(t, model.Window{Start: at(day, 12), End: at(day, 18)}, sched.Window)
	for _, h := range chargingHours(sched) {
		assert.True(t, sched.Window.Contains(h), h)
	}
	// six slots in the window, five needed: 12..16 sums to 340, 13..17 to 350
	assert.Equal(t, hoursFrom(at(day, 12), 5), chargingHours(sched))
	assert.Len(t, sched.Slots, 48)
}

func TestComputePriceCeiling(t *testing.T) {
	p := baseParams()
	p.Continuous = false
	p.CurrentSoC = 50
	p.MinSoC = 20
	p.ApplyPriceLimit = true
	p.MaxPrice = decimal.NewFromInt(30)
	sched := Compute(twoDays(day, false), p, at(day, 0))
	hours := chargingHours(sched)
	require.NotEmpty(t, hours)
	for _, slot := range sched.Slots {
		if slot.Charging {
			assert.True(t, slot.Price.LessThan(p.MaxPrice), slot.Start)
		}
	}
	// only 03..07 are below 30 before 10:00, best effort takes all of them
	assert.Equal(t, hoursFrom(at(day, 3), 5), hours)
}

func TestComputeCeilingIgnoredBelowMinSoC(t *testing.T) {
	p := baseParams()
	p.Continuous = false
	p.CurrentSoC = 10
	p.MinSoC = 20
	p.ApplyPriceLimit = true
	p.MaxPrice = decimal.NewFromInt(30)
	sched := Compute(twoDays(day, false), p, at(day, 0))
	assert.Len(t, chargingHours(sched), 10)
}

func TestComputeCeilingDisabled(t *testing.T) {
	p := baseParams()
	p.ApplyPriceLimit = true
	p.MaxPrice = decimal.Zero
	with := Compute(twoDays(day, false), p, at(day, 2))
	p.ApplyPriceLimit = false
	without := Compute(twoDays(day, false), p, at(day, 2))
	assert.Equal(t, chargingHours(without), chargingHours(with))
}

func TestComputeOverlays(t *testing.T) {
	p := baseParams()
	p.KeepOn = true
	sched := Compute(twoDays(day, false), p, at(day, 2))
	assert.Equal(t, hoursFrom(at(day, 2), 8), chargingHours(sched))

	p.EVConnected = false
	sched = Compute(twoDays(day, false), p, at(day, 2))
	assert.Empty(t, chargingHours(sched))

	p = baseParams()
	p.Active = false
	sched = Compute(twoDays(day, false), p, at(day, 2))
	assert.Empty(t, chargingHours(sched))
}

func TestComputeContinuousInfeasible(t *testing.T) {
	p := baseParams()
	p.CurrentSoC = 20
	p.ReadyHour = 6
	sched := Compute(twoDays(day, false), p, at(day, 2))
	assert.Equal(t, hoursFrom(at(day, 2), 4), chargingHours(sched))
}

func randomSeries(r *rand.Rand) model.PriceSeries {
	values := make([]float64, 24)
	for i := range values {
		values[i] = float64(r.Intn(40))
	}
	tomorrow := make([]float64, 24)
	for i := range tomorrow {
		tomorrow[i] = float64(r.Intn(40))
	}
	return model.NewPriceSeries(dayRaw(day, values)).
		Concat(model.NewPriceSeries(dayRaw(day.AddDate(0, 0, 1), tomorrow)))
}

func windowValues(prices model.PriceSeries, w model.Window) []decimal.Decimal {
	var out []decimal.Decimal
	for _, pt := range prices.Points() {
		if w.Contains(pt.Start) {
			out = append(out, pt.Value)
		}
	}
	return out
}

func chargedCost(s model.ChargingSchedule) decimal.Decimal {
	sum := decimal.Zero
	for _, slot := range s.Slots {
		if slot.Charging {
			sum = sum.Add(slot.Price)
		}
	}
	return sum
}

func TestComputeNonContinuousIsOptimal(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		prices := randomSeries(r)
		p := baseParams()
		p.Continuous = false
		p.CurrentSoC = float64(r.Intn(60))
		p.ReadyHour = r.Intn(24)
		now := at(day, r.Intn(24))

		sched := Compute(prices, p, now)
		vals := windowValues(prices, sched.Window)
		sort.Slice(vals, func(a, b int) bool { return vals[a].LessThan(vals[b]) })
		n := p.RequiredHours()
		if n > len(vals) {
			n = len(vals)
		}
		want := decimal.Zero
		for _, v := range vals[:n] {
			want = want.Add(v)
		}
		require.Equal(t, n, sched.Hours())
		require.True(t, want.Equal(chargedCost(sched)), "case %d: want %s got %s", i, want, chargedCost(sched))
	}
}

func TestComputeContinuousIsMinimalRun(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	for i := 0; i < 200; i++ {
		prices := randomSeries(r)
		p := baseParams()
		p.CurrentSoC = float64(r.Intn(60))
		p.ReadyHour = r.Intn(24)
		now := at(day, r.Intn(24))

		sched := Compute(prices, p, now)
		vals := windowValues(prices, sched.Window)
		n := p.RequiredHours()
		if n > len(vals) {
			n = len(vals)
		}
		hours := chargingHours(sched)
		require.Len(t, hours, n)
		for k := 1; k < len(hours); k++ {
			require.Equal(t, hours[k-1].Add(time.Hour), hours[k])
		}
		if n == 0 {
			continue
		}
		var best decimal.Decimal
		for k := 0; k+n <= len(vals); k++ {
			sum := decimal.Zero
			for _, v := range vals[k : k+n] {
				sum = sum.Add(v)
			}
			if k == 0 || sum.LessThan(best) {
				best = sum
			}
		}
		require.True(t, best.Equal(chargedCost(sched)), "case %d", i)
	}
}

func TestChargingWindow(t *testing.T) {
	cases := []struct {
		name   string
		now    time.Time
		ready  int
		start  int
		start0 time.Time
		end    time.Time
	}{
		{"later today", at(day, 2), 10, model.NoStartHour, at(day, 2), at(day, 10)},
		{"tomorrow", at(day, 14), 10, model.NoStartHour, at(day, 14), at(day.AddDate(0, 0, 1), 10)},
		{"same hour is a full day", at(day, 10), 10, model.NoStartHour, at(day, 10), at(day.AddDate(0, 0, 1), 10)},
		{"truncated", at(day, 2).Add(25 * time.Minute), 10, model.NoStartHour, at(day, 2), at(day, 10)},
		{"start hour ahead", at(day, 14), 7, 22, at(day, 22), at(day.AddDate(0, 0, 1), 7)},
		{"start hour passed", at(day, 2), 7, 22, at(day, 2), at(day, 7)},
		{"start equals ready", at(day, 2), 10, 10, at(day, 2), at(day, 10)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := chargingWindow(tc.now, tc.ready, tc.start)
			assert.Equal(t, tc.start0, w.Start)
			assert.Equal(t, tc.end, w.End)
		})
	}
}

func TestCreateBaseScheduleNeedsHorizon(t *testing.T) {
	s := New()
	assert.False(t, s.CreateBaseSchedule(model.PriceSeries{}, baseParams(), at(day, 2)))
	assert.False(t, s.BaseScheduleExists())

	// tomorrow missing and the deadline is tomorrow
	assert.False(t, s.CreateBaseSchedule(twoDays(day, false), baseParams(), at(day, 11)))
	assert.False(t, s.BaseScheduleExists())

	// tomorrow missing but the deadline is today
	require.True(t, s.CreateBaseSchedule(twoDays(day, false), baseParams(), at(day, 2)))
	assert.True(t, s.BaseScheduleExists())
	assert.Equal(t, at(day, 10), s.Window().End)

	// a failed recompute keeps the previous base
	assert.False(t, s.CreateBaseSchedule(twoDays(day, false), baseParams(), at(day, 11)))
	assert.True(t, s.BaseScheduleExists())
	assert.True(t, s.DeadlinePassed(at(day, 11)))

	s.Reset()
	assert.False(t, s.BaseScheduleExists())
	_, ok := s.Schedule(baseParams(), at(day, 2))
	assert.False(t, ok)
}

func TestScheduleRefreshesWithoutReoptimizing(t *testing.T) {
	s := New()
	p := baseParams()
	require.True(t, s.CreateBaseSchedule(twoDays(day, true), p, at(day, 14)))

	first, ok := s.Schedule(p, at(day, 14).Add(10*time.Minute))
	require.True(t, ok)
	second, _ := s.Schedule(p, at(day, 14).Add(40*time.Minute))
	assert.Equal(t, first, second)
	tomorrow := day.AddDate(0, 0, 1)
	assert.Equal(t, hoursFrom(at(tomorrow, 3), 5), chargingHours(first))

	// SoC changes do not move the base selection
	p.CurrentSoC = 20
	moved, _ := s.Schedule(p, at(day, 15))
	assert.Equal(t, chargingHours(first), chargingHours(moved))

	p.EVConnected = false
	off, _ := s.Schedule(p, at(day, 15))
	assert.Empty(t, chargingHours(off))
}

func TestScheduleDropsElapsedSlots(t *testing.T) {
	s := New()
	require.True(t, s.CreateBaseSchedule(twoDays(day, false), baseParams(), at(day, 2)))

	live, _ := s.Schedule(baseParams(), at(day, 5).Add(30*time.Minute))
	assert.Equal(t, hoursFrom(at(day, 5), 3), chargingHours(live))
	assert.True(t, live.ChargingAt(at(day, 5).Add(30*time.Minute)))

	live, _ = s.Schedule(baseParams(), at(day, 11))
	sum := live.Summary(at(day, 11))
	assert.False(t, sum.IsPlanned)
	assert.Zero(t, sum.NumberOfHours)
	assert.Nil(t, sum.StartTime)
	assert.Nil(t, sum.StopTime)
}
