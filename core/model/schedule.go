package model

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

// Window is the period in which charging may be planned.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls in [Start, End).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Hours returns the number of whole slots in the window.
func (w Window) Hours() int {
	if !w.End.After(w.Start) {
		return 0
	}
	return int(w.End.Sub(w.Start) / SlotDuration)
}

// ChargingSlot is the charging decision for one hourly slot.
type ChargingSlot struct {
	Start    time.Time       `json:"start"`
	Price    decimal.Decimal `json:"price"`
	Charging bool            `json:"charging"`
}

// End returns the end of the slot.
func (s ChargingSlot) End() time.Time { return s.Start.Add(SlotDuration) }

// ChargingSchedule holds one decision per slot of the price horizon.
type ChargingSchedule struct {
	Slots      []ChargingSlot `json:"slots"`
	Window     Window         `json:"window"`
	Continuous bool           `json:"continuous"`
}

// Summary is the derived view of a schedule relative to a point in time.
type Summary struct {
	IsPlanned     bool       `json:"is_planned"`
	StartTime     *time.Time `json:"start_time"`
	StopTime      *time.Time `json:"stop_time"`
	NumberOfHours int        `json:"number_of_hours"`
	MeanPrice     float64    `json:"mean_price"`
}

// EmptySchedule returns a schedule with one non-charging slot per price slot.
func EmptySchedule(prices PriceSeries) ChargingSchedule {
	slots := make([]ChargingSlot, prices.Len())
	for i := range slots {
		p := prices.At(i)
		slots[i] = ChargingSlot{Start: p.Start, Price: p.Value}
	}
	return ChargingSchedule{Slots: slots}
}

// Clone returns a deep copy.
func (c ChargingSchedule) Clone() ChargingSchedule {
	out := c
	out.Slots = make([]ChargingSlot, len(c.Slots))
	copy(out.Slots, c.Slots)
	return out
}

// ChargingAt reports whether the slot containing t is a charging slot.
func (c ChargingSchedule) ChargingAt(t time.Time) bool {
	for _, s := range c.Slots {
		if !t.Before(s.Start) && t.Before(s.End()) {
			return s.Charging
		}
	}
	return false
}

// Hours returns the number of charging slots.
func (c ChargingSchedule) Hours() int {
	n := 0
	for _, s := range c.Slots {
		if s.Charging {
			n++
		}
	}
	return n
}

// Flags returns the per-slot charging flags.
func (c ChargingSchedule) Flags() []bool {
	out := make([]bool, len(c.Slots))
	for i, s := range c.Slots {
		out[i] = s.Charging
	}
	return out
}

// Summary describes the charging slots that have not fully elapsed at now.
func (c ChargingSchedule) Summary(now time.Time) Summary {
	var (
		sum    Summary
		prices []float64
		first  = -1
		last   = -1
	)
	for i, s := range c.Slots {
		if !s.Charging || !s.End().After(now) {
			continue
		}
		sum.NumberOfHours++
		prices = append(prices, s.Price.InexactFloat64())
		if first < 0 {
			first = i
		}
		last = i
	}
	if first < 0 {
		return sum
	}
	if c.Continuous {
		last = first
		for last+1 < len(c.Slots) && c.Slots[last+1].Charging {
			last++
		}
	}
	start := c.Slots[first].Start
	stop := c.Slots[last].End()
	sum.IsPlanned = true
	sum.StartTime = &start
	sum.StopTime = &stop
	sum.MeanPrice = math.Round(stat.Mean(prices, nil)*1000) / 1000
	return sum
}

// String renders the summary for humans, e.g. "3h 02:00-05:00 mean 1.234".
func (s Summary) String() string {
	if !s.IsPlanned || s.StartTime == nil || s.StopTime == nil {
		return "no charging planned"
	}
	return fmt.Sprintf("%dh %s-%s mean %.3f", s.NumberOfHours,
		s.StartTime.Format("15:04"), s.StopTime.Format("15:04"), s.MeanPrice)
}
