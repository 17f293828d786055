package model

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SlotDuration is the length of one price slot.
const SlotDuration = time.Hour

// PricePoint is the price of one hourly slot.
type PricePoint struct {
	Start time.Time       `json:"start"`
	Value decimal.Decimal `json:"value"`
}

// End returns the end of the slot.
func (p PricePoint) End() time.Time { return p.Start.Add(SlotDuration) }

// RawPrice is a price entry as delivered by the price source. A nil Value
// means the entry is not published yet.
type RawPrice struct {
	Start time.Time        `json:"start" yaml:"start"`
	End   time.Time        `json:"end" yaml:"end"`
	Value *decimal.Decimal `json:"value" yaml:"value"`
}

// PriceSeries is an immutable, ordered sequence of hourly prices.
type PriceSeries struct {
	points []PricePoint
	valid  bool
}

// Stats summarises a price series.
type Stats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// NewPriceSeries builds a series for one calendar day from raw entries.
// Missing entries never cause an error; they make the series invalid.
func NewPriceSeries(raw []RawPrice) PriceSeries {
	points := make([]PricePoint, 0, len(raw))
	complete := len(raw) > 0
	for _, r := range raw {
		if r.Value == nil || r.Start.IsZero() {
			complete = false
			continue
		}
		points = append(points, PricePoint{Start: r.Start, Value: *r.Value})
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Start.Before(points[j].Start) })
	return PriceSeries{points: points, valid: complete && isFullDay(points)}
}

// isFullDay reports whether points are contiguous hourly slots covering the
// local calendar day of the first point.
func isFullDay(points []PricePoint) bool {
	if len(points) == 0 {
		return false
	}
	first := points[0].Start
	midnight := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, first.Location())
	if !first.Equal(midnight) {
		return false
	}
	next := midnight.AddDate(0, 0, 1)
	if len(points) != int(next.Sub(midnight)/SlotDuration) {
		return false
	}
	for i := 1; i < len(points); i++ {
		if points[i].Start.Sub(points[i-1].Start) != SlotDuration {
			return false
		}
	}
	return true
}

// Valid reports whether the series holds a complete day of prices.
func (s PriceSeries) Valid() bool { return s.valid }

// Len returns the number of slots.
func (s PriceSeries) Len() int { return len(s.points) }

// At returns the i-th slot.
func (s PriceSeries) At(i int) PricePoint { return s.points[i] }

// Points returns a copy of the slots.
func (s PriceSeries) Points() []PricePoint {
	out := make([]PricePoint, len(s.points))
	copy(out, s.points)
	return out
}

// Start returns the start of the first slot.
func (s PriceSeries) Start() time.Time {
	if len(s.points) == 0 {
		return time.Time{}
	}
	return s.points[0].Start
}

// End returns the end of the last slot.
func (s PriceSeries) End() time.Time {
	if len(s.points) == 0 {
		return time.Time{}
	}
	return s.points[len(s.points)-1].End()
}

// Concat returns the two-day series made of s followed by tomorrow. Tomorrow
// is only appended when it is valid. The result is valid when both parts are.
func (s PriceSeries) Concat(tomorrow PriceSeries) PriceSeries {
	points := make([]PricePoint, 0, len(s.points)+len(tomorrow.points))
	points = append(points, s.points...)
	if tomorrow.valid {
		points = append(points, tomorrow.points...)
	}
	return PriceSeries{points: points, valid: s.valid && tomorrow.valid}
}

// index returns the position of the slot containing t.
func (s PriceSeries) index(t time.Time) int {
	i := sort.Search(len(s.points), func(i int) bool { return s.points[i].End().After(t) })
	if i < len(s.points) && !t.Before(s.points[i].Start) {
		return i
	}
	return -1
}

// ValueAt returns the price of the slot containing t.
func (s PriceSeries) ValueAt(t time.Time) (decimal.Decimal, bool) {
	i := s.index(t)
	if i < 0 {
		return decimal.Zero, false
	}
	return s.points[i].Value, true
}

// Between returns the slots starting in [from, to). The result is never valid
// as a calendar day.
func (s PriceSeries) Between(from, to time.Time) PriceSeries {
	var points []PricePoint
	for _, p := range s.points {
		if !p.Start.Before(from) && p.Start.Before(to) {
			points = append(points, p)
		}
	}
	return PriceSeries{points: points}
}

// MaxValue returns the highest price of the series.
func (s PriceSeries) MaxValue() (decimal.Decimal, bool) {
	if len(s.points) == 0 {
		return decimal.Zero, false
	}
	highest := s.points[0].Value
	for _, p := range s.points[1:] {
		if p.Value.GreaterThan(highest) {
			highest = p.Value
		}
	}
	return highest, true
}

// MaxBetween returns the highest price of the slots starting in [from, to).
func (s PriceSeries) MaxBetween(from, to time.Time) (decimal.Decimal, bool) {
	return s.Between(from, to).MaxValue()
}

// ValueInGraph is the height used by dashboards to draw planned charging
// hours on top of the price curve.
func (s PriceSeries) ValueInGraph() float64 {
	highest, ok := s.MaxValue()
	if !ok {
		return 0
	}
	return highest.Mul(decimal.NewFromFloat(0.75)).InexactFloat64()
}

// Floats returns the prices as float64 values.
func (s PriceSeries) Floats() []float64 {
	out := make([]float64, len(s.points))
	for i, p := range s.points {
		out[i] = p.Value.InexactFloat64()
	}
	return out
}

// Stats computes summary statistics of the prices.
func (s PriceSeries) Stats() Stats {
	vals := s.Floats()
	if len(vals) == 0 {
		return Stats{}
	}
	mean, std := stat.MeanStdDev(vals, nil)
	if len(vals) == 1 {
		std = 0
	}
	return Stats{Min: floats.Min(vals), Max: floats.Max(vals), Mean: mean, StdDev: std}
}

// Raw returns the series in its raw boundary form.
func (s PriceSeries) Raw() []RawPrice {
	out := make([]RawPrice, len(s.points))
	for i, p := range s.points {
		v := p.Value
		out[i] = RawPrice{Start: p.Start, End: p.End(), Value: &v}
	}
	return out
}
