package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// FeedEntry is one hourly entry of a price feed. Value is nil until the
// price is published.
type FeedEntry struct {
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
	Value *float64  `json:"value" yaml:"value"`
}

// PriceFeed is the payload published by the price source: the current price
// and the hourly prices of today and tomorrow.
type PriceFeed struct {
	CurrentPrice *float64    `json:"current_price" yaml:"current_price"`
	RawToday     []FeedEntry `json:"raw_today" yaml:"raw_today"`
	RawTomorrow  []FeedEntry `json:"raw_tomorrow" yaml:"raw_tomorrow"`
}

func toRaw(entries []FeedEntry, loc *time.Location) []RawPrice {
	out := make([]RawPrice, len(entries))
	for i, e := range entries {
		r := RawPrice{Start: e.Start, End: e.End}
		if loc != nil {
			r.Start = r.Start.In(loc)
			r.End = r.End.In(loc)
		}
		if e.Value != nil {
			v := decimal.NewFromFloat(*e.Value)
			r.Value = &v
		}
		out[i] = r
	}
	return out
}

// Today returns today's prices expressed in loc. A nil loc keeps the feed's
// own offsets.
func (f PriceFeed) Today(loc *time.Location) PriceSeries {
	return NewPriceSeries(toRaw(f.RawToday, loc))
}

// Tomorrow returns tomorrow's prices expressed in loc.
func (f PriceFeed) Tomorrow(loc *time.Location) PriceSeries {
	return NewPriceSeries(toRaw(f.RawTomorrow, loc))
}

// Current returns the current price, if published.
func (f PriceFeed) Current() (decimal.Decimal, bool) {
	if f.CurrentPrice == nil {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(*f.CurrentPrice), true
}
