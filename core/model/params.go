package model

import (
	"math"

	"github.com/shopspring/decimal"
)

// NoStartHour disables the charging start hour constraint.
const NoStartHour = -1

// Switches are the operator toggles.
type Switches struct {
	Active          bool `json:"active"`
	ApplyPriceLimit bool `json:"apply_price_limit"`
	Continuous      bool `json:"continuous"`
	EVConnected     bool `json:"ev_connected"`
	KeepOn          bool `json:"keep_on"`
}

// ScheduleParameters is the input snapshot of one schedule computation.
type ScheduleParameters struct {
	CurrentSoC float64
	TargetSoC  float64
	MinSoC     float64
	PctPerHour float64
	ReadyHour  int
	StartHour  int
	MaxPrice   decimal.Decimal
	Switches
}

// RequiredHours returns the number of hours needed to reach the target SoC.
func (p ScheduleParameters) RequiredHours() int {
	missing := p.TargetSoC - p.CurrentSoC
	if missing <= 0 || p.PctPerHour <= 0 {
		return 0
	}
	return int(math.Ceil(missing/p.PctPerHour - 1e-9))
}

// PriceLimited reports whether the price ceiling excludes expensive slots.
// A vehicle below its minimum SoC is never price limited.
func (p ScheduleParameters) PriceLimited() bool {
	return p.ApplyPriceLimit && p.MaxPrice.IsPositive() && p.CurrentSoC >= p.MinSoC
}
