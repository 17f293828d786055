package coordinator

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kilianp07/evsmart/core/model"
)

// State is everything the coordinator remembers between evaluations.
type State struct {
	CurrentPrice   *decimal.Decimal
	Today          model.PriceSeries
	Tomorrow       model.PriceSeries
	TwoDay         model.PriceSeries
	TomorrowValid  bool
	PricesReceived bool
	SoC            *float64
	TargetSoC      *float64
	Switches       model.Switches
	Decision       model.DecisionState
	Schedule       model.ChargingSchedule
	HasSchedule    bool
	RetryPending   bool
	LastReason     string
	LastEvaluation time.Time
}

// Status is a read-only snapshot of the coordinator for reporting.
type Status struct {
	State          model.DecisionState    `json:"state"`
	Ready          bool                   `json:"ready"`
	Reason         string                 `json:"reason"`
	Summary        model.Summary          `json:"summary"`
	ChargingHours  []bool                 `json:"charging_hours"`
	Schedule       model.ChargingSchedule `json:"schedule"`
	CurrentPrice   *float64               `json:"current_price"`
	RawTwoDays     []model.RawPrice       `json:"raw_two_days"`
	ValueInGraph   float64                `json:"value_in_graph"`
	PriceStats     model.Stats            `json:"price_stats"`
	TomorrowValid  bool                   `json:"tomorrow_valid"`
	SoC            *float64               `json:"soc"`
	TargetSoC      float64                `json:"target_soc"`
	Switches       model.Switches         `json:"switches"`
	RetryPending   bool                   `json:"retry_pending"`
	LastEvaluation time.Time              `json:"last_evaluation"`
}
