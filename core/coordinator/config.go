package coordinator

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kilianp07/evsmart/core/model"
)

const (
	// DefaultPctPerHour is used when the configured charge rate is not positive.
	DefaultPctPerHour = 6.0
	// DefaultTargetSoC is used when no target SoC source is configured.
	DefaultTargetSoC = 100.0
	// DefaultActuationTimeout bounds a single charger command.
	DefaultActuationTimeout = 10 * time.Second
)

// Config holds the static charging parameters.
type Config struct {
	ChargerID        string
	PctPerHour       float64
	ReadyHour        int
	// StartHour opens the charging window at that hour. Nil leaves the
	// window open from now until the ready hour.
	StartHour        *int
	MaxPrice         decimal.Decimal
	MinSoC           float64
	DefaultTargetSoC float64
	// TargetSoCSource reports whether a target SoC input is configured. When
	// it is, the inputs are not ready until a target has been received.
	TargetSoCSource  bool
	Location         *time.Location
	ActuationTimeout time.Duration
	Switches         model.Switches
}

// SetDefaults fills unset values.
func (c *Config) SetDefaults() {
	if c.PctPerHour <= 0 {
		c.PctPerHour = DefaultPctPerHour
	}
	if c.DefaultTargetSoC <= 0 {
		c.DefaultTargetSoC = DefaultTargetSoC
	}
	if c.Location == nil {
		c.Location = time.Local
	}
	if c.ActuationTimeout <= 0 {
		c.ActuationTimeout = DefaultActuationTimeout
	}
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.ReadyHour < 0 || c.ReadyHour > 23 {
		return errors.New("ready hour must be within 0-23")
	}
	if c.StartHour != nil && (*c.StartHour < 0 || *c.StartHour > 23) {
		return errors.New("start hour must be within 0-23")
	}
	if c.MaxPrice.IsNegative() {
		return errors.New("max price must not be negative")
	}
	if c.MinSoC < 0 || c.MinSoC > 100 {
		return errors.New("min soc must be within 0-100")
	}
	if c.DefaultTargetSoC > 100 {
		return errors.New("default target soc must be within 0-100")
	}
	return nil
}

// StartAt returns h as a Config.StartHour value.
func StartAt(h int) *int { return &h }

func (c Config) startHour() int {
	if c.StartHour == nil {
		return model.NoStartHour
	}
	return *c.StartHour
}
