package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kilianp07/evsmart/core/coordinator"
	"github.com/kilianp07/evsmart/core/model"
)

// ChargingConfig holds the charging parameters of the vehicle and the
// initial switch values.
type ChargingConfig struct {
	ChargerID  string  `json:"charger_id"`
	PctPerHour float64 `json:"pct_per_hour"`
	// ReadyHour is the "HH:MM" deadline. Minutes are ignored.
	ReadyHour string `json:"ready_hour"`
	// StartHour is the optional "HH:MM" opening of the charging window.
	StartHour               string         `json:"start_hour"`
	MaxPrice                float64        `json:"max_price"`
	MinSoC                  float64        `json:"min_soc"`
	DefaultTargetSoC        float64        `json:"default_target_soc"`
	Timezone                string         `json:"timezone"`
	ActuationTimeoutSeconds int            `json:"actuation_timeout_seconds"`
	Switches                model.Switches `json:"switches"`
}

// DefaultCharging returns the charging section used when keys are absent.
func DefaultCharging() ChargingConfig {
	return ChargingConfig{
		Switches: model.Switches{Active: true, Continuous: true, EVConnected: true},
	}
}

// SetDefaults applies sane defaults.
func (c *ChargingConfig) SetDefaults() {
	if c.ChargerID == "" {
		c.ChargerID = "charger"
	}
	if c.PctPerHour <= 0 {
		c.PctPerHour = coordinator.DefaultPctPerHour
	}
	if c.ReadyHour == "" {
		c.ReadyHour = "07:00"
	}
	if c.DefaultTargetSoC <= 0 {
		c.DefaultTargetSoC = coordinator.DefaultTargetSoC
	}
	if c.ActuationTimeoutSeconds <= 0 {
		c.ActuationTimeoutSeconds = int(coordinator.DefaultActuationTimeout / time.Second)
	}
}

// Validate checks the time and percentage fields.
func (c ChargingConfig) Validate() error {
	if _, err := ParseHour(c.ReadyHour); err != nil {
		return fmt.Errorf("charging.ready_hour: %w", err)
	}
	if c.StartHour != "" {
		if _, err := ParseHour(c.StartHour); err != nil {
			return fmt.Errorf("charging.start_hour: %w", err)
		}
	}
	if c.MaxPrice < 0 {
		return errors.New("charging.max_price must not be negative")
	}
	if c.MinSoC < 0 || c.MinSoC > 100 {
		return errors.New("charging.min_soc must be within 0-100")
	}
	if c.DefaultTargetSoC > 100 {
		return errors.New("charging.default_target_soc must be within 0-100")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("charging.timezone: %w", err)
	}
	return nil
}

// Location returns the configured time zone, the local zone when unset.
func (c ChargingConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Coordinator converts the section into the coordinator configuration.
// targetSource reports whether a target SoC topic is configured.
func (c ChargingConfig) Coordinator(targetSource bool) (coordinator.Config, error) {
	ready, err := ParseHour(c.ReadyHour)
	if err != nil {
		return coordinator.Config{}, fmt.Errorf("charging.ready_hour: %w", err)
	}
	var start *int
	if c.StartHour != "" {
		h, err := ParseHour(c.StartHour)
		if err != nil {
			return coordinator.Config{}, fmt.Errorf("charging.start_hour: %w", err)
		}
		start = coordinator.StartAt(h)
	}
	loc, err := c.Location()
	if err != nil {
		return coordinator.Config{}, err
	}
	cfg := coordinator.Config{
		ChargerID:        c.ChargerID,
		PctPerHour:       c.PctPerHour,
		ReadyHour:        ready,
		StartHour:        start,
		MaxPrice:         decimal.NewFromFloat(c.MaxPrice),
		MinSoC:           c.MinSoC,
		DefaultTargetSoC: c.DefaultTargetSoC,
		TargetSoCSource:  targetSource,
		Location:         loc,
		ActuationTimeout: time.Duration(c.ActuationTimeoutSeconds) * time.Second,
		Switches:         c.Switches,
	}
	cfg.SetDefaults()
	return cfg, cfg.Validate()
}

// ParseHour returns the hour of an "HH:MM" or "HH:MM:SS" value.
func ParseHour(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	for _, p := range parts[1:] {
		if v, err := strconv.Atoi(p); err != nil || v < 0 || v > 59 {
			return 0, fmt.Errorf("invalid time %q", s)
		}
	}
	return h, nil
}
