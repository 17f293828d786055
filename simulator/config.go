package simulator

import (
	"errors"
	"fmt"
	"time"
)

// Config holds parameters for the simulator.
type Config struct {
	Broker       string
	ChargerID    string
	CommandTopic string
	AckTopic     string
	SoCTopic     string
	Interval     time.Duration
	// TimeScale is the number of simulated seconds per real second.
	TimeScale    float64
	AckLatency   time.Duration
	DropRate     float64
	CapacityKWh  float64
	ChargeRateKW float64
	InitialSoC   float64
}

// Validate checks the topics and battery parameters.
func (c Config) Validate() error {
	if c.Broker == "" || c.ChargerID == "" {
		return errors.New("broker and charger id are required")
	}
	if c.CommandTopic == "" || c.SoCTopic == "" {
		return errors.New("command and soc topics are required")
	}
	if c.Interval <= 0 || c.TimeScale <= 0 {
		return errors.New("interval and time scale must be positive")
	}
	if c.CapacityKWh <= 0 || c.ChargeRateKW <= 0 {
		return errors.New("battery capacity and charge rate must be positive")
	}
	if c.DropRate < 0 || c.DropRate > 1 {
		return fmt.Errorf("drop rate %.2f outside 0-1", c.DropRate)
	}
	return nil
}
