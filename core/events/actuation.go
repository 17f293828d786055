package events

import (
	"time"

	"github.com/kilianp07/evsmart/core/model"
)

// ActuationFailed is published when switching the charger failed.
type ActuationFailed struct {
	State   model.DecisionState
	Err     error
	Latency time.Duration
	At      time.Time
}
