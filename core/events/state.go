package events

import (
	"time"

	"github.com/kilianp07/evsmart/core/model"
)

// StateChanged is published when the decision state changes.
type StateChanged struct {
	From    model.DecisionState
	To      model.DecisionState
	Reason  string
	Trigger string
	At      time.Time
}

// ScheduleUpdated is published after every evaluation that produced a live
// schedule. State is the decision of that evaluation.
type ScheduleUpdated struct {
	State    model.DecisionState
	Schedule model.ChargingSchedule
	Summary  model.Summary
	Stats    model.Stats
	Rebuilt  bool
	At       time.Time
}
