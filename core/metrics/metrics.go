package metrics

import (
	"time"

	"github.com/kilianp07/evsmart/core/model"
)

// DecisionEvent is recorded after every evaluation.
type DecisionEvent struct {
	State        model.DecisionState
	Changed      bool
	Trigger      string
	Reason       string
	CurrentPrice *float64
	SoC          *float64
	TargetSoC    float64
	Time         time.Time
}

// MetricsSink records charging decisions. It is the only interface every sink
// must implement; the other recorders are detected with type assertions.
type MetricsSink interface {
	RecordDecision(ev DecisionEvent) error
}

// ScheduleEvent describes a refreshed live schedule.
type ScheduleEvent struct {
	Summary model.Summary
	Rebuilt bool
	Stats   model.Stats
	Time    time.Time
}

// ScheduleRecorder records live schedule refreshes.
type ScheduleRecorder interface {
	RecordSchedule(ev ScheduleEvent) error
}

// ActuationEvent captures one command sent to the charger.
type ActuationEvent struct {
	State   model.DecisionState
	Success bool
	Retry   bool
	Latency time.Duration
	Error   string
	Time    time.Time
}

// ActuationRecorder records charger commands.
type ActuationRecorder interface {
	RecordActuation(ev ActuationEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordDecision(DecisionEvent) error   { return nil }
func (NopSink) RecordSchedule(ScheduleEvent) error   { return nil }
func (NopSink) RecordActuation(ActuationEvent) error { return nil }
