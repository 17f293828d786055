package metrics

import "errors"

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordDecision forwards the event to all sinks and joins their errors.
func (m *MultiSink) RecordDecision(ev DecisionEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordDecision(ev))
	}
	return errors.Join(errs...)
}

// RecordSchedule forwards the event to the sinks implementing ScheduleRecorder.
func (m *MultiSink) RecordSchedule(ev ScheduleEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(ScheduleRecorder); ok {
			errs = append(errs, rec.RecordSchedule(ev))
		}
	}
	return errors.Join(errs...)
}

// RecordActuation forwards the event to the sinks implementing
// ActuationRecorder.
func (m *MultiSink) RecordActuation(ev ActuationEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(ActuationRecorder); ok {
			errs = append(errs, rec.RecordActuation(ev))
		}
	}
	return errors.Join(errs...)
}

// Close closes the sinks that hold resources.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		if c, ok := s.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
