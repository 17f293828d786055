package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/evsmart/core/metrics"
	"github.com/kilianp07/evsmart/core/model"
)

// PromSink exposes charging decisions as Prometheus metrics.
type PromSink struct {
	state      prometheus.Gauge
	planned    prometheus.Gauge
	price      prometheus.Gauge
	soc        prometheus.Gauge
	changes    *prometheus.CounterVec
	actuations *prometheus.CounterVec
	latency    prometheus.Histogram
}

// NewPromSink registers the metrics on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers the metrics on reg. A nil registerer
// defaults to the global Prometheus registerer. Metrics registered by a
// previous sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "evsmart_charging_state",
			Help: "Current charging decision (1 = on)",
		}),
		planned: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "evsmart_planned_hours",
			Help: "Number of planned charging hours not yet elapsed",
		}),
		price: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "evsmart_current_price",
			Help: "Current electricity price",
		}),
		soc: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "evsmart_soc_percent",
			Help: "Last reported state of charge",
		}),
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evsmart_state_changes_total",
			Help: "Number of charging decision changes",
		}, []string{"state", "trigger"}),
		actuations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evsmart_actuations_total",
			Help: "Commands sent to the charger",
		}, []string{"action", "success"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "evsmart_actuation_latency_seconds",
			Help:    "Time taken by the charger to accept a command",
			Buckets: prometheus.DefBuckets,
		}),
	}
	var err error
	if s.state, err = register(reg, s.state); err != nil {
		return nil, err
	}
	if s.planned, err = register(reg, s.planned); err != nil {
		return nil, err
	}
	if s.price, err = register(reg, s.price); err != nil {
		return nil, err
	}
	if s.soc, err = register(reg, s.soc); err != nil {
		return nil, err
	}
	if s.changes, err = register(reg, s.changes); err != nil {
		return nil, err
	}
	if s.actuations, err = register(reg, s.actuations); err != nil {
		return nil, err
	}
	if s.latency, err = register(reg, s.latency); err != nil {
		return nil, err
	}
	return s, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordDecision updates the state, price and SoC gauges.
func (s *PromSink) RecordDecision(ev coremetrics.DecisionEvent) error {
	if ev.State == model.StateOn {
		s.state.Set(1)
	} else {
		s.state.Set(0)
	}
	if ev.CurrentPrice != nil {
		s.price.Set(*ev.CurrentPrice)
	}
	if ev.SoC != nil {
		s.soc.Set(*ev.SoC)
	}
	if ev.Changed {
		s.changes.WithLabelValues(ev.State.String(), ev.Trigger).Inc()
	}
	return nil
}

// RecordSchedule sets the planned hours gauge.
func (s *PromSink) RecordSchedule(ev coremetrics.ScheduleEvent) error {
	s.planned.Set(float64(ev.Summary.NumberOfHours))
	return nil
}

// RecordActuation counts the command and observes its latency.
func (s *PromSink) RecordActuation(ev coremetrics.ActuationEvent) error {
	s.actuations.WithLabelValues(ev.State.String(), strconv.FormatBool(ev.Success)).Inc()
	if ev.Success {
		s.latency.Observe(ev.Latency.Seconds())
	}
	return nil
}
