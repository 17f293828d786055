package coordinator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kilianp07/evsmart/core/charger"
	"github.com/kilianp07/evsmart/core/decisionlog"
	"github.com/kilianp07/evsmart/core/events"
	"github.com/kilianp07/evsmart/core/logger"
	"github.com/kilianp07/evsmart/core/metrics"
	"github.com/kilianp07/evsmart/core/model"
	"github.com/kilianp07/evsmart/core/monitoring"
	"github.com/kilianp07/evsmart/core/scheduler"
	"github.com/kilianp07/evsmart/internal/eventbus"
)

// Decision reasons.
const (
	ReasonKeepOn        = "keep on"
	ReasonSoCUnknown    = "soc unknown"
	ReasonNotPlanned    = "outside planned slots"
	ReasonTargetReached = "target soc reached"
	ReasonPriceCeiling  = "price above ceiling"
	ReasonPlanned       = "planned slot"
)

// Coordinator is the charging decision state machine.
type Coordinator struct {
	cfg      Config
	charger  charger.Controller
	sched    *scheduler.Scheduler
	log      logger.Logger
	metrics  metrics.MetricsSink
	bus      eventbus.EventBus
	store    decisionlog.Store
	monitor  monitoring.Monitor
	clock    func() time.Time
	mu       sync.Mutex
	state    State
	snapshot atomic.Pointer[Status]
}

// New creates a Coordinator. The first evaluation always sends the decided
// state to the charger so that both sides agree after a restart.
func New(cfg Config, ctrl charger.Controller, sink metrics.MetricsSink, bus eventbus.EventBus, log logger.Logger) (*Coordinator, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("coordinator config: %w", err)
	}
	if ctrl == nil {
		ctrl = charger.NopController{}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	c := &Coordinator{
		cfg:     cfg,
		charger: ctrl,
		sched:   scheduler.New(),
		log:     log,
		metrics: sink,
		bus:     bus,
		store:   decisionlog.NopStore{},
		monitor: monitoring.NopMonitor{},
		clock:   time.Now,
		state: State{
			Switches:     cfg.Switches,
			RetryPending: true,
		},
	}
	c.publishStatus()
	return c, nil
}

// SetDecisionLog configures the store receiving decision records.
func (c *Coordinator) SetDecisionLog(store decisionlog.Store) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if store != nil {
		c.store = store
	}
}

// SetMonitor configures error reporting.
func (c *Coordinator) SetMonitor(m monitoring.Monitor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m != nil {
		c.monitor = m
	}
}

// SetClock overrides the time source used for events without a timestamp.
func (c *Coordinator) SetClock(clock func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock = clock
}

// Location returns the time zone used for scheduling.
func (c *Coordinator) Location() *time.Location { return c.cfg.Location }

// Evaluate applies ev and runs one decision cycle. Only actuation failures are
// returned; the failed command is retried on the next evaluation.
func (c *Coordinator) Evaluate(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := ev.Time
	if now.IsZero() {
		now = c.clock()
	}
	now = now.In(c.cfg.Location)

	c.apply(ev)
	rebuilt := c.rebuild(ev, now)
	c.refresh(now)

	prev := c.state.Decision
	next, reason := c.decide(now)
	changed := next != prev
	c.state.Decision = next
	c.state.LastReason = reason
	c.state.LastEvaluation = now
	// subscribers may read Status while handling the events below
	c.publishStatus()

	if changed {
		c.log.Infow("charging state changed", map[string]any{
			"from": prev.String(), "to": next.String(), "reason": reason, "trigger": ev.Kind.String(),
		})
		c.publish(events.StateChanged{From: prev, To: next, Reason: reason, Trigger: ev.Kind.String(), At: now})
	} else {
		c.log.Debugw("evaluation", map[string]any{"state": next.String(), "reason": reason, "trigger": ev.Kind.String()})
	}
	if c.state.HasSchedule {
		c.publish(events.ScheduleUpdated{
			State:    next,
			Schedule: c.state.Schedule.Clone(),
			Summary:  c.state.Schedule.Summary(now),
			Stats:    c.state.TwoDay.Stats(),
			Rebuilt:  rebuilt,
			At:       now,
		})
	}

	var actErr error
	if changed || c.state.RetryPending {
		actErr = c.actuate(ctx, next, !changed, now)
	}
	if err := c.metrics.RecordDecision(c.decisionEvent(ev, changed, reason, now)); err != nil {
		c.log.Warnf("record decision: %v", err)
	}
	if changed || actErr != nil {
		c.appendRecord(ctx, ev, prev, reason, actErr, now)
	}
	c.publishStatus()
	return actErr
}

// apply stores the input carried by ev.
func (c *Coordinator) apply(ev Event) {
	switch ev.Kind {
	case EventPrices:
		if ev.Prices == nil {
			return
		}
		feed := ev.Prices.Feed
		loc := c.cfg.Location
		c.state.CurrentPrice = nil
		if cur, ok := feed.Current(); ok {
			c.state.CurrentPrice = &cur
		}
		c.state.Today = feed.Today(loc)
		c.state.Tomorrow = feed.Tomorrow(loc)
		c.state.TomorrowValid = c.state.Tomorrow.Valid()
		c.state.TwoDay = c.state.Today.Concat(c.state.Tomorrow)
		c.state.PricesReceived = true
		if !c.state.Today.Valid() {
			c.log.Warnf("today's prices are incomplete: %d slots", c.state.Today.Len())
		}
	case EventSoC:
		if ev.SoC != nil {
			v := ev.SoC.Value
			c.state.SoC = &v
		}
	case EventTargetSoC:
		if ev.TargetSoC != nil {
			v := ev.TargetSoC.Value
			c.state.TargetSoC = &v
		}
	case EventSwitch:
		if ev.Switch != nil {
			applySwitch(&c.state.Switches, *ev.Switch)
		}
	}
}

// rebuild recomputes the base schedule. Ticks only rebuild once the previous
// window has ended. Nothing is rebuilt while charging.
func (c *Coordinator) rebuild(ev Event, now time.Time) bool {
	if ev.Kind == EventTick && c.sched.BaseScheduleExists() && !c.sched.DeadlinePassed(now) {
		return false
	}
	if c.state.Decision != model.StateOff || c.state.SoC == nil || c.state.TwoDay.Len() == 0 {
		return false
	}
	ok := c.sched.CreateBaseSchedule(c.state.TwoDay, c.params(), now)
	if !ok {
		c.log.Debugf("base schedule kept: prices do not cover the window")
	}
	return ok
}

// refresh derives the live schedule from the base schedule.
func (c *Coordinator) refresh(now time.Time) {
	live, ok := c.sched.Schedule(c.params(), now)
	c.state.Schedule = live
	c.state.HasSchedule = ok
}

// decide returns the charging state for now and the reason behind it.
func (c *Coordinator) decide(now time.Time) (model.DecisionState, string) {
	if c.state.Switches.KeepOn {
		return model.StateOn, ReasonKeepOn
	}
	if c.state.SoC == nil {
		return model.StateOff, ReasonSoCUnknown
	}
	if !c.state.HasSchedule || !c.state.Schedule.ChargingAt(now) {
		return model.StateOff, ReasonNotPlanned
	}
	soc := *c.state.SoC
	if target, ok := c.knownTarget(); ok && soc >= target {
		return model.StateOff, ReasonTargetReached
	}
	if price, ok := c.currentPrice(now); ok && !c.priceAllowed(price, soc) {
		return model.StateOff, ReasonPriceCeiling
	}
	return model.StateOn, ReasonPlanned
}

func (c *Coordinator) priceAllowed(price decimal.Decimal, soc float64) bool {
	return !c.state.Switches.ApplyPriceLimit ||
		!c.cfg.MaxPrice.IsPositive() ||
		soc < c.cfg.MinSoC ||
		price.LessThan(c.cfg.MaxPrice)
}

// currentPrice prefers the price of the running slot over the last published
// current price, which may be stale.
func (c *Coordinator) currentPrice(now time.Time) (decimal.Decimal, bool) {
	if v, ok := c.state.TwoDay.ValueAt(now); ok {
		return v, true
	}
	if c.state.CurrentPrice != nil {
		return *c.state.CurrentPrice, true
	}
	return decimal.Zero, false
}

// knownTarget returns the target SoC unless a target source is configured and
// has not delivered a value yet.
func (c *Coordinator) knownTarget() (float64, bool) {
	if c.state.TargetSoC == nil && c.cfg.TargetSoCSource {
		return 0, false
	}
	return c.targetSoC(), true
}

// targetSoC returns the received target or the configured default.
func (c *Coordinator) targetSoC() float64 {
	if c.state.TargetSoC != nil {
		return *c.state.TargetSoC
	}
	return c.cfg.DefaultTargetSoC
}

func (c *Coordinator) params() model.ScheduleParameters {
	p := model.ScheduleParameters{
		TargetSoC:  c.targetSoC(),
		MinSoC:     c.cfg.MinSoC,
		PctPerHour: c.cfg.PctPerHour,
		ReadyHour:  c.cfg.ReadyHour,
		StartHour:  c.cfg.startHour(),
		MaxPrice:   c.cfg.MaxPrice,
		Switches:   c.state.Switches,
	}
	if c.state.SoC != nil {
		p.CurrentSoC = *c.state.SoC
	}
	return p
}

// actuate sends state to the charger. A failure keeps the decision and marks
// the command for retry.
func (c *Coordinator) actuate(ctx context.Context, state model.DecisionState, retry bool, now time.Time) error {
	actx, cancel := context.WithTimeout(ctx, c.cfg.ActuationTimeout)
	defer cancel()
	start := time.Now()
	var err error
	if state == model.StateOn {
		err = c.charger.TurnOn(actx)
	} else {
		err = c.charger.TurnOff(actx)
	}
	latency := time.Since(start)

	ev := metrics.ActuationEvent{State: state, Success: err == nil, Retry: retry, Latency: latency, Time: now}
	if err != nil {
		ev.Error = err.Error()
	}
	if rec, ok := c.metrics.(metrics.ActuationRecorder); ok {
		if rerr := rec.RecordActuation(ev); rerr != nil {
			c.log.Warnf("record actuation: %v", rerr)
		}
	}
	if err != nil {
		c.state.RetryPending = true
		c.log.Errorf("turn charger %s failed: %v", state, err)
		c.monitor.CaptureException(err, map[string]string{"action": state.String(), "charger_id": c.cfg.ChargerID})
		c.publish(events.ActuationFailed{State: state, Err: err, Latency: latency, At: now})
		return fmt.Errorf("turn charger %s: %w", state, err)
	}
	if retry {
		c.log.Infof("charger %s confirmed", state)
	}
	c.state.RetryPending = false
	return nil
}

func (c *Coordinator) publish(ev eventbus.Event) {
	if c.bus != nil {
		c.bus.Publish(ev)
	}
}

func (c *Coordinator) decisionEvent(ev Event, changed bool, reason string, now time.Time) metrics.DecisionEvent {
	out := metrics.DecisionEvent{
		State:     c.state.Decision,
		Changed:   changed,
		Trigger:   ev.Kind.String(),
		Reason:    reason,
		SoC:       c.state.SoC,
		TargetSoC: c.targetSoC(),
		Time:      now,
	}
	if price, ok := c.currentPrice(now); ok {
		f := price.InexactFloat64()
		out.CurrentPrice = &f
	}
	return out
}

func (c *Coordinator) appendRecord(ctx context.Context, ev Event, prev model.DecisionState, reason string, actErr error, now time.Time) {
	rec := decisionlog.Record{
		Timestamp: now,
		Trigger:   ev.Kind.String(),
		Previous:  prev,
		State:     c.state.Decision,
		Reason:    reason,
		SoC:       c.state.SoC,
		TargetSoC: c.targetSoC(),
		Summary:   c.state.Schedule.Summary(now),
	}
	if price, ok := c.currentPrice(now); ok {
		f := price.InexactFloat64()
		rec.CurrentPrice = &f
	}
	if actErr != nil {
		rec.Error = actErr.Error()
	}
	if err := c.store.Append(ctx, rec); err != nil {
		c.log.Warnf("append decision record: %v", err)
	}
}

// inputsReady reports whether every configured input delivered a value.
func (c *Coordinator) inputsReady() bool {
	if !c.state.PricesReceived || c.state.SoC == nil {
		return false
	}
	return !c.cfg.TargetSoCSource || c.state.TargetSoC != nil
}

// publishStatus stores a snapshot for concurrent readers.
func (c *Coordinator) publishStatus() {
	s := c.state
	now := s.LastEvaluation
	st := &Status{
		State:          s.Decision,
		Ready:          c.inputsReady(),
		Reason:         s.LastReason,
		Summary:        s.Schedule.Summary(now),
		ChargingHours:  s.Schedule.Flags(),
		Schedule:       s.Schedule.Clone(),
		RawTwoDays:     s.TwoDay.Raw(),
		ValueInGraph:   s.TwoDay.ValueInGraph(),
		PriceStats:     s.TwoDay.Stats(),
		TomorrowValid:  s.TomorrowValid,
		TargetSoC:      c.targetSoC(),
		Switches:       s.Switches,
		RetryPending:   s.RetryPending,
		LastEvaluation: now,
	}
	if s.SoC != nil {
		v := *s.SoC
		st.SoC = &v
	}
	if price, ok := c.currentPrice(now); ok {
		f := price.InexactFloat64()
		st.CurrentPrice = &f
	}
	c.snapshot.Store(st)
}

// Status returns the snapshot taken after the last evaluation.
func (c *Coordinator) Status() Status { return *c.snapshot.Load() }

// ValidateInputs returns ErrInputsNotReady until prices, the SoC and, when
// configured, the target SoC have been received.
func (c *Coordinator) ValidateInputs() error {
	if !c.snapshot.Load().Ready {
		return ErrInputsNotReady
	}
	return nil
}
