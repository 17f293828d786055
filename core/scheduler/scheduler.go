package scheduler

import (
	"time"

	"github.com/kilianp07/evsmart/core/model"
)

// Compute plans charging over prices for the parameters p at time now. The
// returned schedule spans the whole price horizon and includes the switch
// overlays, but keeps slots that already elapsed.
func Compute(prices model.PriceSeries, p model.ScheduleParameters, now time.Time) model.ChargingSchedule {
	win := clip(chargingWindow(now, p.ReadyHour, p.StartHour), prices)
	return render(prices, optimize(prices, win, p), win, p)
}

// render builds a schedule from a selection and applies the switch overlays.
func render(prices model.PriceSeries, selection []bool, win model.Window, p model.ScheduleParameters) model.ChargingSchedule {
	sched := model.EmptySchedule(prices)
	sched.Window = win
	sched.Continuous = p.Continuous
	if !p.Active || !p.EVConnected {
		return sched
	}
	for i := range sched.Slots {
		if p.KeepOn {
			sched.Slots[i].Charging = win.Contains(sched.Slots[i].Start)
			continue
		}
		sched.Slots[i].Charging = selection[i]
	}
	return sched
}

// Scheduler keeps the base schedule between evaluations. It is not safe for
// concurrent use.
type Scheduler struct {
	prices     model.PriceSeries
	selection  []bool
	window     model.Window
	continuous bool
	exists     bool
}

// New returns a Scheduler without a base schedule.
func New() *Scheduler { return &Scheduler{} }

// CreateBaseSchedule optimizes the price series and stores the result as the
// base schedule. It returns false and keeps the previous base when prices are
// empty, or when tomorrow's prices are missing and the window reaches beyond
// the available horizon.
func (s *Scheduler) CreateBaseSchedule(prices model.PriceSeries, p model.ScheduleParameters, now time.Time) bool {
	if prices.Len() == 0 {
		return false
	}
	win := chargingWindow(now, p.ReadyHour, p.StartHour)
	if !prices.Valid() && win.End.After(prices.End()) {
		return false
	}
	win = clip(win, prices)
	s.prices = prices
	s.selection = optimize(prices, win, p)
	s.window = win
	s.continuous = p.Continuous
	s.exists = true
	return true
}

// BaseScheduleExists reports whether a base schedule has been computed.
func (s *Scheduler) BaseScheduleExists() bool { return s.exists }

// Window returns the window of the base schedule.
func (s *Scheduler) Window() model.Window { return s.window }

// DeadlinePassed reports whether the base schedule's window has ended at now.
func (s *Scheduler) DeadlinePassed(now time.Time) bool {
	return s.exists && !now.Before(s.window.End)
}

// Schedule returns the base schedule refreshed against the current switches.
// Slots that ended at or before now are not charging. The optimization is not
// run again.
func (s *Scheduler) Schedule(p model.ScheduleParameters, now time.Time) (model.ChargingSchedule, bool) {
	if !s.exists {
		return model.ChargingSchedule{}, false
	}
	p.Continuous = s.continuous
	sched := render(s.prices, s.selection, s.window, p)
	for i := range sched.Slots {
		if !sched.Slots[i].End().After(now) {
			sched.Slots[i].Charging = false
		}
	}
	return sched, true
}

// Reset drops the base schedule.
func (s *Scheduler) Reset() { *s = Scheduler{} }
