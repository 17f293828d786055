package scheduler

import (
	"time"

	"github.com/kilianp07/evsmart/core/model"
)

// hourStart truncates t to the start of its hour in t's location.
func hourStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

// chargingWindow returns the window from the current hour up to the next
// occurrence of readyHour. A ready hour equal to the current hour means the
// same hour tomorrow. When startHour is set the window opens at the last
// occurrence of startHour before the deadline, never before the current hour.
func chargingWindow(now time.Time, readyHour, startHour int) model.Window {
	from := hourStart(now)
	deadline := time.Date(now.Year(), now.Month(), now.Day(), readyHour, 0, 0, 0, now.Location())
	if readyHour <= now.Hour() {
		deadline = deadline.AddDate(0, 0, 1)
	}
	win := model.Window{Start: from, End: deadline}
	if startHour < 0 {
		return win
	}
	opening := time.Date(deadline.Year(), deadline.Month(), deadline.Day(), startHour, 0, 0, 0, deadline.Location())
	if !opening.Before(deadline) {
		opening = opening.AddDate(0, 0, -1)
	}
	if opening.After(win.Start) {
		win.Start = opening
	}
	return win
}

// clip restricts w to the horizon covered by prices.
func clip(w model.Window, prices model.PriceSeries) model.Window {
	if prices.Len() == 0 {
		return model.Window{Start: w.Start, End: w.Start}
	}
	if w.Start.Before(prices.Start()) {
		w.Start = prices.Start()
	}
	if w.End.After(prices.End()) {
		w.End = prices.End()
	}
	if w.End.Before(w.Start) {
		w.End = w.Start
	}
	return w
}
