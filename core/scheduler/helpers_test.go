package scheduler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kilianp07/evsmart/core/model"
)

// dayPattern has its cheapest five hour run between 03:00 and 08:00.
var dayPattern = []float64{50, 40, 30, 10, 10, 10, 10, 10, 30, 60, 70, 80, 80, 70, 60, 60, 70, 90, 100, 90, 80, 70, 60, 55}

func dayRaw(day time.Time, values []float64) []model.RawPrice {
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	out := make([]model.RawPrice, len(values))
	for i, v := range values {
		start := midnight.Add(time.Duration(i) * time.Hour)
		d := decimal.NewFromFloat(v)
		out[i] = model.RawPrice{Start: start, End: start.Add(time.Hour), Value: &d}
	}
	return out
}

func twoDays(day time.Time, withTomorrow bool) model.PriceSeries {
	today := model.NewPriceSeries(dayRaw(day, dayPattern))
	var tomorrow model.PriceSeries
	if withTomorrow {
		tomorrow = model.NewPriceSeries(dayRaw(day.AddDate(0, 0, 1), dayPattern))
	}
	return today.Concat(tomorrow)
}

func baseParams() model.ScheduleParameters {
	return model.ScheduleParameters{
		CurrentSoC: 66,
		TargetSoC:  80,
		PctPerHour: 3,
		ReadyHour:  10,
		StartHour:  model.NoStartHour,
		Switches: model.Switches{
			Active:      true,
			Continuous:  true,
			EVConnected: true,
		},
	}
}

func at(day time.Time, hour int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, day.Location())
}

func chargingHours(s model.ChargingSchedule) []time.Time {
	var out []time.Time
	for _, slot := range s.Slots {
		if slot.Charging {
			out = append(out, slot.Start)
		}
	}
	return out
}
