package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/evsmart/core/coordinator"
)

// RenderChart writes an HTML page drawing the two-day prices and, at
// ValueInGraph height, the planned charging hours.
func RenderChart(w io.Writer, st coordinator.Status) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Charging plan", Subtitle: st.Summary.String()}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Hour"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Price"}),
	)

	planned := make(map[int64]bool, len(st.Schedule.Slots))
	for _, s := range st.Schedule.Slots {
		if s.Charging {
			planned[s.Start.Unix()] = true
		}
	}

	xAxis := make([]string, 0, len(st.RawTwoDays))
	prices := make([]opts.LineData, 0, len(st.RawTwoDays))
	charging := make([]opts.LineData, 0, len(st.RawTwoDays))
	for _, p := range st.RawTwoDays {
		xAxis = append(xAxis, p.Start.Format("2006-01-02 15:04"))
		var v float64
		if p.Value != nil {
			v = p.Value.InexactFloat64()
		}
		prices = append(prices, opts.LineData{Value: v})
		if planned[p.Start.Unix()] {
			charging = append(charging, opts.LineData{Value: st.ValueInGraph})
		} else {
			charging = append(charging, opts.LineData{Value: "-"})
		}
	}
	line.SetXAxis(xAxis).
		AddSeries("Price", prices).
		AddSeries("Charging", charging)

	if err := line.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

func chartHandler(src StatusProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := RenderChart(w, src.Status()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}
