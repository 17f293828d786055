package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/kilianp07/evsmart/config"
	"github.com/kilianp07/evsmart/core/model"
	"github.com/kilianp07/evsmart/core/scheduler"
)

type planOptions struct {
	prices     string
	soc        float64
	target     float64
	minSoC     float64
	pct        float64
	ready      string
	start      string
	maxPrice   float64
	now        string
	timezone   string
	continuous bool
}

// PlanResult is printed by the plan command.
type PlanResult struct {
	Window        model.Window           `json:"window"`
	RequiredHours int                    `json:"required_hours"`
	Summary       model.Summary          `json:"summary"`
	Schedule      model.ChargingSchedule `json:"schedule"`
}

var planOpts = planOptions{target: 100, pct: 6, ready: "07:00", continuous: true}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Compute a charging schedule from a price file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runPlan(cmd.OutOrStdout(), planOpts)
	},
}

func init() {
	f := planCmd.Flags()
	f.StringVar(&planOpts.prices, "prices", "", "price feed file (json or yaml)")
	f.Float64Var(&planOpts.soc, "soc", 0, "current state of charge in percent")
	f.Float64Var(&planOpts.target, "target", planOpts.target, "target state of charge in percent")
	f.Float64Var(&planOpts.minSoC, "min-soc", 0, "state of charge below which the price ceiling is ignored")
	f.Float64Var(&planOpts.pct, "pct-per-hour", planOpts.pct, "charged percent per hour")
	f.StringVar(&planOpts.ready, "ready", planOpts.ready, "deadline HH:MM")
	f.StringVar(&planOpts.start, "start", "", "earliest start HH:MM")
	f.Float64Var(&planOpts.maxPrice, "max-price", 0, "price ceiling, 0 disables it")
	f.StringVar(&planOpts.now, "now", "", "evaluation time in RFC 3339, default now")
	f.StringVar(&planOpts.timezone, "tz", "", "time zone of the schedule, default local")
	f.BoolVar(&planOpts.continuous, "continuous", planOpts.continuous, "charge in one continuous block")
	_ = planCmd.MarkFlagRequired("prices")
	rootCmd.AddCommand(planCmd)
}

func runPlan(out io.Writer, o planOptions) error {
	loc := time.Local
	if o.timezone != "" {
		l, err := time.LoadLocation(o.timezone)
		if err != nil {
			return err
		}
		loc = l
	}
	now := time.Now().In(loc)
	if o.now != "" {
		t, err := time.Parse(time.RFC3339, o.now)
		if err != nil {
			return fmt.Errorf("invalid --now: %w", err)
		}
		now = t.In(loc)
	}
	ready, err := config.ParseHour(o.ready)
	if err != nil {
		return fmt.Errorf("invalid --ready: %w", err)
	}
	start := model.NoStartHour
	if o.start != "" {
		if start, err = config.ParseHour(o.start); err != nil {
			return fmt.Errorf("invalid --start: %w", err)
		}
	}
	feed, err := scheduler.LoadFeed(o.prices)
	if err != nil {
		return fmt.Errorf("load prices: %w", err)
	}
	prices := feed.Today(loc).Concat(feed.Tomorrow(loc))

	p := model.ScheduleParameters{
		CurrentSoC: o.soc,
		TargetSoC:  o.target,
		MinSoC:     o.minSoC,
		PctPerHour: o.pct,
		ReadyHour:  ready,
		StartHour:  start,
		MaxPrice:   decimal.NewFromFloat(o.maxPrice),
		Switches: model.Switches{
			Active:          true,
			EVConnected:     true,
			Continuous:      o.continuous,
			ApplyPriceLimit: o.maxPrice > 0,
		},
	}
	sched := scheduler.Compute(prices, p, now)
	res := PlanResult{
		Window:        sched.Window,
		RequiredHours: p.RequiredHours(),
		Summary:       sched.Summary(now),
		Schedule:      sched,
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
