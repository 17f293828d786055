package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evsmart/config"
	"github.com/kilianp07/evsmart/simulator"
)

type simulateOptions struct {
	capacity   float64
	rate       float64
	soc        float64
	interval   time.Duration
	timeScale  float64
	ackLatency time.Duration
	dropRate   float64
}

var simOpts simulateOptions

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a simulated charger and car against the configured broker",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return simulator.NewCharger(simulatorConfig(cfg, simOpts)).Run(ctx)
	},
}

func init() {
	f := simulateCmd.Flags()
	f.Float64Var(&simOpts.capacity, "capacity", 60, "battery capacity in kWh")
	f.Float64Var(&simOpts.rate, "rate", 7.4, "charge power in kW")
	f.Float64Var(&simOpts.soc, "soc", 30, "initial state of charge in percent")
	f.DurationVar(&simOpts.interval, "interval", 10*time.Second, "SoC publish interval")
	f.Float64Var(&simOpts.timeScale, "time-scale", 1, "simulated seconds per real second")
	f.DurationVar(&simOpts.ackLatency, "ack-latency", 0, "delay before acknowledging a command")
	f.Float64Var(&simOpts.dropRate, "drop-rate", 0, "probability of dropping an ack")
	rootCmd.AddCommand(simulateCmd)
}

func simulatorConfig(cfg *config.Config, o simulateOptions) simulator.Config {
	topic := cfg.MQTT.CommandTopic
	if strings.Contains(topic, "%s") {
		topic = fmt.Sprintf(topic, cfg.Charging.ChargerID)
	}
	ack := ""
	if cfg.MQTT.RequireAck {
		ack = cfg.MQTT.AckTopic
	}
	return simulator.Config{
		Broker:       cfg.MQTT.Broker,
		ChargerID:    cfg.Charging.ChargerID,
		CommandTopic: topic,
		AckTopic:     ack,
		SoCTopic:     cfg.Inputs.SoCTopic,
		Interval:     o.interval,
		TimeScale:    o.timeScale,
		AckLatency:   o.ackLatency,
		DropRate:     o.dropRate,
		CapacityKWh:  o.capacity,
		ChargeRateKW: o.rate,
		InitialSoC:   o.soc,
	}
}
