package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evsmart/config"
	"github.com/kilianp07/evsmart/core/charger"
	"github.com/kilianp07/evsmart/core/coordinator"
	"github.com/kilianp07/evsmart/infra/logger"
	"github.com/kilianp07/evsmart/infra/mqtt"
)

var checkWait time.Duration

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Wait for the MQTT inputs and report whether they are valid",
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().DurationVar(&checkWait, "wait", 10*time.Second, "how long to wait for inputs")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ccfg, err := cfg.Charging.Coordinator(cfg.Inputs.TargetSoCTopic != "")
	if err != nil {
		return err
	}
	// the check never drives the charger
	coord, err := coordinator.New(ccfg, charger.NopController{}, nil, nil, logger.New("check"))
	if err != nil {
		return err
	}

	mqttCfg := cfg.MQTT
	mqttCfg.ClientID = fmt.Sprintf("%s-check-%d", mqttCfg.ClientID, time.Now().UnixNano())
	client, err := mqtt.NewClient(mqttCfg, logger.New("mqtt_client"))
	if err != nil {
		return fmt.Errorf("mqtt client: %w", err)
	}
	defer client.Disconnect()

	ctx, cancel := context.WithTimeout(cmd.Context(), checkWait)
	defer cancel()
	l := mqtt.NewInputListener(client, cfg.Inputs, 16)
	if err := l.Start(ctx); err != nil {
		return err
	}
	for coord.ValidateInputs() != nil {
		select {
		case ev := <-l.Events():
			if err := coord.Evaluate(ctx, ev); err != nil {
				return err
			}
		case <-ctx.Done():
			return fmt.Errorf("after %s: %w", checkWait, coord.ValidateInputs())
		}
	}
	st := coord.Status()
	fmt.Fprintf(cmd.OutOrStdout(), "inputs ready: soc=%.1f target=%.1f tomorrow_valid=%t plan: %s\n",
		*st.SoC, st.TargetSoC, st.TomorrowValid, st.Summary)
	return nil
}
