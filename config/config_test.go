package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evsmart/core/model"
	"github.com/kilianp07/evsmart/infra/mqtt"
)

const sampleYAML = `mqtt:
  broker: "tcp://localhost:1883"
  client_id: "cli"
  username: "user"
  password: "pass"
  ack_topic: "evsmart/charger/ack"
  require_ack: true
  qos:
    command: 1
charging:
  charger_id: "garage"
  pct_per_hour: 3
  ready_hour: "10:30"
  start_hour: "18:00"
  max_price: 1.2
  min_soc: 20
  timezone: "UTC"
  switches:
    apply_price_limit: true
    continuous: false
inputs:
  price_topic: "home/prices"
  soc_topic: "home/car/soc"
  target_soc_topic: "home/car/target"
  switch_topic_prefix: "home/evsmart/switch"
metrics:
  sinks:
    - type: "nop"
decision_log:
  backend: "sqlite"
api:
  addr: ":8080"
  token: "secret"
`

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.yaml", sampleYAML))
	require.NoError(t, err)

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"client_id", cfg.MQTT.ClientID, "cli"},
		{"require_ack", cfg.MQTT.RequireAck, true},
		{"command_qos", cfg.MQTT.QoS["command"], byte(1)},
		{"command_topic", cfg.MQTT.CommandTopic, mqtt.DefaultCommandTopic},
		{"state_prefix", cfg.MQTT.StateTopicPrefix, mqtt.DefaultStateTopicPrefix},
		{"charger_id", cfg.Charging.ChargerID, "garage"},
		{"pct_per_hour", cfg.Charging.PctPerHour, 3.0},
		{"ready_hour", cfg.Charging.ReadyHour, "10:30"},
		{"default_target", cfg.Charging.DefaultTargetSoC, 100.0},
		{"timeout", cfg.Charging.ActuationTimeoutSeconds, 10},
		{"price_topic", cfg.Inputs.PriceTopic, "home/prices"},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"decision_log_path", cfg.DecisionLog.Path, "decisions.db"},
		{"api_token", cfg.API.Token, "secret"},
	}
	for _, c := range checks {
		assert.Equal(t, c.want, c.got, c.name)
	}

	// switches absent from the file keep their defaults
	assert.Equal(t, model.Switches{Active: true, ApplyPriceLimit: true, Continuous: false, EVConnected: true}, cfg.Charging.Switches)
}

func TestLoadJSONAndEnvOverride(t *testing.T) {
	data := `{"mqtt":{"broker":"tcp://b:1883"},"charging":{"ready_hour":"07:00"},"inputs":{"price_topic":"p","soc_topic":"s"}}`
	t.Setenv("K_CHARGING__MAX_PRICE", "2.5")
	t.Setenv("K_CHARGING__CHARGER_ID", "carport")
	cfg, err := Load(writeConfig(t, "config.json", data))
	require.NoError(t, err)
	assert.Equal(t, 2.5, cfg.Charging.MaxPrice)
	assert.Equal(t, "carport", cfg.Charging.ChargerID)
	assert.Empty(t, cfg.DecisionLog.Backend)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeConfig(t, "config.toml", ""))
	assert.ErrorContains(t, err, "unsupported config format")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := `mqtt: {broker: "tcp://b:1883"}
charging: {ready_hour: "25:00"}
inputs: {price_topic: p, soc_topic: s}
`
	_, err = Load(writeConfig(t, "bad.yaml", bad))
	assert.ErrorContains(t, err, "ready_hour")

	noInputs := `mqtt: {broker: "tcp://b:1883"}`
	_, err = Load(writeConfig(t, "noinputs.yaml", noInputs))
	assert.ErrorContains(t, err, "price_topic")
}

func TestParseHour(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"07:00", 7, true},
		{"10:30", 10, true},
		{"18:00:00", 18, true},
		{"0:00", 0, true},
		{"24:00", 0, false},
		{"7", 0, false},
		{"ab:00", 0, false},
		{"07:61", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseHour(tt.in)
		if !tt.ok {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestChargingCoordinator(t *testing.T) {
	c := DefaultCharging()
	c.ReadyHour = "10:00"
	c.Timezone = "UTC"
	c.MaxPrice = 1.5
	c.SetDefaults()

	cfg, err := c.Coordinator(true)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.ReadyHour)
	assert.Nil(t, cfg.StartHour)
	assert.True(t, cfg.TargetSoCSource)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, "1.5", cfg.MaxPrice.String())
	assert.Equal(t, 10*time.Second, cfg.ActuationTimeout)
	assert.True(t, cfg.Switches.Active)

	c.StartHour = "00:00"
	cfg, err = c.Coordinator(false)
	require.NoError(t, err)
	require.NotNil(t, cfg.StartHour)
	assert.Equal(t, 0, *cfg.StartHour)

	c.Timezone = "Nowhere/Land"
	assert.Error(t, c.Validate())
}

func TestAPIConfigValidate(t *testing.T) {
	assert.NoError(t, APIConfig{}.Validate())
	assert.NoError(t, APIConfig{Addr: ":8080", Token: "t"}.Validate())
	assert.Error(t, APIConfig{Token: "t"}.Validate())
}
