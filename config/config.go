package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/evsmart/core/decisionlog"
	"github.com/kilianp07/evsmart/core/metrics"
	"github.com/kilianp07/evsmart/infra/mqtt"
)

type Config struct {
	MQTT        mqtt.Config        `json:"mqtt"`
	Charging    ChargingConfig     `json:"charging"`
	Inputs      mqtt.InputTopics   `json:"inputs"`
	Metrics     metrics.Config     `json:"metrics"`
	DecisionLog decisionlog.Config `json:"decision_log"`
	API         APIConfig          `json:"api"`
	Sentry      SentryConfig       `json:"sentry"`
}

// Default returns the configuration used for keys absent from the file.
func Default() Config {
	return Config{Charging: DefaultCharging()}
}

// Load reads a YAML or JSON file and applies K_ prefixed environment
// overrides, e.g. K_CHARGING__MAX_PRICE=2.5.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults applies the defaults of every section.
func (c *Config) SetDefaults() {
	c.MQTT.SetDefaults()
	c.Charging.SetDefaults()
	c.DecisionLog.SetDefaults()
	c.Sentry.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.MQTT.Validate(); err != nil {
		return err
	}
	if err := c.Charging.Validate(); err != nil {
		return err
	}
	if err := c.Inputs.Validate(); err != nil {
		return err
	}
	if err := c.DecisionLog.Validate(); err != nil {
		return err
	}
	return c.API.Validate()
}
