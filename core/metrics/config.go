package metrics

import "github.com/kilianp07/evsmart/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks" yaml:"sinks"`
	// ListenAddr serves /metrics when a prometheus sink is configured and the
	// API server is disabled.
	ListenAddr string `json:"listen_addr" yaml:"listen_addr"`
}
