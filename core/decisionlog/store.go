// Package decisionlog persists the history of charging decisions.
package decisionlog

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/evsmart/core/model"
)

// Record captures one decision transition or failed actuation.
type Record struct {
	Timestamp    time.Time           `json:"timestamp"`
	Trigger      string              `json:"trigger"`
	Previous     model.DecisionState `json:"previous"`
	State        model.DecisionState `json:"state"`
	Reason       string              `json:"reason"`
	CurrentPrice *float64            `json:"current_price,omitempty"`
	SoC          *float64            `json:"soc,omitempty"`
	TargetSoC    float64             `json:"target_soc"`
	Summary      model.Summary       `json:"summary"`
	Error        string              `json:"error,omitempty"`
}

// Query defines filters for retrieving records. Zero values match everything.
type Query struct {
	Start time.Time
	End   time.Time
	State *model.DecisionState
}

func (q Query) match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	return q.State == nil || r.State == *q.State
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// Config selects and configures the backend.
type Config struct {
	// Backend is "jsonl", "sqlite" or empty to disable the log.
	Backend string `json:"backend" yaml:"backend"`
	Path    string `json:"path" yaml:"path"`
	// Rotation settings for the jsonl backend. MaxSizeMB 0 disables rotation.
	MaxSizeMB  int `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int `json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int `json:"max_age_days" yaml:"max_age_days"`
}

// SetDefaults picks a file name for the selected backend.
func (c *Config) SetDefaults() {
	if c.Path != "" {
		return
	}
	switch c.Backend {
	case "jsonl":
		c.Path = "decisions.jsonl"
	case "sqlite":
		c.Path = "decisions.db"
	}
}

// Validate checks the backend name and path.
func (c Config) Validate() error {
	switch c.Backend {
	case "":
		return nil
	case "jsonl", "sqlite":
		if c.Path == "" {
			return fmt.Errorf("decision_log.path required for %s backend", c.Backend)
		}
		return nil
	default:
		return fmt.Errorf("unknown decision_log backend %q", c.Backend)
	}
}

// NewStore opens the store described by cfg.
func NewStore(cfg Config) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case "jsonl":
		return NewJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	default:
		return NopStore{}, nil
	}
}

// NopStore discards records.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error           { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }
