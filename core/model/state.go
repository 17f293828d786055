package model

import "fmt"

// DecisionState is the charge/no-charge decision of the coordinator.
type DecisionState int

const (
	StateOff DecisionState = iota
	StateOn
)

// String returns "on" or "off".
func (s DecisionState) String() string {
	if s == StateOn {
		return "on"
	}
	return "off"
}

// MarshalText implements encoding.TextMarshaler.
func (s DecisionState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *DecisionState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "on":
		*s = StateOn
	case "off":
		*s = StateOff
	default:
		return fmt.Errorf("unknown decision state %q", b)
	}
	return nil
}
