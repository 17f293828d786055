// Package charger defines how the coordinator switches the charger.
package charger

import (
	"context"
	"errors"
)

// ErrAckTimeout is returned when the charger did not acknowledge a command
// before the deadline.
var ErrAckTimeout = errors.New("timeout waiting for ack")

// Controller switches the charger on or off. Implementations must return when
// ctx is done.
type Controller interface {
	TurnOn(ctx context.Context) error
	TurnOff(ctx context.Context) error
}

// NopController accepts every command. It is used when no charger is
// configured.
type NopController struct{}

func (NopController) TurnOn(context.Context) error  { return nil }
func (NopController) TurnOff(context.Context) error { return nil }
