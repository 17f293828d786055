package coordinator

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kilianp07/evsmart/core/model"
)

var (
	// ErrInputsNotReady is returned while a required input has no value yet.
	ErrInputsNotReady = errors.New("input sensors not ready")
	// ErrInvalidSoC rejects state of charge values that are not a percentage.
	ErrInvalidSoC = errors.New("invalid state of charge")
	// ErrInvalidPrices rejects malformed price payloads.
	ErrInvalidPrices = errors.New("invalid price payload")
	// ErrUnknownSwitch rejects switch names the coordinator does not know.
	ErrUnknownSwitch = errors.New("unknown switch")
)

// Switch names accepted by ParseSwitch.
const (
	SwitchActive          = "active"
	SwitchApplyPriceLimit = "apply_price_limit"
	SwitchContinuous      = "continuous"
	SwitchEVConnected     = "ev_connected"
	SwitchKeepOn          = "keep_on"
)

// PriceInput is a parsed price feed.
type PriceInput struct {
	Feed model.PriceFeed
}

// SoCInput is a state of charge in percent.
type SoCInput struct {
	Value float64
}

// SwitchInput is the new value of one operator switch.
type SwitchInput struct {
	Name string
	On   bool
}

// ParsePriceInput decodes a JSON price feed. Null values are accepted; a
// missing raw_today list is not.
func ParsePriceInput(payload []byte) (*PriceInput, error) {
	var feed model.PriceFeed
	if err := json.Unmarshal(payload, &feed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrices, err)
	}
	if feed.RawToday == nil {
		return nil, fmt.Errorf("%w: missing raw_today", ErrInvalidPrices)
	}
	return &PriceInput{Feed: feed}, nil
}

// ParseSoC parses a percentage. Placeholder states such as "unknown" are
// rejected.
func ParseSoC(text string) (*SoCInput, error) {
	s := strings.TrimSpace(strings.ToLower(text))
	switch s {
	case "", "unknown", "unavailable", "none", "null":
		return nil, fmt.Errorf("%w: %q", ErrInvalidSoC, text)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || v < 0 || v > 100 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSoC, text)
	}
	return &SoCInput{Value: v}, nil
}

// ParseSwitch parses the value of a named switch.
func ParseSwitch(name, text string) (*SwitchInput, error) {
	switch name {
	case SwitchActive, SwitchApplyPriceLimit, SwitchContinuous, SwitchEVConnected, SwitchKeepOn:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSwitch, name)
	}
	switch strings.TrimSpace(strings.ToLower(text)) {
	case "on", "true", "1":
		return &SwitchInput{Name: name, On: true}, nil
	case "off", "false", "0":
		return &SwitchInput{Name: name, On: false}, nil
	default:
		return nil, fmt.Errorf("invalid value %q for switch %s", text, name)
	}
}

func applySwitch(sw *model.Switches, in SwitchInput) {
	switch in.Name {
	case SwitchActive:
		sw.Active = in.On
	case SwitchApplyPriceLimit:
		sw.ApplyPriceLimit = in.On
	case SwitchContinuous:
		sw.Continuous = in.On
	case SwitchEVConnected:
		sw.EVConnected = in.On
	case SwitchKeepOn:
		sw.KeepOn = in.On
	}
}
