package coordinator

import "time"

// EventKind identifies what triggered an evaluation.
type EventKind int

const (
	EventStartup EventKind = iota
	EventTick
	EventPrices
	EventSoC
	EventTargetSoC
	EventSwitch
)

func (k EventKind) String() string {
	switch k {
	case EventStartup:
		return "startup"
	case EventTick:
		return "tick"
	case EventPrices:
		return "prices"
	case EventSoC:
		return "soc"
	case EventTargetSoC:
		return "target_soc"
	case EventSwitch:
		return "switch"
	default:
		return "unknown"
	}
}

// Event is one input delivered to Evaluate. Only the field matching Kind is
// read. A zero Time means now.
type Event struct {
	Kind      EventKind
	Time      time.Time
	Prices    *PriceInput
	SoC       *SoCInput
	TargetSoC *SoCInput
	Switch    *SwitchInput
}

// Tick returns the hourly tick event.
func Tick(t time.Time) Event { return Event{Kind: EventTick, Time: t} }
