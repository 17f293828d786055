package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/kilianp07/evsmart/core/events"
	"github.com/kilianp07/evsmart/core/model"
	"github.com/kilianp07/evsmart/infra/logger"
	"github.com/kilianp07/evsmart/internal/eventbus"
)

// SchedulePayload is the retained message published on <prefix>/schedule.
type SchedulePayload struct {
	Schedule  model.ChargingSchedule `json:"schedule"`
	Summary   model.Summary          `json:"summary"`
	Stats     model.Stats            `json:"price_stats"`
	Rebuilt   bool                   `json:"rebuilt"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// StatePublisher mirrors coordinator events to retained MQTT topics.
type StatePublisher struct {
	client  *Client
	prefix  string
	qos     byte
	timeout time.Duration
	logger  logger.Logger
	source  func() model.DecisionState

	mu        sync.Mutex
	published bool
	last      model.DecisionState
}

// NewStatePublisher publishes below prefix, DefaultStateTopicPrefix when empty.
func NewStatePublisher(c *Client, prefix string) *StatePublisher {
	if prefix == "" {
		prefix = DefaultStateTopicPrefix
	}
	return &StatePublisher{
		client:  c,
		prefix:  strings.TrimSuffix(prefix, "/"),
		qos:     c.QoS(QoSState),
		timeout: 5 * time.Second,
		logger:  logger.New("state_publisher"),
	}
}

// ChargingTopic returns the topic carrying "on" or "off".
func (p *StatePublisher) ChargingTopic() string { return p.prefix + "/charging" }

// ScheduleTopic returns the topic carrying the schedule JSON.
func (p *StatePublisher) ScheduleTopic() string { return p.prefix + "/schedule" }

// SetStateSource makes the publisher read the current decision from src on
// every event instead of trusting the event payload. Events dropped by a full
// bus then cannot leave a stale retained state behind.
func (p *StatePublisher) SetStateSource(src func() model.DecisionState) {
	p.source = src
}

// PublishState publishes the charging state.
func (p *StatePublisher) PublishState(ctx context.Context, state model.DecisionState) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.publishState(ctx, state)
}

func (p *StatePublisher) publishState(ctx context.Context, state model.DecisionState) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.client.Publish(ctx, p.ChargingTopic(), p.qos, true, []byte(state.String())); err != nil {
		return err
	}
	p.published, p.last = true, state
	return nil
}

// syncState publishes state unless it is already the retained value.
func (p *StatePublisher) syncState(ctx context.Context, state model.DecisionState) error {
	if p.source != nil {
		state = p.source()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.published && p.last == state {
		return nil
	}
	return p.publishState(ctx, state)
}

// PublishSchedule publishes the schedule payload.
func (p *StatePublisher) PublishSchedule(ctx context.Context, payload SchedulePayload) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.client.Publish(ctx, p.ScheduleTopic(), p.qos, true, b)
}

// Start consumes bus events until ctx is done or the bus is closed. The
// returned channel is closed when the publisher stops.
func (p *StatePublisher) Start(ctx context.Context, bus eventbus.EventBus) <-chan struct{} {
	ch := bus.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer bus.Unsubscribe(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				p.handle(ctx, ev)
			}
		}
	}()
	return done
}

func (p *StatePublisher) handle(ctx context.Context, ev eventbus.Event) {
	var err error
	switch e := ev.(type) {
	case events.StateChanged:
		err = p.syncState(ctx, e.To)
	case events.ScheduleUpdated:
		if err = p.syncState(ctx, e.State); err != nil {
			break
		}
		err = p.PublishSchedule(ctx, SchedulePayload{
			Schedule:  e.Schedule,
			Summary:   e.Summary,
			Stats:     e.Stats,
			Rebuilt:   e.Rebuilt,
			UpdatedAt: e.At,
		})
	default:
		return
	}
	if err != nil {
		p.logger.Errorf("publish state: %v", err)
	}
}
