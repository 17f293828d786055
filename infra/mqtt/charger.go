package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/evsmart/core/charger"
	"github.com/kilianp07/evsmart/core/model"
	"github.com/kilianp07/evsmart/infra/logger"
)

// Command is the payload sent to the charger.
type Command struct {
	CommandID string `json:"command_id"`
	ChargerID string `json:"charger_id"`
	State     string `json:"state"`
	Timestamp int64  `json:"timestamp"`
}

// ChargerSwitch switches a charger through MQTT commands.
type ChargerSwitch struct {
	client     *Client
	chargerID  string
	topic      string
	qos        byte
	requireAck bool
	logger     logger.Logger
	now        func() time.Time

	mu       sync.Mutex
	ackChans map[string]chan struct{}
}

var _ charger.Controller = (*ChargerSwitch)(nil)

// NewChargerSwitch returns a switch publishing to the command topic of
// chargerID. When cfg.RequireAck is set it subscribes to the ack topic.
func NewChargerSwitch(c *Client, cfg Config, chargerID string) (*ChargerSwitch, error) {
	cfg.SetDefaults()
	if chargerID == "" {
		return nil, errors.New("mqtt: charger id is required")
	}
	topic := cfg.CommandTopic
	if strings.Contains(topic, "%s") {
		topic = fmt.Sprintf(topic, chargerID)
	}
	s := &ChargerSwitch{
		client:     c,
		chargerID:  chargerID,
		topic:      topic,
		qos:        c.QoS(QoSCommand),
		requireAck: cfg.RequireAck,
		logger:     logger.New("charger_switch"),
		now:        time.Now,
		ackChans:   make(map[string]chan struct{}),
	}
	if cfg.RequireAck {
		if err := c.Subscribe(cfg.AckTopic, c.QoS(QoSAck), s.onAck); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Topic returns the command topic.
func (s *ChargerSwitch) Topic() string { return s.topic }

// TurnOn implements charger.Controller.
func (s *ChargerSwitch) TurnOn(ctx context.Context) error {
	return s.send(ctx, model.StateOn)
}

// TurnOff implements charger.Controller.
func (s *ChargerSwitch) TurnOff(ctx context.Context) error {
	return s.send(ctx, model.StateOff)
}

func (s *ChargerSwitch) send(ctx context.Context, state model.DecisionState) error {
	cmd := Command{
		CommandID: uuid.NewString(),
		ChargerID: s.chargerID,
		State:     state.String(),
		Timestamp: s.now().UnixMilli(),
	}
	payload, err := json.Marshal(cmd)
	if err != nil {
		return err
	}

	var ack chan struct{}
	if s.requireAck {
		ack = make(chan struct{}, 1)
		s.mu.Lock()
		s.ackChans[cmd.CommandID] = ack
		s.mu.Unlock()
		defer func() {
			s.mu.Lock()
			delete(s.ackChans, cmd.CommandID)
			s.mu.Unlock()
		}()
	}

	if err := s.client.Publish(ctx, s.topic, s.qos, false, payload); err != nil {
		return fmt.Errorf("send %s command: %w", cmd.State, err)
	}
	s.logger.Infof("sent command %s (%s) to %s", cmd.CommandID, cmd.State, s.topic)
	if ack == nil {
		return nil
	}

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: command %s", charger.ErrAckTimeout, cmd.CommandID)
		}
		return ctx.Err()
	}
}

func (s *ChargerSwitch) onAck(_ paho.Client, msg paho.Message) {
	var m struct {
		CommandID string `json:"command_id"`
	}
	if err := json.Unmarshal(msg.Payload(), &m); err != nil {
		s.logger.Errorf("failed to decode ack: %v", err)
		return
	}
	s.mu.Lock()
	ch, ok := s.ackChans[m.CommandID]
	if ok {
		select {
		case ch <- struct{}{}:
		default:
		}
		s.logger.Debugf("received ack %s", m.CommandID)
	}
	s.mu.Unlock()
}
