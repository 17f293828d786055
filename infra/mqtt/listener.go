package mqtt

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/evsmart/core/coordinator"
	"github.com/kilianp07/evsmart/infra/logger"
)

// InputTopics lists the topics the coordinator inputs arrive on.
type InputTopics struct {
	PriceTopic        string `json:"price_topic"`
	SoCTopic          string `json:"soc_topic"`
	TargetSoCTopic    string `json:"target_soc_topic"`
	SwitchTopicPrefix string `json:"switch_topic_prefix"`
}

// Validate checks that the mandatory input topics are set.
func (t InputTopics) Validate() error {
	if t.PriceTopic == "" {
		return errors.New("inputs: price_topic is required")
	}
	if t.SoCTopic == "" {
		return errors.New("inputs: soc_topic is required")
	}
	return nil
}

// InputListener turns MQTT messages into coordinator events. Payloads are
// parsed here; rejected messages are logged and dropped.
//
// Message handlers never block the paho router: parsed events are queued and
// a forwarder goroutine feeds the events channel. While the consumer is busy,
// a newer value of the same input replaces the queued one, so the queue holds
// at most one event per input.
type InputListener struct {
	client *Client
	topics InputTopics
	events chan coordinator.Event
	logger logger.Logger
	now    func() time.Time

	mu      sync.Mutex
	order   []string
	pending map[string]coordinator.Event
	wake    chan struct{}
}

// NewInputListener returns a listener delivering up to buffer pending events.
func NewInputListener(c *Client, topics InputTopics, buffer int) *InputListener {
	if buffer < 1 {
		buffer = 1
	}
	return &InputListener{
		client: c,
		topics: topics,
		events:  make(chan coordinator.Event, buffer),
		logger:  logger.New("input_listener"),
		now:     time.Now,
		pending: make(map[string]coordinator.Event),
		wake:    make(chan struct{}, 1),
	}
}

// Events returns the channel parsed inputs are delivered on.
func (l *InputListener) Events() <-chan coordinator.Event { return l.events }

// Start subscribes to every configured topic and forwards events until ctx
// is done.
func (l *InputListener) Start(ctx context.Context) error {
	go l.forward(ctx)
	qos := l.client.QoS(QoSInput)
	handlers := map[string]paho.MessageHandler{
		l.topics.PriceTopic: l.handler(ctx, l.parsePrices),
		l.topics.SoCTopic:   l.handler(ctx, l.parseSoC),
	}
	if l.topics.TargetSoCTopic != "" {
		handlers[l.topics.TargetSoCTopic] = l.handler(ctx, l.parseTarget)
	}
	if l.topics.SwitchTopicPrefix != "" {
		prefix := strings.TrimSuffix(l.topics.SwitchTopicPrefix, "/")
		handlers[prefix+"/+"] = l.handler(ctx, l.parseSwitch)
	}
	for topic, h := range handlers {
		if topic == "" {
			continue
		}
		if err := l.client.Subscribe(topic, qos, h); err != nil {
			return err
		}
		l.logger.Infof("listening on %s", topic)
	}
	return nil
}

type parseFunc func(topic string, payload []byte) (coordinator.Event, error)

func (l *InputListener) handler(ctx context.Context, parse parseFunc) paho.MessageHandler {
	return func(_ paho.Client, msg paho.Message) {
		ev, err := parse(msg.Topic(), msg.Payload())
		if err != nil {
			l.logger.Warnf("rejected input on %s: %v", msg.Topic(), err)
			return
		}
		ev.Time = l.now()
		if ctx.Err() != nil {
			return
		}
		l.enqueue(ev)
	}
}

// enqueue stores ev, replacing a queued event of the same input.
func (l *InputListener) enqueue(ev coordinator.Event) {
	key := inputKey(ev)
	l.mu.Lock()
	if _, ok := l.pending[key]; ok {
		l.logger.Debugf("coalesced pending %s input", key)
	} else {
		l.order = append(l.order, key)
	}
	l.pending[key] = ev
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// next pops the oldest queued input.
func (l *InputListener) next() (coordinator.Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.order) == 0 {
		return coordinator.Event{}, false
	}
	key := l.order[0]
	l.order = l.order[1:]
	ev := l.pending[key]
	delete(l.pending, key)
	return ev, true
}

func (l *InputListener) forward(ctx context.Context) {
	for {
		ev, ok := l.next()
		if !ok {
			select {
			case <-l.wake:
				continue
			case <-ctx.Done():
				return
			}
		}
		select {
		case l.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func inputKey(ev coordinator.Event) string {
	if ev.Kind == coordinator.EventSwitch && ev.Switch != nil {
		return "switch/" + ev.Switch.Name
	}
	return ev.Kind.String()
}

func (l *InputListener) parsePrices(_ string, payload []byte) (coordinator.Event, error) {
	in, err := coordinator.ParsePriceInput(payload)
	if err != nil {
		return coordinator.Event{}, err
	}
	return coordinator.Event{Kind: coordinator.EventPrices, Prices: in}, nil
}

func (l *InputListener) parseSoC(_ string, payload []byte) (coordinator.Event, error) {
	in, err := coordinator.ParseSoC(string(payload))
	if err != nil {
		return coordinator.Event{}, err
	}
	return coordinator.Event{Kind: coordinator.EventSoC, SoC: in}, nil
}

func (l *InputListener) parseTarget(_ string, payload []byte) (coordinator.Event, error) {
	in, err := coordinator.ParseSoC(string(payload))
	if err != nil {
		return coordinator.Event{}, err
	}
	return coordinator.Event{Kind: coordinator.EventTargetSoC, TargetSoC: in}, nil
}

func (l *InputListener) parseSwitch(topic string, payload []byte) (coordinator.Event, error) {
	name := topic[strings.LastIndex(topic, "/")+1:]
	in, err := coordinator.ParseSwitch(name, string(payload))
	if err != nil {
		return coordinator.Event{}, err
	}
	return coordinator.Event{Kind: coordinator.EventSwitch, Switch: in}, nil
}
