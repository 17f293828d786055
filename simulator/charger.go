package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/evsmart/core/model"
	"github.com/kilianp07/evsmart/infra/mqtt"
)

// Charger is a simulated charger with a car plugged in.
type Charger struct {
	cfg      Config
	battery  *Battery
	strategy AckStrategy
	cli      paho.Client

	on    atomic.Bool
	acks  chan string
	wg    sync.WaitGroup
	count atomic.Int64
}

// NewCharger returns a charger holding a battery at cfg.InitialSoC.
func NewCharger(cfg Config) *Charger {
	var strat AckStrategy = AutoAck{Delay: cfg.AckLatency}
	if cfg.DropRate > 0 {
		strat = RandomAck{Delay: cfg.AckLatency, DropRate: cfg.DropRate}
	}
	return &Charger{
		cfg:      cfg,
		battery:  NewBattery(cfg.CapacityKWh, cfg.ChargeRateKW, cfg.InitialSoC),
		strategy: strat,
		acks:     make(chan string, 16),
	}
}

// Battery returns the simulated battery.
func (c *Charger) Battery() *Battery { return c.battery }

// Charging reports whether the last command switched the charger on.
func (c *Charger) Charging() bool { return c.on.Load() }

// Commands returns the number of accepted commands.
func (c *Charger) Commands() int64 { return c.count.Load() }

// HandleCommand applies a command payload and returns its id.
func (c *Charger) HandleCommand(payload []byte) (string, error) {
	var cmd mqtt.Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return "", fmt.Errorf("decode command: %w", err)
	}
	if cmd.ChargerID != "" && cmd.ChargerID != c.cfg.ChargerID {
		return "", fmt.Errorf("command for charger %q", cmd.ChargerID)
	}
	switch cmd.State {
	case model.StateOn.String():
		c.on.Store(true)
	case model.StateOff.String():
		c.on.Store(false)
	default:
		return "", fmt.Errorf("unknown state %q", cmd.State)
	}
	c.count.Add(1)
	return cmd.CommandID, nil
}

// Step advances the simulation by a real duration and returns the SoC.
func (c *Charger) Step(d time.Duration) float64 {
	if c.on.Load() {
		c.battery.Charge(d.Hours() * c.cfg.TimeScale)
	}
	return c.battery.SoC()
}

// Run connects to the broker, answers commands and publishes the SoC every
// interval until ctx is done.
func (c *Charger) Run(ctx context.Context) error {
	if err := c.cfg.Validate(); err != nil {
		return err
	}
	cli, err := newMQTTClient(c.cfg.Broker, "evsmart-sim-"+c.cfg.ChargerID)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	c.cli = cli
	defer cli.Disconnect(250)

	topic := c.cfg.CommandTopic
	if token := cli.Subscribe(topic, 1, c.onCommand); token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	simLog.Infof("simulating charger %s on %s", c.cfg.ChargerID, topic)

	c.wg.Add(1)
	go c.ackWorker(ctx)
	defer c.wg.Wait()

	c.publishSoC()
	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.Step(c.cfg.Interval)
			c.publishSoC()
		}
	}
}

func (c *Charger) onCommand(_ paho.Client, msg paho.Message) {
	id, err := c.HandleCommand(msg.Payload())
	if err != nil {
		simLog.Warnf("ignored command on %s: %v", msg.Topic(), err)
		return
	}
	simLog.Infof("command %s: charging=%t soc=%.1f", id, c.Charging(), c.battery.SoC())
	if c.cfg.AckTopic == "" || id == "" {
		return
	}
	select {
	case c.acks <- id:
	default:
		simLog.Warnf("ack queue full, dropping %s", id)
	}
}

func (c *Charger) ackWorker(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-c.acks:
			c.strategy.Ack(ctx, c.cli, c.cfg.AckTopic, id)
		}
	}
}

func (c *Charger) publishSoC() {
	payload := strconv.FormatFloat(c.battery.SoC(), 'f', 1, 64)
	token := c.cli.Publish(c.cfg.SoCTopic, 1, true, payload)
	if !token.WaitTimeout(5 * time.Second) {
		simLog.Warnf("soc publish timeout")
		return
	}
	if err := token.Error(); err != nil {
		simLog.Warnf("publish soc: %v", err)
	}
}
