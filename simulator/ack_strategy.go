package simulator

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/evsmart/infra/logger"
)

var simLog = logger.New("simulator")

var rng = rand.New(rand.NewSource(time.Now().UnixNano()))

// AckStrategy defines how the charger acknowledges commands.
type AckStrategy interface {
	Ack(ctx context.Context, cli paho.Client, topic, commandID string)
}

// AutoAck sends an ACK after an optional fixed delay.
type AutoAck struct {
	Delay time.Duration
}

// Ack implements AckStrategy.
func (a AutoAck) Ack(ctx context.Context, cli paho.Client, topic, commandID string) {
	if a.Delay > 0 {
		select {
		case <-time.After(a.Delay):
		case <-ctx.Done():
			return
		}
	}
	publishAck(cli, topic, commandID)
}

// RandomAck drops acknowledgments with the configured probability and
// waits for the specified delay before sending.
type RandomAck struct {
	Delay    time.Duration
	DropRate float64
}

// Ack implements AckStrategy.
func (r RandomAck) Ack(ctx context.Context, cli paho.Client, topic, commandID string) {
	if r.DropRate > 0 && rng.Float64() < r.DropRate {
		simLog.Warnf("dropping ack for %s", commandID)
		return
	}
	AutoAck{Delay: r.Delay}.Ack(ctx, cli, topic, commandID)
}

func publishAck(cli paho.Client, topic, commandID string) {
	payload, err := json.Marshal(struct {
		CommandID string `json:"command_id"`
	}{CommandID: commandID})
	if err != nil {
		simLog.Warnf("marshal ack: %v", err)
		return
	}
	token := cli.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		simLog.Warnf("ack publish timeout for %s", commandID)
		return
	}
	if err := token.Error(); err != nil {
		simLog.Warnf("publish ack error for %s: %v", commandID, err)
	}
}
