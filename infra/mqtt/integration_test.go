//go:build integration

package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/evsmart/core/coordinator"
	"github.com/kilianp07/evsmart/infra/logger"
)

const mosquittoConf = `listener 1883
allow_anonymous true
persistence false
`

func startMosquitto(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "mosquitto.conf")
	require.NoError(t, os.WriteFile(path, []byte(mosquittoConf), 0644))

	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
		Files: []tc.ContainerFile{{
			HostFilePath:      path,
			ContainerFilePath: "/mosquitto/config/mosquitto.conf",
			FileMode:          0644,
		}},
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("docker not available: %v", err)
	}
	t.Cleanup(func() { _ = cont.Terminate(context.Background()) })

	host, err := cont.Host(ctx)
	require.NoError(t, err)
	port, err := cont.MappedPort(ctx, "1883")
	require.NoError(t, err)
	return fmt.Sprintf("tcp://%s:%s", host, port.Port())
}

// TestBrokerRoundTrip drives a command with ack and an input message through
// a real Mosquitto broker.
func TestBrokerRoundTrip(t *testing.T) {
	broker := startMosquitto(t)

	cfg := Config{Broker: broker, ClientID: "evsmart-it", AckTopic: "evsmart/charger/ack", RequireAck: true, QoS: map[string]byte{QoSCommand: 1, QoSAck: 1, QoSInput: 1}}
	var (
		cli *Client
		err error
	)
	require.Eventually(t, func() bool {
		cli, err = NewClient(cfg, logger.NopLogger{})
		return err == nil
	}, 10*time.Second, 200*time.Millisecond)
	defer cli.Disconnect()

	// fake charger acknowledging every command
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("fake-charger")
	fake := paho.NewClient(opts)
	require.NoError(t, waitToken(context.Background(), fake.Connect()))
	defer fake.Disconnect(100)
	tok := fake.Subscribe("evsmart/charger/garage/set", 1, func(c paho.Client, m paho.Message) {
		var cmd Command
		if json.Unmarshal(m.Payload(), &cmd) != nil {
			return
		}
		ack, _ := json.Marshal(map[string]string{"command_id": cmd.CommandID})
		c.Publish("evsmart/charger/ack", 1, false, ack)
	})
	require.NoError(t, waitToken(context.Background(), tok))

	sw, err := NewChargerSwitch(cli, cfg, "garage")
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, sw.TurnOn(ctx))

	l := NewInputListener(cli, InputTopics{PriceTopic: "it/prices", SoCTopic: "it/soc"}, 4)
	require.NoError(t, l.Start(ctx))
	require.NoError(t, waitToken(ctx, fake.Publish("it/soc", 1, false, "72.5")))
	select {
	case ev := <-l.Events():
		assert.Equal(t, coordinator.EventSoC, ev.Kind)
		assert.Equal(t, 72.5, ev.SoC.Value)
	case <-ctx.Done():
		t.Fatal("no input event")
	}
}
