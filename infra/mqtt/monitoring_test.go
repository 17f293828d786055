package mqtt

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordMonitor struct {
	err  error
	tags map[string]string
}

func (r *recordMonitor) CaptureException(err error, tags map[string]string) {
	r.err = err
	r.tags = tags
}
func (r *recordMonitor) Recover()            {}
func (r *recordMonitor) Flush(time.Duration) {}

func TestConnectionLostCaptured(t *testing.T) {
	mc := &mockClient{}
	cli := newTestClient(t, mc, Config{Broker: "tcp://broker:1883"})
	mon := &recordMonitor{}
	cli.SetMonitor(mon)

	require.NotNil(t, mc.opts.OnConnectionLost)
	mc.opts.OnConnectionLost(mc, errors.New("eof"))
	assert.EqualError(t, mon.err, "eof")
	assert.Equal(t, "mqtt", mon.tags["module"])
	assert.Equal(t, "tcp://broker:1883", mon.tags["broker"])
}
