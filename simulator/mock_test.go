package simulator

import (
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

type published struct {
	topic    string
	retained bool
	payload  string
}

// fakeClient records publishes and keeps subscription handlers.
type fakeClient struct {
	mu        sync.Mutex
	handlers  map[string]paho.MessageHandler
	published []published
}

func newFakeClient() *fakeClient {
	return &fakeClient{handlers: map[string]paho.MessageHandler{}}
}

func (f *fakeClient) IsConnected() bool      { return true }
func (f *fakeClient) IsConnectionOpen() bool { return true }
func (f *fakeClient) Connect() paho.Token    { return doneToken{} }
func (f *fakeClient) Disconnect(uint)        {}
func (f *fakeClient) Publish(topic string, _ byte, retained bool, payload interface{}) paho.Token {
	var s string
	switch p := payload.(type) {
	case []byte:
		s = string(p)
	case string:
		s = p
	}
	f.mu.Lock()
	f.published = append(f.published, published{topic, retained, s})
	f.mu.Unlock()
	return doneToken{}
}
func (f *fakeClient) Subscribe(topic string, _ byte, h paho.MessageHandler) paho.Token {
	f.mu.Lock()
	f.handlers[topic] = h
	f.mu.Unlock()
	return doneToken{}
}
func (f *fakeClient) SubscribeMultiple(map[string]byte, paho.MessageHandler) paho.Token {
	return doneToken{}
}
func (f *fakeClient) Unsubscribe(...string) paho.Token        { return doneToken{} }
func (f *fakeClient) AddRoute(string, paho.MessageHandler)    {}
func (f *fakeClient) OptionsReader() paho.ClientOptionsReader { return paho.ClientOptionsReader{} }

func (f *fakeClient) handler(topic string) paho.MessageHandler {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handlers[topic]
}

type doneToken struct{}

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (doneToken) Error() error                   { return nil }

type message struct {
	topic string
	p     []byte
}

func (m message) Duplicate() bool   { return false }
func (m message) Qos() byte         { return 1 }
func (m message) Retained() bool    { return false }
func (m message) Topic() string     { return m.topic }
func (m message) MessageID() uint16 { return 0 }
func (m message) Payload() []byte   { return m.p }
func (m message) Ack()              {}
