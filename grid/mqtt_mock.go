package grid

import (
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// doneToken is an mqtt.Token that has already completed with err.
type doneToken struct{ err error }

var closedDone = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{}          { return closedDone }
func (t doneToken) Error() error                   { return t.err }

// MockMessage is one call to MockClient.Publish.
type MockMessage struct {
	Topic   string
	Payload []byte
	QoS     byte
	Retain  bool
}

// MockClient is an in-memory mqtt.Client for tests in this module. It keeps
// every publish and lets tests push inbound messages with SimulateMessage.
type MockClient struct {
	mu         sync.RWMutex
	connected  bool
	connectErr error
	publishErr error
	onConnect  mqtt.OnConnectHandler
	routes     map[string]mqtt.MessageHandler
	sent       []MockMessage
}

// NewMockClient starts disconnected.
func NewMockClient() *MockClient {
	return &MockClient{routes: make(map[string]mqtt.MessageHandler)}
}

func (c *MockClient) locked(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
}

func (c *MockClient) SetConnected(v bool)                 { c.locked(func() { c.connected = v }) }
func (c *MockClient) SetConnectError(err error)           { c.locked(func() { c.connectErr = err }) }
func (c *MockClient) SetPublishError(err error)           { c.locked(func() { c.publishErr = err }) }
func (c *MockClient) SetOnConnect(h mqtt.OnConnectHandler) { c.locked(func() { c.onConnect = h }) }

// GetPublishedMessages copies the publish log.
func (c *MockClient) GetPublishedMessages() []MockMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]MockMessage(nil), c.sent...)
}

// MessagesOn filters the publish log by topic, oldest first.
func (c *MockClient) MessagesOn(topic string) []MockMessage {
	var out []MockMessage
	for _, m := range c.GetPublishedMessages() {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}

// SubscribedTopics lists topics with a live handler, in no particular order.
func (c *MockClient) SubscribedTopics() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	topics := make([]string, 0, len(c.routes))
	for t := range c.routes {
		topics = append(topics, t)
	}
	return topics
}

// SimulateMessage delivers payload synchronously to the topic's handler.
func (c *MockClient) SimulateMessage(topic string, payload []byte) {
	c.mu.RLock()
	h := c.routes[topic]
	c.mu.RUnlock()
	if h != nil {
		h(c, inbound{topic: topic, payload: payload})
	}
}

func (c *MockClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *MockClient) IsConnectionOpen() bool { return c.IsConnected() }

// Connect succeeds unless SetConnectError was called, and then runs the
// on-connect handler on the caller's goroutine.
func (c *MockClient) Connect() mqtt.Token {
	var (
		err error
		h   mqtt.OnConnectHandler
	)
	c.locked(func() {
		err, h = c.connectErr, c.onConnect
		c.connected = c.connected || err == nil
	})
	if err == nil && h != nil {
		h(c)
	}
	return doneToken{err}
}

func (c *MockClient) Disconnect(uint) { c.SetConnected(false) }

func (c *MockClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case !c.connected:
		return doneToken{mqtt.ErrNotConnected}
	case c.publishErr != nil:
		return doneToken{c.publishErr}
	}

	msg := MockMessage{Topic: topic, QoS: qos, Retain: retained}
	switch v := payload.(type) {
	case []byte:
		msg.Payload = v
	case string:
		msg.Payload = []byte(v)
	}
	c.sent = append(c.sent, msg)
	return doneToken{}
}

func (c *MockClient) Subscribe(topic string, _ byte, callback mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return doneToken{mqtt.ErrNotConnected}
	}
	c.routes[topic] = callback
	return doneToken{}
}

func (c *MockClient) SubscribeMultiple(filters map[string]byte, callback mqtt.MessageHandler) mqtt.Token {
	for topic, qos := range filters {
		if tok := c.Subscribe(topic, qos, callback); tok.Error() != nil {
			return tok
		}
	}
	return doneToken{}
}

func (c *MockClient) Unsubscribe(topics ...string) mqtt.Token {
	c.locked(func() {
		for _, t := range topics {
			delete(c.routes, t)
		}
	})
	return doneToken{}
}

func (c *MockClient) AddRoute(topic string, callback mqtt.MessageHandler) {
	c.locked(func() { c.routes[topic] = callback })
}

func (c *MockClient) OptionsReader() mqtt.ClientOptionsReader { return mqtt.ClientOptionsReader{} }

// inbound is a received mqtt.Message at QoS 0.
type inbound struct {
	topic   string
	payload []byte
}

func (m inbound) Duplicate() bool   { return false }
func (m inbound) Qos() byte         { return 0 }
func (m inbound) Retained() bool    { return false }
func (m inbound) Topic() string     { return m.topic }
func (m inbound) MessageID() uint16 { return 0 }
func (m inbound) Payload() []byte   { return m.payload }
func (m inbound) Ack()              {}
