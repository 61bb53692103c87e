package grid

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	defaultClientID  = "tudogrid"
	connectTimeout   = 10 * time.Second
	subscribeTimeout = 5 * time.Second
	maxConnectDelay  = 60 * time.Second
)

// DecodeErrorHandler is called when an input message cannot be decoded
type DecodeErrorHandler func(topic string, err error)

// MQTTClient owns the broker connection and routes the pose and distance
// topics into a StateTracker.
type MQTTClient struct {
	client    mqtt.Client
	config    *Config
	tracker   *StateTracker
	connected atomic.Bool

	mu      sync.RWMutex
	onError DecodeErrorHandler
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// InitMQTT builds the client and connects in the background. It returns
// nil, nil when no broker is configured (MQTT_BROKER or mqtt.broker).
func InitMQTT(config *Config, tracker *StateTracker) (*MQTTClient, error) {
	if config == nil {
		return nil, fmt.Errorf("MQTT enabled but no configuration provided")
	}
	broker := envOr("MQTT_BROKER", config.MQTT.Broker)
	if broker == "" {
		Logf("MQTT disabled: MQTT_BROKER not set")
		return nil, nil
	}
	switch {
	case tracker == nil:
		return nil, fmt.Errorf("MQTT enabled but no state tracker provided")
	case config.Topics.Pose == "" || config.Topics.Distance == "":
		return nil, fmt.Errorf("MQTT enabled but topics.pose and topics.distance are required")
	}

	c := &MQTTClient{config: config, tracker: tracker}
	c.client = mqtt.NewClient(c.clientOptions(broker))
	go c.connectLoop()
	return c, nil
}

func (c *MQTTClient) clientOptions(broker string) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(envOr("MQTT_CLIENT_ID", c.config.MQTT.ClientID)).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(maxConnectDelay).
		SetKeepAlive(60 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetCleanSession(false).
		SetOrderMatters(true). // a reading must never overtake the pose sent before it
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			Logf("[MQTT] Connection interrupted (%v), auto-reconnect will retry", err)
			c.setConnected(false)
		}).
		SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
			Logf("[MQTT] Reconnecting...")
		})
	if opts.ClientID == "" {
		opts.SetClientID(defaultClientID)
	}
	if user := envOr("MQTT_USERNAME", c.config.MQTT.Username); user != "" {
		opts.SetUsername(user)
		opts.SetPassword(envOr("MQTT_PASSWORD", c.config.MQTT.Password))
	}
	return opts
}

// connectLoop retries the first connection with doubling delays. Once
// connected, paho's auto-reconnect takes over.
func (c *MQTTClient) connectLoop() {
	for delay := time.Second; ; delay = min(2*delay, maxConnectDelay) {
		Logf("[MQTT] Connecting to broker...")
		token := c.client.Connect()
		switch {
		case !token.WaitTimeout(connectTimeout):
			Logf("[MQTT] Connection timeout")
		case token.Error() != nil:
			Logf("[MQTT] Connection failed: %v", token.Error())
		default:
			Logf("[MQTT] Connected to broker")
			c.setConnected(true)
			return
		}
		Logf("[MQTT] Retrying connection in %v...", delay)
		time.Sleep(delay)
	}
}

// routes maps each input topic to the tracker update it drives.
func (c *MQTTClient) routes() map[string]mqtt.MessageHandler {
	return map[string]mqtt.MessageHandler{
		c.config.Topics.Pose:     route(c, DecodePose, c.tracker.UpdatePose),
		c.config.Topics.Distance: route(c, DecodeReading, c.tracker.UpdateReading),
	}
}

// route decodes a payload and hands it to apply. Undecodable payloads leave
// the tracker untouched.
func route[T any](c *MQTTClient, decode func([]byte) (T, error), apply func(T)) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		v, err := decode(msg.Payload())
		if err != nil {
			c.reportError(msg.Topic(), err)
			return
		}
		apply(v)
	}
}

// onConnect (re)subscribes on every connection.
func (c *MQTTClient) onConnect(client mqtt.Client) {
	Logf("[MQTT] Connected, subscribing to input topics...")
	c.setConnected(true)

	for topic, handler := range c.routes() {
		token := client.Subscribe(topic, 0, handler)
		if token.WaitTimeout(subscribeTimeout) && token.Error() != nil {
			Logf("[MQTT] Error subscribing to %s: %v", topic, token.Error())
			continue
		}
		Logf("[MQTT] Subscribed to %s", topic)
	}
}

func (c *MQTTClient) reportError(topic string, err error) {
	Logf("[MQTT] Error decoding message on %s: %v", topic, err)
	c.mu.RLock()
	h := c.onError
	c.mu.RUnlock()
	if h != nil {
		h(topic, err)
	}
}

// SetErrorHandler registers a callback for undecodable input messages
func (c *MQTTClient) SetErrorHandler(handler DecodeErrorHandler) {
	c.mu.Lock()
	c.onError = handler
	c.mu.Unlock()
}

// IsConnected reports the last known connection state.
func (c *MQTTClient) IsConnected() bool { return c.connected.Load() }

func (c *MQTTClient) setConnected(v bool) { c.connected.Store(v) }

// Disconnect closes the connection with a 250ms quiesce.
func (c *MQTTClient) Disconnect() {
	if c.client == nil || !c.client.IsConnected() {
		return
	}
	Logf("[MQTT] Disconnecting from broker...")
	c.client.Disconnect(250)
	c.setConnected(false)
}

// GetClient exposes the paho client so a Publisher can share the connection.
func (c *MQTTClient) GetClient() mqtt.Client {
	return c.client
}

// newMQTTClientWithMock wraps an existing client without connecting.
func newMQTTClientWithMock(client mqtt.Client, config *Config, tracker *StateTracker) *MQTTClient {
	return &MQTTClient{client: client, config: config, tracker: tracker}
}
