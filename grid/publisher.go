package grid

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const publishTimeout = 2 * time.Second

var errNotConnected = errors.New("MQTT client not connected")

// Publisher sends mapper output to <prefix>/transform, <prefix>/map and
// <prefix>/stats. All three are retained.
type Publisher struct {
	client   mqtt.Client
	prefix   string
	compress bool

	mu   sync.RWMutex
	qos  byte // 0: the next tick supersedes a lost message
	sent int
	last time.Time
}

// NewPublisher resolves the topic prefix from MQTT_PUBLISH_PREFIX, then
// mqtt.publishPrefix, then "tudogrid". A nil client makes every publish fail
// with a not-connected error.
func NewPublisher(client mqtt.Client, config *Config) *Publisher {
	p := &Publisher{client: client, prefix: os.Getenv("MQTT_PUBLISH_PREFIX")}
	if config != nil {
		if p.prefix == "" {
			p.prefix = config.MQTT.PublishPrefix
		}
		p.compress = config.Publish.Compress
	}
	if p.prefix == "" {
		p.prefix = "tudogrid"
	}
	return p
}

func (p *Publisher) topic(leaf string) string { return p.prefix + "/" + leaf }

func (p *Publisher) TransformTopic() string { return p.topic("transform") }
func (p *Publisher) MapTopic() string       { return p.topic("map") }
func (p *Publisher) StatsTopic() string     { return p.topic("stats") }

// PublishTransform sends the map->robot transform.
func (p *Publisher) PublishTransform(msg TransformMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling transform: %w", err)
	}
	return p.publish(p.TransformTopic(), payload)
}

// PublishSnapshot sends the snapshot, deflated when publish.compress is set,
// and then its stats. A failed snapshot publish skips the stats.
func (p *Publisher) PublishSnapshot(snap *Snapshot, stats MapStats) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	if p.compress {
		if payload, err = deflateZlib(payload); err != nil {
			return err
		}
	}
	statsPayload, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}

	for _, out := range []struct {
		topic   string
		payload []byte
	}{
		{p.MapTopic(), payload},
		{p.StatsTopic(), statsPayload},
	} {
		if err := p.publish(out.topic, out.payload); err != nil {
			return err
		}
	}

	p.mu.Lock()
	p.sent++
	p.last = time.Now()
	p.mu.Unlock()

	Logf("[MQTT] Published snapshot tick=%d (%d points, %d bytes): free=%d occupied=%d unknown=%d",
		snap.Tick, len(snap.Points), len(payload), stats.Free, stats.Occupied, stats.Unknown)
	return nil
}

func (p *Publisher) publish(topic string, payload []byte) error {
	if p.client == nil || !p.client.IsConnected() {
		return errNotConnected
	}
	p.mu.RLock()
	qos := p.qos
	p.mu.RUnlock()

	token := p.client.Publish(topic, qos, true, payload)
	if token.WaitTimeout(publishTimeout) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}
	return nil
}

// SnapshotsPublished reports the snapshot count and the time of the last one.
func (p *Publisher) SnapshotsPublished() (int, time.Time) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sent, p.last
}

// SetQoS changes the publish QoS. Values above 2 are ignored.
func (p *Publisher) SetQoS(qos byte) {
	if qos > 2 {
		return
	}
	p.mu.Lock()
	p.qos = qos
	p.mu.Unlock()
}
