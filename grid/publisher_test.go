package grid

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPublisher_Prefix(t *testing.T) {
	t.Setenv("MQTT_PUBLISH_PREFIX", "")

	p := NewPublisher(nil, nil)
	assert.Equal(t, "tudogrid/transform", p.TransformTopic())

	cfg := DefaultConfig()
	cfg.MQTT.PublishPrefix = "home/grid"
	p = NewPublisher(nil, cfg)
	assert.Equal(t, "home/grid/map", p.MapTopic())
	assert.Equal(t, "home/grid/stats", p.StatsTopic())

	t.Setenv("MQTT_PUBLISH_PREFIX", "override")
	p = NewPublisher(nil, cfg)
	assert.Equal(t, "override/transform", p.TransformTopic())
}

func TestPublisher_PublishTransform(t *testing.T) {
	t.Setenv("MQTT_PUBLISH_PREFIX", "")
	mockClient := NewMockClient()
	mockClient.SetConnected(true)
	p := NewPublisher(mockClient, DefaultConfig())

	msg := TransformMessage{Parent: "map", Child: "robot", Tx: 500, Ty: 500, RunID: "abc"}
	require.NoError(t, p.PublishTransform(msg))

	got := mockClient.MessagesOn("tudogrid/transform")
	require.Len(t, got, 1)
	assert.True(t, got[0].Retain)
	assert.Equal(t, byte(0), got[0].QoS)

	var decoded TransformMessage
	require.NoError(t, json.Unmarshal(got[0].Payload, &decoded))
	assert.Equal(t, msg, decoded)
}

func testSnapshot(t *testing.T) (*Snapshot, MapStats) {
	t.Helper()
	om := NewOccupancyMap(testFrame(), DefaultConfig().Model.LogOdds())
	_, err := om.MarkOccupied(Point{2, 3})
	require.NoError(t, err)
	snap := om.Snapshot()
	snap.Tick = 100
	stats := om.Stats()
	stats.Tick = 100
	return snap, stats
}

func TestPublisher_PublishSnapshot(t *testing.T) {
	t.Setenv("MQTT_PUBLISH_PREFIX", "")
	mockClient := NewMockClient()
	mockClient.SetConnected(true)
	p := NewPublisher(mockClient, DefaultConfig())
	p.SetQoS(1)
	p.SetQoS(7) // ignored

	snap, stats := testSnapshot(t)
	require.NoError(t, p.PublishSnapshot(snap, stats))

	maps := mockClient.MessagesOn(p.MapTopic())
	require.Len(t, maps, 1)
	assert.Equal(t, byte(1), maps[0].QoS)

	var decoded Snapshot
	require.NoError(t, json.Unmarshal(maps[0].Payload, &decoded))
	assert.Equal(t, uint64(100), decoded.Tick)
	assert.Len(t, decoded.Points, 400)

	statsMsgs := mockClient.MessagesOn(p.StatsTopic())
	require.Len(t, statsMsgs, 1)
	var decodedStats MapStats
	require.NoError(t, json.Unmarshal(statsMsgs[0].Payload, &decodedStats))
	assert.Equal(t, 1, decodedStats.Occupied)

	n, last := p.SnapshotsPublished()
	assert.Equal(t, 1, n)
	assert.False(t, last.IsZero())
}

func TestPublisher_PublishSnapshotCompressed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Publish.Compress = true
	mockClient := NewMockClient()
	mockClient.SetConnected(true)
	p := NewPublisher(mockClient, cfg)

	snap, stats := testSnapshot(t)
	require.NoError(t, p.PublishSnapshot(snap, stats))

	maps := mockClient.MessagesOn(p.MapTopic())
	require.Len(t, maps, 1)
	assert.NotEqual(t, byte('{'), maps[0].Payload[0])

	raw, err := inflateZlib(maps[0].Payload)
	require.NoError(t, err)
	var decoded Snapshot
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, snap.Points, decoded.Points)
}

func TestPublisher_Errors(t *testing.T) {
	snap, stats := testSnapshot(t)

	p := NewPublisher(nil, nil)
	assert.Error(t, p.PublishTransform(TransformMessage{}))

	mockClient := NewMockClient()
	p = NewPublisher(mockClient, nil)
	assert.ErrorContains(t, p.PublishSnapshot(snap, stats), "not connected")

	mockClient.SetConnected(true)
	boom := errors.New("broker gone")
	mockClient.SetPublishError(boom)
	err := p.PublishSnapshot(snap, stats)
	assert.ErrorIs(t, err, boom)

	n, _ := p.SnapshotsPublished()
	assert.Equal(t, 0, n)
	assert.Empty(t, mockClient.GetPublishedMessages())
}
