package grid

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// logLines collects Logf output for the rest of the test.
type logLines struct {
	mu    sync.Mutex
	lines []string
}

func captureLog(t *testing.T) *logLines {
	t.Helper()
	l := &logLines{}
	SetLogger(func(format string, v ...interface{}) {
		l.mu.Lock()
		l.lines = append(l.lines, fmt.Sprintf(format, v...))
		l.mu.Unlock()
	})
	t.Cleanup(func() { SetLogger(nil) })
	return l
}

// count reports how many captured lines contain substr.
func (l *logLines) count(substr string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, line := range l.lines {
		if strings.Contains(line, substr) {
			n++
		}
	}
	return n
}

func TestSetLogger_RoutesTransportLogs(t *testing.T) {
	logs := captureLog(t)

	c, mockClient, _ := connectedClient(t)
	mockClient.SimulateMessage(c.config.Topics.Pose, []byte(`not json at all`))

	p := NewPublisher(mockClient, DefaultConfig())
	require.NoError(t, p.PublishSnapshot(&Snapshot{Tick: 1}, MapStats{}))

	assert.Equal(t, 1, logs.count("[MQTT] Connected"))
	assert.Equal(t, 1, logs.count("[MQTT] Error decoding message on "+c.config.Topics.Pose))
	assert.Equal(t, 1, logs.count("[MQTT] Published snapshot tick=1"))
}

func TestSetLogger_NilMutes(t *testing.T) {
	logs := captureLog(t)
	SetLogger(nil)

	Logf("[MAP] dropped")
	assert.Zero(t, logs.count("dropped"))
}
