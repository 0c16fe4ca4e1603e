package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterRendersFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "debug").With(String("component", "dispatcher"))

	l.Info("agent settled",
		String("unit", "R4"),
		Float64("confidence", 0.75),
		Duration("duration_ms", 1500*time.Millisecond),
		Bool("failed", false),
		Error(errors.New("boom")),
	)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "dispatcher", got["component"])
	assert.Equal(t, "R4", got["unit"])
	assert.Equal(t, 0.75, got["confidence"])
	assert.Equal(t, float64(1500), got["duration_ms"])
	assert.Equal(t, false, got["failed"])
	assert.Equal(t, "boom", got["error"])
	assert.Equal(t, "agent settled", got["message"])
}

func TestWriterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "warn")
	l.Info("dropped")
	assert.Zero(t, buf.Len())
	l.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

type fakePublisher struct {
	mu      sync.Mutex
	topic   string
	batches [][]AggregatedLogEntry
}

func (f *fakePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topic = topic
	f.batches = append(f.batches, payload.([]AggregatedLogEntry))
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func TestCollectorDeduplicatesAndFlushesOnClose(t *testing.T) {
	pub := &fakePublisher{}
	c := NewLogCollector(&CollectionConfig{
		TimeInterval:   time.Hour,
		CountThreshold: 10,
		Topic:          "magi-logs",
		Publisher:      pub,
		IgnoreFields:   []string{"duration_ms"},
	})

	c.AddLog("error", "agent failed", map[string]interface{}{"unit": "B2", "duration_ms": 10}, "x.go:1")
	c.AddLog("error", "agent failed", map[string]interface{}{"unit": "B2", "duration_ms": 99}, "x.go:1")
	c.AddLog("error", "agent failed", map[string]interface{}{"unit": "M1"}, "x.go:1")
	c.Close()

	require.Equal(t, 1, pub.count())
	assert.Equal(t, "magi-logs", pub.topic)
	counts := map[interface{}]int{}
	for _, e := range pub.batches[0] {
		counts[e.Fields["unit"]] = e.Count
	}
	assert.Equal(t, map[interface{}]int{"B2": 2, "M1": 1}, counts)
}

func TestCollectorFlushesAtThreshold(t *testing.T) {
	pub := &fakePublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 2, Publisher: pub})
	defer c.Close()

	c.AddLog("error", "a", nil, "x.go:1")
	c.AddLog("error", "b", nil, "x.go:2")

	require.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestLoggerErrorFeedsCollector(t *testing.T) {
	pub := &fakePublisher{}
	l := NewWriter(&bytes.Buffer{}, "info")
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 100, Publisher: pub})

	l.Error("publish failed", String("topic", "trade-signals"))
	l.Warn("not collected")
	l.RemoveCollector()

	require.Equal(t, 1, pub.count())
	require.Len(t, pub.batches[0], 1)
	assert.Equal(t, "publish failed", pub.batches[0][0].Message)
}
