package di

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/dogmaai/magi-decision/internal/domain/models"
	"github.com/dogmaai/magi-decision/pkg/config"
	applogger "github.com/dogmaai/magi-decision/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingProducer stands in for the kafka producer shared by signals and log batches.
type recordingProducer struct {
	mu     sync.Mutex
	closed bool
	events []string
}

func (p *recordingProducer) PublishSignal(context.Context, *models.TradeSignal) error { return nil }

func (p *recordingProducer) PublishMessage(_ context.Context, topic string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.events = append(p.events, "publish after close")
		return errors.New("writer closed")
	}
	p.events = append(p.events, "publish "+topic)
	return nil
}

func (p *recordingProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.events = append(p.events, "close")
	return nil
}

func TestProvideAppFlushesLogsBeforeClosingProducer(t *testing.T) {
	cfg, err := config.Parse([]byte("server:\n  port: 18090\n"))
	require.NoError(t, err)

	producer := &recordingProducer{}
	l := applogger.NewWriter(io.Discard, "error")
	l.AddCollector(&applogger.CollectionConfig{TimeInterval: time.Hour, Topic: "magi.logs", Publisher: producer})
	l.Error("arbiter call failed", applogger.String("symbol", "AAPL"))

	app := ProvideApp(cfg, l, nil, nil, nil, nil, nil, nil, producer, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, app.Shutdown(ctx))

	assert.Equal(t, []string{"publish magi.logs", "close"}, producer.events)
}
