package usecase

import (
	"context"
	"sync"

	"github.com/dogmaai/magi-decision/internal/domain/models"
	drepo "github.com/dogmaai/magi-decision/internal/domain/repository"
	applogger "github.com/dogmaai/magi-decision/pkg/logger"
)

// QuoteSink receives live trades.
type QuoteSink interface {
	Update(t models.Trade)
}

// QuoteCollector feeds trades from a market stream into a quote sink.
type QuoteCollector struct {
	stream  drepo.MarketStream
	sink    QuoteSink
	metrics drepo.Metrics
	logger  *applogger.Logger

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func NewQuoteCollector(stream drepo.MarketStream, sink QuoteSink, metrics drepo.Metrics, l *applogger.Logger) *QuoteCollector {
	if l == nil {
		l = applogger.Nop()
	}
	return &QuoteCollector{stream: stream, sink: sink, metrics: metrics, logger: l, done: make(chan struct{})}
}

// IsConnected returns true if the market stream is connected.
func (c *QuoteCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

// Start connects and subscribes synchronously, then consumes in the background.
func (c *QuoteCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		_ = c.stream.Close()
		return err
	}
	ctx, c.cancel = context.WithCancel(ctx)
	go c.consume(ctx)
	return nil
}

func (c *QuoteCollector) consume(ctx context.Context) {
	defer close(c.done)
	trCh, errCh := c.stream.Read(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errCh:
			if !ok || err == nil {
				errCh = nil
				continue
			}
			c.metrics.RecordError("stream")
			c.logger.Warn("stream interrupted, reconnecting", applogger.Error(err))
			for {
				rerr := c.stream.Reconnect(ctx)
				if rerr == nil {
					break
				}
				if ctx.Err() != nil {
					return
				}
				c.logger.Error("reconnect failed", applogger.Error(rerr))
			}
			trCh, errCh = c.stream.Read(ctx)
		case t, ok := <-trCh:
			if !ok {
				trCh = nil
				continue
			}
			if t == nil {
				continue
			}
			c.sink.Update(*t)
			c.metrics.RecordLastPrice(t.Symbol, t.Price)
		}
	}
}

// Shutdown stops consumption and closes the stream.
func (c *QuoteCollector) Shutdown(ctx context.Context) error {
	var err error
	c.once.Do(func() {
		if c.cancel != nil {
			c.cancel()
			select {
			case <-c.done:
			case <-ctx.Done():
			}
		}
		err = c.stream.Close()
	})
	return err
}
