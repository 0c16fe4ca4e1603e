package server

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dogmaai/magi-decision/internal/usecase"
	"github.com/dogmaai/magi-decision/pkg/config"
	xhttp "github.com/dogmaai/magi-decision/pkg/http"
	pkgkafka "github.com/dogmaai/magi-decision/pkg/kafka"
	applogger "github.com/dogmaai/magi-decision/pkg/logger"
)

type closer struct {
	name string
	fn   func() error
}

type janitor struct {
	name     string
	interval time.Duration
	fn       func()
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg       *config.Config
	log       *applogger.Logger
	handler   xhttp.Handler
	prices    *usecase.PriceUpdateHandler
	consumer  *pkgkafka.Consumer
	collector *usecase.QuoteCollector
	closers   []closer
	janitors  []janitor

	httpServer *xhttp.Server
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// Option attaches optional components.
type Option func(*App)

// WithConsumer feeds the price-update handler from Kafka.
func WithConsumer(c *pkgkafka.Consumer) Option {
	return func(a *App) { a.consumer = c }
}

// WithQuoteCollector runs the live quote stream.
func WithQuoteCollector(c *usecase.QuoteCollector) Option {
	return func(a *App) { a.collector = c }
}

// WithCloser registers a resource closed on shutdown, in registration order.
func WithCloser(name string, fn func() error) Option {
	return func(a *App) {
		if fn != nil {
			a.closers = append(a.closers, closer{name: name, fn: fn})
		}
	}
}

// WithJanitor runs fn every interval until shutdown.
func WithJanitor(name string, interval time.Duration, fn func()) Option {
	return func(a *App) {
		if interval > 0 && fn != nil {
			a.janitors = append(a.janitors, janitor{name: name, interval: interval, fn: fn})
		}
	}
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	handler xhttp.Handler,
	prices *usecase.PriceUpdateHandler,
	opts ...Option,
) *App {
	if l == nil {
		l = applogger.Nop()
	}
	a := &App{cfg: cfg, log: l, handler: handler, prices: prices}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	a.log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

// Start launches every component without blocking.
func (a *App) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)
	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithSlowThreshold(a.cfg.Server.SlowThreshold),
		xhttp.WithCORSOrigins(a.cfg.Server.CORSOrigins...),
		xhttp.WithLogger(a.log),
	)

	if a.collector != nil {
		if err := a.collector.Start(ctx); err != nil {
			// live quotes are optional; the price tool falls back to polling
			a.log.Warn("quote collector not started", applogger.Error(err))
		} else {
			a.log.Info("quote collector started", applogger.Strings("symbols", a.cfg.Finnhub.Symbols))
		}
	}

	if a.consumer != nil && a.prices != nil {
		a.consumer.RegisterHandler(a.prices)
		if err := a.consumer.Start(); err != nil {
			a.log.Error("kafka consumer error", applogger.Error(err))
			return err
		}
		a.log.Info("kafka consumer started", applogger.String("topic", a.prices.Topic()))
	}

	for _, j := range a.janitors {
		a.wg.Add(1)
		go a.runJanitor(ctx, j)
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	return nil
}

func (a *App) runJanitor(ctx context.Context, j janitor) {
	defer a.wg.Done()
	t := time.NewTicker(j.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			j.fn()
		}
	}
}

// Shutdown stops intake first, then waits for background analyses before closing clients.
func (a *App) Shutdown(ctx context.Context) error {
	a.log.Info("shutting down...")

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
		}
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			a.log.Warn("quote collector stop error", applogger.Error(err))
		}
	}
	if a.prices != nil {
		if err := a.prices.Wait(ctx); err != nil {
			a.log.Warn("background analyses still running", applogger.Error(err))
		}
	}
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()

	for _, c := range a.closers {
		if err := c.fn(); err != nil {
			a.log.Warn("close error", applogger.String("resource", c.name), applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
