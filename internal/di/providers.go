package di

import (
	"context"
	"fmt"
	"time"

	"github.com/dogmaai/magi-decision/internal/domain/repository"
	"github.com/dogmaai/magi-decision/internal/domain/service"
	"github.com/dogmaai/magi-decision/internal/handler/api"
	internalrepo "github.com/dogmaai/magi-decision/internal/repository"
	"github.com/dogmaai/magi-decision/internal/service/alpaca"
	icache "github.com/dogmaai/magi-decision/internal/service/cache"
	"github.com/dogmaai/magi-decision/internal/service/finnhub"
	"github.com/dogmaai/magi-decision/internal/service/isabel"
	toolmetrics "github.com/dogmaai/magi-decision/internal/service/metrics"
	"github.com/dogmaai/magi-decision/internal/service/ratelimit"
	"github.com/dogmaai/magi-decision/internal/service/yahoo"
	"github.com/dogmaai/magi-decision/internal/services/agents"
	"github.com/dogmaai/magi-decision/internal/services/indicators"
	"github.com/dogmaai/magi-decision/internal/services/tools"
	"github.com/dogmaai/magi-decision/internal/usecase"
	pkgch "github.com/dogmaai/magi-decision/pkg/clickhouse"
	"github.com/dogmaai/magi-decision/pkg/config"
	pkgkafka "github.com/dogmaai/magi-decision/pkg/kafka"
	applogger "github.com/dogmaai/magi-decision/pkg/logger"
	"github.com/dogmaai/magi-decision/pkg/metrics"
	"github.com/dogmaai/magi-decision/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	toolmetrics.Register()
	return metrics.New()
}

// ProvideKafkaProducer creates a Kafka producer, or nil when the bus is disabled.
// The producer also ships aggregated error logs when the collector is on.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	if cfg.Logger.Collector.Enabled {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Logger.Collector.Interval,
			CountThreshold: cfg.Logger.Collector.CountThreshold,
			Topic:          cfg.Logger.Collector.Topic,
			Publisher:      producer,
			IgnoreFields:   []string{"request_id", "duration_ms"},
		})
	}
	return producer, nil
}

// ProvideSignalPublisher returns nil when no producer is configured.
func ProvideSignalPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.SignalPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaSignalPublisher(producer, cfg.Decision.SignalTopic)
}

// ProvideRedisCache connects to Redis when enabled.
func ProvideRedisCache(cfg *config.Config) (*icache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	r := icache.NewRedisCache(icache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Ping(ctx); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

// ProvideToolCache prefers Redis and falls back to the in-process cache.
func ProvideToolCache(r *icache.RedisCache) icache.BytesCache {
	if r != nil {
		return r
	}
	return icache.NewTTLCache()
}

// ProvideClickHouseClient connects and prepares the candle table when enabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideYahoo creates the quote and history client.
func ProvideYahoo(cfg *config.Config) *yahoo.Client {
	return yahoo.New(cfg.Market.YahooBaseURL, cfg.Market.Timeout)
}

// ProvideQuoteSource exposes Yahoo as the quote source for order levels.
func ProvideQuoteSource(y *yahoo.Client) repository.QuoteSource { return y }

// ProvideCandleSource reads ClickHouse first when it is configured, otherwise Yahoo.
func ProvideCandleSource(cfg *config.Config, ch *pkgch.Client, y *yahoo.Client, l *applogger.Logger) (repository.CandleSource, error) {
	if ch == nil {
		return y, nil
	}
	store, err := internalrepo.NewCHCandleStore(ch, cfg.ClickHouse.Table, l)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ch.InitSchema(ctx, store.Schema()); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return internalrepo.NewFallbackCandles(store, y, indicators.MinHistory, l), nil
}

// ProvidePortfolio returns nil without brokerage keys.
func ProvidePortfolio(cfg *config.Config) repository.PortfolioProvider {
	ac := alpaca.Config{
		APIKey:    cfg.Alpaca.APIKey,
		SecretKey: cfg.Alpaca.SecretKey,
		BaseURL:   cfg.Alpaca.BaseURL,
		Timeout:   cfg.Alpaca.Timeout,
	}
	if !ac.Enabled() {
		return nil
	}
	return alpaca.New(ac)
}

// ProvideContextSource returns nil when no research endpoint is configured.
func ProvideContextSource(cfg *config.Config, l *applogger.Logger) repository.ContextSource {
	ic := isabel.Config{
		URL:     cfg.Agents.Isabel.URL,
		Token:   cfg.Agents.Isabel.Token,
		Limit:   cfg.Agents.Isabel.Limit,
		MaxDocs: cfg.Agents.Isabel.MaxDocs,
		Timeout: cfg.Agents.Isabel.Timeout,
	}
	if !ic.Enabled() {
		return nil
	}
	return isabel.New(ic, l)
}

// ProvideQuoteBook holds live trades for the price tool.
func ProvideQuoteBook() *finnhub.QuoteBook {
	return finnhub.NewQuoteBook()
}

// ProvideQuoteCollector returns nil unless a key and symbols are configured.
func ProvideQuoteCollector(cfg *config.Config, book *finnhub.QuoteBook, m repository.Metrics, l *applogger.Logger) *usecase.QuoteCollector {
	if cfg.Finnhub.APIKey == "" || len(cfg.Finnhub.Symbols) == 0 {
		return nil
	}
	stream := finnhub.New(
		cfg.Finnhub.APIKey,
		cfg.Finnhub.WebSocketURL,
		cfg.Finnhub.Symbols,
		cfg.Finnhub.ReconnectDelay,
		cfg.Finnhub.PingInterval,
		l,
	)
	return usecase.NewQuoteCollector(stream, book, m, l)
}

// ProvideToolRegistry registers the market tools offered to tool-calling agents.
func ProvideToolRegistry(
	cfg *config.Config,
	c icache.BytesCache,
	quotes repository.QuoteSource,
	book *finnhub.QuoteBook,
	candles repository.CandleSource,
	portfolio repository.PortfolioProvider,
	l *applogger.Logger,
) *tools.Registry {
	r := tools.NewRegistry(tools.WithCache(c, cfg.Tools.CacheTTL), tools.WithLogger(l))
	r.Register(tools.NewPriceTool(quotes, book, cfg.Finnhub.MaxQuoteAge))
	r.Register(tools.NewTechnicalTool(candles, cfg.Tools.DefaultPeriod))
	if portfolio != nil {
		r.Register(tools.NewPortfolioTool(portfolio))
	}
	return r
}

// ProvideAgents builds the active agent table. Agents without a credential are left out.
func ProvideAgents(cfg *config.Config, registry *tools.Registry, l *applogger.Logger) []service.Agent {
	a := cfg.Agents
	var out []service.Agent
	if a.Grok.Enabled() {
		out = append(out, agents.NewGrokAgent(a.Grok, l))
	}
	if a.Gemini.Enabled() {
		out = append(out, agents.NewGeminiAgent(a.Gemini, l))
	}
	if a.Anthropic.Enabled() {
		out = append(out, agents.NewClaudeAgent(a.Anthropic, l))
	}
	if a.Mistral.Enabled() {
		out = append(out, agents.NewMistralAgent(a.Mistral, registry, cfg.Tools.MaxIterations, l))
	}
	if len(out) == 0 {
		l.Warn("no agent credentials configured; every analysis will be HOLD")
	}
	return out
}

// ProvideArbiter returns nil without an OpenAI key; the preliminary decision is then final.
func ProvideArbiter(cfg *config.Config) service.Arbiter {
	if !cfg.Agents.OpenAI.Enabled() {
		return nil
	}
	return agents.NewArbiter(cfg.Agents.OpenAI)
}

func ProvideDispatcher(
	cfg *config.Config,
	agentTable []service.Agent,
	portfolio repository.PortfolioProvider,
	research repository.ContextSource,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Dispatcher {
	opts := []usecase.DispatcherOption{
		usecase.WithDefaultUnits(cfg.Decision.DefaultUnits),
		usecase.WithDispatcherMetrics(m),
		usecase.WithDispatcherLogger(l),
	}
	if portfolio != nil {
		opts = append(opts, usecase.WithPortfolio(portfolio))
	}
	if research != nil {
		opts = append(opts, usecase.WithContextSource(research))
	}
	return usecase.NewDispatcher(agentTable, opts...)
}

func ProvideArbiterStep(cfg *config.Config, arbiter service.Arbiter, quotes repository.QuoteSource, m repository.Metrics, l *applogger.Logger) *usecase.ArbiterStep {
	return usecase.NewArbiterStep(arbiter, quotes, usecase.OrderDefaults{
		Qty:           cfg.Decision.DefaultQty,
		StopLossPct:   cfg.Decision.StopLossPct,
		TakeProfitPct: cfg.Decision.TakeProfitPct,
	}, m, l)
}

func ProvideAnalyzeUseCase(d *usecase.Dispatcher, a *usecase.ArbiterStep, m repository.Metrics, l *applogger.Logger) *usecase.AnalyzeUseCase {
	return usecase.NewAnalyzeUseCase(d, a, m, l)
}

func ProvideDecideUseCase(cfg *config.Config, analyze *usecase.AnalyzeUseCase, publisher repository.SignalPublisher, m repository.Metrics, l *applogger.Logger) *usecase.DecideUseCase {
	return usecase.NewDecideUseCase(analyze, publisher, usecase.GateConfig{
		UnanimousRequired: cfg.Decision.UnanimousRequired,
		MinConfidence:     cfg.Decision.MinConfidence,
		DefaultQty:        cfg.Decision.DefaultQty,
		StopLossPct:       cfg.Decision.StopLossPct,
		TakeProfitPct:     cfg.Decision.TakeProfitPct,
	}, m, l)
}

func ProvidePriceUpdateHandler(cfg *config.Config, analyze *usecase.AnalyzeUseCase, m repository.Metrics, l *applogger.Logger) *usecase.PriceUpdateHandler {
	return usecase.NewPriceUpdateHandler(cfg.Kafka.Consumer.PriceTopic, analyze, cfg.Decision.BackgroundTimeout, m, l)
}

// ProvideKafkaConsumer returns nil unless the bus and the consumer are enabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NewHookChain(pkgkafka.TraceHook(), pkgkafka.LoggingHook(l, time.Second)))
	return consumer, nil
}

// ProvideDecideLimiter creates the per-IP bucket for /decide.
func ProvideDecideLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.RateLimit.DecideCapacity, cfg.RateLimit.DecideRefill)
}

func ProvideDecisionHandler(
	cfg *config.Config,
	analyze *usecase.AnalyzeUseCase,
	decide *usecase.DecideUseCase,
	prices *usecase.PriceUpdateHandler,
	limiter *ratelimit.Limiter,
	publisher repository.SignalPublisher,
	l *applogger.Logger,
) *api.DecisionHandler {
	return api.NewDecisionHandler(analyze, decide, prices, l,
		api.WithDecideLimiter(limiter),
		api.WithRequestTimeout(cfg.Decision.RequestTimeout),
		api.WithBus(publisher != nil),
	)
}

// ProvideApp creates the application server and hands it everything it must stop.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler *api.DecisionHandler,
	prices *usecase.PriceUpdateHandler,
	consumer *pkgkafka.Consumer,
	collector *usecase.QuoteCollector,
	limiter *ratelimit.Limiter,
	toolCache icache.BytesCache,
	publisher repository.SignalPublisher,
	redis *icache.RedisCache,
	ch *pkgch.Client,
) *server.App {
	opts := []server.Option{
		server.WithJanitor("ratelimit", time.Minute, func() { limiter.Prune() }),
	}
	if consumer != nil {
		opts = append(opts, server.WithConsumer(consumer))
	}
	if collector != nil {
		opts = append(opts, server.WithQuoteCollector(collector))
	}
	if ttl, ok := toolCache.(*icache.TTLCache); ok {
		opts = append(opts, server.WithJanitor("tool-cache", time.Minute, func() { ttl.Sweep() }))
	}
	// the collector's final flush goes through the producer, so it closes first
	opts = append(opts, server.WithCloser("log collector", func() error {
		l.RemoveCollector()
		return nil
	}))
	if publisher != nil {
		opts = append(opts, server.WithCloser("signal publisher", publisher.Close))
	}
	if redis != nil {
		opts = append(opts, server.WithCloser("redis", redis.Close))
	}
	if ch != nil {
		opts = append(opts, server.WithCloser("clickhouse", ch.Close))
	}
	return server.New(cfg, l, handler, prices, opts...)
}
