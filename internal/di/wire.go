//go:build wireinject
// +build wireinject

package di

import (
	"github.com/dogmaai/magi-decision/pkg/config"
	"github.com/dogmaai/magi-decision/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideRedisCache,
		ProvideClickHouseClient,

		// Repositories and market data
		ProvideSignalPublisher,
		ProvideToolCache,
		ProvideYahoo,
		ProvideQuoteSource,
		ProvideCandleSource,
		ProvidePortfolio,
		ProvideContextSource,
		ProvideQuoteBook,
		ProvideQuoteCollector,

		// Agents
		ProvideToolRegistry,
		ProvideAgents,
		ProvideArbiter,

		// Use cases
		ProvideDispatcher,
		ProvideArbiterStep,
		ProvideAnalyzeUseCase,
		ProvideDecideUseCase,
		ProvidePriceUpdateHandler,

		// HTTP
		ProvideDecideLimiter,
		ProvideDecisionHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
