package repository

import (
	"context"

	"github.com/dogmaai/magi-decision/internal/domain/models"
)

// SignalPublisher delivers issued trade signals to the message bus.
type SignalPublisher interface {
	PublishSignal(ctx context.Context, s *models.TradeSignal) error
	Close() error
}

// PortfolioProvider reads the brokerage account.
type PortfolioProvider interface {
	Snapshot(ctx context.Context) (*models.PortfolioSnapshot, error)
	Positions(ctx context.Context, symbol string) ([]models.Position, error)
}

// CandleSource provides daily history for indicator computation.
type CandleSource interface {
	GetDailyCandles(ctx context.Context, symbol string, period Period) ([]models.Candle, error)
}

// QuoteSource provides the latest quote for a symbol.
type QuoteSource interface {
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
}

// ContextSource retrieves non-voting research documents.
type ContextSource interface {
	HistoricalContext(ctx context.Context, symbol, companyName string) (*models.HistoricalContext, error)
}

type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Trade, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Metrics records pipeline observations.
type Metrics interface {
	RecordJudgment(unit string, signal models.Signal, failed bool)
	RecordDecision(decision models.Signal, strength models.Strength, source string)
	RecordSignalIssued(symbol string, action models.Signal)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
