package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle represents a daily OHLCV record.
type Candle struct {
	Bucket time.Time
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Quote is a point-in-time price snapshot.
type Quote struct {
	Symbol           string    `json:"symbol"`
	Name             string    `json:"name,omitempty"`
	Price            float64   `json:"price"`
	PreviousClose    float64   `json:"previousClose"`
	Change           float64   `json:"change"`
	ChangePercent    float64   `json:"changePercent"`
	Volume           int64     `json:"volume"`
	MarketCap        float64   `json:"marketCap,omitempty"`
	FiftyTwoWeekHigh float64   `json:"fiftyTwoWeekHigh,omitempty"`
	FiftyTwoWeekLow  float64   `json:"fiftyTwoWeekLow,omitempty"`
	Source           string    `json:"source"`
	Timestamp        time.Time `json:"timestamp"`
}

// Trade is a single live print from a streaming feed.
type Trade struct {
	Symbol    string
	Price     float64
	Volume    float64
	Timestamp time.Time
}

// Account is the brokerage cash view.
type Account struct {
	Cash           decimal.Decimal `json:"cash"`
	PortfolioValue decimal.Decimal `json:"portfolioValue"`
	Equity         decimal.Decimal `json:"equity"`
	BuyingPower    decimal.Decimal `json:"buyingPower"`
}

type Position struct {
	Symbol        string          `json:"symbol"`
	Qty           decimal.Decimal `json:"qty"`
	AvgEntryPrice decimal.Decimal `json:"avgEntryPrice"`
	CurrentPrice  decimal.Decimal `json:"currentPrice"`
	UnrealizedPL  decimal.Decimal `json:"unrealizedPL"`
	MarketValue   decimal.Decimal `json:"marketValue"`
}

// PortfolioSnapshot is the best-effort account view given to the arbiter.
type PortfolioSnapshot struct {
	Account        Account    `json:"account"`
	Positions      []Position `json:"positions"`
	TotalPositions int        `json:"totalPositions"`
}

// Document is one retrieved research document.
type Document struct {
	ID      string  `json:"id,omitempty"`
	Title   string  `json:"title,omitempty"`
	Content string  `json:"content,omitempty"`
	Source  string  `json:"source,omitempty"`
	Date    string  `json:"date,omitempty"`
	Score   float64 `json:"score,omitempty"`
}

// HistoricalContext is the non-voting retrieval output attached to a result.
type HistoricalContext struct {
	Documents     []Document `json:"documents"`
	DocumentCount int        `json:"documentCount"`
	Summary       string     `json:"summary"`
}
