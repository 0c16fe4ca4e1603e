package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dogmaai/magi-decision/internal/domain/models"
	"github.com/dogmaai/magi-decision/internal/domain/repository"
	"github.com/dogmaai/magi-decision/internal/services/indicators"
	"github.com/dogmaai/magi-decision/internal/services/llm"
)

// LiveQuotes returns the most recent streamed trade for a symbol.
type LiveQuotes interface {
	Last(symbol string) (models.Trade, bool)
}

type symbolArgs struct {
	Symbol string `json:"symbol"`
	Period string `json:"period"`
}

func (a *symbolArgs) normalize() error {
	a.Symbol = strings.ToUpper(strings.TrimSpace(a.Symbol))
	if a.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrBadArguments)
	}
	return nil
}

// PriceTool implements get_stock_price.
type PriceTool struct {
	quotes repository.QuoteSource
	live   LiveQuotes
	maxAge time.Duration
	now    func() time.Time
}

// NewPriceTool builds the price tool. live may be nil.
func NewPriceTool(quotes repository.QuoteSource, live LiveQuotes, maxAge time.Duration) *PriceTool {
	return &PriceTool{quotes: quotes, live: live, maxAge: maxAge, now: time.Now}
}

func (t *PriceTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "get_stock_price",
		Description: "Get the current price, volume and daily change for a ticker",
		Parameters: json.RawMessage(`{"type":"object","properties":{` +
			`"symbol":{"type":"string","description":"Ticker symbol, e.g. AAPL"}},"required":["symbol"]}`),
	}
}

func (t *PriceTool) Call(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args symbolArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if err := args.normalize(); err != nil {
		return nil, err
	}
	q, err := t.quotes.GetQuote(ctx, args.Symbol)
	if err != nil {
		return nil, fmt.Errorf("quote %s: %w", args.Symbol, err)
	}
	out := *q
	if t.live != nil {
		if tr, ok := t.live.Last(args.Symbol); ok && tr.Price > 0 && t.now().Sub(tr.Timestamp) <= t.maxAge && tr.Timestamp.After(out.Timestamp) {
			out.Price = tr.Price
			out.Timestamp = tr.Timestamp
			out.Source = "finnhub"
			if out.PreviousClose > 0 {
				out.Change = out.Price - out.PreviousClose
				out.ChangePercent = out.Change / out.PreviousClose * 100
			}
		}
	}
	return out, nil
}

// TechnicalTool implements get_technical_indicators.
type TechnicalTool struct {
	candles       repository.CandleSource
	defaultPeriod repository.Period
}

func NewTechnicalTool(candles repository.CandleSource, defaultPeriod string) *TechnicalTool {
	return &TechnicalTool{candles: candles, defaultPeriod: repository.NormalizePeriod(defaultPeriod)}
}

func (t *TechnicalTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "get_technical_indicators",
		Description: "Compute RSI, MACD, moving averages and Bollinger bands from daily closes",
		Parameters: json.RawMessage(`{"type":"object","properties":{` +
			`"symbol":{"type":"string","description":"Ticker symbol"},` +
			`"period":{"type":"string","enum":["1mo","3mo","6mo","1y"],"description":"History window, default 3mo"}},` +
			`"required":["symbol"]}`),
	}
}

func (t *TechnicalTool) Call(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args symbolArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if err := args.normalize(); err != nil {
		return nil, err
	}
	period := t.defaultPeriod
	if args.Period != "" {
		period = repository.Period(args.Period)
		if !repository.IsValidPeriod(period) {
			return nil, fmt.Errorf("%w: unsupported period %q", ErrBadArguments, args.Period)
		}
	}

	candles, err := t.candles.GetDailyCandles(ctx, args.Symbol, period)
	if err != nil {
		return nil, fmt.Errorf("candles %s: %w", args.Symbol, err)
	}
	report, err := indicators.Evaluate(args.Symbol, candles)
	if err != nil {
		return nil, err
	}
	return report, nil
}

// PortfolioTool implements get_portfolio_position.
type PortfolioTool struct {
	portfolio repository.PortfolioProvider
}

func NewPortfolioTool(p repository.PortfolioProvider) *PortfolioTool {
	return &PortfolioTool{portfolio: p}
}

func (t *PortfolioTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "get_portfolio_position",
		Description: "Get current brokerage positions and balances; omit symbol for the whole portfolio",
		Parameters: json.RawMessage(`{"type":"object","properties":{` +
			`"symbol":{"type":"string","description":"Single ticker, omit for all positions"}}}`),
	}
}

// NoCache keeps account data out of the result cache.
func (t *PortfolioTool) NoCache() bool { return true }

type positionsResult struct {
	Positions      []models.Position `json:"positions"`
	TotalPositions int               `json:"totalPositions"`
}

func (t *PortfolioTool) Call(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args symbolArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	symbol := strings.ToUpper(strings.TrimSpace(args.Symbol))
	if symbol == "" {
		snap, err := t.portfolio.Snapshot(ctx)
		if err != nil {
			return nil, fmt.Errorf("portfolio snapshot: %w", err)
		}
		return snap, nil
	}
	positions, err := t.portfolio.Positions(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("positions %s: %w", symbol, err)
	}
	if positions == nil {
		positions = []models.Position{}
	}
	return positionsResult{Positions: positions, TotalPositions: len(positions)}, nil
}
