package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Decision sources.
const (
	SourceArbiter     = "arbiter"
	SourcePreliminary = "preliminary"
)

// OrderParams is the order proposed alongside a final decision.
type OrderParams struct {
	Symbol     string           `json:"symbol"`
	Qty        int              `json:"qty"`
	Side       string           `json:"side"` // buy | sell
	StopLoss   *decimal.Decimal `json:"stop_loss,omitempty"`
	TakeProfit *decimal.Decimal `json:"take_profit,omitempty"`
}

// ConsensusDecision is the output of the consensus engine and the arbiter.
type ConsensusDecision struct {
	FinalSignal  Signal       `json:"final_decision"`
	Strength     Strength     `json:"consensus_strength"`
	Confidence   float64      `json:"confidence"`
	OrderParams  *OrderParams `json:"order_params,omitempty"`
	RiskWarnings []string     `json:"risk_warnings"`
	Reasoning    string       `json:"reasoning,omitempty"`
	Error        string       `json:"error,omitempty"`
	Source       string       `json:"source"`
}

// AnalysisResult is the full pipeline output for one instrument.
type AnalysisResult struct {
	RequestID           string             `json:"requestId"`
	Instrument          string             `json:"symbol"`
	CompanyName         string             `json:"companyName"`
	Timestamp           time.Time          `json:"timestamp"`
	ExecutionDurationMs int64              `json:"executionTimeMs"`
	Judgments           []Judgment         `json:"judgments"`
	HistoricalContext   *HistoricalContext `json:"historicalContext"`
	PortfolioSnapshot   *PortfolioSnapshot `json:"portfolioInfo"`
	Consensus           ConsensusDecision  `json:"consensus"`
}

// TradeSignal is the only entity that leaves the service with real-world effect.
type TradeSignal struct {
	ID            string    `json:"id"`
	Instrument    string    `json:"symbol"`
	Action        Signal    `json:"action"`
	Quantity      int       `json:"qty"`
	Confidence    float64   `json:"confidence"`
	Reason        string    `json:"reason"`
	StopLossPct   float64   `json:"stop_loss_pct,omitempty"`
	TakeProfitPct float64   `json:"take_profit_pct,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
