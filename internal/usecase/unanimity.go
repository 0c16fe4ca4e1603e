package usecase

import (
	"fmt"
	"time"

	"github.com/dogmaai/magi-decision/internal/domain/models"

	"github.com/google/uuid"
)

// GateConfig holds the emission rule parameters.
type GateConfig struct {
	UnanimousRequired bool
	MinConfidence     float64
	DefaultQty        int
	StopLossPct       float64
	TakeProfitPct     float64
}

// GateResult is the outcome of EvaluateUnanimity. Signal is nil unless Issued.
type GateResult struct {
	Issued        bool
	Unanimous     bool
	Action        models.Signal
	Votes         models.VoteCounts
	AvgConfidence float64
	Reason        string
	Signal        *models.TradeSignal
}

// EvaluateUnanimity counts every judgment, failed ones included. Missing and
// failed confidences count as 0 in the average.
func EvaluateUnanimity(instrument string, judgments []models.Judgment, cfg GateConfig) GateResult {
	r := GateResult{Action: models.SignalHold}
	n := len(judgments)

	var confSum float64
	for _, j := range judgments {
		r.Votes.Add(j.Signal)
		if !j.Failed() {
			confSum += j.ConfidenceOr(0)
		}
	}
	if n > 0 {
		r.AvgConfidence = confSum / float64(n)
	}
	r.Unanimous = n > 0 && (r.Votes.Buy == n || r.Votes.Sell == n)
	switch {
	case r.Votes.Buy > r.Votes.Sell:
		r.Action = models.SignalBuy
	case r.Votes.Sell > r.Votes.Buy:
		r.Action = models.SignalSell
	}

	agreed := r.Unanimous || !cfg.UnanimousRequired
	if !agreed || r.AvgConfidence < cfg.MinConfidence || r.Action == models.SignalHold {
		r.Reason = fmt.Sprintf("Not unanimous or low confidence: BUY:%d HOLD:%d SELL:%d, confidence:%.2f",
			r.Votes.Buy, r.Votes.Hold, r.Votes.Sell, r.AvgConfidence)
		return r
	}

	qty := cfg.DefaultQty
	if qty <= 0 {
		qty = 1
	}
	r.Issued = true
	r.Reason = fmt.Sprintf("%dAI unanimous %s", n, r.Action)
	if !r.Unanimous {
		r.Reason = fmt.Sprintf("%dAI majority %s", n, r.Action)
	}
	r.Signal = &models.TradeSignal{
		ID:            uuid.NewString(),
		Instrument:    instrument,
		Action:        r.Action,
		Quantity:      qty,
		Confidence:    r.AvgConfidence,
		Reason:        r.Reason,
		StopLossPct:   cfg.StopLossPct,
		TakeProfitPct: cfg.TakeProfitPct,
		Timestamp:     time.Now().UTC(),
	}
	return r
}
