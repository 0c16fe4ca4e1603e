package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dogmaai/magi-decision/internal/domain/models"
	domrepo "github.com/dogmaai/magi-decision/internal/domain/repository"
	domsvc "github.com/dogmaai/magi-decision/internal/domain/service"
	applogger "github.com/dogmaai/magi-decision/pkg/logger"
	pkgmetrics "github.com/dogmaai/magi-decision/pkg/metrics"

	"github.com/shopspring/decimal"
)

// OrderDefaults fills order parameters the arbiter left out.
type OrderDefaults struct {
	Qty           int
	StopLossPct   float64
	TakeProfitPct float64
}

// ArbiterStep escalates the preliminary vote to the arbiter model and applies
// the fallbacks when it cannot answer.
type ArbiterStep struct {
	arbiter domsvc.Arbiter
	quotes  domrepo.QuoteSource
	order   OrderDefaults
	metrics domrepo.Metrics
	logger  *applogger.Logger
}

// NewArbiterStep accepts a nil arbiter (no credential) and a nil quote source.
func NewArbiterStep(arbiter domsvc.Arbiter, quotes domrepo.QuoteSource, order OrderDefaults, metrics domrepo.Metrics, l *applogger.Logger) *ArbiterStep {
	if metrics == nil {
		metrics = pkgmetrics.Nop{}
	}
	if l == nil {
		l = applogger.Nop()
	}
	if order.Qty <= 0 {
		order.Qty = 1
	}
	return &ArbiterStep{arbiter: arbiter, quotes: quotes, order: order, metrics: metrics, logger: l}
}

// Decide never fails:
//   - no arbiter: the preliminary decision as is;
//   - transport or provider failure: preliminary signal and confidence, strength WEAK, error set;
//   - unreadable answer: preliminary signal, strength and confidence with the raw text as reasoning.
//
// Only the failure branch forces WEAK.
func (s *ArbiterStep) Decide(ctx context.Context, in domsvc.ArbiterInput) models.ConsensusDecision {
	pre := in.Preliminary
	if s.arbiter == nil {
		d := PreliminaryDecision(pre)
		s.metrics.RecordDecision(d.FinalSignal, d.Strength, d.Source)
		return d
	}

	started := time.Now()
	got, err := s.arbiter.Synthesize(ctx, in)
	s.metrics.RecordLatency("arbiter", time.Since(started).Seconds())

	var d models.ConsensusDecision
	var unparsed *domsvc.UnparsedError
	switch {
	case errors.As(err, &unparsed):
		s.metrics.RecordError("arbiter_unparsed")
		s.logger.Warn("arbiter answer unreadable", applogger.String("symbol", in.Instrument))
		d = PreliminaryDecision(pre)
		d.Reasoning = unparsed.Raw
	case err != nil:
		s.metrics.RecordError("arbiter")
		s.logger.Error("arbiter failed", applogger.String("symbol", in.Instrument), applogger.Error(err))
		d = PreliminaryDecision(pre)
		d.Strength = models.StrengthWeak
		d.Error = err.Error()
	default:
		d = *got
		if d.RiskWarnings == nil {
			d.RiskWarnings = []string{}
		}
		s.completeOrder(ctx, in.Instrument, &d)
	}

	s.metrics.RecordDecision(d.FinalSignal, d.Strength, d.Source)
	return d
}

// completeOrder derives missing order parameters for a directional decision.
// Stop loss and take profit need a last price and are left empty without one.
func (s *ArbiterStep) completeOrder(ctx context.Context, instrument string, d *models.ConsensusDecision) {
	if d.FinalSignal == models.SignalHold {
		d.OrderParams = nil
		return
	}
	if d.OrderParams == nil {
		d.OrderParams = &models.OrderParams{Symbol: instrument}
	}
	o := d.OrderParams
	o.Side = strings.ToLower(string(d.FinalSignal))
	if o.Qty <= 0 {
		o.Qty = s.order.Qty
	}
	if (o.StopLoss != nil && o.TakeProfit != nil) || s.quotes == nil {
		return
	}
	q, err := s.quotes.GetQuote(ctx, instrument)
	if err != nil || q.Price <= 0 {
		s.logger.Debug("no price for order levels", applogger.String("symbol", instrument), applogger.Error(err))
		return
	}
	stop, take := OrderLevels(decimal.NewFromFloat(q.Price), d.FinalSignal, s.order.StopLossPct, s.order.TakeProfitPct)
	if o.StopLoss == nil {
		o.StopLoss = &stop
	}
	if o.TakeProfit == nil {
		o.TakeProfit = &take
	}
}

// OrderLevels returns stop-loss and take-profit prices around price, rounded to cents.
// Percentages are whole numbers (3 means 3%).
func OrderLevels(price decimal.Decimal, side models.Signal, stopPct, takePct float64) (stop, take decimal.Decimal) {
	hundred := decimal.NewFromInt(100)
	down := decimal.NewFromFloat(stopPct).Div(hundred)
	up := decimal.NewFromFloat(takePct).Div(hundred)
	one := decimal.NewFromInt(1)
	if side == models.SignalSell {
		stop = price.Mul(one.Add(down))
		take = price.Mul(one.Sub(up))
	} else {
		stop = price.Mul(one.Sub(down))
		take = price.Mul(one.Add(up))
	}
	return stop.Round(2), take.Round(2)
}
