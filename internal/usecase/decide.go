package usecase

import (
	"context"
	"strings"

	"github.com/dogmaai/magi-decision/internal/domain/models"
	domrepo "github.com/dogmaai/magi-decision/internal/domain/repository"
	applogger "github.com/dogmaai/magi-decision/pkg/logger"
	pkgmetrics "github.com/dogmaai/magi-decision/pkg/metrics"
)

// Decision outcomes.
const (
	DecisionSignalIssued = "signal_issued"
	DecisionNoAction     = "no_action"
)

// DecideResult is the /decide response body. Fields are set per outcome.
type DecideResult struct {
	Decision      string                 `json:"decision"`
	Symbol        string                 `json:"symbol,omitempty"`
	Action        models.Signal          `json:"action,omitempty"`
	Signal        *models.TradeSignal    `json:"signal,omitempty"`
	Reason        string                 `json:"reason,omitempty"`
	Votes         models.VoteCounts      `json:"votes"`
	AvgConfidence *float64               `json:"avgConfidence,omitempty"`
	Analysis      *models.AnalysisResult `json:"-"`
}

// DecideUseCase runs an analysis, applies the gate and publishes issued signals.
type DecideUseCase struct {
	analyze   *AnalyzeUseCase
	publisher domrepo.SignalPublisher
	gate      GateConfig
	metrics   domrepo.Metrics
	logger    *applogger.Logger
}

// NewDecideUseCase accepts a nil publisher; issued signals are then only logged.
func NewDecideUseCase(analyze *AnalyzeUseCase, publisher domrepo.SignalPublisher, gate GateConfig, metrics domrepo.Metrics, l *applogger.Logger) *DecideUseCase {
	if metrics == nil {
		metrics = pkgmetrics.Nop{}
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &DecideUseCase{analyze: analyze, publisher: publisher, gate: gate, metrics: metrics, logger: l}
}

func (uc *DecideUseCase) Gate() GateConfig { return uc.gate }

// Decide never fails. A publish failure is logged and the signal is still reported.
func (uc *DecideUseCase) Decide(ctx context.Context, symbol string) *DecideResult {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	res := uc.analyze.Analyze(ctx, AnalyzeParams{Symbol: symbol})
	g := EvaluateUnanimity(symbol, res.Judgments, uc.gate)
	log := uc.logger.With(applogger.String("request_id", res.RequestID), applogger.String("symbol", symbol))

	if !g.Issued {
		avg := g.AvgConfidence
		log.Info("no action", applogger.String("reason", g.Reason))
		return &DecideResult{
			Decision:      DecisionNoAction,
			Reason:        g.Reason,
			Votes:         g.Votes,
			AvgConfidence: &avg,
			Analysis:      res,
		}
	}

	uc.metrics.RecordSignalIssued(symbol, g.Action)
	if uc.publisher != nil {
		if err := uc.publisher.PublishSignal(ctx, g.Signal); err != nil {
			uc.metrics.RecordError("publish")
			log.Error("publish trade signal failed", applogger.String("signal_id", g.Signal.ID), applogger.Error(err))
		} else {
			log.Info("trade signal published", applogger.String("signal_id", g.Signal.ID), applogger.String("action", string(g.Action)))
		}
	} else {
		log.Warn("trade signal not published: no bus configured", applogger.String("signal_id", g.Signal.ID))
	}

	return &DecideResult{
		Decision: DecisionSignalIssued,
		Symbol:   symbol,
		Action:   g.Action,
		Signal:   g.Signal,
		Votes:    g.Votes,
		Analysis: res,
	}
}
