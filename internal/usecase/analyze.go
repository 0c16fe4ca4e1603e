package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/dogmaai/magi-decision/internal/domain/models"
	domrepo "github.com/dogmaai/magi-decision/internal/domain/repository"
	domsvc "github.com/dogmaai/magi-decision/internal/domain/service"
	applogger "github.com/dogmaai/magi-decision/pkg/logger"
	pkgmetrics "github.com/dogmaai/magi-decision/pkg/metrics"
	"github.com/dogmaai/magi-decision/pkg/util"

	"github.com/google/uuid"
)

// AnalyzeUseCase runs dispatch, consensus and arbitration for one instrument.
type AnalyzeUseCase struct {
	dispatcher *Dispatcher
	arbiter    *ArbiterStep
	metrics    domrepo.Metrics
	logger     *applogger.Logger
}

func NewAnalyzeUseCase(d *Dispatcher, a *ArbiterStep, metrics domrepo.Metrics, l *applogger.Logger) *AnalyzeUseCase {
	if metrics == nil {
		metrics = pkgmetrics.Nop{}
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &AnalyzeUseCase{dispatcher: d, arbiter: a, metrics: metrics, logger: l}
}

type AnalyzeParams struct {
	Symbol      string
	CompanyName string
	Context     string
	Units       []string
}

// Units lists what a request without a subset would run.
func (uc *AnalyzeUseCase) Units() []string { return uc.dispatcher.Units() }

// Analyze never fails; degraded collaborators show up as failed judgments or nil fields.
func (uc *AnalyzeUseCase) Analyze(ctx context.Context, p AnalyzeParams) *models.AnalysisResult {
	started := time.Now()
	symbol := strings.ToUpper(strings.TrimSpace(p.Symbol))
	company := strings.TrimSpace(util.FirstNonEmpty(p.CompanyName, symbol))
	res := &models.AnalysisResult{
		RequestID:   uuid.NewString(),
		Instrument:  symbol,
		CompanyName: company,
		Timestamp:   started.UTC(),
	}
	log := uc.logger.With(applogger.String("request_id", res.RequestID), applogger.String("symbol", symbol))
	log.Info("analysis started", applogger.Strings("units", p.Units))

	out := uc.dispatcher.Dispatch(ctx, DispatchInput{
		Instrument:  symbol,
		CompanyName: company,
		Context:     p.Context,
		Units:       p.Units,
	})
	res.Judgments = out.Judgments
	res.PortfolioSnapshot = out.Portfolio
	res.HistoricalContext = out.HistoricalContext

	pre := ComputeConsensus(out.Judgments)
	res.Consensus = uc.arbiter.Decide(ctx, domsvc.ArbiterInput{
		Instrument:  symbol,
		Judgments:   out.Judgments,
		Preliminary: pre,
		Portfolio:   out.Portfolio,
		Context:     out.HistoricalContext,
	})

	res.ExecutionDurationMs = time.Since(started).Milliseconds()
	uc.metrics.RecordLatency("analyze", time.Since(started).Seconds())
	log.Info("analysis finished",
		applogger.String("decision", string(res.Consensus.FinalSignal)),
		applogger.String("strength", string(res.Consensus.Strength)),
		applogger.String("source", res.Consensus.Source),
		applogger.Int64("duration_ms", res.ExecutionDurationMs),
	)
	return res
}

// AnalyzeBatch runs each stock to completion before starting the next.
func (uc *AnalyzeUseCase) AnalyzeBatch(ctx context.Context, stocks []models.StockRef, extra string, units []string) []*models.AnalysisResult {
	results := make([]*models.AnalysisResult, 0, len(stocks))
	for _, s := range stocks {
		if ctx.Err() != nil {
			break
		}
		results = append(results, uc.Analyze(ctx, AnalyzeParams{
			Symbol:      s.Symbol,
			CompanyName: s.CompanyName,
			Context:     extra,
			Units:       units,
		}))
	}
	return results
}
