package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dogmaai/magi-decision/internal/domain/models"
	domsvc "github.com/dogmaai/magi-decision/internal/domain/service"
)

type fakeAgent struct {
	id    string
	sig   models.Signal
	conf  *float64
	delay time.Duration
	panic bool
	err   string
}

func (a *fakeAgent) ID() string { return a.id }

func (a *fakeAgent) Judge(ctx context.Context, _, _, _ string) models.Judgment {
	if a.panic {
		panic("boom")
	}
	if a.delay > 0 {
		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
			return models.FailedJudgment("wrong-id", ctx.Err())
		}
	}
	if a.err != "" {
		return models.FailedJudgment("wrong-id", errors.New(a.err))
	}
	return models.Judgment{UnitID: "wrong-id", Signal: a.sig, Confidence: a.conf}
}

func vote(id string, s models.Signal, c float64) *fakeAgent {
	return &fakeAgent{id: id, sig: s, conf: models.Confidence(c)}
}

func judgment(s models.Signal, c float64) models.Judgment {
	return models.Judgment{Signal: s, Confidence: models.Confidence(c)}
}

type fakePortfolio struct {
	snap *models.PortfolioSnapshot
	err  error
}

func (p *fakePortfolio) Snapshot(context.Context) (*models.PortfolioSnapshot, error) {
	return p.snap, p.err
}

func (p *fakePortfolio) Positions(context.Context, string) ([]models.Position, error) {
	return nil, p.err
}

type fakeResearch struct {
	calls int
	err   error
	mu    sync.Mutex
}

func (r *fakeResearch) HistoricalContext(_ context.Context, symbol, _ string) (*models.HistoricalContext, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return &models.HistoricalContext{
		Documents:     []models.Document{{ID: "1", Title: symbol + " news"}},
		DocumentCount: 1,
		Summary:       "Found 1 relevant documents.",
	}, nil
}

type fakeArbiter struct {
	d    *models.ConsensusDecision
	err  error
	seen domsvc.ArbiterInput
}

func (a *fakeArbiter) Synthesize(_ context.Context, in domsvc.ArbiterInput) (*models.ConsensusDecision, error) {
	a.seen = in
	return a.d, a.err
}

type fakeQuotes struct{ price float64 }

func (q fakeQuotes) GetQuote(_ context.Context, symbol string) (*models.Quote, error) {
	if q.price == 0 {
		return nil, errors.New("no quote")
	}
	return &models.Quote{Symbol: symbol, Price: q.price}, nil
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []*models.TradeSignal
	err  error
}

func (p *fakePublisher) PublishSignal(_ context.Context, s *models.TradeSignal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, s)
	return nil
}

func (p *fakePublisher) Close() error { return nil }
