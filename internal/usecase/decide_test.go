package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/dogmaai/magi-decision/internal/domain/models"
	domsvc "github.com/dogmaai/magi-decision/internal/domain/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAnalyze(agents ...domsvc.Agent) *AnalyzeUseCase {
	d := NewDispatcher(agents, WithContextSource(&fakeResearch{}), WithPortfolio(&fakePortfolio{snap: &models.PortfolioSnapshot{}}))
	return NewAnalyzeUseCase(d, NewArbiterStep(nil, nil, defaults, nil, nil), nil, nil)
}

func TestAnalyzeBuildsResult(t *testing.T) {
	uc := newAnalyze(vote("B2", models.SignalBuy, .9), vote("R4", models.SignalBuy, .8))
	res := uc.Analyze(context.Background(), AnalyzeParams{Symbol: " aapl "})

	assert.Equal(t, "AAPL", res.Instrument)
	assert.Equal(t, "AAPL", res.CompanyName)
	assert.Len(t, res.RequestID, 36)
	assert.Len(t, res.Judgments, 2)
	assert.NotNil(t, res.HistoricalContext)
	assert.NotNil(t, res.PortfolioSnapshot)
	assert.Equal(t, models.SignalBuy, res.Consensus.FinalSignal)
	assert.Equal(t, models.StrengthStrong, res.Consensus.Strength)
}

func TestAnalyzeBatchIsSequentialAndOrdered(t *testing.T) {
	uc := newAnalyze(vote("B2", models.SignalSell, .9))
	res := uc.AnalyzeBatch(context.Background(), []models.StockRef{{Symbol: "AAPL"}, {Symbol: "MSFT", CompanyName: "Microsoft"}}, "", nil)
	require.Len(t, res, 2)
	assert.Equal(t, "AAPL", res[0].Instrument)
	assert.Equal(t, "Microsoft", res[1].CompanyName)
	assert.NotEqual(t, res[0].RequestID, res[1].RequestID)
}

func TestDecidePublishesUnanimousSignal(t *testing.T) {
	pub := &fakePublisher{}
	uc := NewDecideUseCase(newAnalyze(vote("B2", models.SignalBuy, .9), vote("R4", models.SignalBuy, .8)), pub, gate, nil, nil)

	r := uc.Decide(context.Background(), "aapl")
	assert.Equal(t, DecisionSignalIssued, r.Decision)
	assert.Equal(t, "AAPL", r.Symbol)
	assert.Equal(t, models.SignalBuy, r.Action)
	require.Len(t, pub.sent, 1)
	assert.Equal(t, r.Signal, pub.sent[0])
	assert.Equal(t, models.VoteCounts{Buy: 2}, r.Votes)
	assert.Nil(t, r.AvgConfidence)
}

func TestDecidePublishFailureStillReportsSignal(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	uc := NewDecideUseCase(newAnalyze(vote("B2", models.SignalSell, .9)), pub, gate, nil, nil)
	r := uc.Decide(context.Background(), "AAPL")
	assert.Equal(t, DecisionSignalIssued, r.Decision)
	assert.Empty(t, pub.sent)
}

func TestDecideNoAction(t *testing.T) {
	pub := &fakePublisher{}
	uc := NewDecideUseCase(newAnalyze(vote("B2", models.SignalBuy, .9), vote("R4", models.SignalHold, .9)), pub, gate, nil, nil)
	r := uc.Decide(context.Background(), "AAPL")
	assert.Equal(t, DecisionNoAction, r.Decision)
	require.NotNil(t, r.AvgConfidence)
	assert.InDelta(t, 0.9, *r.AvgConfidence, 1e-9)
	assert.Contains(t, r.Reason, "BUY:1 HOLD:1 SELL:0")
	assert.Empty(t, pub.sent)
}

func TestDecodePriceUpdate(t *testing.T) {
	u, err := DecodePriceUpdate([]byte(`{"symbol":" msft ","price":410.5}`))
	require.NoError(t, err)
	assert.Equal(t, "MSFT", u.Symbol)
	assert.Equal(t, 410.5, u.Price)

	data := base64.StdEncoding.EncodeToString([]byte(`{"symbol":"TSLA"}`))
	u, err = DecodePriceUpdate([]byte(`{"message":{"data":"` + data + `"}}`))
	require.NoError(t, err)
	assert.Equal(t, "TSLA", u.Symbol)

	_, err = DecodePriceUpdate([]byte(`{"price":1}`))
	assert.ErrorIs(t, err, ErrNoSymbol)
	_, err = DecodePriceUpdate([]byte(`nope`))
	assert.Error(t, err)
}

func TestPriceUpdateHandlerAcksBeforeAnalysis(t *testing.T) {
	slow := &fakeAgent{id: "B2", sig: models.SignalBuy, delay: 200 * time.Millisecond}
	h := NewPriceUpdateHandler("price-updates", newAnalyze(slow), time.Minute, nil, nil)
	assert.Equal(t, "price-updates", h.Topic())

	started := time.Now()
	require.NoError(t, h.Handle(context.Background(), []byte(`{"symbol":"AAPL"}`)))
	h.HandlePush(models.PushEnvelope{})
	assert.Less(t, time.Since(started), 100*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, h.Wait(ctx))

	assert.NoError(t, h.Handle(context.Background(), []byte(`garbage`)))
}
