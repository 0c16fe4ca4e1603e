package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/dogmaai/magi-decision/internal/domain/models"
	domsvc "github.com/dogmaai/magi-decision/internal/domain/service"
	"github.com/dogmaai/magi-decision/internal/services/agents"
	"github.com/dogmaai/magi-decision/internal/services/llm"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func arbiterInput() domsvc.ArbiterInput {
	return domsvc.ArbiterInput{
		Instrument: "AAPL",
		Preliminary: domsvc.Preliminary{
			Decision:      models.SignalBuy,
			Strength:      models.StrengthModerate,
			AvgConfidence: 0.66,
		},
	}
}

var defaults = OrderDefaults{Qty: 2, StopLossPct: 3, TakeProfitPct: 5}

func TestArbiterStepWithoutArbiterReturnsPreliminary(t *testing.T) {
	d := NewArbiterStep(nil, nil, defaults, nil, nil).Decide(context.Background(), arbiterInput())
	assert.Equal(t, models.SignalBuy, d.FinalSignal)
	assert.Equal(t, models.StrengthModerate, d.Strength)
	assert.Equal(t, 0.66, d.Confidence)
	assert.Equal(t, models.SourcePreliminary, d.Source)
	assert.Empty(t, d.Error)
	assert.Nil(t, d.OrderParams)
}

func TestArbiterStepTransportFailureForcesWeak(t *testing.T) {
	step := NewArbiterStep(&fakeArbiter{err: errors.New("arbiter: 502")}, nil, defaults, nil, nil)
	d := step.Decide(context.Background(), arbiterInput())
	assert.Equal(t, models.SignalBuy, d.FinalSignal)
	assert.Equal(t, models.StrengthWeak, d.Strength)
	assert.Equal(t, 0.66, d.Confidence)
	assert.Equal(t, "arbiter: 502", d.Error)
	assert.Equal(t, models.SourcePreliminary, d.Source)
}

func TestArbiterStepUnparsedKeepsStrength(t *testing.T) {
	step := NewArbiterStep(&fakeArbiter{err: &domsvc.UnparsedError{Raw: "I think buy"}}, nil, defaults, nil, nil)
	d := step.Decide(context.Background(), arbiterInput())
	assert.Equal(t, models.StrengthModerate, d.Strength)
	assert.Equal(t, "I think buy", d.Reasoning)
	assert.Empty(t, d.Error)
}

type cannedModel string

func (m cannedModel) Chat(context.Context, llm.Request) (*llm.Response, error) {
	return &llm.Response{Message: llm.Message{Role: llm.RoleAssistant, Content: string(m)}}, nil
}

func TestArbiterStepMalformedAnswerForcesWeak(t *testing.T) {
	arb := agents.NewArbiterWithModel(cannedModel(`Decision: {"final_decision": "SELL", "confidence": 0.9,}`))
	in := arbiterInput()
	in.Preliminary.Strength = models.StrengthStrong

	d := NewArbiterStep(arb, nil, defaults, nil, nil).Decide(context.Background(), in)
	assert.Equal(t, models.SignalBuy, d.FinalSignal)
	assert.Equal(t, models.StrengthWeak, d.Strength)
	assert.NotEmpty(t, d.Error)
	assert.Equal(t, models.SourcePreliminary, d.Source)
}

func TestArbiterStepDerivesOrderParams(t *testing.T) {
	arb := &fakeArbiter{d: &models.ConsensusDecision{
		FinalSignal: models.SignalBuy,
		Strength:    models.StrengthStrong,
		Confidence:  0.9,
		Source:      models.SourceArbiter,
	}}
	step := NewArbiterStep(arb, fakeQuotes{price: 200}, defaults, nil, nil)
	d := step.Decide(context.Background(), arbiterInput())

	require.NotNil(t, d.OrderParams)
	assert.Equal(t, "AAPL", d.OrderParams.Symbol)
	assert.Equal(t, 2, d.OrderParams.Qty)
	assert.Equal(t, "buy", d.OrderParams.Side)
	assert.Equal(t, "194", d.OrderParams.StopLoss.String())
	assert.Equal(t, "210", d.OrderParams.TakeProfit.String())
	assert.NotNil(t, d.RiskWarnings)
	assert.Equal(t, "AAPL", arb.seen.Instrument)
}

func TestArbiterStepKeepsArbiterLevelsAndDropsHoldOrders(t *testing.T) {
	stop := decimal.RequireFromString("99.5")
	arb := &fakeArbiter{d: &models.ConsensusDecision{
		FinalSignal: models.SignalSell,
		Source:      models.SourceArbiter,
		OrderParams: &models.OrderParams{Symbol: "AAPL", Qty: 7, StopLoss: &stop},
	}}
	d := NewArbiterStep(arb, fakeQuotes{price: 100}, defaults, nil, nil).Decide(context.Background(), arbiterInput())
	require.NotNil(t, d.OrderParams)
	assert.Equal(t, 7, d.OrderParams.Qty)
	assert.Equal(t, "sell", d.OrderParams.Side)
	assert.Equal(t, "99.5", d.OrderParams.StopLoss.String())
	assert.Equal(t, "95", d.OrderParams.TakeProfit.String())

	arb.d = &models.ConsensusDecision{FinalSignal: models.SignalHold, OrderParams: &models.OrderParams{Qty: 1}}
	d = NewArbiterStep(arb, nil, defaults, nil, nil).Decide(context.Background(), arbiterInput())
	assert.Nil(t, d.OrderParams)
}

func TestOrderLevelsRoundToCents(t *testing.T) {
	stop, take := OrderLevels(decimal.RequireFromString("123.456"), models.SignalBuy, 3, 5)
	assert.Equal(t, "119.75", stop.String())
	assert.Equal(t, "129.63", take.String())

	stop, take = OrderLevels(decimal.RequireFromString("50"), models.SignalSell, 2.5, 10)
	assert.Equal(t, "51.25", stop.String())
	assert.Equal(t, "45", take.String())
}
