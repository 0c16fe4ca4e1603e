package usecase

import (
	"errors"
	"testing"

	"github.com/dogmaai/magi-decision/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var gate = GateConfig{UnanimousRequired: true, MinConfidence: 0.7, DefaultQty: 3, StopLossPct: 3, TakeProfitPct: 5}

func TestGateIssuesUnanimousBuy(t *testing.T) {
	r := EvaluateUnanimity("AAPL", []models.Judgment{
		judgment(models.SignalBuy, .8), judgment(models.SignalBuy, .9), judgment(models.SignalBuy, .75), judgment(models.SignalBuy, .7),
	}, gate)

	require.True(t, r.Issued)
	assert.True(t, r.Unanimous)
	assert.Equal(t, models.SignalBuy, r.Action)
	require.NotNil(t, r.Signal)
	assert.Equal(t, "AAPL", r.Signal.Instrument)
	assert.Equal(t, 3, r.Signal.Quantity)
	assert.Equal(t, "4AI unanimous BUY", r.Signal.Reason)
	assert.InDelta(t, 0.7875, r.Signal.Confidence, 1e-9)
	assert.Equal(t, 5.0, r.Signal.TakeProfitPct)
	assert.NotEmpty(t, r.Signal.ID)
}

func TestGateSplitVoteIsNoAction(t *testing.T) {
	r := EvaluateUnanimity("AAPL", []models.Judgment{
		judgment(models.SignalBuy, .9), judgment(models.SignalBuy, .9), judgment(models.SignalSell, .9),
	}, gate)
	assert.False(t, r.Issued)
	assert.Nil(t, r.Signal)
	assert.Equal(t, models.SignalBuy, r.Action)
	assert.Equal(t, "Not unanimous or low confidence: BUY:2 HOLD:0 SELL:1, confidence:0.90", r.Reason)
}

func TestGateCountsFailuresAndMissingConfidenceAsZero(t *testing.T) {
	r := EvaluateUnanimity("AAPL", []models.Judgment{
		judgment(models.SignalSell, 1), {Signal: models.SignalSell},
	}, gate)
	assert.True(t, r.Unanimous)
	assert.InDelta(t, 0.5, r.AvgConfidence, 1e-9)
	assert.False(t, r.Issued)

	failed := models.FailedJudgment("B2", errors.New("timeout"))
	r = EvaluateUnanimity("AAPL", []models.Judgment{judgment(models.SignalBuy, 1), failed}, gate)
	assert.False(t, r.Unanimous)
	assert.Equal(t, models.VoteCounts{Buy: 1, Hold: 1}, r.Votes)
	assert.InDelta(t, 0.5, r.AvgConfidence, 1e-9)
}

func TestGateEmptyAndHold(t *testing.T) {
	r := EvaluateUnanimity("AAPL", nil, gate)
	assert.False(t, r.Unanimous)
	assert.False(t, r.Issued)
	assert.Equal(t, models.SignalHold, r.Action)

	r = EvaluateUnanimity("AAPL", []models.Judgment{judgment(models.SignalHold, 1)}, gate)
	assert.False(t, r.Unanimous)
	assert.False(t, r.Issued)
}

func TestGateWithoutUnanimityRequirement(t *testing.T) {
	relaxed := gate
	relaxed.UnanimousRequired = false
	r := EvaluateUnanimity("AAPL", []models.Judgment{
		judgment(models.SignalSell, .9), judgment(models.SignalSell, .9), judgment(models.SignalBuy, .9),
	}, relaxed)
	require.True(t, r.Issued)
	assert.Equal(t, models.SignalSell, r.Action)
	assert.Equal(t, "3AI majority SELL", r.Reason)

	r = EvaluateUnanimity("AAPL", []models.Judgment{judgment(models.SignalSell, .9), judgment(models.SignalBuy, .9)}, relaxed)
	assert.False(t, r.Issued)
}
