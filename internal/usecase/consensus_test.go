package usecase

import (
	"errors"
	"testing"

	"github.com/dogmaai/magi-decision/internal/domain/models"

	"github.com/stretchr/testify/assert"
)

func TestComputeConsensus(t *testing.T) {
	tests := []struct {
		name      string
		in        []models.Judgment
		decision  models.Signal
		strength  models.Strength
		avgConf   float64
		ratio     float64
		validSeen int
	}{
		{
			name:     "strong buy",
			in:       []models.Judgment{judgment(models.SignalBuy, .8), judgment(models.SignalBuy, .9), judgment(models.SignalBuy, .7)},
			decision: models.SignalBuy, strength: models.StrengthStrong, avgConf: 0.8, ratio: 1, validSeen: 3,
		},
		{
			name:     "three-way tie prefers buy",
			in:       []models.Judgment{judgment(models.SignalBuy, .6), judgment(models.SignalSell, .6), judgment(models.SignalHold, .5)},
			decision: models.SignalBuy, strength: models.StrengthWeak, avgConf: 1.7 / 3, ratio: 0.6 / 1.7, validSeen: 3,
		},
		{
			name:     "sell beats hold on tie",
			in:       []models.Judgment{judgment(models.SignalSell, .5), judgment(models.SignalHold, .5)},
			decision: models.SignalSell, strength: models.StrengthModerate, avgConf: 0.5, ratio: 0.5, validSeen: 2,
		},
		{
			name: "missing confidence weighs 0.5 and failures are ignored",
			in: []models.Judgment{
				{Signal: models.SignalSell},
				models.FailedJudgment("B2", errors.New("x")),
				judgment(models.SignalBuy, 0.2),
			},
			decision: models.SignalSell, strength: models.StrengthModerate, avgConf: 0.35, ratio: 0.5 / 0.7, validSeen: 2,
		},
		{
			name:     "high ratio but low confidence is moderate",
			in:       []models.Judgment{judgment(models.SignalBuy, .6), judgment(models.SignalBuy, .6)},
			decision: models.SignalBuy, strength: models.StrengthModerate, avgConf: 0.6, ratio: 1, validSeen: 2,
		},
		{
			name:     "empty",
			in:       nil,
			decision: models.SignalHold, strength: models.StrengthWeak,
		},
		{
			name:     "zero weight",
			in:       []models.Judgment{judgment(models.SignalBuy, 0), judgment(models.SignalSell, 0)},
			decision: models.SignalHold, strength: models.StrengthWeak, validSeen: 2,
		},
		{
			name:     "invalid label is not a vote",
			in:       []models.Judgment{{Signal: "STRONG_BUY", Confidence: models.Confidence(1)}},
			decision: models.SignalHold, strength: models.StrengthWeak,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ComputeConsensus(tt.in)
			assert.Equal(t, tt.decision, p.Decision)
			assert.Equal(t, tt.strength, p.Strength)
			assert.InDelta(t, tt.avgConf, p.AvgConfidence, 1e-9)
			assert.InDelta(t, tt.ratio, p.Ratio, 1e-9)
			assert.Equal(t, tt.validSeen, p.ValidCount)
		})
	}
}

func TestComputeConsensusIsIdempotent(t *testing.T) {
	in := []models.Judgment{judgment(models.SignalBuy, .7), judgment(models.SignalSell, .9), {Signal: models.SignalBuy}}
	a := ComputeConsensus(in)
	b := ComputeConsensus(in)
	assert.Equal(t, a, b)
	assert.Equal(t, models.VoteCounts{Buy: 2, Sell: 1}, a.Votes)
	assert.InDelta(t, 1.2, a.Weighted[models.SignalBuy], 1e-9)
	assert.Greater(t, a.Ratio, 0.0)
	assert.LessOrEqual(t, a.Ratio, 1.0)
}
