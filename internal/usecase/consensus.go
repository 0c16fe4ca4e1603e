package usecase

import (
	"github.com/dogmaai/magi-decision/internal/domain/models"
	domsvc "github.com/dogmaai/magi-decision/internal/domain/service"
)

const (
	// DefaultVoteWeight stands in for a confidence the agent did not report.
	DefaultVoteWeight = 0.5

	StrongRatio         = 0.75
	StrongAvgConfidence = 0.70
	ModerateRatio       = 0.50
)

// ComputeConsensus runs the confidence-weighted vote over judgments that carry no
// error. Ties break BUY over SELL over HOLD. It is pure.
func ComputeConsensus(judgments []models.Judgment) domsvc.Preliminary {
	p := domsvc.Preliminary{
		Decision: models.SignalHold,
		Strength: models.StrengthWeak,
		Weighted: map[models.Signal]float64{
			models.SignalBuy:  0,
			models.SignalHold: 0,
			models.SignalSell: 0,
		},
	}

	var confSum float64
	for _, j := range judgments {
		if j.Failed() || !j.Signal.Valid() {
			continue
		}
		w := j.ConfidenceOr(DefaultVoteWeight)
		p.Votes.Add(j.Signal)
		p.Weighted[j.Signal] += w
		confSum += w
		p.ValidCount++
	}

	var total, top float64
	for _, s := range models.Signals {
		w := p.Weighted[s]
		total += w
		if w > top {
			top = w
			p.Decision = s
		}
	}
	if p.ValidCount == 0 || total == 0 {
		p.Decision = models.SignalHold
		return p
	}

	p.AvgConfidence = confSum / float64(p.ValidCount)
	p.Ratio = top / total
	switch {
	case p.Ratio >= StrongRatio && p.AvgConfidence >= StrongAvgConfidence:
		p.Strength = models.StrengthStrong
	case p.Ratio >= ModerateRatio:
		p.Strength = models.StrengthModerate
	default:
		p.Strength = models.StrengthWeak
	}
	return p
}

// PreliminaryDecision renders the vote as a final decision.
func PreliminaryDecision(p domsvc.Preliminary) models.ConsensusDecision {
	return models.ConsensusDecision{
		FinalSignal:  p.Decision,
		Strength:     p.Strength,
		Confidence:   p.AvgConfidence,
		RiskWarnings: []string{},
		Source:       models.SourcePreliminary,
	}
}
