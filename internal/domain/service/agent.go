package service

import (
	"context"

	"github.com/dogmaai/magi-decision/internal/domain/models"
)

// Agent is an independent analysis source. Judge never returns an error:
// failures are folded into a degraded Judgment.
type Agent interface {
	ID() string
	Judge(ctx context.Context, instrument, companyName, context string) models.Judgment
}

// Preliminary is the consensus engine output handed to the arbiter.
type Preliminary struct {
	Decision      models.Signal             `json:"decision"`
	Strength      models.Strength           `json:"strength"`
	AvgConfidence float64                   `json:"avgConfidence"`
	Ratio         float64                   `json:"ratio"`
	Votes         models.VoteCounts         `json:"votes"`
	Weighted      map[models.Signal]float64 `json:"weighted"`
	ValidCount    int                       `json:"validCount"`
}

// ArbiterInput carries everything the synthesis model sees.
type ArbiterInput struct {
	Instrument  string
	Judgments   []models.Judgment
	Preliminary Preliminary
	Portfolio   *models.PortfolioSnapshot
	Context     *models.HistoricalContext
}

// Arbiter synthesizes a final decision. A returned *UnparsedError means the model
// answered but its output could not be read; any other error is an outright failure.
type Arbiter interface {
	Synthesize(ctx context.Context, in ArbiterInput) (*models.ConsensusDecision, error)
}

// UnparsedError reports model output that carried no readable decision.
type UnparsedError struct {
	Raw string
	Err error
}

func (e *UnparsedError) Error() string {
	if e.Err != nil {
		return "unparsed model output: " + e.Err.Error()
	}
	return "unparsed model output"
}

func (e *UnparsedError) Unwrap() error { return e.Err }
