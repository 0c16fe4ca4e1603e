package agents

import (
	"encoding/json"
	"time"

	"github.com/dogmaai/magi-decision/internal/domain/models"
	"github.com/dogmaai/magi-decision/internal/services/extract"
	"github.com/dogmaai/magi-decision/pkg/util"
)

const (
	// UnparsedConfidence is reported when the model answered but no verdict could be read.
	UnparsedConfidence = 0.5
	// maxRawReasoning bounds the raw text kept on the unparsed branch, in runes.
	maxRawReasoning = 500
)

// verdict is the object each voting unit is asked to return.
type verdict struct {
	Unit       string          `json:"unit"`
	Signal     flexString      `json:"signal"`
	Confidence flexFloat       `json:"confidence"`
	Analysis   json.RawMessage `json:"analysis"`
	Reasoning  flexString      `json:"reasoning"`
}

// Interpret turns raw model output into a Judgment for unitID. Output without a
// readable object becomes HOLD at UnparsedConfidence with the raw text as reasoning.
func Interpret(unitID, text string, started time.Time) models.Judgment {
	j := models.Judgment{
		UnitID:     unitID,
		Signal:     models.SignalHold,
		Timestamp:  time.Now().UTC(),
		DurationMs: time.Since(started).Milliseconds(),
	}

	var v verdict
	if res := extract.Object(text, &v); !res.Parsed {
		j.Confidence = models.Confidence(UnparsedConfidence)
		j.Reasoning = util.Truncate(text, maxRawReasoning)
		return j
	}

	j.Signal, _ = models.ParseSignal(string(v.Signal))
	if c := v.Confidence.ptr(); c != nil {
		j.Confidence = models.Confidence(*c)
	}
	if len(v.Analysis) > 0 && string(v.Analysis) != "null" {
		j.Analysis = v.Analysis
	}
	j.Reasoning = string(v.Reasoning)
	return j
}

// failed builds the degraded judgment and stamps its duration.
func failed(unitID string, err error, started time.Time) models.Judgment {
	j := models.FailedJudgment(unitID, err)
	j.DurationMs = time.Since(started).Milliseconds()
	return j
}
