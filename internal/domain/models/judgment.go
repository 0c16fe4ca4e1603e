package models

import (
	"encoding/json"
	"math"
	"time"
)

// Judgment is one agent's opinion about one instrument.
// A failed agent still produces a Judgment: HOLD, confidence 0, Error set.
type Judgment struct {
	UnitID     string          `json:"unit"`
	Signal     Signal          `json:"signal"`
	Confidence *float64        `json:"confidence,omitempty"` // nil: the agent did not report one
	Analysis   json.RawMessage `json:"analysis,omitempty"`
	Reasoning  string          `json:"reasoning,omitempty"`
	Error      string          `json:"error,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	DurationMs int64           `json:"durationMs"`
}

// Failed reports whether the judgment is a degraded stand-in.
func (j Judgment) Failed() bool { return j.Error != "" }

// ConfidenceOr returns the reported confidence or def when none was reported.
func (j Judgment) ConfidenceOr(def float64) float64 {
	if j.Confidence == nil {
		return def
	}
	return *j.Confidence
}

// FailedJudgment builds the degraded judgment for a unit that could not answer.
func FailedJudgment(unitID string, err error) Judgment {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Judgment{
		UnitID:     unitID,
		Signal:     SignalHold,
		Confidence: Confidence(0),
		Error:      msg,
		Timestamp:  time.Now().UTC(),
	}
}

// Confidence returns a pointer to v clamped to [0,1]. NaN becomes 0.
func Confidence(v float64) *float64 {
	switch {
	case math.IsNaN(v), v < 0:
		v = 0
	case v > 1:
		v = 1
	}
	return &v
}
