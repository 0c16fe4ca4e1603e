package models

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfidenceClamps(t *testing.T) {
	assert.Equal(t, 0.0, *Confidence(-0.2))
	assert.Equal(t, 1.0, *Confidence(3))
	assert.Equal(t, 0.4, *Confidence(0.4))
	assert.Equal(t, 0.0, *Confidence(math.NaN()))
	assert.Equal(t, 1.0, *Confidence(math.Inf(1)))
}

func TestFailedJudgment(t *testing.T) {
	j := FailedJudgment("R4", errors.New("boom"))
	assert.True(t, j.Failed())
	assert.Equal(t, SignalHold, j.Signal)
	assert.Equal(t, 0.0, j.ConfidenceOr(0.5))

	assert.Equal(t, "unknown error", FailedJudgment("R4", nil).Error)
	assert.Equal(t, 0.5, Judgment{}.ConfidenceOr(0.5))
}
