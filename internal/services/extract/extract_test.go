package extract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type verdict struct {
	Signal     string                 `json:"signal"`
	Confidence float64                `json:"confidence"`
	Analysis   map[string]interface{} `json:"analysis"`
	Reasoning  string                 `json:"reasoning"`
}

func TestObject(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantBlock string
		wantErr   error
		check     func(t *testing.T, v verdict)
	}{
		{
			name:      "plain object",
			text:      `{"signal":"BUY","confidence":0.8}`,
			wantBlock: `{"signal":"BUY","confidence":0.8}`,
			check: func(t *testing.T, v verdict) {
				assert.Equal(t, "BUY", v.Signal)
				assert.InDelta(t, 0.8, v.Confidence, 1e-9)
			},
		},
		{
			name:      "commentary around a nested object",
			text:      "Here is my view:\n```json\n{\"signal\":\"SELL\",\"analysis\":{\"pe\":{\"ttm\":30}}}\n```\nThanks!",
			wantBlock: `{"signal":"SELL","analysis":{"pe":{"ttm":30}}}`,
			check: func(t *testing.T, v verdict) {
				assert.Equal(t, "SELL", v.Signal)
				assert.Contains(t, v.Analysis, "pe")
			},
		},
		{
			name:      "braces and escaped quotes inside strings",
			text:      `note {"signal":"HOLD","reasoning":"range {low} \"}\" high"} trailing {"x":1}`,
			wantBlock: `{"signal":"HOLD","reasoning":"range {low} \"}\" high"}`,
			check: func(t *testing.T, v verdict) {
				assert.Equal(t, `range {low} "}" high`, v.Reasoning)
			},
		},
		{
			name:    "no object",
			text:    "I cannot decide today.",
			wantErr: ErrNoObject,
		},
		{
			name:    "unterminated object",
			text:    `{"signal":"BUY"`,
			wantErr: ErrNoObject,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v verdict
			res := Object(tt.text, &v)
			assert.Equal(t, tt.text, res.Raw)
			if tt.wantErr != nil {
				assert.False(t, res.Parsed)
				assert.True(t, errors.Is(res.Err, tt.wantErr))
				return
			}
			require.NoError(t, res.Err)
			assert.True(t, res.Parsed)
			assert.Equal(t, tt.wantBlock, res.Block)
			tt.check(t, v)
		})
	}
}

func TestObjectBadJSON(t *testing.T) {
	var v verdict
	res := Object(`answer: {signal: BUY}`, &v)
	assert.False(t, res.Parsed)
	assert.Equal(t, "{signal: BUY}", res.Block)
	require.Error(t, res.Err)
	assert.False(t, errors.Is(res.Err, ErrNoObject))
}

func TestObjectWrongType(t *testing.T) {
	var v verdict
	res := Object(`{"signal":"BUY","confidence":"high"}`, &v)
	assert.False(t, res.Parsed)
	assert.Error(t, res.Err)
}
