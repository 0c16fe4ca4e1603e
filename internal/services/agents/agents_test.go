package agents

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dogmaai/magi-decision/internal/domain/models"
	"github.com/dogmaai/magi-decision/internal/domain/service"
	"github.com/dogmaai/magi-decision/internal/services/llm"
	"github.com/dogmaai/magi-decision/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	replies []llm.Message
	err     error
	panic   bool
	reqs    []llm.Request
}

func (m *fakeModel) Chat(_ context.Context, req llm.Request) (*llm.Response, error) {
	m.reqs = append(m.reqs, req)
	if m.panic {
		panic("vendor sdk exploded")
	}
	if m.err != nil {
		return nil, m.err
	}
	i := len(m.reqs) - 1
	if i >= len(m.replies) {
		i = len(m.replies) - 1
	}
	return &llm.Response{Message: m.replies[i]}, nil
}

func reply(content string) *fakeModel {
	return &fakeModel{replies: []llm.Message{{Role: llm.RoleAssistant, Content: content}}}
}

func TestChatAgentTransportFailure(t *testing.T) {
	a := newChatAgent(UnitGrok, &fakeModel{err: errors.New("dial tcp: timeout")}, grokSystem, grokPrompt, nil)
	j := a.Judge(context.Background(), "AAPL", "Apple", "")

	assert.Equal(t, "B2", j.UnitID)
	assert.Equal(t, models.SignalHold, j.Signal)
	require.NotNil(t, j.Confidence)
	assert.Equal(t, 0.0, *j.Confidence)
	assert.Contains(t, j.Error, "dial tcp")
	assert.True(t, j.Failed())
}

func TestGeminiAgentFailureDoesNotLeakKey(t *testing.T) {
	a := NewGeminiAgent(config.LLMConfig{
		APIKey:  "SECRET-GEMINI-KEY",
		BaseURL: "http://127.0.0.1:1",
		Model:   "gemini-x",
		Timeout: time.Second,
	}, nil)
	j := a.Judge(context.Background(), "AAPL", "Apple", "")

	assert.True(t, j.Failed())
	assert.NotEmpty(t, j.Error)
	assert.NotContains(t, j.Error, "SECRET-GEMINI-KEY")
}

func TestChatAgentOverwritesUnitID(t *testing.T) {
	model := reply("Sure!\n{\"unit\":\"Unit-B2\",\"signal\":\"buy\",\"confidence\":0.82,\"analysis\":{\"sentiment_score\":0.6},\"reasoning\":\"hype\"}")
	a := newChatAgent(UnitGrok, model, grokSystem, grokPrompt, nil)
	j := a.Judge(context.Background(), "TSLA", "Tesla", "earnings week")

	assert.Equal(t, "B2", j.UnitID)
	assert.Equal(t, models.SignalBuy, j.Signal)
	assert.InDelta(t, 0.82, *j.Confidence, 1e-9)
	assert.JSONEq(t, `{"sentiment_score":0.6}`, string(j.Analysis))
	assert.Equal(t, "hype", j.Reasoning)
	assert.Empty(t, j.Error)

	require.Len(t, model.reqs, 1)
	msgs := model.reqs[0].Messages
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[1].Content, "Tesla (TSLA)")
	assert.Contains(t, msgs[1].Content, "earnings week")
}

func TestChatAgentUnparsedText(t *testing.T) {
	long := strings.Repeat("あ", 600)
	a := newChatAgent(UnitGemini, reply(long), geminiSystem, geminiPrompt, nil)
	j := a.Judge(context.Background(), "AAPL", "", "")

	assert.Equal(t, models.SignalHold, j.Signal)
	assert.Equal(t, UnparsedConfidence, *j.Confidence)
	assert.Equal(t, 500, len([]rune(j.Reasoning)))
	assert.Empty(t, j.Error)
}

func TestInterpretNormalizesLabelsAndConfidence(t *testing.T) {
	j := Interpret("C3", `{"signal":"STRONG BUY","confidence":"85%"}`, time.Now())
	assert.Equal(t, models.SignalHold, j.Signal)
	assert.InDelta(t, 0.85, *j.Confidence, 1e-9)

	j = Interpret("C3", `{"signal":"SELL","confidence":7}`, time.Now())
	assert.Equal(t, models.SignalSell, j.Signal)
	assert.Equal(t, 1.0, *j.Confidence)

	j = Interpret("C3", `{"signal":"SELL"}`, time.Now())
	assert.Nil(t, j.Confidence)
}

func TestInterpretDropsNonFiniteConfidence(t *testing.T) {
	for _, raw := range []string{`"NaN"`, `"Inf"`, `"-Infinity"`, `"NaN%"`} {
		j := Interpret("B2", `{"signal":"BUY","confidence":`+raw+`}`, time.Now())
		assert.Equal(t, models.SignalBuy, j.Signal, raw)
		assert.Nil(t, j.Confidence, raw)

		_, err := json.Marshal(j)
		assert.NoError(t, err, raw)
	}
}

func TestChatAgentRecoversPanic(t *testing.T) {
	a := newChatAgent(UnitClaude, &fakeModel{panic: true}, claudeSystem, claudePrompt, nil)
	j := a.Judge(context.Background(), "AAPL", "Apple", "")
	assert.Equal(t, "C3", j.UnitID)
	assert.Contains(t, j.Error, "panic")
	assert.Equal(t, 0.0, *j.Confidence)
}

type oneTool struct{}

func (oneTool) Definitions() []llm.ToolDefinition {
	return []llm.ToolDefinition{{Name: "get_technical_indicators"}}
}

func (oneTool) Execute(context.Context, string, string) (string, error) {
	return `{"success":true,"data":{"overallSignal":"BUY"}}`, nil
}

func TestToolAgentAnswersAfterTools(t *testing.T) {
	model := &fakeModel{replies: []llm.Message{
		{ToolCalls: []llm.ToolCall{{ID: "1", Name: "get_technical_indicators", Arguments: `{"symbol":"AAPL"}`}}},
		{Content: `{"unit":"Unit-R4","signal":"BUY","confidence":0.7,"analysis":{"rsi":45},"reasoning":"trend"}`},
	}}
	a := NewToolAgent(UnitMistral, model, oneTool{}, 3, nil)
	j := a.Judge(context.Background(), "AAPL", "Apple", "")

	assert.Equal(t, "R4", j.UnitID)
	assert.Equal(t, models.SignalBuy, j.Signal)
	assert.Len(t, model.reqs, 2)
}

func TestToolAgentExhaustedFallsBackToUnparsed(t *testing.T) {
	model := &fakeModel{replies: []llm.Message{
		{Content: "checking", ToolCalls: []llm.ToolCall{{ID: "1", Name: "get_technical_indicators", Arguments: `{}`}}},
	}}
	a := NewToolAgent(UnitMistral, model, oneTool{}, 3, nil)
	j := a.Judge(context.Background(), "AAPL", "", "")

	assert.Equal(t, models.SignalHold, j.Signal)
	assert.Equal(t, UnparsedConfidence, *j.Confidence)
	assert.Equal(t, "checking", j.Reasoning)
	assert.Len(t, model.reqs, 3)
}

func preliminary() service.Preliminary {
	return service.Preliminary{Decision: models.SignalBuy, Strength: models.StrengthModerate, AvgConfidence: 0.66}
}

func TestArbiterParsesAnswer(t *testing.T) {
	model := reply(`{"final_decision":"SELL","consensus_strength":"STRONG","confidence":0.9,
		"order_params":{"symbol":"...","qty":"5","side":"buy","stop_loss":"101.5","take_profit":"n/a"},
		"risk_warnings":["earnings ", ""],"reasoning":"risk first"}`)
	d, err := NewArbiterWithModel(model).Synthesize(context.Background(), service.ArbiterInput{
		Instrument:  "AAPL",
		Preliminary: preliminary(),
		Judgments:   []models.Judgment{{UnitID: "B2", Signal: models.SignalSell}},
		Context:     &models.HistoricalContext{DocumentCount: 1, Summary: "Found 1 relevant documents.", Documents: []models.Document{{Title: "Q3 beat"}}},
	})
	require.NoError(t, err)

	assert.Equal(t, models.SignalSell, d.FinalSignal)
	assert.Equal(t, models.StrengthStrong, d.Strength)
	assert.Equal(t, 0.9, d.Confidence)
	assert.Equal(t, models.SourceArbiter, d.Source)
	assert.Equal(t, []string{"earnings"}, d.RiskWarnings)
	require.NotNil(t, d.OrderParams)
	assert.Equal(t, "AAPL", d.OrderParams.Symbol)
	assert.Equal(t, 5, d.OrderParams.Qty)
	assert.Equal(t, "sell", d.OrderParams.Side)
	assert.Equal(t, "101.5", d.OrderParams.StopLoss.String())
	assert.Nil(t, d.OrderParams.TakeProfit)

	require.Len(t, model.reqs, 1)
	assert.True(t, model.reqs[0].JSONMode)
	assert.Contains(t, model.reqs[0].Messages[1].Content, "Q3 beat")
}

func TestArbiterInvalidLabelsFallBack(t *testing.T) {
	d, err := NewArbiterWithModel(reply(`{"final_decision":"MAYBE","reasoning":"unsure"}`)).
		Synthesize(context.Background(), service.ArbiterInput{Instrument: "AAPL", Preliminary: preliminary()})
	require.NoError(t, err)
	assert.Equal(t, models.SignalBuy, d.FinalSignal)
	assert.Equal(t, models.StrengthModerate, d.Strength)
	assert.Equal(t, 0.66, d.Confidence)
	assert.Nil(t, d.OrderParams)
}

func TestArbiterErrors(t *testing.T) {
	_, err := NewArbiterWithModel(reply("I refuse")).Synthesize(context.Background(), service.ArbiterInput{Preliminary: preliminary()})
	var ue *service.UnparsedError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "I refuse", ue.Raw)

	_, err = NewArbiterWithModel(reply(`Decision: {"final_decision": "SELL", "confidence": 0.9,}`)).
		Synthesize(context.Background(), service.ArbiterInput{Preliminary: preliminary()})
	require.Error(t, err)
	assert.False(t, errors.As(err, &ue))
	assert.Contains(t, err.Error(), "decode answer")

	_, err = NewArbiterWithModel(&fakeModel{err: errors.New("503")}).Synthesize(context.Background(), service.ArbiterInput{Preliminary: preliminary()})
	require.Error(t, err)
	assert.False(t, errors.As(err, &ue))
}
