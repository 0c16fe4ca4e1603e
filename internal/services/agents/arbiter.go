package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dogmaai/magi-decision/internal/domain/models"
	"github.com/dogmaai/magi-decision/internal/domain/service"
	"github.com/dogmaai/magi-decision/internal/services/extract"
	"github.com/dogmaai/magi-decision/internal/services/llm"
	"github.com/dogmaai/magi-decision/pkg/config"
)

// maxContextDocs bounds how many research documents are quoted to the arbiter.
const maxContextDocs = 5

// Arbiter asks a synthesis model for the final decision.
type Arbiter struct {
	model llm.ChatModel
}

var _ service.Arbiter = (*Arbiter)(nil)

// NewArbiter builds MARY-4 on the OpenAI chat API.
func NewArbiter(cfg config.LLMConfig) *Arbiter {
	return NewArbiterWithModel(llm.NewOpenAIClient(cfg))
}

func NewArbiterWithModel(m llm.ChatModel) *Arbiter {
	return &Arbiter{model: m}
}

// arbiterOrder omits side: it always follows the decision.
type arbiterOrder struct {
	Symbol     flexString  `json:"symbol"`
	Qty        flexFloat   `json:"qty"`
	StopLoss   flexDecimal `json:"stop_loss"`
	TakeProfit flexDecimal `json:"take_profit"`
}

type arbiterAnswer struct {
	FinalDecision     flexString    `json:"final_decision"`
	ConsensusStrength flexString    `json:"consensus_strength"`
	Confidence        flexFloat     `json:"confidence"`
	OrderParams       *arbiterOrder `json:"order_params"`
	RiskWarnings      []flexString  `json:"risk_warnings"`
	Reasoning         flexString    `json:"reasoning"`
}

// Synthesize returns a *service.UnparsedError when the model answered without any
// {...} block. A block that fails to decode is an ordinary error, like a
// transport failure. Fields the model left out or mislabelled fall back to the
// preliminary decision.
func (a *Arbiter) Synthesize(ctx context.Context, in service.ArbiterInput) (*models.ConsensusDecision, error) {
	prompt, err := arbiterPrompt(in)
	if err != nil {
		return nil, err
	}
	resp, err := a.model.Chat(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: arbiterSystem},
			{Role: llm.RoleUser, Content: prompt},
		},
		JSONMode: true,
	})
	if err != nil {
		return nil, fmt.Errorf("arbiter: %w", err)
	}
	text := resp.Message.Content

	var ans arbiterAnswer
	if res := extract.Object(text, &ans); !res.Parsed {
		if errors.Is(res.Err, extract.ErrNoObject) {
			return nil, &service.UnparsedError{Raw: text, Err: res.Err}
		}
		return nil, fmt.Errorf("arbiter: decode answer: %w", res.Err)
	}

	pre := in.Preliminary
	d := &models.ConsensusDecision{
		FinalSignal:  pre.Decision,
		Strength:     pre.Strength,
		Confidence:   pre.AvgConfidence,
		RiskWarnings: []string{},
		Reasoning:    string(ans.Reasoning),
		Source:       models.SourceArbiter,
	}
	if s, ok := models.ParseSignal(string(ans.FinalDecision)); ok {
		d.FinalSignal = s
	}
	if s, ok := models.ParseStrength(string(ans.ConsensusStrength)); ok {
		d.Strength = s
	}
	if c := ans.Confidence.ptr(); c != nil {
		d.Confidence = *models.Confidence(*c)
	}
	for _, w := range ans.RiskWarnings {
		if w = flexString(strings.TrimSpace(string(w))); w != "" {
			d.RiskWarnings = append(d.RiskWarnings, string(w))
		}
	}
	if d.FinalSignal != models.SignalHold && ans.OrderParams != nil {
		d.OrderParams = orderFromAnswer(in.Instrument, d.FinalSignal, ans.OrderParams)
	}
	return d, nil
}

func orderFromAnswer(instrument string, decision models.Signal, o *arbiterOrder) *models.OrderParams {
	p := &models.OrderParams{
		Symbol:     strings.ToUpper(strings.TrimSpace(string(o.Symbol))),
		Side:       strings.ToLower(string(decision)),
		StopLoss:   o.StopLoss.ptr(),
		TakeProfit: o.TakeProfit.ptr(),
	}
	if p.Symbol == "" || p.Symbol == "..." {
		p.Symbol = instrument
	}
	if q := o.Qty.ptr(); q != nil && *q >= 1 {
		p.Qty = int(*q)
	}
	return p
}

type promptJudgment struct {
	Unit       string          `json:"unit"`
	Signal     models.Signal   `json:"signal"`
	Confidence *float64        `json:"confidence,omitempty"`
	Analysis   json.RawMessage `json:"analysis,omitempty"`
	Reasoning  string          `json:"reasoning,omitempty"`
	Error      string          `json:"error,omitempty"`
}

func arbiterPrompt(in service.ArbiterInput) (string, error) {
	js := make([]promptJudgment, 0, len(in.Judgments))
	for _, j := range in.Judgments {
		js = append(js, promptJudgment{
			Unit: j.UnitID, Signal: j.Signal, Confidence: j.Confidence,
			Analysis: j.Analysis, Reasoning: j.Reasoning, Error: j.Error,
		})
	}
	payload := map[string]interface{}{
		"symbol":      in.Instrument,
		"judgments":   js,
		"preliminary": in.Preliminary,
	}
	if in.Portfolio != nil {
		payload["portfolio"] = in.Portfolio
	}
	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("arbiter prompt: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Integrate the following unit analyses for %s and give the final decision.\n\n", in.Instrument)
	sb.Write(b)
	if c := in.Context; c != nil && c.DocumentCount > 0 {
		sb.WriteString("\n\nHistorical context: ")
		sb.WriteString(c.Summary)
		for i, d := range c.Documents {
			if i == maxContextDocs {
				break
			}
			title := d.Title
			if title == "" {
				title = d.ID
			}
			fmt.Fprintf(&sb, "\n- %s", title)
			if d.Date != "" {
				fmt.Fprintf(&sb, " (%s)", d.Date)
			}
		}
	}
	return sb.String(), nil
}
