package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/dogmaai/magi-decision/pkg/config"
)

// GeminiClient calls generateContent with Google Search grounding.
type GeminiClient struct {
	*HTTPServiceBase
	model       string
	temperature float64
	maxTokens   int
	search      bool
}

var _ ChatModel = (*GeminiClient)(nil)

func NewGeminiClient(cfg config.LLMConfig, search bool) *GeminiClient {
	return &GeminiClient{
		HTTPServiceBase: NewHTTPServiceBase(cfg, map[string]string{"x-goog-api-key": cfg.APIKey}),
		model:           cfg.Model,
		temperature:     cfg.Temperature,
		maxTokens:       cfg.MaxTokens,
		search:          search,
	}
}

type gemPart struct {
	Text string `json:"text"`
}

type gemContent struct {
	Role  string    `json:"role,omitempty"`
	Parts []gemPart `json:"parts"`
}

type gemRequest struct {
	Contents          []gemContent             `json:"contents"`
	SystemInstruction *gemContent              `json:"systemInstruction,omitempty"`
	Tools             []map[string]interface{} `json:"tools,omitempty"`
	GenerationConfig  struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	} `json:"generationConfig"`
}

type gemResponse struct {
	Candidates []struct {
		Content      gemContent `json:"content"`
		FinishReason string     `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
}

func (c *GeminiClient) Chat(ctx context.Context, req Request) (*Response, error) {
	var body gemRequest
	body.GenerationConfig.Temperature = c.temperature
	body.GenerationConfig.MaxOutputTokens = c.maxTokens
	if req.MaxTokens > 0 {
		body.GenerationConfig.MaxOutputTokens = req.MaxTokens
	}
	var system []string
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleUser:
			body.Contents = append(body.Contents, gemContent{Role: "user", Parts: []gemPart{{Text: m.Content}}})
		case RoleAssistant:
			body.Contents = append(body.Contents, gemContent{Role: "model", Parts: []gemPart{{Text: m.Content}}})
		}
	}
	if len(system) > 0 {
		body.SystemInstruction = &gemContent{Parts: []gemPart{{Text: strings.Join(system, "\n\n")}}}
	}
	if c.search {
		body.Tools = []map[string]interface{}{{"google_search": map[string]interface{}{}}}
	}

	path := "/models/" + c.model + ":generateContent"
	var out gemResponse
	if err := c.PostJSONWithRetry(ctx, path, body, &out); err != nil {
		return nil, fmt.Errorf("%s generateContent: %w", c.model, err)
	}
	if len(out.Candidates) == 0 {
		return nil, fmt.Errorf("%s generateContent: %w", c.model, ErrEmptyResponse)
	}

	cand := out.Candidates[0]
	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		sb.WriteString(p.Text)
	}
	return &Response{
		Message:      Message{Role: RoleAssistant, Content: sb.String()},
		FinishReason: cand.FinishReason,
		Model:        out.ModelVersion,
		Usage: Usage{
			InputTokens:  out.UsageMetadata.PromptTokenCount,
			OutputTokens: out.UsageMetadata.CandidatesTokenCount,
		},
	}, nil
}
