package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/dogmaai/magi-decision/pkg/config"
)

const anthropicVersion = "2023-06-01"

// AnthropicClient calls the Messages API with the server-side web search tool enabled.
type AnthropicClient struct {
	*HTTPServiceBase
	model       string
	temperature float64
	maxTokens   int
	webSearch   bool
}

var _ ChatModel = (*AnthropicClient)(nil)

func NewAnthropicClient(cfg config.LLMConfig, webSearch bool) *AnthropicClient {
	return &AnthropicClient{
		HTTPServiceBase: NewHTTPServiceBase(cfg, map[string]string{
			"x-api-key":         cfg.APIKey,
			"anthropic-version": anthropicVersion,
		}),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		webSearch:   webSearch,
	}
}

type anthMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthRequest struct {
	Model       string                   `json:"model"`
	MaxTokens   int                      `json:"max_tokens"`
	Temperature float64                  `json:"temperature,omitempty"`
	System      string                   `json:"system,omitempty"`
	Messages    []anthMessage            `json:"messages"`
	Tools       []map[string]interface{} `json:"tools,omitempty"`
}

type anthResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      Usage  `json:"usage"`
}

// Chat sends text turns only; tool definitions in req are ignored.
func (c *AnthropicClient) Chat(ctx context.Context, req Request) (*Response, error) {
	body := anthRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
	if req.MaxTokens > 0 {
		body.MaxTokens = req.MaxTokens
	}
	var system []string
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleUser, RoleAssistant:
			body.Messages = append(body.Messages, anthMessage{Role: string(m.Role), Content: m.Content})
		}
	}
	body.System = strings.Join(system, "\n\n")
	if c.webSearch {
		body.Tools = []map[string]interface{}{{
			"type":     "web_search_20250305",
			"name":     "web_search",
			"max_uses": 5,
		}}
	}

	var out anthResponse
	if err := c.PostJSONWithRetry(ctx, "/messages", body, &out); err != nil {
		return nil, fmt.Errorf("%s messages: %w", c.model, err)
	}

	// search results arrive as separate blocks; keep only the text the model wrote
	var sb strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return nil, fmt.Errorf("%s messages: %w", c.model, ErrEmptyResponse)
	}
	return &Response{
		Message:      Message{Role: RoleAssistant, Content: sb.String()},
		FinishReason: out.StopReason,
		Model:        out.Model,
		Usage:        out.Usage,
	}, nil
}
