package llm

import (
	"context"
	"fmt"

	"github.com/dogmaai/magi-decision/pkg/config"
)

// OpenAIClient speaks the OpenAI chat-completions dialect. x.ai and Mistral
// expose the same wire format, so one client serves all three.
type OpenAIClient struct {
	*HTTPServiceBase
	model       string
	temperature float64
	maxTokens   int
}

var _ ChatModel = (*OpenAIClient)(nil)

func NewOpenAIClient(cfg config.LLMConfig) *OpenAIClient {
	return &OpenAIClient{
		HTTPServiceBase: NewHTTPServiceBase(cfg, map[string]string{"Authorization": "Bearer " + cfg.APIKey}),
		model:           cfg.Model,
		temperature:     cfg.Temperature,
		maxTokens:       cfg.MaxTokens,
	}
}

type oaFunction struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Parameters  interface{} `json:"parameters,omitempty"`
	Arguments   string      `json:"arguments,omitempty"`
}

type oaTool struct {
	Type     string     `json:"type"`
	Function oaFunction `json:"function"`
}

type oaToolCall struct {
	ID       string     `json:"id"`
	Type     string     `json:"type"`
	Function oaFunction `json:"function"`
}

type oaMessage struct {
	Role       string       `json:"role"`
	Content    *string      `json:"content"`
	ToolCalls  []oaToolCall `json:"tool_calls,omitempty"`
	ToolCallID string       `json:"tool_call_id,omitempty"`
	Name       string       `json:"name,omitempty"`
}

type oaRequest struct {
	Model          string            `json:"model"`
	Messages       []oaMessage       `json:"messages"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	Tools          []oaTool          `json:"tools,omitempty"`
	ToolChoice     string            `json:"tool_choice,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type oaResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      oaMessage `json:"message"`
		FinishReason string    `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (c *OpenAIClient) Chat(ctx context.Context, req Request) (*Response, error) {
	body := oaRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Messages:    make([]oaMessage, 0, len(req.Messages)),
	}
	if req.MaxTokens > 0 {
		body.MaxTokens = req.MaxTokens
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, toOpenAIMessage(m))
	}
	for _, t := range req.Tools {
		fn := oaFunction{Name: t.Name, Description: t.Description}
		if len(t.Parameters) > 0 {
			fn.Parameters = t.Parameters
		}
		body.Tools = append(body.Tools, oaTool{Type: "function", Function: fn})
	}
	if len(body.Tools) > 0 {
		body.ToolChoice = "auto"
	}
	if req.JSONMode {
		body.ResponseFormat = map[string]string{"type": "json_object"}
	}

	var out oaResponse
	if err := c.PostJSONWithRetry(ctx, "/chat/completions", body, &out); err != nil {
		return nil, fmt.Errorf("%s chat: %w", c.model, err)
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("%s chat: %w", c.model, ErrEmptyResponse)
	}

	choice := out.Choices[0]
	msg := Message{Role: RoleAssistant}
	if choice.Message.Content != nil {
		msg.Content = *choice.Message.Content
	}
	for _, tc := range choice.Message.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: tc.Function.Arguments})
	}
	return &Response{
		Message:      msg,
		FinishReason: choice.FinishReason,
		Model:        out.Model,
		Usage:        Usage{InputTokens: out.Usage.PromptTokens, OutputTokens: out.Usage.CompletionTokens},
	}, nil
}

func toOpenAIMessage(m Message) oaMessage {
	content := m.Content
	out := oaMessage{Role: string(m.Role), Content: &content, ToolCallID: m.ToolCallID, Name: m.Name}
	for _, tc := range m.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, oaToolCall{
			ID:       tc.ID,
			Type:     "function",
			Function: oaFunction{Name: tc.Name, Arguments: tc.Arguments},
		})
	}
	return out
}
