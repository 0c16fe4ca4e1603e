// Package llm holds thin clients for the chat model vendors used by the agents.
package llm

import (
	"context"
	"encoding/json"
	"errors"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ErrEmptyResponse is returned when the vendor answered without any choice or candidate.
var ErrEmptyResponse = errors.New("llm: empty response")

// Message is one conversation turn in vendor-neutral form.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// ToolCall is a function invocation requested by the model.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDefinition advertises a callable tool. Parameters is a JSON schema object.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type Request struct {
	Messages  []Message
	Tools     []ToolDefinition
	JSONMode  bool
	MaxTokens int
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type Response struct {
	Message      Message
	FinishReason string
	Usage        Usage
	Model        string
}

// ChatModel is a single chat round-trip.
type ChatModel interface {
	Chat(ctx context.Context, req Request) (*Response, error)
}

// Text is a convenience wrapper that sends a system and user prompt and returns the text answer.
func Text(ctx context.Context, m ChatModel, system, user string) (string, error) {
	msgs := make([]Message, 0, 2)
	if system != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: system})
	}
	msgs = append(msgs, Message{Role: RoleUser, Content: user})
	resp, err := m.Chat(ctx, Request{Messages: msgs})
	if err != nil {
		return "", err
	}
	return resp.Message.Content, nil
}
