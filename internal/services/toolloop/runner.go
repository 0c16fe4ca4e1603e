// Package toolloop drives a bounded request/tool-call/answer conversation.
package toolloop

import (
	"context"
	"errors"
	"fmt"

	svcmetrics "github.com/dogmaai/magi-decision/internal/service/metrics"
	"github.com/dogmaai/magi-decision/internal/services/llm"
	applogger "github.com/dogmaai/magi-decision/pkg/logger"
)

// DefaultMaxIterations bounds model round-trips when none is configured.
const DefaultMaxIterations = 3

// Executor resolves a tool call to its rendered result. The returned string
// is appended to the conversation even when err is non-nil.
type Executor interface {
	Definitions() []llm.ToolDefinition
	Execute(ctx context.Context, name, args string) (string, error)
}

// Outcome is the final state of a loop.
type Outcome struct {
	Message   llm.Message   // the last assistant message, unmodified
	Messages  []llm.Message // full conversation including tool turns
	Rounds    int
	ToolCalls int
	Exhausted bool // the bound was hit while tool calls were still pending
}

// Runner executes the loop for one agent.
type Runner struct {
	name    string
	model   llm.ChatModel
	tools   Executor
	maxIter int
	logger  *applogger.Logger
}

type Option func(*Runner)

func WithMaxIterations(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxIter = n
		}
	}
}

func WithLogger(l *applogger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithName labels metrics and logs.
func WithName(name string) Option {
	return func(r *Runner) {
		r.name = name
	}
}

func NewRunner(model llm.ChatModel, tools Executor, opts ...Option) *Runner {
	r := &Runner{
		name:    "toolloop",
		model:   model,
		tools:   tools,
		maxIter: DefaultMaxIterations,
		logger:  applogger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run sends messages to the model, executes any requested tools and repeats
// until the model answers without tool calls or maxIter rounds have been made.
// A model transport error ends the loop.
func (r *Runner) Run(ctx context.Context, messages []llm.Message) (*Outcome, error) {
	if r.model == nil {
		return nil, errors.New("toolloop: model is nil")
	}
	var defs []llm.ToolDefinition
	if r.tools != nil {
		defs = r.tools.Definitions()
	}

	conv := make([]llm.Message, len(messages), len(messages)+2*r.maxIter)
	copy(conv, messages)
	out := &Outcome{}

	for out.Rounds < r.maxIter {
		resp, err := r.model.Chat(ctx, llm.Request{Messages: conv, Tools: defs})
		out.Rounds++
		if err != nil {
			svcmetrics.ObserveLoop(r.name, out.Rounds, false)
			return nil, fmt.Errorf("round %d: %w", out.Rounds, err)
		}
		msg := resp.Message
		msg.Role = llm.RoleAssistant
		conv = append(conv, msg)
		out.Message = msg

		if len(msg.ToolCalls) == 0 {
			out.Messages = conv
			svcmetrics.ObserveLoop(r.name, out.Rounds, false)
			return out, nil
		}
		if out.Rounds == r.maxIter {
			break
		}

		for _, call := range msg.ToolCalls {
			out.ToolCalls++
			conv = append(conv, r.execute(ctx, call))
		}
	}

	out.Exhausted = true
	out.Messages = conv
	r.logger.Warn("tool loop bound reached",
		applogger.String("agent", r.name),
		applogger.Int("rounds", out.Rounds),
		applogger.Int("tool_calls", out.ToolCalls),
	)
	svcmetrics.ObserveLoop(r.name, out.Rounds, true)
	return out, nil
}

func (r *Runner) execute(ctx context.Context, call llm.ToolCall) llm.Message {
	msg := llm.Message{Role: llm.RoleTool, ToolCallID: call.ID, Name: call.Name}
	if r.tools == nil {
		msg.Content = `{"success":false,"error":"no tools available"}`
		return msg
	}
	content, err := r.tools.Execute(ctx, call.Name, call.Arguments)
	if err != nil {
		r.logger.Debug("tool error fed back to model",
			applogger.String("agent", r.name),
			applogger.String("tool", call.Name),
			applogger.Error(err),
		)
	}
	msg.Content = content
	return msg
}
