// Package agents adapts vendor chat models into voting analysis units.
package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/dogmaai/magi-decision/internal/domain/models"
	"github.com/dogmaai/magi-decision/internal/domain/service"
	"github.com/dogmaai/magi-decision/internal/services/llm"
	"github.com/dogmaai/magi-decision/internal/services/toolloop"
	"github.com/dogmaai/magi-decision/pkg/config"
	applogger "github.com/dogmaai/magi-decision/pkg/logger"
)

type promptFunc func(instrument, companyName, extra string) string

// ChatAgent asks one model for a verdict in a single round-trip.
type ChatAgent struct {
	id     string
	model  llm.ChatModel
	system string
	prompt promptFunc
	logger *applogger.Logger
}

var (
	_ service.Agent = (*ChatAgent)(nil)
	_ service.Agent = (*ToolAgent)(nil)
)

func newChatAgent(id string, model llm.ChatModel, system string, prompt promptFunc, l *applogger.Logger) *ChatAgent {
	if l == nil {
		l = applogger.Nop()
	}
	return &ChatAgent{id: id, model: model, system: system, prompt: prompt, logger: l.With(applogger.String("unit", id))}
}

// NewGrokAgent builds B2 (social sentiment).
func NewGrokAgent(cfg config.LLMConfig, l *applogger.Logger) *ChatAgent {
	return newChatAgent(UnitGrok, llm.NewOpenAIClient(cfg), grokSystem, grokPrompt, l)
}

// NewGeminiAgent builds M1 (fundamentals, with search grounding).
func NewGeminiAgent(cfg config.LLMConfig, l *applogger.Logger) *ChatAgent {
	return newChatAgent(UnitGemini, llm.NewGeminiClient(cfg, true), geminiSystem, geminiPrompt, l)
}

// NewClaudeAgent builds C3 (ESG and risk, with web search).
func NewClaudeAgent(cfg config.LLMConfig, l *applogger.Logger) *ChatAgent {
	return newChatAgent(UnitClaude, llm.NewAnthropicClient(cfg, true), claudeSystem, claudePrompt, l)
}

func (a *ChatAgent) ID() string { return a.id }

func (a *ChatAgent) Judge(ctx context.Context, instrument, companyName, extra string) (j models.Judgment) {
	started := time.Now()
	defer recoverJudgment(a.id, started, a.logger, &j)

	text, err := llm.Text(ctx, a.model, a.system, a.prompt(instrument, companyName, extra))
	if err != nil {
		a.logger.Warn("unit failed", applogger.String("symbol", instrument), applogger.Error(err))
		return failed(a.id, err, started)
	}
	return Interpret(a.id, text, started)
}

// ToolAgent lets its model call market tools through a bounded loop before answering.
type ToolAgent struct {
	id     string
	runner *toolloop.Runner
	logger *applogger.Logger
}

// NewMistralAgent builds R4 (technical analysis via tools).
func NewMistralAgent(cfg config.LLMConfig, tools toolloop.Executor, maxIterations int, l *applogger.Logger) *ToolAgent {
	return NewToolAgent(UnitMistral, llm.NewOpenAIClient(cfg), tools, maxIterations, l)
}

func NewToolAgent(id string, model llm.ChatModel, tools toolloop.Executor, maxIterations int, l *applogger.Logger) *ToolAgent {
	if l == nil {
		l = applogger.Nop()
	}
	l = l.With(applogger.String("unit", id))
	return &ToolAgent{
		id: id,
		runner: toolloop.NewRunner(model, tools,
			toolloop.WithMaxIterations(maxIterations),
			toolloop.WithName(id),
			toolloop.WithLogger(l),
		),
		logger: l,
	}
}

func (a *ToolAgent) ID() string { return a.id }

func (a *ToolAgent) Judge(ctx context.Context, instrument, companyName, extra string) (j models.Judgment) {
	started := time.Now()
	defer recoverJudgment(a.id, started, a.logger, &j)

	out, err := a.runner.Run(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: mistralSystem},
		{Role: llm.RoleUser, Content: mistralPrompt(instrument, companyName, extra)},
	})
	if err != nil {
		a.logger.Warn("unit failed", applogger.String("symbol", instrument), applogger.Error(err))
		return failed(a.id, err, started)
	}
	a.logger.Debug("tool loop finished",
		applogger.String("symbol", instrument),
		applogger.Int("rounds", out.Rounds),
		applogger.Int("tool_calls", out.ToolCalls),
		applogger.Bool("exhausted", out.Exhausted),
	)
	return Interpret(a.id, out.Message.Content, started)
}

func recoverJudgment(id string, started time.Time, l *applogger.Logger, j *models.Judgment) {
	if r := recover(); r != nil {
		l.Error("unit panicked", applogger.Any("panic", r))
		*j = failed(id, fmt.Errorf("panic: %v", r), started)
	}
}
