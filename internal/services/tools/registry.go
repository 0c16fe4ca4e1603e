// Package tools exposes market data lookups to tool-calling models.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dogmaai/magi-decision/internal/service/cache"
	svcmetrics "github.com/dogmaai/magi-decision/internal/service/metrics"
	"github.com/dogmaai/magi-decision/internal/services/llm"
	applogger "github.com/dogmaai/magi-decision/pkg/logger"
)

var (
	ErrUnknownTool  = errors.New("unknown tool")
	ErrBadArguments = errors.New("invalid tool arguments")
)

// Tool is one callable function.
type Tool interface {
	Definition() llm.ToolDefinition
	Call(ctx context.Context, args json.RawMessage) (interface{}, error)
}

// Uncached is implemented by tools whose results must always be fresh.
type Uncached interface {
	NoCache() bool
}

// Envelope is the JSON shape every tool result is rendered as.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Registry resolves tool calls by name and caches successful results.
type Registry struct {
	tools  map[string]Tool
	order  []string
	cache  cache.BytesCache
	ttl    time.Duration
	logger *applogger.Logger
}

type Option func(*Registry)

// WithCache caches successful results for ttl. A zero ttl disables caching.
func WithCache(c cache.BytesCache, ttl time.Duration) Option {
	return func(r *Registry) {
		r.cache = c
		r.ttl = ttl
	}
}

func WithLogger(l *applogger.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{tools: make(map[string]Tool), logger: applogger.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds t. A later registration with the same name replaces the earlier one.
func (r *Registry) Register(t Tool) {
	name := t.Definition().Name
	if _, ok := r.tools[name]; !ok {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
}

// Definitions lists the registered tools in registration order.
func (r *Registry) Definitions() []llm.ToolDefinition {
	out := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].Definition())
	}
	return out
}

// Execute runs the named tool and always returns a rendered Envelope. The
// error is non-nil when the envelope reports a failure; callers feeding a
// model can ignore it and pass the string along.
func (r *Registry) Execute(ctx context.Context, name, args string) (string, error) {
	started := time.Now()
	t, ok := r.tools[name]
	if !ok {
		err := fmt.Errorf("%w: %s", ErrUnknownTool, name)
		svcmetrics.ObserveTool(name, "unknown", started)
		return render(Envelope{Error: err.Error()}), err
	}

	raw, err := normalizeArgs(args)
	if err != nil {
		svcmetrics.ObserveTool(name, "error", started)
		return render(Envelope{Error: err.Error()}), err
	}

	key := ""
	if nc, ok := t.(Uncached); !ok || !nc.NoCache() {
		key = cache.Key("tool", name, string(raw))
	}
	if out, hit := r.cached(ctx, key); hit {
		svcmetrics.ObserveTool(name, "cached", started)
		return out, nil
	}

	data, err := r.call(ctx, t, raw)
	if err != nil {
		r.logger.Warn("tool call failed", applogger.String("tool", name), applogger.Error(err))
		svcmetrics.ObserveTool(name, "error", started)
		return render(Envelope{Error: err.Error()}), fmt.Errorf("%s: %w", name, err)
	}

	out := render(Envelope{Success: true, Data: data})
	r.store(ctx, key, out)
	svcmetrics.ObserveTool(name, "ok", started)
	return out, nil
}

func (r *Registry) call(ctx context.Context, t Tool, args json.RawMessage) (data interface{}, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("tool panic: %v", p)
		}
	}()
	return t.Call(ctx, args)
}

func (r *Registry) cached(ctx context.Context, key string) (string, bool) {
	if key == "" || r.cache == nil || r.ttl <= 0 {
		return "", false
	}
	b, ok, err := r.cache.GetBytes(ctx, key)
	if err != nil {
		r.logger.Debug("tool cache read failed", applogger.String("key", key), applogger.Error(err))
		return "", false
	}
	return string(b), ok
}

func (r *Registry) store(ctx context.Context, key, out string) {
	if key == "" || r.cache == nil || r.ttl <= 0 {
		return
	}
	if err := r.cache.SetBytes(ctx, key, []byte(out), r.ttl); err != nil {
		r.logger.Debug("tool cache write failed", applogger.String("key", key), applogger.Error(err))
	}
}

// normalizeArgs compacts the argument object so equivalent calls share a cache key.
func normalizeArgs(args string) (json.RawMessage, error) {
	if len(bytes.TrimSpace([]byte(args))) == 0 {
		return json.RawMessage("{}"), nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(args)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadArguments, err)
	}
	if buf.Len() == 0 || buf.Bytes()[0] != '{' {
		return nil, fmt.Errorf("%w: expected an object", ErrBadArguments)
	}
	return buf.Bytes(), nil
}

func render(e Envelope) string {
	b, err := json.Marshal(e)
	if err != nil {
		b, _ = json.Marshal(Envelope{Error: fmt.Sprintf("encode result: %v", err)})
	}
	return string(b)
}

func decodeArgs(raw json.RawMessage, dst interface{}) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrBadArguments, err)
	}
	return nil
}
