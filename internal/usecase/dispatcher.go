package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dogmaai/magi-decision/internal/domain/models"
	domrepo "github.com/dogmaai/magi-decision/internal/domain/repository"
	domsvc "github.com/dogmaai/magi-decision/internal/domain/service"
	applogger "github.com/dogmaai/magi-decision/pkg/logger"
	pkgmetrics "github.com/dogmaai/magi-decision/pkg/metrics"
)

// ContextUnit selects historical context retrieval in a unit subset.
const ContextUnit = "ISABEL"

type DispatchInput struct {
	Instrument  string
	CompanyName string
	Context     string
	Units       []string // nil: the dispatcher's default units
}

type DispatchOutput struct {
	Judgments         []models.Judgment
	Portfolio         *models.PortfolioSnapshot
	HistoricalContext *models.HistoricalContext
}

// Dispatcher fans one request out to the active agents and the best-effort
// collaborators, then waits for all of them.
type Dispatcher struct {
	agents    []domsvc.Agent
	byID      map[string]domsvc.Agent
	portfolio domrepo.PortfolioProvider
	research  domrepo.ContextSource
	metrics   domrepo.Metrics
	logger    *applogger.Logger
	timeout   time.Duration
	defaults  []string
}

type DispatcherOption func(*Dispatcher)

// WithPortfolio attaches the snapshot provider. Nil disables it.
func WithPortfolio(p domrepo.PortfolioProvider) DispatcherOption {
	return func(d *Dispatcher) { d.portfolio = p }
}

// WithContextSource attaches historical context retrieval. Nil disables it.
func WithContextSource(s domrepo.ContextSource) DispatcherOption {
	return func(d *Dispatcher) { d.research = s }
}

// WithAgentTimeout bounds each agent call. Zero means no bound beyond the caller's context.
func WithAgentTimeout(t time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.timeout = t }
}

// WithDefaultUnits sets the subset used when a request names no units.
// Empty keeps every active agent plus the context unit.
func WithDefaultUnits(units []string) DispatcherOption {
	return func(d *Dispatcher) { d.defaults = append([]string(nil), units...) }
}

func WithDispatcherMetrics(m domrepo.Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

func WithDispatcherLogger(l *applogger.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = l }
}

// NewDispatcher keeps agents in the given order; it is also the launch order.
func NewDispatcher(agents []domsvc.Agent, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		byID:    make(map[string]domsvc.Agent, len(agents)),
		metrics: pkgmetrics.Nop{},
		logger:  applogger.Nop(),
	}
	for _, a := range agents {
		if a == nil {
			continue
		}
		if _, dup := d.byID[a.ID()]; dup {
			continue
		}
		d.agents = append(d.agents, a)
		d.byID[a.ID()] = a
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Units lists the active agent identifiers plus the context unit when configured.
func (d *Dispatcher) Units() []string {
	out := make([]string, 0, len(d.agents)+1)
	if d.research != nil {
		out = append(out, ContextUnit)
	}
	for _, a := range d.agents {
		out = append(out, a.ID())
	}
	return out
}

// selection resolves the requested subset. Unknown and inactive identifiers are dropped.
func (d *Dispatcher) selection(units []string) ([]domsvc.Agent, bool) {
	if len(units) == 0 {
		units = d.defaults
	}
	if len(units) == 0 {
		return d.agents, true
	}
	seen := make(map[string]bool, len(units))
	var (
		out        []domsvc.Agent
		useContext bool
	)
	for _, u := range units {
		id := strings.ToUpper(strings.TrimSpace(u))
		if seen[id] {
			continue
		}
		seen[id] = true
		if id == ContextUnit {
			useContext = true
			continue
		}
		if a, ok := d.byID[id]; ok {
			out = append(out, a)
		}
	}
	return out, useContext
}

// Dispatch never fails. No agent's outcome cancels or delays another.
func (d *Dispatcher) Dispatch(ctx context.Context, in DispatchInput) DispatchOutput {
	agents, useContext := d.selection(in.Units)
	out := DispatchOutput{Judgments: make([]models.Judgment, len(agents))}
	log := d.logger.With(applogger.String("symbol", in.Instrument))

	var wg sync.WaitGroup
	for i, a := range agents {
		wg.Add(1)
		go func(i int, a domsvc.Agent) {
			defer wg.Done()
			out.Judgments[i] = d.judge(ctx, a, in)
		}(i, a)
	}

	if d.portfolio != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer recoverCollaborator(log, "portfolio")
			snap, err := d.portfolio.Snapshot(ctx)
			if err != nil {
				d.metrics.RecordError("portfolio")
				log.Warn("portfolio snapshot unavailable", applogger.Error(err))
				return
			}
			out.Portfolio = snap
		}()
	}

	if d.research != nil && useContext {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer recoverCollaborator(log, "context")
			hc, err := d.research.HistoricalContext(ctx, in.Instrument, in.CompanyName)
			if err != nil {
				d.metrics.RecordError("context")
				log.Warn("historical context unavailable", applogger.Error(err))
				return
			}
			out.HistoricalContext = hc
		}()
	}

	wg.Wait()

	for _, j := range out.Judgments {
		d.metrics.RecordJudgment(j.UnitID, j.Signal, j.Failed())
		log.Info("judgment",
			applogger.String("unit", j.UnitID),
			applogger.String("signal", string(j.Signal)),
			applogger.Float64("confidence", j.ConfidenceOr(0)),
			applogger.Int64("duration_ms", j.DurationMs),
			applogger.Bool("failed", j.Failed()),
		)
	}
	return out
}

func (d *Dispatcher) judge(ctx context.Context, a domsvc.Agent, in DispatchInput) (j models.Judgment) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("agent panicked", applogger.String("unit", a.ID()), applogger.Any("panic", r))
			j = models.FailedJudgment(a.ID(), fmt.Errorf("panic: %v", r))
			j.DurationMs = time.Since(started).Milliseconds()
		}
	}()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	j = a.Judge(ctx, in.Instrument, in.CompanyName, in.Context)
	j.UnitID = a.ID()
	return j
}

func recoverCollaborator(l *applogger.Logger, name string) {
	if r := recover(); r != nil {
		l.Error("collaborator panicked", applogger.String("collaborator", name), applogger.Any("panic", r))
	}
}
