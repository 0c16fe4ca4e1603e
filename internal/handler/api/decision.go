package api

import (
	"context"
	"time"

	"github.com/dogmaai/magi-decision/internal/domain/models"
	"github.com/dogmaai/magi-decision/internal/service/ratelimit"
	"github.com/dogmaai/magi-decision/internal/usecase"
	xhttp "github.com/dogmaai/magi-decision/pkg/http"
	applogger "github.com/dogmaai/magi-decision/pkg/logger"

	"github.com/labstack/echo/v4"
)

const (
	ServiceName    = "magi-decision"
	ServiceVersion = "5.0.0"
)

// DecisionHandler serves the analysis, decision and push endpoints.
type DecisionHandler struct {
	analyze    *usecase.AnalyzeUseCase
	decide     *usecase.DecideUseCase
	prices     *usecase.PriceUpdateHandler
	limiter    *ratelimit.Limiter
	timeout    time.Duration
	busEnabled bool
	logger     *applogger.Logger
}

// HandlerOption configures DecisionHandler.
type HandlerOption func(*DecisionHandler)

// WithDecideLimiter rate limits POST /decide per client IP.
func WithDecideLimiter(l *ratelimit.Limiter) HandlerOption {
	return func(h *DecisionHandler) { h.limiter = l }
}

// WithRequestTimeout bounds synchronous pipeline runs.
func WithRequestTimeout(d time.Duration) HandlerOption {
	return func(h *DecisionHandler) { h.timeout = d }
}

// WithBus reports whether signals reach the message bus.
func WithBus(enabled bool) HandlerOption {
	return func(h *DecisionHandler) { h.busEnabled = enabled }
}

func NewDecisionHandler(
	analyze *usecase.AnalyzeUseCase,
	decide *usecase.DecideUseCase,
	prices *usecase.PriceUpdateHandler,
	l *applogger.Logger,
	opts ...HandlerOption,
) *DecisionHandler {
	if l == nil {
		l = applogger.Nop()
	}
	h := &DecisionHandler{analyze: analyze, decide: decide, prices: prices, logger: l}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

var _ xhttp.Handler = (*DecisionHandler)(nil)

func (h *DecisionHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Info)
	e.GET("/health", h.Health)
	e.GET("/config", h.Config)
	e.POST("/analyze", h.Analyze)
	e.POST("/analyze/batch", h.AnalyzeBatch)
	if h.limiter != nil {
		e.POST("/decide", h.Decide, h.limiter.Middleware())
	} else {
		e.POST("/decide", h.Decide)
	}
	e.POST("/pubsub/price-update", h.PriceUpdate)
	e.POST("/pubsub", h.PriceUpdate)
}

type serviceInfo struct {
	Service   string   `json:"service"`
	Version   string   `json:"version"`
	Endpoints []string `json:"endpoints"`
	Units     []string `json:"units"`
}

func (h *DecisionHandler) Info(c echo.Context) error {
	return xhttp.SuccessResponse(c, serviceInfo{
		Service: ServiceName,
		Version: ServiceVersion,
		Endpoints: []string{
			"GET /health",
			"GET /config",
			"POST /analyze",
			"POST /analyze/batch",
			"POST /decide",
			"POST /pubsub/price-update",
			"GET /metrics",
		},
		Units: h.analyze.Units(),
	})
}

type healthStatus struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
	Bus     bool   `json:"bus"`
}

func (h *DecisionHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, healthStatus{
		Status:  "healthy",
		Service: ServiceName,
		Version: ServiceVersion,
		Bus:     h.busEnabled,
	})
}

type decisionConfig struct {
	UnanimousRequired bool     `json:"unanimous_required"`
	MinConfidence     float64  `json:"min_confidence"`
	TakeProfitPct     float64  `json:"take_profit_pct"`
	StopLossPct       float64  `json:"stop_loss_pct"`
	DefaultQty        int      `json:"default_qty"`
	Units             []string `json:"units"`
}

func (h *DecisionHandler) Config(c echo.Context) error {
	g := h.decide.Gate()
	return xhttp.SuccessResponse(c, decisionConfig{
		UnanimousRequired: g.UnanimousRequired,
		MinConfidence:     g.MinConfidence,
		TakeProfitPct:     g.TakeProfitPct,
		StopLossPct:       g.StopLossPct,
		DefaultQty:        g.DefaultQty,
		Units:             h.analyze.Units(),
	})
}

func (h *DecisionHandler) Analyze(c echo.Context) error {
	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	res := h.analyze.Analyze(ctx, usecase.AnalyzeParams{
		Symbol:      req.Symbol,
		CompanyName: req.CompanyName,
		Context:     req.Context,
		Units:       req.Units,
	})
	return xhttp.SuccessResponse(c, res)
}

type batchResult struct {
	Count   int                      `json:"count"`
	Results []*models.AnalysisResult `json:"results"`
}

func (h *DecisionHandler) AnalyzeBatch(c echo.Context) error {
	req := &models.BatchAnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	res := h.analyze.AnalyzeBatch(ctx, req.Stocks, req.Context, req.Units)
	return xhttp.SuccessResponse(c, batchResult{Count: len(res), Results: res})
}

func (h *DecisionHandler) Decide(c echo.Context) error {
	req := &models.DecideRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	return xhttp.SuccessResponse(c, h.decide.Decide(ctx, req.Symbol))
}

// PriceUpdate acknowledges the push before any analysis runs.
// Malformed bodies are acknowledged too so the sender does not redeliver them.
func (h *DecisionHandler) PriceUpdate(c echo.Context) error {
	env := models.PushEnvelope{}
	if err := c.Bind(&env); err != nil {
		h.logger.Warn("push body rejected", applogger.String("path", c.Path()), applogger.Error(err))
		return xhttp.AckResponse(c)
	}
	if err := xhttp.AckResponse(c); err != nil {
		return err
	}
	h.prices.HandlePush(env)
	return nil
}

func (h *DecisionHandler) requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(c.Request().Context())
	}
	return context.WithTimeout(c.Request().Context(), h.timeout)
}
