package usecase

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dogmaai/magi-decision/internal/domain/models"
	domrepo "github.com/dogmaai/magi-decision/internal/domain/repository"
	applogger "github.com/dogmaai/magi-decision/pkg/logger"
	pkgmetrics "github.com/dogmaai/magi-decision/pkg/metrics"
)

var ErrNoSymbol = errors.New("price update: no symbol")

// PriceUpdateHandler reacts to price events by running a background analysis.
// It serves the Kafka consumer and the HTTP push endpoints alike.
type PriceUpdateHandler struct {
	topic   string
	analyze *AnalyzeUseCase
	timeout time.Duration
	metrics domrepo.Metrics
	logger  *applogger.Logger
	wg      sync.WaitGroup
}

func NewPriceUpdateHandler(topic string, analyze *AnalyzeUseCase, timeout time.Duration, metrics domrepo.Metrics, l *applogger.Logger) *PriceUpdateHandler {
	if metrics == nil {
		metrics = pkgmetrics.Nop{}
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &PriceUpdateHandler{
		topic:   topic,
		analyze: analyze,
		timeout: timeout,
		metrics: metrics,
		logger:  l.With(applogger.String("component", "price_update")),
	}
}

func (h *PriceUpdateHandler) Topic() string { return h.topic }

// Handle acknowledges a bus message. Undecodable payloads are logged and dropped.
func (h *PriceUpdateHandler) Handle(_ context.Context, b []byte) error {
	u, err := DecodePriceUpdate(b)
	if err != nil {
		h.metrics.RecordError("price_update_decode")
		h.logger.Warn("dropping price update", applogger.Error(err))
		return nil
	}
	h.Dispatch(u)
	return nil
}

// HandlePush takes a push envelope whose data field is base64 JSON.
func (h *PriceUpdateHandler) HandlePush(env models.PushEnvelope) {
	if env.Message.Data == "" {
		h.logger.Debug("push without data", applogger.String("message_id", env.Message.MessageID))
		return
	}
	raw, err := base64.StdEncoding.DecodeString(env.Message.Data)
	if err != nil {
		h.metrics.RecordError("price_update_decode")
		h.logger.Warn("push data is not base64", applogger.String("message_id", env.Message.MessageID), applogger.Error(err))
		return
	}
	u, err := DecodePriceUpdate(raw)
	if err != nil {
		h.metrics.RecordError("price_update_decode")
		h.logger.Warn("dropping push", applogger.String("message_id", env.Message.MessageID), applogger.Error(err))
		return
	}
	h.Dispatch(u)
}

// Dispatch starts the analysis in its own goroutine and returns at once.
// The run is detached from any request context.
func (h *PriceUpdateHandler) Dispatch(u models.PriceUpdate) {
	if u.Price > 0 {
		h.metrics.RecordLastPrice(u.Symbol, u.Price)
	}
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				h.logger.Error("background analysis panicked", applogger.String("symbol", u.Symbol), applogger.Any("panic", r))
			}
		}()
		ctx := context.Background()
		if h.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, h.timeout)
			defer cancel()
		}
		res := h.analyze.Analyze(ctx, AnalyzeParams{Symbol: u.Symbol, CompanyName: u.Symbol})
		h.logger.Info("background analysis complete",
			applogger.String("symbol", u.Symbol),
			applogger.String("request_id", res.RequestID),
			applogger.String("decision", string(res.Consensus.FinalSignal)),
		)
	}()
}

// Wait blocks until in-flight runs finish or ctx ends.
func (h *PriceUpdateHandler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DecodePriceUpdate accepts a bare {symbol, price} object or a push envelope.
func DecodePriceUpdate(b []byte) (models.PriceUpdate, error) {
	var u models.PriceUpdate
	if err := json.Unmarshal(b, &u); err != nil {
		return u, fmt.Errorf("decode price update: %w", err)
	}
	if u.Symbol == "" {
		var env models.PushEnvelope
		if err := json.Unmarshal(b, &env); err == nil && env.Message.Data != "" {
			raw, err := base64.StdEncoding.DecodeString(env.Message.Data)
			if err != nil {
				return u, fmt.Errorf("decode envelope data: %w", err)
			}
			return DecodePriceUpdate(raw)
		}
	}
	u.Symbol = strings.ToUpper(strings.TrimSpace(u.Symbol))
	if u.Symbol == "" {
		return u, ErrNoSymbol
	}
	return u, nil
}
