package metrics

import (
	"github.com/dogmaai/magi-decision/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	judgments     *prometheus.CounterVec
	decisions     *prometheus.CounterVec
	signalsIssued *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	lastPrice     *prometheus.GaugeVec
	latency       *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder. Call it once per process.
func New() *Recorder {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the recorder's collectors on reg.
func NewWith(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		judgments: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "magi_judgments_total",
				Help: "Judgments produced per unit, signal and outcome",
			},
			[]string{"unit", "signal", "outcome"},
		),
		decisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "magi_decisions_total",
				Help: "Final decisions by signal, strength and source",
			},
			[]string{"decision", "strength", "source"},
		),
		signalsIssued: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "magi_trade_signals_total",
				Help: "Trade signals issued after the unanimity gate",
			},
			[]string{"symbol", "action"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "magi_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "magi_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "magi_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 40, 80},
			},
			[]string{"operation"},
		),
	}
}

// RecordJudgment counts one agent judgment.
func (r *Recorder) RecordJudgment(unit string, signal models.Signal, failed bool) {
	outcome := "ok"
	if failed {
		outcome = "failed"
	}
	r.judgments.WithLabelValues(unit, string(signal), outcome).Inc()
}

// RecordDecision counts a final decision.
func (r *Recorder) RecordDecision(decision models.Signal, strength models.Strength, source string) {
	r.decisions.WithLabelValues(string(decision), string(strength), source).Inc()
}

// RecordSignalIssued counts a published trade signal.
func (r *Recorder) RecordSignalIssued(symbol string, action models.Signal) {
	r.signalsIssued.WithLabelValues(symbol, string(action)).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordJudgment(string, models.Signal, bool) {}
func (Nop) RecordDecision(models.Signal, models.Strength, string) {}
func (Nop) RecordSignalIssued(string, models.Signal) {}
func (Nop) RecordError(string) {}
func (Nop) RecordLastPrice(string, float64) {}
func (Nop) RecordLatency(string, float64) {}
