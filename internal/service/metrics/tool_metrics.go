package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	ToolLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "magi",
			Subsystem: "tools",
			Name:      "latency_seconds",
			Help:      "Latency of tool executions",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"tool"},
	)

	ToolCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "magi",
			Subsystem: "tools",
			Name:      "calls_total",
			Help:      "Tool executions by result (ok, cached, error, unknown)",
		},
		[]string{"tool", "result"},
	)

	LoopRounds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "magi",
			Subsystem: "toolloop",
			Name:      "rounds",
			Help:      "Model round-trips per tool loop",
			Buckets:   []float64{1, 2, 3, 4, 5, 8},
		},
		[]string{"agent"},
	)

	LoopExhausted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "magi",
			Subsystem: "toolloop",
			Name:      "exhausted_total",
			Help:      "Tool loops that hit the round bound without an answer",
		},
		[]string{"agent"},
	)
)

// Register adds the collectors to the default registry once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(ToolLatency, ToolCalls, LoopRounds, LoopExhausted)
	})
}

// ObserveTool records one tool execution.
func ObserveTool(tool, result string, started time.Time) {
	ToolCalls.WithLabelValues(tool, result).Inc()
	ToolLatency.WithLabelValues(tool).Observe(time.Since(started).Seconds())
}

// ObserveLoop records how many rounds a loop took and whether it hit the bound.
func ObserveLoop(agent string, rounds int, exhausted bool) {
	LoopRounds.WithLabelValues(agent).Observe(float64(rounds))
	if exhausted {
		LoopExhausted.WithLabelValues(agent).Inc()
	}
}
