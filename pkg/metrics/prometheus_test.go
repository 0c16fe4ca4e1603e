package metrics

import (
	"testing"

	"github.com/dogmaai/magi-decision/internal/domain/models"
	"github.com/dogmaai/magi-decision/internal/domain/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ repository.Metrics = (*Recorder)(nil)
	_ repository.Metrics = Nop{}
)

func gathered(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue next
				}
			}
			if c := m.GetCounter(); c != nil {
				return c.GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	return 0
}

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWith(reg)

	r.RecordJudgment("B2", models.SignalBuy, false)
	r.RecordJudgment("B2", models.SignalBuy, false)
	r.RecordJudgment("C3", models.SignalHold, true)
	r.RecordSignalIssued("AAPL", models.SignalBuy)
	r.RecordLastPrice("AAPL", 190.5)

	assert.Equal(t, 2.0, gathered(t, reg, "magi_judgments_total", map[string]string{"unit": "B2", "outcome": "ok"}))
	assert.Equal(t, 1.0, gathered(t, reg, "magi_judgments_total", map[string]string{"unit": "C3", "outcome": "failed"}))
	assert.Equal(t, 1.0, gathered(t, reg, "magi_trade_signals_total", map[string]string{"symbol": "AAPL", "action": "BUY"}))
	assert.Equal(t, 190.5, gathered(t, reg, "magi_last_price", map[string]string{"symbol": "AAPL"}))
}
