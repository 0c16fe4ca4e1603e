package indicators

import (
	"math"
	"sync"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/cinar/indicator/v2/volatility"
)

// SMA returns the simple moving average series of values. Element i of the
// result corresponds to values[i+period-1]. Nil when there is not enough data.
func SMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	return helper.ChanToSlice(trend.NewSmaWithPeriod[float64](period).Compute(helper.SliceToChan(values)))
}

// EMA returns the exponential moving average seeded with the SMA of the first
// period values. Alignment matches SMA.
func EMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	return helper.ChanToSlice(trend.NewEmaWithPeriod[float64](period).Compute(helper.SliceToChan(values)))
}

// RSI returns Wilder's relative strength index, one value per close after the
// first period. A window with no movement reads 50.
func RSI(closes []float64, period int) []float64 {
	if period <= 0 || len(closes) <= period {
		return nil
	}
	out := helper.ChanToSlice(momentum.NewRsiWithPeriod[float64](period).Compute(helper.SliceToChan(closes)))
	for i, v := range out {
		if math.IsNaN(v) {
			out[i] = 50
		}
	}
	return out
}

// MACDPoint is one MACD observation.
type MACDPoint struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// MACD computes the fast/slow EMA difference and its signal EMA.
// The result starts at the first bar where the signal line exists.
func MACD(closes []float64, fast, slow, signal int) []MACDPoint {
	if fast <= 0 || slow <= fast || signal <= 0 || len(closes) < slow+signal-1 {
		return nil
	}
	line, sig := trend.NewMacdWithPeriod[float64](fast, slow, signal).Compute(helper.SliceToChan(closes))
	series := collect(line, sig)
	lines, sigs := tail(series[0], series[1])

	out := make([]MACDPoint, len(sigs))
	for i := range sigs {
		out[i] = MACDPoint{MACD: lines[i], Signal: sigs[i], Histogram: lines[i] - sigs[i]}
	}
	return out
}

// Band is one Bollinger observation. PB is where the close sits inside the band.
type Band struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
	PB     float64 `json:"pb"`
}

// Bollinger computes bands two standard deviations around the period SMA.
func Bollinger(closes []float64, period int) []Band {
	if period <= 0 || len(closes) < period {
		return nil
	}
	upper, middle, lower := volatility.NewBollingerBandsWithPeriod[float64](period).Compute(helper.SliceToChan(closes))
	series := collect(upper, middle, lower)
	n := min(len(series[0]), len(series[1]), len(series[2]))

	out := make([]Band, n)
	offset := len(closes) - n
	for i := range out {
		b := Band{
			Upper:  series[0][len(series[0])-n+i],
			Middle: series[1][len(series[1])-n+i],
			Lower:  series[2][len(series[2])-n+i],
		}
		if width := b.Upper - b.Lower; width > 0 {
			b.PB = (closes[offset+i] - b.Lower) / width
		}
		out[i] = b
	}
	return out
}

// collect drains the outputs of one computation together; they share an
// upstream fan-out, so reading one to the end first would stall the other.
func collect(chans ...<-chan float64) [][]float64 {
	out := make([][]float64, len(chans))
	var wg sync.WaitGroup
	for i, c := range chans {
		wg.Add(1)
		go func(i int, c <-chan float64) {
			defer wg.Done()
			out[i] = helper.ChanToSlice(c)
		}(i, c)
	}
	wg.Wait()
	return out
}

// tail trims a and b to their common trailing length so index i refers to the same bar.
func tail(a, b []float64) ([]float64, []float64) {
	n := min(len(a), len(b))
	return a[len(a)-n:], b[len(b)-n:]
}

func last(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[len(values)-1]
}
