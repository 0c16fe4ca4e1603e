// Package indicators computes the technical report used by the analysis tools.
package indicators

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dogmaai/magi-decision/internal/domain/models"
)

// Indicator parameters.
const (
	RSIPeriod     = 14
	RSIOverbought = 70.0
	RSIOversold   = 30.0
	MACDFast      = 12
	MACDSlow      = 26
	MACDSignal    = 9
	SMAShort      = 20
	SMALong       = 50
	BBPeriod      = 20
	VolWindow     = 20

	// MinHistory is the number of closes needed for every indicator.
	MinHistory = SMALong
)

// ErrInsufficientHistory matches InsufficientHistoryError with errors.Is.
var ErrInsufficientHistory = errors.New("insufficient history")

// InsufficientHistoryError reports how many closes were missing.
type InsufficientHistoryError struct {
	Symbol string
	Need   int
	Have   int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("historical data for %s is insufficient for analysis: need %d closes, have %d", e.Symbol, e.Need, e.Have)
}

func (e *InsufficientHistoryError) Is(target error) bool { return target == ErrInsufficientHistory }

// Sub-signal labels.
const (
	Neutral     = "NEUTRAL"
	Overbought  = "OVERBOUGHT"
	Oversold    = "OVERSOLD"
	Bullish     = "BULLISH_TREND"
	Bearish     = "BEARISH_TREND"
	GoldenCross = "GOLDEN_CROSS"
	DeadCross   = "DEAD_CROSS"

	StrongBuy  = "STRONG_BUY"
	Buy        = "BUY"
	Sell       = "SELL"
	StrongSell = "STRONG_SELL"
)

type RSIReading struct {
	Value  float64 `json:"value"`
	Signal string  `json:"signal"`
}

type MACDReading struct {
	MACDPoint
	Trend string `json:"trend"`
}

type SMAReading struct {
	Short  float64 `json:"short"`
	Long   float64 `json:"long"`
	Signal string  `json:"signal"`
}

// Report is the latest reading of every indicator plus the aggregate call.
type Report struct {
	Symbol        string      `json:"symbol"`
	CurrentPrice  float64     `json:"currentPrice"`
	AsOf          time.Time   `json:"asOf"`
	Bars          int         `json:"bars"`
	RSI           RSIReading  `json:"rsi"`
	MACD          MACDReading `json:"macd"`
	SMA           SMAReading  `json:"sma"`
	Bollinger     Band        `json:"bollinger"`
	Volatility    float64     `json:"annualizedVolatility"`
	Score         int         `json:"score"`
	OverallSignal string      `json:"overallSignal"`
}

// Evaluate builds a Report from daily candles ordered oldest first.
// It never returns a partial report.
func Evaluate(symbol string, candles []models.Candle) (Report, error) {
	closes := Closes(candles)
	if len(closes) < MinHistory {
		return Report{}, &InsufficientHistoryError{Symbol: symbol, Need: MinHistory, Have: len(closes)}
	}

	rsi := last(RSI(closes, RSIPeriod))
	macdSeries := MACD(closes, MACDFast, MACDSlow, MACDSignal)
	bands := Bollinger(closes, BBPeriod)
	smaShort := last(SMA(closes, SMAShort))
	smaLong := last(SMA(closes, SMALong))
	if len(macdSeries) == 0 || len(bands) == 0 || math.IsNaN(rsi) || math.IsNaN(smaShort) || math.IsNaN(smaLong) {
		return Report{}, &InsufficientHistoryError{Symbol: symbol, Need: MinHistory, Have: len(closes)}
	}
	macd := macdSeries[len(macdSeries)-1]

	r := Report{
		Symbol:       symbol,
		CurrentPrice: closes[len(closes)-1],
		Bars:         len(closes),
		RSI:          RSIReading{Value: rsi, Signal: rsiSignal(rsi)},
		MACD:         MACDReading{MACDPoint: macd, Trend: macdTrend(macd)},
		SMA:          SMAReading{Short: smaShort, Long: smaLong, Signal: smaSignal(smaShort, smaLong)},
		Bollinger:    bands[len(bands)-1],
		Volatility:   RealizedVolatility(LogReturns(closes), VolWindow, TradingDaysPerYear),
	}
	if n := len(candles); n > 0 {
		r.AsOf = candles[n-1].Bucket
	}

	r.Score = vote(r.RSI.Signal == Oversold, r.RSI.Signal == Overbought) +
		vote(r.MACD.Trend == Bullish, r.MACD.Trend == Bearish) +
		vote(r.SMA.Signal == GoldenCross, r.SMA.Signal == DeadCross)
	r.OverallSignal = ScoreSignal(r.Score)
	return r, nil
}

// ScoreSignal maps a score in [-3,3] to the five-level call.
func ScoreSignal(score int) string {
	switch {
	case score >= 2:
		return StrongBuy
	case score == 1:
		return Buy
	case score <= -2:
		return StrongSell
	case score == -1:
		return Sell
	default:
		return Neutral
	}
}

func rsiSignal(v float64) string {
	switch {
	case v >= RSIOverbought:
		return Overbought
	case v <= RSIOversold:
		return Oversold
	default:
		return Neutral
	}
}

func macdTrend(p MACDPoint) string {
	switch {
	case p.MACD > p.Signal:
		return Bullish
	case p.MACD < p.Signal:
		return Bearish
	default:
		return Neutral
	}
}

func smaSignal(short, long float64) string {
	switch {
	case short > long:
		return GoldenCross
	case short < long:
		return DeadCross
	default:
		return Neutral
	}
}

func vote(buy, sell bool) int {
	switch {
	case buy:
		return 1
	case sell:
		return -1
	default:
		return 0
	}
}
