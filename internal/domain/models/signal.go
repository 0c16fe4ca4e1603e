package models

import "strings"

// Signal is a directional vote emitted by an agent or a decision layer.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalHold Signal = "HOLD"
	SignalSell Signal = "SELL"
)

// Signals lists every vote label in tie-break preference order.
var Signals = []Signal{SignalBuy, SignalSell, SignalHold}

// ParseSignal normalizes free-form labels. Unknown values map to HOLD with ok=false.
func ParseSignal(s string) (Signal, bool) {
	switch Signal(strings.ToUpper(strings.TrimSpace(s))) {
	case SignalBuy:
		return SignalBuy, true
	case SignalSell:
		return SignalSell, true
	case SignalHold:
		return SignalHold, true
	default:
		return SignalHold, false
	}
}

func (s Signal) Valid() bool {
	return s == SignalBuy || s == SignalSell || s == SignalHold
}

// Strength classifies how strongly the judgments agree.
type Strength string

const (
	StrengthStrong   Strength = "STRONG"
	StrengthModerate Strength = "MODERATE"
	StrengthWeak     Strength = "WEAK"
)

func ParseStrength(s string) (Strength, bool) {
	switch Strength(strings.ToUpper(strings.TrimSpace(s))) {
	case StrengthStrong:
		return StrengthStrong, true
	case StrengthModerate:
		return StrengthModerate, true
	case StrengthWeak:
		return StrengthWeak, true
	default:
		return StrengthWeak, false
	}
}

// VoteCounts holds per-label counts.
type VoteCounts struct {
	Buy  int `json:"BUY"`
	Hold int `json:"HOLD"`
	Sell int `json:"SELL"`
}

func (v *VoteCounts) Add(s Signal) {
	switch s {
	case SignalBuy:
		v.Buy++
	case SignalSell:
		v.Sell++
	case SignalHold:
		v.Hold++
	}
}

func (v VoteCounts) Total() int { return v.Buy + v.Hold + v.Sell }
