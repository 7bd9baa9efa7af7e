package pipeline

import (
	"time"

	"github.com/shopspring/decimal"

	"signalexecutor/src/risk"
)

const (
	DefaultRiskOrderDelay    = 2 * time.Second
	DefaultRiskOrderAttempts = 3
)

// Settings are the trading knobs the executor runs with.
type Settings struct {
	AutoExecute bool
	TradeAmount decimal.Decimal
	MaxLeverage int
	Limits      risk.Limits

	// RiskOrderDelay is the wait before each lookup of a freshly opened position,
	// RiskOrderAttempts bounds the number of lookups.
	RiskOrderDelay    time.Duration
	RiskOrderAttempts int
}

func DefaultSettings() Settings {
	return Settings{
		AutoExecute:       true,
		TradeAmount:       decimal.NewFromInt(5),
		MaxLeverage:       25,
		Limits:            risk.DefaultLimits(),
		RiskOrderDelay:    DefaultRiskOrderDelay,
		RiskOrderAttempts: DefaultRiskOrderAttempts,
	}
}

func (s Settings) withDefaults() Settings {
	if s.RiskOrderDelay <= 0 {
		s.RiskOrderDelay = DefaultRiskOrderDelay
	}
	if s.RiskOrderAttempts <= 0 {
		s.RiskOrderAttempts = DefaultRiskOrderAttempts
	}
	return s
}
