package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ----- limits -----

// Limits are the pre-trade checks configured for the account.
// StopOnDailyLoss is ignored unless positive.
type Limits struct {
	Enabled          bool
	MaxDailyTrades   int
	MaxOpenPositions int
	StopOnDailyLoss  decimal.Decimal
	MinBalance       decimal.Decimal
}

// DefaultLimits leave every check effectively open.
func DefaultLimits() Limits {
	return Limits{
		Enabled:          true,
		MaxDailyTrades:   999999,
		MaxOpenPositions: 999999,
		StopOnDailyLoss:  decimal.Zero,
		MinBalance:       decimal.Zero,
	}
}

// ----- daily counters -----

// DailyCounters accumulate per calendar day. Callers hold their own lock.
type DailyCounters struct {
	TradesToday int
	LossToday   decimal.Decimal
	LastReset   time.Time
}

func NewDailyCounters(now time.Time) DailyCounters {
	return DailyCounters{LossToday: decimal.Zero, LastReset: now}
}

// RollOver zeroes the counters when now falls on a different date than the last reset.
// It reports whether a reset happened.
func (c *DailyCounters) RollOver(now time.Time) bool {
	y1, m1, d1 := c.LastReset.Date()
	y2, m2, d2 := now.In(c.LastReset.Location()).Date()
	if y1 == y2 && m1 == m2 && d1 == d2 {
		return false
	}
	c.TradesToday = 0
	c.LossToday = decimal.Zero
	c.LastReset = now
	return true
}

func (c *DailyCounters) RecordTrade() {
	c.TradesToday++
}

// RecordLoss adds a positive loss amount. Gains and zero are ignored.
func (c *DailyCounters) RecordLoss(amount decimal.Decimal) {
	if amount.IsPositive() {
		c.LossToday = c.LossToday.Add(amount)
	}
}

// ----- gate -----

type Reason int

const (
	ReasonNone Reason = iota
	ReasonTradingDisabled
	ReasonDailyTradeLimit
	ReasonMaxOpenPositions
	ReasonDailyLossLimit
	ReasonLowBalance
	ReasonBalanceUnavailable
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonTradingDisabled:
		return "trading_disabled"
	case ReasonDailyTradeLimit:
		return "daily_trade_limit"
	case ReasonMaxOpenPositions:
		return "max_open_positions"
	case ReasonDailyLossLimit:
		return "daily_loss_limit"
	case ReasonLowBalance:
		return "low_balance"
	case ReasonBalanceUnavailable:
		return "balance_unavailable"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// Snapshot is the local state the gate reads.
type Snapshot struct {
	TradesToday   int
	OpenPositions int
	LossToday     decimal.Decimal
}

type Decision struct {
	Allowed bool
	Reason  Reason
	Message string
	Balance decimal.Decimal
	Err     error
}

// BalanceFunc fetches the available balance. It is only called when every local check passed.
type BalanceFunc func(ctx context.Context) (decimal.Decimal, error)

type Gate struct {
	Limits Limits
}

func NewGate(limits Limits) *Gate {
	return &Gate{Limits: limits}
}

// Evaluate runs the checks in order and stops at the first one that fails.
func (g *Gate) Evaluate(ctx context.Context, snap Snapshot, balance BalanceFunc) Decision {
	l := g.Limits

	if !l.Enabled {
		return deny(ReasonTradingDisabled, "Trading is disabled in config")
	}
	if snap.TradesToday >= l.MaxDailyTrades {
		return deny(ReasonDailyTradeLimit, fmt.Sprintf("Daily trade limit reached (%d)", l.MaxDailyTrades))
	}
	if snap.OpenPositions >= l.MaxOpenPositions {
		return deny(ReasonMaxOpenPositions, fmt.Sprintf("Max open positions reached (%d)", l.MaxOpenPositions))
	}
	if l.StopOnDailyLoss.IsPositive() && snap.LossToday.GreaterThanOrEqual(l.StopOnDailyLoss) {
		return deny(ReasonDailyLossLimit, fmt.Sprintf("Daily loss limit reached (%s USDT)", snap.LossToday.StringFixed(2)))
	}

	bal, err := balance(ctx)
	if err != nil {
		d := deny(ReasonBalanceUnavailable, fmt.Sprintf("Failed to check balance: %v", err))
		d.Err = err
		return d
	}
	if bal.LessThan(l.MinBalance) {
		d := deny(ReasonLowBalance, fmt.Sprintf("Balance too low (%s < %s USDT)", bal.StringFixed(2), l.MinBalance.StringFixed(2)))
		d.Balance = bal
		return d
	}

	return Decision{Allowed: true, Reason: ReasonNone, Balance: bal}
}

func deny(reason Reason, msg string) Decision {
	return Decision{Allowed: false, Reason: reason, Message: msg}
}
