package pipeline

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"signalexecutor/src/model"
)

// Status is a point-in-time view of the executor's bookkeeping.
type Status struct {
	AutoExecute   bool            `json:"auto_execute"`
	TradesToday   int             `json:"trades_today"`
	LossToday     decimal.Decimal `json:"loss_today"`
	LastReset     time.Time       `json:"last_reset"`
	OpenSignals   []model.Signal  `json:"open_signals"`
	OpenPositions int             `json:"open_positions"`
}

// Snapshot returns the tracked signals, ordered by signal id, and the daily counters.
func (e *Executor) Snapshot() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.counters.RollOver(e.now())

	open := make([]model.Signal, 0, len(e.tracked))
	for _, s := range e.tracked {
		open = append(open, s)
	}
	sort.Slice(open, func(i, j int) bool { return open[i].SignalID < open[j].SignalID })

	return Status{
		AutoExecute:   e.settings.AutoExecute,
		TradesToday:   e.counters.TradesToday,
		LossToday:     e.counters.LossToday,
		LastReset:     e.counters.LastReset,
		OpenSignals:   open,
		OpenPositions: len(open),
	}
}
