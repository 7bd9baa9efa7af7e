// Package pipeline turns decoded broadcaster instructions into venue actions.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"signalexecutor/src/model"
	"signalexecutor/src/risk"
	"signalexecutor/src/venue"
)

// Executor runs the risk gate, sizes the position and drives the venue.
// Calls for different symbols may run concurrently; calls for the same symbol are serialised.
type Executor struct {
	logger   *logrus.Entry
	gateway  venue.Gateway
	settings Settings
	gate     *risk.Gate
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) bool

	// mu guards tracked and counters.
	mu       sync.Mutex
	tracked  map[string]model.Signal
	counters risk.DailyCounters

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewExecutor(logger *logrus.Entry, gateway venue.Gateway, settings Settings) *Executor {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	settings = settings.withDefaults()

	return &Executor{
		logger:   logger,
		gateway:  gateway,
		settings: settings,
		gate:     risk.NewGate(settings.Limits),
		now:      time.Now,
		sleep:    sleepCtx,
		tracked:  make(map[string]model.Signal),
		counters: risk.NewDailyCounters(time.Now()),
		locks:    make(map[string]*sync.Mutex),
	}
}

// lockSymbol keeps one mutex per symbol ever seen. The set is bounded by the venue's instrument list.
func (e *Executor) lockSymbol(symbol string) func() {
	e.locksMu.Lock()
	m, ok := e.locks[symbol]
	if !ok {
		m = &sync.Mutex{}
		e.locks[symbol] = m
	}
	e.locksMu.Unlock()

	m.Lock()
	return m.Unlock
}

func (e *Executor) riskSnapshot() risk.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.counters.RollOver(e.now()) {
		e.logger.Info("Daily counters reset")
	}
	return risk.Snapshot{
		TradesToday:   e.counters.TradesToday,
		OpenPositions: len(e.tracked),
		LossToday:     e.counters.LossToday,
	}
}

// ExecuteSignal opens a position for sig.
func (e *Executor) ExecuteSignal(ctx context.Context, sig model.Signal) model.TradeResult {
	log := e.logger.WithFields(logrus.Fields{
		"signal_id": sig.SignalID,
		"symbol":    sig.Symbol,
		"side":      sig.SignalType,
	})

	if !e.settings.AutoExecute {
		log.Info("Auto-execute disabled, signal not executed")
		return e.failed(model.ActionOpen, model.ReasonDisabled, sig.SignalID, sig.Symbol, "auto-execute disabled")
	}

	if sig.OrderType == model.OrderLimit && sig.EntryPrice == nil {
		log.Warn("LIMIT signal without entry price")
		return e.failed(model.ActionOpen, model.ReasonInvalid, sig.SignalID, sig.Symbol, "entry_price required for LIMIT orders")
	}

	unlock := e.lockSymbol(sig.Symbol)
	defer unlock()

	decision := e.gate.Evaluate(ctx, e.riskSnapshot(), e.gateway.AvailableBalance)
	if !decision.Allowed {
		log.WithField("reason", decision.Reason).Warn("Signal rejected by risk gate")
		return e.failed(model.ActionOpen, model.ReasonRisk, sig.SignalID, sig.Symbol, "Risk limit: "+decision.Message)
	}

	positions, err := e.gateway.OpenPositions(ctx)
	if err != nil {
		return e.venueFailure(log, model.ActionOpen, sig.SignalID, sig.Symbol, "Execution error", err)
	}
	if _, exists := venue.FindPosition(positions, sig.Symbol); exists {
		log.Warn("Position already exists, skipping signal")
		return e.failed(model.ActionOpen, model.ReasonDuplicate, sig.SignalID, sig.Symbol,
			fmt.Sprintf("Position already exists for %s", sig.Symbol))
	}

	asset, err := e.gateway.Asset(ctx, sig.Symbol)
	if err != nil {
		if venue.KindOf(err) == venue.KindNotFound {
			return e.failed(model.ActionOpen, model.ReasonInvalid, sig.SignalID, sig.Symbol,
				fmt.Sprintf("Asset %s not found", sig.Symbol))
		}
		return e.venueFailure(log, model.ActionOpen, sig.SignalID, sig.Symbol, "Execution error", err)
	}

	price := asset.MarkPrice
	if sig.OrderType == model.OrderLimit {
		price = decimal.NewFromFloat(*sig.EntryPrice)
	}
	leverage := risk.EffectiveLeverage(sig.Leverage, e.settings.MaxLeverage)

	sized, err := risk.Quantity(e.settings.TradeAmount, leverage, price, asset.QuantityStep)
	if err != nil {
		log.WithError(err).WithFields(logrus.Fields{"price": price, "step": asset.QuantityStep}).Warn("Sizing failed")
		return e.failed(model.ActionOpen, model.ReasonInvalid, sig.SignalID, sig.Symbol, fmt.Sprintf("Sizing error: %v", err))
	}

	req := venue.OrderRequest{
		Symbol:       sig.Symbol,
		Side:         venue.Side(sig.SignalType),
		Quantity:     sized.Quantity,
		QuantityText: sized.Text,
		Leverage:     leverage,
	}

	var order venue.Order
	if sig.OrderType == model.OrderLimit {
		req.Price = price
		order, err = e.gateway.CreateLimitOrder(ctx, req)
	} else {
		order, err = e.gateway.CreateMarketOrder(ctx, req)
	}
	if err != nil {
		return e.venueFailure(log, model.ActionOpen, sig.SignalID, sig.Symbol, "Execution error", err)
	}

	log.WithFields(logrus.Fields{
		"order_id": order.OrderID,
		"qty":      sized.Text,
		"price":    price.String(),
		"leverage": leverage,
	}).Info("Order placed")

	if sig.HasRiskOrder() {
		e.attachRiskOrder(ctx, log, sig)
	}

	e.mu.Lock()
	e.tracked[sig.SignalID] = sig
	e.counters.RecordTrade()
	e.mu.Unlock()

	msg := fmt.Sprintf("Order placed: %s %s @ %s", sig.SignalType, sized.Text, price.String())
	return model.Succeeded(model.ActionOpen, sig.SignalID, sig.Symbol, msg, e.now()).
		WithFill(order.OrderID, price, sized.Quantity)
}

// attachRiskOrder waits for the venue to report the new position, then sets SL/TP.
// The entry order stands whatever happens here.
func (e *Executor) attachRiskOrder(ctx context.Context, log *logrus.Entry, sig model.Signal) {
	sl, tp := decimalPtr(sig.StopLoss), decimalPtr(sig.TakeProfit)

	for attempt := 1; attempt <= e.settings.RiskOrderAttempts; attempt++ {
		if !e.sleep(ctx, e.settings.RiskOrderDelay) {
			log.Warn("Context done before SL/TP could be attached")
			return
		}

		positions, err := e.gateway.OpenPositions(ctx)
		if err != nil {
			log.WithError(err).WithField("attempt", attempt).Warn("Position lookup for SL/TP failed")
			continue
		}
		pos, ok := venue.FindPosition(positions, sig.Symbol)
		if !ok {
			log.WithField("attempt", attempt).Debug("Position not visible yet")
			continue
		}

		if err := e.gateway.SetRiskOrder(ctx, pos.PositionID, sl, tp); err != nil {
			log.WithError(err).WithField("position_id", pos.PositionID).Error("Failed to set SL/TP")
			return
		}
		log.WithField("position_id", pos.PositionID).Info("SL/TP attached")
		return
	}

	log.WithField("attempts", e.settings.RiskOrderAttempts).Warn("Position not found after order, SL/TP not attached")
}

func (e *Executor) failed(action model.Action, reason model.Reason, signalID, symbol, msg string) model.TradeResult {
	return model.Failed(action, reason, signalID, symbol, msg, e.now())
}

func (e *Executor) venueFailure(log *logrus.Entry, action model.Action, signalID, symbol, prefix string, err error) model.TradeResult {
	log.WithError(err).WithField("kind", venue.KindOf(err)).Error(prefix)
	return e.failed(action, model.ReasonVenue, signalID, symbol, fmt.Sprintf("%s: %v", prefix, err))
}

func decimalPtr(v *float64) *decimal.Decimal {
	if v == nil {
		return nil
	}
	d := decimal.NewFromFloat(*v)
	return &d
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
