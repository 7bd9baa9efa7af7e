package pipeline

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"signalexecutor/src/model"
	"signalexecutor/src/risk"
	"signalexecutor/src/venue"
)

// ClosePosition closes cmd.Percentage of the open position on cmd.Symbol.
// Closing a symbol with no open position fails without touching any counter.
func (e *Executor) ClosePosition(ctx context.Context, cmd model.CloseCommand) model.TradeResult {
	log := e.logger.WithFields(logrus.Fields{
		"signal_id":  cmd.SignalID,
		"symbol":     cmd.Symbol,
		"percentage": cmd.Percentage,
	})

	unlock := e.lockSymbol(cmd.Symbol)
	defer unlock()

	pos, res, ok := e.findOpen(ctx, log, model.ActionClose, cmd.SignalID, cmd.Symbol, "Close error")
	if !ok {
		return res
	}

	msg := fmt.Sprintf("Position closed (%s%%)", formatPercent(cmd.Percentage))

	if cmd.IsFull() {
		if err := e.gateway.ClosePosition(ctx, pos.PositionID); err != nil {
			return e.venueFailure(log, model.ActionClose, cmd.SignalID, cmd.Symbol, "Close error", err)
		}

		e.mu.Lock()
		delete(e.tracked, cmd.SignalID)
		e.counters.RollOver(e.now())
		if pos.UnrealizedPnL.IsNegative() {
			e.counters.RecordLoss(pos.UnrealizedPnL.Neg())
		}
		e.mu.Unlock()

		log.WithFields(logrus.Fields{"position_id": pos.PositionID, "pnl": pos.UnrealizedPnL}).Info("Position closed")
		res = model.Succeeded(model.ActionClose, cmd.SignalID, cmd.Symbol, msg, e.now())
		res.Quantity = &pos.Quantity
		return res
	}

	asset, err := e.gateway.Asset(ctx, cmd.Symbol)
	if err != nil {
		return e.venueFailure(log, model.ActionClose, cmd.SignalID, cmd.Symbol, "Close error", err)
	}

	sized, err := risk.RoundToStep(risk.PercentOf(pos.Quantity, cmd.Percentage), asset.QuantityStep)
	if err != nil {
		log.WithError(err).WithField("qty", pos.Quantity).Warn("Partial close size invalid")
		return e.failed(model.ActionClose, model.ReasonInvalid, cmd.SignalID, cmd.Symbol, fmt.Sprintf("Close error: %v", err))
	}

	partial := venue.PartialClose{PositionID: pos.PositionID, Quantity: sized.Quantity, QuantityText: sized.Text}
	if err := e.gateway.ClosePositionPartial(ctx, partial); err != nil {
		return e.venueFailure(log, model.ActionClose, cmd.SignalID, cmd.Symbol, "Close error", err)
	}

	log.WithFields(logrus.Fields{"position_id": pos.PositionID, "qty": sized.Text}).Info("Position partially closed")
	res = model.Succeeded(model.ActionClose, cmd.SignalID, cmd.Symbol, msg, e.now())
	res.Quantity = &sized.Quantity
	return res
}

// UpdateSLTP replaces the stop-loss and/or take-profit of the open position on cmd.Symbol.
func (e *Executor) UpdateSLTP(ctx context.Context, cmd model.EditSLTPCommand) model.TradeResult {
	log := e.logger.WithFields(logrus.Fields{"signal_id": cmd.SignalID, "symbol": cmd.Symbol})

	unlock := e.lockSymbol(cmd.Symbol)
	defer unlock()

	pos, res, ok := e.findOpen(ctx, log, model.ActionEditSLTP, cmd.SignalID, cmd.Symbol, "Update error")
	if !ok {
		return res
	}

	sl, tp := decimalPtr(cmd.StopLoss), decimalPtr(cmd.TakeProfit)
	if err := e.gateway.SetRiskOrder(ctx, pos.PositionID, sl, tp); err != nil {
		return e.venueFailure(log, model.ActionEditSLTP, cmd.SignalID, cmd.Symbol, "Update error", err)
	}

	e.mu.Lock()
	if sig, tracked := e.tracked[cmd.SignalID]; tracked {
		if cmd.StopLoss != nil {
			sig.StopLoss = cmd.StopLoss
		}
		if cmd.TakeProfit != nil {
			sig.TakeProfit = cmd.TakeProfit
		}
		e.tracked[cmd.SignalID] = sig
	}
	e.mu.Unlock()

	msg := fmt.Sprintf("SL/TP updated: SL=%s, TP=%s", priceOrUnchanged(sl), priceOrUnchanged(tp))
	log.WithField("position_id", pos.PositionID).Info(msg)
	return model.Succeeded(model.ActionEditSLTP, cmd.SignalID, cmd.Symbol, msg, e.now())
}

// UpdateLeverage changes the leverage on cmd.Symbol when the venue supports it.
func (e *Executor) UpdateLeverage(ctx context.Context, cmd model.LeverageCommand) model.TradeResult {
	log := e.logger.WithFields(logrus.Fields{
		"signal_id": cmd.SignalID,
		"symbol":    cmd.Symbol,
		"leverage":  cmd.Leverage,
	})

	unlock := e.lockSymbol(cmd.Symbol)
	defer unlock()

	if _, res, ok := e.findOpen(ctx, log, model.ActionLeverage, cmd.SignalID, cmd.Symbol, "Leverage error"); !ok {
		return res
	}

	setter, ok := e.gateway.(venue.LeverageSetter)
	if !ok {
		log.Warn("Leverage update not supported by venue")
		return e.failed(model.ActionLeverage, model.ReasonNotSupported, cmd.SignalID, cmd.Symbol, "leverage update not supported")
	}

	leverage := risk.EffectiveLeverage(cmd.Leverage, e.settings.MaxLeverage)
	if err := setter.SetLeverage(ctx, cmd.Symbol, leverage); err != nil {
		return e.venueFailure(log, model.ActionLeverage, cmd.SignalID, cmd.Symbol, "Leverage error", err)
	}

	e.mu.Lock()
	if sig, tracked := e.tracked[cmd.SignalID]; tracked {
		sig.Leverage = leverage
		e.tracked[cmd.SignalID] = sig
	}
	e.mu.Unlock()

	msg := fmt.Sprintf("Leverage updated to %dx", leverage)
	log.Info(msg)
	return model.Succeeded(model.ActionLeverage, cmd.SignalID, cmd.Symbol, msg, e.now())
}

// findOpen looks up the venue position for symbol. When ok is false res holds the failure to return.
func (e *Executor) findOpen(ctx context.Context, log *logrus.Entry, action model.Action, signalID, symbol, prefix string) (pos venue.Position, res model.TradeResult, ok bool) {
	positions, err := e.gateway.OpenPositions(ctx)
	if err != nil {
		return pos, e.venueFailure(log, action, signalID, symbol, prefix, err), false
	}

	pos, ok = venue.FindPosition(positions, symbol)
	if !ok {
		log.Info("No open position")
		return pos, e.failed(action, model.ReasonNoPosition, signalID, symbol, fmt.Sprintf("No open position for %s", symbol)), false
	}
	return pos, res, true
}

func formatPercent(p float64) string {
	if p > 100 {
		p = 100
	}
	return strconv.FormatFloat(p, 'f', -1, 64)
}

func priceOrUnchanged(d *decimal.Decimal) string {
	if d == nil {
		return "unchanged"
	}
	return d.String()
}
