package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Action names the pipeline entry point that produced a result.
type Action string

const (
	ActionOpen     Action = "open"
	ActionClose    Action = "close"
	ActionEditSLTP Action = "edit_sltp"
	ActionLeverage Action = "leverage"
)

// Reason categorises a failed result. Successful results carry ReasonNone.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonDisabled     Reason = "disabled"
	ReasonRisk         Reason = "risk"
	ReasonDuplicate    Reason = "duplicate"
	ReasonNoPosition   Reason = "no_position"
	ReasonNotSupported Reason = "not_supported"
	ReasonInvalid      Reason = "invalid"
	ReasonVenue        Reason = "venue"
)

// TradeResult is the outcome of one processed instruction.
type TradeResult struct {
	SignalID   string
	Symbol     string
	Action     Action
	Success    bool
	Reason     Reason
	Message    string
	OrderID    string
	ExecutedAt time.Time
	EntryPrice *decimal.Decimal
	Quantity   *decimal.Decimal
}

// Succeeded builds a successful result.
func Succeeded(action Action, signalID, symbol, message string, at time.Time) TradeResult {
	return TradeResult{
		SignalID:   signalID,
		Symbol:     symbol,
		Action:     action,
		Success:    true,
		Message:    message,
		ExecutedAt: at,
	}
}

// Failed builds a failed result with its category.
func Failed(action Action, reason Reason, signalID, symbol, message string, at time.Time) TradeResult {
	return TradeResult{
		SignalID:   signalID,
		Symbol:     symbol,
		Action:     action,
		Success:    false,
		Reason:     reason,
		Message:    message,
		ExecutedAt: at,
	}
}

// WithFill returns a copy carrying the venue order id and the resolved fill inputs.
func (r TradeResult) WithFill(orderID string, entryPrice, quantity decimal.Decimal) TradeResult {
	r.OrderID = orderID
	r.EntryPrice = &entryPrice
	r.Quantity = &quantity
	return r
}
