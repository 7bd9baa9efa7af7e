// Package venue describes the trading venue the pipeline drives.
package venue

import (
	"context"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Position is an open position as reported by the venue.
type Position struct {
	PositionID    string
	Symbol        string
	Side          Side
	Quantity      decimal.Decimal
	EntryPrice    decimal.Decimal
	UnrealizedPnL decimal.Decimal
}

// Asset holds the per-instrument constraints used for sizing.
type Asset struct {
	AssetID      string
	Symbol       string
	MarkPrice    decimal.Decimal
	QuantityStep decimal.Decimal
}

type OrderRequest struct {
	Symbol   string
	Side     Side
	Quantity decimal.Decimal
	Leverage int

	// QuantityText is Quantity formatted to the asset step. Sent as is when set.
	QuantityText string

	// Price is only used for limit orders.
	Price decimal.Decimal
}

// PartialClose reduces an open position by Quantity.
type PartialClose struct {
	PositionID string
	Quantity   decimal.Decimal

	// QuantityText is Quantity formatted to the asset step. Sent as is when set.
	QuantityText string
}

type Order struct {
	OrderID string
}

// Gateway is the set of venue calls the pipeline depends on. Callers never retry these calls.
type Gateway interface {
	AvailableBalance(ctx context.Context) (decimal.Decimal, error)
	OpenPositions(ctx context.Context) ([]Position, error)
	Asset(ctx context.Context, symbol string) (Asset, error)
	CreateMarketOrder(ctx context.Context, req OrderRequest) (Order, error)
	CreateLimitOrder(ctx context.Context, req OrderRequest) (Order, error)
	ClosePosition(ctx context.Context, positionID string) error
	ClosePositionPartial(ctx context.Context, req PartialClose) error
	// SetRiskOrder attaches stop-loss and take-profit. A nil value leaves the venue side untouched.
	SetRiskOrder(ctx context.Context, positionID string, stopLoss, takeProfit *decimal.Decimal) error
}

// LeverageSetter is implemented by gateways able to change the leverage of an open position.
type LeverageSetter interface {
	SetLeverage(ctx context.Context, symbol string, leverage int) error
}

// FindPosition returns the first position for symbol.
func FindPosition(positions []Position, symbol string) (Position, bool) {
	for _, p := range positions {
		if p.Symbol == symbol {
			return p, true
		}
	}
	return Position{}, false
}
