package model

import "time"

type SignalType string

const (
	SignalLong  SignalType = "LONG"
	SignalShort SignalType = "SHORT"
)

func (s SignalType) Valid() bool {
	return s == SignalLong || s == SignalShort
}

type OrderType string

const (
	OrderMarket OrderType = "MARKET"
	OrderLimit  OrderType = "LIMIT"
)

func (o OrderType) Valid() bool {
	return o == OrderMarket || o == OrderLimit
}

type SignalStatus string

const (
	StatusActive SignalStatus = "ACTIVE"
	StatusClosed SignalStatus = "CLOSED"
)

// Signal is a new trade instruction pushed by the broadcaster.
// EntryPrice is mandatory for LIMIT orders and ignored for MARKET orders.
type Signal struct {
	SignalID   string       `json:"signal_id"`
	Symbol     string       `json:"symbol"`
	SignalType SignalType   `json:"signal_type"`
	OrderType  OrderType    `json:"order_type"`
	EntryPrice *float64     `json:"entry_price,omitempty"`
	StopLoss   *float64     `json:"stop_loss,omitempty"`
	TakeProfit *float64     `json:"take_profit,omitempty"`
	Leverage   int          `json:"leverage"`
	Status     SignalStatus `json:"status"`
	CreatedAt  *time.Time   `json:"created_at,omitempty"`
	UpdatedAt  *time.Time   `json:"updated_at,omitempty"`
}

// HasRiskOrder reports whether the signal asks for a stop-loss or take-profit.
func (s Signal) HasRiskOrder() bool {
	return s.StopLoss != nil || s.TakeProfit != nil
}

// CloseCommand closes a share of the position opened by a previous signal.
type CloseCommand struct {
	SignalID   string  `json:"signal_id"`
	Symbol     string  `json:"symbol"`
	Percentage float64 `json:"percentage"`
}

// IsFull reports whether the command asks for the whole position.
func (c CloseCommand) IsFull() bool {
	return c.Percentage >= 100
}

// EditSLTPCommand moves the risk orders of an open position. Nil keeps the venue value.
type EditSLTPCommand struct {
	SignalID   string   `json:"signal_id"`
	Symbol     string   `json:"symbol"`
	StopLoss   *float64 `json:"stop_loss,omitempty"`
	TakeProfit *float64 `json:"take_profit,omitempty"`
}

type LeverageCommand struct {
	SignalID string `json:"signal_id"`
	Symbol   string `json:"symbol"`
	Leverage int    `json:"leverage"`
}
