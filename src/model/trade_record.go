package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeRecord is the journal row written for every TradeResult.
type TradeRecord struct {
	ID         string              `gorm:"primaryKey;size:26" json:"id"`
	SignalID   string              `gorm:"size:100;index" json:"signal_id"`
	Symbol     string              `gorm:"size:50;index" json:"symbol"`
	Action     Action              `gorm:"size:20" json:"action"`
	Success    bool                `json:"success"`
	Reason     Reason              `gorm:"size:30" json:"reason,omitempty"`
	Message    string              `gorm:"type:text" json:"message"`
	OrderID    string              `gorm:"size:100" json:"order_id,omitempty"`
	EntryPrice decimal.NullDecimal `gorm:"type:numeric" json:"entry_price"`
	Quantity   decimal.NullDecimal `gorm:"type:numeric" json:"quantity"`
	ExecutedAt time.Time           `gorm:"not null;index" json:"executed_at"`
}

func (TradeRecord) TableName() string {
	return "trade_records"
}

// NewTradeRecord converts a result into a journal row with a fresh id.
func NewTradeRecord(r TradeResult) *TradeRecord {
	rec := &TradeRecord{
		ID:         NewID(r.ExecutedAt),
		SignalID:   r.SignalID,
		Symbol:     r.Symbol,
		Action:     r.Action,
		Success:    r.Success,
		Reason:     r.Reason,
		Message:    r.Message,
		OrderID:    r.OrderID,
		ExecutedAt: r.ExecutedAt,
	}
	if r.EntryPrice != nil {
		rec.EntryPrice = decimal.NewNullDecimal(*r.EntryPrice)
	}
	if r.Quantity != nil {
		rec.Quantity = decimal.NewNullDecimal(*r.Quantity)
	}
	return rec
}
