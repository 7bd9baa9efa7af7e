package model

import "time"

// Exception is a failure worth keeping after the log line is gone:
// recovered worker panics and venue errors raised while processing an instruction.
type Exception struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// Where the error happened
	Service string `gorm:"size:100;index" json:"service"` // e.g. "signalexecutor"
	Module  string `gorm:"size:100;index" json:"module"`  // e.g. "dispatcher"
	Method  string `gorm:"size:100" json:"method"`        // e.g. "ExecuteSignal"

	Symbol   string `gorm:"size:50;index" json:"symbol,omitempty"`
	SignalID string `gorm:"size:100" json:"signal_id,omitempty"`

	Message string `gorm:"type:text" json:"message"`
	Stack   string `gorm:"type:text" json:"stack"`

	Level string `gorm:"size:20;index" json:"level"` // warn | error | fatal

	// JSON encoded extra fields
	Context string `gorm:"type:text" json:"context,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (Exception) TableName() string {
	return "exceptions"
}
