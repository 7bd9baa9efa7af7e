package executors

import (
	"context"
	"encoding/json"
	"runtime/debug"
	"time"

	logger "github.com/sirupsen/logrus"

	"signalexecutor/src/model"
)

// ExceptionStore persists captured exceptions. *repository.ExceptionRepository satisfies it.
type ExceptionStore interface {
	Create(ctx context.Context, exc *model.Exception) error
}

// Exception levels.
const (
	LevelWarn  = "warn"
	LevelError = "error"
	LevelFatal = "fatal"
)

// Capture records a system exception, logs it locally, and optionally
// persists it in the database.
func Capture(
	ctx context.Context,
	store ExceptionStore,
	service string,
	module string,
	method string,
	level string,
	in model.Instruction,
	err error,
	contextData map[string]interface{},
) {

	if err == nil {
		return
	}

	var ctxJSON string
	if contextData != nil {
		if b, e := json.Marshal(contextData); e == nil {
			ctxJSON = string(b)
		}
	}

	exc := &model.Exception{
		Service:   service,
		Module:    module,
		Method:    method,
		Symbol:    model.SymbolOf(in),
		SignalID:  model.SignalIDOf(in),
		Message:   err.Error(),
		Stack:     string(debug.Stack()),
		Level:     level,
		Context:   ctxJSON,
		CreatedAt: time.Now(),
	}

	// Local log
	logger.WithFields(map[string]interface{}{
		"service": service,
		"module":  module,
		"method":  method,
		"level":   level,
		"symbol":  exc.Symbol,
	}).WithError(err).Error("System exception captured")

	// Persist in database
	if store != nil {
		if e := store.Create(ctx, exc); e != nil {
			logger.WithError(e).Error("Failed to persist exception")
		}
	}
}
