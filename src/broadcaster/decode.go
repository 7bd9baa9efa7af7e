package broadcaster

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"signalexecutor/src/model"
)

const pongFrame = "pong"

var (
	ErrMissingType = errors.New("frame has no type")
	ErrEmptyFrame  = errors.New("empty frame")
)

// FieldError reports a missing or invalid field in a frame.
type FieldError struct {
	Type  model.MessageType
	Field string
	Issue string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: field %q %s", e.Type, e.Field, e.Issue)
}

func missing(t model.MessageType, field string) error {
	return &FieldError{Type: t, Field: field, Issue: "is required"}
}

func invalid(t model.MessageType, field, issue string) error {
	return &FieldError{Type: t, Field: field, Issue: issue}
}

type envelope struct {
	Type       *string         `json:"type"`
	Signal     json.RawMessage `json:"signal"`
	SignalID   *string         `json:"signal_id"`
	Symbol     *string         `json:"symbol"`
	Percentage *float64        `json:"percentage"`
	StopLoss   *float64        `json:"stop_loss"`
	TakeProfit *float64        `json:"take_profit"`
	Leverage   *float64        `json:"leverage"`
}

type signalWire struct {
	SignalID   *string  `json:"signal_id"`
	Symbol     *string  `json:"symbol"`
	SignalType *string  `json:"signal_type"`
	OrderType  *string  `json:"order_type"`
	EntryPrice *float64 `json:"entry_price"`
	StopLoss   *float64 `json:"stop_loss"`
	TakeProfit *float64 `json:"take_profit"`
	Leverage   *float64 `json:"leverage"`
	Status     *string  `json:"status"`
	CreatedAt  *string  `json:"created_at"`
	UpdatedAt  *string  `json:"updated_at"`
}

// IsPong reports whether a frame is the keep-alive reply.
func IsPong(frame []byte) bool {
	return strings.TrimSpace(string(frame)) == pongFrame
}

// Decode turns one text frame into an instruction. Unrecognised types decode to
// model.Unknown without error.
func Decode(frame []byte) (model.Instruction, error) {
	if len(strings.TrimSpace(string(frame))) == 0 {
		return nil, ErrEmptyFrame
	}

	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	if env.Type == nil || *env.Type == "" {
		return nil, ErrMissingType
	}

	t := model.MessageType(*env.Type)
	switch t {
	case model.MessageNewSignal:
		sig, err := decodeSignal(env.Signal)
		if err != nil {
			return nil, err
		}
		return model.NewSignal{Signal: sig}, nil

	case model.MessageCloseSignal:
		id, sym, err := reference(t, env)
		if err != nil {
			return nil, err
		}
		pct := 100.0
		if env.Percentage != nil {
			pct = *env.Percentage
		}
		if pct <= 0 {
			return nil, invalid(t, "percentage", "must be positive")
		}
		if pct > 100 {
			pct = 100
		}
		return model.CloseSignal{Command: model.CloseCommand{SignalID: id, Symbol: sym, Percentage: pct}}, nil

	case model.MessageEditSLTP:
		id, sym, err := reference(t, env)
		if err != nil {
			return nil, err
		}
		return model.EditSLTP{Command: model.EditSLTPCommand{
			SignalID:   id,
			Symbol:     sym,
			StopLoss:   env.StopLoss,
			TakeProfit: env.TakeProfit,
		}}, nil

	case model.MessageUpdateLeverage:
		id, sym, err := reference(t, env)
		if err != nil {
			return nil, err
		}
		if env.Leverage == nil {
			return nil, missing(t, "leverage")
		}
		lev, err := positiveInt(t, *env.Leverage)
		if err != nil {
			return nil, err
		}
		return model.UpdateLeverage{Command: model.LeverageCommand{SignalID: id, Symbol: sym, Leverage: lev}}, nil

	default:
		return model.Unknown{Raw: t}, nil
	}
}

func reference(t model.MessageType, env envelope) (string, string, error) {
	if env.SignalID == nil || *env.SignalID == "" {
		return "", "", missing(t, "signal_id")
	}
	if env.Symbol == nil || *env.Symbol == "" {
		return "", "", missing(t, "symbol")
	}
	return *env.SignalID, normalizeSymbol(*env.Symbol), nil
}

func decodeSignal(raw json.RawMessage) (model.Signal, error) {
	t := model.MessageNewSignal
	if len(raw) == 0 || string(raw) == "null" {
		return model.Signal{}, missing(t, "signal")
	}

	var w signalWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return model.Signal{}, fmt.Errorf("decode signal: %w", err)
	}

	if w.SignalID == nil || *w.SignalID == "" {
		return model.Signal{}, missing(t, "signal_id")
	}
	if w.Symbol == nil || *w.Symbol == "" {
		return model.Signal{}, missing(t, "symbol")
	}
	if w.SignalType == nil {
		return model.Signal{}, missing(t, "signal_type")
	}
	if w.OrderType == nil {
		return model.Signal{}, missing(t, "order_type")
	}

	sig := model.Signal{
		SignalID:   *w.SignalID,
		Symbol:     normalizeSymbol(*w.Symbol),
		SignalType: model.SignalType(strings.ToUpper(*w.SignalType)),
		OrderType:  model.OrderType(strings.ToUpper(*w.OrderType)),
		EntryPrice: w.EntryPrice,
		StopLoss:   w.StopLoss,
		TakeProfit: w.TakeProfit,
		Leverage:   1,
		Status:     model.StatusActive,
	}

	if !sig.SignalType.Valid() {
		return model.Signal{}, invalid(t, "signal_type", fmt.Sprintf("has unknown value %q", *w.SignalType))
	}
	if !sig.OrderType.Valid() {
		return model.Signal{}, invalid(t, "order_type", fmt.Sprintf("has unknown value %q", *w.OrderType))
	}
	if sig.OrderType == model.OrderLimit && (sig.EntryPrice == nil || *sig.EntryPrice <= 0) {
		return model.Signal{}, invalid(t, "entry_price", "is required for LIMIT orders")
	}

	if w.Leverage != nil {
		lev, err := positiveInt(t, *w.Leverage)
		if err != nil {
			return model.Signal{}, err
		}
		sig.Leverage = lev
	}

	if w.Status != nil && *w.Status != "" {
		sig.Status = model.SignalStatus(strings.ToUpper(*w.Status))
		if sig.Status != model.StatusActive && sig.Status != model.StatusClosed {
			return model.Signal{}, invalid(t, "status", fmt.Sprintf("has unknown value %q", *w.Status))
		}
	}

	var err error
	if sig.CreatedAt, err = parseTimestamp(t, "created_at", w.CreatedAt); err != nil {
		return model.Signal{}, err
	}
	if sig.UpdatedAt, err = parseTimestamp(t, "updated_at", w.UpdatedAt); err != nil {
		return model.Signal{}, err
	}

	return sig, nil
}

func positiveInt(t model.MessageType, v float64) (int, error) {
	if v < 1 || v != math.Trunc(v) {
		return 0, invalid(t, "leverage", "must be a positive integer")
	}
	return int(v), nil
}

// Timestamps arrive either as RFC 3339 or as ISO 8601 without a zone, read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(t model.MessageType, field string, raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, *raw); err == nil {
			return &ts, nil
		}
	}
	return nil, invalid(t, field, fmt.Sprintf("has unparseable timestamp %q", *raw))
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
