package broadcaster

import (
	"context"

	"signalexecutor/src/model"
)

// Handler receives decoded instructions. The client calls it from a single goroutine,
// one frame at a time, in arrival order.
type Handler interface {
	OnConnected(ctx context.Context)
	OnDisconnected(ctx context.Context, err error)
	OnSignal(ctx context.Context, signal model.Signal)
	OnClose(ctx context.Context, cmd model.CloseCommand)
	OnEditSLTP(ctx context.Context, cmd model.EditSLTPCommand)
	OnLeverage(ctx context.Context, cmd model.LeverageCommand)
}

// Route hands in to the matching Handler method. It reports false for Unknown.
func Route(ctx context.Context, h Handler, in model.Instruction) bool {
	switch v := in.(type) {
	case model.NewSignal:
		h.OnSignal(ctx, v.Signal)
	case model.CloseSignal:
		h.OnClose(ctx, v.Command)
	case model.EditSLTP:
		h.OnEditSLTP(ctx, v.Command)
	case model.UpdateLeverage:
		h.OnLeverage(ctx, v.Command)
	default:
		return false
	}
	return true
}
