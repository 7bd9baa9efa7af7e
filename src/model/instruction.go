package model

// MessageType is the wire discriminator of a broadcaster frame.
type MessageType string

const (
	MessageNewSignal      MessageType = "NEW_SIGNAL"
	MessageCloseSignal    MessageType = "CLOSE_SIGNAL"
	MessageEditSLTP       MessageType = "EDIT_SLTP"
	MessageUpdateLeverage MessageType = "UPDATE_LEVERAGE"
)

// Instruction is a decoded broadcaster frame. The set of implementations is closed:
// NewSignal, CloseSignal, EditSLTP, UpdateLeverage and Unknown.
type Instruction interface {
	Type() MessageType
	isInstruction()
}

type NewSignal struct {
	Signal Signal
}

type CloseSignal struct {
	Command CloseCommand
}

type EditSLTP struct {
	Command EditSLTPCommand
}

type UpdateLeverage struct {
	Command LeverageCommand
}

// Unknown carries a frame whose type is not recognised. It is logged and dropped.
type Unknown struct {
	Raw MessageType
}

func (NewSignal) Type() MessageType      { return MessageNewSignal }
func (CloseSignal) Type() MessageType    { return MessageCloseSignal }
func (EditSLTP) Type() MessageType       { return MessageEditSLTP }
func (UpdateLeverage) Type() MessageType { return MessageUpdateLeverage }
func (u Unknown) Type() MessageType      { return u.Raw }

func (NewSignal) isInstruction()      {}
func (CloseSignal) isInstruction()    {}
func (EditSLTP) isInstruction()       {}
func (UpdateLeverage) isInstruction() {}
func (Unknown) isInstruction()        {}

// SymbolOf returns the instrument an instruction targets, empty for Unknown.
func SymbolOf(in Instruction) string {
	switch v := in.(type) {
	case NewSignal:
		return v.Signal.Symbol
	case CloseSignal:
		return v.Command.Symbol
	case EditSLTP:
		return v.Command.Symbol
	case UpdateLeverage:
		return v.Command.Symbol
	default:
		return ""
	}
}

// SignalIDOf returns the signal id an instruction refers to, or "" for Unknown.
func SignalIDOf(in Instruction) string {
	switch v := in.(type) {
	case NewSignal:
		return v.Signal.SignalID
	case CloseSignal:
		return v.Command.SignalID
	case EditSLTP:
		return v.Command.SignalID
	case UpdateLeverage:
		return v.Command.SignalID
	default:
		return ""
	}
}
