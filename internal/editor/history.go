package editor

import "github.com/dshills/textcore/internal/delta"

// histOp is a stored undo or redo step: a delta authored against the
// revision it was computed at. The merge engine rebases it if the
// buffer has moved on.
type histOp struct {
	rev uint64
	d   delta.Delta
}

// history holds the undo and redo stacks for a buffer. Only
// client-authored edits are recorded.
type history struct {
	undo []histOp
	redo []histOp
}

// record pushes a fresh edit's undo step and invalidates the redo
// stack, as any new edit does.
func (h *history) record(op histOp) {
	h.undo = append(h.undo, op)
	h.redo = h.redo[:0]
}

func (h *history) popUndo() (histOp, bool) {
	if len(h.undo) == 0 {
		return histOp{}, false
	}
	op := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	return op, true
}

func (h *history) pushUndo(op histOp) {
	h.undo = append(h.undo, op)
}

// pushUndoKeepRedo records the undo step of a redo without clearing
// the remaining redo chain.
func (h *history) pushUndoKeepRedo(op histOp) {
	h.undo = append(h.undo, op)
}

func (h *history) popRedo() (histOp, bool) {
	if len(h.redo) == 0 {
		return histOp{}, false
	}
	op := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	return op, true
}

func (h *history) pushRedo(op histOp) {
	h.redo = append(h.redo, op)
}
