package editor

import (
	"github.com/dshills/textcore/internal/config"
	"github.com/dshills/textcore/internal/delta"
	"github.com/dshills/textcore/internal/engine"
	"github.com/dshills/textcore/internal/syntax"
)

// AuthorCore is the author string for client-originated edits.
const AuthorCore = "core"

// Buffer is one open document: its synchronization state plus the
// metadata the protocol reports about it. A Buffer is owned by its
// serializer and is not safe for concurrent use.
type Buffer struct {
	ID     BufferID
	State  *engine.State
	Path   string
	Syntax syntax.Definition
	Config *config.Table
	Spans  *SpanStore

	views []ViewID
	hist  history
}

// NewBuffer creates a buffer around initial text. path may be empty
// for an unbacked buffer.
func NewBuffer(id BufferID, text, path string, cfg *config.Table) *Buffer {
	retention := cfg.Int(config.KeyMaxRevisions, config.DefaultMaxRevisions)
	var def syntax.Definition
	if path != "" {
		def = syntax.Detect(path)
	}
	return &Buffer{
		ID:     id,
		State:  engine.NewState(text, retention),
		Path:   path,
		Syntax: def,
		Config: cfg,
		Spans:  NewSpanStore(),
	}
}

// AddView binds a view to the buffer.
func (b *Buffer) AddView(id ViewID) {
	b.views = append(b.views, id)
}

// RemoveView unbinds a view. It reports whether the buffer has no
// views left and should be destroyed.
func (b *Buffer) RemoveView(id ViewID) (empty bool) {
	for i, v := range b.views {
		if v == id {
			b.views = append(b.views[:i], b.views[i+1:]...)
			break
		}
	}
	return len(b.views) == 0
}

// Views returns the bound views in binding order.
func (b *Buffer) Views() []ViewID {
	out := make([]ViewID, len(b.views))
	copy(out, b.views)
	return out
}

// Edit submits a client-authored edit at the current revision and
// records it for undo.
func (b *Buffer) Edit(d delta.Delta) (engine.Applied, error) {
	inverse, err := d.Inverse(b.State.Text())
	if err != nil {
		return engine.Applied{}, err
	}
	applied, err := b.State.SubmitEdit(engine.Edit{
		Rev:    b.State.Rev(),
		Delta:  d,
		Author: AuthorCore,
	})
	if err != nil {
		return engine.Applied{}, err
	}
	b.hist.record(histOp{rev: applied.Rev, d: inverse})
	return applied, nil
}

// SubmitPluginEdit feeds a plugin-authored edit through the merge
// engine. Plugin edits do not join the undo history; undoing a
// client edit never silently reverts a formatter's work.
func (b *Buffer) SubmitPluginEdit(e engine.Edit) (engine.Applied, error) {
	return b.State.SubmitEdit(e)
}

// Undo reverts the most recent client edit, rebasing its inverse over
// anything applied since. It reports false when there is nothing to
// undo.
func (b *Buffer) Undo() (engine.Applied, bool, error) {
	op, ok := b.hist.popUndo()
	if !ok {
		return engine.Applied{}, false, nil
	}
	textBefore := b.State.Text()
	applied, err := b.State.SubmitEdit(engine.Edit{
		Rev:    op.rev,
		Delta:  op.d,
		Author: AuthorCore,
	})
	if err != nil {
		b.hist.pushUndo(op)
		return engine.Applied{}, false, err
	}
	// The redo is the inverse of what the undo actually did.
	redo, err := applied.Delta.Inverse(textBefore)
	if err != nil {
		return applied, true, err
	}
	b.hist.pushRedo(histOp{rev: applied.Rev, d: redo})
	return applied, true, nil
}

// Redo re-applies the most recently undone edit. It reports false
// when there is nothing to redo.
func (b *Buffer) Redo() (engine.Applied, bool, error) {
	op, ok := b.hist.popRedo()
	if !ok {
		return engine.Applied{}, false, nil
	}
	textBefore := b.State.Text()
	applied, err := b.State.SubmitEdit(engine.Edit{
		Rev:    op.rev,
		Delta:  op.d,
		Author: AuthorCore,
	})
	if err != nil {
		b.hist.pushRedo(op)
		return engine.Applied{}, false, err
	}
	undo, err := applied.Delta.Inverse(textBefore)
	if err != nil {
		return applied, true, err
	}
	b.hist.pushUndoKeepRedo(histOp{rev: applied.Rev, d: undo})
	return applied, true, nil
}
