package core

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/dshills/textcore/internal/config"
	"github.com/dshills/textcore/internal/delta"
	"github.com/dshills/textcore/internal/editor"
	"github.com/dshills/textcore/internal/engine"
	"github.com/dshills/textcore/internal/rpc"
)

// editMotions maps the movement family onto view motions. Each entry
// is a motion plus whether the selection extends.
var editMotions = map[rpc.EditNotification]struct {
	motion editor.Motion
	extend bool
}{
	rpc.MoveUp{}:                        {editor.MotionUp, false},
	rpc.MoveUpAndModifySelection{}:      {editor.MotionUp, true},
	rpc.MoveDown{}:                      {editor.MotionDown, false},
	rpc.MoveDownAndModifySelection{}:    {editor.MotionDown, true},
	rpc.MoveLeft{}:                      {editor.MotionLeft, false},
	rpc.MoveBackward{}:                  {editor.MotionLeft, false},
	rpc.MoveLeftAndModifySelection{}:    {editor.MotionLeft, true},
	rpc.MoveRight{}:                     {editor.MotionRight, false},
	rpc.MoveForward{}:                   {editor.MotionRight, false},
	rpc.MoveRightAndModifySelection{}:   {editor.MotionRight, true},
	rpc.MoveWordLeft{}:                  {editor.MotionWordLeft, false},
	rpc.MoveWordLeftAndModifySelection{}:  {editor.MotionWordLeft, true},
	rpc.MoveWordRight{}:                 {editor.MotionWordRight, false},
	rpc.MoveWordRightAndModifySelection{}: {editor.MotionWordRight, true},
	rpc.MoveToBeginningOfParagraph{}:    {editor.MotionParagraphStart, false},
	rpc.MoveToEndOfParagraph{}:          {editor.MotionParagraphEnd, false},
	rpc.MoveToLeftEndOfLine{}:           {editor.MotionLineStart, false},
	rpc.MoveToLeftEndOfLineAndModifySelection{}:  {editor.MotionLineStart, true},
	rpc.MoveToRightEndOfLine{}:          {editor.MotionLineEnd, false},
	rpc.MoveToRightEndOfLineAndModifySelection{}: {editor.MotionLineEnd, true},
	rpc.MoveToBeginningOfDocument{}:     {editor.MotionDocStart, false},
	rpc.MoveToBeginningOfDocumentAndModifySelection{}: {editor.MotionDocStart, true},
	rpc.MoveToEndOfDocument{}:           {editor.MotionDocEnd, false},
	rpc.MoveToEndOfDocumentAndModifySelection{}:       {editor.MotionDocEnd, true},
	rpc.ScrollPageUp{}:                  {editor.MotionPageUp, false},
	rpc.PageUpAndModifySelection{}:      {editor.MotionPageUp, true},
	rpc.ScrollPageDown{}:                {editor.MotionPageDown, false},
	rpc.PageDownAndModifySelection{}:    {editor.MotionPageDown, true},
	// Single-cursor rendering of multi-cursor commands.
	rpc.AddSelectionAbove{}: {editor.MotionUp, true},
	rpc.AddSelectionBelow{}: {editor.MotionDown, true},
}

// deleteMotions maps delete variants to the motion bounding the
// removed range.
var deleteMotions = map[rpc.EditNotification]editor.Motion{
	rpc.DeleteForward{}:           editor.MotionRight,
	rpc.DeleteBackward{}:          editor.MotionLeft,
	rpc.DeleteWordForward{}:       editor.MotionWordRight,
	rpc.DeleteWordBackward{}:      editor.MotionWordLeft,
	rpc.DeleteToEndOfParagraph{}:  editor.MotionParagraphEnd,
	rpc.DeleteToBeginningOfLine{}: editor.MotionLineStart,
}

// applyEditNotification runs one editing command on the serializer.
// Failures are logged and answered where a reply channel exists; they
// never take the serializer down.
func (c *Core) applyEditNotification(h *bufferHost, viewID editor.ViewID, cmd rpc.EditNotification) {
	v, ok := h.views[viewID]
	if !ok {
		c.logger.Warn("edit for unknown view %s", viewID)
		return
	}
	text := h.buf.State.Text()

	if mv, ok := editMotions[cmd]; ok {
		v.Move(text, mv.motion, mv.extend)
		c.scrollTo(v, text)
		return
	}
	if m, ok := deleteMotions[cmd]; ok {
		start, end := v.DeletionTarget(text, m)
		c.replaceRange(h, viewID, start, end, "", "delete")
		return
	}

	switch cmd := cmd.(type) {
	case *rpc.Insert:
		c.insertAtSelection(h, viewID, v, cmd.Chars)
	case rpc.InsertNewline:
		c.insertAtSelection(h, viewID, v, "\n")
	case rpc.InsertTab:
		c.insertAtSelection(h, viewID, v, c.tabText(viewID))
	case rpc.Yank:
		c.mu.Lock()
		clip := c.clipboard
		c.mu.Unlock()
		c.insertAtSelection(h, viewID, v, clip)
	case rpc.Transpose:
		c.transpose(h, viewID, v, text)

	case *rpc.Scroll:
		v.SetScrollWindow(int(cmd.First), int(cmd.Last))
	case *rpc.RequestLines:
		c.sendLines(viewID, text, int(cmd.First), int(cmd.Last))
	case *rpc.GotoLine:
		v.MoveTo(text, int(cmd.Line), 0, false)
		c.scrollTo(v, text)

	case *rpc.FindNext:
		c.runFind(h, viewID, func(ctx context.Context) bool {
			if ctx.Err() != nil {
				return false
			}
			return v.FindNext(text, optBool(cmd.WrapAround, true), optBool(cmd.AllowSame, false))
		})
		c.scrollTo(v, text)
	case *rpc.FindPrevious:
		c.runFind(h, viewID, func(ctx context.Context) bool {
			if ctx.Err() != nil {
				return false
			}
			return v.FindPrevious(text, optBool(cmd.WrapAround, true))
		})
		c.scrollTo(v, text)
	case rpc.CancelOperation:
		if cancel, ok := h.pending[viewID]; ok {
			cancel()
			delete(h.pending, viewID)
			c.logger.Debug("cancelled pending operation on %s", viewID)
		}

	case *rpc.Click:
		v.MoveTo(text, int(cmd.Line), int(cmd.Column), false)
	case *rpc.Drag:
		v.MoveTo(text, int(cmd.Line), int(cmd.Column), true)
	case *rpc.Gesture:
		if cmd.Ty == rpc.GestureToggleSel {
			v.ToggleGesture(text, int(cmd.Line), int(cmd.Col))
		}

	case rpc.SelectAll:
		v.SelectAll(text)

	case rpc.Undo:
		applied, did, err := h.buf.Undo()
		if err != nil {
			c.logger.Warn("undo on %s: %v", viewID, err)
			return
		}
		if did {
			c.afterEdit(h, applied, "undo", editor.AuthorCore, false)
		}
	case rpc.Redo:
		applied, did, err := h.buf.Redo()
		if err != nil {
			c.logger.Warn("redo on %s: %v", viewID, err)
			return
		}
		if did {
			c.afterEdit(h, applied, "redo", editor.AuthorCore, false)
		}

	case rpc.DebugRewrap:
		c.logger.Debug("debug_rewrap ignored; wrapping is client-side")
	case rpc.DebugPrintSpans:
		start, end := v.Selection()
		c.logger.Info("spans on %s over [%d,%d): %d scope names interned",
			viewID, start, end, len(h.buf.Spans.Spans(0)))

	default:
		c.logger.Warn("unhandled edit command %T on %s", cmd, viewID)
	}
}

// applyEditRequest runs cut/copy/find on the serializer and returns
// the reply value.
func (c *Core) applyEditRequest(h *bufferHost, viewID editor.ViewID, cmd rpc.EditRequest) (any, error) {
	v, ok := h.views[viewID]
	if !ok {
		return nil, ErrUnknownView
	}
	text := h.buf.State.Text()

	switch cmd := cmd.(type) {
	case rpc.Copy:
		start, end := v.Selection()
		if start == end {
			// Nothing selected: the clipboard keeps its contents
			// and the reply is the bare ack.
			return rpc.AckSentinel, nil
		}
		chunk := text[start:end]
		c.mu.Lock()
		c.clipboard = chunk
		c.mu.Unlock()
		return chunk, nil

	case rpc.Cut:
		start, end := v.Selection()
		if start == end {
			return rpc.AckSentinel, nil
		}
		chunk := text[start:end]
		c.mu.Lock()
		c.clipboard = chunk
		c.mu.Unlock()
		c.replaceRange(h, viewID, start, end, "", "delete")
		return chunk, nil

	case *rpc.Find:
		query := ""
		if cmd.Chars != nil {
			query = *cmd.Chars
		} else if start, end := v.Selection(); start != end {
			query = text[start:end]
		}
		return v.SetFind(query, cmd.CaseSensitive), nil

	default:
		return nil, rpc.ErrUnknownMethod
	}
}

// insertAtSelection replaces the view's selection with chars.
func (c *Core) insertAtSelection(h *bufferHost, viewID editor.ViewID, v *editor.View, chars string) {
	start, end := v.Selection()
	c.replaceRange(h, viewID, start, end, chars, "insert")
}

// replaceRange applies a single replace through the buffer and fans
// the result out.
func (c *Core) replaceRange(h *bufferHost, viewID editor.ViewID, start, end int, chars, editType string) {
	text := h.buf.State.Text()
	d, err := delta.SimpleReplace(len(text), start, end, chars)
	if err != nil {
		c.logger.Warn("%s on %s: %v", editType, viewID, err)
		return
	}
	applied, err := h.buf.Edit(d)
	if err != nil {
		c.logger.Warn("%s on %s: %v", editType, viewID, err)
		return
	}
	c.afterEdit(h, applied, editType, editor.AuthorCore, true)
}

// transpose swaps the two runes around the cursor, or the last two
// when the cursor sits at the end of the text.
func (c *Core) transpose(h *bufferHost, viewID editor.ViewID, v *editor.View, text string) {
	cur := v.Caret()
	if cur >= len(text) {
		cur = len(text)
		r, size := utf8.DecodeLastRuneInString(text[:cur])
		if r == utf8.RuneError && size <= 1 {
			return
		}
		cur -= size
	}
	left, lsize := utf8.DecodeLastRuneInString(text[:cur])
	right, rsize := utf8.DecodeRuneInString(text[cur:])
	if lsize == 0 || rsize == 0 {
		return
	}
	swapped := string(right) + string(left)
	c.replaceRange(h, viewID, cur-lsize, cur+rsize, swapped, "transpose")
}

// tabText resolves what an inserted tab expands to for a view.
func (c *Core) tabText(viewID editor.ViewID) string {
	cfg := c.cfg.Collate(string(viewID))
	if cfg.Bool(config.KeyTranslateTabs, false) {
		return strings.Repeat(" ", cfg.Int(config.KeyTabSize, config.DefaultTabSize))
	}
	return "\t"
}

// runFind executes a find step under a per-view cancellable context.
// A new find replaces any pending one.
func (c *Core) runFind(h *bufferHost, viewID editor.ViewID, step func(ctx context.Context) bool) {
	if cancel, ok := h.pending[viewID]; ok {
		cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.pending[viewID] = cancel
	found := step(ctx)
	cancel()
	delete(h.pending, viewID)
	c.frontend.Notify("find_status", map[string]any{
		"view_id": viewID,
		"found":   found,
	})
}

// scrollTo tells the client where the caret landed.
func (c *Core) scrollTo(v *editor.View, text string) {
	line, col := editor.LineCol(text, v.Caret())
	c.frontend.Notify("scroll_to", map[string]any{
		"view_id": v.ID,
		"line":    line,
		"col":     col,
	})
}

// sendLines answers request_lines with the raw line window.
func (c *Core) sendLines(viewID editor.ViewID, text string, first, last int) {
	lines := strings.SplitAfter(text, "\n")
	if first < 0 {
		first = 0
	}
	if last > len(lines) {
		last = len(lines)
	}
	if first > last {
		first = last
	}
	c.frontend.Notify("lines", map[string]any{
		"view_id": viewID,
		"first":   first,
		"lines":   lines[first:last],
	})
}

// afterEdit is the single convergence point after any accepted edit:
// cursors shift, the client hears about the new revision, and every
// watching plugin gets its update with the oversized fallback
// applied. Runs on the serializer.
func (c *Core) afterEdit(h *bufferHost, applied engine.Applied, editType, author string, afterCursor bool) {
	for _, v := range h.views {
		v.AdjustForEdit(applied.Delta.MapCoord, afterCursor)
	}
	d := applied.Delta
	for viewID := range h.views {
		update := rpc.PluginUpdate{
			ViewID:   viewID,
			Delta:    &d,
			NewLen:   applied.NewLen,
			Rev:      applied.Rev,
			EditType: editType,
			Author:   author,
		}
		c.frontend.Notify("update", update)
		limit := c.cfg.Collate(string(viewID)).Int(
			config.KeyMaxDeltaBytes, config.DefaultMaxDeltaBytes)
		c.plugins.DispatchUpdate(viewID, update, limit, func(pid editor.PluginPid, resp rpc.UpdateResponse, err error) {
			c.onUpdateReply(h, pid, resp, err)
		})
	}
}

// onUpdateReply handles a plugin's answer to an update. It runs on
// the peer's goroutine, so document work re-enters the serializer as
// a fresh task.
func (c *Core) onUpdateReply(h *bufferHost, pid editor.PluginPid, resp rpc.UpdateResponse, err error) {
	if err != nil {
		c.logger.Warn("update reply from pid %d: %v", pid, err)
		return
	}
	if resp.Edit == nil {
		return
	}
	edit := *resp.Edit
	_ = h.post(func() { c.submitPluginEdit(h, pid, edit) })
}

// submitPluginEdit feeds a plugin edit through the merge engine. A
// submission outside the retention window is serviced with the
// no-delta update so the plugin refetches, per the protocol.
func (c *Core) submitPluginEdit(h *bufferHost, pid editor.PluginPid, pe rpc.PluginEdit) {
	if pe.Delta == nil {
		c.logger.Warn("plugin edit from pid %d without delta", pid)
		return
	}
	applied, err := h.buf.SubmitPluginEdit(engine.Edit{
		Rev:         pe.Rev,
		Delta:       *pe.Delta,
		Priority:    int(pe.Priority),
		AfterCursor: pe.AfterCursor,
		Author:      pe.Author,
	})
	if errors.Is(err, engine.ErrRevisionTooOld) {
		c.resyncPlugin(h, pid)
		return
	}
	if err != nil {
		c.logger.Warn("plugin edit from pid %d rejected: %v", pid, err)
		return
	}
	if applied.Partial {
		c.logger.Info("plugin edit from pid %d applied partially at rev %d", pid, applied.Rev)
	}
	c.afterEdit(h, applied, "plugin", pe.Author, pe.AfterCursor)
}

// resyncPlugin sends one plugin the no-delta signal at the current
// revision.
func (c *Core) resyncPlugin(h *bufferHost, pid editor.PluginPid) {
	views := h.buf.Views()
	if len(views) == 0 {
		return
	}
	err := c.plugins.UpdateOne(pid, rpc.PluginUpdate{
		ViewID:   views[0],
		NewLen:   h.buf.State.Len(),
		Rev:      h.buf.State.Rev(),
		EditType: "resync",
		Author:   editor.AuthorCore,
	}, func(pid editor.PluginPid, resp rpc.UpdateResponse, err error) {
		c.onUpdateReply(h, pid, resp, err)
	})
	if err != nil {
		c.logger.Warn("resync pid %d: %v", pid, err)
	}
}

func optBool(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
