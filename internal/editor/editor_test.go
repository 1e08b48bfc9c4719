package editor_test

import (
	"testing"

	"github.com/dshills/textcore/internal/config"
	"github.com/dshills/textcore/internal/delta"
	"github.com/dshills/textcore/internal/editor"
	"github.com/dshills/textcore/internal/engine"
)

func newBuffer(t *testing.T, text string) *editor.Buffer {
	t.Helper()
	var alloc editor.Allocator
	return editor.NewBuffer(alloc.NextBufferID(), text, "", config.Defaults())
}

func TestAllocatorNeverReuses(t *testing.T) {
	var alloc editor.Allocator
	seen := make(map[editor.ViewID]bool)
	for i := 0; i < 100; i++ {
		id := alloc.NextViewID()
		if seen[id] {
			t.Fatalf("view id %s reused", id)
		}
		seen[id] = true
		if _, err := editor.ParseViewID(string(id)); err != nil {
			t.Fatalf("generated id %s does not parse: %v", id, err)
		}
	}
}

func TestParseViewIDRejectsGarbage(t *testing.T) {
	for _, bad := range []string{"", "view-id-", "view-id-x", "buffer-id-1", "1"} {
		if _, err := editor.ParseViewID(bad); err == nil {
			t.Errorf("ParseViewID(%q) accepted", bad)
		}
	}
}

func TestBufferViewLifecycle(t *testing.T) {
	b := newBuffer(t, "")
	b.AddView("view-id-1")
	b.AddView("view-id-2")
	if empty := b.RemoveView("view-id-1"); empty {
		t.Error("buffer reported empty with a view remaining")
	}
	if empty := b.RemoveView("view-id-2"); !empty {
		t.Error("buffer with no views not reported empty")
	}
}

func TestUndoRedo(t *testing.T) {
	b := newBuffer(t, "hello")
	ins, err := delta.SimpleInsert(5, 5, " world")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Edit(ins); err != nil {
		t.Fatal(err)
	}
	if b.State.Text() != "hello world" {
		t.Fatalf("text = %q", b.State.Text())
	}

	applied, ok, err := b.Undo()
	if err != nil || !ok {
		t.Fatalf("Undo: ok=%v err=%v", ok, err)
	}
	if b.State.Text() != "hello" {
		t.Errorf("after undo text = %q, want %q", b.State.Text(), "hello")
	}
	if applied.Rev != 2 {
		t.Errorf("undo produced rev %d, want 2 (undo is itself an edit)", applied.Rev)
	}

	if _, ok, err := b.Redo(); err != nil || !ok {
		t.Fatalf("Redo: ok=%v err=%v", ok, err)
	}
	if b.State.Text() != "hello world" {
		t.Errorf("after redo text = %q, want %q", b.State.Text(), "hello world")
	}

	// Nothing left to redo.
	if _, ok, _ := b.Redo(); ok {
		t.Error("Redo succeeded with empty redo stack")
	}
}

func TestUndoRebasesOverPluginEdit(t *testing.T) {
	b := newBuffer(t, "abc")
	ins, err := delta.SimpleInsert(3, 3, "XYZ")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Edit(ins); err != nil {
		t.Fatal(err)
	}

	// A plugin prepends while the client edit sits on the undo stack.
	pd, err := delta.SimpleInsert(6, 0, ">>")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.SubmitPluginEdit(engine.Edit{
		Rev: b.State.Rev(), Delta: pd, Priority: 2, Author: "fmt",
	}); err != nil {
		t.Fatal(err)
	}

	if _, ok, err := b.Undo(); err != nil || !ok {
		t.Fatalf("Undo: ok=%v err=%v", ok, err)
	}
	if b.State.Text() != ">>abc" {
		t.Errorf("undo reverted plugin work too: text = %q, want %q", b.State.Text(), ">>abc")
	}
}

func TestNewEditClearsRedo(t *testing.T) {
	b := newBuffer(t, "")
	first, err := delta.SimpleInsert(0, 0, "a")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Edit(first); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := b.Undo(); err != nil || !ok {
		t.Fatal("undo failed")
	}
	second, err := delta.SimpleInsert(0, 0, "b")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Edit(second); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := b.Redo(); ok {
		t.Error("redo survived a fresh edit")
	}
}

func TestViewMotions(t *testing.T) {
	text := "first line\nsecond line\n\nnew paragraph"
	v := editor.NewView("view-id-1", 1)

	tests := []struct {
		name   string
		from   int
		motion editor.Motion
		want   int
	}{
		{"right", 0, editor.MotionRight, 1},
		{"left at start clamps", 0, editor.MotionLeft, 0},
		{"line end", 2, editor.MotionLineEnd, 10},
		{"line start", 8, editor.MotionLineStart, 0},
		{"down keeps column", 2, editor.MotionDown, 13},
		{"up keeps column", 13, editor.MotionUp, 2},
		{"word right", 0, editor.MotionWordRight, 5},
		{"word left", 8, editor.MotionWordLeft, 6},
		{"doc end", 5, editor.MotionDocEnd, len(text)},
		{"doc start", 20, editor.MotionDocStart, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v.SetCaret(tt.from)
			v.Move(text, tt.motion, false)
			if got := v.Caret(); got != tt.want {
				t.Errorf("motion from %d: caret = %d, want %d", tt.from, got, tt.want)
			}
		})
	}
}

func TestViewExtendSelection(t *testing.T) {
	text := "hello world"
	v := editor.NewView("view-id-1", 1)
	v.SetCaret(0)
	v.Move(text, editor.MotionWordRight, true)
	start, end := v.Selection()
	if start != 0 || end != 5 {
		t.Errorf("selection = [%d,%d), want [0,5)", start, end)
	}
	// A plain motion collapses it.
	v.Move(text, editor.MotionRight, false)
	if start, end = v.Selection(); start != end {
		t.Errorf("selection not collapsed: [%d,%d)", start, end)
	}
}

func TestFindNextWrapAndCase(t *testing.T) {
	text := "Apple banana apple cherry apple"
	v := editor.NewView("view-id-1", 1)
	v.SetFind("apple", false)

	if !v.FindNext(text, false, false) {
		t.Fatal("first find failed")
	}
	start, _ := v.Selection()
	if start != 0 {
		t.Errorf("first match at %d, want 0 (case-insensitive)", start)
	}

	if !v.FindNext(text, false, false) {
		t.Fatal("second find failed")
	}
	if start, _ = v.Selection(); start != 13 {
		t.Errorf("second match at %d, want 13", start)
	}

	v.SetFind("", true) // keep query, now case-sensitive
	v.SetCaret(len(text))
	if v.FindNext(text, false, false) {
		t.Error("found past end without wrap")
	}
	if !v.FindNext(text, true, false) {
		t.Fatal("wrap find failed")
	}
	if start, _ = v.Selection(); start != 13 {
		t.Errorf("wrapped case-sensitive match at %d, want 13", start)
	}
}

func TestSpanStoreReplaceRange(t *testing.T) {
	s := editor.NewSpanStore()
	first := s.AddScopes([][]string{{"source", "go"}, {"comment", "line"}})
	if first != 0 {
		t.Errorf("first scope id = %d, want 0", first)
	}
	if s.ScopeName(1) != "comment.line" {
		t.Errorf("ScopeName(1) = %q", s.ScopeName(1))
	}

	pid := editor.PluginPid(1)
	s.UpdateSpans(pid, 0, 20, []editor.ScopeSpan{{Start: 0, End: 5, ScopeID: 0}, {Start: 10, End: 15, ScopeID: 1}})
	// Replacing the middle drops only overlapping spans.
	s.UpdateSpans(pid, 8, 12, []editor.ScopeSpan{{Start: 0, End: 2, ScopeID: 0}})

	spans := s.Spans(pid)
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2: %v", len(spans), spans)
	}
	if spans[0] != (editor.ScopeSpan{Start: 0, End: 5, ScopeID: 0}) {
		t.Errorf("kept span = %+v", spans[0])
	}
	if spans[1] != (editor.ScopeSpan{Start: 8, End: 10, ScopeID: 0}) {
		t.Errorf("new span = %+v", spans[1])
	}
}
