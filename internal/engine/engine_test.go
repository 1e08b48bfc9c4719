package engine_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/textcore/internal/delta"
	"github.com/dshills/textcore/internal/engine"
)

func insertAt(t *testing.T, baseLen, offset int, text string) delta.Delta {
	t.Helper()
	d, err := delta.SimpleInsert(baseLen, offset, text)
	require.NoError(t, err)
	return d
}

func deleteRange(t *testing.T, baseLen, start, end int) delta.Delta {
	t.Helper()
	d, err := delta.SimpleDelete(baseLen, start, end)
	require.NoError(t, err)
	return d
}

func TestSubmitEditAtCurrentRevision(t *testing.T) {
	s := engine.NewState("hello world", 0)

	applied, err := s.SubmitEdit(engine.Edit{
		Rev:      0,
		Delta:    insertAt(t, 11, 5, ","),
		Priority: 1,
		Author:   "core",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), applied.Rev)
	assert.Equal(t, "hello, world", s.Text())
	assert.Equal(t, 12, applied.NewLen)
	assert.False(t, applied.Partial)
}

func TestRevisionMonotonicity(t *testing.T) {
	s := engine.NewState("", 0)
	for i := 0; i < 5; i++ {
		_, err := s.SubmitEdit(engine.Edit{
			Rev:    s.Rev(),
			Delta:  insertAt(t, s.Len(), s.Len(), "x"),
			Author: "core",
		})
		require.NoError(t, err)
		assert.Equal(t, uint64(i+1), s.Rev(), "revision equals the count of accepted edits")
	}

	// A rejected edit never changes the revision.
	before := s.Rev()
	_, err := s.SubmitEdit(engine.Edit{
		Rev:    s.Rev(),
		Delta:  insertAt(t, 999, 0, "x"),
		Author: "core",
	})
	require.ErrorIs(t, err, delta.ErrLengthMismatch)
	assert.Equal(t, before, s.Rev())
	assert.Equal(t, "xxxxx", s.Text())
}

func TestFutureRevisionRejected(t *testing.T) {
	s := engine.NewState("abc", 0)
	_, err := s.SubmitEdit(engine.Edit{Rev: 7, Delta: delta.Identity(3), Author: "p"})
	assert.ErrorIs(t, err, engine.ErrFutureRevision)
}

func TestRevisionTooOld(t *testing.T) {
	s := engine.NewState("", 2)
	for i := 0; i < 3; i++ {
		_, err := s.SubmitEdit(engine.Edit{
			Rev:    s.Rev(),
			Delta:  insertAt(t, s.Len(), s.Len(), "x"),
			Author: "core",
		})
		require.NoError(t, err)
	}

	// Revision 0 has fallen out of the two-entry retention window.
	_, err := s.SubmitEdit(engine.Edit{Rev: 0, Delta: insertAt(t, 0, 0, "y"), Author: "plugin"})
	assert.ErrorIs(t, err, engine.ErrRevisionTooOld)

	// Revision 1 is the oldest still serviceable.
	_, err = s.SubmitEdit(engine.Edit{Rev: 1, Delta: insertAt(t, 1, 0, "y"), Author: "plugin"})
	assert.NoError(t, err)
}

func TestRebaseAgainstInterveningInsert(t *testing.T) {
	s := engine.NewState("hello world", 0)

	// The client inserts at the front, advancing to rev 1.
	_, err := s.SubmitEdit(engine.Edit{
		Rev:    0,
		Delta:  insertAt(t, 11, 0, ">> "),
		Author: "core",
	})
	require.NoError(t, err)

	// A plugin, still at rev 0, appends at what it thinks is offset 11.
	applied, err := s.SubmitEdit(engine.Edit{
		Rev:    0,
		Delta:  insertAt(t, 11, 11, "!"),
		Author: "linter",
	})
	require.NoError(t, err)
	assert.Equal(t, ">> hello world!", s.Text())
	assert.Equal(t, uint64(2), applied.Rev)
	assert.False(t, applied.Partial)
}

func TestRebasePartialWhenRangeAlreadyDeleted(t *testing.T) {
	s := engine.NewState("hello world", 0)

	// The client deletes " world".
	_, err := s.SubmitEdit(engine.Edit{
		Rev:    0,
		Delta:  deleteRange(t, 11, 5, 11),
		Author: "core",
	})
	require.NoError(t, err)

	// A stale plugin edit deletes an overlapping range.
	applied, err := s.SubmitEdit(engine.Edit{
		Rev:    0,
		Delta:  deleteRange(t, 11, 4, 7),
		Author: "fmt",
	})
	require.NoError(t, err)
	assert.True(t, applied.Partial, "overlap with an already-deleted range is a partial apply")
	assert.Equal(t, "hell", s.Text())
}

func TestPriorityOrdersConcurrentInserts(t *testing.T) {
	// Two edits against the same base revision inserting at the same
	// offset: priority 2's text must land after priority 1's,
	// regardless of arrival order.
	run := func(t *testing.T, firstPriority, secondPriority int, firstText, secondText string) string {
		s := engine.NewState("hello world", 0)
		_, err := s.SubmitEdit(engine.Edit{
			Rev: 0, Delta: insertAt(t, 11, 5, firstText), Priority: firstPriority, Author: "a",
		})
		require.NoError(t, err)
		_, err = s.SubmitEdit(engine.Edit{
			Rev: 0, Delta: insertAt(t, 11, 5, secondText), Priority: secondPriority, Author: "b",
		})
		require.NoError(t, err)
		return s.Text()
	}

	lowFirst := run(t, 1, 2, "ONE", "TWO")
	highFirst := run(t, 2, 1, "TWO", "ONE")
	assert.Equal(t, "helloONETWO world", lowFirst)
	assert.Equal(t, lowFirst, highFirst, "arrival order must not affect the outcome")
}

func TestAuthorBreaksPriorityTies(t *testing.T) {
	run := func(t *testing.T, order [2]struct {
		author, text string
	}) string {
		s := engine.NewState("base", 0)
		for _, e := range order {
			_, err := s.SubmitEdit(engine.Edit{
				Rev: 0, Delta: insertAt(t, 4, 2, e.text), Priority: 5, Author: e.author,
			})
			require.NoError(t, err)
		}
		return s.Text()
	}

	alphaFirst := run(t, [2]struct{ author, text string }{{"alpha", "A"}, {"beta", "B"}})
	betaFirst := run(t, [2]struct{ author, text string }{{"beta", "B"}, {"alpha", "A"}})
	assert.Equal(t, "baABse", alphaFirst)
	assert.Equal(t, alphaFirst, betaFirst)
}

func TestDeterminismAcrossInterleavings(t *testing.T) {
	// A batch of concurrent edits all declared against rev 0,
	// delivered in different orders, must produce identical text.
	edits := []engine.Edit{
		{Rev: 0, Priority: 1, Author: "fmt"},
		{Rev: 0, Priority: 3, Author: "linter"},
		{Rev: 0, Priority: 2, Author: "spell"},
		{Rev: 0, Priority: 2, Author: "core"},
	}
	texts := []string{"F", "L", "S", "C"}
	offsets := []int{3, 3, 7, 3}

	apply := func(order []int) (string, []string) {
		s := engine.NewState("0123456789", 0)
		var effective []string
		for _, idx := range order {
			e := edits[idx]
			e.Delta = insertAt(t, 10, offsets[idx], texts[idx])
			applied, err := s.SubmitEdit(e)
			require.NoError(t, err)
			effective = append(effective, applied.Delta.String())
		}
		return s.Text(), effective
	}

	want, _ := apply([]int{0, 1, 2, 3})
	for _, order := range [][]int{{3, 2, 1, 0}, {1, 0, 3, 2}, {2, 3, 0, 1}} {
		got, _ := apply(order)
		assert.Equalf(t, want, got, "order %v diverged", order)
	}
}

func TestDeltaSinceMatchesComposition(t *testing.T) {
	s := engine.NewState("abcdef", 0)
	for i := 0; i < 4; i++ {
		d := insertAt(t, s.Len(), i, fmt.Sprintf("%d", i))
		_, err := s.SubmitEdit(engine.Edit{Rev: s.Rev(), Delta: d, Author: "core"})
		require.NoError(t, err)
	}

	since, err := s.DeltaSince(0)
	require.NoError(t, err)
	got, err := since.Apply("abcdef")
	require.NoError(t, err)
	assert.Equal(t, s.Text(), got)

	// Catch-up from the current revision is the identity.
	ident, err := s.DeltaSince(s.Rev())
	require.NoError(t, err)
	assert.True(t, ident.IsIdentity())
}

func TestDeltaSinceOutsideRetention(t *testing.T) {
	s := engine.NewState("", 2)
	for i := 0; i < 4; i++ {
		_, err := s.SubmitEdit(engine.Edit{
			Rev: s.Rev(), Delta: insertAt(t, s.Len(), 0, "x"), Author: "core",
		})
		require.NoError(t, err)
	}
	_, err := s.DeltaSince(0)
	assert.ErrorIs(t, err, engine.ErrRevisionTooOld)
}

func TestLineCount(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 1},
		{"one line", 1},
		{"two\nlines", 2},
		{"trailing\n", 2},
		{"a\nb\nc\n", 4},
		{"hello\nworld\n", 3},
	}
	for _, tt := range tests {
		s := engine.NewState(tt.text, 0)
		if got := s.LineCount(); got != tt.want {
			t.Errorf("LineCount(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}
