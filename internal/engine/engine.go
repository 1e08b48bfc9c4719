// Package engine implements the revision-tracked merge engine.
//
// Each buffer owns one State: the current text, a revision counter
// that increases by one on every accepted edit, and a bounded log of
// recently applied deltas. Edits submitted against an older revision
// are rebased forward through the log deterministically, with
// positional conflicts at the same offset resolved by priority, then
// author, then arrival order.
//
// State is not safe for concurrent use; the per-buffer serializer is
// its only owner.
package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/textcore/internal/delta"
)

var (
	// ErrRevisionTooOld indicates a submission referencing a revision
	// outside the retention window. The caller must fall back to a
	// full refetch; this is a handled condition, not a fault.
	ErrRevisionTooOld = errors.New("revision outside retention window")

	// ErrFutureRevision indicates a submission referencing a revision
	// the buffer has not reached. Always a protocol error.
	ErrFutureRevision = errors.New("revision ahead of buffer")
)

// DefaultRetention is the revision log depth used when none is
// configured.
const DefaultRetention = 32

// Edit is a candidate edit submitted for merging.
type Edit struct {
	// Rev is the revision the delta was authored against.
	Rev uint64
	// Delta transforms the text as it stood at Rev.
	Delta delta.Delta
	// Priority orders concurrent edits: a strictly higher priority is
	// treated as having logically occurred later, so its insertions
	// land after lower-priority insertions at the same offset.
	Priority int
	// AfterCursor records whether inserted text is logically to the
	// right of the pre-edit cursor. It does not affect merging.
	AfterCursor bool
	// Author identifies the edit's origin, for logging and tie-break.
	Author string
}

// Applied reports the outcome of an accepted edit.
type Applied struct {
	// Rev is the revision the edit produced.
	Rev uint64
	// Delta is the effective delta actually applied, which differs
	// from the submitted one when rebasing altered it. All observers
	// converge by applying this delta.
	Delta delta.Delta
	// NewLen is the text length after the edit.
	NewLen int
	// Partial reports that rebasing dropped part of the edit: a
	// region it deleted had already been deleted by an intervening
	// edit.
	Partial bool
}

type logEntry struct {
	rev      uint64
	delta    delta.Delta
	priority int
	author   string
	seq      uint64
}

// State is the synchronization state of a single buffer.
type State struct {
	rev       uint64
	text      string
	log       []logEntry
	retention int
	nextSeq   uint64
}

// NewState creates buffer state with the given initial text. A
// retention of zero or less uses DefaultRetention.
func NewState(text string, retention int) *State {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &State{text: text, retention: retention}
}

// Rev returns the current revision.
func (s *State) Rev() uint64 { return s.rev }

// Text returns the current text.
func (s *State) Text() string { return s.text }

// Len returns the current text length in bytes.
func (s *State) Len() int { return len(s.text) }

// LineCount returns the number of lines: the newline count plus one.
// An empty buffer has one line, and a trailing newline starts a new
// (empty) last line.
func (s *State) LineCount() int {
	return strings.Count(s.text, "\n") + 1
}

// oldestBase is the oldest revision an edit may still be authored
// against and rebased incrementally.
func (s *State) oldestBase() uint64 {
	return s.rev - uint64(len(s.log))
}

// SubmitEdit merges a candidate edit into the buffer. On success the
// text is updated, the revision advances by one, and the effective
// delta is returned. On failure nothing changes: a rejected edit
// never advances the revision.
func (s *State) SubmitEdit(e Edit) (Applied, error) {
	if e.Rev > s.rev {
		return Applied{}, fmt.Errorf("%w: submitted %d, current %d", ErrFutureRevision, e.Rev, s.rev)
	}
	if e.Rev < s.oldestBase() {
		return Applied{}, fmt.Errorf("%w: submitted %d, retained back to %d",
			ErrRevisionTooOld, e.Rev, s.oldestBase())
	}
	if e.Delta.BaseLen() != s.lenAt(e.Rev) {
		return Applied{}, fmt.Errorf("%w: delta base %d, text at rev %d was %d bytes",
			delta.ErrLengthMismatch, e.Delta.BaseLen(), e.Rev, s.lenAt(e.Rev))
	}

	effective, partial, err := s.rebase(e)
	if err != nil {
		return Applied{}, err
	}
	newText, err := effective.Apply(s.text)
	if err != nil {
		return Applied{}, err
	}

	s.text = newText
	s.rev++
	s.log = append(s.log, logEntry{
		rev:      s.rev,
		delta:    effective,
		priority: e.Priority,
		author:   e.Author,
		seq:      s.nextSeq,
	})
	s.nextSeq++
	if len(s.log) > s.retention {
		s.log = s.log[len(s.log)-s.retention:]
	}
	return Applied{Rev: s.rev, Delta: effective, NewLen: len(newText), Partial: partial}, nil
}

// lenAt returns the text length as it stood at rev, which must be
// within the retention window.
func (s *State) lenAt(rev uint64) int {
	if rev == s.rev {
		return len(s.text)
	}
	// The first delta applied after rev had the text at rev as its
	// base.
	idx := len(s.log) - int(s.rev-rev)
	return s.log[idx].delta.BaseLen()
}

// rebase transforms the candidate's delta forward through every log
// entry newer than its base revision.
func (s *State) rebase(e Edit) (delta.Delta, bool, error) {
	if e.Rev == s.rev {
		return e.Delta, false, nil
	}
	ins, dels := e.Delta.Ops()
	partial := false
	start := len(s.log) - int(s.rev-e.Rev)
	for _, entry := range s.log[start:] {
		after := laterThan(e.Priority, e.Author, entry)
		for i := range ins {
			ins[i].Pos = entry.delta.MapCoord(ins[i].Pos, after)
		}
		var mapped []delta.DeleteOp
		for _, dr := range dels {
			ranges, dropped := entry.delta.MapRange(dr.Start, dr.End)
			partial = partial || dropped
			mapped = append(mapped, ranges...)
		}
		dels = mapped
	}
	d, err := delta.FromOps(len(s.text), ins, dels)
	if err != nil {
		return delta.Delta{}, false, err
	}
	return d, partial, nil
}

// laterThan decides whether the candidate logically follows an
// already-applied entry: strictly higher priority wins; ties fall to
// the lexicographically greater author; on a full tie the logged
// entry arrived first, so the candidate is later.
func laterThan(priority int, author string, entry logEntry) bool {
	if priority != entry.priority {
		return priority > entry.priority
	}
	if author != entry.author {
		return author > entry.author
	}
	return true
}

// DeltaSince returns one delta equivalent to every edit applied
// after rev, for observers catching up incrementally. For the
// current revision it returns the identity delta.
func (s *State) DeltaSince(rev uint64) (delta.Delta, error) {
	if rev > s.rev {
		return delta.Delta{}, fmt.Errorf("%w: requested %d, current %d", ErrFutureRevision, rev, s.rev)
	}
	if rev < s.oldestBase() {
		return delta.Delta{}, fmt.Errorf("%w: requested %d, retained back to %d",
			ErrRevisionTooOld, rev, s.oldestBase())
	}
	acc := delta.Identity(s.lenAt(rev))
	for _, entry := range s.log[len(s.log)-int(s.rev-rev):] {
		next, err := delta.Compose(acc, entry.delta)
		if err != nil {
			return delta.Delta{}, err
		}
		acc = next
	}
	return acc, nil
}
