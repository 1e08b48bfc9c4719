// Package delta implements the incremental edit representation used
// throughout the synchronization core.
//
// A Delta expresses an edit as a transform of a base text into a new
// text: an ordered sequence of elements, each either copying a byte
// range from the base or inserting literal text. Byte ranges the
// sequence does not copy are deletions. Deltas are immutable after
// construction and always structurally valid; invalid element lists
// are rejected by New (and by JSON decoding) with ErrMalformed.
package delta

import (
	"errors"
	"fmt"
	"strings"
)

// Structural and application errors.
var (
	// ErrMalformed indicates an element list that violates the delta
	// invariants: overlapping or out-of-order copy ranges, or ranges
	// outside [0, base_len].
	ErrMalformed = errors.New("malformed delta")

	// ErrLengthMismatch indicates a base text (or a composed delta)
	// whose length disagrees with the delta's base length.
	ErrLengthMismatch = errors.New("delta length mismatch")
)

// ElementKind distinguishes the two element forms.
type ElementKind int

const (
	// KindCopy copies a byte range from the base text.
	KindCopy ElementKind = iota
	// KindInsert inserts literal text.
	KindInsert
)

// Element is a single step of a delta: either a copy of the half-open
// base range [Start, End), or an insertion of Text.
type Element struct {
	Kind  ElementKind
	Start int
	End   int
	Text  string
}

// Copy returns a copy element for the base range [start, end).
func Copy(start, end int) Element {
	return Element{Kind: KindCopy, Start: start, End: end}
}

// Insert returns an insert element for the given literal text.
func Insert(text string) Element {
	return Element{Kind: KindInsert, Text: text}
}

func (e Element) length() int {
	if e.Kind == KindCopy {
		return e.End - e.Start
	}
	return len(e.Text)
}

// Delta is a validated transform from a base text of length BaseLen
// to a new text.
type Delta struct {
	baseLen int
	els     []Element
}

// New builds a delta over a base of length baseLen from the given
// element list. It fails with ErrMalformed if any copy range is
// inverted, out of bounds, or not strictly after the previous copy
// range. Zero-length copies and empty inserts are dropped.
func New(baseLen int, els []Element) (Delta, error) {
	if baseLen < 0 {
		return Delta{}, fmt.Errorf("%w: negative base length %d", ErrMalformed, baseLen)
	}
	kept := make([]Element, 0, len(els))
	prevEnd := 0
	for i, el := range els {
		switch el.Kind {
		case KindCopy:
			if el.Start > el.End {
				return Delta{}, fmt.Errorf("%w: inverted copy range [%d, %d) at element %d",
					ErrMalformed, el.Start, el.End, i)
			}
			if el.Start < 0 || el.End > baseLen {
				return Delta{}, fmt.Errorf("%w: copy range [%d, %d) outside base of length %d",
					ErrMalformed, el.Start, el.End, baseLen)
			}
			if el.Start < prevEnd {
				return Delta{}, fmt.Errorf("%w: copy range [%d, %d) overlaps or precedes earlier range ending at %d",
					ErrMalformed, el.Start, el.End, prevEnd)
			}
			prevEnd = el.End
			if el.Start == el.End {
				continue
			}
		case KindInsert:
			if el.Text == "" {
				continue
			}
		default:
			return Delta{}, fmt.Errorf("%w: unknown element kind %d", ErrMalformed, el.Kind)
		}
		kept = append(kept, el)
	}
	return Delta{baseLen: baseLen, els: kept}, nil
}

// MustNew is New for statically-known element lists; it panics on a
// malformed delta.
func MustNew(baseLen int, els []Element) Delta {
	d, err := New(baseLen, els)
	if err != nil {
		panic(err)
	}
	return d
}

// Identity returns the delta that leaves a base of length baseLen
// unchanged.
func Identity(baseLen int) Delta {
	if baseLen == 0 {
		return Delta{}
	}
	return Delta{baseLen: baseLen, els: []Element{Copy(0, baseLen)}}
}

// Simple constructors for the two common edits.

// SimpleInsert returns the delta inserting text at offset into a base
// of length baseLen.
func SimpleInsert(baseLen, offset int, text string) (Delta, error) {
	if offset < 0 || offset > baseLen {
		return Delta{}, fmt.Errorf("%w: insert offset %d outside base of length %d",
			ErrMalformed, offset, baseLen)
	}
	return New(baseLen, []Element{Copy(0, offset), Insert(text), Copy(offset, baseLen)})
}

// SimpleDelete returns the delta deleting [start, end) from a base of
// length baseLen.
func SimpleDelete(baseLen, start, end int) (Delta, error) {
	if start > end || start < 0 || end > baseLen {
		return Delta{}, fmt.Errorf("%w: delete range [%d, %d) outside base of length %d",
			ErrMalformed, start, end, baseLen)
	}
	return New(baseLen, []Element{Copy(0, start), Copy(end, baseLen)})
}

// SimpleReplace returns the delta replacing [start, end) with text.
func SimpleReplace(baseLen, start, end int, text string) (Delta, error) {
	if start > end || start < 0 || end > baseLen {
		return Delta{}, fmt.Errorf("%w: replace range [%d, %d) outside base of length %d",
			ErrMalformed, start, end, baseLen)
	}
	return New(baseLen, []Element{Copy(0, start), Insert(text), Copy(end, baseLen)})
}

// BaseLen returns the length of text this delta applies to.
func (d Delta) BaseLen() int { return d.baseLen }

// Elements returns a copy of the element list.
func (d Delta) Elements() []Element {
	out := make([]Element, len(d.els))
	copy(out, d.els)
	return out
}

// ResultingLength returns the length of the text produced by applying
// the delta, without materializing it.
func (d Delta) ResultingLength() int {
	n := 0
	for _, el := range d.els {
		n += el.length()
	}
	return n
}

// InsertedBytes returns the total volume of inserted text. The plugin
// dispatcher compares this against the oversized-edit threshold.
func (d Delta) InsertedBytes() int {
	n := 0
	for _, el := range d.els {
		if el.Kind == KindInsert {
			n += len(el.Text)
		}
	}
	return n
}

// IsIdentity reports whether the delta reduces to copying the entire
// base unchanged.
func (d Delta) IsIdentity() bool {
	next := 0
	for _, el := range d.els {
		if el.Kind != KindCopy || el.Start != next {
			return false
		}
		next = el.End
	}
	return next == d.baseLen
}

// AsSimpleInsert recognizes the single-point-insertion case: a delta
// whose copied ranges form a prefix run of the base with text
// inserted at exactly one offset. Uncovered base after the last copy
// is allowed, so a delta that also trims the tail still reports its
// insertion point. Callers use it as a fast path. Adjacent insert
// elements at the same point count as one insertion.
func (d Delta) AsSimpleInsert() (offset int, text string, ok bool) {
	covered := 0
	var sb strings.Builder
	sawInsert := false
	for _, el := range d.els {
		switch el.Kind {
		case KindCopy:
			if el.Start != covered {
				return 0, "", false // a gap: this delta deletes mid-base
			}
			covered = el.End
		case KindInsert:
			if sawInsert && offset != covered {
				return 0, "", false // second insertion point
			}
			if !sawInsert {
				offset = covered
				sawInsert = true
			}
			sb.WriteString(el.Text)
		}
	}
	if !sawInsert {
		return 0, "", false
	}
	return offset, sb.String(), true
}

// Apply transforms base into the new text. It fails with
// ErrLengthMismatch if len(base) differs from the delta's base length.
func (d Delta) Apply(base string) (string, error) {
	if len(base) != d.baseLen {
		return "", fmt.Errorf("%w: delta base length %d, text length %d",
			ErrLengthMismatch, d.baseLen, len(base))
	}
	var sb strings.Builder
	sb.Grow(d.ResultingLength())
	for _, el := range d.els {
		if el.Kind == KindCopy {
			sb.WriteString(base[el.Start:el.End])
		} else {
			sb.WriteString(el.Text)
		}
	}
	return sb.String(), nil
}

// Inverse returns the delta that undoes d: applied to d's output it
// reproduces base. It fails with ErrLengthMismatch if base does not
// match the delta's base length.
func (d Delta) Inverse(base string) (Delta, error) {
	if len(base) != d.baseLen {
		return Delta{}, fmt.Errorf("%w: delta base length %d, text length %d",
			ErrLengthMismatch, d.baseLen, len(base))
	}
	els := make([]Element, 0, len(d.els)+1)
	out := 0      // position in d's output
	frontier := 0 // position in base covered so far
	for _, el := range d.els {
		if el.Kind == KindCopy {
			if frontier < el.Start {
				// d deleted base[frontier:el.Start]; restore it.
				els = append(els, Insert(base[frontier:el.Start]))
			}
			els = append(els, Copy(out, out+el.End-el.Start))
			out += el.End - el.Start
			frontier = el.End
		} else {
			// d's insertion occupies [out, out+len) in the output;
			// the inverse skips it.
			out += len(el.Text)
		}
	}
	if frontier < d.baseLen {
		els = append(els, Insert(base[frontier:]))
	}
	return New(d.ResultingLength(), els)
}

func (d Delta) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "delta(base=%d", d.baseLen)
	for _, el := range d.els {
		if el.Kind == KindCopy {
			fmt.Fprintf(&sb, " copy[%d,%d)", el.Start, el.End)
		} else {
			fmt.Fprintf(&sb, " insert(%d)", len(el.Text))
		}
	}
	sb.WriteString(")")
	return sb.String()
}
