package delta

import "fmt"

// This file provides the coordinate-transform view of a delta used by
// the merge engine to rebase edits authored against older revisions.
// A delta is decomposed into primitive inserts and deletes, the
// primitives are mapped through the coordinate transforms of the
// intervening deltas, and a new delta is rebuilt against the current
// text.

// InsertOp is a primitive insertion at a base-coordinate position.
type InsertOp struct {
	Pos  int
	Text string
}

// DeleteOp is a primitive deletion of the base range [Start, End).
type DeleteOp struct {
	Start, End int
}

// Ops decomposes the delta into primitive inserts and deletes in base
// coordinates. An insert adjacent to a deleted range is positioned at
// the range's start (replace semantics). Inserts are returned in
// element order; deletes in ascending order.
func (d Delta) Ops() ([]InsertOp, []DeleteOp) {
	var ins []InsertOp
	var dels []DeleteOp
	frontier := 0
	for _, el := range d.els {
		if el.Kind == KindCopy {
			if frontier < el.Start {
				dels = append(dels, DeleteOp{Start: frontier, End: el.Start})
			}
			frontier = el.End
		} else {
			ins = append(ins, InsertOp{Pos: frontier, Text: el.Text})
		}
	}
	if frontier < d.baseLen {
		dels = append(dels, DeleteOp{Start: frontier, End: d.baseLen})
	}
	return ins, dels
}

// FromOps rebuilds a delta over a base of length baseLen from
// primitive operations. Inserts must be sorted by position (stable
// order for equal positions is preserved); deletes may overlap and
// are merged. An insert positioned inside a deleted range survives at
// the range's collapse point.
func FromOps(baseLen int, ins []InsertOp, dels []DeleteOp) (Delta, error) {
	merged, err := mergeDeletes(baseLen, dels)
	if err != nil {
		return Delta{}, err
	}
	for i := 1; i < len(ins); i++ {
		if ins[i].Pos < ins[i-1].Pos {
			return Delta{}, fmt.Errorf("%w: inserts out of order at %d", ErrMalformed, ins[i].Pos)
		}
	}
	els := make([]Element, 0, len(ins)+len(merged)+1)
	cur := 0
	ii, di := 0, 0
	for ii < len(ins) || di < len(merged) {
		ipos := baseLen + 1
		if ii < len(ins) {
			ipos = ins[ii].Pos
			if ipos < 0 || ipos > baseLen {
				return Delta{}, fmt.Errorf("%w: insert position %d outside base of length %d",
					ErrMalformed, ipos, baseLen)
			}
		}
		dpos := baseLen + 1
		if di < len(merged) {
			dpos = merged[di].Start
		}
		if ii < len(ins) && ipos <= dpos {
			if ipos > cur {
				els = append(els, Copy(cur, ipos))
				cur = ipos
			}
			els = append(els, Insert(ins[ii].Text))
			ii++
			continue
		}
		if dpos > cur {
			els = append(els, Copy(cur, dpos))
			cur = dpos
		}
		if merged[di].End > cur {
			cur = merged[di].End
		}
		di++
	}
	if cur < baseLen {
		els = append(els, Copy(cur, baseLen))
	}
	return New(baseLen, normalize(els))
}

func mergeDeletes(baseLen int, dels []DeleteOp) ([]DeleteOp, error) {
	if len(dels) == 0 {
		return nil, nil
	}
	sorted := make([]DeleteOp, len(dels))
	copy(sorted, dels)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Start < sorted[j-1].Start; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	out := sorted[:0]
	for _, dr := range sorted {
		if dr.Start > dr.End || dr.Start < 0 || dr.End > baseLen {
			return nil, fmt.Errorf("%w: delete range [%d, %d) outside base of length %d",
				ErrMalformed, dr.Start, dr.End, baseLen)
		}
		if dr.Start == dr.End {
			continue
		}
		if n := len(out); n > 0 && dr.Start <= out[n-1].End {
			if dr.End > out[n-1].End {
				out[n-1].End = dr.End
			}
			continue
		}
		out = append(out, dr)
	}
	return out, nil
}

// MapCoord maps a base-coordinate position through the delta into
// output coordinates. Positions inside a deleted range collapse to
// the range's image. When the delta inserted text at exactly pos,
// after selects whether the mapped position lands after (true) or
// before (false) the inserted text.
func (d Delta) MapCoord(pos int, after bool) int {
	out := 0
	frontier := 0
	for _, el := range d.els {
		if el.Kind == KindCopy {
			if pos < el.Start {
				return out
			}
			if pos < el.End {
				return out + (pos - el.Start)
			}
			out += el.End - el.Start
			frontier = el.End
		} else {
			if pos == frontier && !after {
				return out
			}
			out += len(el.Text)
		}
	}
	return out
}

// MapRange maps the base range [start, end) through the delta,
// returning the surviving output ranges in ascending order. Portions
// the delta deleted are omitted and reported via dropped; text the
// delta inserted inside the range is skipped over, never included.
func (d Delta) MapRange(start, end int) (ranges []DeleteOp, dropped bool) {
	out := 0
	covered := 0
	for _, el := range d.els {
		if el.Kind == KindInsert {
			out += len(el.Text)
			continue
		}
		lo := max(start, el.Start)
		hi := min(end, el.End)
		if lo < hi {
			mapped := DeleteOp{Start: out + lo - el.Start, End: out + hi - el.Start}
			if n := len(ranges); n > 0 && ranges[n-1].End == mapped.Start {
				ranges[n-1].End = mapped.End
			} else {
				ranges = append(ranges, mapped)
			}
			covered += hi - lo
		}
		out += el.End - el.Start
	}
	return ranges, covered < end-start
}
