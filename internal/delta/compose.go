package delta

import "fmt"

// Compose returns the single delta equivalent to applying earlier and
// then later, expressed against earlier's base. It fails with
// ErrLengthMismatch unless later's base length equals earlier's
// resulting length. Compose is associative whenever the lengths line
// up.
func Compose(earlier, later Delta) (Delta, error) {
	mid := earlier.ResultingLength()
	if later.baseLen != mid {
		return Delta{}, fmt.Errorf("%w: composing base %d onto result %d",
			ErrLengthMismatch, later.baseLen, mid)
	}

	// Index earlier's output: each span of the intermediate text is
	// backed by either a base range or a slice of inserted text.
	type span struct {
		outStart, outEnd int
		el               Element
	}
	spans := make([]span, 0, len(earlier.els))
	out := 0
	for _, el := range earlier.els {
		n := el.length()
		spans = append(spans, span{outStart: out, outEnd: out + n, el: el})
		out += n
	}

	els := make([]Element, 0, len(later.els))
	si := 0
	for _, el := range later.els {
		if el.Kind == KindInsert {
			els = append(els, el)
			continue
		}
		// Slice earlier's output by the copied range [Start, End).
		for i := si; i < len(spans); i++ {
			sp := spans[i]
			if sp.outEnd <= el.Start {
				si = i + 1
				continue
			}
			if sp.outStart >= el.End {
				break
			}
			lo := max(el.Start, sp.outStart) - sp.outStart
			hi := min(el.End, sp.outEnd) - sp.outStart
			if sp.el.Kind == KindCopy {
				els = append(els, Copy(sp.el.Start+lo, sp.el.Start+hi))
			} else {
				els = append(els, Insert(sp.el.Text[lo:hi]))
			}
		}
	}
	return New(earlier.baseLen, normalize(els))
}

// normalize merges adjacent compatible elements: abutting copy ranges
// and consecutive inserts. Element order is preserved.
func normalize(els []Element) []Element {
	out := make([]Element, 0, len(els))
	for _, el := range els {
		if el.length() == 0 {
			continue
		}
		if n := len(out); n > 0 {
			last := &out[n-1]
			if last.Kind == KindCopy && el.Kind == KindCopy && last.End == el.Start {
				last.End = el.End
				continue
			}
			if last.Kind == KindInsert && el.Kind == KindInsert {
				last.Text += el.Text
				continue
			}
		}
		out = append(out, el)
	}
	return out
}
