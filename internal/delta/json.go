package delta

import (
	"encoding/json"
	"fmt"
)

// Wire form:
//
//	{"base_len": 6, "els": [{"copy": [0, 5]}, {"insert": "rofls"}]}
//
// Decoding runs full structural validation, so a malformed delta is
// rejected at the protocol boundary and never partially constructed.

type wireDelta struct {
	BaseLen int           `json:"base_len"`
	Els     []wireElement `json:"els"`
}

type wireElement struct {
	Copy   *[2]int `json:"copy,omitempty"`
	Insert *string `json:"insert,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (d Delta) MarshalJSON() ([]byte, error) {
	w := wireDelta{BaseLen: d.baseLen, Els: make([]wireElement, 0, len(d.els))}
	for _, el := range d.els {
		if el.Kind == KindCopy {
			rng := [2]int{el.Start, el.End}
			w.Els = append(w.Els, wireElement{Copy: &rng})
		} else {
			text := el.Text
			w.Els = append(w.Els, wireElement{Insert: &text})
		}
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Delta) UnmarshalJSON(data []byte) error {
	var w wireDelta
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	els := make([]Element, 0, len(w.Els))
	for i, el := range w.Els {
		switch {
		case el.Copy != nil && el.Insert == nil:
			els = append(els, Copy(el.Copy[0], el.Copy[1]))
		case el.Insert != nil && el.Copy == nil:
			els = append(els, Insert(*el.Insert))
		default:
			return fmt.Errorf("%w: element %d must be exactly one of copy or insert", ErrMalformed, i)
		}
	}
	parsed, err := New(w.BaseLen, els)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
