package editor

import "sort"

// ScopeSpan is a half-open byte range tagged with an opaque style
// scope identifier, the unit of output from a highlighting plugin.
type ScopeSpan struct {
	Start   int    `json:"start"`
	End     int    `json:"end"`
	ScopeID uint32 `json:"scope_id"`
}

// SpanStore holds the scope names and span annotations contributed by
// plugins. Each plugin writes its own layer; scope identifiers index
// into the shared name list in registration order.
type SpanStore struct {
	scopes []string
	layers map[PluginPid][]ScopeSpan
}

// NewSpanStore returns an empty store.
func NewSpanStore() *SpanStore {
	return &SpanStore{layers: make(map[PluginPid][]ScopeSpan)}
}

// AddScopes registers scope name groups (each group is one scope,
// expressed as a dotted-name stack) and returns the identifier of the
// first newly registered scope.
func (s *SpanStore) AddScopes(groups [][]string) uint32 {
	first := uint32(len(s.scopes))
	for _, group := range groups {
		name := ""
		for i, part := range group {
			if i > 0 {
				name += "."
			}
			name += part
		}
		s.scopes = append(s.scopes, name)
	}
	return first
}

// ScopeName resolves a scope identifier; unknown ids return "".
func (s *SpanStore) ScopeName(id uint32) string {
	if int(id) >= len(s.scopes) {
		return ""
	}
	return s.scopes[id]
}

// UpdateSpans replaces the plugin's annotations for the byte range
// [start, start+length) with the given spans. Span offsets arrive
// relative to start and are stored absolute. The caller is
// responsible for revision checks; stale updates must be discarded,
// not stored.
func (s *SpanStore) UpdateSpans(pid PluginPid, start, length int, spans []ScopeSpan) {
	old := s.layers[pid]
	end := start + length
	kept := old[:0:0]
	for _, sp := range old {
		if sp.End <= start || sp.Start >= end {
			kept = append(kept, sp)
		}
	}
	for _, sp := range spans {
		kept = append(kept, ScopeSpan{
			Start:   start + sp.Start,
			End:     start + sp.End,
			ScopeID: sp.ScopeID,
		})
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].Start < kept[j].Start })
	s.layers[pid] = kept
}

// Spans returns the plugin's annotations in ascending order.
func (s *SpanStore) Spans(pid PluginPid) []ScopeSpan {
	out := make([]ScopeSpan, len(s.layers[pid]))
	copy(out, s.layers[pid])
	return out
}

// DropLayer discards a plugin's annotations, on detach.
func (s *SpanStore) DropLayer(pid PluginPid) {
	delete(s.layers, pid)
}
