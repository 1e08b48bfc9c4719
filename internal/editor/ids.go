// Package editor holds the identifier model and the buffer/view
// bookkeeping built around the merge engine: one Buffer per open
// document, zero or more Views bound to it, undo history, and the
// scope-span layers contributed by plugins.
package editor

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
)

// BufferID names a buffer, unique within a running core. IDs are
// never reused while any reference to the old buffer could exist.
type BufferID uint64

// ViewID names a view. A view is bound to exactly one buffer at
// creation and never rebinds. The wire form is "view-id-N".
type ViewID string

// PluginPid names a running plugin process.
type PluginPid int

const viewIDPrefix = "view-id-"

// ParseViewID validates a wire-form view identifier.
func ParseViewID(s string) (ViewID, error) {
	rest, ok := strings.CutPrefix(s, viewIDPrefix)
	if !ok {
		return "", fmt.Errorf("malformed view id %q", s)
	}
	if _, err := strconv.ParseUint(rest, 10, 64); err != nil {
		return "", fmt.Errorf("malformed view id %q", s)
	}
	return ViewID(s), nil
}

// Allocator hands out identifiers. Counters only advance, so an id is
// never reused within a core instance.
type Allocator struct {
	nextBuffer atomic.Uint64
	nextView   atomic.Uint64
	nextPlugin atomic.Int64
}

// NextBufferID returns a fresh buffer identifier.
func (a *Allocator) NextBufferID() BufferID {
	return BufferID(a.nextBuffer.Add(1))
}

// NextViewID returns a fresh view identifier.
func (a *Allocator) NextViewID() ViewID {
	return ViewID(fmt.Sprintf("%s%d", viewIDPrefix, a.nextView.Add(1)))
}

// NextPluginPid returns a fresh plugin process identifier.
func (a *Allocator) NextPluginPid() PluginPid {
	return PluginPid(a.nextPlugin.Add(1))
}
