// Package rpc defines the message taxonomy for both protocol
// channels: client to core and core to plugin.
//
// Every message is a method-tagged frame:
//
//	{"method": "close_view", "params": {"view_id": "view-id-1"}}
//
// View-scoped messages carry "view_id" (and, on the plugin channel,
// "plugin_id") as sibling fields inside the params object. Decoding
// is two-phase: the routing fields are lifted out of the raw params
// with gjson before the command shape is consulted, so routing never
// depends on the growing command set. Encoding reinserts them with
// sjson.
//
// Each command set is a closed tagged union: an interface with one
// implementing type per wire method, dispatched by exhaustive type
// switch.
package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrUnknownMethod indicates a method tag outside the closed set.
	ErrUnknownMethod = errors.New("unknown method")

	// ErrMissingViewID indicates a view-scoped message with no
	// routing key.
	ErrMissingViewID = errors.New("missing view_id")

	// ErrBadParams indicates params that do not decode into the
	// method's shape.
	ErrBadParams = errors.New("malformed params")
)

// Frame is one message on either channel. Requests carry an ID and
// expect exactly one Response with the same ID; notifications carry
// none.
type Frame struct {
	ID     *uint64         `json:"id,omitempty"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// IsRequest reports whether the frame expects a reply.
func (f Frame) IsRequest() bool { return f.ID != nil }

// Response is the reply to a request. Exactly one of Result and Error
// is set; an acknowledgement with no data carries an explicit
// sentinel result, never null.
type Response struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ResponseError  `json:"error,omitempty"`
}

// ResponseError is the error half of a reply.
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Error codes carried in responses.
const (
	CodeUnknownMethod  = -32601
	CodeBadParams      = -32602
	CodeUnknownView    = 1
	CodeUnknownBuffer  = 2
	CodeUnknownPlugin  = 3
	CodeRevisionStale  = 4
	CodeMalformedDelta = 5
)

// AckSentinel is the explicit "nothing to report" result. Replies are
// never null.
const AckSentinel = 0

// LineRange is an inclusive line interval. On the wire it is a
// positional two-element array, not a named object.
type LineRange struct {
	First int64
	Last  int64
}

// MarshalJSON implements json.Marshaler, producing [first, last].
func (r LineRange) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int64{r.First, r.Last})
}

// UnmarshalJSON implements json.Unmarshaler, accepting [first, last].
func (r *LineRange) UnmarshalJSON(data []byte) error {
	var arr [2]int64
	if err := json.Unmarshal(data, &arr); err != nil {
		return fmt.Errorf("%w: line range wants [first, last]: %v", ErrBadParams, err)
	}
	r.First, r.Last = arr[0], arr[1]
	return nil
}

// MouseAction carries a click or drag position.
type MouseAction struct {
	Line       uint64  `json:"line"`
	Column     uint64  `json:"column"`
	Flags      uint64  `json:"flags"`
	ClickCount *uint64 `json:"click_count,omitempty"`
}

// GestureType is the closed set of gesture kinds.
type GestureType string

// The gestures the protocol defines.
const (
	GestureToggleSel GestureType = "toggle_sel"
)
