package core

import (
	"errors"

	"github.com/dshills/textcore/internal/delta"
	"github.com/dshills/textcore/internal/engine"
	"github.com/dshills/textcore/internal/plugin"
	"github.com/dshills/textcore/internal/rpc"
)

var (
	// ErrUnknownView means no view with the given id exists.
	ErrUnknownView = errors.New("unknown view")
	// ErrUnknownBuffer means no buffer with the given id exists.
	ErrUnknownBuffer = errors.New("unknown buffer")
	// ErrShuttingDown means the core no longer accepts work.
	ErrShuttingDown = errors.New("core is shutting down")
	// ErrStaleRevision means a plugin addressed a superseded revision.
	ErrStaleRevision = errors.New("stale revision")
)

// toResponseError translates an internal error into the wire error
// for a request reply. Rejections always carry a reason; nothing is
// silently dropped.
func toResponseError(err error) *rpc.ResponseError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrUnknownView):
		return &rpc.ResponseError{Code: rpc.CodeUnknownView, Message: err.Error()}
	case errors.Is(err, ErrUnknownBuffer):
		return &rpc.ResponseError{Code: rpc.CodeUnknownBuffer, Message: err.Error()}
	case errors.Is(err, plugin.ErrUnknownPlugin), errors.Is(err, plugin.ErrNotRunning):
		return &rpc.ResponseError{Code: rpc.CodeUnknownPlugin, Message: err.Error()}
	case errors.Is(err, engine.ErrRevisionTooOld), errors.Is(err, ErrStaleRevision):
		return &rpc.ResponseError{Code: rpc.CodeRevisionStale, Message: err.Error()}
	case errors.Is(err, delta.ErrMalformed), errors.Is(err, delta.ErrLengthMismatch):
		return &rpc.ResponseError{Code: rpc.CodeMalformedDelta, Message: err.Error()}
	case errors.Is(err, rpc.ErrUnknownMethod):
		return &rpc.ResponseError{Code: rpc.CodeUnknownMethod, Message: err.Error()}
	default:
		return &rpc.ResponseError{Code: rpc.CodeBadParams, Message: err.Error()}
	}
}
