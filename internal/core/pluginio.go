package core

import (
	"fmt"

	"github.com/dshills/textcore/internal/rpc"
)

// DataChunk answers a plugin's get_data request.
type DataChunk struct {
	Chunk  string `json:"chunk"`
	Offset int    `json:"offset"`
	Rev    uint64 `json:"rev"`
}

// HandlePluginCommand services a plugin-to-core message. Requests
// return a result; notifications return the ack sentinel through the
// caller's reply path.
func (c *Core) HandlePluginCommand(pc rpc.PluginCommand) (any, *rpc.ResponseError) {
	if _, ok := pc.Cmd.(*rpc.Alert); ok {
		// Advisory only; no buffer involved.
		c.frontend.Notify("alert", map[string]any{"msg": pc.Cmd.(*rpc.Alert).Msg})
		return nil, nil
	}

	h, err := c.hostFor(pc.ViewID)
	if err != nil {
		return nil, toResponseError(err)
	}
	var result any
	var opErr error
	if err := h.call(func() { result, opErr = c.servicePluginCommand(h, pc) }); err != nil {
		return nil, toResponseError(err)
	}
	if opErr != nil {
		return nil, toResponseError(opErr)
	}
	return result, nil
}

// servicePluginCommand runs on the serializer.
func (c *Core) servicePluginCommand(h *bufferHost, pc rpc.PluginCommand) (any, error) {
	switch cmd := pc.Cmd.(type) {
	case *rpc.GetData:
		// The chunk is only coherent against the revision the plugin
		// is tracking; anything else must resync first.
		if cmd.Rev != h.buf.State.Rev() {
			return nil, fmt.Errorf("%w: get_data at rev %d, buffer at %d",
				ErrStaleRevision, cmd.Rev, h.buf.State.Rev())
		}
		text := h.buf.State.Text()
		start := cmd.Offset
		if start < 0 || start > len(text) {
			return nil, fmt.Errorf("get_data offset %d out of range", start)
		}
		end := len(text)
		if cmd.MaxSize > 0 && start+cmd.MaxSize < end {
			end = start + cmd.MaxSize
		}
		return DataChunk{Chunk: text[start:end], Offset: start, Rev: cmd.Rev}, nil

	case rpc.LineCount:
		return h.buf.State.LineCount(), nil

	case rpc.GetSelections:
		sels := make([][2]int, 0, len(h.views))
		for _, v := range h.views {
			start, end := v.Selection()
			sels = append(sels, [2]int{start, end})
		}
		return sels, nil

	case *rpc.AddScopes:
		first := h.buf.Spans.AddScopes(cmd.Scopes)
		c.logger.Debug("pid %d added %d scope groups, first id %d", pc.Pid, len(cmd.Scopes), first)
		return nil, nil

	case *rpc.UpdateSpans:
		// Spans are advisory; a stale revision is dropped, not an
		// error.
		if cmd.Rev != h.buf.State.Rev() {
			c.logger.Debug("discarding spans from pid %d at stale rev %d", pc.Pid, cmd.Rev)
			return nil, nil
		}
		h.buf.Spans.UpdateSpans(pc.Pid, cmd.Start, cmd.Len, cmd.Spans)
		c.frontend.Notify("styles_changed", map[string]any{
			"view_id": pc.ViewID,
			"start":   cmd.Start,
			"len":     cmd.Len,
		})
		return nil, nil

	case *rpc.EditSubmission:
		c.submitPluginEdit(h, pc.Pid, cmd.Edit)
		return nil, nil

	default:
		return nil, fmt.Errorf("%w: %T", rpc.ErrUnknownMethod, pc.Cmd)
	}
}
