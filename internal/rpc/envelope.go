package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/textcore/internal/editor"
)

// DecodeFrame splits a raw line into envelope fields without touching
// the payload. Params stay raw for the typed parsers.
func DecodeFrame(data []byte) (Frame, error) {
	if !gjson.ValidBytes(data) {
		return Frame{}, fmt.Errorf("%w: invalid JSON", ErrBadParams)
	}
	parsed := gjson.ParseBytes(data)
	method := parsed.Get("method")
	if !method.Exists() {
		return Frame{}, fmt.Errorf("%w: missing method", ErrBadParams)
	}
	f := Frame{Method: method.String()}
	if id := parsed.Get("id"); id.Exists() {
		v := id.Uint()
		f.ID = &v
	}
	if params := parsed.Get("params"); params.Exists() {
		f.Params = []byte(params.Raw)
	}
	return f, nil
}

// splitEditEnvelope lifts the routing fields out of an edit
// envelope: {"view_id": ..., "method": ..., "params": ...}. Some
// clients place the view_id inside the innermost params instead of
// beside the method, so that spot is checked as a fallback. The
// view_id is validated before the rest of the payload is looked at,
// so routing failures never depend on payload shape.
func splitEditEnvelope(params []byte) (editor.ViewID, string, []byte, error) {
	parsed := gjson.ParseBytes(params)
	viewID := parsed.Get("view_id")
	if !viewID.Exists() || viewID.String() == "" {
		viewID = parsed.Get("params.view_id")
	}
	if !viewID.Exists() || viewID.String() == "" {
		return "", "", nil, ErrMissingViewID
	}
	if _, err := editor.ParseViewID(viewID.String()); err != nil {
		return "", "", nil, fmt.Errorf("%w: %v", ErrMissingViewID, err)
	}
	method := parsed.Get("method")
	if !method.Exists() {
		return "", "", nil, fmt.Errorf("%w: edit envelope missing method", ErrBadParams)
	}
	var inner []byte
	if p := parsed.Get("params"); p.Exists() {
		inner = []byte(p.Raw)
	}
	return editor.ViewID(viewID.String()), method.String(), inner, nil
}

// EncodeEditNotification wraps an editing command in its envelope and
// frame. The inverse of DecodeFrame + splitEditEnvelope.
func EncodeEditNotification(viewID editor.ViewID, cmd EditNotification) ([]byte, error) {
	return encodeEdit(viewID, nil, cmd.editMethod(), cmd)
}

// EncodeEditRequest is EncodeEditNotification with a request id.
func EncodeEditRequest(id uint64, viewID editor.ViewID, cmd EditRequest) ([]byte, error) {
	return encodeEdit(viewID, &id, cmd.editRequestMethod(), cmd)
}

func encodeEdit(viewID editor.ViewID, id *uint64, method string, cmd any) ([]byte, error) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, err
	}
	out := []byte(`{}`)
	if id != nil {
		if out, err = sjson.SetBytes(out, "id", *id); err != nil {
			return nil, err
		}
	}
	if out, err = sjson.SetBytes(out, "method", "edit"); err != nil {
		return nil, err
	}
	if out, err = sjson.SetBytes(out, "params.view_id", string(viewID)); err != nil {
		return nil, err
	}
	if out, err = sjson.SetBytes(out, "params.method", method); err != nil {
		return nil, err
	}
	if hasFields(payload) {
		out, err = sjson.SetRawBytes(out, "params.params", payload)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// EncodeNotification frames a top-level notification.
func EncodeNotification(method string, params any) ([]byte, error) {
	return encodeFrame(nil, method, params)
}

// EncodeRequest frames a top-level request.
func EncodeRequest(id uint64, method string, params any) ([]byte, error) {
	return encodeFrame(&id, method, params)
}

func encodeFrame(id *uint64, method string, params any) ([]byte, error) {
	out := []byte(`{}`)
	var err error
	if id != nil {
		if out, err = sjson.SetBytes(out, "id", *id); err != nil {
			return nil, err
		}
	}
	if out, err = sjson.SetBytes(out, "method", method); err != nil {
		return nil, err
	}
	if params != nil {
		payload, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		if out, err = sjson.SetRawBytes(out, "params", payload); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// EncodeResponse frames a reply. Result is never omitted: replies
// with nothing to say carry the ack sentinel instead of null.
func EncodeResponse(id uint64, result any, respErr *ResponseError) ([]byte, error) {
	out, err := sjson.SetBytes([]byte(`{}`), "id", id)
	if err != nil {
		return nil, err
	}
	if respErr != nil {
		payload, err := json.Marshal(respErr)
		if err != nil {
			return nil, err
		}
		return sjson.SetRawBytes(out, "error", payload)
	}
	if result == nil {
		result = AckSentinel
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return sjson.SetRawBytes(out, "result", payload)
}

// hasFields reports whether encoded params carry anything worth
// sending. Empty objects come from parameterless commands.
func hasFields(payload []byte) bool {
	s := string(payload)
	return s != "{}" && s != "null"
}
