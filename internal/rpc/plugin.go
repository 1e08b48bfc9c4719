package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/textcore/internal/config"
	"github.com/dshills/textcore/internal/delta"
	"github.com/dshills/textcore/internal/editor"
	"github.com/dshills/textcore/internal/syntax"
)

// PluginBufferInfo is the buffer snapshot handed to a plugin when it
// attaches.
type PluginBufferInfo struct {
	BufferID editor.BufferID   `json:"buffer_id"`
	Views    []editor.ViewID   `json:"views"`
	Rev      uint64            `json:"rev"`
	BufSize  int               `json:"buf_size"`
	NbLines  int               `json:"nb_lines"`
	Path     *string           `json:"path,omitempty"`
	Syntax   syntax.Definition `json:"syntax"`
	Config   *config.Table     `json:"config,omitempty"`
}

// PluginUpdate tells a plugin the buffer changed. Delta is omitted
// when the edit exceeds the configured size limit; the plugin then
// refetches what it needs through get_data.
type PluginUpdate struct {
	ViewID   editor.ViewID `json:"view_id"`
	Delta    *delta.Delta  `json:"delta,omitempty"`
	NewLen   int           `json:"new_len"`
	Rev      uint64        `json:"rev"`
	EditType string        `json:"edit_type"`
	Author   string        `json:"author"`
}

// PluginEdit is an edit a plugin asks the core to apply.
type PluginEdit struct {
	Rev         uint64       `json:"rev"`
	Delta       *delta.Delta `json:"delta"`
	Priority    uint64       `json:"priority"`
	AfterCursor bool         `json:"after_cursor"`
	Author      string       `json:"author"`
}

// UpdateResponse is a plugin's reply to an update: either an edit to
// apply or a bare ack. Untagged on the wire; a JSON number is an ack,
// an object is an edit.
type UpdateResponse struct {
	Edit *PluginEdit
	Ack  uint64
}

// UnmarshalJSON implements json.Unmarshaler.
func (u *UpdateResponse) UnmarshalJSON(data []byte) error {
	parsed := gjson.ParseBytes(data)
	switch parsed.Type {
	case gjson.Number:
		u.Edit = nil
		u.Ack = parsed.Uint()
		return nil
	case gjson.JSON:
		if !parsed.IsObject() {
			return fmt.Errorf("%w: update response must be edit or ack", ErrBadParams)
		}
		var e PluginEdit
		if err := json.Unmarshal(data, &e); err != nil {
			return fmt.Errorf("%w: %v", ErrBadParams, err)
		}
		u.Edit = &e
		return nil
	default:
		return fmt.Errorf("%w: update response must be edit or ack", ErrBadParams)
	}
}

// MarshalJSON implements json.Marshaler.
func (u UpdateResponse) MarshalJSON() ([]byte, error) {
	if u.Edit != nil {
		return json.Marshal(u.Edit)
	}
	return json.Marshal(u.Ack)
}

// HostNotification is the closed set of notifications the core sends
// a plugin.
type HostNotification interface {
	hostMethod() string
}

// HostRequest is the requests the core sends a plugin.
type HostRequest interface {
	hostRequestMethod() string
}

// Ping is a liveness probe.
type Ping struct{}

func (Ping) hostMethod() string { return "ping" }

// Initialize carries the buffers a freshly started plugin attaches
// to.
type Initialize struct {
	PluginID editor.PluginPid   `json:"plugin_id"`
	Buffers  []PluginBufferInfo `json:"buffer_info"`
}

func (*Initialize) hostMethod() string { return "initialize" }

// DidSave reports that a buffer was written to disk.
type DidSave struct {
	ViewID editor.ViewID `json:"view_id"`
	Path   string        `json:"path"`
}

func (*DidSave) hostMethod() string { return "did_save" }

// ConfigChanged delivers the changed slice of a view's collated
// config. Removed keys appear with a null value.
type ConfigChanged struct {
	ViewID  editor.ViewID `json:"view_id"`
	Changes *config.Table `json:"changes"`
}

func (*ConfigChanged) hostMethod() string { return "config_changed" }

// NewBuffer attaches a running plugin to a newly opened buffer.
type NewBuffer struct {
	Buffer PluginBufferInfo `json:"buffer_info"`
}

func (*NewBuffer) hostMethod() string { return "new_buffer" }

// DidClose detaches a plugin from a closed view.
type DidClose struct {
	ViewID editor.ViewID `json:"view_id"`
}

func (*DidClose) hostMethod() string { return "did_close" }

// Shutdown asks the plugin to exit.
type Shutdown struct{}

func (Shutdown) hostMethod() string { return "shutdown" }

// Update notifies a plugin of a buffer change and waits for its
// UpdateResponse.
type Update PluginUpdate

func (*Update) hostRequestMethod() string { return "update" }

// PluginCommand is a plugin-to-core message with its routing fields
// lifted out. On the wire view_id and plugin_id sit as siblings of
// the command's own fields.
type PluginCommand struct {
	ViewID editor.ViewID
	Pid    editor.PluginPid
	Cmd    PluginToCore
}

// PluginToCore is the closed set of commands a plugin sends the
// core.
type PluginToCore interface {
	pluginMethod() string
	expectsReply() bool
}

// GetData fetches a slice of buffer text. Rev must be the buffer's
// current revision.
type GetData struct {
	Offset  int    `json:"offset"`
	MaxSize int    `json:"max_size"`
	Rev     uint64 `json:"rev"`
}

func (*GetData) pluginMethod() string { return "get_data" }
func (*GetData) expectsReply() bool   { return true }

// LineCount asks for the buffer's line count.
type LineCount struct{}

func (LineCount) pluginMethod() string { return "line_count" }
func (LineCount) expectsReply() bool   { return true }

// GetSelections asks for the view's selection regions.
type GetSelections struct{}

func (GetSelections) pluginMethod() string { return "get_selections" }
func (GetSelections) expectsReply() bool   { return true }

// AddScopes interns scope name stacks and returns nothing; ids are
// assigned in order of first sight.
type AddScopes struct {
	Scopes [][]string `json:"scopes"`
}

func (*AddScopes) pluginMethod() string { return "add_scopes" }
func (*AddScopes) expectsReply() bool   { return false }

// UpdateSpans replaces a plugin's styling spans over a range. Stale
// revisions are dropped.
type UpdateSpans struct {
	Start int                `json:"start"`
	Len   int                `json:"len"`
	Spans []editor.ScopeSpan `json:"spans"`
	Rev   uint64             `json:"rev"`
}

func (*UpdateSpans) pluginMethod() string { return "update_spans" }
func (*UpdateSpans) expectsReply() bool   { return false }

// EditSubmission asks the core to apply an edit out of band.
type EditSubmission struct {
	Edit PluginEdit `json:"edit"`
}

func (*EditSubmission) pluginMethod() string { return "edit" }
func (*EditSubmission) expectsReply() bool   { return false }

// Alert surfaces a message to the user.
type Alert struct {
	Msg string `json:"msg"`
}

func (*Alert) pluginMethod() string { return "alert" }
func (*Alert) expectsReply() bool   { return false }

var pluginCommands = map[string]func() PluginToCore{
	"get_data":       func() PluginToCore { return new(GetData) },
	"line_count":     func() PluginToCore { return LineCount{} },
	"get_selections": func() PluginToCore { return GetSelections{} },
	"add_scopes":     func() PluginToCore { return new(AddScopes) },
	"update_spans":   func() PluginToCore { return new(UpdateSpans) },
	"edit":           func() PluginToCore { return new(EditSubmission) },
	"alert":          func() PluginToCore { return new(Alert) },
}

// ParsePluginCommand decodes a plugin-to-core frame. Routing fields
// are lifted first so an unknown view fails before payload decoding.
func ParsePluginCommand(method string, params []byte) (PluginCommand, error) {
	mk, ok := pluginCommands[method]
	if !ok {
		return PluginCommand{}, fmt.Errorf("%w: plugin method %q", ErrUnknownMethod, method)
	}
	parsed := gjson.ParseBytes(params)
	viewID := parsed.Get("view_id")
	if !viewID.Exists() || viewID.String() == "" {
		return PluginCommand{}, ErrMissingViewID
	}
	pc := PluginCommand{
		ViewID: editor.ViewID(viewID.String()),
		Pid:    editor.PluginPid(parsed.Get("plugin_id").Int()),
		Cmd:    mk(),
	}
	switch pc.Cmd.(type) {
	case LineCount, GetSelections:
		return pc, nil
	}
	if err := json.Unmarshal(params, pc.Cmd); err != nil {
		return PluginCommand{}, fmt.Errorf("%w: %v", ErrBadParams, err)
	}
	return pc, nil
}

// EncodePluginCommand frames a plugin-to-core message, reinserting
// the routing fields beside the command's own.
func EncodePluginCommand(id *uint64, pc PluginCommand) ([]byte, error) {
	payload, err := json.Marshal(pc.Cmd)
	if err != nil {
		return nil, err
	}
	if !hasFields(payload) {
		payload = []byte(`{}`)
	}
	if payload, err = sjson.SetBytes(payload, "view_id", string(pc.ViewID)); err != nil {
		return nil, err
	}
	if payload, err = sjson.SetBytes(payload, "plugin_id", int(pc.Pid)); err != nil {
		return nil, err
	}
	out := []byte(`{}`)
	if id != nil {
		if out, err = sjson.SetBytes(out, "id", *id); err != nil {
			return nil, err
		}
	}
	if out, err = sjson.SetBytes(out, "method", pc.Cmd.pluginMethod()); err != nil {
		return nil, err
	}
	return sjson.SetRawBytes(out, "params", payload)
}
