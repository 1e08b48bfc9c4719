package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/dshills/textcore/internal/editor"
)

// CoreNotification is the closed set of top-level client
// notifications.
type CoreNotification interface {
	coreMethod() string
}

// CoreRequest is the top-level client requests.
type CoreRequest interface {
	coreRequestMethod() string
}

// EditNotificationCommand routes an editing notification to a view.
type EditNotificationCommand struct {
	ViewID editor.ViewID
	Cmd    EditNotification
}

func (*EditNotificationCommand) coreMethod() string { return "edit" }

// EditRequestCommand routes an editing request to a view.
type EditRequestCommand struct {
	ViewID editor.ViewID
	Cmd    EditRequest
}

func (*EditRequestCommand) coreRequestMethod() string { return "edit" }

// PluginStart asks the core to launch a plugin against a view.
type PluginStart struct {
	ViewID     editor.ViewID `json:"view_id"`
	PluginName string        `json:"plugin_name"`
}

func (*PluginStart) coreMethod() string { return "plugin" }

// PluginStop asks the core to stop a running plugin.
type PluginStop struct {
	ViewID     editor.ViewID `json:"view_id"`
	PluginName string        `json:"plugin_name"`
}

func (*PluginStop) coreMethod() string { return "plugin" }

// CloseView releases a view and, when it was the last one, its
// buffer.
type CloseView struct {
	ViewID editor.ViewID `json:"view_id"`
}

func (*CloseView) coreMethod() string { return "close_view" }

// Save writes a view's buffer to a file.
type Save struct {
	ViewID   editor.ViewID `json:"view_id"`
	FilePath string        `json:"file_path"`
}

func (*Save) coreMethod() string { return "save" }

// SetTheme selects a theme by name.
type SetTheme struct {
	ThemeName string `json:"theme_name"`
}

func (*SetTheme) coreMethod() string { return "set_theme" }

// ClientStarted is the first notification a client sends. It names
// the directories config and extras live in; both are optional.
type ClientStarted struct {
	ConfigDir       string `json:"config_dir,omitempty"`
	ClientExtrasDir string `json:"client_extras_dir,omitempty"`
}

func (*ClientStarted) coreMethod() string { return "client_started" }

// NewView opens a view, creating or reusing a buffer for the path.
type NewView struct {
	FilePath string `json:"file_path,omitempty"`
}

func (*NewView) coreRequestMethod() string { return "new_view" }

// GetConfig returns the collated configuration for a view.
type GetConfig struct {
	ViewID editor.ViewID `json:"view_id"`
}

func (*GetConfig) coreRequestMethod() string { return "get_config" }

// pluginEnvelope is the wire shape of the "plugin" notification: a
// command discriminator with start/stop fields as siblings.
type pluginEnvelope struct {
	Command    string        `json:"command"`
	ViewID     editor.ViewID `json:"view_id"`
	PluginName string        `json:"plugin_name"`
}

// ParseCoreNotification decodes a client notification frame into its
// typed command. Edit frames have their inner method and params
// lifted here so callers only see the typed command plus its view.
func ParseCoreNotification(method string, params []byte) (CoreNotification, error) {
	switch method {
	case "edit":
		viewID, inner, innerParams, err := splitEditEnvelope(params)
		if err != nil {
			return nil, err
		}
		cmd, err := parseEditNotification(inner, innerParams)
		if err != nil {
			return nil, err
		}
		return &EditNotificationCommand{ViewID: viewID, Cmd: cmd}, nil
	case "plugin":
		var env pluginEnvelope
		if err := json.Unmarshal(params, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadParams, err)
		}
		if env.ViewID == "" {
			return nil, ErrMissingViewID
		}
		switch env.Command {
		case "start":
			return &PluginStart{ViewID: env.ViewID, PluginName: env.PluginName}, nil
		case "stop":
			return &PluginStop{ViewID: env.ViewID, PluginName: env.PluginName}, nil
		default:
			return nil, fmt.Errorf("%w: plugin command %q", ErrUnknownMethod, env.Command)
		}
	case "close_view":
		return decodeCore[CloseView](params, true)
	case "save":
		return decodeCore[Save](params, true)
	case "set_theme":
		return decodeCore[SetTheme](params, false)
	case "client_started":
		if len(params) == 0 {
			return &ClientStarted{}, nil
		}
		return decodeCore[ClientStarted](params, false)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
}

// ParseCoreRequest decodes a client request frame.
func ParseCoreRequest(method string, params []byte) (CoreRequest, error) {
	switch method {
	case "edit":
		viewID, inner, innerParams, err := splitEditEnvelope(params)
		if err != nil {
			return nil, err
		}
		cmd, err := parseEditRequest(inner, innerParams)
		if err != nil {
			return nil, err
		}
		return &EditRequestCommand{ViewID: viewID, Cmd: cmd}, nil
	case "new_view":
		if len(params) == 0 {
			return &NewView{}, nil
		}
		var nv NewView
		if err := json.Unmarshal(params, &nv); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadParams, err)
		}
		return &nv, nil
	case "get_config":
		var gc GetConfig
		if err := json.Unmarshal(params, &gc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadParams, err)
		}
		if gc.ViewID == "" {
			return nil, ErrMissingViewID
		}
		return &gc, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
}

// viewScoped is satisfied by params structs carrying a view_id.
type viewScoped interface {
	viewID() editor.ViewID
}

func (c CloseView) viewID() editor.ViewID { return c.ViewID }
func (s Save) viewID() editor.ViewID      { return s.ViewID }

func decodeCore[T any, PT interface {
	*T
	CoreNotification
}](params []byte, needView bool) (CoreNotification, error) {
	p := PT(new(T))
	if err := json.Unmarshal(params, p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadParams, err)
	}
	if needView {
		if vs, ok := any(*p).(viewScoped); !ok || vs.viewID() == "" {
			return nil, ErrMissingViewID
		}
	}
	return p, nil
}
