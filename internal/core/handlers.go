package core

import (
	"fmt"

	"github.com/dshills/textcore/internal/editor"
	"github.com/dshills/textcore/internal/plugin"
	"github.com/dshills/textcore/internal/rpc"
	"github.com/dshills/textcore/internal/syntax"
)

// HandleNotification processes a decoded client notification. Errors
// are local to the one message; the serializer is never poisoned.
func (c *Core) HandleNotification(n rpc.CoreNotification) error {
	switch cmd := n.(type) {
	case *rpc.EditNotificationCommand:
		h, err := c.hostFor(cmd.ViewID)
		if err != nil {
			return err
		}
		if !h.post(func() { c.applyEditNotification(h, cmd.ViewID, cmd.Cmd) }) {
			return ErrShuttingDown
		}
		return nil

	case *rpc.PluginStart:
		return c.startPlugin(cmd.ViewID, cmd.PluginName)

	case *rpc.PluginStop:
		return c.plugins.Stop(cmd.ViewID, cmd.PluginName)

	case *rpc.CloseView:
		return c.closeView(cmd.ViewID)

	case *rpc.Save:
		return c.save(cmd.ViewID, cmd.FilePath)

	case *rpc.SetTheme:
		c.mu.Lock()
		c.theme = cmd.ThemeName
		c.mu.Unlock()
		c.frontend.Notify("theme_changed", map[string]any{"name": cmd.ThemeName})
		return nil

	case *rpc.ClientStarted:
		c.clientStarted(cmd.ConfigDir)
		return nil

	default:
		return fmt.Errorf("%w: %T", rpc.ErrUnknownMethod, n)
	}
}

// HandleRequest processes a decoded client request and produces the
// reply. Replies are never null; an empty result is the ack
// sentinel.
func (c *Core) HandleRequest(req rpc.CoreRequest) (any, *rpc.ResponseError) {
	switch cmd := req.(type) {
	case *rpc.NewView:
		viewID, err := c.newView(cmd.FilePath)
		if err != nil {
			return nil, toResponseError(err)
		}
		return string(viewID), nil

	case *rpc.GetConfig:
		if _, err := c.hostFor(cmd.ViewID); err != nil {
			return nil, toResponseError(err)
		}
		return c.cfg.Collate(string(cmd.ViewID)), nil

	case *rpc.EditRequestCommand:
		h, err := c.hostFor(cmd.ViewID)
		if err != nil {
			return nil, toResponseError(err)
		}
		var result any
		var opErr error
		err = h.call(func() { result, opErr = c.applyEditRequest(h, cmd.ViewID, cmd.Cmd) })
		if err != nil {
			return nil, toResponseError(err)
		}
		if opErr != nil {
			return nil, toResponseError(opErr)
		}
		return result, nil

	default:
		return nil, toResponseError(fmt.Errorf("%w: %T", rpc.ErrUnknownMethod, req))
	}
}

// startPlugin launches or attaches the named plugin and hands it the
// view's buffer snapshot.
func (c *Core) startPlugin(viewID editor.ViewID, name string) error {
	h, err := c.hostFor(viewID)
	if err != nil {
		return err
	}
	var info rpc.PluginBufferInfo
	if err := h.call(func() {
		info = plugin.BufferInfo(h.buf, c.cfg.Collate(string(viewID)))
	}); err != nil {
		return err
	}
	_, err = c.plugins.Start(viewID, name, info)
	return err
}

// save writes the buffer behind a view through the FileStore and
// tells attached plugins. The path sticks to the buffer, and syntax
// is re-detected in case the name changed language.
func (c *Core) save(viewID editor.ViewID, path string) error {
	h, err := c.hostFor(viewID)
	if err != nil {
		return err
	}
	var saveErr error
	err = h.call(func() {
		if saveErr = c.files.Save(path, h.buf.State.Text()); saveErr != nil {
			return
		}
		h.buf.Path = path
		h.buf.Syntax = syntax.Detect(path)
	})
	if err != nil {
		return err
	}
	if saveErr != nil {
		c.logger.Error("save %s to %s: %v", viewID, path, saveErr)
		c.frontend.Notify("alert", map[string]any{
			"msg": fmt.Sprintf("could not save %s: %v", path, saveErr),
		})
		return saveErr
	}
	c.plugins.Broadcast(viewID, &rpc.DidSave{ViewID: viewID, Path: path})
	c.logger.Info("saved %s to %s", viewID, path)
	return nil
}
