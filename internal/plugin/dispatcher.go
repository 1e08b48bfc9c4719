package plugin

import (
	"fmt"

	"github.com/dshills/textcore/internal/config"
	"github.com/dshills/textcore/internal/editor"
	"github.com/dshills/textcore/internal/rpc"
)

// BufferInfo snapshots a buffer into the shape plugins attach to.
// cfg is the collated config for the view the plugin starts on.
func BufferInfo(b *editor.Buffer, cfg *config.Table) rpc.PluginBufferInfo {
	info := rpc.PluginBufferInfo{
		BufferID: b.ID,
		Views:    b.Views(),
		Rev:      b.State.Rev(),
		BufSize:  b.State.Len(),
		NbLines:  b.State.LineCount(),
		Syntax:   b.Syntax,
		Config:   cfg,
	}
	if b.Path != "" {
		p := b.Path
		info.Path = &p
	}
	return info
}

// UpdateReply delivers one plugin's response to an update.
type UpdateReply func(pid editor.PluginPid, resp rpc.UpdateResponse, err error)

// DispatchUpdate fans a buffer change out to every plugin watching
// the view. When the delta's inserted text exceeds maxDeltaBytes the
// update goes out without it and plugins refetch through get_data;
// the length and revision still let them invalidate their state.
func (m *Manager) DispatchUpdate(viewID editor.ViewID, u rpc.PluginUpdate, maxDeltaBytes int, reply UpdateReply) {
	u.ViewID = viewID
	if u.Delta != nil && maxDeltaBytes > 0 && u.Delta.InsertedBytes() > maxDeltaBytes {
		m.logger.Debug("delta for %s exceeds %d inserted bytes, sending without", viewID, maxDeltaBytes)
		u.Delta = nil
	}
	for _, p := range m.Watchers(viewID) {
		pid := p.Pid
		err := p.peer.Update(u, func(resp rpc.UpdateResponse, err error) {
			reply(pid, resp, err)
		})
		if err != nil {
			m.logger.Warn("update %s pid=%d: %v", p.Name, pid, err)
			reply(pid, rpc.UpdateResponse{}, err)
		}
	}
}

// UpdateOne sends an update to a single plugin. Used to service a
// plugin that fell outside the retention window with the no-delta
// signal.
func (m *Manager) UpdateOne(pid editor.PluginPid, u rpc.PluginUpdate, reply UpdateReply) error {
	p, ok := m.Find(pid)
	if !ok {
		return fmt.Errorf("%w: pid %d", ErrNotRunning, pid)
	}
	return p.peer.Update(u, func(resp rpc.UpdateResponse, err error) {
		reply(pid, resp, err)
	})
}
