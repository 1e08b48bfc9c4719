// Package plugin manages out-of-process plugin peers: launching,
// view subscriptions, and the buffer-update fan-out.
package plugin

import (
	"errors"
	"fmt"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"

	"github.com/dshills/textcore/internal/editor"
	"github.com/dshills/textcore/internal/log"
	"github.com/dshills/textcore/internal/rpc"
)

var (
	// ErrUnknownPlugin means no launcher is registered under the name.
	ErrUnknownPlugin = errors.New("unknown plugin")
	// ErrNotRunning means the named plugin is not attached to the view.
	ErrNotRunning = errors.New("plugin not running")
)

// Peer is the transport side of a running plugin. Update replies
// arrive through the callback so callers never block on a plugin.
type Peer interface {
	Notify(n rpc.HostNotification) error
	Update(u rpc.PluginUpdate, reply func(rpc.UpdateResponse, error)) error
	Close() error
}

// Launcher starts the named plugin and returns its peer.
type Launcher func(name string) (Peer, error)

// Plugin is one running plugin instance.
type Plugin struct {
	Name  string
	Pid   editor.PluginPid
	Token string

	peer  Peer
	views mapset.Set[editor.ViewID]
}

// Watches reports whether the plugin is subscribed to the view.
func (p *Plugin) Watches(id editor.ViewID) bool {
	return p.views.Contains(id)
}

// Views returns the subscribed views.
func (p *Plugin) Views() []editor.ViewID {
	return p.views.ToSlice()
}

// Notify forwards a host notification to the peer.
func (p *Plugin) Notify(n rpc.HostNotification) error {
	return p.peer.Notify(n)
}

// Manager owns the set of running plugins. All methods are safe for
// concurrent use.
type Manager struct {
	mu        sync.Mutex
	launchers map[string]Launcher
	running   map[editor.PluginPid]*Plugin
	nextPid   func() editor.PluginPid
	logger    *log.Logger
}

// NewManager creates a manager drawing pids from alloc.
func NewManager(alloc *editor.Allocator, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Null
	}
	return &Manager{
		launchers: make(map[string]Launcher),
		running:   make(map[editor.PluginPid]*Plugin),
		nextPid:   alloc.NextPluginPid,
		logger:    logger.WithComponent("plugin"),
	}
}

// Register makes a plugin available under name. Registering the same
// name again replaces the launcher for future starts only.
func (m *Manager) Register(name string, l Launcher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.launchers[name] = l
}

// Start attaches the named plugin to a view, launching it if it is
// not already running. A started plugin gets an Initialize carrying
// the view's buffer; an already-running one gets a NewBuffer instead.
// Starting a plugin twice on the same view is a no-op.
func (m *Manager) Start(viewID editor.ViewID, name string, info rpc.PluginBufferInfo) (*Plugin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p := m.findLocked(name); p != nil {
		if p.views.Contains(viewID) {
			return p, nil
		}
		p.views.Add(viewID)
		if err := p.peer.Notify(&rpc.NewBuffer{Buffer: info}); err != nil {
			return nil, fmt.Errorf("attach %s to %s: %w", name, viewID, err)
		}
		return p, nil
	}

	launch, ok := m.launchers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlugin, name)
	}
	peer, err := launch(name)
	if err != nil {
		return nil, fmt.Errorf("launch %s: %w", name, err)
	}

	p := &Plugin{
		Name:  name,
		Pid:   m.nextPid(),
		Token: uuid.NewString(),
		peer:  peer,
		views: mapset.NewSet(viewID),
	}
	if err := peer.Notify(&rpc.Initialize{
		PluginID: p.Pid,
		Buffers:  []rpc.PluginBufferInfo{info},
	}); err != nil {
		_ = peer.Close()
		return nil, fmt.Errorf("initialize %s: %w", name, err)
	}
	m.running[p.Pid] = p
	m.logger.Info("started %s pid=%d token=%s", name, p.Pid, p.Token)
	return p, nil
}

// Stop detaches the named plugin from a view. The plugin shuts down
// once its last view detaches. Stopping a plugin that is not attached
// is an error; stopping it twice is therefore not.
func (m *Manager) Stop(viewID editor.ViewID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.findLocked(name)
	if p == nil || !p.views.Contains(viewID) {
		return fmt.Errorf("%w: %q on %s", ErrNotRunning, name, viewID)
	}
	p.views.Remove(viewID)
	_ = p.peer.Notify(&rpc.DidClose{ViewID: viewID})
	if p.views.IsEmpty() {
		m.shutdownLocked(p)
	}
	return nil
}

// Find returns the running plugin with the given pid.
func (m *Manager) Find(pid editor.PluginPid) (*Plugin, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.running[pid]
	return p, ok
}

// Watchers returns the plugins subscribed to a view.
func (m *Manager) Watchers(viewID editor.ViewID) []*Plugin {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Plugin
	for _, p := range m.running {
		if p.views.Contains(viewID) {
			out = append(out, p)
		}
	}
	return out
}

// DropView detaches every plugin from a closing view, shutting down
// plugins whose last view it was.
func (m *Manager) DropView(viewID editor.ViewID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.running {
		if !p.views.Contains(viewID) {
			continue
		}
		p.views.Remove(viewID)
		_ = p.peer.Notify(&rpc.DidClose{ViewID: viewID})
		if p.views.IsEmpty() {
			m.shutdownLocked(p)
		}
	}
}

// Broadcast sends a host notification to every plugin watching the
// view.
func (m *Manager) Broadcast(viewID editor.ViewID, n rpc.HostNotification) {
	for _, p := range m.Watchers(viewID) {
		if err := p.peer.Notify(n); err != nil {
			m.logger.Warn("notify %s pid=%d: %v", p.Name, p.Pid, err)
		}
	}
}

// StopAll shuts every plugin down. Used on core shutdown; idempotent.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.running {
		m.shutdownLocked(p)
	}
}

func (m *Manager) findLocked(name string) *Plugin {
	for _, p := range m.running {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func (m *Manager) shutdownLocked(p *Plugin) {
	_ = p.peer.Notify(rpc.Shutdown{})
	if err := p.peer.Close(); err != nil {
		m.logger.Warn("close %s pid=%d: %v", p.Name, p.Pid, err)
	}
	delete(m.running, p.Pid)
	m.logger.Info("stopped %s pid=%d", p.Name, p.Pid)
}
