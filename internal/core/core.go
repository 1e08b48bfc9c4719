// Package core wires the pieces together: it owns the view and
// buffer registries, runs one serializer per buffer, and turns
// decoded RPC commands into buffer mutations and plugin traffic.
package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/dshills/textcore/internal/config"
	"github.com/dshills/textcore/internal/editor"
	"github.com/dshills/textcore/internal/log"
	"github.com/dshills/textcore/internal/plugin"
	"github.com/dshills/textcore/internal/rpc"
)

// Frontend receives client-bound notifications. Implementations must
// not call back into the Core.
type Frontend interface {
	Notify(method string, params any)
}

// FileStore abstracts file I/O, which stays outside the core.
type FileStore interface {
	Load(path string) (string, error)
	Save(path, text string) error
}

// taskQueueDepth bounds how far a buffer's serializer can fall
// behind before posters block.
const taskQueueDepth = 128

// bufferHost is the per-buffer serializer. Every mutation of the
// buffer's text, revision log, views and spans runs on its goroutine,
// which is the single-writer guarantee the merge engine needs.
type bufferHost struct {
	buf   *editor.Buffer
	views map[editor.ViewID]*editor.View

	tasks    chan func()
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	pending  map[editor.ViewID]context.CancelFunc
}

func newBufferHost(buf *editor.Buffer) *bufferHost {
	h := &bufferHost{
		buf:     buf,
		views:   make(map[editor.ViewID]*editor.View),
		tasks:   make(chan func(), taskQueueDepth),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		pending: make(map[editor.ViewID]context.CancelFunc),
	}
	go h.run()
	return h
}

func (h *bufferHost) run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			for _, cancel := range h.pending {
				cancel()
			}
			return
		case task := <-h.tasks:
			task()
		}
	}
}

// post queues work onto the serializer. It reports false once the
// host has stopped; a task posted after stop is dropped, never run
// half-way.
func (h *bufferHost) post(task func()) bool {
	select {
	case h.tasks <- task:
		return true
	case <-h.quit:
		return false
	}
}

// call posts work and waits for it to finish. Used by request
// handlers, which run on transport goroutines.
func (h *bufferHost) call(task func()) error {
	ran := make(chan struct{})
	if !h.post(func() {
		defer close(ran)
		task()
	}) {
		return ErrShuttingDown
	}
	select {
	case <-ran:
		return nil
	case <-h.done:
		// The serializer may have run the task right before exiting.
		select {
		case <-ran:
			return nil
		default:
			return ErrShuttingDown
		}
	}
}

func (h *bufferHost) stop() {
	h.stopOnce.Do(func() { close(h.quit) })
	<-h.done
}

// Core is the single authority over documents. All exported methods
// are safe for concurrent use; per-buffer work is serialized
// internally.
type Core struct {
	logger   *log.Logger
	frontend Frontend
	files    FileStore
	plugins  *plugin.Manager
	cfg      *config.Manager

	alloc editor.Allocator

	mu        sync.Mutex
	buffers   map[editor.BufferID]*bufferHost
	views     map[editor.ViewID]*bufferHost
	watcher   *config.Watcher
	clipboard string
	theme     string
	down      bool
}

// New creates a core. frontend and files must be non-nil; logger may
// be nil for a silent core.
func New(frontend Frontend, files FileStore, logger *log.Logger) *Core {
	if logger == nil {
		logger = log.Null
	}
	c := &Core{
		logger:   logger.WithComponent("core"),
		frontend: frontend,
		files:    files,
		cfg:      config.NewManager(),
		buffers:  make(map[editor.BufferID]*bufferHost),
		views:    make(map[editor.ViewID]*bufferHost),
	}
	c.plugins = plugin.NewManager(&c.alloc, logger)
	return c
}

// Plugins exposes the plugin manager for launcher registration.
func (c *Core) Plugins() *plugin.Manager { return c.plugins }

// Config exposes the config manager, mainly to tests and the binary.
func (c *Core) Config() *config.Manager { return c.cfg }

// hostFor resolves a view to its buffer's serializer.
func (c *Core) hostFor(viewID editor.ViewID) (*bufferHost, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return nil, ErrShuttingDown
	}
	h, ok := c.views[viewID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownView, viewID)
	}
	return h, nil
}

// newView opens a view, creating or reusing the buffer behind path.
// An empty path always creates a fresh unbacked buffer.
func (c *Core) newView(path string) (editor.ViewID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return "", ErrShuttingDown
	}

	var host *bufferHost
	if path != "" {
		for _, h := range c.buffers {
			if h.buf.Path == path {
				host = h
				break
			}
		}
	}

	viewID := c.alloc.NextViewID()
	if host == nil {
		text := ""
		if path != "" {
			loaded, err := c.files.Load(path)
			if err == nil {
				text = loaded
			} else {
				// A missing file is a new document; the path sticks
				// for the eventual save.
				c.logger.Debug("open %s: %v, starting empty", path, err)
			}
		}
		bufID := c.alloc.NextBufferID()
		cfg := c.cfg.Collate(string(viewID))
		buf := editor.NewBuffer(bufID, text, path, cfg)
		host = newBufferHost(buf)
		c.buffers[bufID] = host
	}

	c.views[viewID] = host
	bound := host
	_ = bound.post(func() {
		bound.buf.AddView(viewID)
		bound.views[viewID] = editor.NewView(viewID, bound.buf.ID)
	})
	c.logger.Info("new view %s buffer=%d path=%q", viewID, host.buf.ID, path)
	return viewID, nil
}

// closeView tears a view down, destroying the buffer when its last
// view closes. Closing an unknown view is an error reply, not a
// crash.
func (c *Core) closeView(viewID editor.ViewID) error {
	c.mu.Lock()
	h, ok := c.views[viewID]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownView, viewID)
	}
	delete(c.views, viewID)
	c.mu.Unlock()

	c.plugins.DropView(viewID)
	c.cfg.DropView(string(viewID))

	var empty bool
	err := h.call(func() {
		if cancel, ok := h.pending[viewID]; ok {
			cancel()
			delete(h.pending, viewID)
		}
		delete(h.views, viewID)
		empty = h.buf.RemoveView(viewID)
	})
	if err != nil {
		return err
	}
	if empty {
		c.mu.Lock()
		delete(c.buffers, h.buf.ID)
		c.mu.Unlock()
		h.stop()
		c.logger.Info("closed last view of buffer %d", h.buf.ID)
	}
	return nil
}

// clientStarted loads the user config layer and begins watching it.
func (c *Core) clientStarted(configDir string) {
	if configDir == "" {
		return
	}
	path, err := c.cfg.LoadUser(configDir)
	if err != nil {
		c.logger.Warn("load config from %s: %v", configDir, err)
		return
	}
	w, err := config.NewWatcher(path, c.cfg, c.pushConfigChanges, func(err error) {
		c.logger.Warn("config watch: %v", err)
	})
	if err != nil {
		c.logger.Warn("watch %s: %v", path, err)
		return
	}
	c.mu.Lock()
	if c.watcher != nil {
		c.watcher.Close()
	}
	c.watcher = w
	c.mu.Unlock()
	c.logger.Info("config loaded from %s", path)
}

// pushConfigChanges fans a user-config diff out to the client and to
// plugins on every open view. Removed keys ride along as nulls.
func (c *Core) pushConfigChanges(changes *config.Table) {
	c.mu.Lock()
	viewIDs := make([]editor.ViewID, 0, len(c.views))
	for id := range c.views {
		viewIDs = append(viewIDs, id)
	}
	c.mu.Unlock()

	for _, id := range viewIDs {
		n := &rpc.ConfigChanged{ViewID: id, Changes: changes}
		c.frontend.Notify("config_changed", n)
		c.plugins.Broadcast(id, n)
	}
}

// Shutdown stops all plugins and serializers. Safe to call more than
// once.
func (c *Core) Shutdown() {
	c.mu.Lock()
	if c.down {
		c.mu.Unlock()
		return
	}
	c.down = true
	hosts := make([]*bufferHost, 0, len(c.buffers))
	for _, h := range c.buffers {
		hosts = append(hosts, h)
	}
	c.buffers = make(map[editor.BufferID]*bufferHost)
	c.views = make(map[editor.ViewID]*bufferHost)
	watcher := c.watcher
	c.watcher = nil
	c.mu.Unlock()

	if watcher != nil {
		watcher.Close()
	}
	c.plugins.StopAll()
	for _, h := range hosts {
		h.stop()
	}
	c.logger.Info("core shut down")
}
