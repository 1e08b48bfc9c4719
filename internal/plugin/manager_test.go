package plugin_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/textcore/internal/config"
	"github.com/dshills/textcore/internal/delta"
	"github.com/dshills/textcore/internal/editor"
	"github.com/dshills/textcore/internal/plugin"
	"github.com/dshills/textcore/internal/rpc"
)

// fakePeer records everything the manager sends it.
type fakePeer struct {
	mu       sync.Mutex
	notifies []rpc.HostNotification
	updates  []rpc.PluginUpdate
	respond  func(u rpc.PluginUpdate) rpc.UpdateResponse
	closed   bool
}

func (f *fakePeer) Notify(n rpc.HostNotification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifies = append(f.notifies, n)
	return nil
}

func (f *fakePeer) Update(u rpc.PluginUpdate, reply func(rpc.UpdateResponse, error)) error {
	f.mu.Lock()
	f.updates = append(f.updates, u)
	respond := f.respond
	f.mu.Unlock()
	if respond != nil {
		reply(respond(u), nil)
	} else {
		reply(rpc.UpdateResponse{Ack: u.Rev}, nil)
	}
	return nil
}

func (f *fakePeer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakePeer) notified() []rpc.HostNotification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]rpc.HostNotification, len(f.notifies))
	copy(out, f.notifies)
	return out
}

func newManager(t *testing.T, peers map[string]*fakePeer) *plugin.Manager {
	t.Helper()
	m := plugin.NewManager(new(editor.Allocator), nil)
	for name, peer := range peers {
		p := peer
		m.Register(name, func(string) (plugin.Peer, error) { return p, nil })
	}
	return m
}

func testBuffer(t *testing.T, text string) *editor.Buffer {
	t.Helper()
	cfg := config.Defaults()
	b := editor.NewBuffer(1, text, "main.go", cfg)
	b.AddView("view-id-1")
	return b
}

func TestManagerStartInitializes(t *testing.T) {
	peer := &fakePeer{}
	m := newManager(t, map[string]*fakePeer{"syntect": peer})
	buf := testBuffer(t, "hello\nworld\n")

	p, err := m.Start("view-id-1", "syntect", plugin.BufferInfo(buf, buf.Config))
	require.NoError(t, err)
	assert.NotEmpty(t, p.Token)
	assert.True(t, p.Watches("view-id-1"))

	notifies := peer.notified()
	require.Len(t, notifies, 1)
	init, ok := notifies[0].(*rpc.Initialize)
	require.True(t, ok)
	assert.Equal(t, p.Pid, init.PluginID)
	require.Len(t, init.Buffers, 1)
	assert.Equal(t, editor.BufferID(1), init.Buffers[0].BufferID)
	assert.Equal(t, 12, init.Buffers[0].BufSize)
	assert.Equal(t, 3, init.Buffers[0].NbLines)
	require.NotNil(t, init.Buffers[0].Path)
	assert.Equal(t, "main.go", *init.Buffers[0].Path)
}

func TestManagerStartSecondViewAttaches(t *testing.T) {
	peer := &fakePeer{}
	m := newManager(t, map[string]*fakePeer{"syntect": peer})
	buf := testBuffer(t, "x")

	p1, err := m.Start("view-id-1", "syntect", plugin.BufferInfo(buf, buf.Config))
	require.NoError(t, err)
	p2, err := m.Start("view-id-2", "syntect", plugin.BufferInfo(buf, buf.Config))
	require.NoError(t, err)
	assert.Same(t, p1, p2)
	assert.True(t, p2.Watches("view-id-2"))

	notifies := peer.notified()
	require.Len(t, notifies, 2)
	assert.IsType(t, &rpc.NewBuffer{}, notifies[1])

	// Same view again is a no-op.
	_, err = m.Start("view-id-1", "syntect", plugin.BufferInfo(buf, buf.Config))
	require.NoError(t, err)
	assert.Len(t, peer.notified(), 2)
}

func TestManagerStopShutsDownOnLastView(t *testing.T) {
	peer := &fakePeer{}
	m := newManager(t, map[string]*fakePeer{"syntect": peer})
	buf := testBuffer(t, "x")

	p, err := m.Start("view-id-1", "syntect", plugin.BufferInfo(buf, buf.Config))
	require.NoError(t, err)
	_, err = m.Start("view-id-2", "syntect", plugin.BufferInfo(buf, buf.Config))
	require.NoError(t, err)

	require.NoError(t, m.Stop("view-id-1", "syntect"))
	assert.False(t, peer.closed)
	_, stillRunning := m.Find(p.Pid)
	assert.True(t, stillRunning)

	require.NoError(t, m.Stop("view-id-2", "syntect"))
	assert.True(t, peer.closed)
	_, stillRunning = m.Find(p.Pid)
	assert.False(t, stillRunning)

	// Already stopped.
	err = m.Stop("view-id-2", "syntect")
	assert.ErrorIs(t, err, plugin.ErrNotRunning)
}

func TestManagerStartUnknown(t *testing.T) {
	m := newManager(t, nil)
	buf := testBuffer(t, "x")
	_, err := m.Start("view-id-1", "nope", plugin.BufferInfo(buf, buf.Config))
	assert.ErrorIs(t, err, plugin.ErrUnknownPlugin)
}

func TestManagerDropView(t *testing.T) {
	peer := &fakePeer{}
	m := newManager(t, map[string]*fakePeer{"syntect": peer})
	buf := testBuffer(t, "x")

	_, err := m.Start("view-id-1", "syntect", plugin.BufferInfo(buf, buf.Config))
	require.NoError(t, err)

	m.DropView("view-id-1")
	assert.True(t, peer.closed)

	notifies := peer.notified()
	require.GreaterOrEqual(t, len(notifies), 2)
	assert.IsType(t, &rpc.DidClose{}, notifies[1])
}

func TestDispatchUpdateCarriesSmallDelta(t *testing.T) {
	peer := &fakePeer{}
	m := newManager(t, map[string]*fakePeer{"syntect": peer})
	buf := testBuffer(t, "hello")

	_, err := m.Start("view-id-1", "syntect", plugin.BufferInfo(buf, buf.Config))
	require.NoError(t, err)

	d := delta.MustNew(5, []delta.Element{delta.Copy(0, 5), delta.Insert("!")})
	var acks []uint64
	m.DispatchUpdate("view-id-1", rpc.PluginUpdate{
		Delta: &d, NewLen: 6, Rev: 1, EditType: "insert", Author: editor.AuthorCore,
	}, config.DefaultMaxDeltaBytes, func(_ editor.PluginPid, resp rpc.UpdateResponse, err error) {
		require.NoError(t, err)
		acks = append(acks, resp.Ack)
	})

	require.Len(t, peer.updates, 1)
	require.NotNil(t, peer.updates[0].Delta)
	assert.Equal(t, editor.ViewID("view-id-1"), peer.updates[0].ViewID)
	assert.Equal(t, []uint64{1}, acks)
}

func TestDispatchUpdateDropsOversizedDelta(t *testing.T) {
	peer := &fakePeer{}
	m := newManager(t, map[string]*fakePeer{"syntect": peer})
	buf := testBuffer(t, "hello")

	_, err := m.Start("view-id-1", "syntect", plugin.BufferInfo(buf, buf.Config))
	require.NoError(t, err)

	big := make([]byte, 256)
	for i := range big {
		big[i] = 'a'
	}
	d := delta.MustNew(5, []delta.Element{delta.Copy(0, 5), delta.Insert(string(big))})
	m.DispatchUpdate("view-id-1", rpc.PluginUpdate{
		Delta: &d, NewLen: 5 + len(big), Rev: 1, EditType: "insert", Author: editor.AuthorCore,
	}, 64, func(editor.PluginPid, rpc.UpdateResponse, error) {})

	require.Len(t, peer.updates, 1)
	assert.Nil(t, peer.updates[0].Delta)
	assert.Equal(t, 5+len(big), peer.updates[0].NewLen)
	assert.Equal(t, uint64(1), peer.updates[0].Rev)
}

func TestDispatchUpdateEditReply(t *testing.T) {
	d := delta.MustNew(5, []delta.Element{delta.Insert(">"), delta.Copy(0, 5)})
	peer := &fakePeer{
		respond: func(u rpc.PluginUpdate) rpc.UpdateResponse {
			return rpc.UpdateResponse{Edit: &rpc.PluginEdit{
				Rev: u.Rev, Delta: &d, Priority: 1, Author: "syntect",
			}}
		},
	}
	m := newManager(t, map[string]*fakePeer{"syntect": peer})
	buf := testBuffer(t, "hello")

	p, err := m.Start("view-id-1", "syntect", plugin.BufferInfo(buf, buf.Config))
	require.NoError(t, err)

	var got *rpc.PluginEdit
	base := delta.MustNew(5, []delta.Element{delta.Copy(0, 5)})
	m.DispatchUpdate("view-id-1", rpc.PluginUpdate{
		Delta: &base, NewLen: 5, Rev: 2, EditType: "other", Author: editor.AuthorCore,
	}, config.DefaultMaxDeltaBytes, func(pid editor.PluginPid, resp rpc.UpdateResponse, err error) {
		require.NoError(t, err)
		require.Equal(t, p.Pid, pid)
		got = resp.Edit
	})

	require.NotNil(t, got)
	assert.Equal(t, uint64(2), got.Rev)
	assert.Equal(t, "syntect", got.Author)
}
