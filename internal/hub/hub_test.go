package hub

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/jamroom/internal/repository/connection/inmemory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	id     string
	frames [][]byte
	limit  int
	closed bool
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(data []byte) error {
	if c.closed {
		return ErrConnClosed
	}

	if c.limit > 0 && len(c.frames) >= c.limit {
		return ErrSendBufferFull
	}

	c.frames = append(c.frames, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (c *fakeConn) types(t *testing.T) []string {
	t.Helper()
	var types []string
	for _, data := range c.frames {
		var f frame
		require.NoError(t, json.Unmarshal(data, &f))
		types = append(types, f.Type)
	}

	return types
}

type handlerFunc func(ctx context.Context, connId string, data []byte) error

func (f handlerFunc) ServeMessage(ctx context.Context, connId string, data []byte) error {
	return f(ctx, connId, data)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHub(t *testing.T, conns ...*fakeConn) *Hub {
	t.Helper()
	logger := discardLogger()
	h := New(inmemory.NewRepo(logger), &Config{SendBuffer: 8, ReadLimit: 1024}, logger)
	for _, conn := range conns {
		h.handle(event{kind: eventConnect, ctx: context.Background(), connId: conn.id, conn: conn})
	}

	return h
}

func TestHub_Broadcast(t *testing.T) {
	a, b, c := &fakeConn{id: "a"}, &fakeConn{id: "b"}, &fakeConn{id: "c"}
	h := newTestHub(t, a, b, c)
	ctx := context.Background()

	require.NoError(t, h.Join(ctx, "a", "AB12"))
	require.NoError(t, h.Join(ctx, "b", "AB12"))

	h.BroadcastFrom(ctx, "a", "AB12", "play", json.RawMessage(`"AB12"`))
	h.BroadcastRoom(ctx, "AB12", "updateUserCount", map[string]int{"count": 2})

	assert.Equal(t, []string{"updateUserCount"}, a.types(t))
	assert.Equal(t, []string{"play", "updateUserCount"}, b.types(t))
	assert.Empty(t, c.frames)
	assert.JSONEq(t, `{"type":"play","payload":"AB12"}`, string(b.frames[0]))

	h.Emit(ctx, "c", "roomClosed", nil)
	assert.JSONEq(t, `{"type":"roomClosed","payload":null}`, string(c.frames[0]))
}

func TestHub_Groups(t *testing.T) {
	a, b := &fakeConn{id: "a"}, &fakeConn{id: "b"}
	h := newTestHub(t, a, b)
	ctx := context.Background()

	assert.False(t, h.HasRoom("AB12"))
	require.NoError(t, h.Join(ctx, "a", "AB12"))
	require.NoError(t, h.Join(ctx, "b", "AB12"))
	assert.Error(t, h.Join(ctx, "ghost", "AB12"))

	assert.True(t, h.HasRoom("AB12"))
	assert.Equal(t, 2, h.RoomSize("AB12"))
	assert.Equal(t, []string{"AB12"}, h.RoomsOf("a"))

	assert.True(t, h.Leave(ctx, "a", "AB12"))
	assert.False(t, h.Leave(ctx, "a", "AB12"))
	assert.Equal(t, 1, h.RoomSize("AB12"))

	assert.Equal(t, []string{"b"}, h.Evict(ctx, "AB12"))
	assert.False(t, h.HasRoom("AB12"))
	assert.Empty(t, h.RoomsOf("b"))
}

func TestHub_SlowConsumerIsClosed(t *testing.T) {
	slow := &fakeConn{id: "slow", limit: 1}
	h := newTestHub(t, slow)
	ctx := context.Background()

	h.Emit(ctx, "slow", "play", "AB12")
	h.Emit(ctx, "slow", "pause", "AB12")

	assert.Len(t, slow.frames, 1)
	assert.True(t, slow.closed)
}

func TestHub_DisconnectHooks(t *testing.T) {
	a, b := &fakeConn{id: "a"}, &fakeConn{id: "b"}
	h := newTestHub(t, a, b)
	ctx := context.Background()
	require.NoError(t, h.Join(ctx, "a", "AB12"))
	require.NoError(t, h.Join(ctx, "b", "AB12"))

	var calls []string
	h.OnDisconnecting(func(ctx context.Context, connId string) {
		calls = append(calls, "disconnecting")
		assert.Equal(t, []string{"AB12"}, h.RoomsOf(connId))
		assert.Equal(t, 2, h.RoomSize("AB12"))
	})
	h.OnDisconnect(func(ctx context.Context, connId string) {
		calls = append(calls, "disconnect")
		assert.Empty(t, h.RoomsOf(connId))
		assert.Equal(t, 1, h.RoomSize("AB12"))
	})

	h.handle(event{kind: eventClose, ctx: ctx, connId: "a"})
	h.handle(event{kind: eventClose, ctx: ctx, connId: "a"})

	assert.Equal(t, []string{"disconnecting", "disconnect"}, calls)
	assert.True(t, a.closed)

	h.Emit(ctx, "a", "play", "AB12")
	assert.Empty(t, a.frames)
}

func TestHub_MessageRouting(t *testing.T) {
	a := &fakeConn{id: "a"}
	h := newTestHub(t, a)

	var got []string
	h.SetHandler(handlerFunc(func(ctx context.Context, connId string, data []byte) error {
		got = append(got, connId+":"+string(data))
		return nil
	}))

	h.handle(event{kind: eventMessage, ctx: context.Background(), connId: "a", data: []byte("x")})
	h.handle(event{kind: eventMessage, ctx: context.Background(), connId: "ghost", data: []byte("y")})

	assert.Equal(t, []string{"a:x"}, got)
}

func TestHub_DuplicateConnect(t *testing.T) {
	a := &fakeConn{id: "a"}
	h := newTestHub(t, a)

	dup := &fakeConn{id: "a"}
	h.handle(event{kind: eventConnect, ctx: context.Background(), connId: "a", conn: dup})

	assert.True(t, dup.closed)
	assert.False(t, a.closed)
}

func TestHub_Serve(t *testing.T) {
	logger := discardLogger()
	h := New(inmemory.NewRepo(logger), &Config{SendBuffer: 8, ReadLimit: 1024}, logger)
	h.SetHandler(handlerFunc(func(ctx context.Context, connId string, data []byte) error {
		h.Emit(ctx, connId, "echo", json.RawMessage(data))
		return nil
	}))

	disconnected := make(chan string, 1)
	h.OnDisconnect(func(ctx context.Context, connId string) {
		disconnected <- connId
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.Serve(r.Context(), ws, "client")
	}))
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"n":1}`)))
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"echo","payload":{"n":1}}`, string(data))

	require.NoError(t, ws.Close())

	select {
	case connId := <-disconnected:
		assert.Equal(t, "client", connId)
	case <-time.After(5 * time.Second):
		t.Fatal("disconnect hook did not run")
	}
}
