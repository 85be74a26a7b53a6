package controller

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
	"github.com/sharetube/jamroom/internal/hub"
	connInmemory "github.com/sharetube/jamroom/internal/repository/connection/inmemory"
	roomInmemory "github.com/sharetube/jamroom/internal/repository/room/inmemory"
	"github.com/sharetube/jamroom/internal/service/room"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, allowedOrigins ...string) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := hub.New(connInmemory.NewRepo(logger), &hub.Config{SendBuffer: 64, ReadLimit: 4096}, logger)
	roomService := room.NewService(roomInmemory.NewRepo(logger), h, &room.Config{SyncStrategy: room.TargetedSync{}}, logger)
	c := NewController(roomService, h, &Config{AllowedOrigins: allowedOrigins}, logger)
	h.SetHandler(c)
	h.OnDisconnecting(c.Disconnecting)
	h.OnDisconnect(c.Disconnect)

	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	srv := httptest.NewServer(c.GetMux())
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})

	return srv
}

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type client struct {
	t  *testing.T
	ws *websocket.Conn
}

func dial(t *testing.T, srv *httptest.Server) *client {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })

	return &client{t: t, ws: ws}
}

func (c *client) send(messageType string, payload any) {
	c.t.Helper()
	require.NoError(c.t, c.ws.WriteJSON(map[string]any{"type": messageType, "payload": payload}))
}

func (c *client) sendRaw(data string) {
	c.t.Helper()
	require.NoError(c.t, c.ws.WriteMessage(websocket.TextMessage, []byte(data)))
}

func (c *client) expect(messageType string) json.RawMessage {
	c.t.Helper()
	require.NoError(c.t, c.ws.SetReadDeadline(time.Now().Add(5*time.Second)))

	var f frame
	require.NoError(c.t, c.ws.ReadJSON(&f))
	require.Equal(c.t, messageType, f.Type, "payload: %s", f.Payload)

	return f.Payload
}

// expectNothing leaves the connection unreadable afterwards, so call it last.
func (c *client) expectNothing() {
	c.t.Helper()
	require.NoError(c.t, c.ws.SetReadDeadline(time.Now().Add(200*time.Millisecond)))

	var f frame
	err := c.ws.ReadJSON(&f)
	require.Error(c.t, err, "unexpected frame %s", f.Type)
}

func decodeString(t *testing.T, payload json.RawMessage) string {
	t.Helper()
	var s string
	require.NoError(t, json.Unmarshal(payload, &s))
	return s
}

func TestListenTogether(t *testing.T) {
	srv := newTestServer(t)
	a, b, c := dial(t, srv), dial(t, srv), dial(t, srv)

	a.send("createRoom", nil)
	code := decodeString(t, a.expect("roomCreated"))
	assert.Regexp(t, "^[0-9A-Z]{4}$", code)
	assert.JSONEq(t, `{"count":1}`, string(a.expect("updateUserCount")))

	b.send("joinRoom", strings.ToLower(code))
	assert.Equal(t, code, decodeString(t, b.expect("roomJoined")))
	assert.JSONEq(t, `{"count":2}`, string(b.expect("updateUserCount")))
	a.expect("userJoined")
	guestId := decodeString(t, a.expect("requestSync"))
	assert.NotEmpty(t, guestId)
	assert.JSONEq(t, `{"count":2}`, string(a.expect("updateUserCount")))

	a.send("sendSyncData", map[string]any{"targetGuestId": guestId, "currentTime": 30, "songIndex": 2, "isPlaying": true})
	assert.JSONEq(t, `{"targetGuestId":"`+guestId+`","currentTime":30,"songIndex":2,"isPlaying":true}`, string(b.expect("syncGuest")))

	c.send("joinRoom", code)
	c.expect("roomJoined")
	assert.JSONEq(t, `{"count":3}`, string(c.expect("updateUserCount")))
	a.expect("userJoined")
	a.expect("requestSync")
	a.expect("updateUserCount")
	b.expect("userJoined")
	assert.JSONEq(t, `{"count":3}`, string(b.expect("updateUserCount")))

	c.send("seek", map[string]any{"roomCode": code, "time": 90})
	assert.JSONEq(t, `{"roomCode":"`+code+`","time":90}`, string(a.expect("seek")))
	assert.JSONEq(t, `{"roomCode":"`+code+`","time":90}`, string(b.expect("seek")))

	b.send("chatMessage", map[string]any{"room": code, "message": "hi", "senderName": "bee"})
	a.expect("chatMessage")
	c.expect("chatMessage")

	require.NoError(t, a.ws.Close())
	for _, guest := range []*client{b, c} {
		guest.expect("userLeft")
		assert.JSONEq(t, `{"count":2}`, string(guest.expect("updateUserCount")))
		guest.expect("roomClosed")
	}

	d := dial(t, srv)
	d.send("joinRoom", code)
	assert.Equal(t, "Room not found! Check the code.", decodeString(t, d.expect("error")))
}

func TestGuestLeave(t *testing.T) {
	srv := newTestServer(t)
	a, b := dial(t, srv), dial(t, srv)

	a.send("createRoom", nil)
	code := decodeString(t, a.expect("roomCreated"))
	a.expect("updateUserCount")

	b.send("joinRoom", code)
	b.expect("roomJoined")
	b.expect("updateUserCount")
	a.expect("userJoined")
	a.expect("requestSync")
	a.expect("updateUserCount")

	b.send("leaveRoom", code)
	a.expect("userLeft")
	assert.JSONEq(t, `{"count":1}`, string(a.expect("updateUserCount")))

	b.send("play", code)
	a.send("pause", code)
	b.expectNothing()
}

func TestBadMessagesKeepConnectionOpen(t *testing.T) {
	srv := newTestServer(t)
	a := dial(t, srv)

	a.sendRaw(`not json`)
	a.send("bogus", nil)
	a.send("joinRoom", map[string]any{"code": 1})
	a.send("joinRoom", "")
	a.send("play", map[string]any{"time": 3})

	a.send("createRoom", nil)
	a.expect("roomCreated")
}

func TestHTTPRoutes(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	resp, err = http.Get(srv.URL + "/")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "ONLINE")

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "jamroom_connections")
}

func TestOriginCheck(t *testing.T) {
	srv := newTestServer(t, "https://jam.example")
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	ws, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"https://JAM.example"}})
	require.NoError(t, err)
	ws.Close()
}
