package hub

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/sharetube/jamroom/internal/metrics"
	"github.com/sharetube/jamroom/internal/repository/connection"
	"github.com/sharetube/jamroom/pkg/ctxlogger"
)

type iConnRepo interface {
	Add(connection.Conn) error
	Remove(connId string) (connection.Conn, error)
	Get(connId string) (connection.Conn, error)
	Conns() []connection.Conn
	Join(connId, group string) error
	Leave(connId, group string) bool
	Members(group string) []string
	GroupsOf(connId string) []string
	HasGroup(group string) bool
	Size(group string) int
}

// Handler processes one inbound frame on the hub goroutine.
type Handler interface {
	ServeMessage(ctx context.Context, connId string, data []byte) error
}

// Hook runs on the hub goroutine when a connection goes away.
type Hook func(ctx context.Context, connId string)

type eventKind int

const (
	eventConnect eventKind = iota
	eventMessage
	eventClose
)

type event struct {
	kind   eventKind
	ctx    context.Context
	connId string
	conn   connection.Conn
	data   []byte
}

type outbound struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type Config struct {
	SendBuffer int
	ReadLimit  int64
}

// Hub owns every connection and group. All state changes happen on the goroutine running Run,
// so the transport methods below must only be called from a Handler or a Hook.
type Hub struct {
	connRepo        iConnRepo
	handler         Handler
	onDisconnecting Hook
	onDisconnect    Hook
	inbox           chan event
	done            chan struct{}
	sendBuffer      int
	readLimit       int64
	logger          *slog.Logger
}

func New(connRepo iConnRepo, cfg *Config, logger *slog.Logger) *Hub {
	return &Hub{
		connRepo:        connRepo,
		onDisconnecting: func(context.Context, string) {},
		onDisconnect:    func(context.Context, string) {},
		inbox:           make(chan event),
		done:            make(chan struct{}),
		sendBuffer:      cfg.SendBuffer,
		readLimit:       cfg.ReadLimit,
		logger:          logger,
	}
}

func (h *Hub) SetHandler(handler Handler) {
	h.handler = handler
}

// OnDisconnecting registers a hook that runs while the connection is still grouped.
func (h *Hub) OnDisconnecting(hook Hook) {
	h.onDisconnecting = hook
}

// OnDisconnect registers a hook that runs after the connection has been removed.
func (h *Hub) OnDisconnect(hook Hook) {
	h.onDisconnect = hook
}

// Run processes events until ctx is done, then closes every connection.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	for {
		select {
		case e := <-h.inbox:
			h.handle(e)
		case <-ctx.Done():
			for _, conn := range h.connRepo.Conns() {
				conn.Close()
			}

			h.logger.InfoContext(ctx, "hub stopped")
			return nil
		}
	}
}

// Serve registers ws as connId and reads from it until the socket closes.
func (h *Hub) Serve(ctx context.Context, ws *websocket.Conn, connId string) {
	ctx = ctxlogger.AppendCtx(context.WithoutCancel(ctx), slog.String("conn_id", connId))
	conn := newConn(connId, ws, h.sendBuffer, h.logger)
	defer conn.Close()

	if !h.submit(event{kind: eventConnect, ctx: ctx, connId: connId, conn: conn}) {
		ws.Close()
		return
	}

	go conn.writePump()
	conn.readPump(h.readLimit, func(data []byte) bool {
		return h.submit(event{kind: eventMessage, ctx: ctx, connId: connId, data: data})
	})

	h.submit(event{kind: eventClose, ctx: ctx, connId: connId})
}

func (h *Hub) submit(e event) bool {
	select {
	case h.inbox <- e:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) handle(e event) {
	switch e.kind {
	case eventConnect:
		h.connect(e.ctx, e.conn)
	case eventMessage:
		h.message(e.ctx, e.connId, e.data)
	case eventClose:
		h.disconnect(e.ctx, e.connId)
	}
}

func (h *Hub) connect(ctx context.Context, conn connection.Conn) {
	if err := h.connRepo.Add(conn); err != nil {
		h.logger.WarnContext(ctx, "failed to register connection", "error", err)
		conn.Close()
		return
	}

	metrics.Connections.Inc()
	h.logger.InfoContext(ctx, "connected")
}

func (h *Hub) message(ctx context.Context, connId string, data []byte) {
	if _, err := h.connRepo.Get(connId); err != nil {
		h.logger.DebugContext(ctx, "message from unregistered connection dropped")
		return
	}

	if h.handler == nil {
		return
	}

	if err := h.handler.ServeMessage(ctx, connId, data); err != nil {
		h.logger.DebugContext(ctx, "message not handled", "error", err)
	}
}

func (h *Hub) disconnect(ctx context.Context, connId string) {
	if _, err := h.connRepo.Get(connId); err != nil {
		return
	}

	h.onDisconnecting(ctx, connId)

	conn, err := h.connRepo.Remove(connId)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to remove connection", "error", err)
		return
	}
	conn.Close()
	metrics.Connections.Dec()

	h.onDisconnect(ctx, connId)
	h.logger.InfoContext(ctx, "disconnected")
}

func (h *Hub) encode(ctx context.Context, eventType string, payload any) ([]byte, bool) {
	data, err := json.Marshal(outbound{Type: eventType, Payload: payload})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to encode message", "type", eventType, "error", err)
		return nil, false
	}

	return data, true
}

func (h *Hub) send(ctx context.Context, connId string, data []byte) {
	conn, err := h.connRepo.Get(connId)
	if err != nil {
		h.logger.DebugContext(ctx, "frame for unknown connection dropped", "target_id", connId)
		return
	}

	if err := conn.Send(data); err != nil {
		if errors.Is(err, ErrSendBufferFull) {
			metrics.FramesDropped.Inc()
			h.logger.WarnContext(ctx, "send buffer full, closing connection", "target_id", connId)
			conn.Close()
		}
	}
}

func (h *Hub) Emit(ctx context.Context, connId, eventType string, payload any) {
	data, ok := h.encode(ctx, eventType, payload)
	if !ok {
		return
	}

	h.send(ctx, connId, data)
}

func (h *Hub) BroadcastRoom(ctx context.Context, roomId, eventType string, payload any) {
	h.BroadcastFrom(ctx, "", roomId, eventType, payload)
}

func (h *Hub) BroadcastFrom(ctx context.Context, senderId, roomId, eventType string, payload any) {
	data, ok := h.encode(ctx, eventType, payload)
	if !ok {
		return
	}

	for _, connId := range h.connRepo.Members(roomId) {
		if connId != senderId {
			h.send(ctx, connId, data)
		}
	}
}

func (h *Hub) Join(ctx context.Context, connId, roomId string) error {
	return h.connRepo.Join(connId, roomId)
}

func (h *Hub) Leave(ctx context.Context, connId, roomId string) bool {
	return h.connRepo.Leave(connId, roomId)
}

// Evict ungroups every member of roomId and returns their ids.
func (h *Hub) Evict(ctx context.Context, roomId string) []string {
	members := h.connRepo.Members(roomId)
	for _, connId := range members {
		h.connRepo.Leave(connId, roomId)
	}

	return members
}

func (h *Hub) HasRoom(roomId string) bool {
	return h.connRepo.HasGroup(roomId)
}

func (h *Hub) RoomSize(roomId string) int {
	return h.connRepo.Size(roomId)
}

func (h *Hub) RoomsOf(connId string) []string {
	return h.connRepo.GroupsOf(connId)
}
