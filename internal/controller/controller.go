package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/jamroom/internal/metrics"
	"github.com/sharetube/jamroom/internal/service/room"
	"github.com/sharetube/jamroom/pkg/wsrouter"
)

type iRoomService interface {
	CreateRoom(context.Context, *room.CreateRoomParams) (room.CreateRoomResponse, error)
	JoinRoom(context.Context, *room.JoinRoomParams) (room.JoinRoomResponse, error)
	LeaveRoom(context.Context, *room.LeaveRoomParams) error
	RequestSync(context.Context, *room.RequestSyncParams) error
	SendSyncData(context.Context, *room.SendSyncDataParams) error
	SyncData(context.Context, *room.SendSyncDataParams) error
	Relay(context.Context, *room.RelayParams) error
	Disconnecting(ctx context.Context, connId string)
	Disconnect(ctx context.Context, connId string) error
}

type iHub interface {
	Serve(ctx context.Context, ws *websocket.Conn, connId string)
}

type Config struct {
	AllowedOrigins []string
}

type controller struct {
	roomService    iRoomService
	hub            iHub
	upgrader       websocket.Upgrader
	wsRouter       *wsrouter.WSRouter
	allowedOrigins []string
	startedAt      time.Time
	logger         *slog.Logger
}

func NewController(roomService iRoomService, hub iHub, cfg *Config, logger *slog.Logger) *controller {
	c := controller{
		roomService:    roomService,
		hub:            hub,
		allowedOrigins: cfg.AllowedOrigins,
		startedAt:      time.Now(),
		logger:         logger,
	}

	c.upgrader = websocket.Upgrader{
		CheckOrigin: c.checkOrigin,
	}
	c.wsRouter = c.getWSRouter()

	return &c
}

func (c controller) allowAllOrigins() bool {
	return len(c.allowedOrigins) == 0 || slices.Contains(c.allowedOrigins, "*")
}

// checkOrigin accepts requests without an Origin header, which browsers always send.
func (c controller) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || c.allowAllOrigins() {
		return true
	}

	return slices.ContainsFunc(c.allowedOrigins, func(allowed string) bool {
		return strings.EqualFold(allowed, origin)
	})
}

// ServeMessage routes one inbound frame. It runs on the hub goroutine.
func (c controller) ServeMessage(ctx context.Context, connId string, data []byte) error {
	err := c.wsRouter.ServeMessage(ctx, connId, data)
	switch {
	case errors.Is(err, wsrouter.ErrUnknownMessageType):
		metrics.MessagesReceived.WithLabelValues("unknown", outcomeRejected).Inc()
		c.logger.InfoContext(ctx, "unknown message type", "error", err)
	case errors.Is(err, wsrouter.ErrInvalidMessage):
		metrics.MessagesReceived.WithLabelValues("invalid", outcomeRejected).Inc()
		c.logger.InfoContext(ctx, "invalid message", "error", err)
	}

	return err
}

func (c controller) Disconnecting(ctx context.Context, connId string) {
	c.roomService.Disconnecting(ctx, connId)
}

func (c controller) Disconnect(ctx context.Context, connId string) {
	if err := c.roomService.Disconnect(ctx, connId); err != nil {
		c.logger.WarnContext(ctx, "failed to close hosted room", "error", err)
	}
}
