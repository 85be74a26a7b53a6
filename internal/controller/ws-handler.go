package controller

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sharetube/jamroom/internal/service/room"
	"github.com/sharetube/jamroom/pkg/wsrouter"
)

func (c controller) handleCreateRoom(ctx context.Context, connId string, _ json.RawMessage) error {
	if _, err := c.roomService.CreateRoom(ctx, &room.CreateRoomParams{
		ConnId: connId,
	}); err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}

	return nil
}

func (c controller) handleJoinRoom(ctx context.Context, connId string, roomId string) error {
	if _, err := c.roomService.JoinRoom(ctx, &room.JoinRoomParams{
		ConnId: connId,
		RoomId: roomId,
	}); err != nil {
		return fmt.Errorf("failed to join room: %w", err)
	}

	return nil
}

func (c controller) handleLeaveRoom(ctx context.Context, connId string, roomId string) error {
	if err := c.roomService.LeaveRoom(ctx, &room.LeaveRoomParams{
		ConnId: connId,
		RoomId: roomId,
	}); err != nil {
		return fmt.Errorf("failed to leave room: %w", err)
	}

	return nil
}

func (c controller) handleRequestSync(ctx context.Context, connId string, roomId string) error {
	if err := c.roomService.RequestSync(ctx, &room.RequestSyncParams{
		ConnId: connId,
		RoomId: roomId,
	}); err != nil {
		return fmt.Errorf("failed to request sync: %w", err)
	}

	return nil
}

func (c controller) handleSendSyncData(ctx context.Context, connId string, payload json.RawMessage) error {
	if err := c.roomService.SendSyncData(ctx, &room.SendSyncDataParams{
		SenderId: connId,
		Payload:  payload,
	}); err != nil {
		return fmt.Errorf("failed to send sync data: %w", err)
	}

	return nil
}

func (c controller) handleSyncData(ctx context.Context, connId string, payload json.RawMessage) error {
	if err := c.roomService.SyncData(ctx, &room.SendSyncDataParams{
		SenderId: connId,
		Payload:  payload,
	}); err != nil {
		return fmt.Errorf("failed to relay sync data: %w", err)
	}

	return nil
}

func (c controller) handleRelay(event string) wsrouter.HandlerFunc[json.RawMessage] {
	return func(ctx context.Context, connId string, payload json.RawMessage) error {
		if err := c.roomService.Relay(ctx, &room.RelayParams{
			SenderId: connId,
			Event:    event,
			Payload:  payload,
		}); err != nil {
			return fmt.Errorf("failed to relay %s: %w", event, err)
		}

		return nil
	}
}
