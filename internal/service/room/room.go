package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/sharetube/jamroom/internal/metrics"
	repository "github.com/sharetube/jamroom/internal/repository/room"
)

const (
	CauseHostLeft         = "host_left"
	CauseHostDisconnected = "host_disconnected"
)

type CreateRoomParams struct {
	ConnId string
}

type CreateRoomResponse struct {
	RoomId string
}

func (s service) CreateRoom(ctx context.Context, params *CreateRoomParams) (CreateRoomResponse, error) {
	roomId, err := s.generateRoomId(ctx, params.ConnId)
	if err != nil {
		s.transport.Emit(ctx, params.ConnId, EventError, createFailedMessage)
		return CreateRoomResponse{}, fmt.Errorf("failed to generate room id: %w", err)
	}

	state, err := s.getState(ctx, roomId)
	if err != nil {
		return CreateRoomResponse{}, err
	}

	state, err = state.Open(params.ConnId)
	if err != nil {
		return CreateRoomResponse{}, err
	}

	if err := s.transport.Join(ctx, params.ConnId, roomId); err != nil {
		return CreateRoomResponse{}, fmt.Errorf("failed to join room: %w", err)
	}

	if err := s.roomRepo.SetHost(ctx, &repository.SetHostParams{
		RoomId: roomId,
		HostId: state.HostId,
	}); err != nil {
		s.transport.Leave(ctx, params.ConnId, roomId)
		s.transport.Emit(ctx, params.ConnId, EventError, createFailedMessage)
		return CreateRoomResponse{}, fmt.Errorf("failed to set room host: %w", err)
	}

	metrics.RoomsCreated.Inc()
	metrics.Rooms.Inc()
	s.logger.InfoContext(ctx, "room created", "room_id", roomId, "host_id", params.ConnId)

	s.transport.Emit(ctx, params.ConnId, EventRoomCreated, roomId)
	s.transport.Emit(ctx, params.ConnId, EventUpdateUserCount, UserCount{Count: s.transport.RoomSize(roomId)})

	return CreateRoomResponse{
		RoomId: roomId,
	}, nil
}

type JoinRoomParams struct {
	ConnId string
	RoomId string
}

type JoinRoomResponse struct {
	RoomId string
	Count  int
}

func (s service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	roomId := normalizeRoomId(params.RoomId)
	if roomId == "" {
		return JoinRoomResponse{}, ErrInvalidRoomId
	}

	if !s.transport.HasRoom(roomId) {
		s.transport.Emit(ctx, params.ConnId, EventError, roomNotFoundMessage)
		return JoinRoomResponse{}, ErrRoomNotFound
	}

	if err := s.transport.Join(ctx, params.ConnId, roomId); err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to join room: %w", err)
	}

	s.transport.Emit(ctx, params.ConnId, EventRoomJoined, roomId)
	s.transport.BroadcastFrom(ctx, params.ConnId, roomId, EventUserJoined, nil)

	state, err := s.getState(ctx, roomId)
	if err != nil {
		s.logger.InfoContext(ctx, "failed to get room state", "room_id", roomId, "error", err)
	} else if state.Kind == StateOpen && !state.IsHostedBy(params.ConnId) {
		s.sync.RequestSync(ctx, s.transport, state.HostId, params.ConnId)
	}

	s.broadcastUserCount(ctx, roomId)
	count := s.transport.RoomSize(roomId)
	s.logger.InfoContext(ctx, "room joined", "room_id", roomId, "count", count)

	return JoinRoomResponse{
		RoomId: roomId,
		Count:  count,
	}, nil
}

type LeaveRoomParams struct {
	ConnId string
	RoomId string
}

func (s service) LeaveRoom(ctx context.Context, params *LeaveRoomParams) error {
	roomId := normalizeRoomId(params.RoomId)
	if roomId == "" {
		return ErrInvalidRoomId
	}

	state, err := s.getState(ctx, roomId)
	if err != nil {
		return err
	}

	if state.IsHostedBy(params.ConnId) {
		return s.closeRoom(ctx, roomId, state, CauseHostLeft)
	}

	if !s.transport.Leave(ctx, params.ConnId, roomId) {
		return ErrNotMember
	}

	s.transport.BroadcastRoom(ctx, roomId, EventUserLeft, nil)
	s.broadcastUserCount(ctx, roomId)
	s.logger.InfoContext(ctx, "room left", "room_id", roomId)

	return nil
}

// Disconnecting runs while the connection is still grouped.
func (s service) Disconnecting(ctx context.Context, connId string) {
	for _, roomId := range s.transport.RoomsOf(connId) {
		count := s.transport.RoomSize(roomId) - 1
		if count <= 0 {
			continue
		}

		s.transport.BroadcastFrom(ctx, connId, roomId, EventUserLeft, nil)
		s.transport.BroadcastFrom(ctx, connId, roomId, EventUpdateUserCount, UserCount{Count: count})
	}
}

// Disconnect runs after the connection has been ungrouped and closes the room it hosted, if any.
func (s service) Disconnect(ctx context.Context, connId string) error {
	roomId, err := s.roomRepo.GetRoomIdByHost(ctx, connId)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil
		}

		return fmt.Errorf("failed to get hosted room: %w", err)
	}

	return s.closeRoom(ctx, roomId, openState(connId), CauseHostDisconnected)
}
