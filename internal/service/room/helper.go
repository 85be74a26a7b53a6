package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sharetube/jamroom/internal/metrics"
	repository "github.com/sharetube/jamroom/internal/repository/room"
)

func normalizeRoomId(roomId string) string {
	return strings.ToUpper(strings.TrimSpace(roomId))
}

// roomIdFromPayload accepts a bare JSON string or an object carrying "room" or "roomCode".
func roomIdFromPayload(payload json.RawMessage) (string, bool) {
	var roomId string
	if err := json.Unmarshal(payload, &roomId); err == nil {
		roomId = normalizeRoomId(roomId)
		return roomId, roomId != ""
	}

	var envelope struct {
		Room     string `json:"room"`
		RoomCode string `json:"roomCode"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return "", false
	}

	roomId = envelope.Room
	if roomId == "" {
		roomId = envelope.RoomCode
	}

	roomId = normalizeRoomId(roomId)
	return roomId, roomId != ""
}

func (s service) getState(ctx context.Context, roomId string) (State, error) {
	hostId, err := s.roomRepo.GetHost(ctx, roomId)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return absentState(), nil
		}

		return State{}, fmt.Errorf("failed to get room host: %w", err)
	}

	return openState(hostId), nil
}

// generateRoomId draws codes until one is free for hostId.
func (s service) generateRoomId(ctx context.Context, hostId string) (string, error) {
	for range s.codeAttempts {
		roomId := s.generator.GenerateRandomString(roomIdLength)
		state, err := s.getState(ctx, roomId)
		if err != nil {
			return "", err
		}

		if _, err := state.Open(hostId); err != nil || (state.Kind != StateOpen && s.transport.HasRoom(roomId)) {
			metrics.CodeCollisions.Inc()
			s.logger.DebugContext(ctx, "room code taken", "room_id", roomId)
			continue
		}

		return roomId, nil
	}

	return "", ErrCodeSpaceExhausted
}

func (s service) broadcastUserCount(ctx context.Context, roomId string) {
	count := s.transport.RoomSize(roomId)
	if count == 0 {
		return
	}

	s.transport.BroadcastRoom(ctx, roomId, EventUpdateUserCount, UserCount{Count: count})
}

// closeRoom notifies and evicts every member, then forgets the host.
func (s service) closeRoom(ctx context.Context, roomId string, state State, cause string) error {
	closed, err := state.Close()
	if err != nil {
		return err
	}

	s.transport.BroadcastRoom(ctx, roomId, EventRoomClosed, nil)
	evicted := s.transport.Evict(ctx, roomId)

	if err := s.roomRepo.RemoveRoom(ctx, roomId); err != nil && !errors.Is(err, repository.ErrRoomNotFound) {
		return fmt.Errorf("failed to remove room: %w", err)
	}

	metrics.Rooms.Dec()
	metrics.RoomsClosed.WithLabelValues(cause).Inc()
	s.logger.InfoContext(ctx, "room closed",
		"room_id", roomId,
		"host_id", state.HostId,
		"state", closed.Kind.String(),
		"cause", cause,
		"evicted", len(evicted),
	)

	return nil
}
