package room

import (
	"context"
	"encoding/json"
	"fmt"
)

type RelayParams struct {
	SenderId string
	Event    string
	Payload  json.RawMessage
}

// Relay forwards a playback control or chat payload verbatim to every other room member.
func (s service) Relay(ctx context.Context, params *RelayParams) error {
	roomId, ok := roomIdFromPayload(params.Payload)
	if !ok {
		return fmt.Errorf("%w: %s without room id", ErrMalformedPayload, params.Event)
	}

	s.transport.BroadcastFrom(ctx, params.SenderId, roomId, params.Event, params.Payload)

	return nil
}

type RequestSyncParams struct {
	ConnId string
	RoomId string
}

// RequestSync asks the room host again on behalf of a guest that missed its state.
func (s service) RequestSync(ctx context.Context, params *RequestSyncParams) error {
	roomId := normalizeRoomId(params.RoomId)
	if roomId == "" {
		return ErrInvalidRoomId
	}

	state, err := s.getState(ctx, roomId)
	if err != nil {
		return err
	}

	if state.Kind != StateOpen {
		return ErrRoomNotFound
	}

	if state.IsHostedBy(params.ConnId) {
		return nil
	}

	s.sync.RequestSync(ctx, s.transport, state.HostId, params.ConnId)

	return nil
}

type SendSyncDataParams struct {
	SenderId string
	Payload  json.RawMessage
}

// SendSyncData delivers the host's state to the guest named by targetGuestId.
func (s service) SendSyncData(ctx context.Context, params *SendSyncDataParams) error {
	var target struct {
		TargetGuestId string `json:"targetGuestId"`
	}
	if err := json.Unmarshal(params.Payload, &target); err != nil || target.TargetGuestId == "" {
		return fmt.Errorf("%w: sendSyncData without targetGuestId", ErrMalformedPayload)
	}

	s.transport.Emit(ctx, target.TargetGuestId, EventSyncGuest, params.Payload)

	return nil
}

// SyncData relays the host's state to the rest of the room.
func (s service) SyncData(ctx context.Context, params *SendSyncDataParams) error {
	return s.Relay(ctx, &RelayParams{
		SenderId: params.SenderId,
		Event:    EventSyncData,
		Payload:  params.Payload,
	})
}
