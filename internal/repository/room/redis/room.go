package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/jamroom/internal/repository/room"
)

func (r repo) getRoomKey(roomId string) string {
	return r.namespace + ":room:" + roomId
}

func (r repo) getHostKey(hostId string) string {
	return r.namespace + ":host:" + hostId
}

func (r repo) SetHost(ctx context.Context, params *room.SetHostParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	pipe := r.rc.TxPipeline()

	// live rooms never expire, Clear drops the namespace on shutdown
	pipe.Set(ctx, r.getRoomKey(params.RoomId), params.HostId, 0)
	pipe.Set(ctx, r.getHostKey(params.HostId), params.RoomId, 0)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set host: %w", err)
	}

	return nil
}

func (r repo) GetHost(ctx context.Context, roomId string) (string, error) {
	hostId, err := r.rc.Get(ctx, r.getRoomKey(roomId)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", room.ErrRoomNotFound
		}

		return "", fmt.Errorf("failed to get host: %w", err)
	}

	return hostId, nil
}

func (r repo) RemoveRoom(ctx context.Context, roomId string) error {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)
	hostId, err := r.GetHost(ctx, roomId)
	if err != nil {
		return err
	}

	hostKey := r.getHostKey(hostId)
	hostRoomId, err := r.rc.Get(ctx, hostKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to get host room: %w", err)
	}

	pipe := r.rc.TxPipeline()
	pipe.Del(ctx, r.getRoomKey(roomId))
	if hostRoomId == roomId {
		pipe.Del(ctx, hostKey)
	}

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to remove room: %w", err)
	}

	return nil
}

// GetRoomIdByHost returns the room hostId still holds; a room whose host was overwritten does not count.
func (r repo) GetRoomIdByHost(ctx context.Context, hostId string) (string, error) {
	roomId, err := r.rc.Get(ctx, r.getHostKey(hostId)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", room.ErrRoomNotFound
		}

		return "", fmt.Errorf("failed to get host room: %w", err)
	}

	currentHostId, err := r.GetHost(ctx, roomId)
	if err != nil {
		return "", err
	}

	if currentHostId != hostId {
		return "", room.ErrRoomNotFound
	}

	return roomId, nil
}

func (r repo) Count(ctx context.Context) (int, error) {
	var count int
	iter := r.rc.Scan(ctx, 0, r.getRoomKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		count++
	}

	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("failed to count rooms: %w", err)
	}

	return count, nil
}

// Clear deletes every key of the namespace.
func (r repo) Clear(ctx context.Context) error {
	var keys []string
	iter := r.rc.Scan(ctx, 0, r.namespace+":*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan namespace: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}

	if err := r.rc.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear namespace: %w", err)
	}

	return nil
}
