package inmemory

import (
	"context"
	"log/slog"

	"github.com/sharetube/jamroom/internal/repository/room"
)

// repo maps room codes to host connection ids for the lifetime of the process.
type repo struct {
	hosts  map[string]string
	logger *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		hosts:  make(map[string]string),
		logger: logger,
	}
}

// SetHost overwrites any host already recorded for the room.
func (r *repo) SetHost(ctx context.Context, params *room.SetHostParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	r.hosts[params.RoomId] = params.HostId

	return nil
}

func (r *repo) GetHost(ctx context.Context, roomId string) (string, error) {
	hostId, ok := r.hosts[roomId]
	if !ok {
		return "", room.ErrRoomNotFound
	}

	return hostId, nil
}

func (r *repo) RemoveRoom(ctx context.Context, roomId string) error {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)
	if _, ok := r.hosts[roomId]; !ok {
		return room.ErrRoomNotFound
	}

	delete(r.hosts, roomId)

	return nil
}

// GetRoomIdByHost scans for the first room hosted by hostId.
func (r *repo) GetRoomIdByHost(ctx context.Context, hostId string) (string, error) {
	for roomId, id := range r.hosts {
		if id == hostId {
			return roomId, nil
		}
	}

	return "", room.ErrRoomNotFound
}

func (r *repo) Count(ctx context.Context) (int, error) {
	return len(r.hosts), nil
}
