package inmemory

import (
	"context"
	"log/slog"
	"testing"

	"github.com/sharetube/jamroom/internal/repository/room"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepo(t *testing.T) {
	ctx := context.Background()
	r := NewRepo(slog.Default())

	_, err := r.GetHost(ctx, "AB12")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)

	require.NoError(t, r.SetHost(ctx, &room.SetHostParams{RoomId: "AB12", HostId: "host1"}))

	hostId, err := r.GetHost(ctx, "AB12")
	require.NoError(t, err)
	assert.Equal(t, "host1", hostId)

	roomId, err := r.GetRoomIdByHost(ctx, "host1")
	require.NoError(t, err)
	assert.Equal(t, "AB12", roomId)

	count, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, r.RemoveRoom(ctx, "AB12"))
	assert.ErrorIs(t, r.RemoveRoom(ctx, "AB12"), room.ErrRoomNotFound)

	_, err = r.GetRoomIdByHost(ctx, "host1")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestRepo_SetHostOverwrites(t *testing.T) {
	ctx := context.Background()
	r := NewRepo(slog.Default())

	require.NoError(t, r.SetHost(ctx, &room.SetHostParams{RoomId: "AB12", HostId: "host1"}))
	require.NoError(t, r.SetHost(ctx, &room.SetHostParams{RoomId: "AB12", HostId: "host2"}))

	hostId, err := r.GetHost(ctx, "AB12")
	require.NoError(t, err)
	assert.Equal(t, "host2", hostId)

	_, err = r.GetRoomIdByHost(ctx, "host1")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}
