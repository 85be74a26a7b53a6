package room

import (
	"context"
	"fmt"
)

const (
	SyncTargeted  = "targeted"
	SyncBroadcast = "broadcast"
)

// SyncStrategy decides how a host is asked for its playback state when a guest joins.
type SyncStrategy interface {
	Name() string
	RequestSync(ctx context.Context, e Emitter, hostId, guestId string)
}

// TargetedSync asks the host for a reply addressed to the joining guest only.
type TargetedSync struct{}

func (TargetedSync) Name() string { return SyncTargeted }

func (TargetedSync) RequestSync(ctx context.Context, e Emitter, hostId, guestId string) {
	e.Emit(ctx, hostId, EventRequestSync, guestId)
}

// BroadcastSync asks the host for a reply that is relayed to the whole room.
type BroadcastSync struct{}

func (BroadcastSync) Name() string { return SyncBroadcast }

func (BroadcastSync) RequestSync(ctx context.Context, e Emitter, hostId, _ string) {
	e.Emit(ctx, hostId, EventRequestSync, nil)
}

func ParseSyncStrategy(name string) (SyncStrategy, error) {
	switch name {
	case SyncTargeted, "":
		return TargetedSync{}, nil
	case SyncBroadcast:
		return BroadcastSync{}, nil
	default:
		return nil, fmt.Errorf("unknown sync strategy %q", name)
	}
}
