package room

import "fmt"

type StateKind int

const (
	StateAbsent StateKind = iota
	StateOpen
	StateClosed
)

func (k StateKind) String() string {
	switch k {
	case StateAbsent:
		return "absent"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("StateKind(%d)", int(k))
	}
}

// State is the lifecycle of one room code. HostId is set only while Open.
type State struct {
	Kind   StateKind
	HostId string
}

func absentState() State {
	return State{Kind: StateAbsent}
}

func openState(hostId string) State {
	return State{Kind: StateOpen, HostId: hostId}
}

// Open makes hostId the host. A closed code may be reopened; an open one only by its own host.
func (s State) Open(hostId string) (State, error) {
	if s.Kind == StateOpen && s.HostId != hostId {
		return s, ErrRoomTaken
	}

	return openState(hostId), nil
}

func (s State) Close() (State, error) {
	if s.Kind != StateOpen {
		return s, ErrRoomNotOpen
	}

	return State{Kind: StateClosed}, nil
}

func (s State) IsHostedBy(connId string) bool {
	return s.Kind == StateOpen && s.HostId == connId
}
