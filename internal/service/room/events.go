package room

const (
	EventRoomCreated     = "roomCreated"
	EventRoomJoined      = "roomJoined"
	EventError           = "error"
	EventUserJoined      = "userJoined"
	EventUserLeft        = "userLeft"
	EventRoomClosed      = "roomClosed"
	EventUpdateUserCount = "updateUserCount"
	EventRequestSync     = "requestSync"
	EventSyncGuest       = "syncGuest"
	EventSyncData        = "syncData"
	EventPlay            = "play"
	EventPause           = "pause"
	EventSeek            = "seek"
	EventChangeTrack     = "changeTrack"
	EventChatMessage     = "chatMessage"
)

type UserCount struct {
	Count int `json:"count"`
}

// IsControlEvent reports whether event is a playback control relayed to the room.
func IsControlEvent(event string) bool {
	switch event {
	case EventPlay, EventPause, EventSeek, EventChangeTrack:
		return true
	default:
		return false
	}
}
