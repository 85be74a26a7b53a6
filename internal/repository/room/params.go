package room

type SetHostParams struct {
	RoomId string
	HostId string
}
