package controller

import (
	"github.com/sharetube/jamroom/internal/service/room"
	"github.com/sharetube/jamroom/pkg/wsrouter"
)

func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()
	mux.Use(c.loggerWSMw())

	// session
	wsrouter.Handle(mux, "createRoom", c.handleCreateRoom)
	wsrouter.Handle(mux, "joinRoom", c.handleJoinRoom)
	wsrouter.Handle(mux, "leaveRoom", c.handleLeaveRoom)

	// sync
	wsrouter.Handle(mux, "requestSync", c.handleRequestSync)
	wsrouter.Handle(mux, "sendSyncData", c.handleSendSyncData)
	wsrouter.Handle(mux, "syncData", c.handleSyncData)

	// relay
	for _, event := range []string{room.EventPlay, room.EventPause, room.EventSeek, room.EventChangeTrack, room.EventChatMessage} {
		wsrouter.Handle(mux, event, c.handleRelay(event))
	}

	return mux
}
