package room

import (
	"context"
	"errors"
	"log/slog"

	repository "github.com/sharetube/jamroom/internal/repository/room"
	"github.com/skewb1k/goutils/randstr"
)

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomTaken          = errors.New("room is hosted by another connection")
	ErrRoomNotOpen        = errors.New("room is not open")
	ErrCodeSpaceExhausted = errors.New("no free room code")
	ErrInvalidRoomId      = errors.New("invalid room id")
	ErrMalformedPayload   = errors.New("malformed payload")
	ErrNotMember          = errors.New("connection is not a room member")
)

const (
	roomIdLength        = 4
	defaultCodeAttempts = 32

	roomNotFoundMessage = "Room not found! Check the code."
	createFailedMessage = "Could not create a room, try again."
)

type iRoomRepo interface {
	SetHost(context.Context, *repository.SetHostParams) error
	GetHost(ctx context.Context, roomId string) (string, error)
	RemoveRoom(ctx context.Context, roomId string) error
	GetRoomIdByHost(ctx context.Context, hostId string) (string, error)
}

// Emitter delivers one event to one connection.
type Emitter interface {
	Emit(ctx context.Context, connId, event string, payload any)
}

type iTransport interface {
	Emitter
	// BroadcastRoom delivers to every member of the room.
	BroadcastRoom(ctx context.Context, roomId, event string, payload any)
	// BroadcastFrom delivers to every member of the room except senderId.
	BroadcastFrom(ctx context.Context, senderId, roomId, event string, payload any)
	Join(ctx context.Context, connId, roomId string) error
	Leave(ctx context.Context, connId, roomId string) bool
	Evict(ctx context.Context, roomId string) []string
	HasRoom(roomId string) bool
	RoomSize(roomId string) int
	RoomsOf(connId string) []string
}

type iGenerator interface {
	GenerateRandomString(length int) string
}

type Config struct {
	SyncStrategy SyncStrategy
	CodeAttempts int
}

type service struct {
	roomRepo     iRoomRepo
	transport    iTransport
	generator    iGenerator
	sync         SyncStrategy
	codeAttempts int
	logger       *slog.Logger
}

func NewService(roomRepo iRoomRepo, transport iTransport, cfg *Config, logger *slog.Logger) *service {
	s := service{
		roomRepo:     roomRepo,
		transport:    transport,
		sync:         cfg.SyncStrategy,
		codeAttempts: cfg.CodeAttempts,
		logger:       logger,
	}

	if s.sync == nil {
		s.sync = TargetedSync{}
	}

	if s.codeAttempts <= 0 {
		s.codeAttempts = defaultCodeAttempts
	}

	letterBytes := []byte("0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	s.generator = randstr.New(letterBytes)

	return &s
}

// SyncStrategyName reports which join-sync handshake the service runs.
func (s service) SyncStrategyName() string {
	return s.sync.Name()
}
