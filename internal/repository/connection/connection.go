package connection

import "errors"

var (
	ErrNotFound      = errors.New("connection not found")
	ErrAlreadyExists = errors.New("connection already exists")
)

// Conn is one client endpoint as seen by the relay.
type Conn interface {
	ID() string
	// Send enqueues a frame without blocking.
	Send(data []byte) error
	Close() error
}
