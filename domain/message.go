package domain

import "github.com/google/uuid"

// ConnectionID is the opaque handle of one accepted socket.
type ConnectionID string

func NewConnectionID() ConnectionID {
	return ConnectionID(uuid.NewString())
}

func (id ConnectionID) String() string {
	return string(id)
}
