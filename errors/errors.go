package errors

import "fmt"

var (
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrInvalidPayload     = fmt.Errorf("invalid payload")
	ErrInvariantViolation = fmt.Errorf("invariant violation")
	ErrQueueClosed        = fmt.Errorf("inbound queue closed")
)

// Malformed instructions. Every one of them is recoverable:
// the dispatcher logs and moves to the next queued line.
var (
	ErrEmptyLine           = fmt.Errorf("empty line")
	ErrUnknownCommand      = fmt.Errorf("unknown command")
	ErrWrongArity          = fmt.Errorf("wrong number of arguments")
	ErrInvalidArgument     = fmt.Errorf("invalid argument")
	ErrUserOffline         = fmt.Errorf("user is not online")
	ErrUnknownConversation = fmt.Errorf("unknown conversation")
	ErrNotParticipant      = fmt.Errorf("user is not a participant")
	ErrSelfConversation    = fmt.Errorf("conversation with oneself")
)

// ErrUsernameTaken is answered to the client with login_invalid.
var ErrUsernameTaken = fmt.Errorf("username already online")
