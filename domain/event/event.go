// Package event defines telemetry events raised by the relay runtime.
// They describe what happened to connections, commands and workers;
// they never carry protocol state back into the dispatcher.
package event

import "time"

type Type string

const (
	ConnectionOpenedType    Type = "CONNECTION_OPENED"
	ConnectionClosedType    Type = "CONNECTION_CLOSED"
	CommandHandledType      Type = "COMMAND_HANDLED"
	CommandRejectedType     Type = "COMMAND_REJECTED"
	RestartedAfterPanicType Type = "WORKER_RESTARTED_AFTER_PANIC"
)

type Event struct {
	Type      Type
	CreatedAt time.Time
	Payload   any
}

func New(t Type, payload any) Event {
	return Event{Type: t, CreatedAt: time.Now().UTC(), Payload: payload}
}

type ConnectionOpened struct {
	Connection string
	Remote     string
}

type ConnectionClosed struct {
	Connection string
	Remote     string
}

type CommandHandled struct {
	Command string
}

type CommandRejected struct {
	Command string
	Reason  string
}

type WorkerRestartedAfterPanic struct {
	WorkerName string
}

// Publish sends without blocking. Telemetry is lost when the channel is full.
func Publish(ch chan<- Event, evt Event) bool {
	if ch == nil {
		return false
	}
	select {
	case ch <- evt:
		return true
	default:
		return false
	}
}
