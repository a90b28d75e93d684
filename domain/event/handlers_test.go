package event

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandlers_Count_Their_Own_Types(t *testing.T) {
	req := require.New(t)
	log := slog.New(slog.DiscardHandler)
	counter := NewCounter()
	handlers := []Handler{
		NewConnectionHandler(log, counter),
		NewCommandHandler(log, counter),
		NewWorkerRestartedAfterPanicHandler(log, counter),
	}
	events := []Event{
		New(ConnectionOpenedType, ConnectionOpened{Connection: "c1"}),
		New(ConnectionOpenedType, ConnectionOpened{Connection: "c2"}),
		New(ConnectionClosedType, ConnectionClosed{Connection: "c1"}),
		New(CommandHandledType, CommandHandled{Command: "say"}),
		New(CommandRejectedType, CommandRejected{Command: "login_attempt", Reason: "wrong arity"}),
		New(RestartedAfterPanicType, WorkerRestartedAfterPanic{WorkerName: "DispatcherWorker"}),
		// Payload mismatch is logged, not counted
		New(CommandHandledType, "not a payload"),
	}

	// When every handler sees every event
	for _, e := range events {
		for _, h := range handlers {
			h.Handle(e)
		}
	}

	// Then each type is counted exactly by its handler
	req.Equal(uint64(2), counter.Get(ConnectionOpenedType))
	req.Equal(uint64(1), counter.Get(ConnectionClosedType))
	req.Equal(uint64(1), counter.Get(CommandHandledType))
	req.Equal(uint64(1), counter.Get(CommandRejectedType))
	req.Equal(uint64(1), counter.Get(RestartedAfterPanicType))
	req.Len(counter.Snapshot(), 5)
}

func TestPublish_Drops_When_Full(t *testing.T) {
	req := require.New(t)
	ch := make(chan Event, 1)

	req.True(Publish(ch, New(CommandHandledType, CommandHandled{})))
	req.False(Publish(ch, New(CommandHandledType, CommandHandled{})))
	req.False(Publish(nil, New(CommandHandledType, CommandHandled{})))
	req.Len(ch, 1)
}
