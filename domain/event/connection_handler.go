package event

import (
	"chat-relay/errors"
	"log/slog"
)

// ConnectionHandler counts accepted and closed sockets.
type ConnectionHandler struct {
	log     *slog.Logger
	counter *Counter
}

func NewConnectionHandler(log *slog.Logger, counter *Counter) *ConnectionHandler {
	return &ConnectionHandler{log: log, counter: counter}
}

func (h *ConnectionHandler) Handle(event Event) {
	switch event.Type {
	case ConnectionOpenedType:
		if _, ok := event.Payload.(ConnectionOpened); !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.counter.Increment(ConnectionOpenedType)
	case ConnectionClosedType:
		if _, ok := event.Payload.(ConnectionClosed); !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.counter.Increment(ConnectionClosedType)
	}
}
