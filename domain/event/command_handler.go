package event

import (
	"chat-relay/errors"
	"log/slog"
)

// CommandHandler counts dispatched and rejected instructions.
type CommandHandler struct {
	log     *slog.Logger
	counter *Counter
}

func NewCommandHandler(log *slog.Logger, counter *Counter) *CommandHandler {
	return &CommandHandler{log: log, counter: counter}
}

func (h *CommandHandler) Handle(event Event) {
	switch event.Type {
	case CommandHandledType:
		if _, ok := event.Payload.(CommandHandled); !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.counter.Increment(CommandHandledType)
	case CommandRejectedType:
		payload, ok := event.Payload.(CommandRejected)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.counter.Increment(CommandRejectedType)
		h.log.Debug("telemetry: command rejected", "command", payload.Command, "reason", payload.Reason)
	}
}
