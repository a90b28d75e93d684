// Package runtime wires sockets, queue, registries and workers together.
// It holds the relay state but no protocol rules: those live in the dispatcher.
package runtime

import (
	"chat-relay/domain/event"
	"chat-relay/runtime/workers"
	"context"
	"log/slog"
	"net"
	"time"
)

type Options struct {
	WriteTimeout        time.Duration
	RestartInterval     time.Duration
	TelemetryBufferSize int
	// HeartbeatInterval disables the heartbeat when zero
	HeartbeatInterval time.Duration
}

func DefaultOptions() Options {
	return Options{
		WriteTimeout:        5 * time.Second,
		RestartInterval:     workers.DefaultRestartInterval,
		TelemetryBufferSize: 1024,
		HeartbeatInterval:   30 * time.Second,
	}
}

// Server is a relay bound to an already listening socket.
// Binding is left to the caller so that a bind failure aborts startup.
type Server struct {
	log        *slog.Logger
	queue      *InboundQueue
	counter    *event.Counter
	supervisor *workers.Supervisor
	dispatcher *workers.DispatcherWorker
	listener   *workers.ListenerWorker
}

func NewServer(log *slog.Logger, listener net.Listener, opts Options) *Server {
	telemetry := make(chan event.Event, max(opts.TelemetryBufferSize, 1))
	queue := NewInboundQueue()
	counter := event.NewCounter()

	dispatcher := workers.NewDispatcherWorker(log, queue, NewSessionRegistry(), NewConversationRegistry(), telemetry)
	listenerWorker := workers.NewListenerWorker(log, listener, queue, telemetry, opts.WriteTimeout)
	supervisor := workers.NewSupervisor(log, telemetry, opts.RestartInterval)

	supervisor.Add(
		listenerWorker,
		dispatcher,
		workers.NewTelemetryWorker(log, telemetry, []event.Handler{
			event.NewConnectionHandler(log, counter),
			event.NewCommandHandler(log, counter),
			event.NewWorkerRestartedAfterPanicHandler(log, counter),
		}),
	)
	if opts.HeartbeatInterval > 0 {
		supervisor.Add(workers.NewHeartbeatWorker(log, opts.HeartbeatInterval, queue, dispatcher.Gauges(), counter))
	}

	return &Server{
		log:        log,
		queue:      queue,
		counter:    counter,
		supervisor: supervisor,
		dispatcher: dispatcher,
		listener:   listenerWorker,
	}
}

// Serve blocks until ctx is canceled and every worker has returned.
func (s *Server) Serve(ctx context.Context) error {
	s.log.Info("Relay serving", "addr", s.Addr().String())
	s.supervisor.Run(ctx)
	s.queue.Close()
	s.log.Info("Relay stopped")
	return nil
}

func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *Server) Gauges() *workers.Gauges {
	return s.dispatcher.Gauges()
}

func (s *Server) Counter() *event.Counter {
	return s.counter
}
