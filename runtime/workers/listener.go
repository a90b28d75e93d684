package workers

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/transport"
	"context"
	goerrors "errors"
	"log/slog"
	"net"
	"sync"
	"time"
)

var _ contract.Worker = (*ListenerWorker)(nil)

// ListenerWorker accepts sockets and runs one reader goroutine per connection.
// Readers only push onto the queue, they never touch the registries.
type ListenerWorker struct {
	log           *slog.Logger
	listener      net.Listener
	queue         contract.IInboundQueue
	telemetryChan chan event.Event
	writeTimeout  time.Duration

	mu          sync.Mutex
	connections map[domain.ConnectionID]*transport.Connection
	readers     sync.WaitGroup
}

func NewListenerWorker(
	log *slog.Logger,
	listener net.Listener,
	queue contract.IInboundQueue,
	telemetryChan chan event.Event,
	writeTimeout time.Duration) *ListenerWorker {
	return &ListenerWorker{
		log:           log,
		listener:      listener,
		queue:         queue,
		telemetryChan: telemetryChan,
		writeTimeout:  writeTimeout,
		connections:   make(map[domain.ConnectionID]*transport.Connection),
	}
}

func (w *ListenerWorker) Addr() net.Addr {
	return w.listener.Addr()
}

// Run accepts until ctx is canceled. Accept errors are logged and the loop goes on,
// except once the listener itself is closed.
func (w *ListenerWorker) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		_ = w.listener.Close()
	})
	defer stop()
	w.log.Info("Listening", "addr", w.listener.Addr().String())

	for {
		conn, err := w.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				w.shutdown()
				return nil
			}
			if goerrors.Is(err, net.ErrClosed) {
				w.shutdown()
				return err
			}
			w.log.Error("Accept failed", "error", err)
			continue
		}
		w.serve(conn)
	}
}

func (w *ListenerWorker) serve(nc net.Conn) {
	conn := transport.NewConnection(w.log, nc, w.writeTimeout)
	w.mu.Lock()
	w.connections[conn.ID()] = conn
	w.mu.Unlock()

	w.log.Info("Connection opened", "connection", conn.ID().String(), "remote", conn.RemoteAddr())
	event.Publish(w.telemetryChan, event.New(event.ConnectionOpenedType,
		event.ConnectionOpened{Connection: conn.ID().String(), Remote: conn.RemoteAddr()}))

	w.readers.Add(1)
	go func() {
		defer w.readers.Done()
		conn.ReadLoop(w.queue)

		w.mu.Lock()
		delete(w.connections, conn.ID())
		w.mu.Unlock()
		event.Publish(w.telemetryChan, event.New(event.ConnectionClosedType,
			event.ConnectionClosed{Connection: conn.ID().String(), Remote: conn.RemoteAddr()}))
	}()
}

// shutdown closes every live socket and waits for their readers.
func (w *ListenerWorker) shutdown() {
	w.mu.Lock()
	for _, conn := range w.connections {
		conn.Close()
	}
	w.mu.Unlock()
	w.readers.Wait()
	w.log.Info("Listener stopped")
}

// Open returns the number of live connections.
func (w *ListenerWorker) Open() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.connections)
}
