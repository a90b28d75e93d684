// Package transport adapts TCP sockets to the relay: a Connection writes
// response lines and feeds every line it reads into the inbound queue.
package transport

import (
	"bufio"
	"chat-relay/contract"
	"chat-relay/domain"
	goerrors "errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"
)

var _ contract.Outbox = (*Connection)(nil)

// Connection is one accepted socket. Reads happen on the goroutine running
// ReadLoop, writes on the dispatcher goroutine; the write mutex only guards
// against Close racing a Send.
type Connection struct {
	id           domain.ConnectionID
	conn         net.Conn
	writeTimeout time.Duration
	log          *slog.Logger

	mu        sync.Mutex
	closeOnce sync.Once
}

func NewConnection(log *slog.Logger, conn net.Conn, writeTimeout time.Duration) *Connection {
	id := domain.NewConnectionID()
	return &Connection{
		id:           id,
		conn:         conn,
		writeTimeout: writeTimeout,
		log:          log.With("connection", id.String()),
	}
}

func (c *Connection) ID() domain.ConnectionID {
	return c.id
}

func (c *Connection) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// Send writes one line followed by a newline.
func (c *Connection) Send(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	_, err := io.WriteString(c.conn, line+"\n")
	return err
}

// ReadLoop pushes every line onto the queue until the stream ends or fails,
// then closes the socket and pushes the disconnect notice.
// A partial last line without terminator is still delivered.
func (c *Connection) ReadLoop(queue contract.IInboundQueue) {
	defer func() {
		c.Close()
		queue.Push(contract.InboundMessage{Origin: c, Disconnected: true})
	}()

	reader := bufio.NewReader(c.conn)
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			queue.Push(contract.InboundMessage{Line: trimTerminator(line), Origin: c})
		}
		if err != nil {
			if goerrors.Is(err, io.EOF) || goerrors.Is(err, net.ErrClosed) {
				c.log.Info("Connection closed by peer")
			} else {
				c.log.Info("Connection read failed", "error", err)
			}
			return
		}
	}
}

func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if err := c.conn.Close(); err != nil {
			c.log.Debug("Close failed", "error", err)
		}
	})
}

func trimTerminator(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}
