package runtime

import (
	"chat-relay/contract"
	"chat-relay/errors"
	"context"
	"sync"
)

var _ contract.IInboundQueue = (*InboundQueue)(nil)

// InboundQueue is an unbounded FIFO: Push never blocks, Pop blocks while empty.
// It is safe for any number of producers and exactly one consumer.
type InboundQueue struct {
	mu     sync.Mutex
	items  []contract.InboundMessage
	ready  chan struct{} // holds at most one wake-up token
	closed bool
}

func NewInboundQueue() *InboundQueue {
	return &InboundQueue{ready: make(chan struct{}, 1)}
}

func (q *InboundQueue) Push(msg contract.InboundMessage) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, msg)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Pop removes the oldest message. It returns ctx.Err() on cancellation
// and ErrQueueClosed once the queue is closed and drained.
func (q *InboundQueue) Pop(ctx context.Context) (contract.InboundMessage, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			msg := q.items[0]
			q.items[0] = contract.InboundMessage{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return msg, nil
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return contract.InboundMessage{}, errors.ErrQueueClosed
		}

		select {
		case <-ctx.Done():
			return contract.InboundMessage{}, ctx.Err()
		case <-q.ready:
		}
	}
}

func (q *InboundQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops accepting messages. Already queued messages can still be popped.
func (q *InboundQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}
