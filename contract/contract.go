//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Outbox is the means of writing response lines to one client.
// Send is best-effort: callers drop the error after logging it.
type Outbox interface {
	ID() domain.ConnectionID
	Send(line string) error
}

// InboundMessage is one line read from a connection, tagged with its origin.
// Disconnected is set on the last message a connection ever produces.
type InboundMessage struct {
	Line         string
	Origin       Outbox
	Disconnected bool
}

// IInboundQueue is safe for many producers and a single consumer.
type IInboundQueue interface {
	Push(msg InboundMessage)
	Pop(ctx context.Context) (InboundMessage, error)
	Len() int
}

type ISessionRegistry interface {
	Login(user domain.User, outbox Outbox) bool
	Logout(username string) (domain.User, bool)
	Lookup(username string) (Outbox, bool)
	User(username string) (domain.User, bool)
	IsOnline(username string) bool
	Online() []domain.User
	BoundTo(connection domain.ConnectionID) []string
	Len() int
}

type IConversationRegistry interface {
	CreateDirect(first, second domain.User) *domain.Conversation
	CreateGroup(members []domain.User) *domain.Conversation
	Get(id domain.ConversationID) (*domain.Conversation, bool)
	Containing(username string) []*domain.Conversation
	Len() int
}
