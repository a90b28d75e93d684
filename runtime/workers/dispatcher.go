package workers

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/domain/protocol"
	"chat-relay/errors"
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/samber/lo"
)

var _ contract.Worker = (*DispatcherWorker)(nil)

// Gauges are written by the dispatcher after every message
// and may be read from any goroutine.
type Gauges struct {
	sessions      atomic.Int64
	conversations atomic.Int64
}

func (g *Gauges) Sessions() int64      { return g.sessions.Load() }
func (g *Gauges) Conversations() int64 { return g.conversations.Load() }

// DispatcherWorker is the sole consumer of the inbound queue and the only
// goroutine allowed to touch the registries. Handlers run one at a time,
// so the registries need no lock.
type DispatcherWorker struct {
	log           *slog.Logger
	queue         contract.IInboundQueue
	sessions      contract.ISessionRegistry
	conversations contract.IConversationRegistry
	telemetryChan chan event.Event
	gauges        *Gauges
}

func NewDispatcherWorker(
	log *slog.Logger,
	queue contract.IInboundQueue,
	sessions contract.ISessionRegistry,
	conversations contract.IConversationRegistry,
	telemetryChan chan event.Event) *DispatcherWorker {
	return &DispatcherWorker{
		log:           log,
		queue:         queue,
		sessions:      sessions,
		conversations: conversations,
		telemetryChan: telemetryChan,
		gauges:        &Gauges{},
	}
}

func (w *DispatcherWorker) Gauges() *Gauges {
	return w.gauges
}

func (w *DispatcherWorker) Run(ctx context.Context) error {
	for {
		msg, err := w.queue.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil || goerrors.Is(err, errors.ErrQueueClosed) {
				w.log.Debug("Stopping dispatcher", "reason", err)
				return nil
			}
			return err
		}
		w.Handle(msg)
	}
}

// Handle processes one inbound message to completion.
// A rejected message is logged and dropped, it never stops the loop.
func (w *DispatcherWorker) Handle(msg contract.InboundMessage) {
	name, err := w.dispatch(msg)
	w.gauges.sessions.Store(int64(w.sessions.Len()))
	w.gauges.conversations.Store(int64(w.conversations.Len()))

	if err == nil {
		event.Publish(w.telemetryChan, event.New(event.CommandHandledType, event.CommandHandled{Command: name}))
		return
	}
	attrs := []any{"line", msg.Line, "connection", connectionOf(msg.Origin), "error", err}
	switch {
	case goerrors.Is(err, errors.ErrInvariantViolation):
		w.log.Error("Instruction aborted", attrs...)
	case goerrors.Is(err, errors.ErrUsernameTaken):
		w.log.Info("Login refused", attrs...)
	default:
		w.log.Warn("Malformed instruction ignored", attrs...)
	}
	event.Publish(w.telemetryChan, event.New(event.CommandRejectedType,
		event.CommandRejected{Command: name, Reason: err.Error()}))
}

// dispatch converts a panic raised while handling one message into an error
func (w *DispatcherWorker) dispatch(msg contract.InboundMessage) (name string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errors.ErrInvariantViolation, r)
		}
	}()

	var cmd domain.Command
	if msg.Disconnected {
		cmd = domain.DisconnectCommand{Connection: connectionOf(msg.Origin)}
	} else {
		cmd, err = protocol.Parse(msg.Line)
		if err != nil {
			return "", err
		}
	}
	return cmd.Name(), w.execute(msg.Origin, cmd)
}

func (w *DispatcherWorker) execute(origin contract.Outbox, cmd domain.Command) error {
	switch c := cmd.(type) {
	case domain.LoginAttemptCommand:
		return w.login(origin, c)
	case domain.LogoutCommand:
		return w.logout(c.Username)
	case domain.DisconnectCommand:
		return w.disconnect(c)
	case domain.ChatStartCommand:
		return w.chatStart(c)
	case domain.GroupChatStartCommand:
		return w.groupChatStart(c)
	case domain.GroupChatLeaveCommand:
		return w.groupChatLeave(c)
	case domain.SayCommand:
		return w.say(c)
	case domain.TypingCommand:
		return w.relayToOthers(c.Conversation, c.Username, protocol.Typing(c.Conversation, c.Username))
	case domain.ClearedCommand:
		return w.relayToOthers(c.Conversation, c.Username, protocol.Cleared(c.Conversation, c.Username))
	default:
		return fmt.Errorf("%w: no handler for %s", errors.ErrInvariantViolation, cmd.Name())
	}
}

func (w *DispatcherWorker) login(origin contract.Outbox, c domain.LoginAttemptCommand) error {
	if origin == nil {
		return fmt.Errorf("%w: login without connection", errors.ErrInvariantViolation)
	}
	user := domain.NewUser(c.Username, c.Avatar)
	if !w.sessions.Login(user, origin) {
		w.send(origin, protocol.LoginInvalid())
		return fmt.Errorf("%w: %s", errors.ErrUsernameTaken, user.Username)
	}
	w.log.Info("User logged in", "user", user.Username, "connection", origin.ID())
	w.send(origin, protocol.LoginSuccess())

	online := w.sessions.Online()
	joined := protocol.UserJoins(user)
	for _, u := range online {
		if !u.Same(user) {
			w.sendTo(u.Username, joined)
		}
	}
	// The roster includes the new user itself, so it reads its own user_joins once.
	for _, u := range online {
		w.send(origin, protocol.UserJoins(u))
	}
	// Direct conversations survive logout and are re-announced, groups are not.
	for _, conv := range w.conversations.Containing(user.Username) {
		if conv.IsGroup {
			continue
		}
		if other, ok := conv.Other(user.Username); ok {
			w.send(origin, protocol.ChatStart(conv.ID, other.Username, user.Username))
		}
	}
	return nil
}

func (w *DispatcherWorker) logout(username string) error {
	if _, ok := w.sessions.Logout(username); !ok {
		return fmt.Errorf("%w: %s", errors.ErrUserOffline, username)
	}
	w.log.Info("User logged out", "user", username)

	for _, conv := range w.conversations.Containing(username) {
		if !conv.IsGroup {
			continue
		}
		conv.Remove(username)
		w.broadcast(conv, protocol.GroupChatLeave(conv.ID, username), "")
	}
	leaves := protocol.UserLeaves(username)
	for _, u := range w.sessions.Online() {
		w.sendTo(u.Username, leaves)
	}
	return nil
}

// disconnect logs out every username bound to the dropped connection.
// A connection that never logged in produces nothing.
func (w *DispatcherWorker) disconnect(c domain.DisconnectCommand) error {
	for _, username := range w.sessions.BoundTo(c.Connection) {
		if err := w.logout(username); err != nil {
			return err
		}
	}
	return nil
}

func (w *DispatcherWorker) chatStart(c domain.ChatStartCommand) error {
	if c.First == c.Second {
		return fmt.Errorf("%w: %s", errors.ErrSelfConversation, c.First)
	}
	users, err := w.onlineUsers([]string{c.First, c.Second})
	if err != nil {
		return err
	}
	conv := w.conversations.CreateDirect(users[0], users[1])
	line := protocol.ChatStart(conv.ID, c.First, c.Second)
	w.sendTo(c.First, line)
	w.sendTo(c.Second, line)
	return nil
}

func (w *DispatcherWorker) groupChatStart(c domain.GroupChatStartCommand) error {
	users, err := w.onlineUsers(lo.Uniq(c.Usernames))
	if err != nil {
		return err
	}
	conv := w.conversations.CreateGroup(users)
	members := conv.Usernames()
	for _, member := range members {
		w.sendTo(member, protocol.GroupChatStart(conv.ID))
		for _, other := range members {
			if other != member {
				w.sendTo(member, protocol.GroupChatJoin(conv.ID, other))
			}
		}
	}
	return nil
}

func (w *DispatcherWorker) groupChatLeave(c domain.GroupChatLeaveCommand) error {
	conv, err := w.conversation(c.Conversation)
	if err != nil {
		return err
	}
	if !w.sessions.IsOnline(c.Username) {
		return fmt.Errorf("%w: %s", errors.ErrUserOffline, c.Username)
	}
	if !conv.Remove(c.Username) {
		return fmt.Errorf("%w: %s in %d", errors.ErrNotParticipant, c.Username, c.Conversation)
	}
	w.broadcast(conv, protocol.GroupChatLeave(conv.ID, c.Username), "")
	return nil
}

// say is echoed to the sender as well.
func (w *DispatcherWorker) say(c domain.SayCommand) error {
	if !w.sessions.IsOnline(c.Username) {
		return fmt.Errorf("%w: %s", errors.ErrUserOffline, c.Username)
	}
	conv, err := w.conversation(c.Conversation)
	if err != nil {
		return err
	}
	w.broadcast(conv, protocol.Say(conv.ID, c.Username, c.Text), "")
	return nil
}

func (w *DispatcherWorker) relayToOthers(id domain.ConversationID, username, line string) error {
	if !w.sessions.IsOnline(username) {
		return fmt.Errorf("%w: %s", errors.ErrUserOffline, username)
	}
	conv, err := w.conversation(id)
	if err != nil {
		return err
	}
	w.broadcast(conv, line, username)
	return nil
}

func (w *DispatcherWorker) conversation(id domain.ConversationID) (*domain.Conversation, error) {
	conv, ok := w.conversations.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", errors.ErrUnknownConversation, id)
	}
	return conv, nil
}

// onlineUsers resolves every name or fails on the first offline one.
func (w *DispatcherWorker) onlineUsers(names []string) ([]domain.User, error) {
	users := make([]domain.User, 0, len(names))
	for _, name := range names {
		u, ok := w.sessions.User(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", errors.ErrUserOffline, name)
		}
		users = append(users, u)
	}
	return users, nil
}

// broadcast writes line to every online participant except the one named.
func (w *DispatcherWorker) broadcast(conv *domain.Conversation, line, except string) {
	for _, name := range conv.Usernames() {
		if name != except {
			w.sendTo(name, line)
		}
	}
}

func (w *DispatcherWorker) sendTo(username, line string) {
	if outbox, ok := w.sessions.Lookup(username); ok {
		w.send(outbox, line)
	}
}

// send is best-effort: a failed write is dropped and never retried.
func (w *DispatcherWorker) send(outbox contract.Outbox, line string) {
	if err := outbox.Send(line); err != nil {
		w.log.Debug("Outbound write failed", "connection", outbox.ID(), "line", line, "error", err)
	}
}

func connectionOf(outbox contract.Outbox) domain.ConnectionID {
	if outbox == nil {
		return ""
	}
	return outbox.ID()
}
