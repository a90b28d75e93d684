package workers_test

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/mocks"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// recordingOutbox keeps every line sent to it.
type recordingOutbox struct {
	id    domain.ConnectionID
	mu    sync.Mutex
	lines []string
}

func newRecordingOutbox(id string) *recordingOutbox {
	return &recordingOutbox{id: domain.ConnectionID(id)}
}

func (o *recordingOutbox) ID() domain.ConnectionID { return o.id }

func (o *recordingOutbox) Send(line string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lines = append(o.lines, line)
	return nil
}

// drain returns and forgets what was received so far.
func (o *recordingOutbox) drain() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	lines := o.lines
	o.lines = nil
	return lines
}

type fixture struct {
	dispatcher    *workers.DispatcherWorker
	sessions      *runtime.SessionRegistry
	conversations *runtime.ConversationRegistry
	telemetry     chan event.Event
}

func newFixture() *fixture {
	sessions := runtime.NewSessionRegistry()
	conversations := runtime.NewConversationRegistry()
	telemetry := make(chan event.Event, 256)
	return &fixture{
		dispatcher: workers.NewDispatcherWorker(slog.New(slog.DiscardHandler),
			runtime.NewInboundQueue(), sessions, conversations, telemetry),
		sessions:      sessions,
		conversations: conversations,
		telemetry:     telemetry,
	}
}

func (f *fixture) send(origin contract.Outbox, line string) {
	f.dispatcher.Handle(contract.InboundMessage{Line: line, Origin: origin})
}

func (f *fixture) drop(origin contract.Outbox) {
	f.dispatcher.Handle(contract.InboundMessage{Origin: origin, Disconnected: true})
}

func (f *fixture) lastEvent() event.Event {
	var last event.Event
	for {
		select {
		case e := <-f.telemetry:
			last = e
		default:
			return last
		}
	}
}

func drainAll(outboxes ...*recordingOutbox) {
	for _, o := range outboxes {
		o.drain()
	}
}

func TestDispatcher_Login_Announces_Roster(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	alex, katie := newRecordingOutbox("alex"), newRecordingOutbox("katie")

	// When Alex then Katie log in
	f.send(alex, "login_attempt Alex 1")
	req.Equal([]string{"login_success", "user_joins Alex 1"}, alex.drain())
	f.send(katie, "login_attempt Katie 2")

	// Then Katie sees the whole roster including herself, Alex sees Katie join
	req.Equal([]string{"login_success"}, katie.lines[:1])
	req.ElementsMatch([]string{"user_joins Alex 1", "user_joins Katie 2"}, katie.drain()[1:])
	req.Equal([]string{"user_joins Katie 2"}, alex.drain())
	req.Equal(2, f.sessions.Len())
}

func TestDispatcher_Login_Taken_Username_Is_Invalid(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	alex, impostor := newRecordingOutbox("alex"), newRecordingOutbox("impostor")
	f.send(alex, "login_attempt Alex 1")
	alex.drain()

	// When another connection claims the same name
	f.send(impostor, "login_attempt Alex 7")

	// Then only the impostor is told, and the existing session is untouched
	req.Equal([]string{"login_invalid"}, impostor.drain())
	req.Empty(alex.drain())
	req.Equal(1, f.sessions.Len())
	u, ok := f.sessions.User("Alex")
	req.True(ok)
	req.Equal(1, u.Avatar)
	req.Equal(event.CommandRejectedType, f.lastEvent().Type)
}

func TestDispatcher_ChatStart_Announces_To_Both(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	alex, casey := newRecordingOutbox("alex"), newRecordingOutbox("casey")
	f.send(alex, "login_attempt Alex 1")
	f.send(casey, "login_attempt Casey 3")
	drainAll(alex, casey)

	// When
	f.send(alex, "chat_start Alex Casey")

	// Then creation order is kept in the announcement
	req.Equal([]string{"chat_start 1 Alex Casey"}, alex.drain())
	req.Equal([]string{"chat_start 1 Alex Casey"}, casey.drain())

	// And the next conversation gets a fresh id
	f.send(casey, "chat_start Casey Alex")
	req.Equal([]string{"chat_start 2 Casey Alex"}, alex.drain())
	req.Equal(2, f.conversations.Len())
}

func TestDispatcher_ChatStart_Rejects_Offline_And_Self(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	alex := newRecordingOutbox("alex")
	f.send(alex, "login_attempt Alex 1")
	alex.drain()

	f.send(alex, "chat_start Alex Casey")
	f.send(alex, "chat_start Alex Alex")

	req.Empty(alex.drain())
	req.Equal(0, f.conversations.Len())
}

func TestDispatcher_GroupChatStart_Announces_Members(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	alex, katie, casey := newRecordingOutbox("alex"), newRecordingOutbox("katie"), newRecordingOutbox("casey")
	f.send(alex, "login_attempt Alex 1")
	f.send(katie, "login_attempt Katie 2")
	f.send(casey, "login_attempt Casey 3")
	drainAll(alex, katie, casey)

	// When a group is started with a duplicated name
	f.send(alex, "group_chat_start Alex Katie Casey Katie")

	// Then each member gets the start then one join per other member
	req.Equal([]string{"group_chat_start 1", "group_chat_join 1 Katie", "group_chat_join 1 Casey"}, alex.drain())
	req.Equal([]string{"group_chat_start 1", "group_chat_join 1 Alex", "group_chat_join 1 Casey"}, katie.drain())
	req.Equal([]string{"group_chat_start 1", "group_chat_join 1 Alex", "group_chat_join 1 Katie"}, casey.drain())
	conv, ok := f.conversations.Get(1)
	req.True(ok)
	req.True(conv.IsGroup)
	req.Equal(3, conv.Len())
}

func TestDispatcher_GroupChatStart_Rejects_Offline_Member(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	alex := newRecordingOutbox("alex")
	f.send(alex, "login_attempt Alex 1")
	alex.drain()

	f.send(alex, "group_chat_start Alex Ghost")

	req.Empty(alex.drain())
	req.Equal(0, f.conversations.Len())
}

func TestDispatcher_Disconnect_Leaves_Group(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	alex, katie, casey, bob := newRecordingOutbox("alex"), newRecordingOutbox("katie"),
		newRecordingOutbox("casey"), newRecordingOutbox("bob")
	f.send(alex, "login_attempt Alex 1")
	f.send(katie, "login_attempt Katie 2")
	f.send(casey, "login_attempt Casey 3")
	f.send(bob, "login_attempt Bob 4")
	f.send(alex, "chat_start Alex Katie")
	f.send(alex, "chat_start Alex Casey")
	f.send(katie, "chat_start Katie Casey")
	// Given group 4 made of three users
	f.send(alex, "group_chat_start Alex Katie Casey")
	drainAll(alex, katie, casey, bob)

	// When Katie's socket drops
	f.drop(katie)

	// Then the remaining members each get exactly one leave, direct partners only user_leaves
	req.Equal([]string{"group_chat_leave 4 Katie", "user_leaves Katie"}, alex.drain())
	req.Equal([]string{"group_chat_leave 4 Katie", "user_leaves Katie"}, casey.drain())
	req.Equal([]string{"user_leaves Katie"}, bob.drain())
	req.Empty(katie.drain())
	req.False(f.sessions.IsOnline("Katie"))

	group, _ := f.conversations.Get(4)
	req.False(group.Has("Katie"))
	direct, _ := f.conversations.Get(1)
	req.True(direct.Has("Katie"))
}

func TestDispatcher_Disconnect_Without_Session_Is_Silent(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	alex, lurker := newRecordingOutbox("alex"), newRecordingOutbox("lurker")
	f.send(alex, "login_attempt Alex 1")
	alex.drain()

	f.drop(lurker)

	req.Empty(alex.drain())
	req.Equal(1, f.sessions.Len())
}

func TestDispatcher_Disconnect_Logs_Out_Every_Bound_Name(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	shared, casey := newRecordingOutbox("shared"), newRecordingOutbox("casey")
	f.send(casey, "login_attempt Casey 3")
	f.send(shared, "login_attempt Alex 1")
	f.send(shared, "login_attempt Katie 2")
	drainAll(shared, casey)

	f.drop(shared)

	req.Equal([]string{"user_leaves Alex", "user_leaves Katie"}, casey.drain())
	req.Equal(1, f.sessions.Len())
}

func TestDispatcher_Malformed_Line_Is_Ignored(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	alex := newRecordingOutbox("alex")
	f.send(alex, "login_attempt Alex 1")
	alex.drain()

	// When
	for _, line := range []string{"login_attempt a b c d e", "", "dance Alex", "logout", "say x Alex hi"} {
		f.send(alex, line)
	}

	// Then nothing is answered and the state is unchanged
	req.Empty(alex.drain())
	req.Equal(1, f.sessions.Len())
	req.Equal(0, f.conversations.Len())
	rejected := f.lastEvent()
	req.Equal(event.CommandRejectedType, rejected.Type)
}

func TestDispatcher_Relogin_Reannounces_Direct_Only(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	alex, casey := newRecordingOutbox("alex"), newRecordingOutbox("casey")
	f.send(alex, "login_attempt Alex 1")
	f.send(casey, "login_attempt Casey 3")
	f.send(alex, "chat_start Alex Casey")
	f.send(alex, "group_chat_start Alex Casey")
	f.send(casey, "logout Casey")
	drainAll(alex, casey)

	// When Casey comes back on a new connection
	back := newRecordingOutbox("casey-again")
	f.send(back, "login_attempt Casey 5")

	// Then she gets the direct conversation, other user first, but not the group
	req.Equal([]string{
		"login_success",
		"user_joins Alex 1",
		"user_joins Casey 5",
		"chat_start 1 Alex Casey",
	}, back.drain())
	req.Equal([]string{"user_joins Casey 5"}, alex.drain())
}

func TestDispatcher_Logout_Of_Offline_User_Is_Rejected(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	alex := newRecordingOutbox("alex")
	f.send(alex, "login_attempt Alex 1")
	alex.drain()

	f.send(alex, "logout Katie")

	req.Empty(alex.drain())
	req.Equal(1, f.sessions.Len())
}

func TestDispatcher_Say_Typing_Cleared(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	alex, casey := newRecordingOutbox("alex"), newRecordingOutbox("casey")
	f.send(alex, "login_attempt Alex 1")
	f.send(casey, "login_attempt Casey 3")
	f.send(alex, "chat_start Alex Casey")
	drainAll(alex, casey)

	// When Alex types, talks then clears
	f.send(alex, "typing 1 Alex")
	f.send(alex, "say 1 Alex hello,  world!  say 2 x ")
	f.send(alex, "cleared 1 Alex")

	// Then say is echoed verbatim, typing and cleared are not
	req.Equal([]string{"say 1 Alex hello,  world!  say 2 x "}, alex.drain())
	req.Equal([]string{"typing 1 Alex", "say 1 Alex hello,  world!  say 2 x ", "cleared 1 Alex"}, casey.drain())
}

func TestDispatcher_Say_Skips_Offline_Participant(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	alex, casey := newRecordingOutbox("alex"), newRecordingOutbox("casey")
	f.send(alex, "login_attempt Alex 1")
	f.send(casey, "login_attempt Casey 3")
	f.send(alex, "chat_start Alex Casey")
	f.send(casey, "logout Casey")
	drainAll(alex, casey)

	f.send(alex, "say 1 Alex anyone?")
	f.send(alex, "say 9 Alex nobody")
	f.send(alex, "say 1 Casey ghost")

	req.Equal([]string{"say 1 Alex anyone?"}, alex.drain())
	req.Empty(casey.drain())
}

func TestDispatcher_GroupChatLeave(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	alex, katie, casey := newRecordingOutbox("alex"), newRecordingOutbox("katie"), newRecordingOutbox("casey")
	f.send(alex, "login_attempt Alex 1")
	f.send(katie, "login_attempt Katie 2")
	f.send(casey, "login_attempt Casey 3")
	f.send(alex, "group_chat_start Alex Katie")
	drainAll(alex, katie, casey)

	// When Katie leaves, then a non member and an unknown id are tried
	f.send(katie, "group_chat_leave 1 Katie")
	f.send(casey, "group_chat_leave 1 Casey")
	f.send(casey, "group_chat_leave 7 Casey")

	// Then only the remaining member hears about it
	req.Equal([]string{"group_chat_leave 1 Katie"}, alex.drain())
	req.Empty(katie.drain())
	req.Empty(casey.drain())

	// And the conversation is kept, even empty
	f.send(alex, "group_chat_leave 1 Alex")
	conv, ok := f.conversations.Get(1)
	req.True(ok)
	req.Equal(0, conv.Len())
	req.True(conv.IsGroup)
}

func TestDispatcher_Write_Failure_Is_Swallowed(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	f := newFixture()

	// Given a client whose socket rejects every write
	broken := mocks.NewMockOutbox(ctrl)
	broken.EXPECT().ID().Return(domain.ConnectionID("broken")).AnyTimes()
	broken.EXPECT().Send(gomock.Any()).Return(io.ErrClosedPipe).AnyTimes()
	f.send(broken, "login_attempt Alex 1")

	// When another client logs in and talks to it
	katie := newRecordingOutbox("katie")
	f.send(katie, "login_attempt Katie 2")
	f.send(katie, "chat_start Katie Alex")

	// Then processing went on
	req.Equal([]string{"login_success", "user_joins Alex 1", "user_joins Katie 2", "chat_start 1 Katie Alex"}, katie.drain())
	req.True(f.sessions.IsOnline("Alex"))
	req.Equal(event.CommandHandledType, f.lastEvent().Type)
}

func TestDispatcher_Recovers_From_Panic(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	f := newFixture()
	katie := newRecordingOutbox("katie")
	f.send(katie, "login_attempt Katie 2")
	katie.drain()

	exploding := mocks.NewMockOutbox(ctrl)
	exploding.EXPECT().ID().Return(domain.ConnectionID("exploding")).AnyTimes()
	exploding.EXPECT().Send(gomock.Any()).DoAndReturn(func(string) error {
		panic("boom")
	}).Times(1)

	// When handling a message panics halfway
	f.send(exploding, "login_attempt Alex 1")
	rejected := f.lastEvent()

	// Then it is reported and the next message is served normally
	req.Equal(event.CommandRejectedType, rejected.Type)
	req.Contains(rejected.Payload.(event.CommandRejected).Reason, "invariant violation")
	f.send(katie, "logout Alex")
	req.Equal([]string{"user_leaves Alex"}, katie.drain())
	req.Equal(event.CommandHandledType, f.lastEvent().Type)
}

func TestDispatcher_Run_Consumes_Queue_Until_Canceled(t *testing.T) {
	req := require.New(t)
	sessions := runtime.NewSessionRegistry()
	queue := runtime.NewInboundQueue()
	dispatcher := workers.NewDispatcherWorker(slog.New(slog.DiscardHandler), queue,
		sessions, runtime.NewConversationRegistry(), nil)

	alex := newRecordingOutbox("alex")
	queue.Push(contract.InboundMessage{Line: "login_attempt Alex 1", Origin: alex})
	queue.Push(contract.InboundMessage{Line: "login_attempt Katie 2", Origin: alex})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- dispatcher.Run(ctx) }()

	req.Eventually(func() bool {
		return dispatcher.Gauges().Sessions() == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(time.Second):
		req.Fail("dispatcher should stop on cancel")
	}
	req.Equal(int64(0), dispatcher.Gauges().Conversations())
}

func TestDispatcher_Disconnect_Resolves_Bound_Names(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	sessions := mocks.NewMockISessionRegistry(ctrl)
	conversations := mocks.NewMockIConversationRegistry(ctrl)
	dispatcher := workers.NewDispatcherWorker(slog.New(slog.DiscardHandler),
		runtime.NewInboundQueue(), sessions, conversations, nil)
	dropped := newRecordingOutbox("dropped")

	// Given the dropped connection carried Alex only
	gomock.InOrder(
		sessions.EXPECT().BoundTo(domain.ConnectionID("dropped")).Return([]string{"Alex"}),
		sessions.EXPECT().Logout("Alex").Return(domain.NewUser("Alex", 1), true),
		conversations.EXPECT().Containing("Alex").Return(nil),
		sessions.EXPECT().Online().Return(nil),
	)
	sessions.EXPECT().Len().Return(0)
	conversations.EXPECT().Len().Return(0)

	// When
	dispatcher.Handle(contract.InboundMessage{Origin: dropped, Disconnected: true})

	// Then the logout path ran for that name and nothing was written
	req.Empty(dropped.drain())
	req.Equal(int64(0), dispatcher.Gauges().Sessions())
}
