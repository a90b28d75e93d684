package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"slices"

	"github.com/samber/lo"
)

var _ contract.ISessionRegistry = (*SessionRegistry)(nil)

type session struct {
	user   domain.User
	outbox contract.Outbox
}

// SessionRegistry maps online usernames to their outbound channel.
// It holds no lock: the dispatcher goroutine is its only reader and writer.
type SessionRegistry struct {
	sessions map[string]session
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]session)}
}

// Login binds the user to outbox. It refuses a username that is already online.
func (r *SessionRegistry) Login(user domain.User, outbox contract.Outbox) bool {
	if _, ok := r.sessions[user.Username]; ok {
		return false
	}
	r.sessions[user.Username] = session{user: user, outbox: outbox}
	return true
}

// Logout destroys the session and returns the identity it carried.
func (r *SessionRegistry) Logout(username string) (domain.User, bool) {
	s, ok := r.sessions[username]
	if !ok {
		return domain.User{}, false
	}
	delete(r.sessions, username)
	return s.user, true
}

func (r *SessionRegistry) Lookup(username string) (contract.Outbox, bool) {
	s, ok := r.sessions[username]
	return s.outbox, ok
}

func (r *SessionRegistry) User(username string) (domain.User, bool) {
	s, ok := r.sessions[username]
	return s.user, ok
}

func (r *SessionRegistry) IsOnline(username string) bool {
	_, ok := r.sessions[username]
	return ok
}

// Online lists online users sorted by username.
func (r *SessionRegistry) Online() []domain.User {
	users := lo.MapToSlice(r.sessions, func(_ string, s session) domain.User {
		return s.user
	})
	slices.SortFunc(users, domain.User.Compare)
	return users
}

// BoundTo returns, sorted, the usernames whose session writes to the given connection.
func (r *SessionRegistry) BoundTo(connection domain.ConnectionID) []string {
	names := lo.Keys(lo.PickBy(r.sessions, func(_ string, s session) bool {
		return s.outbox.ID() == connection
	}))
	slices.Sort(names)
	return names
}

func (r *SessionRegistry) Len() int {
	return len(r.sessions)
}
