package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"slices"

	"github.com/samber/lo"
)

var _ contract.IConversationRegistry = (*ConversationRegistry)(nil)

// ConversationRegistry owns every conversation created while the process runs.
// Conversations are never removed, even once empty, so ids are never reused.
// Like SessionRegistry it is mutated by the dispatcher goroutine only.
type ConversationRegistry struct {
	conversations map[domain.ConversationID]*domain.Conversation
}

func NewConversationRegistry() *ConversationRegistry {
	return &ConversationRegistry{conversations: make(map[domain.ConversationID]*domain.Conversation)}
}

func (r *ConversationRegistry) CreateDirect(first, second domain.User) *domain.Conversation {
	c := domain.NewDirectConversation(r.nextID(), first, second)
	r.conversations[c.ID] = c
	return c
}

func (r *ConversationRegistry) CreateGroup(members []domain.User) *domain.Conversation {
	c := domain.NewGroupConversation(r.nextID(), members)
	r.conversations[c.ID] = c
	return c
}

func (r *ConversationRegistry) Get(id domain.ConversationID) (*domain.Conversation, bool) {
	c, ok := r.conversations[id]
	return c, ok
}

// Containing returns the conversations username belongs to, by ascending id.
func (r *ConversationRegistry) Containing(username string) []*domain.Conversation {
	res := lo.Filter(lo.Values(r.conversations), func(c *domain.Conversation, _ int) bool {
		return c.Has(username)
	})
	slices.SortFunc(res, func(a, b *domain.Conversation) int {
		return int(a.ID - b.ID)
	})
	return res
}

func (r *ConversationRegistry) Len() int {
	return len(r.conversations)
}

// nextID scans upward from 1 for the first id not in use.
// Linear in the number of conversations, which is fine at chat scale.
func (r *ConversationRegistry) nextID() domain.ConversationID {
	id := domain.ConversationID(1)
	for {
		if _, ok := r.conversations[id]; !ok {
			return id
		}
		id++
	}
}
