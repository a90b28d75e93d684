package domain

import "github.com/samber/lo"

type ConversationID int

// Conversation is a set of participants relaying say/typing/cleared to each other.
// IsGroup is fixed at creation and never changes, whatever the membership becomes.
type Conversation struct {
	ID      ConversationID
	IsGroup bool
	// order keeps usernames as captured at creation, so announcements
	// name participants in that order rather than sorted.
	order   []string
	members map[string]User
}

func NewDirectConversation(id ConversationID, first, second User) *Conversation {
	return newConversation(id, false, []User{first, second})
}

func NewGroupConversation(id ConversationID, members []User) *Conversation {
	return newConversation(id, true, members)
}

func newConversation(id ConversationID, isGroup bool, users []User) *Conversation {
	c := &Conversation{
		ID:      id,
		IsGroup: isGroup,
		members: make(map[string]User, len(users)),
	}
	for _, u := range users {
		if _, ok := c.members[u.Username]; ok {
			continue
		}
		c.order = append(c.order, u.Username)
		c.members[u.Username] = u
	}
	return c
}

func (c *Conversation) Has(username string) bool {
	_, ok := c.members[username]
	return ok
}

// Remove drops a participant and reports whether it was present.
func (c *Conversation) Remove(username string) bool {
	if !c.Has(username) {
		return false
	}
	delete(c.members, username)
	c.order = lo.Without(c.order, username)
	return true
}

// Participants returns current members in creation order.
func (c *Conversation) Participants() []User {
	return lo.Map(c.order, func(name string, _ int) User {
		return c.members[name]
	})
}

func (c *Conversation) Usernames() []string {
	return append([]string(nil), c.order...)
}

func (c *Conversation) Len() int {
	return len(c.members)
}

// Other returns the partner of username in a two-party conversation.
func (c *Conversation) Other(username string) (User, bool) {
	if !c.Has(username) {
		return User{}, false
	}
	for _, name := range c.order {
		if name != username {
			return c.members[name], true
		}
	}
	return User{}, false
}
