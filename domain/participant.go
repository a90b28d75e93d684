// Package domain contains core concepts of the chat relay.
// This file defines the User identity and its invariants.
// No runtime, network, or UI logic should be added here.
package domain

import "strings"

// User identifies a participant. Identity is the username alone:
// Avatar is informational and never takes part in comparisons.
type User struct {
	Username string
	Avatar   int
}

func NewUser(username string, avatar int) User {
	return User{Username: username, Avatar: avatar}
}

// Same reports whether both values denote the same participant.
func (u User) Same(other User) bool {
	return u.Username == other.Username
}

// Compare orders users by username, case-sensitively.
func (u User) Compare(other User) int {
	return strings.Compare(u.Username, other.Username)
}
