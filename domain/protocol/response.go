package protocol

import (
	"chat-relay/domain"
	"fmt"
)

// Response lines, without the trailing newline.

func LoginSuccess() string { return domain.LoginSuccessName }

func LoginInvalid() string { return domain.LoginInvalidName }

func UserJoins(u domain.User) string {
	return fmt.Sprintf("%s %s %d", domain.UserJoinsName, u.Username, u.Avatar)
}

func UserLeaves(username string) string {
	return fmt.Sprintf("%s %s", domain.UserLeavesName, username)
}

func ChatStart(id domain.ConversationID, first, second string) string {
	return fmt.Sprintf("%s %d %s %s", domain.ChatStartName, id, first, second)
}

func GroupChatStart(id domain.ConversationID) string {
	return fmt.Sprintf("%s %d", domain.GroupChatStartName, id)
}

func GroupChatJoin(id domain.ConversationID, username string) string {
	return fmt.Sprintf("%s %d %s", domain.GroupChatJoinName, id, username)
}

func GroupChatLeave(id domain.ConversationID, username string) string {
	return fmt.Sprintf("%s %d %s", domain.GroupChatLeaveName, id, username)
}

func Say(id domain.ConversationID, username, text string) string {
	return fmt.Sprintf("%s %d %s %s", domain.SayName, id, username, text)
}

func Typing(id domain.ConversationID, username string) string {
	return fmt.Sprintf("%s %d %s", domain.TypingName, id, username)
}

func Cleared(id domain.ConversationID, username string) string {
	return fmt.Sprintf("%s %d %s", domain.ClearedName, id, username)
}
