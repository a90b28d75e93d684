package domain

// Wire names of the commands. Responses reuse most of them.
const (
	LoginAttemptName   = "login_attempt"
	LoginSuccessName   = "login_success"
	LoginInvalidName   = "login_invalid"
	LogoutName         = "logout"
	UserJoinsName      = "user_joins"
	UserLeavesName     = "user_leaves"
	ChatStartName      = "chat_start"
	GroupChatStartName = "group_chat_start"
	GroupChatJoinName  = "group_chat_join"
	GroupChatLeaveName = "group_chat_leave"
	SayName            = "say"
	TypingName         = "typing"
	ClearedName        = "cleared"
)

// Command is one parsed inbound instruction.
type Command interface {
	Name() string
}

type LoginAttemptCommand struct {
	Username string `validate:"required"`
	Avatar   int
}

func (LoginAttemptCommand) Name() string { return LoginAttemptName }

type LogoutCommand struct {
	Username string `validate:"required"`
}

func (LogoutCommand) Name() string { return LogoutName }

type ChatStartCommand struct {
	First  string `validate:"required"`
	Second string `validate:"required"`
}

func (ChatStartCommand) Name() string { return ChatStartName }

type GroupChatStartCommand struct {
	Usernames []string `validate:"gt=0,dive,required"`
}

func (GroupChatStartCommand) Name() string { return GroupChatStartName }

type GroupChatLeaveCommand struct {
	Conversation ConversationID
	Username     string `validate:"required"`
}

func (GroupChatLeaveCommand) Name() string { return GroupChatLeaveName }

// SayCommand carries Text verbatim, it may be empty.
type SayCommand struct {
	Conversation ConversationID
	Username     string `validate:"required"`
	Text         string
}

func (SayCommand) Name() string { return SayName }

type TypingCommand struct {
	Conversation ConversationID
	Username     string `validate:"required"`
}

func (TypingCommand) Name() string { return TypingName }

type ClearedCommand struct {
	Conversation ConversationID
	Username     string `validate:"required"`
}

func (ClearedCommand) Name() string { return ClearedName }

// DisconnectCommand is never read from the wire. The connection reader
// synthesizes it when its stream ends so that forced logouts go through
// the same queue as every other instruction.
type DisconnectCommand struct {
	Connection ConnectionID
}

func (DisconnectCommand) Name() string { return "disconnect" }
