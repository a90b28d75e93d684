// Package protocol translates between wire lines and domain commands.
// A line is space-separated tokens; the first token names the command.
package protocol

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Parse turns one inbound line into a validated command.
// It never consults server state: unknown users are caught by the dispatcher.
func Parse(line string) (domain.Command, error) {
	if line == "" {
		return nil, errors.ErrEmptyLine
	}
	head, _, _ := strings.Cut(line, " ")
	if head == domain.SayName {
		return parseSay(line)
	}

	tokens := splitTokens(line)
	args := tokens[1:]
	var (
		cmd domain.Command
		err error
	)
	switch head {
	case domain.LoginAttemptName:
		cmd, err = parseLoginAttempt(args)
	case domain.LogoutName:
		cmd, err = parseLogout(args)
	case domain.ChatStartName:
		cmd, err = parseChatStart(args)
	case domain.GroupChatStartName:
		cmd, err = parseGroupChatStart(args)
	case domain.GroupChatLeaveName:
		cmd, err = parseConversationUser(head, args, func(id domain.ConversationID, name string) domain.Command {
			return domain.GroupChatLeaveCommand{Conversation: id, Username: name}
		})
	case domain.TypingName:
		cmd, err = parseConversationUser(head, args, func(id domain.ConversationID, name string) domain.Command {
			return domain.TypingCommand{Conversation: id, Username: name}
		})
	case domain.ClearedName:
		cmd, err = parseConversationUser(head, args, func(id domain.ConversationID, name string) domain.Command {
			return domain.ClearedCommand{Conversation: id, Username: name}
		})
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownCommand, head)
	}
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(cmd); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errors.ErrInvalidArgument, head, err)
	}
	return cmd, nil
}

// splitTokens splits on single spaces and drops trailing empty tokens,
// so "logout Alex " is read the same as "logout Alex".
func splitTokens(line string) []string {
	tokens := strings.Split(line, " ")
	for len(tokens) > 1 && tokens[len(tokens)-1] == "" {
		tokens = tokens[:len(tokens)-1]
	}
	return tokens
}

func arity(name string, args []string, want int) error {
	if len(args) != want {
		return fmt.Errorf("%w: %s expects %d, got %d", errors.ErrWrongArity, name, want, len(args))
	}
	return nil
}

func parseLoginAttempt(args []string) (domain.Command, error) {
	if err := arity(domain.LoginAttemptName, args, 2); err != nil {
		return nil, err
	}
	avatar, err := strconv.Atoi(args[1])
	if err != nil {
		return nil, fmt.Errorf("%w: avatar %q", errors.ErrInvalidArgument, args[1])
	}
	return domain.LoginAttemptCommand{Username: args[0], Avatar: avatar}, nil
}

func parseLogout(args []string) (domain.Command, error) {
	if err := arity(domain.LogoutName, args, 1); err != nil {
		return nil, err
	}
	return domain.LogoutCommand{Username: args[0]}, nil
}

func parseChatStart(args []string) (domain.Command, error) {
	if err := arity(domain.ChatStartName, args, 2); err != nil {
		return nil, err
	}
	return domain.ChatStartCommand{First: args[0], Second: args[1]}, nil
}

func parseGroupChatStart(args []string) (domain.Command, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: %s expects at least 1", errors.ErrWrongArity, domain.GroupChatStartName)
	}
	return domain.GroupChatStartCommand{Usernames: args}, nil
}

func parseConversationUser(name string, args []string,
	build func(domain.ConversationID, string) domain.Command) (domain.Command, error) {
	if err := arity(name, args, 2); err != nil {
		return nil, err
	}
	id, err := parseConversationID(args[0])
	if err != nil {
		return nil, err
	}
	return build(id, args[1]), nil
}

// parseSay keeps everything after the third space verbatim.
func parseSay(line string) (domain.Command, error) {
	parts := strings.SplitN(line, " ", 4)
	if len(parts) < 3 {
		return nil, fmt.Errorf("%w: %s expects at least 2, got %d", errors.ErrWrongArity, domain.SayName, len(parts)-1)
	}
	id, err := parseConversationID(parts[1])
	if err != nil {
		return nil, err
	}
	cmd := domain.SayCommand{Conversation: id, Username: parts[2]}
	if len(parts) == 4 {
		cmd.Text = parts[3]
	}
	if err := validate.Struct(cmd); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errors.ErrInvalidArgument, domain.SayName, err)
	}
	return cmd, nil
}

func parseConversationID(token string) (domain.ConversationID, error) {
	id, err := strconv.Atoi(token)
	if err != nil {
		return 0, fmt.Errorf("%w: conversation id %q", errors.ErrInvalidArgument, token)
	}
	return domain.ConversationID(id), nil
}
