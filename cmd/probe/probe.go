package main

import (
	"bufio"
	"chat-relay/domain"
	goerrors "errors"
	"fmt"
	"io"
	"net"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

var errLoginInvalid = fmt.Errorf("login invalid")

// probe logs in, gathers user_joins and user_leaves lines for wait, then logs out.
// The returned roster is sorted by username.
func probe(conn net.Conn, name string, avatar int, wait time.Duration) ([]domain.User, error) {
	if _, err := fmt.Fprintf(conn, "%s %s %d\n", domain.LoginAttemptName, name, avatar); err != nil {
		return nil, err
	}
	reader := bufio.NewReader(conn)
	if err := conn.SetReadDeadline(time.Now().Add(wait + 5*time.Second)); err != nil {
		return nil, err
	}
	first, err := readLine(reader)
	if err != nil {
		return nil, fmt.Errorf("no answer to login: %w", err)
	}
	switch first {
	case domain.LoginSuccessName:
	case domain.LoginInvalidName:
		return nil, errLoginInvalid
	default:
		return nil, fmt.Errorf("unexpected answer to login: %q", first)
	}

	roster := map[string]domain.User{}
	if err := conn.SetReadDeadline(time.Now().Add(wait)); err != nil {
		return nil, err
	}
	for {
		line, err := readLine(reader)
		if err != nil {
			if goerrors.Is(err, os.ErrDeadlineExceeded) {
				break
			}
			return nil, err
		}
		apply(roster, line)
	}

	if _, err := fmt.Fprintf(conn, "%s %s\n", domain.LogoutName, name); err != nil {
		return nil, err
	}
	users := lo.Values(roster)
	slices.SortFunc(users, domain.User.Compare)
	return users, nil
}

// apply folds one relay line into the roster, ignoring lines that are not about presence.
func apply(roster map[string]domain.User, line string) {
	tokens := strings.Split(line, " ")
	switch {
	case len(tokens) == 3 && tokens[0] == domain.UserJoinsName:
		avatar, err := strconv.Atoi(tokens[2])
		if err != nil {
			return
		}
		roster[tokens[1]] = domain.NewUser(tokens[1], avatar)
	case len(tokens) == 2 && tokens[0] == domain.UserLeavesName:
		delete(roster, tokens[1])
	}
}

func readLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r"), nil
}

func printRoster(w io.Writer, users []domain.User) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Username", "Avatar"})
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for _, u := range users {
		table.Append([]string{u.Username, strconv.Itoa(u.Avatar)})
	}
	table.Render()
}
