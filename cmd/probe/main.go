// Command probe logs into a running relay, prints who is online and leaves.
package main

import (
	goerrors "errors"
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/gookit/color"
)

const exitLoginInvalid = 2

func main() {
	addr := flag.String("addr", "localhost:4444", "relay address")
	name := flag.String("name", "probe", "username to log in with")
	avatar := flag.Int("avatar", 0, "avatar id announced with the login")
	wait := flag.Duration("wait", 500*time.Millisecond, "how long to collect roster lines")
	flag.Parse()

	conn, err := net.DialTimeout("tcp", *addr, 5*time.Second)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	users, err := probe(conn, *name, *avatar, *wait)
	if goerrors.Is(err, errLoginInvalid) {
		fmt.Fprintln(os.Stderr, color.Red.Render(fmt.Sprintf("%s is already online", *name)))
		conn.Close()
		os.Exit(exitLoginInvalid)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		conn.Close()
		os.Exit(1)
	}
	fmt.Println(color.New(color.BgBlack, color.FgGreen).Render(fmt.Sprintf(" %d online on %s ", len(users), *addr)))
	printRoster(os.Stdout, users)
}
