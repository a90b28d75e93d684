package e2e

import (
	"bufio"
	"chat-relay/runtime"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"
)

type BaseRelaySuite struct {
	suite.Suite
	Config      Config
	Addr        string
	readTimeout time.Duration
	stop        context.CancelFunc
	served      chan error
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseRelaySuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	s.readTimeout, err = time.ParseDuration(s.Config.ReadTimeout)
	s.Require().NoError(err)
}

// SetupTest gives every test a fresh in-process relay, unless RELAY_ADDR is set.
// An external relay must be idle: scenarios assume they are alone on it.
func (s *BaseRelaySuite) SetupTest() {
	if s.Config.RelayAddr != "" {
		s.Addr = s.Config.RelayAddr
		return
	}
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	s.Require().NoError(err)
	opts := runtime.DefaultOptions()
	opts.HeartbeatInterval = 0
	log := slog.New(slog.DiscardHandler)
	if s.Config.DebugLines {
		log = logs.GetLoggerFromLevel(slog.LevelDebug)
	}
	server := runtime.NewServer(log, listener, opts)

	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	s.served = make(chan error, 1)
	go func() { s.served <- server.Serve(ctx) }()
	s.Addr = server.Addr().String()
}

func (s *BaseRelaySuite) TearDownTest() {
	if s.stop == nil {
		return
	}
	s.stop()
	s.stop = nil
	select {
	case err := <-s.served:
		s.Require().NoError(err)
	case <-time.After(5 * time.Second):
		s.Fail("relay did not stop")
	}
}

// Step prints a colorized header for a scenario step
func (s *BaseRelaySuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// Client is one TCP session speaking the line protocol
type Client struct {
	suite  *BaseRelaySuite
	name   string
	conn   net.Conn
	reader *bufio.Reader
}

func (s *BaseRelaySuite) Connect(name string) *Client {
	conn, err := net.DialTimeout("tcp", s.Addr, s.readTimeout)
	s.Require().NoError(err, "Failed to connect to relay at "+s.Addr)
	c := &Client{suite: s, name: name, conn: conn, reader: bufio.NewReader(conn)}
	s.T().Cleanup(func() { _ = conn.Close() })
	return c
}

func (c *Client) Send(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	c.debug(">>", line)
	_, err := c.conn.Write([]byte(line + "\n"))
	c.suite.Require().NoError(err)
}

// Read returns the next line or fails the test on timeout
func (c *Client) Read() string {
	c.suite.Require().NoError(c.conn.SetReadDeadline(time.Now().Add(c.suite.readTimeout)))
	line, err := c.reader.ReadString('\n')
	c.suite.Require().NoError(err, "%s expected a line", c.name)
	line = strings.TrimSuffix(line, "\n")
	c.debug("<<", line)
	return line
}

// Expect reads exactly these lines, in this order
func (c *Client) Expect(lines ...string) {
	for _, want := range lines {
		c.suite.Require().Equal(want, c.Read(), "%s", c.name)
	}
}

// ExpectAnyOrder reads len(lines) lines and compares them as a set
func (c *Client) ExpectAnyOrder(lines ...string) {
	got := make([]string, 0, len(lines))
	for range lines {
		got = append(got, c.Read())
	}
	c.suite.Require().ElementsMatch(lines, got, "%s", c.name)
}

// Until reads and drops lines until one starts with prefix, and returns it
func (c *Client) Until(prefix string) string {
	for {
		if line := c.Read(); strings.HasPrefix(line, prefix) {
			return line
		}
	}
}

// Silent asserts nothing is received for a short while
func (c *Client) Silent() {
	c.suite.Require().NoError(c.conn.SetReadDeadline(time.Now().Add(150 * time.Millisecond)))
	line, err := c.reader.ReadString('\n')
	c.suite.Require().Error(err, "%s received unexpected %q", c.name, line)
}

func (c *Client) Close() {
	_ = c.conn.Close()
}

func (c *Client) debug(direction, line string) {
	if c.suite.Config.DebugLines {
		c.suite.T().Logf("%s %s %s", c.name, direction, line)
	}
}
