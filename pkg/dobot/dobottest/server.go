// Package dobottest provides a fake controller for tests: two loopback
// listeners standing in for the dashboard and motion ports.
package dobottest

import (
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gwillem/cobot/pkg/dobot"
)

// ReplyFunc answers cmd received on port. Returning ok == false leaves the
// command unanswered, like a wedged controller.
type ReplyFunc func(port dobot.Port, cmd string) (reply string, ok bool)

// DefaultReply acknowledges every command, reports Idle for RobotMode and 1 for
// every digital input.
func DefaultReply(port dobot.Port, cmd string) (string, bool) {
	switch {
	case strings.HasPrefix(cmd, "RobotMode"):
		return "0,{5},RobotMode();", true
	case strings.HasPrefix(cmd, "DIExecute"):
		return "0,{1}," + cmd + ";", true
	default:
		return "0,{}," + cmd + ";", true
	}
}

// Received is one command seen by the server.
type Received struct {
	Port dobot.Port
	Cmd  string
}

// Server is a fake controller listening on 127.0.0.1.
type Server struct {
	reply ReplyFunc

	dash, motion net.Listener

	mu       sync.Mutex
	conns    []net.Conn
	received []Received
	wg       sync.WaitGroup
}

// NewServer starts a fake controller that is shut down when the test ends.
// A nil reply selects DefaultReply.
func NewServer(t testing.TB, reply ReplyFunc) *Server {
	t.Helper()
	if reply == nil {
		reply = DefaultReply
	}
	s := &Server{reply: reply}

	var err error
	if s.dash, err = net.Listen("tcp", "127.0.0.1:0"); err != nil {
		t.Fatalf("listen dashboard: %v", err)
	}
	if s.motion, err = net.Listen("tcp", "127.0.0.1:0"); err != nil {
		s.dash.Close()
		t.Fatalf("listen motion: %v", err)
	}

	s.wg.Add(2)
	go s.accept(s.dash, dobot.Dashboard)
	go s.accept(s.motion, dobot.Motion)

	t.Cleanup(s.Close)
	return s
}

// Endpoint returns an endpoint pointing at the server.
func (s *Server) Endpoint(timeout time.Duration) dobot.Endpoint {
	return dobot.Endpoint{
		Host:          "127.0.0.1",
		DashboardPort: s.dash.Addr().(*net.TCPAddr).Port,
		MotionPort:    s.motion.Addr().(*net.TCPAddr).Port,
		Timeout:       timeout,
	}
}

// Received returns the commands seen so far in arrival order.
func (s *Server) Received() []Received {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Received(nil), s.received...)
}

// Commands returns the commands seen on port.
func (s *Server) Commands(port dobot.Port) []string {
	var out []string
	for _, r := range s.Received() {
		if r.Port == port {
			out = append(out, r.Cmd)
		}
	}
	return out
}

// Close stops listening and drops all client connections.
func (s *Server) Close() {
	s.dash.Close()
	s.motion.Close()
	s.mu.Lock()
	for _, c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Server) accept(l net.Listener, port dobot.Port) {
	defer s.wg.Done()
	for {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serve(conn, port)
	}
}

// serve treats every read as one command. Clients wait for a reply before
// writing again, so loopback reads do not merge commands.
func (s *Server) serve(conn net.Conn, port dobot.Port) {
	defer s.wg.Done()
	defer conn.Close()

	buf := make([]byte, 1024)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		cmd := strings.TrimSuffix(string(buf[:n]), ";")

		s.mu.Lock()
		s.received = append(s.received, Received{Port: port, Cmd: cmd})
		s.mu.Unlock()

		reply, ok := s.reply(port, cmd)
		if !ok {
			continue
		}
		if _, err := conn.Write([]byte(reply)); err != nil {
			return
		}
	}
}
