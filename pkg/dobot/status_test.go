package dobot

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// modeSender answers RobotMode with a scripted sequence, repeating the last
// entry once the script runs out.
type modeSender struct {
	mu    sync.Mutex
	modes []string
	calls int
}

func (s *modeSender) Send(ctx context.Context, cmd Command) (Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := min(s.calls, len(s.modes)-1)
	s.calls++
	return ParseResponse([]byte(s.modes[i])), nil
}

func modes(ms ...int) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = fmt.Sprintf("0,{%d},RobotMode();", m)
	}
	return out
}

func TestPoller_Mode(t *testing.T) {
	tests := []struct {
		reply string
		want  Mode
	}{
		{"0,{5},RobotMode();", ModeIdle},
		{"0,5,RobotMode();", 5},
		{"0,{7},RobotMode();", 7},
		{"0;", ModeUnknown},
		{"garbage", ModeUnknown},
		{"", ModeUnknown},
	}
	for _, tt := range tests {
		p := &Poller{Sender: &modeSender{modes: []string{tt.reply}}}
		got, err := p.Mode(context.Background())
		if err != nil {
			t.Fatalf("Mode() for %q error = %v", tt.reply, err)
		}
		if got != tt.want {
			t.Errorf("Mode() for %q = %v, want %v", tt.reply, got, tt.want)
		}
	}
}

func TestPoller_WaitUntilIdleImmediate(t *testing.T) {
	s := &modeSender{modes: modes(5)}
	p := &Poller{Sender: s, Interval: 200 * time.Millisecond}

	start := time.Now()
	if err := p.WaitUntilIdle(context.Background(), time.Second); err != nil {
		t.Fatalf("WaitUntilIdle() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed >= p.Interval {
		t.Errorf("WaitUntilIdle() slept: took %s", elapsed)
	}
	if s.calls != 1 {
		t.Errorf("polled %d times, want 1", s.calls)
	}
}

func TestPoller_WaitUntilIdleAfterMotion(t *testing.T) {
	s := &modeSender{modes: modes(7, 7, 7, 5)}
	p := &Poller{Sender: s, Interval: 5 * time.Millisecond}

	if err := p.WaitUntilIdle(context.Background(), time.Second); err != nil {
		t.Fatalf("WaitUntilIdle() error = %v", err)
	}
	if s.calls != 4 {
		t.Errorf("polled %d times, want 4", s.calls)
	}
}

func TestPoller_WaitUntilIdleTimeout(t *testing.T) {
	const (
		timeout  = 300 * time.Millisecond
		interval = 50 * time.Millisecond
	)
	p := &Poller{Sender: &modeSender{modes: modes(7)}, Interval: interval}

	start := time.Now()
	err := p.WaitUntilIdle(context.Background(), timeout)
	elapsed := time.Since(start)

	if !errors.Is(err, ErrIdleWaitTimeout) {
		t.Fatalf("WaitUntilIdle() error = %v, want ErrIdleWaitTimeout", err)
	}
	if elapsed < timeout || elapsed >= timeout+interval {
		t.Errorf("gave up after %s, want within [%s, %s)", elapsed, timeout, timeout+interval)
	}
}

func TestPoller_WaitUntilIdleDefaultTimeout(t *testing.T) {
	p := &Poller{Sender: &modeSender{modes: modes(9)}, Interval: 10 * time.Millisecond, IdleTimeout: 40 * time.Millisecond}
	if err := p.WaitUntilIdle(context.Background(), 0); !errors.Is(err, ErrIdleWaitTimeout) {
		t.Fatalf("WaitUntilIdle() error = %v, want ErrIdleWaitTimeout", err)
	}
}

func TestPoller_ZeroValuePollsOnce(t *testing.T) {
	s := &modeSender{modes: modes(5)}
	p := &Poller{Sender: s}
	if err := p.WaitUntilIdle(context.Background(), 0); err != nil {
		t.Fatalf("WaitUntilIdle() error = %v", err)
	}
	if s.calls != 1 {
		t.Errorf("polled %d times, want 1", s.calls)
	}
}

func TestPoller_PollsOnceWithElapsedTimeout(t *testing.T) {
	s := &modeSender{modes: modes(7)}
	p := &Poller{Sender: s}
	err := p.WaitUntilIdle(context.Background(), time.Nanosecond)
	if !errors.Is(err, ErrIdleWaitTimeout) {
		t.Fatalf("WaitUntilIdle() error = %v, want ErrIdleWaitTimeout", err)
	}
	if s.calls == 0 {
		t.Error("gave up without polling")
	}
}

func TestPoller_WaitUntilIdleCancel(t *testing.T) {
	p := &Poller{Sender: &modeSender{modes: modes(7)}, Interval: time.Second}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	if err := p.WaitUntilIdle(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Fatalf("WaitUntilIdle() error = %v, want context.Canceled", err)
	}
}

type failingSender struct{ err error }

func (s failingSender) Send(ctx context.Context, cmd Command) (Response, error) {
	return Response{}, s.err
}

func TestPoller_WaitUntilIdlePropagatesChannelErrors(t *testing.T) {
	p := &Poller{Sender: failingSender{err: fmt.Errorf("dashboard: %w", ErrCommandTimeout)}}
	err := p.WaitUntilIdle(context.Background(), time.Second)
	if !errors.Is(err, ErrCommandTimeout) {
		t.Fatalf("WaitUntilIdle() error = %v, want ErrCommandTimeout", err)
	}
	if errors.Is(err, ErrIdleWaitTimeout) {
		t.Errorf("command timeout reported as idle timeout: %v", err)
	}
}

func TestDigitalInput(t *testing.T) {
	s := &modeSender{modes: []string{"0,{1},DIExecute(3);"}}
	v, err := DigitalInput(context.Background(), s, 3)
	if err != nil || v != 1 {
		t.Fatalf("DigitalInput() = %d, %v; want 1, nil", v, err)
	}

	s = &modeSender{modes: []string{"-1;"}}
	v, err = DigitalInput(context.Background(), s, 3)
	if err != nil || v != -1 {
		t.Fatalf("DigitalInput() = %d, %v; want -1, nil", v, err)
	}
}

// pipeConn builds a client on in-memory pipes whose controller side answers
// every dashboard command with reply.
func pipeConn(t *testing.T, reply string) *Conn {
	t.Helper()
	dashC, dashS := net.Pipe()
	motionC, motionS := net.Pipe()
	t.Cleanup(func() {
		dashS.Close()
		motionS.Close()
	})

	go func() {
		buf := make([]byte, 1024)
		for {
			if _, err := dashS.Read(buf); err != nil {
				return
			}
			if _, err := dashS.Write([]byte(reply)); err != nil {
				return
			}
		}
	}()

	log := zerolog.Nop()
	return &Conn{
		Dashboard: NewChannel("dashboard", dashC, time.Second, log),
		Motion:    NewChannel("motion", motionC, time.Second, log),
		log:       log,
	}
}

func TestTCPClient_Mode(t *testing.T) {
	c := newTCPClient(pipeConn(t, "0,5,RobotMode();"), time.Second, Options{})
	defer c.Close()

	m, err := c.Mode(context.Background())
	if err != nil {
		t.Fatalf("Mode() error = %v", err)
	}
	if m != 5 {
		t.Errorf("Mode() = %d, want 5", m)
	}
	if c.IdleTimeout != time.Second {
		t.Errorf("IdleTimeout = %s, want channel timeout", c.IdleTimeout)
	}
}
