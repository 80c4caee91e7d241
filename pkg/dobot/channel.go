package dobot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// readSize is the chunk size of a single socket read.
const readSize = 1024

// drainWindow is how long a stale channel waits for leftover bytes before
// the next command is written.
const drainWindow = 20 * time.Millisecond

type deadliner interface {
	SetDeadline(t time.Time) error
}

// Channel is one command/response stream to the controller.
//
// Send is safe for concurrent use: callers take a single-slot lock and hold it
// from the first written byte until the terminator of the reply has been read,
// so a reply can never be matched to the wrong command. Waiters are served in
// the order the runtime hands out the slot, which in practice is FIFO.
//
// A timed out exchange leaves the channel stale: its reply may still arrive.
// Until a reply echoing the sent verb is read, pending bytes are drained before
// each write and replies for other verbs are discarded.
type Channel struct {
	name    string
	rw      io.ReadWriteCloser
	timeout time.Duration
	log     zerolog.Logger

	slot   chan struct{}
	closed atomic.Bool

	// guarded by slot
	stale bool
}

// NewChannel wraps rw. If rw supports deadlines (net.Conn does), timeout bounds
// each whole exchange. A non-positive timeout selects DefaultTimeout.
func NewChannel(name string, rw io.ReadWriteCloser, timeout time.Duration, log zerolog.Logger) *Channel {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Channel{
		name:    name,
		rw:      rw,
		timeout: timeout,
		log:     log.With().Str("channel", name).Logger(),
		slot:    make(chan struct{}, 1),
	}
}

// Name returns the channel name used in logs and errors.
func (c *Channel) Name() string {
	return c.name
}

// Send writes cmd and returns the reply.
//
// The reply is everything read up to and including the chunk that carried the
// terminator, or everything read before the peer closed the stream. ctx only
// bounds the wait for the channel; an exchange in progress is not interrupted.
func (c *Channel) Send(ctx context.Context, cmd string) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	select {
	case c.slot <- struct{}{}:
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
	defer func() { <-c.slot }()

	if c.closed.Load() {
		return Response{}, fmt.Errorf("%s: %w", c.name, ErrClosed)
	}
	return c.exchange(cmd)
}

func (c *Channel) exchange(cmd string) (Response, error) {
	if c.stale {
		c.drain()
	}

	start := time.Now()
	if d, ok := c.rw.(deadliner); ok {
		if err := d.SetDeadline(start.Add(c.timeout)); err != nil {
			return Response{}, fmt.Errorf("%s: set deadline: %w", c.name, err)
		}
	}

	if _, err := io.WriteString(c.rw, cmd); err != nil {
		return Response{}, c.wrap("write", cmd, err)
	}

	var buf []byte
	chunk := make([]byte, readSize)
	for {
		n, err := c.rw.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			if c.stale {
				buf = c.skipStale(buf, cmd)
			}
			if bytes.IndexByte(buf, Terminator) >= 0 {
				break
			}
		}
		if errors.Is(err, io.EOF) || (n == 0 && err == nil) {
			c.log.Warn().Str("cmd", cmd).Int("bytes", len(buf)).Msg("peer closed before terminator")
			break
		}
		if err != nil {
			return Response{}, c.wrap("read", cmd, err)
		}
	}

	resp := ParseResponse(buf)
	ev := c.log.Debug()
	if !resp.Complete() {
		ev = c.log.Warn().Err(ErrMalformedResponse)
	}
	ev.Str("cmd", cmd).
		Str("reply", resp.String()).
		Dur("took", time.Since(start)).
		Msg("exchange")
	return resp, nil
}

// drain discards whatever arrived since the last exchange timed out.
func (c *Channel) drain() {
	d, ok := c.rw.(deadliner)
	if !ok {
		return
	}
	if err := d.SetDeadline(time.Now().Add(drainWindow)); err != nil {
		return
	}
	chunk := make([]byte, readSize)
	dropped := 0
	for {
		n, err := c.rw.Read(chunk)
		dropped += n
		if err != nil || n == 0 {
			break
		}
	}
	if dropped > 0 {
		c.log.Warn().Int("bytes", dropped).Msg("dropped late reply")
	}
}

// skipStale removes complete replies from the front of buf that do not echo
// the verb of cmd. The first matching reply clears the stale mark.
func (c *Channel) skipStale(buf []byte, cmd string) []byte {
	for {
		i := bytes.IndexByte(buf, Terminator)
		if i < 0 {
			return buf
		}
		if echoes(buf[:i+1], cmd) {
			c.stale = false
			return buf
		}
		c.log.Warn().Str("cmd", cmd).Str("reply", string(buf[:i+1])).Msg("dropped late reply")
		buf = buf[i+1:]
	}
}

// echoes reports whether reply names the verb of cmd. The controller ends
// every reply with the command it answers, e.g. "0,{5},RobotMode();".
func echoes(reply []byte, cmd string) bool {
	verb, _, _ := strings.Cut(cmd, "(")
	return bytes.Contains(reply, []byte(verb+"("))
}

func (c *Channel) wrap(op, cmd string, err error) error {
	if isTimeout(err) {
		c.stale = true
		return fmt.Errorf("%s: %s %s: %w after %s", c.name, op, cmd, ErrCommandTimeout, c.timeout)
	}
	return fmt.Errorf("%s: %s %s: %w", c.name, op, cmd, err)
}

// Close closes the underlying stream. Pending and later Sends fail.
func (c *Channel) Close() error {
	c.closed.Store(true)
	return c.rw.Close()
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
