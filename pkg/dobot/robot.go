// Package dobot drives a Dobot MG400 controller over its ASCII command protocol.
//
// A controller exposes two sockets: the dashboard port for lifecycle, status
// and I/O commands, and the motion port for movement. Each command is written
// as "Verb(args)" and answered with a reply ending in ';'. All backends in this
// package implement Robot, so code above them does not know whether it talks to
// TCP sockets, a serial line or the simulator.
package dobot

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Robot is a connected controller backend.
type Robot interface {
	Sender

	// Mode returns the current robot mode, ModeUnknown if the reply had none.
	Mode(ctx context.Context) (Mode, error)

	// WaitUntilIdle blocks until the robot reports Idle or timeout elapses.
	WaitUntilIdle(ctx context.Context, timeout time.Duration) error

	// Close releases the connection. It never fails; problems are logged.
	Close()
}

// Options tune status polling of a backend.
type Options struct {
	PollInterval time.Duration
	IdleTimeout  time.Duration
}

// TCPClient talks to a controller over its dashboard and motion sockets.
type TCPClient struct {
	Poller

	conn *Conn
}

var _ Robot = (*TCPClient)(nil)

// NewTCPClient connects to ep. An unset IdleTimeout defaults to ep.Timeout.
func NewTCPClient(ctx context.Context, ep Endpoint, opts Options, log zerolog.Logger) (*TCPClient, error) {
	if ep.Timeout <= 0 {
		ep.Timeout = DefaultTimeout
	}
	conn, err := Dial(ctx, ep, log)
	if err != nil {
		return nil, err
	}
	return newTCPClient(conn, ep.Timeout, opts), nil
}

func newTCPClient(conn *Conn, timeout time.Duration, opts Options) *TCPClient {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = timeout
	}
	c := &TCPClient{conn: conn}
	c.Poller = Poller{Sender: c, Interval: opts.PollInterval, IdleTimeout: opts.IdleTimeout}
	return c
}

// Send routes cmd to its channel.
func (c *TCPClient) Send(ctx context.Context, cmd Command) (Response, error) {
	return c.conn.Channel(cmd.Port).Send(ctx, cmd.String())
}

func (c *TCPClient) Close() {
	c.conn.Close()
}
