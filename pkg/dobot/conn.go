package dobot

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Default controller addressing.
const (
	DefaultHost          = "192.168.1.6"
	DefaultDashboardPort = 29999
	DefaultMotionPort    = 30003
	DefaultTimeout       = 60 * time.Second
)

// Endpoint addresses one controller.
type Endpoint struct {
	Host          string
	DashboardPort int
	MotionPort    int

	// Timeout bounds connecting and every command exchange; DefaultTimeout
	// if not positive.
	Timeout time.Duration
}

func (e Endpoint) DashboardAddr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.DashboardPort))
}

func (e Endpoint) MotionAddr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.MotionPort))
}

// Conn holds the dashboard and motion channels of one controller.
type Conn struct {
	Dashboard *Channel
	Motion    *Channel

	log zerolog.Logger
}

// Dial opens both controller sockets. If either cannot be opened the other is
// closed again and the error wraps ErrConnectFailed.
func Dial(ctx context.Context, ep Endpoint, log zerolog.Logger) (*Conn, error) {
	if ep.Timeout <= 0 {
		ep.Timeout = DefaultTimeout
	}
	d := net.Dialer{Timeout: ep.Timeout}

	dash, err := d.DialContext(ctx, "tcp", ep.DashboardAddr())
	if err != nil {
		return nil, fmt.Errorf("dashboard %s: %w: %w", ep.DashboardAddr(), ErrConnectFailed, err)
	}
	motion, err := d.DialContext(ctx, "tcp", ep.MotionAddr())
	if err != nil {
		dash.Close()
		return nil, fmt.Errorf("motion %s: %w: %w", ep.MotionAddr(), ErrConnectFailed, err)
	}

	log.Info().
		Str("host", ep.Host).
		Int("dashboard", ep.DashboardPort).
		Int("motion", ep.MotionPort).
		Msg("connected to controller")

	return &Conn{
		Dashboard: NewChannel("dashboard", dash, ep.Timeout, log),
		Motion:    NewChannel("motion", motion, ep.Timeout, log),
		log:       log,
	}, nil
}

// Channel returns the channel commands for p travel on.
func (c *Conn) Channel(p Port) *Channel {
	if p == Motion {
		return c.Motion
	}
	return c.Dashboard
}

// Close closes both channels. A failure on one does not stop the other; failures
// are logged, never returned.
func (c *Conn) Close() {
	for _, ch := range []*Channel{c.Dashboard, c.Motion} {
		if err := ch.Close(); err != nil {
			c.log.Warn().Err(err).Str("channel", ch.Name()).Msg("close failed")
		}
	}
	c.log.Info().Msg("controller connections closed")
}
