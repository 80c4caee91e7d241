package dobot

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.bug.st/serial"
)

// DefaultBaudRate is the controller's serial console rate.
const DefaultBaudRate = 115200

// SerialClient speaks the command protocol over a serial line. The line is a
// single stream, so dashboard and motion commands share one serialized channel.
type SerialClient struct {
	Poller

	ch *Channel
}

var _ Robot = (*SerialClient)(nil)

// OpenSerial opens port at baud. timeout bounds every read on the line;
// DefaultTimeout if not positive.
func OpenSerial(port string, baud int, timeout time.Duration, opts Options, log zerolog.Logger) (*SerialClient, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	p, err := serial.Open(port, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("serial %s: %w: %w", port, ErrConnectFailed, err)
	}
	if err := p.SetReadTimeout(timeout); err != nil {
		p.Close()
		return nil, fmt.Errorf("serial %s: set read timeout: %w: %w", port, ErrConnectFailed, err)
	}

	log.Info().Str("port", port).Int("baud", baud).Msg("connected to controller")

	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = timeout
	}
	c := &SerialClient{ch: NewChannel("serial", serialStream{p}, timeout, log)}
	c.Poller = Poller{Sender: c, Interval: opts.PollInterval, IdleTimeout: opts.IdleTimeout}
	return c, nil
}

func (c *SerialClient) Send(ctx context.Context, cmd Command) (Response, error) {
	return c.ch.Send(ctx, cmd.String())
}

func (c *SerialClient) Close() {
	if err := c.ch.Close(); err != nil {
		c.ch.log.Warn().Err(err).Msg("close failed")
	}
}

// serialStream reports a read that returned nothing as a timeout: the serial
// driver signals an expired read timeout with (0, nil), which would otherwise
// look like the peer going away.
type serialStream struct {
	serial.Port
}

func (s serialStream) Read(p []byte) (int, error) {
	n, err := s.Port.Read(p)
	if n == 0 && err == nil {
		return 0, os.ErrDeadlineExceeded
	}
	return n, err
}
