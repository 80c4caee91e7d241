package dobot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SimClient is a Robot without hardware. Every command is acknowledged, the
// robot is always Idle and nothing touches the network.
type SimClient struct {
	log zerolog.Logger

	mu     sync.Mutex
	sent   []Command
	closed bool
}

var _ Robot = (*SimClient)(nil)

func NewSimClient(log zerolog.Logger) *SimClient {
	log = log.With().Bool("sim", true).Logger()
	log.Info().Msg("simulation mode, no controller connection")
	return &SimClient{log: log}
}

// Send records cmd and returns a success acknowledgement in controller format.
func (s *SimClient) Send(ctx context.Context, cmd Command) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Response{}, fmt.Errorf("sim: %w", ErrClosed)
	}
	s.sent = append(s.sent, cmd)

	value := ""
	switch cmd.Verb {
	case "RobotMode":
		value = fmt.Sprint(int(ModeIdle))
	case "DIExecute":
		value = "0"
	}
	s.log.Debug().Str("port", cmd.Port.String()).Str("cmd", cmd.String()).Msg("exchange")
	return ParseResponse(fmt.Appendf(nil, "0,{%s},%s;", value, cmd)), nil
}

// Mode always reports Idle.
func (s *SimClient) Mode(ctx context.Context) (Mode, error) {
	return ModeIdle, nil
}

// WaitUntilIdle returns at once.
func (s *SimClient) WaitUntilIdle(ctx context.Context, timeout time.Duration) error {
	return nil
}

// Sent returns the commands received so far, oldest first.
func (s *SimClient) Sent() []Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Command(nil), s.sent...)
}

func (s *SimClient) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.log.Info().Msg("closed simulated connection")
}
