package dobot

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// Mode is the controller's numeric robot mode.
type Mode int

const (
	// ModeUnknown is reported when a mode reply carried no mode value.
	ModeUnknown Mode = -1
	// ModeIdle is the only mode with a fixed meaning: enabled and not moving.
	ModeIdle Mode = 5
)

func (m Mode) String() string {
	switch m {
	case ModeUnknown:
		return "unknown"
	case ModeIdle:
		return "idle"
	default:
		return "mode " + strconv.Itoa(int(m))
	}
}

// Positions of values in controller replies, counted from the result code.
const (
	modeIndex  = 1 // "<code>,{<mode>},RobotMode();"
	inputIndex = 1 // "<code>,{<value>},DIExecute(<i>);"
)

// DefaultPollInterval is the period of idle polling.
const DefaultPollInterval = 100 * time.Millisecond

// Sender is anything that can carry a command to the controller.
type Sender interface {
	Send(ctx context.Context, cmd Command) (Response, error)
}

// Poller derives robot status from mode queries.
type Poller struct {
	Sender Sender

	// Interval between mode queries while waiting; DefaultPollInterval if zero.
	Interval time.Duration

	// IdleTimeout is used by WaitUntilIdle when the caller passes no timeout.
	IdleTimeout time.Duration
}

// Mode queries the robot mode. A reply without a mode value yields
// ModeUnknown and no error.
func (p *Poller) Mode(ctx context.Context) (Mode, error) {
	resp, err := p.Sender.Send(ctx, RobotMode())
	if err != nil {
		return ModeUnknown, err
	}
	v, ok := resp.Int(modeIndex)
	if !ok {
		return ModeUnknown, nil
	}
	return Mode(v), nil
}

// WaitUntilIdle polls the mode until it reads Idle or timeout elapses, in
// which case it returns ErrIdleWaitTimeout. The mode is always polled at least
// once. A timeout <= 0 selects the poller's IdleTimeout, then DefaultTimeout.
// Every poll is itself bounded by the channel timeout.
func (p *Poller) WaitUntilIdle(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = p.IdleTimeout
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	deadline := time.Now().Add(timeout)
	for {
		m, err := p.Mode(ctx)
		if err != nil {
			return fmt.Errorf("wait until idle: %w", err)
		}
		if m == ModeIdle {
			return nil
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("%w after %s (last mode: %s)", ErrIdleWaitTimeout, timeout, m)
		}

		wait := min(interval, time.Until(deadline))
		if wait <= 0 {
			continue
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// DigitalInput reads input index. A reply without a value yields -1.
func DigitalInput(ctx context.Context, s Sender, index int) (int, error) {
	resp, err := s.Send(ctx, DIExecute(index))
	if err != nil {
		return -1, err
	}
	v, ok := resp.Int(inputIndex)
	if !ok {
		return -1, nil
	}
	return v, nil
}
