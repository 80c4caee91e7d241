// Package gripper provides end effectors for pick and place.
package gripper

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gwillem/cobot/pkg/dobot"
)

// ErrUnknownAction is returned for a grip action other than open or close.
var ErrUnknownAction = errors.New("unknown grip action")

// Action is what the gripper should do.
type Action string

const (
	Open  Action = "open"
	Close Action = "close"
)

// ParseAction accepts "open" or "close" in any case.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case Open, Close:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
}

// Gripper opens and closes an end effector.
type Gripper interface {
	Grip(ctx context.Context, a Action) error
	Close() error
}

// DefaultOutput is the controller output the gripper valve is wired to.
const DefaultOutput = 1

// DigitalOutput is a gripper switched by one controller digital output:
// output on closes the gripper, off opens it.
type DigitalOutput struct {
	Sender dobot.Sender
	Index  int
}

var _ Gripper = (*DigitalOutput)(nil)

func (d *DigitalOutput) Grip(ctx context.Context, a Action) error {
	a, err := ParseAction(string(a))
	if err != nil {
		return err
	}
	if _, err := d.Sender.Send(ctx, dobot.DO(d.Index, a == Close)); err != nil {
		return fmt.Errorf("grip %s: %w", a, err)
	}
	return nil
}

// Close is a no-op; the output belongs to the controller connection.
func (d *DigitalOutput) Close() error {
	return nil
}
