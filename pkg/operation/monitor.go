package operation

import (
	"context"
	"errors"
	"time"

	"github.com/gwillem/cobot/pkg/dobot"
)

// subscriberBuffer is how many updates a slow subscriber may fall behind
// before the oldest are dropped.
const subscriberBuffer = 8

// Subscribe returns a channel of status updates, starting with the current
// status. Call cancel to unsubscribe; the channel is then closed.
func (t *Tracker) Subscribe() (<-chan Status, func()) {
	ch := make(chan Status, subscriberBuffer)

	t.mu.Lock()
	t.subs[ch] = struct{}{}
	ch <- t.status
	t.mu.Unlock()

	cancel := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if _, ok := t.subs[ch]; ok {
			delete(t.subs, ch)
			close(ch)
		}
	}
	return ch, cancel
}

// publishLocked fans the current status out. Caller holds t.mu.
func (t *Tracker) publishLocked() {
	s := t.status
	for ch := range t.subs {
		select {
		case ch <- s:
		default:
			// Drop the oldest update, keep the newest
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}

// Monitor refreshes the robot mode every interval until ctx is done, so
// subscribers see mode changes made outside the tracker.
func (t *Tracker) Monitor(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log := t.log.With().Dur("interval", interval).Logger()
	log.Debug().Msg("monitor started")

	var lastErr string
	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("monitor stopped")
			return ctx.Err()
		case <-ticker.C:
			_, err := t.Status(ctx)
			switch {
			case err == nil:
				lastErr = ""
			case errors.Is(err, context.Canceled):
			case err.Error() != lastErr:
				// Log each distinct failure once
				lastErr = err.Error()
				log.Warn().Err(err).Msg("mode query failed")
			}
		}
	}
}

// Shutdown disables the motors, then closes the tracker. A failed disable is
// logged; the robot is closed regardless.
func (t *Tracker) Shutdown(ctx context.Context) {
	if _, err := t.robot.Send(ctx, dobot.DisableRobot()); err != nil {
		t.log.Warn().Err(err).Msg("disable on shutdown failed")
	} else {
		t.log.Info().Msg("motors disabled")
	}
	t.Close()
}

// Close releases the gripper and the robot connection and ends all
// subscriptions. The motors stay in whatever state they are in.
func (t *Tracker) Close() {
	if err := t.gripper.Close(); err != nil {
		t.log.Warn().Err(err).Msg("close gripper")
	}
	t.robot.Close()

	t.mu.Lock()
	for ch := range t.subs {
		delete(t.subs, ch)
		close(ch)
	}
	t.mu.Unlock()
}
