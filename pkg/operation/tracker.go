// Package operation tracks what the robot is doing in terms callers care about:
// moving, holding a part, scanning, or failed.
package operation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gwillem/cobot/pkg/dobot"
	"github.com/gwillem/cobot/pkg/gripper"
	"github.com/gwillem/cobot/pkg/waypoint"
)

// State is the operation state reported to clients.
type State string

const (
	Idle     State = "IDLE"
	Moving   State = "MOVING"
	Picked   State = "PICKED"
	Scanning State = "SCANNING"
	Placed   State = "PLACED"
	Error    State = "ERROR"

	// keep leaves the current state untouched while an operation runs.
	keep State = ""
)

// Status is a snapshot of the tracker.
type Status struct {
	State     State      `json:"status"`
	Mode      dobot.Mode `json:"mode"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Operation string     `json:"operation,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// Config holds what a Tracker drives.
type Config struct {
	Robot dobot.Robot

	// Gripper defaults to the controller's digital output gripper.DefaultOutput.
	Gripper gripper.Gripper

	Points waypoint.Store

	// IdleTimeout bounds the wait after each motion; zero uses the robot's default.
	IdleTimeout time.Duration

	Logger zerolog.Logger
}

// Tracker runs robot operations one at a time and owns the resulting state.
type Tracker struct {
	robot       dobot.Robot
	gripper     gripper.Gripper
	points      waypoint.Store
	idleTimeout time.Duration
	log         zerolog.Logger

	// slot admits one operation at a time
	slot chan struct{}

	mu     sync.RWMutex
	status Status
	subs   map[chan Status]struct{}
}

// New creates a tracker in the Idle state. It performs no I/O.
func New(cfg Config) *Tracker {
	g := cfg.Gripper
	if g == nil {
		g = &gripper.DigitalOutput{Sender: cfg.Robot, Index: gripper.DefaultOutput}
	}
	return &Tracker{
		robot:       cfg.Robot,
		gripper:     g,
		points:      cfg.Points,
		idleTimeout: cfg.IdleTimeout,
		log:         cfg.Logger.With().Str("component", "operation").Logger(),
		slot:        make(chan struct{}, 1),
		status: Status{
			State:     Idle,
			Mode:      dobot.ModeUnknown,
			UpdatedAt: time.Now().UTC(),
		},
		subs: make(map[chan Status]struct{}),
	}
}

// Points returns the waypoints the tracker moves between.
func (t *Tracker) Points() waypoint.Store {
	return t.points
}

// Snapshot returns the current status without talking to the robot.
func (t *Tracker) Snapshot() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// Status queries the robot mode and returns the current status. A failed
// query is returned with the snapshot but does not change the state.
func (t *Tracker) Status(ctx context.Context) (Status, error) {
	m, err := t.robot.Mode(ctx)
	if err != nil {
		return t.Snapshot(), fmt.Errorf("status: %w", err)
	}
	t.observe(m)
	return t.Snapshot(), nil
}

// Reset sends ResetRobot.
func (t *Tracker) Reset(ctx context.Context) (Status, error) {
	return t.run(ctx, "reset", keep, Idle, func(ctx context.Context) error {
		return t.send(ctx, dobot.ResetRobot())
	})
}

// ClearError clears controller alarms and resumes a paused queue.
func (t *Tracker) ClearError(ctx context.Context) (Status, error) {
	return t.run(ctx, "clear-error", keep, Idle, func(ctx context.Context) error {
		return t.send(ctx, dobot.ClearError(), dobot.Continue())
	})
}

// Enable clears errors and enables the motors.
func (t *Tracker) Enable(ctx context.Context) (Status, error) {
	return t.run(ctx, "enable", keep, Idle, func(ctx context.Context) error {
		return t.send(ctx, dobot.ClearError(), dobot.EnableRobot())
	})
}

// Disable disables the motors.
func (t *Tracker) Disable(ctx context.Context) (Status, error) {
	return t.run(ctx, "disable", keep, Idle, func(ctx context.Context) error {
		return t.send(ctx, dobot.DisableRobot())
	})
}

// MoveTo moves to the named waypoint and waits until the robot is idle.
// An unknown name fails without touching the robot or the state.
func (t *Tracker) MoveTo(ctx context.Context, name string, opts dobot.MoveOptions) (Status, error) {
	w, err := t.points.Lookup(name)
	if err != nil {
		return t.Snapshot(), err
	}
	return t.MoveToPose(ctx, w.Pose, opts)
}

// MoveToPose moves to p and waits until the robot is idle.
func (t *Tracker) MoveToPose(ctx context.Context, p dobot.Pose, opts dobot.MoveOptions) (Status, error) {
	return t.run(ctx, "move", Moving, Idle, func(ctx context.Context) error {
		return t.move(ctx, p, opts)
	})
}

// Pick opens the gripper, moves to the named waypoint and closes the gripper.
// The tracker reports Picked from the start of the sequence.
func (t *Tracker) Pick(ctx context.Context, name string, opts dobot.MoveOptions) (Status, error) {
	w, err := t.points.Lookup(name)
	if err != nil {
		return t.Snapshot(), err
	}
	return t.run(ctx, "pick", Picked, Picked, func(ctx context.Context) error {
		if err := t.gripper.Grip(ctx, gripper.Open); err != nil {
			return err
		}
		if err := t.move(ctx, w.Pose, opts); err != nil {
			return err
		}
		return t.gripper.Grip(ctx, gripper.Close)
	})
}

// Place moves to the named waypoint and opens the gripper. The tracker
// reports Placed from the start of the sequence.
func (t *Tracker) Place(ctx context.Context, name string, opts dobot.MoveOptions) (Status, error) {
	w, err := t.points.Lookup(name)
	if err != nil {
		return t.Snapshot(), err
	}
	return t.run(ctx, "place", Placed, Placed, func(ctx context.Context) error {
		if err := t.move(ctx, w.Pose, opts); err != nil {
			return err
		}
		return t.gripper.Grip(ctx, gripper.Open)
	})
}

// Scan moves to the named scan waypoint and waits there. With no name the
// robot is only required to settle where it is.
func (t *Tracker) Scan(ctx context.Context, name string, opts dobot.MoveOptions) (Status, error) {
	var target *dobot.Pose
	if name != "" {
		w, err := t.points.Lookup(name)
		if err != nil {
			return t.Snapshot(), err
		}
		target = &w.Pose
	}
	return t.run(ctx, "scan", Scanning, Idle, func(ctx context.Context) error {
		if target == nil {
			return t.waitIdle(ctx)
		}
		return t.move(ctx, *target, opts)
	})
}

// Grip opens or closes the gripper. Closing leaves the tracker Picked.
func (t *Tracker) Grip(ctx context.Context, a gripper.Action) (Status, error) {
	a, err := gripper.ParseAction(string(a))
	if err != nil {
		return t.Snapshot(), err
	}
	done := Idle
	if a == gripper.Close {
		done = Picked
	}
	return t.run(ctx, "grip "+string(a), keep, done, func(ctx context.Context) error {
		return t.gripper.Grip(ctx, a)
	})
}

// ReadDigitalInput reads a controller input; -1 if the reply carried no value.
// It does not change the state.
func (t *Tracker) ReadDigitalInput(ctx context.Context, index int) (int, error) {
	v, err := dobot.DigitalInput(ctx, t.robot, index)
	if err != nil {
		return -1, fmt.Errorf("read input %d: %w", index, err)
	}
	return v, nil
}

// run is the envelope of every operation: mark it busy, do the work, then
// record success or Error. The timestamp moves on every path.
func (t *Tracker) run(ctx context.Context, op string, busy, done State, fn func(context.Context) error) (Status, error) {
	if err := ctx.Err(); err != nil {
		return t.Snapshot(), err
	}
	select {
	case t.slot <- struct{}{}:
	case <-ctx.Done():
		return t.Snapshot(), ctx.Err()
	}
	defer func() { <-t.slot }()

	log := t.log.With().Str("op", op).Logger()
	start := time.Now()
	log.Debug().Msg("operation started")
	t.set(busy, op, nil)

	if err := fn(ctx); err != nil {
		err = fmt.Errorf("%s: %w", op, err)
		t.set(Error, op, err)
		log.Error().Err(err).Dur("took", time.Since(start)).Msg("operation failed")
		return t.Snapshot(), err
	}

	t.set(done, op, nil)
	log.Info().Dur("took", time.Since(start)).Msg("operation done")
	return t.Snapshot(), nil
}

func (t *Tracker) send(ctx context.Context, cmds ...dobot.Command) error {
	for _, cmd := range cmds {
		if _, err := t.robot.Send(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tracker) move(ctx context.Context, p dobot.Pose, opts dobot.MoveOptions) error {
	if err := t.send(ctx, dobot.MovJ(p, opts)); err != nil {
		return err
	}
	return t.waitIdle(ctx)
}

func (t *Tracker) waitIdle(ctx context.Context) error {
	if err := t.robot.WaitUntilIdle(ctx, t.idleTimeout); err != nil {
		return err
	}
	t.observe(dobot.ModeIdle)
	return nil
}

func (t *Tracker) set(s State, op string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s != keep {
		t.status.State = s
	}
	t.status.Operation = op
	t.status.UpdatedAt = time.Now().UTC()
	switch {
	case err != nil:
		t.status.Error = err.Error()
	case t.status.State != Error:
		t.status.Error = ""
	}
	t.publishLocked()
}

func (t *Tracker) observe(m dobot.Mode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.Mode == m {
		return
	}
	t.status.Mode = m
	t.publishLocked()
}
