package dobot

import "errors"

var (
	// ErrConnectFailed is returned when a controller socket cannot be opened.
	// It is fatal at startup; the client never retries on its own.
	ErrConnectFailed = errors.New("connect failed")

	// ErrCommandTimeout is returned when a single exchange exceeds the channel's
	// I/O timeout. The channel stays open and may be used again.
	ErrCommandTimeout = errors.New("command timeout")

	// ErrIdleWaitTimeout is returned when the robot did not report Idle before
	// the wait deadline.
	ErrIdleWaitTimeout = errors.New("timeout waiting for robot to become idle")

	// ErrMalformedResponse marks a reply without a terminator. It is only logged;
	// Send still returns whatever was read.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrClosed is returned by Send after the backend was closed.
	ErrClosed = errors.New("connection closed")
)
