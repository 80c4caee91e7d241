package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/gwillem/cobot/pkg/config"
	"github.com/gwillem/cobot/pkg/dobot"
	"github.com/gwillem/cobot/pkg/gripper"
	"github.com/gwillem/cobot/pkg/operation"
	"github.com/gwillem/cobot/pkg/waypoint"
)

// loadConfig reads the configuration file, if any, and applies the global
// flag and environment overrides.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if config.Exists(opts.Config) {
		var err error
		if cfg, err = config.LoadFrom(opts.Config); err != nil {
			return nil, err
		}
	}

	if opts.Robot != "" {
		cfg.Robot.Host = opts.Robot
	}
	if opts.DashPort > 0 {
		cfg.Robot.DashboardPort = opts.DashPort
	}
	if opts.MotionPort > 0 {
		cfg.Robot.MotionPort = opts.MotionPort
	}
	if opts.Timeout > 0 {
		cfg.Robot.Timeout = config.Duration(opts.Timeout * float64(time.Second))
	}
	if opts.PointsFile != "" {
		cfg.Waypoints = opts.PointsFile
	}
	if opts.Sim {
		cfg.Robot.Backend = config.Sim
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	return cfg, cfg.Validate()
}

// newLogger writes human readable logs to stderr.
func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// openRobot connects the configured backend.
func openRobot(ctx context.Context, cfg *config.Config, log zerolog.Logger) (dobot.Robot, error) {
	rc := cfg.Robot
	switch rc.Backend {
	case config.Sim:
		return dobot.NewSimClient(log), nil
	case config.Serial:
		return dobot.OpenSerial(rc.SerialPort, rc.BaudRate, time.Duration(rc.Timeout), rc.Options(), log)
	default:
		return dobot.NewTCPClient(ctx, rc.Endpoint(), rc.Options(), log)
	}
}

// openGripper returns the configured gripper, by default the controller output.
func openGripper(cfg *config.Config, robot dobot.Robot) (gripper.Gripper, error) {
	gc := cfg.Gripper
	switch gc.Kind {
	case config.GripperServo:
		return gripper.NewServo(*gc.Servo)
	default:
		out := gc.Output
		if out <= 0 {
			out = gripper.DefaultOutput
		}
		return &gripper.DigitalOutput{Sender: robot, Index: out}, nil
	}
}

// openTracker wires waypoints, robot and gripper into a tracker. The caller
// owns it and must call Shutdown.
func openTracker(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*operation.Tracker, error) {
	points, err := waypoint.Load(cfg.Waypoints)
	if err != nil {
		return nil, err
	}
	log.Info().Int("count", len(points)).Str("file", cfg.Waypoints).Msg("waypoints loaded")

	robot, err := openRobot(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	g, err := openGripper(cfg, robot)
	if err != nil {
		robot.Close()
		return nil, fmt.Errorf("open gripper: %w", err)
	}

	return operation.New(operation.Config{
		Robot:       robot,
		Gripper:     g,
		Points:      points,
		IdleTimeout: time.Duration(cfg.Robot.IdleTimeout),
		Logger:      log,
	}), nil
}
