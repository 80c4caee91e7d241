// Package config loads and saves the cobot.json configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gwillem/cobot/pkg/dobot"
	"github.com/gwillem/cobot/pkg/gripper"
	"github.com/gwillem/cobot/pkg/waypoint"
)

const DefaultFile = "cobot.json"

// DefaultAddr is where the service listens unless told otherwise.
const DefaultAddr = "0.0.0.0:3102"

// Backend selects how the controller is reached.
type Backend string

const (
	TCP    Backend = "tcp"
	Serial Backend = "serial"
	Sim    Backend = "sim"
)

// GripperKind selects the end effector.
type GripperKind string

const (
	GripperOutput GripperKind = "do"
	GripperServo  GripperKind = "servo"
)

// Config holds the service configuration
type Config struct {
	Robot     RobotConfig   `json:"robot"`
	Waypoints string        `json:"waypoints"`
	Gripper   GripperConfig `json:"gripper"`
	Addr      string        `json:"addr"`
	LogLevel  string        `json:"log_level"`

	// Monitor is how often the service refreshes the robot mode; zero disables it.
	Monitor Duration `json:"monitor_interval"`
}

// RobotConfig holds the controller connection settings
type RobotConfig struct {
	Backend       Backend  `json:"backend"`
	Host          string   `json:"host"`
	DashboardPort int      `json:"dashboard_port"`
	MotionPort    int      `json:"motion_port"`
	Timeout       Duration `json:"timeout"`
	IdleTimeout   Duration `json:"idle_timeout,omitempty"`
	PollInterval  Duration `json:"poll_interval,omitempty"`

	SerialPort string `json:"serial_port,omitempty"`
	BaudRate   int    `json:"baud_rate,omitempty"`
}

// GripperConfig holds the end effector settings
type GripperConfig struct {
	Kind   GripperKind          `json:"kind"`
	Output int                  `json:"output,omitempty"`
	Servo  *gripper.ServoConfig `json:"servo,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Robot: RobotConfig{
			Backend:       TCP,
			Host:          dobot.DefaultHost,
			DashboardPort: dobot.DefaultDashboardPort,
			MotionPort:    dobot.DefaultMotionPort,
			Timeout:       Duration(dobot.DefaultTimeout),
			PollInterval:  Duration(dobot.DefaultPollInterval),
			BaudRate:      dobot.DefaultBaudRate,
		},
		Waypoints: waypoint.DefaultFile,
		Gripper: GripperConfig{
			Kind:   GripperOutput,
			Output: gripper.DefaultOutput,
		},
		Addr:     DefaultAddr,
		LogLevel: "info",
		Monitor:  Duration(time.Second),
	}
}

// Endpoint returns the TCP endpoint of the controller.
func (r RobotConfig) Endpoint() dobot.Endpoint {
	return dobot.Endpoint{
		Host:          r.Host,
		DashboardPort: r.DashboardPort,
		MotionPort:    r.MotionPort,
		Timeout:       time.Duration(r.Timeout),
	}
}

// Options returns the polling options of the controller backend.
func (r RobotConfig) Options() dobot.Options {
	return dobot.Options{
		PollInterval: time.Duration(r.PollInterval),
		IdleTimeout:  time.Duration(r.IdleTimeout),
	}
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	switch c.Robot.Backend {
	case TCP:
		if c.Robot.Host == "" {
			return fmt.Errorf("robot host is empty")
		}
	case Serial:
		if c.Robot.SerialPort == "" {
			return fmt.Errorf("serial backend needs a serial_port")
		}
	case Sim:
	default:
		return fmt.Errorf("unknown robot backend %q", c.Robot.Backend)
	}
	if c.Robot.Timeout <= 0 {
		return fmt.Errorf("robot timeout must be positive")
	}

	switch c.Gripper.Kind {
	case GripperOutput, "":
	case GripperServo:
		if c.Gripper.Servo == nil || c.Gripper.Servo.Port == "" {
			return fmt.Errorf("servo gripper needs a port")
		}
	default:
		return fmt.Errorf("unknown gripper kind %q", c.Gripper.Kind)
	}
	return nil
}

// LoadFrom loads configuration from path. Settings missing from the file keep
// their defaults.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// SaveTo saves configuration to path
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// Exists returns true if path exists
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Duration is a time.Duration written as a string such as "60s".
type Duration time.Duration

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts "1m30s" style strings and plain numbers of seconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch v := v.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
	case float64:
		*d = Duration(v * float64(time.Second))
	default:
		return fmt.Errorf("invalid duration %s", b)
	}
	return nil
}
