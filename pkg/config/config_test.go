package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gwillem/cobot/pkg/gripper"
)

func TestDefault_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	if Exists(path) {
		t.Fatal("Exists() = true before save")
	}

	cfg := Default()
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}
	if !Exists(path) {
		t.Fatal("Exists() = false after save")
	}

	got, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if got.Robot != cfg.Robot || got.Addr != cfg.Addr || got.Monitor != cfg.Monitor {
		t.Errorf("LoadFrom() = %+v, want %+v", got, cfg)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("Validate() on defaults error = %v", err)
	}
}

func TestLoadFrom_KeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.json")
	data := `{"robot": {"host": "10.0.0.7", "timeout": 5}, "gripper": {"kind": "servo", "servo": {"port": "/dev/ttyUSB0", "open": -80, "closed": 60}}}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Robot.Host != "10.0.0.7" {
		t.Errorf("host = %q", cfg.Robot.Host)
	}
	if cfg.Robot.DashboardPort != 29999 || cfg.Robot.MotionPort != 30003 {
		t.Errorf("ports = %d/%d, want defaults", cfg.Robot.DashboardPort, cfg.Robot.MotionPort)
	}
	if time.Duration(cfg.Robot.Timeout) != 5*time.Second {
		t.Errorf("timeout = %s, want 5s", cfg.Robot.Timeout)
	}
	if cfg.Gripper.Kind != GripperServo || cfg.Gripper.Servo.ClosedPosition != 60 {
		t.Errorf("gripper = %+v", cfg.Gripper)
	}

	ep := cfg.Robot.Endpoint()
	if ep.DashboardAddr() != "10.0.0.7:29999" || ep.Timeout != 5*time.Second {
		t.Errorf("Endpoint() = %+v", ep)
	}
}

func TestLoadFrom_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadFrom(filepath.Join(dir, "missing.json")); !os.IsNotExist(err) {
		t.Errorf("LoadFrom(missing) error = %v, want not-exist", err)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"robot": {"timeout": "soon"}}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(bad); err == nil {
		t.Error("LoadFrom() with bad duration should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"sim", func(c *Config) { c.Robot.Backend = Sim; c.Robot.Host = "" }, false},
		{"serial without port", func(c *Config) { c.Robot.Backend = Serial }, true},
		{"serial", func(c *Config) { c.Robot.Backend = Serial; c.Robot.SerialPort = "/dev/ttyACM0" }, false},
		{"unknown backend", func(c *Config) { c.Robot.Backend = "carrier-pigeon" }, true},
		{"empty host", func(c *Config) { c.Robot.Host = "" }, true},
		{"zero timeout", func(c *Config) { c.Robot.Timeout = 0 }, true},
		{"servo without config", func(c *Config) { c.Gripper.Kind = GripperServo }, true},
		{"servo", func(c *Config) {
			c.Gripper.Kind = GripperServo
			c.Gripper.Servo = &gripper.ServoConfig{Port: "/dev/ttyUSB0"}
		}, false},
		{"unknown gripper", func(c *Config) { c.Gripper.Kind = "magnet" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
