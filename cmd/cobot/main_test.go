package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gwillem/cobot/pkg/config"
	"github.com/gwillem/cobot/pkg/dobot"
	"github.com/gwillem/cobot/pkg/waypoint"
)

func withOptions(t *testing.T, o Options) {
	t.Helper()
	saved := opts
	opts = o
	t.Cleanup(func() { opts = saved })
}

func TestLoadConfig_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cobot.json")
	if err := config.Default().SaveTo(path); err != nil {
		t.Fatal(err)
	}
	withOptions(t, Options{
		Config:     path,
		Robot:      "10.1.1.2",
		DashPort:   1234,
		Timeout:    2.5,
		PointsFile: "other.json",
		Sim:        true,
		LogLevel:   "debug",
	})

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Robot.Host != "10.1.1.2" || cfg.Robot.DashboardPort != 1234 || cfg.Robot.MotionPort != 30003 {
		t.Errorf("robot = %+v", cfg.Robot)
	}
	if time.Duration(cfg.Robot.Timeout) != 2500*time.Millisecond {
		t.Errorf("timeout = %s", cfg.Robot.Timeout)
	}
	if cfg.Robot.Backend != config.Sim || cfg.Waypoints != "other.json" || cfg.LogLevel != "debug" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadConfig_NoFile(t *testing.T) {
	withOptions(t, Options{Config: filepath.Join(t.TempDir(), "missing.json")})

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Robot.Host != "192.168.1.6" {
		t.Errorf("host = %q, want default", cfg.Robot.Host)
	}
}

func TestServeCommand_ListenAddr(t *testing.T) {
	tests := []struct {
		cmd  ServeCommand
		want string
	}{
		{ServeCommand{}, "0.0.0.0:3102"},
		{ServeCommand{Port: 8080}, "0.0.0.0:8080"},
		{ServeCommand{Host: "127.0.0.1"}, "127.0.0.1:3102"},
	}
	for _, tt := range tests {
		got, err := tt.cmd.listenAddr(config.DefaultAddr)
		if err != nil || got != tt.want {
			t.Errorf("listenAddr() = %q, %v; want %q", got, err, tt.want)
		}
	}
}

func TestOpenTracker_Sim(t *testing.T) {
	dir := t.TempDir()
	points := filepath.Join(dir, "point.json")
	if err := os.WriteFile(points, []byte(`[{"name": "home", "coordinate": [1, 2, 3, 4]}]`), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.Robot.Backend = config.Sim
	cfg.Waypoints = points

	tr, err := openTracker(t.Context(), cfg, newLogger("error"))
	if err != nil {
		t.Fatalf("openTracker() error = %v", err)
	}
	defer tr.Close()

	if _, err := tr.Pick(t.Context(), "home", dobot.MoveOptions{}); err != nil {
		t.Errorf("Pick() error = %v", err)
	}
}

func TestRenderPoints(t *testing.T) {
	points, err := waypoint.Parse([]byte(`[{"name": "home", "coordinate": [100, 200.5, 50, 0]}]`))
	if err != nil {
		t.Fatal(err)
	}
	out := renderPoints(points)
	for _, want := range []string{"home", "200.5", "Name"} {
		if !strings.Contains(out, want) {
			t.Errorf("renderPoints() missing %q:\n%s", want, out)
		}
	}
}
