package gripper

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/gwillem/cobot/pkg/dobot"
)

func TestCalibration_Normalize(t *testing.T) {
	cal := Calibration{
		RangeMin: 1000,
		RangeMax: 3000,
	}

	tests := []struct {
		raw      int
		expected float64
	}{
		{1000, -100.0}, // min -> -100
		{3000, 100.0},  // max -> 100
		{2000, 0.0},    // mid -> 0
		{1500, -50.0},
		{2500, 50.0},
	}

	for _, tt := range tests {
		got := cal.Normalize(tt.raw)
		if math.Abs(got-tt.expected) > 0.001 {
			t.Errorf("Normalize(%d) = %f, want %f", tt.raw, got, tt.expected)
		}
	}

	if got := (Calibration{RangeMin: 5, RangeMax: 5}).Normalize(5); got != 0 {
		t.Errorf("Normalize() on empty range = %f, want 0", got)
	}
}

func TestCalibration_Denormalize(t *testing.T) {
	cal := Calibration{
		RangeMin: 1000,
		RangeMax: 3000,
	}

	tests := []struct {
		norm     float64
		expected int
	}{
		{-100.0, 1000},
		{100.0, 3000},
		{0.0, 2000},
		{-50.0, 1500},
		{50.0, 2500},
		{150.0, 3000},  // clamped
		{-120.0, 1000}, // clamped
	}

	for _, tt := range tests {
		got := cal.Denormalize(tt.norm)
		if got != tt.expected {
			t.Errorf("Denormalize(%f) = %d, want %d", tt.norm, got, tt.expected)
		}
	}
}

func TestCalibration_RoundTrip(t *testing.T) {
	cal := Calibration{
		RangeMin: 823,
		RangeMax: 3540,
	}

	for raw := cal.RangeMin; raw <= cal.RangeMax; raw += 100 {
		norm := cal.Normalize(raw)
		back := cal.Denormalize(norm)
		if math.Abs(float64(back-raw)) > 1 {
			t.Errorf("Round-trip failed: %d -> %f -> %d", raw, norm, back)
		}
	}
}

func TestLoadCalibration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gripper.json")
	data := `{"id": 6, "range_min": 1200, "range_max": 2800}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cal, err := LoadCalibration(path)
	if err != nil {
		t.Fatalf("LoadCalibration() error = %v", err)
	}
	if cal.ID != 6 || cal.RangeMin != 1200 || cal.RangeMax != 2800 {
		t.Errorf("LoadCalibration() = %+v", cal)
	}
	if !cal.Valid() {
		t.Error("Valid() = false, want true")
	}
	if (Calibration{ID: 6}).Valid() {
		t.Error("Valid() on empty range = true, want false")
	}
}

func TestParseAction(t *testing.T) {
	for _, s := range []string{"open", "OPEN", " close "} {
		if _, err := ParseAction(s); err != nil {
			t.Errorf("ParseAction(%q) error = %v", s, err)
		}
	}
	if _, err := ParseAction("squeeze"); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("ParseAction(squeeze) error = %v, want ErrUnknownAction", err)
	}
}

func TestDigitalOutput_Grip(t *testing.T) {
	sim := dobot.NewSimClient(zerolog.Nop())
	g := &DigitalOutput{Sender: sim, Index: DefaultOutput}
	ctx := context.Background()

	if err := g.Grip(ctx, Close); err != nil {
		t.Fatalf("Grip(close) error = %v", err)
	}
	if err := g.Grip(ctx, Open); err != nil {
		t.Fatalf("Grip(open) error = %v", err)
	}
	if err := g.Grip(ctx, "squeeze"); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("Grip(squeeze) error = %v, want ErrUnknownAction", err)
	}

	sent := sim.Sent()
	if len(sent) != 2 || sent[0].String() != "DO(1,1)" || sent[1].String() != "DO(1,0)" {
		t.Errorf("sent = %v", sent)
	}
}

func TestNewServo_RequiresCalibration(t *testing.T) {
	if _, err := NewServo(ServoConfig{Port: "/dev/null"}); err == nil {
		t.Fatal("NewServo() without calibration should fail")
	}
}

func TestServoConfig_CalibrationFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "gripper.json")
	if err := os.WriteFile(good, []byte(`{"id": 6, "range_min": 1200, "range_max": 2800}`), 0644); err != nil {
		t.Fatal(err)
	}
	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, []byte(`{"id": 6}`), 0644); err != nil {
		t.Fatal(err)
	}

	inline := Calibration{ID: 3, RangeMin: 100, RangeMax: 900}
	tests := []struct {
		name    string
		cfg     ServoConfig
		want    Calibration
		wantErr bool
	}{
		{"inline", ServoConfig{Calibration: inline}, inline, false},
		{"file replaces inline", ServoConfig{Calibration: inline, CalibrationFile: good}, Calibration{ID: 6, RangeMin: 1200, RangeMax: 2800}, false},
		{"missing file", ServoConfig{CalibrationFile: filepath.Join(dir, "nope.json")}, Calibration{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.calibration()
			if (err != nil) != tt.wantErr {
				t.Fatalf("calibration() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("calibration() = %+v, want %+v", got, tt.want)
			}
		})
	}

	// An uncalibrated file is rejected before the bus is opened.
	if _, err := NewServo(ServoConfig{Port: "/dev/null", CalibrationFile: empty}); err == nil {
		t.Fatal("NewServo() with an empty calibration file should fail")
	}
	if _, err := NewServo(ServoConfig{Port: "/dev/null", CalibrationFile: filepath.Join(dir, "nope.json")}); err == nil {
		t.Fatal("NewServo() with a missing calibration file should fail")
	}
}
