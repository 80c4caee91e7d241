package gripper

import (
	"context"
	"fmt"

	"github.com/hipsterbrown/feetech-servo/feetech"
)

// DefaultServoBaudRate is the Feetech STS bus rate.
const DefaultServoBaudRate = 1_000_000

// ServoConfig describes a gripper driven by a Feetech bus servo.
type ServoConfig struct {
	Port        string      `json:"port"`
	BaudRate    int         `json:"baud_rate,omitempty"`
	Calibration Calibration `json:"calibration"`

	// CalibrationFile, if set, replaces Calibration with the file's contents.
	CalibrationFile string `json:"calibration_file,omitempty"`

	// Normalized jaw positions, -100 (range_min) to 100 (range_max).
	OpenPosition   float64 `json:"open"`
	ClosedPosition float64 `json:"closed"`
}

// Servo is a gripper on a Feetech servo bus.
type Servo struct {
	bus   *feetech.Bus
	group *feetech.ServoGroup
	cfg   ServoConfig
}

var _ Gripper = (*Servo)(nil)

// NewServo opens the servo bus.
func NewServo(cfg ServoConfig) (*Servo, error) {
	cal, err := cfg.calibration()
	if err != nil {
		return nil, err
	}
	cfg.Calibration = cal
	if !cfg.Calibration.Valid() {
		return nil, fmt.Errorf("gripper servo on %s is not calibrated", cfg.Port)
	}
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = DefaultServoBaudRate
	}

	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     cfg.Port,
		BaudRate: cfg.BaudRate,
		Protocol: feetech.ProtocolSTS,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	return &Servo{
		bus:   bus,
		group: feetech.NewServoGroupByIDs(bus, cfg.Calibration.ID),
		cfg:   cfg,
	}, nil
}

// calibration returns the inline calibration or the one in CalibrationFile.
func (c ServoConfig) calibration() (Calibration, error) {
	if c.CalibrationFile == "" {
		return c.Calibration, nil
	}
	return LoadCalibration(c.CalibrationFile)
}

// Close closes the servo bus.
func (s *Servo) Close() error {
	return s.bus.Close()
}

// Enable enables torque on the gripper servo.
func (s *Servo) Enable(ctx context.Context) error {
	return s.group.EnableAll(ctx)
}

// Disable disables torque so the jaws can be moved by hand.
func (s *Servo) Disable(ctx context.Context) error {
	return s.group.DisableAll(ctx)
}

// Position reads the normalized jaw position.
func (s *Servo) Position(ctx context.Context) (float64, error) {
	raw, err := s.RawPosition(ctx)
	if err != nil {
		return 0, err
	}
	return s.cfg.Calibration.Normalize(raw), nil
}

// RawPosition reads the raw servo position.
func (s *Servo) RawPosition(ctx context.Context) (int, error) {
	positions, err := s.group.Positions(ctx)
	if err != nil {
		return 0, fmt.Errorf("read position: %w", err)
	}
	raw, ok := positions[s.cfg.Calibration.ID]
	if !ok {
		return 0, fmt.Errorf("read position: servo %d did not answer", s.cfg.Calibration.ID)
	}
	return raw, nil
}

// Grip drives the jaws to the configured open or closed position.
func (s *Servo) Grip(ctx context.Context, a Action) error {
	target, err := s.target(a)
	if err != nil {
		return err
	}
	if err := s.Enable(ctx); err != nil {
		return fmt.Errorf("grip %s: enable: %w", a, err)
	}
	cal := s.cfg.Calibration
	if err := s.group.SetPositions(ctx, feetech.PositionMap{cal.ID: cal.Denormalize(target)}); err != nil {
		return fmt.Errorf("grip %s: write position: %w", a, err)
	}
	return nil
}

func (s *Servo) target(a Action) (float64, error) {
	switch a {
	case Open:
		return s.cfg.OpenPosition, nil
	case Close:
		return s.cfg.ClosedPosition, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAction, a)
	}
}
