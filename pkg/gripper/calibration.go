package gripper

import (
	"encoding/json"
	"fmt"
	"os"
)

// Calibration holds the raw travel of a gripper servo.
type Calibration struct {
	ID           int `json:"id"`
	DriveMode    int `json:"drive_mode"`
	HomingOffset int `json:"homing_offset"`
	RangeMin     int `json:"range_min"`
	RangeMax     int `json:"range_max"`
}

// LoadCalibration loads calibration data from a JSON file.
func LoadCalibration(path string) (Calibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Calibration{}, fmt.Errorf("read calibration file: %w", err)
	}
	var cal Calibration
	if err := json.Unmarshal(data, &cal); err != nil {
		return Calibration{}, fmt.Errorf("parse calibration JSON: %w", err)
	}
	return cal, nil
}

// Valid reports whether the calibration names a servo and a non-empty range.
func (c Calibration) Valid() bool {
	return c.ID > 0 && c.RangeMax != c.RangeMin
}

// Normalize converts a raw servo position to a normalized value in the range [-100, 100].
func (c Calibration) Normalize(raw int) float64 {
	rangeSize := float64(c.RangeMax - c.RangeMin)
	if rangeSize == 0 {
		return 0
	}
	return (float64(raw-c.RangeMin)/rangeSize)*200 - 100
}

// Denormalize converts a normalized value [-100, 100] to a raw servo position.
// Values outside the range are clamped so the servo never leaves its travel.
func (c Calibration) Denormalize(norm float64) int {
	norm = max(-100, min(100, norm))
	rangeSize := float64(c.RangeMax - c.RangeMin)
	return int((norm+100)/200*rangeSize) + c.RangeMin
}
