// Package waypoint loads named robot targets from a JSON file.
package waypoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/gwillem/cobot/pkg/dobot"
)

var (
	ErrNotFound    = errors.New("waypoint not found")
	ErrInvalidFile = errors.New("invalid waypoint file")
)

// DefaultFile is where the service looks for waypoints unless configured.
const DefaultFile = "point.json"

// Waypoint is a named Cartesian target.
type Waypoint struct {
	Name string
	dobot.Pose
}

// record is one entry of the file: {"name": "home", "coordinate": [x, y, z, r, ...]}.
// Values past the fourth are ignored.
type record struct {
	Name       string    `json:"name"`
	Coordinate []float64 `json:"coordinate"`
}

// Store maps names to waypoints. It is never modified after Load, so it may be
// read from any number of goroutines.
type Store map[string]Waypoint

// Load reads the waypoint file at path. Any bad record rejects the whole file.
func Load(path string) (Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read waypoint file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a waypoint file.
func Parse(data []byte) (Store, error) {
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	s := make(Store, len(records))
	for i, r := range records {
		if r.Name == "" {
			return nil, fmt.Errorf("%w: record %d has no name", ErrInvalidFile, i)
		}
		if len(r.Coordinate) < 4 {
			return nil, fmt.Errorf("%w: %q has %d coordinates, need x, y, z, r",
				ErrInvalidFile, r.Name, len(r.Coordinate))
		}
		if _, dup := s[r.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate name %q", ErrInvalidFile, r.Name)
		}
		c := r.Coordinate
		s[r.Name] = Waypoint{Name: r.Name, Pose: dobot.Pose{X: c[0], Y: c[1], Z: c[2], R: c[3]}}
	}
	return s, nil
}

// Lookup returns the waypoint called name.
func (s Store) Lookup(name string) (Waypoint, error) {
	w, ok := s[name]
	if !ok {
		return Waypoint{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return w, nil
}

// Names returns all waypoint names in sorted order.
func (s Store) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
