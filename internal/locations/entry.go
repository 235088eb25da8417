// Package locations holds the searchable catalog of named rooms and offices.
package locations

import (
	"errors"
	"fmt"
	"strings"

	"github.com/woozymasta/floorguide/internal/geo"
)

// ErrInvalidEntry marks a catalog entry rejected at load time.
var ErrInvalidEntry = errors.New("invalid location entry")

// Type selects the icon a location is shown with.
type Type string

const (
	// TypeRoom is a meeting room or any other shared place.
	TypeRoom Type = "room"
	// TypeOffice is a person's office.
	TypeOffice Type = "office"
)

// Entry is a named location on a floor. X and Y are percentages from the
// left and top of the floor image.
type Entry struct {
	Label      string  `yaml:"label" json:"label"`
	RoomNumber string  `yaml:"room_number" json:"room_number"`
	Type       Type    `yaml:"type,omitempty" json:"type"`
	Floor      string  `yaml:"floor" json:"floor"`
	X          float64 `yaml:"x" json:"x"`
	Y          float64 `yaml:"y" json:"y"`
}

// Validate checks the fields search and pin placement depend on.
func (e Entry) Validate() error {
	switch {
	case strings.TrimSpace(e.Label) == "":
		return fmt.Errorf("%w: label is required", ErrInvalidEntry)
	case strings.TrimSpace(e.RoomNumber) == "":
		return fmt.Errorf("%w: room number is required (label %q)", ErrInvalidEntry, e.Label)
	case e.Floor == "":
		return fmt.Errorf("%w: floor is required (room %s)", ErrInvalidEntry, e.RoomNumber)
	}

	switch e.Type {
	case "", TypeRoom, TypeOffice:
	default:
		return fmt.Errorf("%w: unknown type %q (room %s)", ErrInvalidEntry, e.Type, e.RoomNumber)
	}

	return nil
}

// Pin returns the position of the location's pin. Catalog coordinates are
// already floor percentages, so no geographic mapping is involved.
func (e Entry) Pin() geo.ScreenPosition {
	return geo.ScreenPosition{Top: e.Y, Left: e.X}
}

// matches reports whether the lowercased query is part of the label or room number.
func (e Entry) matches(query string) bool {
	return strings.Contains(strings.ToLower(e.Label), query) ||
		strings.Contains(strings.ToLower(e.RoomNumber), query)
}
