package geo

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
)

// ErrInvalidBox marks a bounding box that cannot be used for normalization.
var ErrInvalidBox = errors.New("invalid geo box")

// GeoBox is the quadrilateral of geographic corners enclosing a floor image.
type GeoBox struct {
	TopLeft     GeoPoint `yaml:"top_left" json:"top_left"`
	TopRight    GeoPoint `yaml:"top_right" json:"top_right"`
	BottomLeft  GeoPoint `yaml:"bottom_left" json:"bottom_left"`
	BottomRight GeoPoint `yaml:"bottom_right" json:"bottom_right"`
}

// Validate rejects boxes that would make normalization divide by zero:
// non-finite corners, zero-length bottom or left edges and collapsed boxes.
func (b GeoBox) Validate() error {
	corners := []struct {
		name  string
		point GeoPoint
	}{
		{"top_left", b.TopLeft},
		{"top_right", b.TopRight},
		{"bottom_left", b.BottomLeft},
		{"bottom_right", b.BottomRight},
	}
	for _, c := range corners {
		if !c.point.IsFinite() {
			return fmt.Errorf("%w: corner %s is not finite", ErrInvalidBox, c.name)
		}
	}

	xAxis, err := LineThrough(b.BottomLeft, b.BottomRight)
	if err != nil {
		return fmt.Errorf("%w: bottom edge: %w", ErrInvalidBox, err)
	}
	yAxis, err := LineThrough(b.TopLeft, b.BottomLeft)
	if err != nil {
		return fmt.Errorf("%w: left edge: %w", ErrInvalidBox, err)
	}

	if xAxis.Distance(b.TopLeft) == 0 {
		return fmt.Errorf("%w: top left corner lies on the bottom edge", ErrInvalidBox)
	}
	if yAxis.Distance(b.BottomRight) == 0 {
		return fmt.Errorf("%w: bottom right corner lies on the left edge", ErrInvalidBox)
	}

	return nil
}

// Center returns the average of the four corners.
func (b GeoBox) Center() GeoPoint {
	return GeoPoint{
		X: (b.TopLeft.X + b.TopRight.X + b.BottomLeft.X + b.BottomRight.X) / 4,
		Y: (b.TopLeft.Y + b.TopRight.Y + b.BottomLeft.Y + b.BottomRight.Y) / 4,
	}
}

// polygon returns the footprint as a closed ring.
func (b GeoBox) polygon() orb.Polygon {
	return orb.Polygon{orb.Ring{
		{b.BottomLeft.X, b.BottomLeft.Y},
		{b.BottomRight.X, b.BottomRight.Y},
		{b.TopRight.X, b.TopRight.Y},
		{b.TopLeft.X, b.TopLeft.Y},
		{b.BottomLeft.X, b.BottomLeft.Y},
	}}
}
