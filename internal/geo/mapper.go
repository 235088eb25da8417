package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ComputationError is returned when normalization yields a non-finite value.
type ComputationError struct {
	Point  GeoPoint
	Top    float64
	Left   float64
	Reason string
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("normalize (%g, %g): %s (top=%g, left=%g)", e.Point.X, e.Point.Y, e.Reason, e.Top, e.Left)
}

// Mapper converts geographic points into percentages over a floor image.
//
// Horizontal displacement is measured from the left edge (top left to bottom left),
// vertical displacement from the bottom edge (bottom left to bottom right). Both
// edges are oriented towards the inside of the box, so points outside it produce
// percentages below 0 or above 100. Output is never clamped.
//
// A Mapper is immutable and safe for concurrent use.
type Mapper struct {
	box       GeoBox
	footprint orb.Polygon
	xAxis     AxisLine
	yAxis     AxisLine
	xLength   float64
	yLength   float64
}

// NewMapper validates the box and precomputes the axes used by Normalize.
func NewMapper(box GeoBox) (*Mapper, error) {
	if err := box.Validate(); err != nil {
		return nil, err
	}

	// Validate guarantees both edges are well defined.
	xAxis, _ := LineThrough(box.BottomLeft, box.BottomRight)
	yAxis, _ := LineThrough(box.TopLeft, box.BottomLeft)

	return &Mapper{
		box:       box,
		footprint: box.polygon(),
		xAxis:     xAxis.orientTowards(box.TopLeft),
		yAxis:     yAxis.orientTowards(box.BottomRight),
		xLength:   Distance(box.BottomLeft, box.BottomRight),
		yLength:   Distance(box.TopLeft, box.BottomLeft),
	}, nil
}

// Box returns the bounding box the mapper was built from.
func (m *Mapper) Box() GeoBox {
	return m.box
}

// Normalize converts p into a screen position rounded to whole percents
// (half away from zero).
func (m *Mapper) Normalize(p GeoPoint) (ScreenPosition, error) {
	x := m.yAxis.SignedDistance(p)
	y := m.xAxis.SignedDistance(p)

	pos := ScreenPosition{
		Top:  roundPercent((1 - y/m.yLength) * 100),
		Left: roundPercent(x / m.xLength * 100),
	}

	if !isFinite(pos.Top) || !isFinite(pos.Left) {
		return ScreenPosition{}, &ComputationError{
			Point:  p,
			Top:    pos.Top,
			Left:   pos.Left,
			Reason: "result is not finite",
		}
	}

	return pos, nil
}

// Contains reports whether p lies inside the floor footprint.
func (m *Mapper) Contains(p GeoPoint) bool {
	return planar.PolygonContains(m.footprint, orb.Point{p.X, p.Y})
}

// roundPercent rounds half away from zero and never returns negative zero.
func roundPercent(v float64) float64 {
	r := math.Round(v)
	if r == 0 {
		return 0
	}
	return r
}
