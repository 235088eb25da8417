package geo

import (
	"errors"
	"math"
)

// ErrDegenerateLine is returned when a line is requested through two equal points.
var ErrDegenerateLine = errors.New("line endpoints coincide")

// AxisLine is the line through two points, kept in general form A*x + B*y + C = 0
// so vertical edges stay representable.
type AxisLine struct {
	A, B, C float64
}

// LineThrough returns the line passing through p1 and p2.
func LineThrough(p1, p2 GeoPoint) (AxisLine, error) {
	a := p2.Y - p1.Y
	b := p1.X - p2.X
	if a == 0 && b == 0 {
		return AxisLine{}, ErrDegenerateLine
	}

	return AxisLine{A: a, B: b, C: -(a*p1.X + b*p1.Y)}, nil
}

// Slope returns m of y = m*x + b. It is infinite for vertical lines.
func (l AxisLine) Slope() float64 {
	if l.B == 0 {
		return math.Inf(1)
	}
	return -l.A / l.B
}

// Intercept returns b of y = m*x + b. It is NaN for vertical lines.
func (l AxisLine) Intercept() float64 {
	if l.B == 0 {
		return math.NaN()
	}
	return -l.C / l.B
}

// SignedDistance returns the perpendicular distance of p from the line.
// The sign tells which side of the line p lies on.
func (l AxisLine) SignedDistance(p GeoPoint) float64 {
	return (l.A*p.X + l.B*p.Y + l.C) / math.Hypot(l.A, l.B)
}

// Distance returns the absolute perpendicular distance of p from the line.
func (l AxisLine) Distance(p GeoPoint) float64 {
	return math.Abs(l.SignedDistance(p))
}

// flip returns the same line with the opposite orientation.
func (l AxisLine) flip() AxisLine {
	return AxisLine{A: -l.A, B: -l.B, C: -l.C}
}

// orientTowards flips the line when needed so that p has a positive signed distance.
func (l AxisLine) orientTowards(p GeoPoint) AxisLine {
	if l.SignedDistance(p) < 0 {
		return l.flip()
	}
	return l
}
