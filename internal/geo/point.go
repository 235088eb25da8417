// Package geo handles geographic data structures and coordinate conversions.
package geo

import (
	"math"
	"strconv"
)

// GeoPoint is a geographic coordinate pair. X holds the longitude, Y the latitude.
type GeoPoint struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// IsFinite reports whether both coordinates are finite numbers.
func (p GeoPoint) IsFinite() bool {
	return isFinite(p.X) && isFinite(p.Y)
}

// Distance returns the planar Euclidean distance between two points.
// No geographic correction is applied, which is only valid for small areas.
func Distance(p1, p2 GeoPoint) float64 {
	return math.Hypot(p1.X-p2.X, p1.Y-p2.Y)
}

// ScreenPosition is a position over a floor image in percentages from the
// top and left edges of the image.
type ScreenPosition struct {
	Top  float64 `yaml:"top" json:"top"`
	Left float64 `yaml:"left" json:"left"`
}

// TopCSS returns the top offset as a CSS percentage string.
func (s ScreenPosition) TopCSS() string {
	return percent(s.Top)
}

// LeftCSS returns the left offset as a CSS percentage string.
func (s ScreenPosition) LeftCSS() string {
	return percent(s.Left)
}

// MarshalJSON encodes the position as CSS offsets: {"top":"50%","left":"50%"}.
func (s ScreenPosition) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, 32)
	buf = append(buf, `{"top":`...)
	buf = strconv.AppendQuote(buf, s.TopCSS())
	buf = append(buf, `,"left":`...)
	buf = strconv.AppendQuote(buf, s.LeftCSS())
	buf = append(buf, '}')
	return buf, nil
}

func percent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "%"
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
