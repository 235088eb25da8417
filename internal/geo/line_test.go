package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineThrough(t *testing.T) {
	l, err := LineThrough(GeoPoint{X: 1, Y: 3}, GeoPoint{X: 3, Y: 7})
	require.NoError(t, err)

	assert.InDelta(t, 2, l.Slope(), 1e-12)
	assert.InDelta(t, 1, l.Intercept(), 1e-12)
	assert.InDelta(t, 0, l.Distance(GeoPoint{X: 5, Y: 11}), 1e-12)

	// Distance from y = 2x + 1 to the origin is 1/sqrt(5).
	assert.InDelta(t, 1/math.Sqrt(5), l.Distance(GeoPoint{}), 1e-12)
}

func TestLineThroughVertical(t *testing.T) {
	l, err := LineThrough(GeoPoint{X: 2, Y: 0}, GeoPoint{X: 2, Y: 9})
	require.NoError(t, err)

	assert.True(t, math.IsInf(l.Slope(), 1))
	assert.True(t, math.IsNaN(l.Intercept()))
	assert.InDelta(t, 3, l.Distance(GeoPoint{X: -1, Y: 4}), 1e-12)
}

func TestLineThroughDegenerate(t *testing.T) {
	_, err := LineThrough(GeoPoint{X: 1, Y: 1}, GeoPoint{X: 1, Y: 1})
	assert.ErrorIs(t, err, ErrDegenerateLine)
}

func TestOrientTowards(t *testing.T) {
	l, err := LineThrough(GeoPoint{X: 0, Y: 0}, GeoPoint{X: 10, Y: 0})
	require.NoError(t, err)

	above := GeoPoint{X: 3, Y: 4}
	oriented := l.orientTowards(above)

	assert.InDelta(t, 4, oriented.SignedDistance(above), 1e-12)
	assert.InDelta(t, -2, oriented.SignedDistance(GeoPoint{X: 3, Y: -2}), 1e-12)
	assert.InDelta(t, l.Distance(above), oriented.Distance(above), 1e-12)
}

func TestDistance(t *testing.T) {
	assert.InDelta(t, 5, Distance(GeoPoint{X: 1, Y: 1}, GeoPoint{X: 4, Y: 5}), 1e-12)
}
