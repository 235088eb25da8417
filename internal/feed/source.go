// Package feed delivers periodic device position samples.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/woozymasta/floorguide/internal/geo"

	"gopkg.in/yaml.v3"
)

// ErrEmptyTrack is returned when a track holds no points.
var ErrEmptyTrack = errors.New("track has no points")

// Source produces the current device position.
type Source interface {
	Position(ctx context.Context) (geo.GeoPoint, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) (geo.GeoPoint, error)

// Position calls f.
func (f SourceFunc) Position(ctx context.Context) (geo.GeoPoint, error) {
	return f(ctx)
}

// StaticSource always reports the same point.
type StaticSource geo.GeoPoint

// Position returns the fixed point.
func (s StaticSource) Position(context.Context) (geo.GeoPoint, error) {
	return geo.GeoPoint(s), nil
}

// TrackSource replays recorded points in order and starts over after the last one.
type TrackSource struct {
	mu     sync.Mutex
	points []geo.GeoPoint
	next   int
}

// NewTrackSource returns a source cycling through points.
func NewTrackSource(points []geo.GeoPoint) (*TrackSource, error) {
	if len(points) == 0 {
		return nil, ErrEmptyTrack
	}

	cp := make([]geo.GeoPoint, len(points))
	copy(cp, points)
	return &TrackSource{points: cp}, nil
}

// LoadTrack reads a GeoJSON FeatureCollection of Point features.
// Files ending in .yaml or .yml are decoded as YAML, anything else as JSON.
func LoadTrack(path string) (*TrackSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var fc geo.GeoJSONFeatureCollection
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return nil, fmt.Errorf("decode track %s: %w", path, err)
	}

	points, err := fc.Points()
	if err != nil {
		return nil, fmt.Errorf("track %s: %w", path, err)
	}

	return NewTrackSource(points)
}

// Position returns the next recorded point.
func (t *TrackSource) Position(ctx context.Context) (geo.GeoPoint, error) {
	if err := ctx.Err(); err != nil {
		return geo.GeoPoint{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.points[t.next]
	t.next = (t.next + 1) % len(t.points)
	return p, nil
}
