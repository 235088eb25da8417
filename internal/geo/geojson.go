package geo

import "fmt"

// GeoJSONFeatureCollection represents a collection of geographic features.
// It follows the standard GeoJSON structure.
type GeoJSONFeatureCollection struct {
	Type     string           `json:"type" yaml:"type"`
	Features []GeoJSONFeature `json:"features" yaml:"features"`
}

// GeoJSONFeature represents a single geographic feature with geometry and properties.
type GeoJSONFeature struct {
	Properties map[string]interface{} `json:"properties" yaml:"properties"`
	Type       string                 `json:"type" yaml:"type"`
	Geometry   GeoJSONGeometry        `json:"geometry" yaml:"geometry"`
}

// GeoJSONGeometry represents a point geometry.
type GeoJSONGeometry struct {
	Type        string    `json:"type" yaml:"type"`
	Coordinates []float64 `json:"coordinates" yaml:"coordinates"` // [X, Y]
}

// NewFeatureCollection returns an empty collection with capacity for n features.
func NewFeatureCollection(n int) GeoJSONFeatureCollection {
	return GeoJSONFeatureCollection{
		Type:     "FeatureCollection",
		Features: make([]GeoJSONFeature, 0, n),
	}
}

// PointFeature builds a Point feature at (x, y).
func PointFeature(x, y float64, props map[string]interface{}) GeoJSONFeature {
	return GeoJSONFeature{
		Type: "Feature",
		Geometry: GeoJSONGeometry{
			Type:        "Point",
			Coordinates: []float64{x, y},
		},
		Properties: props,
	}
}

// Points extracts the Point geometries of the collection in order.
// Coordinates are read as [longitude, latitude].
func (fc GeoJSONFeatureCollection) Points() ([]GeoPoint, error) {
	points := make([]GeoPoint, 0, len(fc.Features))
	for i, f := range fc.Features {
		if f.Geometry.Type != "Point" {
			return nil, fmt.Errorf("feature %d: unsupported geometry %q", i, f.Geometry.Type)
		}
		if len(f.Geometry.Coordinates) < 2 {
			return nil, fmt.Errorf("feature %d: point needs two coordinates", i)
		}
		points = append(points, GeoPoint{X: f.Geometry.Coordinates[0], Y: f.Geometry.Coordinates[1]})
	}

	return points, nil
}
