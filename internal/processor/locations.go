// Package processor prepares floor images and catalog exports for serving.
package processor

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/woozymasta/floorguide/internal/geo"
	"github.com/woozymasta/floorguide/internal/locations"

	"github.com/rs/zerolog/log"
)

// LocationsFile is the name of the per-floor catalog export.
const LocationsFile = "locations.geojson"

// CatalogEntries validates configured entries and returns them in search order
// with defaults applied, so every export lists the catalog the same way.
func CatalogEntries(raw []locations.Entry) ([]locations.Entry, error) {
	search, err := locations.NewSearch(raw)
	if err != nil {
		return nil, err
	}
	return search.Entries(), nil
}

// Catalog converts catalog entries into Point features with [x%, y%] coordinates.
// A non-empty floor keeps only the entries of that floor.
func Catalog(entries []locations.Entry, floor string) geo.GeoJSONFeatureCollection {
	fc := geo.NewFeatureCollection(len(entries))
	for _, e := range entries {
		if floor != "" && e.Floor != floor {
			continue
		}

		fc.Features = append(fc.Features, geo.PointFeature(e.X, e.Y, map[string]interface{}{
			"label":       e.Label,
			"room_number": e.RoomNumber,
			"type":        string(e.Type),
			"floor":       e.Floor,
		}))
	}

	return fc
}

// ExportLocations writes the floor's catalog entries to dir/locations.geojson.
// An existing file is kept unless force is set.
func ExportLocations(entries []locations.Entry, floor, dir string, force bool) error {
	destFile := filepath.Join(dir, LocationsFile)

	if _, err := os.Stat(destFile); err == nil {
		if !force {
			log.Debug().Str("floor", floor).Msg("Locations file exists, skipping")
			return nil
		}
	}

	fc := Catalog(entries, floor)
	log.Info().
		Str("floor", floor).
		Int("count", len(fc.Features)).
		Msg("Exporting floor locations")

	return saveGeoJSON(dir, destFile, fc)
}

// saveGeoJSON marshals the feature collection and writes it to disk.
func saveGeoJSON(dir, path string, fc geo.GeoJSONFeatureCollection) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Error().Err(closeErr).Str("path", path).Msg("Failed to close file")
		}
	}()

	return json.NewEncoder(f).Encode(fc)
}
