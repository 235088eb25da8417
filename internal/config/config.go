// Package config handles configuration loading and shared data structures.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"time"

	"github.com/woozymasta/floorguide/internal/geo"
	"github.com/woozymasta/floorguide/internal/locations"

	"gopkg.in/yaml.v3"
)

// DefaultFeedInterval is how often the position feed is polled when not configured.
const DefaultFeedInterval = 100 * time.Millisecond

// ErrInvalid marks a configuration that failed validation.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the root configuration file structure.
type Config struct {
	Floors        map[string]Floor  `yaml:"floors" json:"floors"`
	Title         string            `yaml:"title,omitempty" json:"title,omitempty"`
	Logo          string            `yaml:"logo,omitempty" json:"logo,omitempty"`
	DefaultFloor  string            `yaml:"floor" json:"floor"`
	Feed          Feed              `yaml:"feed,omitempty" json:"-"`
	Locations     []locations.Entry `yaml:"locations" json:"-"`
	ImageMaxWidth int               `yaml:"image_max_width,omitempty" json:"-"`
	Debug         bool              `yaml:"debug,omitempty" json:"debug,omitempty"`
}

// Floor represents a single floor map.
type Floor struct {
	Index *int `yaml:"index,omitempty" json:"index,omitempty"`

	// Map is a local path or http(s) URL of the floor plan image
	Map    string     `yaml:"map" json:"-"`
	Label  string     `yaml:"label" json:"label"`
	GeoBox geo.GeoBox `yaml:"geo_box" json:"geo_box"`
}

// Feed configures the simulated position feed.
type Feed struct {
	// Track is a GeoJSON file (JSON or YAML) with Point features replayed in order
	Track    string        `yaml:"track,omitempty"`
	Interval time.Duration `yaml:"interval,omitempty"`
}

// Load reads and parses the YAML configuration file from the specified path
// and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(data)
}

// Parse decodes and validates a YAML configuration document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Feed.Interval <= 0 {
		cfg.Feed.Interval = DefaultFeedInterval
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate reports every problem found in the configuration at once.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Floors) == 0 {
		errs = append(errs, errors.New("no floors configured"))
	}
	if _, ok := c.Floors[c.DefaultFloor]; !ok {
		errs = append(errs, fmt.Errorf("default floor %q is not configured", c.DefaultFloor))
	}

	for _, id := range c.FloorIDs() {
		floor := c.Floors[id]
		if floor.Map == "" {
			errs = append(errs, fmt.Errorf("floor %s: map is required", id))
		}
		if err := floor.GeoBox.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("floor %s: %w", id, err))
		}
	}

	for i, loc := range c.Locations {
		if err := loc.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("location %d: %w", i, err))
			continue
		}
		if _, ok := c.Floors[loc.Floor]; !ok {
			errs = append(errs, fmt.Errorf("location %d (%s): unknown floor %q", i, loc.RoomNumber, loc.Floor))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}

	return nil
}

// FloorIDs returns floor ids ordered by index, then by id.
func (c *Config) FloorIDs() []string {
	ids := make([]string, 0, len(c.Floors))
	for id := range c.Floors {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool {
		idxI, idxJ := 999999, 999999
		if c.Floors[ids[i]].Index != nil {
			idxI = *c.Floors[ids[i]].Index
		}
		if c.Floors[ids[j]].Index != nil {
			idxJ = *c.Floors[ids[j]].Index
		}
		if idxI != idxJ {
			return idxI < idxJ
		}

		return ids[i] < ids[j]
	})

	return ids
}

// IsURL reports whether a floor map source is an http(s) URL rather than a local path.
func IsURL(source string) bool {
	u, err := url.Parse(source)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
