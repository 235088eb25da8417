package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/woozymasta/floorguide/assets"
	"github.com/woozymasta/floorguide/internal/config"
	"github.com/woozymasta/floorguide/internal/geo"
	"github.com/woozymasta/floorguide/internal/locations"
	"github.com/woozymasta/floorguide/internal/metrics"
	"github.com/woozymasta/floorguide/internal/session"

	"github.com/rs/zerolog/log"
)

// Floor is a floor as served to clients.
type Floor struct {
	mapper *geo.Mapper
	Index  *int       `json:"index,omitempty"`
	ID     string     `json:"id"`
	Label  string     `json:"label"`
	MapURL string     `json:"map_url"`
	GeoBox geo.GeoBox `json:"geo_box"`

	// image is a local path or URL of the picture served at MapURL
	image string
}

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	Config    *config.Config
	Metrics   *metrics.Metrics
	Search    *locations.Search
	Nearby    *locations.Nearby
	Sessions  *session.Store
	Floors    map[string]*Floor
	FloorList []*Floor
	IndexHTML []byte
	Favicon   []byte
}

// NewServerContext builds mappers and the search index from the configuration.
// mapsDir is where prepared floor images are looked up first.
func NewServerContext(cfg *config.Config, m *metrics.Metrics, mapsDir string) (*ServerContext, error) {
	log.Info().Int("config_floors_count", len(cfg.Floors)).Msg("Initializing server context")

	floors := make(map[string]*Floor, len(cfg.Floors))
	floorList := make([]*Floor, 0, len(cfg.Floors))
	mappers := make(map[string]*geo.Mapper, len(cfg.Floors))

	for _, id := range cfg.FloorIDs() {
		fc := cfg.Floors[id]

		mapper, err := geo.NewMapper(fc.GeoBox)
		if err != nil {
			return nil, fmt.Errorf("floor %s: %w", id, err)
		}
		mappers[id] = mapper

		floor := &Floor{
			ID:     id,
			Index:  fc.Index,
			Label:  fc.Label,
			MapURL: "/floors/" + id + "/map",
			GeoBox: fc.GeoBox,
			image:  fc.Map,
			mapper: mapper,
		}

		// Prefer the image prepared by the loader
		prepared := filepath.Join(mapsDir, id, "map.webp")
		if _, err := os.Stat(prepared); err == nil {
			floor.image = prepared
			log.Trace().
				Str("floor", id).
				Str("path", prepared).
				Msg("Prepared floor image found")
		} else {
			log.Trace().
				Str("floor", id).
				Str("path", fc.Map).
				Msg("Prepared floor image not found, serving source image")
		}

		log.Debug().
			Str("floor", id).
			Str("label", fc.Label).
			Msg("Floor validated and added to context")

		floors[id] = floor
		floorList = append(floorList, floor)
	}

	search, err := locations.NewSearch(cfg.Locations)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("floors_count", len(floorList)).
		Int("locations_count", search.Len()).
		Msg("Server context initialized successfully")

	return &ServerContext{
		Config:    cfg,
		Metrics:   m,
		Search:    search,
		Nearby:    locations.NewNearby(search.Entries()),
		Sessions:  session.NewStore(cfg.DefaultFloor, mappers, search),
		Floors:    floors,
		FloorList: floorList,
		IndexHTML: assets.Index,
		Favicon:   assets.Favicon,
	}, nil
}

// HandlePosition records a position sample from the feed for every session.
func (s *ServerContext) HandlePosition(p geo.GeoPoint) {
	s.Metrics.PositionSamples.Inc()
	s.Sessions.Broadcast(p)
}

// EvictIdleSessions drops sessions not used for ttl and refreshes the session gauge.
func (s *ServerContext) EvictIdleSessions(ttl time.Duration) int {
	evicted := s.Sessions.Evict(time.Now().Add(-ttl))
	s.Metrics.ActiveSessions.Set(float64(s.Sessions.Len()))

	if evicted > 0 {
		log.Debug().
			Int("evicted", evicted).
			Int("sessions", s.Sessions.Len()).
			Msg("Idle sessions evicted")
	}

	return evicted
}

// ExpireSessions evicts idle sessions every ttl/2 until ctx is done.
func (s *ServerContext) ExpireSessions(ctx context.Context, ttl time.Duration) {
	interval := ttl / 2
	if interval < time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.EvictIdleSessions(ttl)
		}
	}
}
