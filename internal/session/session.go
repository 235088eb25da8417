// Package session keeps the per-client wayfinding state: active floor,
// search panel, selected pin and the last known device position.
package session

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/woozymasta/floorguide/internal/geo"
	"github.com/woozymasta/floorguide/internal/locations"
)

var (
	// ErrUnknownFloor is returned when switching to a floor without a mapper.
	ErrUnknownFloor = errors.New("unknown floor")
	// ErrNotFound is returned for unknown session ids.
	ErrNotFound = errors.New("session not found")
)

// State is the serializable view state of one client.
type State struct {
	ActivePin    *locations.Entry `json:"active_pin,omitempty"`
	Position     *geo.GeoPoint    `json:"position,omitempty"`
	Floor        string           `json:"floor"`
	Search       locations.State  `json:"search"`
	SearchOpen   bool             `json:"search_open"`
	ShowLocation bool             `json:"show_location"`
}

// Session applies user actions to a State. All methods are safe for concurrent use.
type Session struct {
	mappers map[string]*geo.Mapper
	search  *locations.Search
	state   State
	mu      sync.RWMutex

	// lastSeen is the unix nano time of the last client access
	lastSeen atomic.Int64
}

// New starts a session on floor with the search panel closed and the
// device location hidden.
func New(floor string, mappers map[string]*geo.Mapper, search *locations.Search) (*Session, error) {
	if _, ok := mappers[floor]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFloor, floor)
	}

	s := &Session{
		mappers: mappers,
		search:  search,
		state: State{
			Floor:  floor,
			Search: search.Reset(),
		},
	}
	s.Touch()
	return s, nil
}

// Touch marks the session as used now.
func (s *Session) Touch() {
	s.lastSeen.Store(time.Now().UnixNano())
}

// LastSeen returns when the session was last touched.
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.state
	if st.ActivePin != nil {
		pin := *st.ActivePin
		st.ActivePin = &pin
	}
	if st.Position != nil {
		p := *st.Position
		st.Position = &p
	}
	st.Search.Results = append([]locations.Entry(nil), st.Search.Results...)
	return st
}

// OpenSearch shows the search panel with an empty query and the default results.
func (s *Session) OpenSearch() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.SearchOpen {
		s.state.Search = s.search.Reset()
	}
	s.state.SearchOpen = true
}

// CloseSearch hides the search panel.
func (s *Session) CloseSearch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SearchOpen = false
}

// Query updates the search results for the text typed so far.
func (s *Session) Query(q string) locations.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Search = s.search.Type(q)
	return s.state.Search
}

// MarkLocation pins entry, closes the search panel and switches to the entry's floor.
func (s *Session) MarkLocation(entry locations.Entry) error {
	if _, ok := s.mappers[entry.Floor]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFloor, entry.Floor)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.ActivePin = &entry
	s.state.SearchOpen = false
	s.state.Floor = entry.Floor
	return nil
}

// ChangeFloor switches the visible floor. Switching to another floor drops the
// pin and closes the search panel; selecting the current floor changes nothing.
func (s *Session) ChangeFloor(floor string) error {
	if _, ok := s.mappers[floor]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFloor, floor)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if floor == s.state.Floor {
		return nil
	}
	s.state.ActivePin = nil
	s.state.SearchOpen = false
	s.state.Floor = floor
	return nil
}

// ShowLocation toggles the device location marker.
func (s *Session) ShowLocation(show bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ShowLocation = show
}

// ClearPins removes the active pin. The location marker is not affected.
func (s *Session) ClearPins() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ActivePin = nil
}

// UpdatePosition records the latest device position.
func (s *Session) UpdatePosition(p geo.GeoPoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Position = &p
}

// CurrentMarker returns where the device marker goes on the active floor.
// It returns nil when the marker is hidden or no position is known yet.
func (s *Session) CurrentMarker() (*geo.ScreenPosition, error) {
	s.mu.RLock()
	show, pos, floor := s.state.ShowLocation, s.state.Position, s.state.Floor
	s.mu.RUnlock()

	if !show || pos == nil {
		return nil, nil
	}

	marker, err := s.mappers[floor].Normalize(*pos)
	if err != nil {
		return nil, err
	}
	return &marker, nil
}

// ActivePins returns the pins to draw. At most one pin is active at a time.
func (s *Session) ActivePins() []geo.ScreenPosition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state.ActivePin == nil {
		return []geo.ScreenPosition{}
	}
	return []geo.ScreenPosition{s.state.ActivePin.Pin()}
}
