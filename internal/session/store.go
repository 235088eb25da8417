package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/woozymasta/floorguide/internal/geo"
	"github.com/woozymasta/floorguide/internal/locations"

	"github.com/google/uuid"
)

// Store keeps live sessions in memory.
type Store struct {
	mappers      map[string]*geo.Mapper
	search       *locations.Search
	sessions     map[uuid.UUID]*Session
	defaultFloor string
	mu           sync.RWMutex
}

// NewStore creates an empty store. New sessions start on defaultFloor.
func NewStore(defaultFloor string, mappers map[string]*geo.Mapper, search *locations.Search) *Store {
	return &Store{
		mappers:      mappers,
		search:       search,
		defaultFloor: defaultFloor,
		sessions:     make(map[uuid.UUID]*Session),
	}
}

// Create starts a session and returns its id.
func (s *Store) Create() (uuid.UUID, *Session, error) {
	sess, err := New(s.defaultFloor, s.mappers, s.search)
	if err != nil {
		return uuid.Nil, nil, err
	}

	id := uuid.New()
	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	return id, sess, nil
}

// Get returns the session with the given id and marks it as used.
func (s *Store) Get(id uuid.UUID) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	sess.Touch()
	return sess, nil
}

// Evict drops sessions last touched before cutoff and returns how many were removed.
func (s *Store) Evict(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, sess := range s.sessions {
		if sess.LastSeen().Before(cutoff) {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}

// Delete drops a session. Deleting an unknown id is not an error.
func (s *Store) Delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Broadcast records p as the device position of every session.
func (s *Store) Broadcast(p geo.GeoPoint) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sess := range s.sessions {
		sess.UpdatePosition(p)
	}
}
