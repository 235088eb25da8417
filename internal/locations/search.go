package locations

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ResultLimit caps the number of entries returned by a search.
const ResultLimit = 10

// Search answers substring queries against a sorted snapshot of the catalog.
// It never changes after construction and is safe for concurrent use.
type Search struct {
	sorted []Entry
	byRoom map[string]int
}

// NewSearch validates the catalog and keeps a sorted copy of it. Entries are
// ordered by label (case-insensitive), then by room number. The catalog slice
// passed in is not modified.
func NewSearch(catalog []Entry) (*Search, error) {
	sorted := make([]Entry, len(catalog))
	copy(sorted, catalog)

	var errs []error
	seen := make(map[string]struct{}, len(sorted))
	for i := range sorted {
		e := &sorted[i]
		if err := e.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("location %d: %w", i, err))
			continue
		}
		if e.Type == "" {
			e.Type = TypeRoom
		}

		key := strings.ToLower(e.RoomNumber)
		if _, dup := seen[key]; dup {
			errs = append(errs, fmt.Errorf("location %d: %w: duplicate room number %s", i, ErrInvalidEntry, e.RoomNumber))
			continue
		}
		seen[key] = struct{}{}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		li, lj := strings.ToLower(sorted[i].Label), strings.ToLower(sorted[j].Label)
		if li != lj {
			return li < lj
		}
		return sorted[i].RoomNumber < sorted[j].RoomNumber
	})

	byRoom := make(map[string]int, len(sorted))
	for i, e := range sorted {
		byRoom[strings.ToLower(e.RoomNumber)] = i
	}

	return &Search{sorted: sorted, byRoom: byRoom}, nil
}

// Len returns the size of the catalog.
func (s *Search) Len() int {
	return len(s.sorted)
}

// Entries returns a copy of the whole sorted catalog.
func (s *Search) Entries() []Entry {
	out := make([]Entry, len(s.sorted))
	copy(out, s.sorted)
	return out
}

// Defaults returns the first ResultLimit entries of the sorted catalog.
func (s *Search) Defaults() []Entry {
	n := min(len(s.sorted), ResultLimit)
	out := make([]Entry, n)
	copy(out, s.sorted[:n])
	return out
}

// Search returns entries whose label or room number contains query, ignoring
// case. The scan stops at ResultLimit matches, so the result is always a
// prefix of all matches in catalog order. An empty query matches everything.
func (s *Search) Search(query string) []Entry {
	query = strings.ToLower(query)

	matches := make([]Entry, 0, ResultLimit)
	for _, e := range s.sorted {
		if !e.matches(query) {
			continue
		}
		matches = append(matches, e)
		if len(matches) >= ResultLimit {
			break
		}
	}

	return matches
}

// Lookup finds an entry by room number, ignoring case.
func (s *Search) Lookup(roomNumber string) (Entry, bool) {
	i, ok := s.byRoom[strings.ToLower(roomNumber)]
	if !ok {
		return Entry{}, false
	}
	return s.sorted[i], true
}
