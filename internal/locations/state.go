package locations

import "strings"

// State is what a search box shows: the typed query and the entries listed under it.
type State struct {
	Query   string  `json:"query"`
	Results []Entry `json:"results"`
}

// Reset returns the state of a freshly focused search box.
func (s *Search) Reset() State {
	return State{Results: s.Defaults()}
}

// Type returns the state after the search box text changed to query.
// The stored query is lowercased, like the search itself.
func (s *Search) Type(query string) State {
	return State{Query: strings.ToLower(query), Results: s.Search(query)}
}
