// Package server handles HTTP requests and middleware.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/woozymasta/floorguide/internal/config"
	"github.com/woozymasta/floorguide/internal/geo"
	"github.com/woozymasta/floorguide/internal/locations"
	"github.com/woozymasta/floorguide/internal/session"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	etagCap        = 64
	defaultNearby  = 5
	maxRequestBody = 1 << 16
)

type appConfig struct {
	Title string `json:"title,omitempty"`
	Logo  string `json:"logo,omitempty"`
	Floor string `json:"floor"`
	Debug bool   `json:"debug"`
}

// HandleConfig serves the page settings.
func (s *ServerContext) HandleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, appConfig{
		Title: s.Config.Title,
		Logo:  s.Config.Logo,
		Floor: s.Config.DefaultFloor,
		Debug: s.Config.Debug,
	})
}

// HandleFloorsList serves the floors in display order.
func (s *ServerContext) HandleFloorsList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.FloorList)
}

// HandleLocations searches the catalog with the q query parameter.
func (s *ServerContext) HandleLocations(w http.ResponseWriter, r *http.Request) {
	results := s.Search.Search(r.URL.Query().Get("q"))

	s.Metrics.Searches.Inc()
	s.Metrics.SearchResults.Observe(float64(len(results)))

	writeJSON(w, http.StatusOK, results)
}

type normalizeResponse struct {
	Floor    string             `json:"floor"`
	Point    geo.GeoPoint       `json:"point"`
	Position geo.ScreenPosition `json:"position"`
	Inside   bool               `json:"inside"`
}

// HandleNormalize converts ?lat=&lon= into a position over the floor image.
func (s *ServerContext) HandleNormalize(w http.ResponseWriter, r *http.Request) {
	floor, point, ok := s.floorPoint(w, r)
	if !ok {
		return
	}

	pos, err := floor.mapper.Normalize(point)
	if err != nil {
		s.Metrics.Normalizations.WithLabelValues(floor.ID, "error").Inc()
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.Metrics.Normalizations.WithLabelValues(floor.ID, "ok").Inc()

	writeJSON(w, http.StatusOK, normalizeResponse{
		Floor:    floor.ID,
		Point:    point,
		Position: pos,
		Inside:   floor.mapper.Contains(point),
	})
}

type nearbyResponse struct {
	Floor     string             `json:"floor"`
	Position  geo.ScreenPosition `json:"position"`
	Locations []locations.Entry  `json:"locations"`
}

// HandleNearby lists catalog entries closest to ?lat=&lon= on the floor.
func (s *ServerContext) HandleNearby(w http.ResponseWriter, r *http.Request) {
	floor, point, ok := s.floorPoint(w, r)
	if !ok {
		return
	}

	n := defaultNearby
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid n: %q", raw))
			return
		}
		n = min(v, locations.ResultLimit)
	}

	pos, err := floor.mapper.Normalize(point)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	writeJSON(w, http.StatusOK, nearbyResponse{
		Floor:     floor.ID,
		Position:  pos,
		Locations: s.Nearby.Nearest(floor.ID, pos, n),
	})
}

// floorPoint resolves the {floor} path value and the lat/lon query parameters.
// It writes the error response itself and reports false on failure.
func (s *ServerContext) floorPoint(w http.ResponseWriter, r *http.Request) (*Floor, geo.GeoPoint, bool) {
	floor, ok := s.Floors[r.PathValue("floor")]
	if !ok {
		http.NotFound(w, r)
		return nil, geo.GeoPoint{}, false
	}

	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
	if err := errors.Join(errLat, errLon); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("lat and lon must be numbers: %w", err))
		return nil, geo.GeoPoint{}, false
	}

	return floor, geo.GeoPoint{X: lon, Y: lat}, true
}

type sessionView struct {
	Marker *geo.ScreenPosition  `json:"marker,omitempty"`
	ID     string               `json:"id"`
	Pins   []geo.ScreenPosition `json:"pins"`
	State  session.State        `json:"state"`
}

func (s *ServerContext) viewSession(id uuid.UUID, sess *session.Session) (sessionView, error) {
	marker, err := sess.CurrentMarker()
	if err != nil {
		return sessionView{}, err
	}

	return sessionView{
		ID:     id.String(),
		State:  sess.Snapshot(),
		Marker: marker,
		Pins:   sess.ActivePins(),
	}, nil
}

// HandleSessionCreate starts a new session.
func (s *ServerContext) HandleSessionCreate(w http.ResponseWriter, r *http.Request) {
	id, sess, err := s.Sessions.Create()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.Metrics.ActiveSessions.Set(float64(s.Sessions.Len()))

	log.Debug().Str("session", id.String()).Msg("Session created")

	view, err := s.viewSession(id, sess)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// HandleSessionGet returns the state of a session with its marker and pins.
func (s *ServerContext) HandleSessionGet(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	view, err := s.viewSession(id, sess)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleSessionDelete ends a session.
func (s *ServerContext) HandleSessionDelete(w http.ResponseWriter, r *http.Request) {
	id, _, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	s.Sessions.Delete(id)
	s.Metrics.ActiveSessions.Set(float64(s.Sessions.Len()))
	w.WriteHeader(http.StatusNoContent)
}

type actionRequest struct {
	Show       *bool         `json:"show,omitempty"`
	Position   *geo.GeoPoint `json:"position,omitempty"`
	Query      string        `json:"query"`
	RoomNumber string        `json:"room_number"`
	Floor      string        `json:"floor"`
}

// HandleSessionAction applies one user action to a session.
func (s *ServerContext) HandleSessionAction(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	// an empty body is fine for actions without arguments
	var req actionRequest
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	err = nil

	action := r.PathValue("action")
	switch action {
	case "open":
		sess.OpenSearch()
	case "close":
		sess.CloseSearch()
	case "query":
		sess.Query(req.Query)
		s.Metrics.Searches.Inc()
	case "mark":
		entry, found := s.Search.Lookup(req.RoomNumber)
		if !found {
			writeError(w, http.StatusNotFound, fmt.Errorf("unknown room %q", req.RoomNumber))
			return
		}
		err = sess.MarkLocation(entry)
	case "floor":
		err = sess.ChangeFloor(req.Floor)
	case "location":
		if req.Show == nil {
			writeError(w, http.StatusBadRequest, errors.New("show is required"))
			return
		}
		sess.ShowLocation(*req.Show)
	case "clear":
		sess.ClearPins()
	case "position":
		if req.Position == nil || !req.Position.IsFinite() {
			writeError(w, http.StatusBadRequest, errors.New("a finite position is required"))
			return
		}
		sess.UpdatePosition(*req.Position)
		s.Metrics.PositionSamples.Inc()
	default:
		http.NotFound(w, r)
		return
	}

	if errors.Is(err, session.ErrUnknownFloor) {
		writeError(w, http.StatusBadRequest, err)
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	log.Debug().
		Str("session", id.String()).
		Str("action", action).
		Msg("Session action applied")

	view, err := s.viewSession(id, sess)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *ServerContext) lookupSession(w http.ResponseWriter, r *http.Request) (uuid.UUID, *session.Session, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid session id: %w", err))
		return uuid.Nil, nil, false
	}

	sess, err := s.Sessions.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return uuid.Nil, nil, false
	}

	return id, sess, true
}

// HandleFloorMap serves the floor plan image.
func (s *ServerContext) HandleFloorMap(w http.ResponseWriter, r *http.Request) {
	floor, ok := s.Floors[r.PathValue("floor")]
	if !ok {
		http.NotFound(w, r)
		return
	}

	if config.IsURL(floor.image) {
		http.Redirect(w, r, floor.image, http.StatusFound)
		return
	}

	if !s.serveFile(w, r, floor.image, "") {
		http.NotFound(w, r)
	}
}

// HandleFavicon serves the site favicon.
func (s *ServerContext) HandleFavicon(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(s.Favicon)
}

// HandleIndex serves the main HTML application.
func (s *ServerContext) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && strings.Contains(r.URL.Path, ".") {
		http.NotFound(w, r)
		return
	}

	etag := fmt.Sprintf(`"%x"`, len(s.IndexHTML))

	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, no-cache")
	_, _ = w.Write(s.IndexHTML)
}

// serveFile tries to serve a file from disk with ETag generation.
// It returns true if the file was found and served (or 304).
func (s *ServerContext) serveFile(w http.ResponseWriter, r *http.Request, path string, contentType string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if info.IsDir() {
		return false
	}

	buf := make([]byte, 0, etagCap)
	buf = append(buf, '"')
	buf = strconv.AppendInt(buf, info.Size(), 16)
	buf = append(buf, '-')
	buf = strconv.AppendInt(buf, info.ModTime().UnixNano(), 16)
	buf = append(buf, '"')
	etag := string(buf)

	// check If-None-Match (client sent ETag)
	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, no-cache")

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	http.ServeFile(w, r, path)
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
