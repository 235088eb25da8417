package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/woozymasta/floorguide/internal/config"
	"github.com/woozymasta/floorguide/internal/geo"
	"github.com/woozymasta/floorguide/internal/locations"
	"github.com/woozymasta/floorguide/internal/metrics"
	"github.com/woozymasta/floorguide/internal/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
title: Campus
debug: true
floor: "1"
floors:
  "1":
    index: 0
    label: 1st Floor
    map: %MAP%
    geo_box:
      top_left: {x: 0, y: 10}
      top_right: {x: 10, y: 10}
      bottom_left: {x: 0, y: 0}
      bottom_right: {x: 10, y: 0}
  "2":
    index: 1
    label: 2nd Floor
    map: https://example.com/floors/2.png
    geo_box:
      top_left: {x: 0, y: 10}
      top_right: {x: 10, y: 10}
      bottom_left: {x: 0, y: 0}
      bottom_right: {x: 10, y: 0}
locations:
  - {label: Tokyo, room_number: 6W327, type: room, floor: "1", x: 2, y: 4}
  - {label: Library, room_number: "101", type: room, floor: "1", x: 50, y: 45}
  - {label: Cafe, room_number: "102", type: room, floor: "1", x: 80, y: 80}
  - {label: Chris Smith, room_number: 6R327, type: office, floor: "2", x: 22, y: 11}
`

type position struct {
	Top  string `json:"top"`
	Left string `json:"left"`
}

type sessionView struct {
	Marker *position  `json:"marker"`
	ID     string     `json:"id"`
	Pins   []position `json:"pins"`
	State  stateView  `json:"state"`
}

type stateView struct {
	ActivePin    *locations.Entry `json:"active_pin"`
	Position     *geo.GeoPoint    `json:"position"`
	Floor        string           `json:"floor"`
	Search       locations.State  `json:"search"`
	SearchOpen   bool             `json:"search_open"`
	ShowLocation bool             `json:"show_location"`
}

func newTestServer(t *testing.T) (*server.ServerContext, http.Handler, string) {
	t.Helper()

	dir := t.TempDir()
	mapPath := filepath.Join(dir, "1.png")
	require.NoError(t, os.WriteFile(mapPath, []byte("not really a png"), 0o600))

	cfg, err := config.Parse([]byte(strings.ReplaceAll(testConfig, "%MAP%", mapPath)))
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	srvCtx, err := server.NewServerContext(cfg, metrics.NewMetrics(reg), filepath.Join(dir, "maps"))
	require.NoError(t, err)

	return srvCtx, srvCtx.Routes(reg), mapPath
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestConfig(t *testing.T) {
	_, h, _ := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/config", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"title":"Campus","floor":"1","debug":true}`, rec.Body.String())
}

func TestFloorsList(t *testing.T) {
	_, h, _ := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/floors", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	floors := decode[[]map[string]any](t, rec)
	require.Len(t, floors, 2)
	assert.Equal(t, "1", floors[0]["id"])
	assert.Equal(t, "/floors/1/map", floors[0]["map_url"])
	assert.Equal(t, "2nd Floor", floors[1]["label"])
}

func TestLocations(t *testing.T) {
	_, h, _ := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/locations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[[]locations.Entry](t, rec)
	require.Len(t, all, 4)
	assert.Equal(t, "Cafe", all[0].Label)

	rec = do(t, h, http.MethodGet, "/api/locations?q=327", "")
	require.Equal(t, http.StatusOK, rec.Code)
	hits := decode[[]locations.Entry](t, rec)
	require.Len(t, hits, 2)
	assert.Equal(t, "Chris Smith", hits[0].Label)
	assert.Equal(t, "Tokyo", hits[1].Label)

	rec = do(t, h, http.MethodGet, "/api/locations?q=zzz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]locations.Entry](t, rec))
}

func TestNormalize(t *testing.T) {
	_, h, _ := newTestServer(t)

	tests := []struct {
		name   string
		target string
		status int
		top    string
		left   string
		inside bool
	}{
		{"center", "/api/floors/1/normalize?lat=5&lon=5", http.StatusOK, "50%", "50%", true},
		{"lower right quarter", "/api/floors/1/normalize?lat=2.5&lon=7.5", http.StatusOK, "75%", "75%", true},
		{"outside", "/api/floors/1/normalize?lat=12&lon=-2", http.StatusOK, "-20%", "-20%", false},
		{"missing lat", "/api/floors/1/normalize?lon=5", http.StatusBadRequest, "", "", false},
		{"bad lon", "/api/floors/1/normalize?lat=5&lon=east", http.StatusBadRequest, "", "", false},
		{"unknown floor", "/api/floors/9/normalize?lat=5&lon=5", http.StatusNotFound, "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, tt.target, "")
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status != http.StatusOK {
				return
			}

			resp := decode[struct {
				Floor    string   `json:"floor"`
				Position position `json:"position"`
				Inside   bool     `json:"inside"`
			}](t, rec)
			assert.Equal(t, "1", resp.Floor)
			assert.Equal(t, tt.top, resp.Position.Top)
			assert.Equal(t, tt.left, resp.Position.Left)
			assert.Equal(t, tt.inside, resp.Inside)
		})
	}
}

func TestNearby(t *testing.T) {
	_, h, _ := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/floors/1/nearby?lat=5&lon=5&n=1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[struct {
		Floor     string            `json:"floor"`
		Locations []locations.Entry `json:"locations"`
	}](t, rec)
	require.Len(t, resp.Locations, 1)
	assert.Equal(t, "Library", resp.Locations[0].Label)

	rec = do(t, h, http.MethodGet, "/api/floors/1/nearby?lat=5&lon=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[struct {
		Floor     string            `json:"floor"`
		Locations []locations.Entry `json:"locations"`
	}](t, rec)
	assert.Len(t, resp.Locations, 3)

	rec = do(t, h, http.MethodGet, "/api/floors/1/nearby?lat=5&lon=5&n=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionLifecycle(t *testing.T) {
	srvCtx, h, _ := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	view := decode[sessionView](t, rec)
	require.NotEmpty(t, view.ID)
	assert.Equal(t, "1", view.State.Floor)
	assert.False(t, view.State.SearchOpen)
	assert.Nil(t, view.Marker)
	assert.Empty(t, view.Pins)

	base := "/api/sessions/" + view.ID

	rec = do(t, h, http.MethodPost, base+"/open", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view = decode[sessionView](t, rec)
	assert.True(t, view.State.SearchOpen)
	assert.Len(t, view.State.Search.Results, 4)

	rec = do(t, h, http.MethodPost, base+"/query", `{"query":"LIB"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	view = decode[sessionView](t, rec)
	assert.Equal(t, "lib", view.State.Search.Query)
	require.Len(t, view.State.Search.Results, 1)

	rec = do(t, h, http.MethodPost, base+"/mark", `{"room_number":"6r327"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view = decode[sessionView](t, rec)
	assert.Equal(t, "2", view.State.Floor)
	assert.False(t, view.State.SearchOpen)
	require.NotNil(t, view.State.ActivePin)
	assert.Equal(t, "Chris Smith", view.State.ActivePin.Label)
	assert.Equal(t, []position{{Top: "11%", Left: "22%"}}, view.Pins)

	rec = do(t, h, http.MethodPost, base+"/mark", `{"room_number":"nope"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, base+"/floor", `{"floor":"9"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, base+"/floor", `{"floor":"1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	view = decode[sessionView](t, rec)
	assert.Equal(t, "1", view.State.Floor)
	assert.Nil(t, view.State.ActivePin)

	rec = do(t, h, http.MethodPost, base+"/position", `{"position":{"x":5,"y":5}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	view = decode[sessionView](t, rec)
	assert.Nil(t, view.Marker)

	rec = do(t, h, http.MethodPost, base+"/location", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, base+"/location", `{"show":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	view = decode[sessionView](t, rec)
	require.NotNil(t, view.Marker)
	assert.Equal(t, position{Top: "50%", Left: "50%"}, *view.Marker)

	// Positions from the feed reach every session
	srvCtx.HandlePosition(geo.GeoPoint{X: 7.5, Y: 2.5})
	rec = do(t, h, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rec.Code)
	view = decode[sessionView](t, rec)
	require.NotNil(t, view.Marker)
	assert.Equal(t, position{Top: "75%", Left: "75%"}, *view.Marker)

	rec = do(t, h, http.MethodPost, base+"/position", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, base+"/teleport", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, base+"/query", `{"query":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, srvCtx.Sessions.Len())

	rec = do(t, h, http.MethodGet, base, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/sessions/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFloorMap(t *testing.T) {
	_, h, _ := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/floors/1/map", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "not really a png", rec.Body.String())
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/floors/1/map", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)

	rec = do(t, h, http.MethodGet, "/floors/2/map", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://example.com/floors/2.png", rec.Header().Get("Location"))

	rec = do(t, h, http.MethodGet, "/floors/9/map", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPreparedFloorMap(t *testing.T) {
	dir := t.TempDir()
	prepared := filepath.Join(dir, "maps", "1", "map.webp")
	require.NoError(t, os.MkdirAll(filepath.Dir(prepared), 0o755))
	require.NoError(t, os.WriteFile(prepared, []byte("prepared"), 0o600))

	cfg, err := config.Parse([]byte(strings.ReplaceAll(testConfig, "%MAP%", "missing.png")))
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	srvCtx, err := server.NewServerContext(cfg, metrics.NewMetrics(reg), filepath.Join(dir, "maps"))
	require.NoError(t, err)

	rec := do(t, srvCtx.Routes(reg), http.MethodGet, "/floors/1/map", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "prepared", rec.Body.String())
}

func TestIndexAndAssets(t *testing.T) {
	srvCtx, h, _ := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, srvCtx.IndexHTML, rec.Body.Bytes())
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)

	rec = do(t, h, http.MethodGet, "/missing.js", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/favicon.svg", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<svg")
}

func TestMetricsEndpoint(t *testing.T) {
	_, h, _ := newTestServer(t)

	do(t, h, http.MethodGet, "/api/locations?q=lib", "")
	do(t, h, http.MethodGet, "/api/floors/1/normalize?lat=5&lon=5", "")

	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "floorguide_searches_total 1")
	assert.Contains(t, body, `floorguide_normalizations_total{floor="1",status="ok"} 1`)
}

func TestNewServerContextRejectsBadBox(t *testing.T) {
	cfg := &config.Config{
		DefaultFloor: "1",
		Floors: map[string]config.Floor{
			"1": {Map: "1.png"},
		},
	}

	_, err := server.NewServerContext(cfg, metrics.NewMetrics(prometheus.NewRegistry()), t.TempDir())
	require.ErrorIs(t, err, geo.ErrInvalidBox)
}

func TestEvictIdleSessions(t *testing.T) {
	srvCtx, h, _ := newTestServer(t)

	for i := 0; i < 20; i++ {
		rec := do(t, h, http.MethodPost, "/api/sessions", "")
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	require.Equal(t, 20, srvCtx.Sessions.Len())
	assert.Equal(t, 20.0, testutil.ToFloat64(srvCtx.Metrics.ActiveSessions))

	// Nothing is idle for an hour yet
	assert.Equal(t, 0, srvCtx.EvictIdleSessions(time.Hour))
	assert.Equal(t, 20, srvCtx.Sessions.Len())

	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 20, srvCtx.EvictIdleSessions(time.Millisecond))
	assert.Equal(t, 0, srvCtx.Sessions.Len())
	assert.Equal(t, 0.0, testutil.ToFloat64(srvCtx.Metrics.ActiveSessions))
}

func TestExpireSessionsStopsWithContext(t *testing.T) {
	srvCtx, _, _ := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srvCtx.ExpireSessions(ctx, time.Minute)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("session expiry loop did not stop")
	}
}

func TestFloorMapLocalPathLookingLikeURL(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, os.MkdirAll("httpdocs", 0o755))
	require.NoError(t, os.WriteFile(filepath.Join("httpdocs", "1.png"), []byte("local plan"), 0o600))

	cfg, err := config.Parse([]byte(strings.ReplaceAll(testConfig, "%MAP%", "httpdocs/1.png")))
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	srvCtx, err := server.NewServerContext(cfg, metrics.NewMetrics(reg), "maps")
	require.NoError(t, err)

	rec := do(t, srvCtx.Routes(reg), http.MethodGet, "/floors/1/map", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "local plan", rec.Body.String())
}
