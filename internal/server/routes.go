package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes registers all handlers and wraps them in the request logger.
func (s *ServerContext) Routes(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/config", s.HandleConfig)
	mux.HandleFunc("GET /api/floors", s.HandleFloorsList)
	mux.HandleFunc("GET /api/floors/{floor}/normalize", s.HandleNormalize)
	mux.HandleFunc("GET /api/floors/{floor}/nearby", s.HandleNearby)
	mux.HandleFunc("GET /api/locations", s.HandleLocations)

	mux.HandleFunc("POST /api/sessions", s.HandleSessionCreate)
	mux.HandleFunc("GET /api/sessions/{id}", s.HandleSessionGet)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.HandleSessionDelete)
	mux.HandleFunc("POST /api/sessions/{id}/{action}", s.HandleSessionAction)

	mux.HandleFunc("GET /floors/{floor}/map", s.HandleFloorMap)
	mux.HandleFunc("GET /favicon.svg", s.HandleFavicon)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /", s.HandleIndex)

	return RequestLogger(mux)
}
