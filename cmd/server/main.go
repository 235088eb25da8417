package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/woozymasta/floorguide/internal/config"
	"github.com/woozymasta/floorguide/internal/feed"
	"github.com/woozymasta/floorguide/internal/logger"
	"github.com/woozymasta/floorguide/internal/metrics"
	"github.com/woozymasta/floorguide/internal/server"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string        `short:"c" long:"config"   env:"CONFIG_FILE"    description:"Path to configuration file"       default:"config.yaml"`
	Addr       string        `short:"a" long:"addr"     env:"LISTEN_ADDRESS" description:"Address to listen on"             default:"0.0.0.0"`
	Port       int           `short:"p" long:"port"     env:"LISTEN_PORT"    description:"Port to listen on"                default:"8080"`
	MapsDir    string        `short:"m" long:"maps-dir" env:"MAPS_DIR"       description:"Directory with prepared floor images" default:"maps"`
	Track      string        `short:"t" long:"track"    env:"FEED_TRACK"     description:"GeoJSON track replayed as the position feed (overrides config)"`
	SessionTTL time.Duration `long:"session-ttl" env:"SESSION_TTL" description:"Drop sessions idle for longer than this" default:"30m"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	// Setup Logging
	opts.Logger.Setup()

	// Load Config
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if opts.Track != "" {
		cfg.Feed.Track = opts.Track
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srvCtx, err := server.NewServerContext(cfg, metrics.NewMetrics(reg), opts.MapsDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize server context")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Feed.Track != "" {
		src, err := feed.LoadTrack(cfg.Feed.Track)
		if err != nil {
			log.Fatal().Err(err).Str("track", cfg.Feed.Track).Msg("Failed to load position track")
		}

		emitter := feed.NewEmitter(src, cfg.Feed.Interval)
		emitter.Subscribe(srvCtx.HandlePosition)
		go emitter.Run(ctx)

		log.Info().
			Str("track", cfg.Feed.Track).
			Dur("interval", cfg.Feed.Interval).
			Msg("Position feed started")
	}

	if opts.SessionTTL <= 0 {
		log.Fatal().Dur("session_ttl", opts.SessionTTL).Msg("Session TTL must be positive")
	}
	go srvCtx.ExpireSessions(ctx, opts.SessionTTL)

	listenAddr := fmt.Sprintf("%s:%d", opts.Addr, opts.Port)
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           srvCtx.Routes(reg),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown failed")
		}
	}()

	log.Info().
		Str("addr", listenAddr).
		Int("floors_loaded", len(cfg.Floors)).
		Int("locations_loaded", srvCtx.Search.Len()).
		Str("default_floor", cfg.DefaultFloor).
		Msg("Web server started")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}

	log.Info().Msg("Web server stopped")
}
