package main

import (
	"crypto/tls"
	"net/http"
	"os"
	"time"

	"github.com/woozymasta/floorguide/internal/config"
	"github.com/woozymasta/floorguide/internal/logger"
	"github.com/woozymasta/floorguide/internal/processor"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile    string   `short:"c" long:"config"          env:"CONFIG_FILE"     description:"Path to configuration file" default:"config.yaml"`
	OutDir        string   `short:"o" long:"out"             env:"MAPS_DIR"        description:"Output directory for prepared floors" default:"maps"`
	Limit         []string `short:"l" long:"limit"           env:"LIMIT_FLOORS"    description:"Limit processing to specific floor ids"`
	Concurrency   int      `short:"p" long:"concurrency"     env:"CONCURRENCY"     description:"Concurrency" default:"4"`
	MaxWidth      int      `short:"w" long:"max-width"       env:"IMAGE_MAX_WIDTH" description:"Downscale floor images wider than this (overrides config)"`
	ImagesOnly    bool     `short:"i" long:"images-only"     description:"Prepare floor images only"`
	LocationsOnly bool     `short:"g" long:"locations-only"  description:"Export floor locations only"`
	Force         bool     `short:"f" long:"force"           description:"Force overwrite of existing files"`
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

	opts.Logger.Setup()

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	processImages := true
	processLocations := true
	if opts.ImagesOnly && !opts.LocationsOnly {
		processLocations = false
	} else if opts.LocationsOnly && !opts.ImagesOnly {
		processImages = false
	}

	if opts.MaxWidth > 0 {
		cfg.ImageMaxWidth = opts.MaxWidth
	}

	client := &http.Client{
		Transport: &http.Transport{
			TLSNextProto:        make(map[string]func(string, *tls.Conn) http.RoundTripper),
			MaxIdleConns:        16,
			MaxIdleConnsPerHost: 16,
		},
		Timeout: 60 * time.Second,
	}

	jobs := processor.Jobs(cfg, opts.Limit, opts.OutDir, opts.Force)

	log.Info().
		Int("floors_total", len(cfg.Floors)).
		Int("floors_queued", len(jobs)).
		Int("max_width", cfg.ImageMaxWidth).
		Msg("Starting loader")

	failed := 0

	if processLocations {
		entries, err := processor.CatalogEntries(cfg.Locations)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to build location catalog")
		}

		for _, j := range jobs {
			if err := processor.ExportLocations(entries, j.Floor, j.OutDir, opts.Force); err != nil {
				log.Error().Err(err).Str("floor", j.Floor).Msg("Failed to export locations")
				failed++
			}
		}
	}

	if processImages {
		for _, res := range processor.ProcessFloors(client, jobs, opts.Concurrency) {
			if res.Err != nil {
				failed++
			}
		}
	}

	if failed > 0 {
		log.Fatal().Int("failed", failed).Msg("Loader finished with errors")
	}

	log.Info().Msg("Loader finished successfully")
}
