package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/woozymasta/floorguide/internal/config"
	"github.com/woozymasta/floorguide/internal/processor"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"
)

type Options struct {
	Input  string `short:"i" long:"in" description:"Configuration file path" default:"config.yaml"`
	Output string `short:"o" long:"out" description:"Output file path. Writes to stdout if empty"`
	Format string `short:"f" long:"format" description:"Output format" choice:"json" choice:"yaml" default:"json"`
	Floor  string `short:"F" long:"floor" description:"Export only locations of this floor"`
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

	cfg, err := config.Load(opts.Input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if opts.Floor != "" {
		if _, ok := cfg.Floors[opts.Floor]; !ok {
			fmt.Fprintf(os.Stderr, "Error: floor %q is not configured\n", opts.Floor)
			os.Exit(1)
		}
	}

	entries, err := processor.CatalogEntries(cfg.Locations)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building catalog: %v\n", err)
		os.Exit(1)
	}

	fc := processor.Catalog(entries, opts.Floor)

	var outputData []byte
	if opts.Format == "yaml" {
		outputData, err = yaml.Marshal(fc)
	} else {
		outputData, err = json.MarshalIndent(fc, "", "  ")
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling data: %v\n", err)
		os.Exit(1)
	}

	if opts.Output != "" {
		err = os.WriteFile(opts.Output, outputData, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Successfully exported %d locations to %s (format: %s)\n", len(fc.Features), opts.Output, opts.Format)
	} else {
		fmt.Println(string(outputData))
	}
}
