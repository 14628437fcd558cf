// Command csvsheets reads a JSON pipeline config, ingests the configured
// delimited sources, and emits partitioned capacity-bounded sheets.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"syscall"

	"github.com/sverdz/CSV-and-EXEL/internal/config"
	"github.com/sverdz/CSV-and-EXEL/internal/metrics"
	"github.com/sverdz/CSV-and-EXEL/internal/metrics/datadog"
	"github.com/sverdz/CSV-and-EXEL/internal/pipeline"

	_ "github.com/sverdz/CSV-and-EXEL/internal/sheet/csvsink"
	_ "github.com/sverdz/CSV-and-EXEL/internal/sheet/xlsx"
	_ "github.com/sverdz/CSV-and-EXEL/internal/spool/mssql"
	_ "github.com/sverdz/CSV-and-EXEL/internal/spool/postgres"
	_ "github.com/sverdz/CSV-and-EXEL/internal/spool/sqlite"
)

var yearRE = regexp.MustCompile(`(19|20)\d{2}`)

// inferPartitions fills empty source partitions from the first plausible
// year in the filename, the usual convention for this data.
func inferPartitions(cfg *config.Pipeline) error {
	for i := range cfg.Sources {
		if cfg.Sources[i].Partition != "" {
			continue
		}
		base := filepath.Base(cfg.Sources[i].Path)
		y := yearRE.FindString(base)
		if y == "" {
			return fmt.Errorf("sources[%d]: no partition set and no year in filename %q", i, base)
		}
		cfg.Sources[i].Partition = y
	}
	return nil
}

func main() {
	configPath := flag.String("config", "", "path to JSON pipeline config (required)")
	metricsKind := flag.String("metrics", "", `metrics backend: "datadog", empty for none`)
	tags := flag.String("tags", "", "extra metric tags, comma-separated (e.g. env:prod,team:data)")
	flag.Parse()

	logger := log.New(os.Stderr, "csvsheets: ", log.LstdFlags)

	if *configPath == "" {
		logger.Fatal("-config is required")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal(err)
	}
	if err := inferPartitions(&cfg); err != nil {
		logger.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var mx metrics.Backend = metrics.Nop{}
	switch *metricsKind {
	case "":
	case "datadog":
		b, err := datadog.NewBackend(ctx, datadog.Options{
			JobName: cfg.Job,
			Tags:    datadog.ParseTagsCSV(*tags),
		})
		if err != nil {
			logger.Fatal(err)
		}
		mx = b
	default:
		logger.Fatalf("unknown metrics backend %q", *metricsKind)
	}

	r := pipeline.NewDefaultRunner()
	r.Log = logger
	r.Metrics = mx

	sheets, err := r.Run(ctx, cfg)
	if cerr := mx.Close(); cerr != nil {
		logger.Printf("metrics close: %v", cerr)
	}
	if err != nil {
		logger.Fatal(err)
	}

	for _, s := range sheets {
		fmt.Printf("%s\t%d rows\n", s.Name, s.Rows)
	}
}
