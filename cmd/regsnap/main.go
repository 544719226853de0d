package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/pevans/regsnap/config"
	"github.com/pevans/regsnap/enrich"
	"github.com/pevans/regsnap/fetch"
	"github.com/pevans/regsnap/scrape"
	"github.com/pevans/regsnap/sink"
)

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configPath := flag.String("config", getEnv("REGSNAP_CONFIG", ""), "Path to config file (REGSNAP_CONFIG)")
	storageType := flag.String("storage", "", "Storage backend, file or sqlite (overrides config)")
	storagePath := flag.String("path", "", "Storage location (overrides config)")
	timeout := flag.Duration("timeout", 0, "Deadline for the whole run (overrides config)")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *storageType != "" {
		cfg.Storage.Type = *storageType
	}
	if *storagePath != "" {
		cfg.Storage.Path = *storagePath
	}
	if *timeout > 0 {
		cfg.Run.TimeoutSeconds = int(timeout.Seconds())
	}
	cfg.ApplyDefaults()
	if *verbose {
		cfg.Logging.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := buildLogger(cfg.Logging)

	store, closeStore, err := openSink(cfg.Storage)
	if err != nil {
		logger.Fatal("failed to open artifact storage", "type", cfg.Storage.Type, "path", cfg.Storage.Path, "error", err)
	}
	defer closeStore()

	fetcher := fetch.New(cfg.HTTP.Timeout(), cfg.HTTP.UserAgent)
	enricher := enrich.New(fetcher, enrich.DefaultRules(), logger.With("component", "enrich"))
	runner := scrape.New(fetcher, enricher, store, logger, scrape.Config{
		Attempts:          cfg.Run.Attempts,
		SourceConcurrency: cfg.Run.SourceConcurrency,
		EnrichConcurrency: cfg.Run.EnrichConcurrency,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Run.Timeout())
	defer cancel()

	report := runner.Run(ctx, cfg.SourceList())
	printReport(report)

	// The run itself always "succeeds": per-source failures are part of
	// the report, not the exit code.
	out, err := json.MarshalIndent(scrape.SuccessResponse(), "", "  ")
	if err != nil {
		logger.Fatal("failed to marshal response", "error", err)
	}
	fmt.Println(string(out))
}

// loadConfig reads the explicit config file when one is given, otherwise
// falls back to ~/.regsnap/config.yaml or the built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	cfg, err := config.LoadDefault()
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = &config.Config{}
	}
	return cfg, nil
}

// buildLogger assembles the process logger, optionally teeing output into
// a rotating file.
func buildLogger(cfg config.LoggingConfig) *log.Logger {
	level := log.InfoLevel
	if parsed, err := log.ParseLevel(cfg.Level); err == nil {
		level = parsed
	}

	var out io.Writer = os.Stderr
	if cfg.File != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		})
	}

	return log.NewWithOptions(out, log.Options{Level: level, ReportTimestamp: true})
}

// openSink opens the configured artifact store and returns it with its
// cleanup function.
func openSink(cfg config.StorageConfig) (sink.Sink, func() error, error) {
	switch cfg.Type {
	case config.StorageSQLite:
		store, err := sink.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		store, err := sink.NewFileStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() error { return nil }, nil
	}
}

// printReport prints a per-source summary table for the finished run.
func printReport(report *scrape.Report) {
	fmt.Printf("\nRun %s: %d succeeded, %d failed (%s)\n\n",
		report.RunID.String(),
		report.Succeeded(),
		report.Failed(),
		report.Finished.Sub(report.Started).Round(time.Millisecond),
	)

	fmt.Printf("%-20s %-9s %-14s %8s %8s %9s  %s\n",
		"SOURCE", "STRATEGY", "STATUS", "ATTEMPTS", "RECORDS", "DEGRADED", "ARTIFACT")
	fmt.Println("--------------------------------------------------------------------------------------------------")

	for _, res := range report.Results {
		artifact := res.Key
		if res.Err != nil {
			artifact = "error: " + res.Err.Error()
		}

		fmt.Printf("%-20s %-9s %-14s %8d %8d %9d  %s\n",
			res.Source,
			string(res.Strategy),
			string(res.Status),
			res.Attempts,
			res.Records,
			res.Degraded,
			artifact,
		)
	}
	fmt.Println()
}
