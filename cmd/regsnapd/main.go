package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
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

// getEnvDuration parses a duration from environment variable or returns default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func main() {
	configPath := flag.String("config", getEnv("REGSNAP_CONFIG", ""), "Path to config file (REGSNAP_CONFIG)")
	interval := flag.Duration("interval", getEnvDuration("REGSNAP_INTERVAL", 6*time.Hour), "Time between scheduled runs (REGSNAP_INTERVAL)")
	listenAddr := flag.String("listen", getEnv("REGSNAP_LISTEN", ""), "Address for the HTTP trigger API, empty to disable (REGSNAP_LISTEN)")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
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
	handler := scrape.NewHandler(runner, cfg.SourceList(), logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

	var srv *http.Server
	if *listenAddr != "" {
		trigger := scrape.NewTriggerServer(handler, logger)
		srv = &http.Server{Addr: *listenAddr, Handler: trigger.Mux()}
		go func() {
			logger.Info("trigger API listening", "addr", *listenAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("trigger API failed", "error", err)
			}
		}()
	}

	// Scheduled passes: one immediately, then on every tick until shutdown.
	done := make(chan struct{})
	go func() {
		defer close(done)

		logger.Info("starting scheduled runs", "interval", *interval)
		runPass(ctx, handler, cfg.Run.Timeout(), logger)

		ticker := time.NewTicker(*interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runPass(ctx, handler, cfg.Run.Timeout(), logger)
			}
		}
	}()

	for {
		sig := <-sigChan
		if sig == syscall.SIGHUP {
			logger.Info("SIGHUP received, ignoring")
			continue
		}
		logger.Info("shutting down", "signal", sig.String())
		break
	}
	cancel()

	if srv != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("trigger API shutdown failed", "error", err)
		}
		cancelShutdown()
	}

	// Let an in-flight pass drain before exiting.
	drainTimer := time.NewTimer(30 * time.Second)
	defer drainTimer.Stop()
	select {
	case <-done:
		logger.Info("scrape loop stopped")
	case <-drainTimer.C:
		logger.Warn("drain timeout exceeded, exiting anyway")
	}
}

// runPass executes one pass under the configured deadline.
func runPass(ctx context.Context, handler *scrape.Handler, timeout time.Duration, logger *log.Logger) {
	if ctx.Err() != nil {
		return
	}

	passCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp := handler.Handle(passCtx, nil)
	logger.Debug("pass response", "status", resp.StatusCode, "body", resp.Body)
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
