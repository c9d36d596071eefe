package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aanand-mishra/records-api/internal/config"
	"github.com/aanand-mishra/records-api/internal/http/api"
	"github.com/aanand-mishra/records-api/internal/metrics"
	"github.com/aanand-mishra/records-api/internal/server"
	"github.com/aanand-mishra/records-api/internal/storage"
	"github.com/aanand-mishra/records-api/internal/storage/memory"
	"github.com/aanand-mishra/records-api/internal/storage/sqlite"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the records HTTP API server.

STARTUP SEQUENCE:
  1. Load configuration (--config, else $CONFIG_PATH, else environment/defaults)
  2. Initialise the logger
  3. Open the record store (memory or sqlite)
  4. Register all HTTP routes
  5. Serve until SIGINT / SIGTERM, then finish in-flight requests and exit`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)

	log.Info("starting records-api",
		slog.String("env", cfg.Env),
		slog.String("version", version),
	)

	store, err := openStorage(cfg.Storage)
	if err != nil {
		log.Error("failed to initialise storage", slog.String("error", err.Error()))
		return err
	}
	if closer, ok := store.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				log.Error("failed to close storage", slog.String("error", err.Error()))
			}
		}()
	}

	log.Info("storage initialised",
		slog.String("driver", cfg.Storage.Driver),
		slog.String("path", cfg.Storage.Path))

	opts := api.Options{Logger: log, TrustProxy: cfg.HTTPServer.TrustProxy}
	if !cfg.Metrics.Disabled {
		opts.Metrics = metrics.New()
		opts.MetricsPath = cfg.Metrics.Path
	}

	// Block until an OS signal (Ctrl+C / kill) arrives; cancelling ctx
	// starts the graceful shutdown inside Run.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg.HTTPServer, api.New(store, opts), log)
	if err := srv.Run(ctx); err != nil {
		log.Error("server encountered an error", slog.String("error", err.Error()))
		return err
	}

	return nil
}

// openStorage returns the backend named by cfg.Driver. Callers only see
// the storage.Storage interface.
func openStorage(cfg config.Storage) (storage.Storage, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverSQLite:
		s, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// setupLogger returns a *slog.Logger configured for the given environment.
//
// Development (dev): human-readable text output at DEBUG level.
// Production (prod): machine-readable JSON output at INFO level.
func setupLogger(env string) *slog.Logger {
	switch env {
	case "prod":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo, // INFO and above in production
			}),
		)
	case "staging":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug, // more verbose in staging
			}),
		)
	default: // "dev" and anything unrecognised
		return slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug, // all levels in development
			}),
		)
	}
}
