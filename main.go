package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"tableserve/adapters/tabular"
	"tableserve/app"
	"tableserve/internal"
	"tableserve/internal/config"
	"tableserve/ui"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

// profilerHost keeps pprof off public interfaces regardless of HOST.
const profilerHost = "127.0.0.1"

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := internal.NewLogger(internal.ParseLogLevel(appConfig.Log.Level), os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, appConfig, logger); err != nil {
		logger.Error("Server stopped: %v", err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}

// run wires the loader, service and servers, and blocks until ctx is canceled or a server fails
func run(ctx context.Context, appConfig *config.Config, logger *internal.Logger) error {
	sourceConfig := tabular.DefaultSourceConfig(appConfig.Data.File)
	sourceConfig.Delimiter = appConfig.Data.Delimiter
	sourceConfig.Sheet = appConfig.Data.Sheet

	logger.Info("Using data source: %s", sourceConfig.FilePath)
	loader := tabular.NewFileLoader(sourceConfig, logger)
	service := app.NewTableService(loader)
	server := ui.NewServer(appConfig, service, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx)
	})

	if appConfig.Profiling.Enabled {
		g.Go(func() error {
			return ui.ServeProfiler(gctx, appConfig.Profiling.Addr(profilerHost), appConfig.Server.ShutdownTimeout, logger)
		})
	}

	return g.Wait()
}
