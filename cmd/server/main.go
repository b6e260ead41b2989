package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mcoot/topten/internal/api"
	"github.com/mcoot/topten/internal/factory"
)

func main() {
	// A missing .env file is normal outside development
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newCmd(&Config{}).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *Config) error {
	logger, err := cfg.logger()
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	app, err := factory.New(cfg.factoryConfig(logger))
	if err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	defer app.Close()

	logger.Info("question pack loaded",
		slog.String("path", cfg.questions),
		slog.Any("categories", app.Questions.CategoryIDs()),
	)

	router := api.NewRouter(api.RouterConfig{
		Logger:      logger,
		Supervisor:  app.Supervisor,
		Questions:   app.Questions,
		Hubs:        app.Hubs,
		StorageType: app.StorageType,
	})

	server := api.NewServer(router, cfg.serverConfig(), logger)
	server.RegisterOnShutdown(app.Hubs.Close)

	if cfg.sweepInterval > 0 {
		go app.Supervisor.SweepEvery(ctx, cfg.sweepInterval)
	}

	if err := server.Run(ctx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
