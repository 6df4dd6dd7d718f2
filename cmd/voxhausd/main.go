package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/voxhaus/voxhaus/pkg/logging"
	"github.com/voxhaus/voxhaus/pkg/runner"
	"github.com/voxhaus/voxhaus/pkg/voxhaus"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "voxhausd:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// Optional .env next to the binary, for ${VAR} expansion in config.
	_ = godotenv.Load()

	cfg, err := voxhaus.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	logger := logging.InitLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	logger.Info("starting_voxhausd",
		slog.String("environment", cfg.Environment),
		slog.String("config", *configPath))

	engine, err := voxhaus.NewEngine(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	daemon := runner.NewDaemon(engine, 15*time.Second, logger)
	return daemon.Run(ctx, engine.Start)
}
