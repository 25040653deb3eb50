package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/vinieshwan/parking-system/internal/config"
	"github.com/vinieshwan/parking-system/internal/logger"
)

var cli struct {
	Config string `help:"Optional config file (yaml, json or toml). Environment variables override it." type:"path" env:"CONFIG_FILE"`

	Serve   serveCmd   `cmd:"" default:"1" help:"Run the HTTP API, the gate command consumer and background jobs."`
	Migrate migrateCmd `cmd:"" help:"Create tables or indexes for the configured storage driver."`
	Seed    seedCmd    `cmd:"" help:"Load the default parking complex into the configured storage."`
}

// appContext is passed to every command's Run method.
type appContext struct {
	ctx context.Context
	cfg *config.Config
	log logger.Logger
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("parking"),
		kong.Description("Parking complex allocation and billing service."),
		kong.UsageOnError(),
	)

	if cli.Config != "" {
		os.Setenv("CONFIG_FILE", cli.Config)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := kctx.Run(&appContext{ctx: ctx, cfg: cfg, log: log}); err != nil {
		log.Error("command failed", "command", kctx.Command(), "error", err)
		log.Sync()
		stop()
		os.Exit(1)
	}
}
