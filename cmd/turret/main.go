// Turret - camera-aimed sentry turret.
// Tracks faces with an OpenCV cascade, aims the turret over a serial link,
// plays sound cues and takes voice or dashboard commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/teslashibe/go-turret/internal/config"
	"github.com/teslashibe/go-turret/internal/log"
	"github.com/teslashibe/go-turret/pkg/app"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, code, exit := parseArgs(args, os.Stdout, os.Stderr)
	if exit {
		return code
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration error: %v\n", err)
		return exitFailure
	}

	a, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration error: %v\n", err)
		return exitFailure
	}

	if err := a.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Initialization failed: %v\n", err)
		return exitFailure
	}
	defer a.Shutdown()
	opts.report(log.L(), cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Run(ctx); err != nil {
		log.Error("runtime error", "error", err)
		return exitFailure
	}
	return exitOK
}

// loadConfig layers defaults, the YAML file, environment and flags.
func loadConfig(opts options) (config.Config, error) {
	cfg, err := config.Load(afero.NewOsFs(), opts.configPath)
	if err != nil {
		return cfg, err
	}
	if err := cfg.LoadEnv(); err != nil {
		return cfg, err
	}
	opts.apply(&cfg)
	return cfg, nil
}
