// gridctl is the grid controller for a player-built construct.
//
// It reports stored power and gas on a status panel, keeps the alert lights
// in step with a target block, consolidates refined materials into one cargo
// container and prefixes block names during provisioning.
//
// Usage:
//
//	gridctl [--config path] serve
//	gridctl [--config path] run [argument...]
//	gridctl [--config path] provision [--prefix P] [--scope grid|construct]
//	gridctl [--config path] seed --layout layout.yaml
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	_ "github.com/nerrad567/gridctl/migrations"

	"github.com/nerrad567/gridctl/internal/device"
	"github.com/nerrad567/gridctl/internal/infrastructure/config"
	"github.com/nerrad567/gridctl/internal/infrastructure/database"
	"github.com/nerrad567/gridctl/internal/infrastructure/logging"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// errUsage is returned for unknown subcommands and bad flags.
var errUsage = errors.New("usage error")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// run parses the global flags and hands the remaining arguments to the
// subcommand. With no subcommand it serves.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	flags := pflag.NewFlagSet("gridctl", pflag.ContinueOnError)
	flags.SetOutput(stdout)
	flags.SetInterspersed(false)
	configPath := flags.StringP("config", "c", "", "path to config.yaml (default $GRIDCTL_CONFIG or "+defaultConfigPath+")")
	showVersion := flags.Bool("version", false, "print version and exit")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	if *showVersion {
		fmt.Fprintf(stdout, "gridctl %s (commit %s, built %s)\n", version, commit, date)
		return nil
	}

	rest := flags.Args()
	command := "serve"
	if len(rest) > 0 {
		command, rest = rest[0], rest[1:]
	}

	cfg, err := config.Load(getConfigPath(*configPath))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log := logging.New(cfg.Logging, version)

	switch command {
	case "serve":
		return serve(ctx, cfg, log)
	case "run":
		return runOnce(ctx, cfg, log, rest, stdout)
	case "provision":
		return provisionNames(ctx, cfg, log, rest, stdout)
	case "seed":
		return seed(ctx, cfg, log, rest, stdout)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

// getConfigPath returns the configuration file path: the flag, then
// GRIDCTL_CONFIG, then the default.
func getConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if path := os.Getenv("GRIDCTL_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// openRegistry opens and migrates the database and loads the registry cache.
// The caller closes the database.
func openRegistry(ctx context.Context, cfg *config.Config, log *logging.Logger) (*database.DB, *device.Registry, error) {
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	registry := device.NewRegistry(
		device.NewSQLiteRepository(db.DB),
		device.NewSQLiteGroupRepository(db.DB),
		device.NewSQLiteInventoryRepository(db.DB),
	)
	registry.SetLogger(log)

	if err := registry.RefreshCache(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("loading device registry: %w", err)
	}
	log.Debug("device registry loaded", "devices", registry.GetStats().TotalDevices)
	return db, registry, nil
}

func closeDB(db *database.DB, log *logging.Logger) {
	if err := db.Close(); err != nil {
		log.Error("error closing database", "error", err)
	}
}
