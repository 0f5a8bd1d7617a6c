package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"github.com/nerrad567/gridctl/internal/controller"
	"github.com/nerrad567/gridctl/internal/device"
	"github.com/nerrad567/gridctl/internal/history"
	"github.com/nerrad567/gridctl/internal/host"
	"github.com/nerrad567/gridctl/internal/infrastructure/config"
	"github.com/nerrad567/gridctl/internal/infrastructure/influxdb"
	"github.com/nerrad567/gridctl/internal/infrastructure/logging"
	"github.com/nerrad567/gridctl/internal/provision"
)

// newController builds the controller from the config's names and policy.
func newController(ctx context.Context, cfg *config.Config, registry *device.Registry, echo controller.Echoer, sink controller.MetricSink, log *logging.Logger) *controller.Controller {
	c := cfg.Controller
	return controller.New(ctx, registry, controller.Options{
		Names: controller.Names{
			Display:          c.Display,
			Target:           c.Target,
			AlertLights:      c.AlertLights,
			Batteries:        c.Batteries,
			OxygenTanks:      c.OxygenTanks,
			HydrogenTanks:    c.HydrogenTanks,
			CargoDestination: c.CargoDestination,
		},
		Self:                     c.Self,
		ConstructID:              cfg.Construct.ID,
		AllowDestinationOverride: c.AllowDestinationOverride,
		FontSize:                 c.FontSize,
		Policy:                   controller.NewPolicy(c.RefinedMaterials),
		Echo:                     echo,
		Metrics:                  sink,
		Logger:                   log.With("component", "controller"),
	})
}

// connectInflux returns the InfluxDB sink, or nil when disabled.
func connectInflux(cfg *config.Config, log *logging.Logger) (*influxdb.Client, error) {
	if !cfg.InfluxDB.Enabled {
		log.Info("InfluxDB disabled")
		return nil, nil
	}
	client, err := influxdb.Connect(cfg.InfluxDB, cfg.Construct.ID, log.With("component", "influxdb"))
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	log.Info("InfluxDB connected",
		"url", cfg.InfluxDB.URL,
		"org", cfg.InfluxDB.Org,
		"bucket", cfg.InfluxDB.Bucket,
	)
	return client, nil
}

func closeInflux(client *influxdb.Client, log *logging.Logger) {
	if client == nil {
		return
	}
	if err := client.Close(); err != nil {
		log.Error("error closing InfluxDB", "error", err)
	}
}

// runOnce performs a single invocation, streaming echoed lines to stdout as
// they are produced.
func runOnce(ctx context.Context, cfg *config.Config, log *logging.Logger, args []string, stdout io.Writer) error {
	db, registry, err := openRegistry(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeDB(db, log)

	influx, err := connectInflux(cfg, log)
	if err != nil {
		return err
	}
	defer closeInflux(influx, log)

	var sink controller.MetricSink = controller.NopSink{}
	if influx != nil {
		sink = influx
	}

	ctrl := newController(ctx, cfg, registry, &printEcho{w: stdout}, sink, log)

	h, err := host.New(registry, ctrl, host.Options{
		ConstructID: cfg.Construct.ID,
		History:     history.NewSQLiteRepository(db.DB),
		Logger:      log,
	})
	if err != nil {
		return err
	}

	if _, err := h.Invoke(ctx, strings.Join(args, " ")); err != nil {
		return fmt.Errorf("invocation failed: %w", err)
	}
	return nil
}

// localScope resolves the construct and grid of the controller's self block,
// falling back to the configured construct.
func localScope(ctx context.Context, cfg *config.Config, registry *device.Registry) (constructID, gridID string) {
	constructID, gridID = cfg.Construct.ID, cfg.Construct.ID
	if cfg.Controller.Self == "" {
		return constructID, gridID
	}
	if self, err := registry.DeviceByName(ctx, cfg.Controller.Self); err == nil {
		return self.ConstructID(), self.GridID()
	}
	return constructID, gridID
}

// provisionNames prefixes every block name in scope.
func provisionNames(ctx context.Context, cfg *config.Config, log *logging.Logger, args []string, stdout io.Writer) error {
	flags := pflag.NewFlagSet("provision", pflag.ContinueOnError)
	flags.SetOutput(stdout)
	prefix := flags.String("prefix", cfg.Provision.Prefix, "prefix to prepend to block names")
	scope := flags.String("scope", cfg.Provision.Scope, "grid (local grid only) or construct")
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	parsedScope, err := provision.ParseScope(*scope)
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	db, registry, err := openRegistry(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeDB(db, log)

	constructID, gridID := localScope(ctx, cfg, registry)
	echo := &printEcho{w: stdout}
	report, err := provision.New(registry, echo, log.With("component", "provision")).Run(ctx, provision.Options{
		Prefix:      *prefix,
		Scope:       parsedScope,
		GridID:      gridID,
		ConstructID: constructID,
	})
	log.Info("provisioning finished",
		"renamed", report.Renamed,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)
	return err
}

// seed imports a layout file into the registry.
func seed(ctx context.Context, cfg *config.Config, log *logging.Logger, args []string, stdout io.Writer) error {
	flags := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	flags.SetOutput(stdout)
	layoutPath := flags.String("layout", "", "path to a layout YAML file")
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if *layoutPath == "" {
		return fmt.Errorf("%w: --layout is required", errUsage)
	}

	layout, err := device.LoadLayout(*layoutPath)
	if err != nil {
		return err
	}

	db, registry, err := openRegistry(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeDB(db, log)

	summary, err := registry.ImportLayout(ctx, layout)
	if err != nil {
		return fmt.Errorf("importing layout: %w", err)
	}
	fmt.Fprintf(stdout, "Seeded %s: %d devices (%d already present), %d inventories, %d items, %d groups.\n",
		layout.Construct, summary.Devices, summary.Skipped, summary.Inventories, summary.Items, summary.Groups)
	return nil
}

// printEcho writes each diagnostic line to w.
type printEcho struct {
	w io.Writer
}

func (p *printEcho) Echo(line string) {
	fmt.Fprintln(p.w, line)
}
