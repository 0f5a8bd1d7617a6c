package main

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/gridctl/internal/api"
	"github.com/nerrad567/gridctl/internal/controller"
	"github.com/nerrad567/gridctl/internal/diagnostics"
	"github.com/nerrad567/gridctl/internal/history"
	"github.com/nerrad567/gridctl/internal/host"
	"github.com/nerrad567/gridctl/internal/infrastructure/config"
	"github.com/nerrad567/gridctl/internal/infrastructure/database"
	"github.com/nerrad567/gridctl/internal/infrastructure/influxdb"
	"github.com/nerrad567/gridctl/internal/infrastructure/logging"
	"github.com/nerrad567/gridctl/internal/infrastructure/metrics"
	"github.com/nerrad567/gridctl/internal/infrastructure/mqtt"
)

// shutdownTimeout bounds how long serve waits for an in-flight invocation.
const shutdownTimeout = 15 * time.Second

// serve runs the long-lived host: scheduled status ticks, MQTT command and
// state ingress, and the operator API. It returns when ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, log *logging.Logger) error {
	log.Info("starting gridctl",
		"version", version,
		"commit", commit,
		"build_date", date,
		"construct", cfg.Construct.ID,
	)

	db, registry, err := openRegistry(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing database")
		closeDB(db, log)
	}()
	log.Info("device registry initialised", "devices", registry.GetStats().TotalDevices)

	sinks := controller.MultiSink{}
	var recorder *metrics.Recorder
	if cfg.Metrics.Enabled {
		recorder = metrics.New()
		sinks = append(sinks, recorder)
	}

	influx, err := connectInflux(cfg, log)
	if err != nil {
		return err
	}
	defer closeInflux(influx, log)
	if influx != nil {
		sinks = append(sinks, influx)
	}

	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = connectMQTT(cfg, log)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
	} else {
		log.Info("MQTT disabled")
	}

	echo := diagnostics.New(log, diagnostics.DefaultCapacity)
	ctrl := newController(ctx, cfg, registry, echo, sinks, log)

	invocations := history.NewSQLiteRepository(db.DB)
	opts := host.Options{
		ConstructID: cfg.Construct.ID,
		History:     invocations,
		Logger:      log.With("component", "host"),
	}
	if cfg.Schedule.Enabled {
		opts.Schedule = cfg.Schedule.Spec
	}
	if mqttClient != nil {
		opts.Broker = mqttClient
		opts.Echo = echo
	}

	h, err := host.New(registry, ctrl, opts)
	if err != nil {
		return fmt.Errorf("creating host: %w", err)
	}
	if err := h.Start(ctx); err != nil {
		return fmt.Errorf("starting host: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if stopErr := h.Stop(stopCtx); stopErr != nil {
			log.Error("error stopping host", "error", stopErr)
		}
	}()

	if cfg.API.Enabled {
		server, apiErr := startAPI(ctx, cfg, log, registry, h, echo, invocations, recorder, db, mqttClient, influx)
		if apiErr != nil {
			return apiErr
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	// Run the first status update immediately rather than waiting a tick.
	if _, err := h.Invoke(ctx, ""); err != nil {
		log.Warn("initial status update failed", "error", err)
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")
	return nil
}

func connectMQTT(cfg *config.Config, log *logging.Logger) (*mqtt.Client, error) {
	client, err := mqtt.Connect(cfg.MQTT, log.With("component", "mqtt"))
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)
	return client, nil
}

// startAPI builds and starts the operator API. Optional collaborators are
// reported on /api/v1/system when present.
func startAPI(
	ctx context.Context,
	cfg *config.Config,
	log *logging.Logger,
	registry api.DeviceRegistry,
	h *host.Host,
	echo *diagnostics.Channel,
	invocations *history.SQLiteRepository,
	recorder *metrics.Recorder,
	db *database.DB,
	mqttClient *mqtt.Client,
	influx *influxdb.Client,
) (*api.Server, error) {
	checks := map[string]api.HealthChecker{"database": db}
	if mqttClient != nil {
		checks["mqtt"] = mqttClient
	}
	if influx != nil {
		checks["influxdb"] = influx
	}

	deps := api.Deps{
		Config:   cfg.API,
		Logger:   log.With("component", "api"),
		Registry: registry,
		Host:     h,
		Echo:     echo,
		History:  invocations,
		Checks:   checks,
		Version:  version,
	}
	if recorder != nil {
		deps.Metrics, deps.MetricsPath = recorder.Handler(), cfg.Metrics.Path
	}

	server, err := api.New(deps)
	if err != nil {
		return nil, fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting API server: %w", err)
	}
	return server, nil
}
