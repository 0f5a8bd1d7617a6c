package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for gridctl.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Construct  ConstructConfig  `yaml:"construct"`
	Controller ControllerConfig `yaml:"controller"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Provision  ProvisionConfig  `yaml:"provision"`
	Database   DatabaseConfig   `yaml:"database"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ConstructConfig identifies the vehicle or station this controller runs on.
type ConstructConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// ControllerConfig names the devices and groups the control loop works with.
type ControllerConfig struct {
	// Self is the controller's own block. Its construct and grid scope
	// "local" device enumeration. When empty, Construct.ID is used.
	Self string `yaml:"self"`

	Display       string `yaml:"display"`
	Target        string `yaml:"target"`
	AlertLights   string `yaml:"alert_lights"`
	Batteries     string `yaml:"batteries"`
	OxygenTanks   string `yaml:"oxygen_tanks"`
	HydrogenTanks string `yaml:"hydrogen_tanks"`

	// CargoDestination receives consolidated refined materials.
	CargoDestination string `yaml:"cargo_destination"`

	// AllowDestinationOverride lets "move_items <name>" pick another container.
	AllowDestinationOverride bool `yaml:"allow_destination_override"`

	FontSize         float64  `yaml:"font_size"`
	RefinedMaterials []string `yaml:"refined_materials"`
}

// ScheduleConfig controls the periodic status tick.
type ScheduleConfig struct {
	Enabled bool `yaml:"enabled"`
	// Spec is a robfig/cron expression, e.g. "@every 10s".
	Spec string `yaml:"spec"`
}

// ProvisionConfig contains settings for the name-prefixing pass.
type ProvisionConfig struct {
	Prefix string `yaml:"prefix"`
	// Scope is "grid" (controller's own grid only) or "construct".
	Scope string `yaml:"scope"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// APIConfig contains the operator HTTP API settings.
type APIConfig struct {
	Enabled   bool             `yaml:"enabled"`
	Host      string           `yaml:"host"`
	Port      int              `yaml:"port"`
	Timeouts  APITimeoutConfig `yaml:"timeouts"`
	CORS      CORSConfig       `yaml:"cors"`
	WebSocket WebSocketConfig  `yaml:"websocket"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig lists the origins allowed to call the API from a browser.
// An empty list allows all origins.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains settings for the diagnostics stream.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// MetricsConfig controls Prometheus instrumentation.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultRefinedMaterials is the consolidation policy list used when the
// config does not name one.
var DefaultRefinedMaterials = []string{
	"Iron",
	"Nickel",
	"Cobalt",
	"Silicon",
	"Gold",
	"Platinum",
	"Uranium",
	"Silver",
	"Magnesium",
	"Stone",
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GRIDCTL_SECTION_KEY
// For example: GRIDCTL_DATABASE_PATH, GRIDCTL_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults. The device names match the
// asteroid base layout the controller was first written for.
func Default() *Config {
	return &Config{
		Construct: ConstructConfig{
			ID:   "asteroid",
			Name: "Asteroid Base",
		},
		Controller: ControllerConfig{
			Display:          "Asteroid - Main LCD Panel",
			Target:           "Asteroid - S. Reactor A",
			AlertLights:      "Asteroid - Alert Lights",
			Batteries:        "Asteroid - Batteries",
			OxygenTanks:      "Asteroid - Oxygen Tanks",
			HydrogenTanks:    "Asteroid - Hydrogen Tanks",
			CargoDestination: "Asteroid - L. Cargo C",
			FontSize:         1.5,
			RefinedMaterials: append([]string(nil), DefaultRefinedMaterials...),
		},
		Schedule: ScheduleConfig{
			Enabled: true,
			Spec:    "@every 10s",
		},
		Provision: ProvisionConfig{
			Prefix: "GobCursor - ",
			Scope:  "grid",
		},
		Database: DatabaseConfig{
			Path:        "./data/gridctl.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "gridctl",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  15,
				Write: 15,
				Idle:  60,
			},
			WebSocket: WebSocketConfig{
				MaxMessageSize: 8192,
				PingInterval:   30,
				PongTimeout:    10,
			},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GRIDCTL_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GRIDCTL_CONSTRUCT_ID"); v != "" {
		cfg.Construct.ID = v
	}

	// Database
	if v := os.Getenv("GRIDCTL_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("GRIDCTL_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GRIDCTL_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("GRIDCTL_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GRIDCTL_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("GRIDCTL_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("GRIDCTL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Construct.ID == "" && c.Controller.Self == "" {
		errs = append(errs, "construct.id or controller.self is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.Controller.FontSize <= 0 {
		errs = append(errs, "controller.font_size must be positive")
	}

	if c.Schedule.Enabled {
		if strings.TrimSpace(c.Schedule.Spec) == "" {
			errs = append(errs, "schedule.spec is required when schedule is enabled")
		} else if _, err := cron.ParseStandard(c.Schedule.Spec); err != nil {
			errs = append(errs, fmt.Sprintf("schedule.spec: %v", err))
		}
	}

	switch c.Provision.Scope {
	case "grid", "construct":
	default:
		errs = append(errs, "provision.scope must be grid or construct")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url and influxdb.bucket are required when influxdb is enabled")
	}
	if c.InfluxDB.Enabled && c.Construct.ID == "" {
		errs = append(errs, "construct.id is required when influxdb is enabled")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
