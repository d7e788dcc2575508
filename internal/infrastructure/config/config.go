package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for hwcore.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
	Hardware  HardwareConfig  `yaml:"hardware"`
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
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings, in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings for device
// telemetry. Disabled by default; hwcore runs fine without it.
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

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains JWT token settings. TTLs are in minutes.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"`
}

// HardwareConfig declares the buses and devices hwcore drives. A
// device absent here simply does not exist as far as the service is
// concerned.
type HardwareConfig struct {
	Camera  CameraConfig  `yaml:"camera"`
	Display DisplayConfig `yaml:"display"`
}

// CameraConfig declares the camera sensor: bus endpoint, reset line,
// and supply rails in power-on order.
type CameraConfig struct {
	Enabled bool         `yaml:"enabled"`
	Bus     int          `yaml:"bus"`
	Address uint16       `yaml:"address"`
	Reset   *PinConfig   `yaml:"reset"`
	Rails   []RailConfig `yaml:"rails"`
}

// DisplayConfig declares the DSI-LVDS bridge and the panel behind it:
// bus endpoint, supply rails, control lines, backlight.
type DisplayConfig struct {
	Enabled   bool       `yaml:"enabled"`
	Bus       int        `yaml:"bus"`
	Address   uint16     `yaml:"address"`
	VDD       RailConfig `yaml:"vdd"`
	VDDIO     RailConfig `yaml:"vddio"`
	LDO       *PinConfig `yaml:"ldo"`
	LVDS      *PinConfig `yaml:"lvds"`
	Power     *PinConfig `yaml:"power"`
	Backlight *PinConfig `yaml:"backlight"`
}

// RailConfig declares one supply rail or clock. GPIO and Sysfs select
// the control mechanism and are mutually exclusive; a rail with
// neither is treated as absent hardware.
type RailConfig struct {
	Name      string `yaml:"name"`
	Kind      string `yaml:"kind"` // regulator, gpio, clock
	GPIO      *int   `yaml:"gpio"`
	ActiveLow bool   `yaml:"active_low"`
	Sysfs     string `yaml:"sysfs"`
	Optional  bool   `yaml:"optional"`
	SettleMS  int    `yaml:"settle_ms"`
}

// PinConfig declares one GPIO control line.
type PinConfig struct {
	Number    int  `yaml:"number"`
	ActiveLow bool `yaml:"active_low"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: HWCORE_SECTION_KEY
// For example: HWCORE_DATABASE_PATH, HWCORE_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        "./data/hwcore.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Enabled: false,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "hwcore",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8095,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			Enabled: false,
			URL:     "http://localhost:8086",
			Org:     "hwcore",
			Bucket:  "telemetry",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 60,
			},
		},
		Hardware: HardwareConfig{
			Camera: CameraConfig{
				Enabled: true,
				Bus:     2,
				Address: 0x36,
			},
			Display: DisplayConfig{
				Enabled: true,
				Bus:     1,
				Address: 0x0f,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: HWCORE_SECTION_KEY.
// Only settings that vary between deployments get an override; hardware
// topology always comes from the file.
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("HWCORE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("HWCORE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("HWCORE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HWCORE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("HWCORE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("HWCORE_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// InfluxDB
	if v := os.Getenv("HWCORE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Security - JWT secret (IMPORTANT: always override in production)
	if v := os.Getenv("HWCORE_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
}

// Validate checks the configuration for errors and security issues.
// All problems are collected and reported together.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Token == "" {
			errs = append(errs, "influxdb.token is required when influxdb is enabled")
		}
	}

	// Security validation - JWT secret is REQUIRED.
	// The API drives physical hardware; a forged token means someone
	// else's hands on the power rails.
	const minJWTSecretLength = 32
	if c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required (set HWCORE_JWT_SECRET environment variable)")
	} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters for adequate security")
	}

	// Hardware validation
	if c.Hardware.Camera.Enabled {
		errs = append(errs, validateEndpoint("hardware.camera", c.Hardware.Camera.Bus, c.Hardware.Camera.Address)...)
		for i, rail := range c.Hardware.Camera.Rails {
			errs = append(errs, validateRail(fmt.Sprintf("hardware.camera.rails[%d]", i), rail)...)
		}
	}
	if c.Hardware.Display.Enabled {
		errs = append(errs, validateEndpoint("hardware.display", c.Hardware.Display.Bus, c.Hardware.Display.Address)...)
		errs = append(errs, validateRail("hardware.display.vdd", c.Hardware.Display.VDD)...)
		errs = append(errs, validateRail("hardware.display.vddio", c.Hardware.Display.VDDIO)...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// validateEndpoint checks a bus number and 7-bit slave address.
func validateEndpoint(prefix string, bus int, addr uint16) []string {
	var errs []string
	if bus < 0 {
		errs = append(errs, fmt.Sprintf("%s.bus must be >= 0", prefix))
	}
	// 7-bit addressing, reserved ranges excluded.
	if addr < 0x08 || addr > 0x77 {
		errs = append(errs, fmt.Sprintf("%s.address must be between 0x08 and 0x77, got %#x", prefix, addr))
	}
	return errs
}

// validateRail checks one rail declaration.
func validateRail(prefix string, rail RailConfig) []string {
	var errs []string
	switch rail.Kind {
	case "", "regulator", "gpio", "clock":
	default:
		errs = append(errs, fmt.Sprintf("%s.kind must be regulator, gpio, or clock, got %q", prefix, rail.Kind))
	}
	if rail.GPIO != nil && rail.Sysfs != "" {
		errs = append(errs, fmt.Sprintf("%s: gpio and sysfs are mutually exclusive", prefix))
	}
	if rail.GPIO != nil && *rail.GPIO < 0 {
		errs = append(errs, fmt.Sprintf("%s.gpio must be >= 0", prefix))
	}
	if rail.SettleMS < 0 {
		errs = append(errs, fmt.Sprintf("%s.settle_ms must be >= 0", prefix))
	}
	return errs
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

// GetAccessTokenTTL returns the JWT access token lifetime as a Duration.
func (c *Config) GetAccessTokenTTL() time.Duration {
	return time.Duration(c.Security.JWT.AccessTokenTTL) * time.Minute
}

// Settle returns the rail's settle delay as a Duration.
func (r RailConfig) Settle() time.Duration {
	return time.Duration(r.SettleMS) * time.Millisecond
}
