// hwcored is the hardware control daemon for tablet-class boards.
//
// It owns the camera sensor and the DSI-LVDS display path: power
// sequencing, mode programming, stream control, and runtime controls.
// Operations arrive over the REST API or the MQTT command plane; state
// transitions fan out to WebSocket clients, the transition history in
// SQLite, and optionally InfluxDB telemetry.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/tabwork/hwcore/migrations"

	"github.com/tabwork/hwcore/internal/api"
	"github.com/tabwork/hwcore/internal/camera"
	"github.com/tabwork/hwcore/internal/display"
	"github.com/tabwork/hwcore/internal/infrastructure/config"
	"github.com/tabwork/hwcore/internal/infrastructure/database"
	"github.com/tabwork/hwcore/internal/infrastructure/influxdb"
	"github.com/tabwork/hwcore/internal/infrastructure/logging"
	"github.com/tabwork/hwcore/internal/infrastructure/mqtt"
	"github.com/tabwork/hwcore/internal/manager"
	"github.com/tabwork/hwcore/internal/power"
	"github.com/tabwork/hwcore/internal/regio"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// Well-known device IDs.
const (
	cameraDeviceID  = "camera0"
	displayDeviceID = "display0"
)

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting hwcore",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Build the device manager
	mgr := manager.New(manager.Deps{
		Store:   manager.NewStore(db.DB),
		Metrics: influxClient,
		Logger:  log,
	})

	// Bring up the camera sensor (if configured)
	if cfg.Hardware.Camera.Enabled {
		sensor, conn, buildErr := buildCamera(cfg.Hardware.Camera, log)
		if buildErr != nil {
			return fmt.Errorf("building camera: %w", buildErr)
		}
		defer conn.Close() //nolint:errcheck // bus fd released at shutdown

		if addErr := mgr.Add(manager.NewCameraDevice(cameraDeviceID, sensor)); addErr != nil {
			return fmt.Errorf("registering camera: %w", addErr)
		}
		if restoreErr := mgr.RestoreControls(ctx, cameraDeviceID); restoreErr != nil {
			log.Warn("control restore failed", "device_id", cameraDeviceID, "error", restoreErr)
		}
		log.Info("camera registered",
			"bus", cfg.Hardware.Camera.Bus,
			"address", fmt.Sprintf("0x%02x", cfg.Hardware.Camera.Address),
		)
	}

	// Bring up the display path (if configured)
	if cfg.Hardware.Display.Enabled {
		panel, conn, buildErr := buildDisplay(cfg.Hardware.Display, log)
		if buildErr != nil {
			return fmt.Errorf("building display: %w", buildErr)
		}
		defer conn.Close() //nolint:errcheck // bus fd released at shutdown

		if addErr := mgr.Add(manager.NewDisplayDevice(displayDeviceID, panel)); addErr != nil {
			return fmt.Errorf("registering display: %w", addErr)
		}
		log.Info("display registered",
			"bus", cfg.Hardware.Display.Bus,
			"address", fmt.Sprintf("0x%02x", cfg.Hardware.Display.Address),
		)
	}

	// Start the MQTT command plane
	if mqttClient != nil {
		plane := manager.NewCommandPlane(mgr, mqttClient, byte(cfg.MQTT.QoS), log)
		if startErr := plane.Start(ctx); startErr != nil {
			return fmt.Errorf("starting command plane: %w", startErr)
		}
		log.Info("MQTT command plane started")
	}

	// Start the API server
	server, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log,
		Manager:  mgr,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	// SIGUSR1 suspends all devices, SIGUSR2 resumes them. Platform sleep
	// hooks (systemd sleep scripts) drive these.
	go watchSuspendSignals(ctx, mgr, log)

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Power devices down before the deferred teardown releases the buses.
	shutdownDevices(mgr, log)

	log.Info("hwcore stopped")
	return nil
}

// buildCamera opens the sensor's bus endpoint and assembles its power
// sequencer from the configured rails.
func buildCamera(cfg config.CameraConfig, log *logging.Logger) (*camera.Sensor, *regio.I2CConn, error) {
	conn, err := regio.OpenI2C(cfg.Bus, cfg.Address)
	if err != nil {
		return nil, nil, fmt.Errorf("opening camera bus: %w", err)
	}

	sensor, err := camera.New(camera.Options{
		Conn:   conn,
		Power:  power.NewSequencer(railResources(cfg.Rails), log),
		Reset:  pinSwitch(cfg.Reset),
		Logger: log,
	})
	if err != nil {
		conn.Close() //nolint:errcheck // discard close error on construction failure
		return nil, nil, err
	}

	return sensor, conn, nil
}

// buildDisplay opens the bridge's bus endpoint and assembles the
// bridge-plus-panel pair.
func buildDisplay(cfg config.DisplayConfig, log *logging.Logger) (*display.Panel, *regio.I2CConn, error) {
	conn, err := regio.OpenI2C(cfg.Bus, cfg.Address)
	if err != nil {
		return nil, nil, fmt.Errorf("opening display bus: %w", err)
	}

	resources := display.BridgeResources(
		railSwitch(cfg.VDD),
		railSwitch(cfg.VDDIO),
		pinSwitch(cfg.LDO),
		pinSwitch(cfg.LVDS),
		pinSwitch(cfg.Power),
	)

	bridge, err := display.NewBridge(display.BridgeOptions{
		Conn:   conn,
		Power:  power.NewSequencer(resources, log),
		Logger: log,
	})
	if err != nil {
		conn.Close() //nolint:errcheck // discard close error on construction failure
		return nil, nil, err
	}

	return display.NewPanel(bridge, pinSwitch(cfg.Backlight), log), conn, nil
}

// railResources converts configured rails to power resources, in
// config order.
func railResources(rails []config.RailConfig) []power.Resource {
	resources := make([]power.Resource, 0, len(rails))
	for _, r := range rails {
		resources = append(resources, power.Resource{
			Name:     r.Name,
			Kind:     power.Kind(r.Kind),
			Optional: r.Optional,
			Switch:   railSwitch(r),
			Settle:   r.Settle(),
		})
	}
	return resources
}

// railSwitch builds the switch driving one rail. A rail with neither a
// GPIO nor a sysfs path returns nil, which the sequencer treats as
// absent hardware.
func railSwitch(r config.RailConfig) power.Switch {
	switch {
	case r.GPIO != nil:
		return &power.GPIOSwitch{Pin: power.OutputPin(*r.GPIO), ActiveLow: r.ActiveLow}
	case r.Sysfs != "":
		return &power.SysfsSwitch{Path: r.Sysfs}
	default:
		return nil
	}
}

// pinSwitch builds the switch for an optional control line.
func pinSwitch(p *config.PinConfig) power.Switch {
	if p == nil {
		return nil
	}
	return &power.GPIOSwitch{Pin: power.OutputPin(p.Number), ActiveLow: p.ActiveLow}
}

// watchSuspendSignals maps SIGUSR1/SIGUSR2 to suspend/resume sweeps.
func watchSuspendSignals(ctx context.Context, mgr *manager.Manager, log *logging.Logger) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGUSR1, syscall.SIGUSR2)
	defer signal.Stop(sigs)

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigs:
			switch sig {
			case syscall.SIGUSR1:
				log.Info("suspend signal received")
				mgr.SuspendAll(ctx)
			case syscall.SIGUSR2:
				log.Info("resume signal received")
				mgr.ResumeAll(ctx)
			}
		}
	}
}

// shutdownDevices powers every device down on the way out. Errors are
// logged; shutdown always completes.
func shutdownDevices(mgr *manager.Manager, log *logging.Logger) {
	ctx := context.Background()

	for _, id := range mgr.IDs() {
		if err := mgr.PowerOff(ctx, id); err != nil {
			log.Warn("power off failed during shutdown", "device_id", id, "error", err)
		}
	}
}

// getConfigPath returns the configuration file path.
// Uses HWCORE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HWCORE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// MQTT and InfluxDB checks are skipped when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
