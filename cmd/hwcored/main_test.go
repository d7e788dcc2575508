package main

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/tabwork/hwcore/internal/infrastructure/config"
	"github.com/tabwork/hwcore/internal/power"
)

// TestRun_InvalidConfig verifies run fails with an invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	originalEnv := os.Getenv("HWCORE_CONFIG")
	defer os.Setenv("HWCORE_CONFIG", originalEnv)

	os.Setenv("HWCORE_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

func TestGetConfigPath(t *testing.T) {
	originalEnv := os.Getenv("HWCORE_CONFIG")
	defer os.Setenv("HWCORE_CONFIG", originalEnv)

	os.Setenv("HWCORE_CONFIG", "/etc/hwcore/config.yaml")
	if got := getConfigPath(); got != "/etc/hwcore/config.yaml" {
		t.Errorf("getConfigPath() = %q", got)
	}

	os.Unsetenv("HWCORE_CONFIG")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want default", got)
	}
}

func TestRailSwitch(t *testing.T) {
	gpio := 106
	tests := []struct {
		name string
		rail config.RailConfig
		want string
	}{
		{"gpio rail", config.RailConfig{Name: "dovdd", Kind: "gpio", GPIO: &gpio}, "*power.GPIOSwitch"},
		{"sysfs rail", config.RailConfig{Name: "avdd", Kind: "regulator", Sysfs: "/sys/x/state"}, "*power.SysfsSwitch"},
		{"absent rail", config.RailConfig{Name: "mclk", Kind: "clock"}, "nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sw := railSwitch(tt.rail)
			switch tt.want {
			case "*power.GPIOSwitch":
				if _, ok := sw.(*power.GPIOSwitch); !ok {
					t.Errorf("railSwitch() = %T", sw)
				}
			case "*power.SysfsSwitch":
				if _, ok := sw.(*power.SysfsSwitch); !ok {
					t.Errorf("railSwitch() = %T", sw)
				}
			case "nil":
				if sw != nil {
					t.Errorf("railSwitch() = %T, want nil", sw)
				}
			}
		})
	}
}

func TestPinSwitch_NilConfig(t *testing.T) {
	if sw := pinSwitch(nil); sw != nil {
		t.Errorf("pinSwitch(nil) = %T, want nil", sw)
	}
	if sw := pinSwitch(&config.PinConfig{Number: 149, ActiveLow: true}); sw == nil {
		t.Error("pinSwitch() returned nil for configured pin")
	}
}

func TestRailResources_PreservesOrder(t *testing.T) {
	gpio := 10
	rails := []config.RailConfig{
		{Name: "dvdd", Kind: "regulator", Sysfs: "/sys/a", SettleMS: 5},
		{Name: "dovdd", Kind: "gpio", GPIO: &gpio},
		{Name: "mclk", Kind: "clock", Optional: true},
	}

	resources := railResources(rails)
	if len(resources) != 3 {
		t.Fatalf("railResources() returned %d resources", len(resources))
	}
	if resources[0].Name != "dvdd" || resources[1].Name != "dovdd" || resources[2].Name != "mclk" {
		t.Errorf("order = %s, %s, %s", resources[0].Name, resources[1].Name, resources[2].Name)
	}
	if resources[0].Settle != 5*time.Millisecond {
		t.Errorf("settle = %v", resources[0].Settle)
	}
	if !resources[2].Optional || resources[2].Switch != nil {
		t.Errorf("mclk = %+v", resources[2])
	}
	if resources[0].Kind != power.KindRegulator {
		t.Errorf("kind = %v", resources[0].Kind)
	}
}
