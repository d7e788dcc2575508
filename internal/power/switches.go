package power

import (
	"fmt"
	"os"

	"github.com/platinasystems/gpio"
)

// GPIOSwitch drives a sysfs GPIO line. ActiveLow inverts the level
// written for the logical on/off state.
type GPIOSwitch struct {
	Pin       gpio.Pin
	ActiveLow bool

	exported bool
}

// Set drives the line to the requested logical state. The pin
// direction is programmed on first use.
func (g *GPIOSwitch) Set(on bool) error {
	if !g.exported {
		if err := g.Pin.SetDirection(); err != nil {
			return fmt.Errorf("gpio %d: set direction: %w", g.Pin.Index(), err)
		}
		g.exported = true
	}

	level := on
	if g.ActiveLow {
		level = !on
	}

	if err := g.Pin.SetValue(level); err != nil {
		return fmt.Errorf("gpio %d: set value: %w", g.Pin.Index(), err)
	}

	return nil
}

// OutputPin builds an output pin at the given global GPIO number,
// initially driven low.
func OutputPin(number int) gpio.Pin {
	return gpio.IsOutputLo | gpio.Pin(number)
}

// SysfsSwitch toggles a kernel-exported attribute file. Regulators and
// clocks have no character-device interface from user space; boards
// that expose them at all do so as single-attribute sysfs files
// (userspace-consumer regulators, enable counts).
type SysfsSwitch struct {
	Path     string
	OnValue  string // written for on; "1" if empty
	OffValue string // written for off; "0" if empty
}

// Set writes the on or off value to the attribute file.
func (s *SysfsSwitch) Set(on bool) error {
	val := s.OffValue
	if on {
		val = s.OnValue
		if val == "" {
			val = "1"
		}
	} else if val == "" {
		val = "0"
	}

	if err := os.WriteFile(s.Path, []byte(val), 0o644); err != nil {
		return fmt.Errorf("sysfs %s: %w", s.Path, err)
	}

	return nil
}
