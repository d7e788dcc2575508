// Package power sequences the supplies, lines and clocks a device
// needs before its bus interface is usable.
//
// A device declares an ordered list of resources. Bringing the device
// up enables them in that order with per-step settle delays; bringing
// it down disables them in reverse. A failure halfway through power-up
// rolls back everything already enabled so no rail is left floating.
package power

import (
	"errors"
	"fmt"
	"time"
)

// ErrResource indicates a power resource failed to switch, or a
// required resource is not present.
var ErrResource = errors.New("power: resource failure")

// Kind classifies a power resource.
type Kind string

const (
	KindRegulator Kind = "regulator"
	KindGPIO      Kind = "gpio"
	KindClock     Kind = "clock"
)

// Switch turns one supply, line or clock on and off.
type Switch interface {
	Set(on bool) error
}

// Resource is one step of a device power sequence.
type Resource struct {
	Name     string
	Kind     Kind
	Optional bool

	// Switch drives the resource. nil means the resource is absent
	// on this board; absent optional resources are skipped, absent
	// required ones fail the sequence.
	Switch Switch

	// Settle is slept after enabling the resource, before the next
	// step runs.
	Settle time.Duration

	// DownSettle is slept after disabling the resource on the way
	// down. Some parts need a rail to drain before the next one is
	// cut.
	DownSettle time.Duration
}

// Logger is the subset of logging used by the sequencer.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Sequencer drives an ordered resource list up and down.
type Sequencer struct {
	resources []Resource
	logger    Logger
}

// NewSequencer creates a sequencer over the given resources. The order
// of the slice is the enable order.
func NewSequencer(resources []Resource, logger Logger) *Sequencer {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Sequencer{resources: resources, logger: logger}
}

// Up enables all resources in declared order, sleeping each resource's
// settle delay before moving on.
//
// If any step fails, every resource enabled so far is switched back off
// in reverse order before Up returns. Rollback is best-effort: disable
// errors during rollback are logged and swallowed, the original enable
// error is returned.
func (s *Sequencer) Up() error {
	for i, r := range s.resources {
		if r.Switch == nil {
			if r.Optional {
				continue
			}
			s.rollback(i)
			return fmt.Errorf("%w: required %s %q not present", ErrResource, r.Kind, r.Name)
		}

		if err := r.Switch.Set(true); err != nil {
			s.rollback(i)
			return fmt.Errorf("%w: enable %s %q: %v", ErrResource, r.Kind, r.Name, err)
		}

		if r.Settle > 0 {
			time.Sleep(r.Settle)
		}
	}

	return nil
}

// Down disables all resources in reverse order, sleeping each
// resource's DownSettle after switching it off.
//
// Down is best-effort: every resource is attempted regardless of
// earlier failures, errors are logged and swallowed. After Down the
// set is always considered unpowered.
func (s *Sequencer) Down() {
	for i := len(s.resources) - 1; i >= 0; i-- {
		r := s.resources[i]
		if r.Switch == nil {
			continue
		}

		if err := r.Switch.Set(false); err != nil {
			s.logger.Warn("power-down disable failed",
				"resource", r.Name,
				"kind", string(r.Kind),
				"error", err,
			)
		}

		if r.DownSettle > 0 {
			time.Sleep(r.DownSettle)
		}
	}
}

// rollback disables resources[0:upTo] in reverse order, logging and
// swallowing errors.
func (s *Sequencer) rollback(upTo int) {
	for i := upTo - 1; i >= 0; i-- {
		r := s.resources[i]
		if r.Switch == nil {
			continue
		}

		if err := r.Switch.Set(false); err != nil {
			s.logger.Warn("power-up rollback disable failed",
				"resource", r.Name,
				"kind", string(r.Kind),
				"error", err,
			)
		}
	}
}
