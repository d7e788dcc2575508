// Package manager owns the device registry and the operation plane on
// top of it: every power, mode, stream, and control operation flows
// through here so that state transitions are recorded, control values
// persisted, telemetry written, and listeners notified in one place.
package manager

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tabwork/hwcore/internal/infrastructure/influxdb"
	"github.com/tabwork/hwcore/internal/videomode"
)

// Logger is the subset of logging the manager uses.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// StateEvent describes one completed operation on a device. Listeners
// receive an event for every operation, including failed ones.
type StateEvent struct {
	DeviceID string    `json:"device_id"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	Op       string    `json:"op"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}

// Listener receives state events. Listeners are called synchronously
// after the operation completes and must not block.
type Listener func(StateEvent)

// ModeInfo is the wire representation of a video mode.
type ModeInfo struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Snapshot is a point-in-time view of one device.
type Snapshot struct {
	ID       string         `json:"id"`
	Kind     string         `json:"kind"`
	State    string         `json:"state"`
	Mode     ModeInfo       `json:"mode"`
	Controls map[string]int `json:"controls,omitempty"`
}

// Deps contains the manager's dependencies. Store and Metrics are
// optional; a nil Store means no persistence, a nil Metrics means no
// telemetry.
type Deps struct {
	Store   *Store
	Metrics *influxdb.Client
	Logger  Logger
}

// Manager is the device registry and operation dispatcher.
//
// Thread Safety:
//   - All methods are safe for concurrent use. Per-device serialisation
//     is provided by each device's own lock; the manager lock only
//     guards the registry and listener list.
type Manager struct {
	mu        sync.RWMutex
	devices   map[string]Device
	listeners []Listener

	store   *Store
	metrics *influxdb.Client
	logger  Logger
}

// New creates an empty manager.
func New(deps Deps) *Manager {
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Manager{
		devices: make(map[string]Device),
		store:   deps.Store,
		metrics: deps.Metrics,
		logger:  logger,
	}
}

// Add registers a device under its ID.
func (m *Manager) Add(dev Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.devices[dev.ID()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateDevice, dev.ID())
	}
	m.devices[dev.ID()] = dev

	m.logger.Info("device registered", "device_id", dev.ID(), "kind", dev.Kind())

	return nil
}

// Subscribe registers a listener for state events.
func (m *Manager) Subscribe(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Get returns the device with the given ID.
func (m *Manager) Get(id string) (Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	dev, ok := m.devices[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, id)
	}
	return dev, nil
}

// IDs returns all registered device IDs, sorted.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.devices))
	for id := range m.devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// List returns snapshots of all registered devices, sorted by ID.
// Control snapshots may perform volatile hardware reads; a read failure
// degrades to the cached values rather than failing the listing.
func (m *Manager) List() []Snapshot {
	ids := m.IDs()
	out := make([]Snapshot, 0, len(ids))
	for _, id := range ids {
		snap, err := m.Snapshot(id)
		if err != nil {
			continue
		}
		out = append(out, snap)
	}
	return out
}

// Snapshot returns a point-in-time view of one device.
func (m *Manager) Snapshot(id string) (Snapshot, error) {
	dev, err := m.Get(id)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		ID:    dev.ID(),
		Kind:  dev.Kind(),
		State: dev.State(),
		Mode:  modeInfo(dev.Mode()),
	}

	if ctl, ok := dev.(Controller); ok {
		controls, err := ctl.Controls()
		if err != nil {
			m.logger.Warn("control snapshot degraded", "device_id", id, "error", err)
		} else {
			snap.Controls = controls
		}
	}

	return snap, nil
}

// PowerOn powers a device up.
func (m *Manager) PowerOn(ctx context.Context, id string) error {
	return m.run(ctx, id, "power_on", func(dev Device) error {
		return dev.PowerOn()
	})
}

// PowerOff powers a device down.
func (m *Manager) PowerOff(ctx context.Context, id string) error {
	return m.run(ctx, id, "power_off", func(dev Device) error {
		return dev.PowerOff()
	})
}

// SetMode selects the catalog mode nearest the requested geometry and
// returns the snap result.
func (m *Manager) SetMode(ctx context.Context, id string, width, height int) (videomode.Mode, error) {
	var mode videomode.Mode
	err := m.run(ctx, id, "set_mode", func(dev Device) error {
		var err error
		mode, err = dev.SetMode(width, height)
		return err
	})
	return mode, err
}

// StreamStart starts the device's pixel stream.
func (m *Manager) StreamStart(ctx context.Context, id string) error {
	return m.run(ctx, id, "stream_start", func(dev Device) error {
		s, ok := dev.(Streamer)
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotSupported, id)
		}
		return s.StreamStart()
	})
}

// StreamStop stops the device's pixel stream.
func (m *Manager) StreamStop(ctx context.Context, id string) error {
	return m.run(ctx, id, "stream_stop", func(dev Device) error {
		s, ok := dev.(Streamer)
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotSupported, id)
		}
		return s.StreamStop()
	})
}

// Probe verifies the device identifies as the expected chip. The
// device must be powered.
func (m *Manager) Probe(ctx context.Context, id string) error {
	return m.run(ctx, id, "probe", func(dev Device) error {
		p, ok := dev.(Prober)
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotSupported, id)
		}
		return p.Probe()
	})
}

// Suspend quiesces a device ahead of a system sleep.
func (m *Manager) Suspend(ctx context.Context, id string) error {
	return m.run(ctx, id, "suspend", func(dev Device) error {
		return dev.Suspend()
	})
}

// Resume restores a device after a system sleep.
func (m *Manager) Resume(ctx context.Context, id string) error {
	return m.run(ctx, id, "resume", func(dev Device) error {
		return dev.Resume()
	})
}

// SuspendAll suspends every registered device. Errors are logged and
// collected per-device; the suspend always proceeds to every device.
func (m *Manager) SuspendAll(ctx context.Context) {
	for _, id := range m.IDs() {
		if err := m.Suspend(ctx, id); err != nil {
			m.logger.Warn("suspend failed", "device_id", id, "error", err)
		}
	}
}

// ResumeAll resumes every registered device.
func (m *Manager) ResumeAll(ctx context.Context) {
	for _, id := range m.IDs() {
		if err := m.Resume(ctx, id); err != nil {
			m.logger.Warn("resume failed", "device_id", id, "error", err)
		}
	}
}

// SetControl updates one control on a device and persists the new
// value. Values persist across restarts; RestoreControls replays them.
func (m *Manager) SetControl(ctx context.Context, id, name string, value int) error {
	dev, err := m.Get(id)
	if err != nil {
		return err
	}
	ctl, ok := dev.(Controller)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotSupported, id)
	}

	if err := ctl.SetControl(name, value); err != nil {
		return err
	}

	if m.store != nil {
		if err := m.store.SaveControl(ctx, id, name, value); err != nil {
			m.logger.Warn("control persist failed", "device_id", id, "control", name, "error", err)
		}
	}
	if m.metrics != nil {
		m.metrics.WriteControlSample(id, name, float64(value))
	}

	m.logger.Debug("control set", "device_id", id, "control", name, "value", value)

	return nil
}

// GetControl reads one control from a device.
func (m *Manager) GetControl(ctx context.Context, id, name string) (int, error) {
	dev, err := m.Get(id)
	if err != nil {
		return 0, err
	}
	ctl, ok := dev.(Controller)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotSupported, id)
	}
	return ctl.GetControl(name)
}

// Controls returns all control values for a device.
func (m *Manager) Controls(ctx context.Context, id string) (map[string]int, error) {
	dev, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	ctl, ok := dev.(Controller)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotSupported, id)
	}
	return ctl.Controls()
}

// RestoreControls replays persisted control values into a device's
// cache. Called at startup before the device is powered, so the values
// land in cache and reach the hardware at the first mode commit.
func (m *Manager) RestoreControls(ctx context.Context, id string) error {
	if m.store == nil {
		return nil
	}
	dev, err := m.Get(id)
	if err != nil {
		return err
	}
	ctl, ok := dev.(Controller)
	if !ok {
		return nil
	}

	values, err := m.store.LoadControls(ctx, id)
	if err != nil {
		return fmt.Errorf("loading controls for %s: %w", id, err)
	}

	for name, value := range values {
		if err := ctl.SetControl(name, value); err != nil {
			m.logger.Warn("control restore skipped", "device_id", id, "control", name, "error", err)
		}
	}

	if len(values) > 0 {
		m.logger.Info("controls restored", "device_id", id, "count", len(values))
	}

	return nil
}

// History returns the recent transition history for a device, newest
// first.
func (m *Manager) History(ctx context.Context, id string, limit int) ([]Transition, error) {
	if _, err := m.Get(id); err != nil {
		return nil, err
	}
	if m.store == nil {
		return nil, nil
	}
	return m.store.History(ctx, id, limit)
}

// run executes one operation on a device and handles the bookkeeping:
// transition recording, telemetry, and listener notification.
func (m *Manager) run(ctx context.Context, id, op string, fn func(Device) error) error {
	dev, err := m.Get(id)
	if err != nil {
		return err
	}

	from := dev.State()
	start := time.Now()
	opErr := fn(dev)
	to := dev.State()

	ev := StateEvent{
		DeviceID: id,
		From:     from,
		To:       to,
		Op:       op,
		At:       time.Now().UTC(),
	}
	if opErr != nil {
		ev.Error = opErr.Error()
	}

	if from != to || opErr != nil {
		if m.store != nil {
			if err := m.store.RecordTransition(ctx, Transition{
				DeviceID:   id,
				From:       from,
				To:         to,
				Op:         op,
				Error:      ev.Error,
				OccurredAt: ev.At,
			}); err != nil {
				m.logger.Warn("transition persist failed", "device_id", id, "error", err)
			}
		}
		if m.metrics != nil && from != to {
			m.metrics.WriteStateTransition(id, from, to, float64(time.Since(start).Milliseconds()))
		}
		m.notify(ev)
	}

	if opErr != nil {
		m.logger.Error("device operation failed",
			"device_id", id, "op", op, "from", from, "to", to, "error", opErr)
	} else {
		m.logger.Debug("device operation",
			"device_id", id, "op", op, "from", from, "to", to)
	}

	return opErr
}

// notify delivers an event to all listeners.
func (m *Manager) notify(ev StateEvent) {
	m.mu.RLock()
	listeners := make([]Listener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.RUnlock()

	for _, l := range listeners {
		l(ev)
	}
}

func modeInfo(mode videomode.Mode) ModeInfo {
	return ModeInfo{Name: mode.Name, Width: mode.Width, Height: mode.Height}
}
