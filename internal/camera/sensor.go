// Package camera drives the OV2710 image sensor over a register bus.
//
// The sensor is modelled as an explicit state machine:
//
//	Unpowered -> power on (init + current mode) -> PoweredIdle
//	PoweredIdle -> mode change -> ModePending
//	ModePending -> stream start (commits the pending mode) -> Streaming
//	Streaming -> stream stop -> PoweredIdle
//	any powered state -> power off -> Unpowered
//
// Mode changes never touch the hardware directly; the selected mode is
// committed on the next stream start. All operations, including their
// settle delays, run under a single per-sensor mutex.
package camera

import (
	"fmt"
	"sync"
	"time"

	"github.com/tabwork/hwcore/internal/power"
	"github.com/tabwork/hwcore/internal/regio"
	"github.com/tabwork/hwcore/internal/videomode"
)

// State is the sensor lifecycle state.
type State int

const (
	// Unpowered: rails down, registers lost, controls served from cache.
	Unpowered State = iota
	// PoweredIdle: powered, current mode programmed, not streaming.
	PoweredIdle
	// ModePending: powered with a mode selection not yet written.
	ModePending
	// Streaming: pixels on the wire.
	Streaming
)

func (s State) String() string {
	switch s {
	case Unpowered:
		return "unpowered"
	case PoweredIdle:
		return "powered_idle"
	case ModePending:
		return "mode_pending"
	case Streaming:
		return "streaming"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Settle delays for the power-on sequence.
const (
	resetSettle     = 10 * time.Millisecond
	softResetSettle = 2 * time.Millisecond
	lp11Settle      = 2 * time.Millisecond
)

// Logger is the subset of logging the sensor uses.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Options configures a Sensor.
type Options struct {
	// Conn is the register connection to the sensor. Required.
	Conn regio.Conn

	// Power sequences the sensor's supply rails and clock. Required.
	Power *power.Sequencer

	// Reset is the reset line, if the board wires one. When nil the
	// sensor is reset through its soft-reset register instead.
	Reset power.Switch

	// Modes overrides the mode catalog. Defaults to DefaultModes.
	Modes []videomode.Mode

	Logger Logger
}

// Sensor is one OV2710 device.
type Sensor struct {
	mu     sync.Mutex
	conn   regio.Conn
	power  *power.Sequencer
	reset  power.Switch
	modes  []videomode.Mode
	logger Logger

	state   State
	modeIdx int

	ctrl controlState
}

// New creates a sensor in the Unpowered state with the 1080p mode
// selected and both auto clusters enabled.
func New(opts Options) (*Sensor, error) {
	if opts.Conn == nil {
		return nil, fmt.Errorf("camera: register connection is required")
	}
	if opts.Power == nil {
		return nil, fmt.Errorf("camera: power sequencer is required")
	}

	modes := opts.Modes
	if len(modes) == 0 {
		modes = DefaultModes()
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	return &Sensor{
		conn:    opts.Conn,
		power:   opts.Power,
		reset:   opts.Reset,
		modes:   modes,
		logger:  logger,
		state:   Unpowered,
		modeIdx: len(modes) - 1,
		ctrl: controlState{
			autoGain:     true,
			autoExposure: true,
		},
	}, nil
}

// State returns the current lifecycle state.
func (s *Sensor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Mode returns the currently selected mode. Until the next stream
// start it may not be programmed into the hardware yet.
func (s *Sensor) Mode() videomode.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modes[s.modeIdx]
}

// Probe verifies the device on the bus identifies as an OV2710. The
// sensor must be powered.
func (s *Sensor) Probe() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Unpowered {
		return ErrNotPowered
	}

	id, err := s.conn.ReadReg(regChipID, 2)
	if err != nil {
		return err
	}
	if id != chipID {
		return fmt.Errorf("%w: 0x%04x", ErrWrongChip, id)
	}

	return nil
}

// PowerOn brings the sensor up: supply rails and clock in order, reset
// (line toggle or soft-reset register), a short LP-11 pulse to park
// the clock lane, the init table, and finally the currently selected
// mode, so the sensor lands idle with its mode programmed.
//
// Any failure after the rails are up powers the sensor back down so a
// retry replays the whole sequence from the top.
func (s *Sensor) PowerOn() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Unpowered {
		return nil
	}

	if err := s.power.Up(); err != nil {
		return err
	}

	if err := s.applyReset(); err != nil {
		s.power.Down()
		return err
	}

	// Park the clock lane in LP-11 before the host side comes up.
	if err := s.writeStream(true); err != nil {
		s.logger.Warn("lp-11 pulse enable failed", "error", err)
	}
	time.Sleep(lp11Settle)
	if err := s.writeStream(false); err != nil {
		s.logger.Warn("lp-11 pulse disable failed", "error", err)
	}

	if err := regio.Play(s.conn, 1, initTable); err != nil {
		s.power.Down()
		return err
	}

	// Registers came up at defaults; manual values must be rewritten
	// with the mode.
	s.ctrl.gainNew = true
	s.ctrl.exposureNew = true

	if err := s.commitMode(); err != nil {
		s.power.Down()
		return err
	}
	s.state = PoweredIdle

	return nil
}

// PowerOff stops streaming if needed and drops the rails in reverse
// order. It is best-effort: the sensor always ends Unpowered. Control
// values stay cached and are replayed on the next power-on commit.
func (s *Sensor) PowerOff() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Unpowered {
		return nil
	}

	if s.state == Streaming {
		if err := s.writeStream(false); err != nil {
			s.logger.Warn("stream disable before power-off failed", "error", err)
		}
	}

	s.power.Down()
	s.state = Unpowered

	return nil
}

// SetMode selects the catalog mode closest to the requested geometry
// and returns it. The hardware is not touched; the mode is committed
// on the next stream start. Rejected with ErrBusy while streaming.
func (s *Sensor) SetMode(width, height int) (videomode.Mode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Streaming {
		return videomode.Mode{}, ErrBusy
	}

	s.modeIdx = videomode.Nearest(s.modes, width, height)
	if s.state == PoweredIdle {
		s.state = ModePending
	}

	return s.modes[s.modeIdx], nil
}

// StreamStart starts the pixel stream, committing the pending mode
// first if there is one. Starting an already-streaming sensor is a
// no-op.
func (s *Sensor) StreamStart() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Streaming:
		return nil
	case Unpowered:
		return ErrNotPowered
	case ModePending:
		if err := s.commitMode(); err != nil {
			return err
		}
		s.state = PoweredIdle
	}

	if err := s.writeStream(true); err != nil {
		return err
	}
	s.state = Streaming

	return nil
}

// StreamStop stops the pixel stream. It always succeeds locally: a
// failed stop write is logged and swallowed, and the sensor leaves
// Streaming regardless.
func (s *Sensor) StreamStop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Streaming {
		return nil
	}

	if err := s.writeStream(false); err != nil {
		s.logger.Warn("stream disable failed", "error", err)
	}
	s.state = PoweredIdle

	return nil
}

// Suspend quiesces the stream ahead of a system sleep. The streaming
// intent is kept so Resume can pick it back up; rails stay up (the
// platform cuts them).
func (s *Sensor) Suspend() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Streaming {
		return nil
	}

	if err := s.writeStream(false); err != nil {
		s.logger.Warn("suspend stream disable failed", "error", err)
	}

	return nil
}

// Resume restarts the stream after a system sleep if the sensor was
// streaming when it was suspended. On failure the stream is forced
// off and the sensor drops to PoweredIdle, so the lost stream is
// observable rather than silently assumed.
func (s *Sensor) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Streaming {
		return nil
	}

	if err := s.writeStream(true); err != nil {
		if derr := s.writeStream(false); derr != nil {
			s.logger.Warn("resume stream disable failed", "error", derr)
		}
		s.state = PoweredIdle
		return err
	}

	return nil
}

// applyReset resets the sensor, by reset line when one is wired and by
// the soft-reset register otherwise.
func (s *Sensor) applyReset() error {
	if s.reset == nil {
		if err := s.conn.WriteReg(regSysCtrl, 1, uint32(sysSoftReset)); err != nil {
			return err
		}
		time.Sleep(softResetSettle)
		return nil
	}

	if err := s.reset.Set(true); err != nil {
		return fmt.Errorf("camera: assert reset: %w", err)
	}
	time.Sleep(resetSettle)
	if err := s.reset.Set(false); err != nil {
		return fmt.Errorf("camera: release reset: %w", err)
	}
	time.Sleep(resetSettle)

	return nil
}

// commitMode writes the selected mode to the hardware: gain and
// exposure forced to manual so the table starts deterministic, the
// mode table, the auto clusters restored, then the cached flip and
// test pattern controls which the table just clobbered.
//
// Called with the lock held. A failure leaves the sensor partially
// programmed; recovery is a power-cycle replay.
func (s *Sensor) commitMode() error {
	if err := s.writeGain(false); err != nil {
		return err
	}
	if err := s.writeExposure(false); err != nil {
		return err
	}

	if err := regio.Play(s.conn, 1, s.modes[s.modeIdx].Regs); err != nil {
		return err
	}

	if s.ctrl.autoGain {
		if err := s.writeGain(true); err != nil {
			return err
		}
	}
	if s.ctrl.autoExposure {
		if err := s.writeExposure(true); err != nil {
			return err
		}
	}

	if err := s.writeFlip(regFormat1, s.ctrl.vflip); err != nil {
		return err
	}
	if err := s.writeFlip(regFormat2, s.ctrl.hflip); err != nil {
		return err
	}

	return s.writeTestPattern()
}

func (s *Sensor) writeStream(on bool) error {
	val := sysStandby
	if on {
		val = sysRun
	}
	return s.conn.WriteReg(regSysCtrl, 1, uint32(val))
}
