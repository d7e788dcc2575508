package camera

import "github.com/tabwork/hwcore/internal/regio"

// Control names.
const (
	CtrlAutoGain     = "auto_gain"
	CtrlGain         = "gain"
	CtrlAutoExposure = "auto_exposure"
	CtrlExposure     = "exposure"
	CtrlHFlip        = "h_flip"
	CtrlVFlip        = "v_flip"
	CtrlTestPattern  = "test_pattern"
)

// TestPatterns enumerates the test pattern control values.
var TestPatterns = []string{
	"Disabled",
	"Color Bars",
	"Random Data",
	"Square",
	"Black Image",
}

// pixelOrders maps the flip bits onto the sensor's bayer output order,
// indexed by (hflip << 1) | vflip.
var pixelOrders = [4]string{"BGGR", "GRBG", "GBRG", "RGGB"}

// controlState caches control values across power cycles. The *New
// flags mark manual values that have not reached the hardware yet;
// manual gain/exposure writes are skipped unless the value is new.
type controlState struct {
	autoGain bool
	gain     int
	gainNew  bool

	autoExposure bool
	exposure     int
	exposureNew  bool

	hflip bool
	vflip bool

	testPattern int
}

// SetControl updates a control. While the sensor is unpowered the new
// value is cached and applied at the next mode commit; this reports
// success, the same as a manual write skipped for an unchanged value.
// Flips are rejected with ErrBusy while streaming.
func (s *Sensor) SetControl(name string, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	powered := s.state != Unpowered

	switch name {
	case CtrlAutoGain:
		s.ctrl.autoGain = value != 0
		if !powered {
			return nil
		}
		return s.writeGain(s.ctrl.autoGain)

	case CtrlGain:
		if value < 0 || value > MaxGain {
			return ErrBadValue
		}
		s.ctrl.gain = value
		s.ctrl.gainNew = true
		if !powered {
			return nil
		}
		return s.writeGain(s.ctrl.autoGain)

	case CtrlAutoExposure:
		s.ctrl.autoExposure = value != 0
		if !powered {
			return nil
		}
		return s.writeExposure(s.ctrl.autoExposure)

	case CtrlExposure:
		if value < 0 || value > MaxExposure {
			return ErrBadValue
		}
		s.ctrl.exposure = value
		s.ctrl.exposureNew = true
		if !powered {
			return nil
		}
		return s.writeExposure(s.ctrl.autoExposure)

	case CtrlHFlip:
		if s.state == Streaming {
			return ErrBusy
		}
		s.ctrl.hflip = value != 0
		if !powered {
			return nil
		}
		return s.writeFlip(regFormat2, s.ctrl.hflip)

	case CtrlVFlip:
		if s.state == Streaming {
			return ErrBusy
		}
		s.ctrl.vflip = value != 0
		if !powered {
			return nil
		}
		return s.writeFlip(regFormat1, s.ctrl.vflip)

	case CtrlTestPattern:
		if value < 0 || value >= len(TestPatterns) {
			return ErrBadValue
		}
		s.ctrl.testPattern = value
		if !powered {
			return nil
		}
		return s.writeTestPattern()

	default:
		return ErrUnknownControl
	}
}

// GetControl reads a control. Gain and exposure are volatile while
// their auto cluster runs on a powered sensor: the live value is read
// back from the hardware and cached. In every other case the cached
// value is returned.
func (s *Sensor) GetControl(name string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	powered := s.state != Unpowered

	switch name {
	case CtrlAutoGain:
		return boolVal(s.ctrl.autoGain), nil

	case CtrlGain:
		if powered && s.ctrl.autoGain {
			val, err := s.conn.ReadReg(regGain, 2)
			if err != nil {
				return 0, err
			}
			s.ctrl.gain = int(val)
		}
		return s.ctrl.gain, nil

	case CtrlAutoExposure:
		return boolVal(s.ctrl.autoExposure), nil

	case CtrlExposure:
		if powered && s.ctrl.autoExposure {
			val, err := s.conn.ReadReg(regExpo, 3)
			if err != nil {
				return 0, err
			}
			s.ctrl.exposure = int(val >> 4)
		}
		return s.ctrl.exposure, nil

	case CtrlHFlip:
		return boolVal(s.ctrl.hflip), nil

	case CtrlVFlip:
		return boolVal(s.ctrl.vflip), nil

	case CtrlTestPattern:
		return s.ctrl.testPattern, nil

	default:
		return 0, ErrUnknownControl
	}
}

// Controls returns a snapshot of all control values. Volatile values
// are refreshed from the hardware the same way GetControl does.
func (s *Sensor) Controls() (map[string]int, error) {
	out := make(map[string]int, 7)
	for _, name := range []string{
		CtrlAutoGain, CtrlGain, CtrlAutoExposure, CtrlExposure,
		CtrlHFlip, CtrlVFlip, CtrlTestPattern,
	} {
		val, err := s.GetControl(name)
		if err != nil {
			return nil, err
		}
		out[name] = val
	}
	return out, nil
}

// PixelOrder returns the bayer order of the sensor output for the
// current flip configuration.
func (s *Sensor) PixelOrder() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := 0
	if s.ctrl.vflip {
		idx |= 1
	}
	if s.ctrl.hflip {
		idx |= 2
	}
	return pixelOrders[idx]
}

// writeGain programs the gain cluster: the AGC manual bit, then the
// cached manual value when one is pending. Auto mode and already-
// applied values skip the value write.
func (s *Sensor) writeGain(auto bool) error {
	bit := aecManualGain
	if auto {
		bit = 0
	}
	if err := regio.ModReg(s.conn, regAEC, aecManualGain, bit); err != nil {
		return err
	}

	if auto || !s.ctrl.gainNew {
		return nil
	}

	if err := s.conn.WriteReg(regGain, 2, uint32(s.ctrl.gain)); err != nil {
		return err
	}
	s.ctrl.gainNew = false

	return nil
}

// writeExposure programs the exposure cluster. The register keeps four
// fraction bits, so the value is shifted up on write and back down on
// read.
func (s *Sensor) writeExposure(auto bool) error {
	bit := aecManualExposure
	if auto {
		bit = 0
	}
	if err := regio.ModReg(s.conn, regAEC, aecManualExposure, bit); err != nil {
		return err
	}

	if auto || !s.ctrl.exposureNew {
		return nil
	}

	if err := s.conn.WriteReg(regExpo, 3, uint32(s.ctrl.exposure)<<4); err != nil {
		return err
	}
	s.ctrl.exposureNew = false

	return nil
}

func (s *Sensor) writeFlip(reg uint16, on bool) error {
	val := uint8(0)
	if on {
		val = flipBit
	}
	return regio.ModReg(s.conn, reg, flipBit, val)
}

// writeTestPattern enables the selected pattern in two steps: the
// pattern select bits first, then the enable bit, so a half-programmed
// selection is never displayed.
func (s *Sensor) writeTestPattern() error {
	if s.ctrl.testPattern == 0 {
		return regio.ModReg(s.conn, regISP0, patternEnable, 0)
	}

	if err := regio.ModReg(s.conn, regISP0, patternSelect, uint8(s.ctrl.testPattern-1)); err != nil {
		return err
	}

	return regio.ModReg(s.conn, regISP0, patternEnable, patternEnable)
}

func boolVal(b bool) int {
	if b {
		return 1
	}
	return 0
}
