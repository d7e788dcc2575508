package display

import (
	"sync"

	"github.com/tabwork/hwcore/internal/power"
	"github.com/tabwork/hwcore/internal/videomode"
)

// PanelMode is the panel's single fixed geometry. The timing lives in
// the bridge init table; the panel itself has no mode registers.
var PanelMode = videomode.Mode{Name: "wuxga", Width: 1920, Height: 1200}

// Panel is the LVDS panel behind the bridge. It has one mode and no
// controls; enabling it enables the bridge and then the backlight.
type Panel struct {
	mu        sync.Mutex
	bridge    *Bridge
	backlight power.Switch // optional
	logger    Logger

	enabled    bool
	wasEnabled bool // lit when Suspend was called
}

// NewPanel creates a disabled panel in front of the given bridge.
func NewPanel(bridge *Bridge, backlight power.Switch, logger Logger) *Panel {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Panel{bridge: bridge, backlight: backlight, logger: logger}
}

// Enabled reports whether the panel is lit.
func (p *Panel) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// Mode returns the fixed panel mode.
func (p *Panel) Mode() videomode.Mode {
	return PanelMode
}

// SetMode snaps any requested geometry onto the single panel mode and
// returns it; there is nothing to reprogram.
func (p *Panel) SetMode(width, height int) (videomode.Mode, error) {
	catalog := []videomode.Mode{PanelMode}
	return catalog[videomode.Nearest(catalog, width, height)], nil
}

// Enable brings up the bridge and turns the backlight on.
func (p *Panel) Enable() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.enabled {
		return nil
	}

	if err := p.bridge.Enable(); err != nil {
		return err
	}

	if p.backlight != nil {
		if err := p.backlight.Set(true); err != nil {
			p.logger.Warn("backlight enable failed", "error", err)
		}
	}

	p.enabled = true

	return nil
}

// Disable turns the backlight off and drops the bridge. Best-effort:
// the panel always ends disabled.
func (p *Panel) Disable() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.enabled {
		return
	}

	if p.backlight != nil {
		if err := p.backlight.Set(false); err != nil {
			p.logger.Warn("backlight disable failed", "error", err)
		}
	}

	p.bridge.Disable()
	p.enabled = false
}

// Suspend blanks the panel ahead of a system sleep, remembering
// whether it was lit.
func (p *Panel) Suspend() error {
	p.mu.Lock()
	wasEnabled := p.enabled
	p.mu.Unlock()

	p.Disable()

	p.mu.Lock()
	p.wasEnabled = wasEnabled
	p.mu.Unlock()

	return nil
}

// Resume relights the panel if it was lit at suspend. The bridge init
// table is replayed in full; a failure leaves the panel dark and is
// returned to the caller.
func (p *Panel) Resume() error {
	p.mu.Lock()
	wasEnabled := p.wasEnabled
	p.wasEnabled = false
	p.mu.Unlock()

	if !wasEnabled {
		return nil
	}

	return p.Enable()
}
