package manager

import (
	"github.com/tabwork/hwcore/internal/camera"
	"github.com/tabwork/hwcore/internal/display"
	"github.com/tabwork/hwcore/internal/videomode"
)

// Device kinds.
const (
	KindCamera  = "camera"
	KindDisplay = "display"
)

// Device is the common lifecycle surface every managed device exposes.
// Additional capabilities (streaming, controls) are optional interfaces
// the manager discovers with type assertions.
type Device interface {
	ID() string
	Kind() string
	State() string

	PowerOn() error
	PowerOff() error
	Suspend() error
	Resume() error

	Mode() videomode.Mode
	SetMode(width, height int) (videomode.Mode, error)
}

// Streamer is implemented by devices that produce a pixel stream.
type Streamer interface {
	StreamStart() error
	StreamStop() error
}

// Controller is implemented by devices with runtime controls.
type Controller interface {
	SetControl(name string, value int) error
	GetControl(name string) (int, error)
	Controls() (map[string]int, error)
}

// Prober is implemented by devices that can verify their chip identity.
type Prober interface {
	Probe() error
}

// CameraDevice adapts a camera sensor to the Device interface. The
// embedded sensor supplies the streaming and control capabilities.
type CameraDevice struct {
	id string
	*camera.Sensor
}

// NewCameraDevice wraps a sensor under the given device ID.
func NewCameraDevice(id string, sensor *camera.Sensor) *CameraDevice {
	return &CameraDevice{id: id, Sensor: sensor}
}

func (d *CameraDevice) ID() string   { return d.id }
func (d *CameraDevice) Kind() string { return KindCamera }

// State reports the sensor lifecycle state by name.
func (d *CameraDevice) State() string { return d.Sensor.State().String() }

// DisplayDevice adapts the panel to the Device interface. The panel has
// no stream or control surface; power maps onto enable.
type DisplayDevice struct {
	id    string
	panel *display.Panel
}

// NewDisplayDevice wraps a panel under the given device ID.
func NewDisplayDevice(id string, panel *display.Panel) *DisplayDevice {
	return &DisplayDevice{id: id, panel: panel}
}

func (d *DisplayDevice) ID() string   { return d.id }
func (d *DisplayDevice) Kind() string { return KindDisplay }

func (d *DisplayDevice) State() string {
	if d.panel.Enabled() {
		return "enabled"
	}
	return "disabled"
}

func (d *DisplayDevice) PowerOn() error { return d.panel.Enable() }

func (d *DisplayDevice) PowerOff() error {
	d.panel.Disable()
	return nil
}

func (d *DisplayDevice) Suspend() error { return d.panel.Suspend() }
func (d *DisplayDevice) Resume() error  { return d.panel.Resume() }

func (d *DisplayDevice) Mode() videomode.Mode { return d.panel.Mode() }

func (d *DisplayDevice) SetMode(width, height int) (videomode.Mode, error) {
	return d.panel.SetMode(width, height)
}
