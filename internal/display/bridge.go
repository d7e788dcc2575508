// Package display drives the DSI-to-LVDS bridge and the LVDS panel
// behind it. Both sit on the same I2C bus as the camera but are far
// less stateful: each is either off or fully programmed, and the
// bridge replays its whole init table on every enable.
package display

import (
	"fmt"
	"sync"
	"time"

	"github.com/tabwork/hwcore/internal/power"
	"github.com/tabwork/hwcore/internal/regio"
)

// Settle delays around the bridge power sequence. The discharge delay
// runs after the core rail drops and before the panel LDO is cut.
const (
	ldoSettle       = 20 * time.Millisecond
	railSettle      = 10 * time.Millisecond
	lineSettle      = 10 * time.Millisecond
	initSettle      = 35 * time.Millisecond
	dischargeSettle = 85 * time.Millisecond
)

// probeReg is read once before the init table; the access wakes the
// part and confirms it acks its address.
const probeReg uint16 = 0x0000

// initTable brings the bridge from reset to HS mode: soft reset, PLL,
// D-PHY lanes, DSI-TX timing, then DPI input start. Values are 16-bit.
var initTable = []regio.Reg{
	// Software reset.
	{Addr: 0x0002, Val: 0x0001},
	regio.Delay(5),
	{Addr: 0x0002, Val: 0x0000},

	// PLL and clock setup.
	{Addr: 0x0016, Val: 0x309f},
	{Addr: 0x0018, Val: 0x0203},
	regio.Delay(5),
	{Addr: 0x0018, Val: 0x0213},

	// DPI input FIFO.
	{Addr: 0x0006, Val: 0x012c},

	// D-PHY lane enables.
	{Addr: 0x0140, Val: 0x0000}, {Addr: 0x0142, Val: 0x0000},
	{Addr: 0x0144, Val: 0x0000}, {Addr: 0x0146, Val: 0x0000},
	{Addr: 0x0148, Val: 0x0000}, {Addr: 0x014a, Val: 0x0000},
	{Addr: 0x014c, Val: 0x0000}, {Addr: 0x014e, Val: 0x0000},
	{Addr: 0x0150, Val: 0x0000}, {Addr: 0x0152, Val: 0x0000},

	// D-PHY lane TX control.
	{Addr: 0x0100, Val: 0x0203}, {Addr: 0x0102, Val: 0x0000},
	{Addr: 0x0104, Val: 0x0203}, {Addr: 0x0106, Val: 0x0000},
	{Addr: 0x0108, Val: 0x0203}, {Addr: 0x010a, Val: 0x0000},
	{Addr: 0x010c, Val: 0x0203}, {Addr: 0x010e, Val: 0x0000},
	{Addr: 0x0110, Val: 0x0203}, {Addr: 0x0112, Val: 0x0000},

	// DSI-TX PPI timing counters.
	{Addr: 0x0210, Val: 0x1964}, {Addr: 0x0212, Val: 0x0000},
	{Addr: 0x0214, Val: 0x0005}, {Addr: 0x0216, Val: 0x0000},
	{Addr: 0x0218, Val: 0x2801}, {Addr: 0x021a, Val: 0x0000},
	{Addr: 0x021c, Val: 0x0000}, {Addr: 0x021e, Val: 0x0000},
	{Addr: 0x0220, Val: 0x0c06}, {Addr: 0x0222, Val: 0x0000},
	{Addr: 0x0224, Val: 0x4e20}, {Addr: 0x0226, Val: 0x0000},
	{Addr: 0x0228, Val: 0x000b}, {Addr: 0x022a, Val: 0x0000},
	{Addr: 0x022c, Val: 0x0005}, {Addr: 0x022e, Val: 0x0000},
	{Addr: 0x0230, Val: 0x0005}, {Addr: 0x0232, Val: 0x0000},
	{Addr: 0x0234, Val: 0x001f}, {Addr: 0x0236, Val: 0x0000},
	{Addr: 0x0238, Val: 0x0001}, {Addr: 0x023a, Val: 0x0000},
	{Addr: 0x023c, Val: 0x0005}, {Addr: 0x023e, Val: 0x0005},
	{Addr: 0x0204, Val: 0x0001}, {Addr: 0x0206, Val: 0x0000},

	// DSI-TX video timing.
	{Addr: 0x0620, Val: 0x0001},
	{Addr: 0x0622, Val: 0x0020},
	{Addr: 0x0624, Val: 0x001a},
	{Addr: 0x0626, Val: 0x04b0},
	{Addr: 0x0628, Val: 0x015e},
	{Addr: 0x062a, Val: 0x00fa},
	{Addr: 0x062c, Val: 0x1680},

	// DSI start, then switch to HS mode.
	{Addr: 0x0518, Val: 0x0001}, {Addr: 0x051a, Val: 0x0000},
	{Addr: 0x0500, Val: 0x0086}, {Addr: 0x0502, Val: 0xa300},
	{Addr: 0x0500, Val: 0x8000}, {Addr: 0x0502, Val: 0xc300},

	// DPI input start.
	{Addr: 0x0008, Val: 0x0037},
	{Addr: 0x0050, Val: 0x003e},
	{Addr: 0x0032, Val: 0x0001},
	{Addr: 0x0004, Val: 0x0064},
}

// Logger is the subset of logging the display drivers use.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// BridgeResources builds the bridge power sequence. Enable order is
// panel LDO, core rail, IO rail, LVDS select, bridge power, with the
// settle delays the part needs between groups; disable reverses and
// lets the rails discharge before the LDO is cut. Absent lines may be
// nil; only the two rails are required.
func BridgeResources(vdd, vddio, ldo, lvds, powerLine power.Switch) []power.Resource {
	return []power.Resource{
		{Name: "ldo", Kind: power.KindGPIO, Optional: true, Switch: ldo, Settle: ldoSettle},
		{Name: "vdd", Kind: power.KindRegulator, Switch: vdd, DownSettle: dischargeSettle},
		{Name: "vddio", Kind: power.KindRegulator, Switch: vddio, Settle: railSettle},
		{Name: "lvds", Kind: power.KindGPIO, Optional: true, Switch: lvds},
		{Name: "power", Kind: power.KindGPIO, Optional: true, Switch: powerLine, Settle: lineSettle},
	}
}

// BridgeOptions configures a Bridge.
type BridgeOptions struct {
	// Conn is the raw register connection. The bridge wraps it in a
	// retrying decorator; the part NAKs sporadically right after
	// power-on.
	Conn regio.Conn

	// Power sequences the bridge rails and lines, normally built
	// with BridgeResources.
	Power *power.Sequencer

	Logger Logger
}

// Bridge is the DSI-to-LVDS converter.
type Bridge struct {
	mu     sync.Mutex
	conn   regio.Conn
	power  *power.Sequencer
	logger Logger

	enabled bool
}

// NewBridge creates a disabled bridge.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.Conn == nil {
		return nil, fmt.Errorf("display: register connection is required")
	}
	if opts.Power == nil {
		return nil, fmt.Errorf("display: power sequencer is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	return &Bridge{
		conn:   &regio.RetryConn{Conn: opts.Conn},
		power:  opts.Power,
		logger: logger,
	}, nil
}

// Enabled reports whether the bridge is up.
func (b *Bridge) Enabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled
}

// Enable powers the bridge and replays its init table. A table failure
// powers the bridge back down so a retry starts from scratch.
func (b *Bridge) Enable() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.enabled {
		return nil
	}

	if err := b.power.Up(); err != nil {
		return err
	}

	// Wake-up read; the part needs one address cycle before it takes
	// register writes reliably.
	if _, err := b.conn.ReadReg(probeReg, 2); err != nil {
		b.logger.Warn("bridge probe read failed", "error", err)
	}

	if err := regio.Play(b.conn, 2, initTable); err != nil {
		b.power.Down()
		return err
	}
	time.Sleep(initSettle)

	b.enabled = true

	return nil
}

// Disable drops the bridge rails. Best-effort: the bridge always ends
// disabled.
func (b *Bridge) Disable() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.enabled {
		return
	}

	b.power.Down()
	b.enabled = false
}
