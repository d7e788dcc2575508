package manager

import (
	"context"
	"errors"
	"testing"

	"github.com/tabwork/hwcore/internal/videomode"
)

// fakeDevice implements Device, Streamer, and Controller with scripted
// behaviour for manager tests.
type fakeDevice struct {
	id       string
	kind     string
	state    string
	mode     videomode.Mode
	controls map[string]int

	failOp  error
	setErrs map[string]error

	ops []string
}

func newFakeDevice(id string) *fakeDevice {
	return &fakeDevice{
		id:       id,
		kind:     KindCamera,
		state:    "unpowered",
		mode:     videomode.Mode{Name: "1080p", Width: 1920, Height: 1080},
		controls: make(map[string]int),
	}
}

func (d *fakeDevice) ID() string    { return d.id }
func (d *fakeDevice) Kind() string  { return d.kind }
func (d *fakeDevice) State() string { return d.state }

func (d *fakeDevice) op(name, nextState string) error {
	d.ops = append(d.ops, name)
	if d.failOp != nil {
		return d.failOp
	}
	d.state = nextState
	return nil
}

func (d *fakeDevice) PowerOn() error  { return d.op("power_on", "powered_idle") }
func (d *fakeDevice) PowerOff() error { return d.op("power_off", "unpowered") }
func (d *fakeDevice) Suspend() error  { return d.op("suspend", d.state) }
func (d *fakeDevice) Resume() error   { return d.op("resume", d.state) }

func (d *fakeDevice) Probe() error { return d.op("probe", d.state) }

func (d *fakeDevice) StreamStart() error { return d.op("stream_start", "streaming") }
func (d *fakeDevice) StreamStop() error  { return d.op("stream_stop", "powered_idle") }

func (d *fakeDevice) Mode() videomode.Mode { return d.mode }

func (d *fakeDevice) SetMode(width, height int) (videomode.Mode, error) {
	if err := d.op("set_mode", "mode_pending"); err != nil {
		return videomode.Mode{}, err
	}
	d.mode = videomode.Mode{Name: "custom", Width: width, Height: height}
	return d.mode, nil
}

func (d *fakeDevice) SetControl(name string, value int) error {
	if err, ok := d.setErrs[name]; ok {
		return err
	}
	d.controls[name] = value
	return nil
}

func (d *fakeDevice) GetControl(name string) (int, error) {
	v, ok := d.controls[name]
	if !ok {
		return 0, errors.New("no such control")
	}
	return v, nil
}

func (d *fakeDevice) Controls() (map[string]int, error) {
	out := make(map[string]int, len(d.controls))
	for k, v := range d.controls {
		out[k] = v
	}
	return out, nil
}

// bareOnly strips the optional interfaces off a fakeDevice, leaving a
// device with no streaming or control capability.
type bareOnly struct{ d *fakeDevice }

func newBareDevice(id string) Device {
	f := newFakeDevice(id)
	f.kind = KindDisplay
	return &bareOnly{f}
}

func (b *bareOnly) ID() string                               { return b.d.ID() }
func (b *bareOnly) Kind() string                             { return b.d.Kind() }
func (b *bareOnly) State() string                            { return b.d.State() }
func (b *bareOnly) PowerOn() error                           { return b.d.PowerOn() }
func (b *bareOnly) PowerOff() error                          { return b.d.PowerOff() }
func (b *bareOnly) Suspend() error                           { return b.d.Suspend() }
func (b *bareOnly) Resume() error                            { return b.d.Resume() }
func (b *bareOnly) Mode() videomode.Mode                     { return b.d.Mode() }
func (b *bareOnly) SetMode(w, h int) (videomode.Mode, error) { return b.d.SetMode(w, h) }

func TestManager_AddAndGet(t *testing.T) {
	m := New(Deps{})

	dev := newFakeDevice("camera0")
	if err := m.Add(dev); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if err := m.Add(newFakeDevice("camera0")); !errors.Is(err, ErrDuplicateDevice) {
		t.Errorf("Add() duplicate error = %v, want ErrDuplicateDevice", err)
	}

	got, err := m.Get("camera0")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ID() != "camera0" {
		t.Errorf("Get().ID() = %q", got.ID())
	}

	if _, err := m.Get("nope"); !errors.Is(err, ErrUnknownDevice) {
		t.Errorf("Get() unknown error = %v, want ErrUnknownDevice", err)
	}
}

func TestManager_IDsSorted(t *testing.T) {
	m := New(Deps{})
	for _, id := range []string{"display0", "camera0", "camera1"} {
		if err := m.Add(newFakeDevice(id)); err != nil {
			t.Fatalf("Add(%s) error = %v", id, err)
		}
	}

	ids := m.IDs()
	want := []string{"camera0", "camera1", "display0"}
	if len(ids) != len(want) {
		t.Fatalf("IDs() = %v", ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("IDs()[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}

func TestManager_PowerOn_NotifiesListeners(t *testing.T) {
	m := New(Deps{})
	dev := newFakeDevice("camera0")
	if err := m.Add(dev); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	var events []StateEvent
	m.Subscribe(func(ev StateEvent) { events = append(events, ev) })

	if err := m.PowerOn(context.Background(), "camera0"); err != nil {
		t.Fatalf("PowerOn() error = %v", err)
	}

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	ev := events[0]
	if ev.DeviceID != "camera0" || ev.Op != "power_on" {
		t.Errorf("event = %+v", ev)
	}
	if ev.From != "unpowered" || ev.To != "powered_idle" {
		t.Errorf("event transition = %s -> %s", ev.From, ev.To)
	}
	if ev.Error != "" {
		t.Errorf("event error = %q, want empty", ev.Error)
	}
}

func TestManager_NoEventWhenStateUnchanged(t *testing.T) {
	m := New(Deps{})
	dev := newFakeDevice("camera0")
	dev.state = "powered_idle"
	if err := m.Add(dev); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	var events []StateEvent
	m.Subscribe(func(ev StateEvent) { events = append(events, ev) })

	// Suspend keeps the fake's state, so no transition fires.
	if err := m.Suspend(context.Background(), "camera0"); err != nil {
		t.Fatalf("Suspend() error = %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events, want 0", len(events))
	}
}

func TestManager_FailedOpStillNotifies(t *testing.T) {
	m := New(Deps{})
	dev := newFakeDevice("camera0")
	dev.failOp = errors.New("bus timeout")
	if err := m.Add(dev); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	var events []StateEvent
	m.Subscribe(func(ev StateEvent) { events = append(events, ev) })

	err := m.PowerOn(context.Background(), "camera0")
	if err == nil || err.Error() != "bus timeout" {
		t.Fatalf("PowerOn() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Error != "bus timeout" {
		t.Errorf("event error = %q", events[0].Error)
	}
}

func TestManager_StreamOnNonStreamer(t *testing.T) {
	m := New(Deps{})
	if err := m.Add(newBareDevice("display0")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if err := m.StreamStart(context.Background(), "display0"); !errors.Is(err, ErrNotSupported) {
		t.Errorf("StreamStart() error = %v, want ErrNotSupported", err)
	}
	if err := m.StreamStop(context.Background(), "display0"); !errors.Is(err, ErrNotSupported) {
		t.Errorf("StreamStop() error = %v, want ErrNotSupported", err)
	}
	if err := m.SetControl(context.Background(), "display0", "gain", 1); !errors.Is(err, ErrNotSupported) {
		t.Errorf("SetControl() error = %v, want ErrNotSupported", err)
	}
	if err := m.Probe(context.Background(), "display0"); !errors.Is(err, ErrNotSupported) {
		t.Errorf("Probe() error = %v, want ErrNotSupported", err)
	}
}

func TestManager_SetMode(t *testing.T) {
	m := New(Deps{})
	dev := newFakeDevice("camera0")
	if err := m.Add(dev); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	mode, err := m.SetMode(context.Background(), "camera0", 1280, 720)
	if err != nil {
		t.Fatalf("SetMode() error = %v", err)
	}
	if mode.Width != 1280 || mode.Height != 720 {
		t.Errorf("SetMode() = %+v", mode)
	}
	if dev.state != "mode_pending" {
		t.Errorf("device state = %q, want mode_pending", dev.state)
	}
}

func TestManager_SetControl_Persists(t *testing.T) {
	store := newTestStore(t)
	m := New(Deps{Store: store})
	dev := newFakeDevice("camera0")
	if err := m.Add(dev); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if err := m.SetControl(context.Background(), "camera0", "gain", 200); err != nil {
		t.Fatalf("SetControl() error = %v", err)
	}
	if dev.controls["gain"] != 200 {
		t.Errorf("device gain = %d, want 200", dev.controls["gain"])
	}

	values, err := store.LoadControls(context.Background(), "camera0")
	if err != nil {
		t.Fatalf("LoadControls() error = %v", err)
	}
	if values["gain"] != 200 {
		t.Errorf("persisted gain = %d, want 200", values["gain"])
	}
}

func TestManager_SetControl_DeviceErrorNotPersisted(t *testing.T) {
	store := newTestStore(t)
	m := New(Deps{Store: store})
	dev := newFakeDevice("camera0")
	dev.setErrs = map[string]error{"gain": errors.New("device busy")}
	if err := m.Add(dev); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if err := m.SetControl(context.Background(), "camera0", "gain", 200); err == nil {
		t.Fatal("SetControl() should fail")
	}

	values, err := store.LoadControls(context.Background(), "camera0")
	if err != nil {
		t.Fatalf("LoadControls() error = %v", err)
	}
	if _, ok := values["gain"]; ok {
		t.Error("failed control write should not be persisted")
	}
}

func TestManager_RestoreControls(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.SaveControl(ctx, "camera0", "gain", 64); err != nil {
		t.Fatalf("SaveControl() error = %v", err)
	}
	if err := store.SaveControl(ctx, "camera0", "h_flip", 1); err != nil {
		t.Fatalf("SaveControl() error = %v", err)
	}

	m := New(Deps{Store: store})
	dev := newFakeDevice("camera0")
	if err := m.Add(dev); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if err := m.RestoreControls(ctx, "camera0"); err != nil {
		t.Fatalf("RestoreControls() error = %v", err)
	}
	if dev.controls["gain"] != 64 || dev.controls["h_flip"] != 1 {
		t.Errorf("restored controls = %v", dev.controls)
	}
}

func TestManager_RestoreControls_SkipsFailedControl(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.SaveControl(ctx, "camera0", "gain", 64); err != nil {
		t.Fatalf("SaveControl() error = %v", err)
	}
	if err := store.SaveControl(ctx, "camera0", "bogus", 1); err != nil {
		t.Fatalf("SaveControl() error = %v", err)
	}

	m := New(Deps{Store: store})
	dev := newFakeDevice("camera0")
	dev.setErrs = map[string]error{"bogus": errors.New("unknown control")}
	if err := m.Add(dev); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	// A stale persisted control must not block the rest.
	if err := m.RestoreControls(ctx, "camera0"); err != nil {
		t.Fatalf("RestoreControls() error = %v", err)
	}
	if dev.controls["gain"] != 64 {
		t.Errorf("gain = %d, want 64", dev.controls["gain"])
	}
}

func TestManager_Snapshot(t *testing.T) {
	m := New(Deps{})
	dev := newFakeDevice("camera0")
	dev.controls["gain"] = 32
	if err := m.Add(dev); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	snap, err := m.Snapshot("camera0")
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if snap.ID != "camera0" || snap.Kind != KindCamera || snap.State != "unpowered" {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.Mode.Width != 1920 || snap.Mode.Height != 1080 {
		t.Errorf("snapshot mode = %+v", snap.Mode)
	}
	if snap.Controls["gain"] != 32 {
		t.Errorf("snapshot controls = %v", snap.Controls)
	}
}

func TestManager_List(t *testing.T) {
	m := New(Deps{})
	if err := m.Add(newFakeDevice("camera0")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := m.Add(newBareDevice("display0")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	snaps := m.List()
	if len(snaps) != 2 {
		t.Fatalf("List() returned %d snapshots, want 2", len(snaps))
	}
	if snaps[0].ID != "camera0" || snaps[1].ID != "display0" {
		t.Errorf("List() order = %s, %s", snaps[0].ID, snaps[1].ID)
	}
	if snaps[1].Controls != nil {
		t.Errorf("display snapshot controls = %v, want nil", snaps[1].Controls)
	}
}

func TestManager_SuspendResumeAll(t *testing.T) {
	m := New(Deps{})
	camera := newFakeDevice("camera0")
	display := newFakeDevice("display0")
	display.failOp = errors.New("bridge gone")
	if err := m.Add(camera); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := m.Add(display); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	// One device failing must not stop the sweep.
	m.SuspendAll(context.Background())
	m.ResumeAll(context.Background())

	want := []string{"suspend", "resume"}
	if len(camera.ops) != 2 || camera.ops[0] != want[0] || camera.ops[1] != want[1] {
		t.Errorf("camera ops = %v, want %v", camera.ops, want)
	}
	if len(display.ops) != 2 {
		t.Errorf("display ops = %v", display.ops)
	}
}

func TestManager_History_RecordsTransitions(t *testing.T) {
	store := newTestStore(t)
	m := New(Deps{Store: store})
	if err := m.Add(newFakeDevice("camera0")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	ctx := context.Background()
	if err := m.PowerOn(ctx, "camera0"); err != nil {
		t.Fatalf("PowerOn() error = %v", err)
	}
	if _, err := m.SetMode(ctx, "camera0", 1920, 1080); err != nil {
		t.Fatalf("SetMode() error = %v", err)
	}
	if err := m.StreamStart(ctx, "camera0"); err != nil {
		t.Fatalf("StreamStart() error = %v", err)
	}

	history, err := m.History(ctx, "camera0", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("History() returned %d entries, want 3", len(history))
	}
	if history[0].Op != "stream_start" || history[0].To != "streaming" {
		t.Errorf("history[0] = %+v", history[0])
	}

	if _, err := m.History(ctx, "nope", 10); !errors.Is(err, ErrUnknownDevice) {
		t.Errorf("History() unknown device error = %v", err)
	}
}
