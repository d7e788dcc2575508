package manager

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/tabwork/hwcore/internal/infrastructure/mqtt"
)

type published struct {
	topic    string
	payload  []byte
	retained bool
}

// fakeBroker captures publishes and subscriptions for command plane
// tests.
type fakeBroker struct {
	published    []published
	subscribed   []string
	handlers     map[string]mqtt.MessageHandler
	publishErr   error
	subscribeErr error
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{handlers: make(map[string]mqtt.MessageHandler)}
}

func (b *fakeBroker) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if b.publishErr != nil {
		return b.publishErr
	}
	b.published = append(b.published, published{topic: topic, payload: payload, retained: retained})
	return nil
}

func (b *fakeBroker) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	if b.subscribeErr != nil {
		return b.subscribeErr
	}
	b.subscribed = append(b.subscribed, topic)
	b.handlers[topic] = handler
	return nil
}

// deliver injects a command as if the broker received it.
func (b *fakeBroker) deliver(t *testing.T, topic string, payload []byte) {
	t.Helper()
	handler, ok := b.handlers["hwcore/device/+/command"]
	if !ok {
		t.Fatal("no command subscription registered")
	}
	if err := handler(topic, payload); err != nil {
		t.Fatalf("handler error = %v", err)
	}
}

// lastOn returns the most recent publish to a topic.
func (b *fakeBroker) lastOn(topic string) (published, bool) {
	for i := len(b.published) - 1; i >= 0; i-- {
		if b.published[i].topic == topic {
			return b.published[i], true
		}
	}
	return published{}, false
}

func newTestPlane(t *testing.T) (*CommandPlane, *fakeBroker, *fakeDevice) {
	t.Helper()

	m := New(Deps{})
	dev := newFakeDevice("camera0")
	if err := m.Add(dev); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	broker := newFakeBroker()
	plane := NewCommandPlane(m, broker, 1, nil)
	if err := plane.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	return plane, broker, dev
}

func TestCommandPlane_StartSubscribesAndPublishesInitialState(t *testing.T) {
	_, broker, _ := newTestPlane(t)

	if len(broker.subscribed) != 1 || broker.subscribed[0] != "hwcore/device/+/command" {
		t.Errorf("subscribed = %v", broker.subscribed)
	}

	state, ok := broker.lastOn("hwcore/device/camera0/state")
	if !ok {
		t.Fatal("no initial state published")
	}
	if !state.retained {
		t.Error("state publish should be retained")
	}

	var msg StateMessage
	if err := json.Unmarshal(state.payload, &msg); err != nil {
		t.Fatalf("unmarshalling state: %v", err)
	}
	if msg.DeviceID != "camera0" || msg.State != "unpowered" {
		t.Errorf("state message = %+v", msg)
	}
}

func TestCommandPlane_PowerOnCommand(t *testing.T) {
	_, broker, dev := newTestPlane(t)

	cmd, _ := json.Marshal(CommandMessage{RequestID: "req-1", Op: OpPowerOn})
	broker.deliver(t, "hwcore/device/camera0/command", cmd)

	if dev.state != "powered_idle" {
		t.Errorf("device state = %q, want powered_idle", dev.state)
	}

	ackPub, ok := broker.lastOn("hwcore/device/camera0/ack")
	if !ok {
		t.Fatal("no ack published")
	}
	var ack AckMessage
	if err := json.Unmarshal(ackPub.payload, &ack); err != nil {
		t.Fatalf("unmarshalling ack: %v", err)
	}
	if ack.RequestID != "req-1" || !ack.Success || ack.Op != OpPowerOn {
		t.Errorf("ack = %+v", ack)
	}

	// The transition listener republishes the state.
	state, ok := broker.lastOn("hwcore/device/camera0/state")
	if !ok {
		t.Fatal("no state published")
	}
	var msg StateMessage
	if err := json.Unmarshal(state.payload, &msg); err != nil {
		t.Fatalf("unmarshalling state: %v", err)
	}
	if msg.State != "powered_idle" {
		t.Errorf("published state = %q, want powered_idle", msg.State)
	}
}

func TestCommandPlane_SetModeCommand(t *testing.T) {
	_, broker, dev := newTestPlane(t)

	cmd, _ := json.Marshal(CommandMessage{RequestID: "req-2", Op: OpSetMode, Width: 1280, Height: 720})
	broker.deliver(t, "hwcore/device/camera0/command", cmd)

	if dev.mode.Width != 1280 || dev.mode.Height != 720 {
		t.Errorf("device mode = %+v", dev.mode)
	}
}

func TestCommandPlane_SetControlCommand(t *testing.T) {
	_, broker, dev := newTestPlane(t)

	cmd, _ := json.Marshal(CommandMessage{Op: OpSetControl, Control: "gain", Value: 96})
	broker.deliver(t, "hwcore/device/camera0/command", cmd)

	if dev.controls["gain"] != 96 {
		t.Errorf("gain = %d, want 96", dev.controls["gain"])
	}

	ackPub, ok := broker.lastOn("hwcore/device/camera0/ack")
	if !ok {
		t.Fatal("no ack published")
	}
	var ack AckMessage
	if err := json.Unmarshal(ackPub.payload, &ack); err != nil {
		t.Fatalf("unmarshalling ack: %v", err)
	}
	// Missing request IDs are filled in so the ack can be correlated.
	if ack.RequestID == "" {
		t.Error("ack request_id should be generated when absent")
	}
}

func TestCommandPlane_FailedCommandAck(t *testing.T) {
	_, broker, dev := newTestPlane(t)
	dev.failOp = errors.New("bus timeout")

	cmd, _ := json.Marshal(CommandMessage{RequestID: "req-3", Op: OpStreamStart})
	broker.deliver(t, "hwcore/device/camera0/command", cmd)

	ackPub, ok := broker.lastOn("hwcore/device/camera0/ack")
	if !ok {
		t.Fatal("no ack published")
	}
	var ack AckMessage
	if err := json.Unmarshal(ackPub.payload, &ack); err != nil {
		t.Fatalf("unmarshalling ack: %v", err)
	}
	if ack.Success {
		t.Error("ack should report failure")
	}
	if ack.Error != "bus timeout" {
		t.Errorf("ack error = %q", ack.Error)
	}
}

func TestCommandPlane_UnknownOp(t *testing.T) {
	_, broker, _ := newTestPlane(t)

	cmd, _ := json.Marshal(CommandMessage{RequestID: "req-4", Op: "self_destruct"})
	broker.deliver(t, "hwcore/device/camera0/command", cmd)

	ackPub, ok := broker.lastOn("hwcore/device/camera0/ack")
	if !ok {
		t.Fatal("no ack published")
	}
	var ack AckMessage
	if err := json.Unmarshal(ackPub.payload, &ack); err != nil {
		t.Fatalf("unmarshalling ack: %v", err)
	}
	if ack.Success {
		t.Error("unknown op should fail")
	}
}

func TestCommandPlane_UnknownDevice(t *testing.T) {
	_, broker, _ := newTestPlane(t)

	cmd, _ := json.Marshal(CommandMessage{RequestID: "req-5", Op: OpPowerOn})
	broker.deliver(t, "hwcore/device/ghost/command", cmd)

	ackPub, ok := broker.lastOn("hwcore/device/ghost/ack")
	if !ok {
		t.Fatal("no ack published")
	}
	var ack AckMessage
	if err := json.Unmarshal(ackPub.payload, &ack); err != nil {
		t.Fatalf("unmarshalling ack: %v", err)
	}
	if ack.Success {
		t.Error("unknown device should fail")
	}
}

func TestCommandPlane_MalformedPayload(t *testing.T) {
	_, broker, dev := newTestPlane(t)

	broker.deliver(t, "hwcore/device/camera0/command", []byte("{not json"))

	if len(dev.ops) != 0 {
		t.Errorf("device ops = %v, want none", dev.ops)
	}

	ackPub, ok := broker.lastOn("hwcore/device/camera0/ack")
	if !ok {
		t.Fatal("malformed command should still produce an ack")
	}
	var ack AckMessage
	if err := json.Unmarshal(ackPub.payload, &ack); err != nil {
		t.Fatalf("unmarshalling ack: %v", err)
	}
	if ack.Success {
		t.Error("malformed command ack should report failure")
	}
}

func TestCommandPlane_GetState(t *testing.T) {
	_, broker, _ := newTestPlane(t)
	before := len(broker.published)

	cmd, _ := json.Marshal(CommandMessage{RequestID: "req-6", Op: OpGetState})
	broker.deliver(t, "hwcore/device/camera0/command", cmd)

	state, ok := broker.lastOn("hwcore/device/camera0/state")
	if !ok || len(broker.published) <= before {
		t.Fatal("get_state should republish the state")
	}
	var msg StateMessage
	if err := json.Unmarshal(state.payload, &msg); err != nil {
		t.Fatalf("unmarshalling state: %v", err)
	}
	if msg.Kind != KindCamera {
		t.Errorf("state kind = %q", msg.Kind)
	}
}

func TestDeviceIDFromTopic(t *testing.T) {
	tests := []struct {
		topic  string
		wantID string
		wantOK bool
	}{
		{"hwcore/device/camera0/command", "camera0", true},
		{"hwcore/device/display0/command", "display0", true},
		{"hwcore/device//command", "", false},
		{"hwcore/device/camera0/state", "", false},
		{"hwcore/system/status", "", false},
		{"other/device/camera0/command", "", false},
	}

	for _, tt := range tests {
		id, ok := deviceIDFromTopic(tt.topic)
		if id != tt.wantID || ok != tt.wantOK {
			t.Errorf("deviceIDFromTopic(%q) = %q, %v, want %q, %v",
				tt.topic, id, ok, tt.wantID, tt.wantOK)
		}
	}
}
