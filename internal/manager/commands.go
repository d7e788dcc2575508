package manager

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tabwork/hwcore/internal/infrastructure/mqtt"
)

// Command ops accepted over the command plane.
const (
	OpPowerOn     = "power_on"
	OpPowerOff    = "power_off"
	OpStreamStart = "stream_start"
	OpStreamStop  = "stream_stop"
	OpSetMode     = "set_mode"
	OpSuspend     = "suspend"
	OpResume      = "resume"
	OpSetControl  = "set_control"
	OpProbe       = "probe"
	OpGetState    = "get_state"
)

// CommandMessage is the JSON payload accepted on a device command topic.
// Width/Height apply to set_mode, Control/Value to set_control.
type CommandMessage struct {
	RequestID string `json:"request_id,omitempty"`
	Op        string `json:"op"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Control   string `json:"control,omitempty"`
	Value     int    `json:"value,omitempty"`
}

// AckMessage is published on the device ack topic after each command.
type AckMessage struct {
	RequestID string `json:"request_id"`
	DeviceID  string `json:"device_id"`
	Op        string `json:"op"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// StateMessage is published retained on the device state topic so late
// subscribers see the current state without issuing a command.
type StateMessage struct {
	DeviceID  string         `json:"device_id"`
	Kind      string         `json:"kind"`
	State     string         `json:"state"`
	Mode      ModeInfo       `json:"mode"`
	Controls  map[string]int `json:"controls,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// Broker is the slice of the MQTT client the command plane uses.
type Broker interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// CommandPlane binds the manager to MQTT command topics. Incoming
// commands are dispatched to the manager; each command gets an ack, and
// state changes are published retained on the device state topic.
type CommandPlane struct {
	manager *Manager
	broker  Broker
	topics  mqtt.Topics
	qos     byte
	logger  Logger
}

// NewCommandPlane creates a command plane. It does not subscribe; call
// Start once the broker connection is up.
func NewCommandPlane(manager *Manager, broker Broker, qos byte, logger Logger) *CommandPlane {
	if logger == nil {
		logger = noopLogger{}
	}
	return &CommandPlane{
		manager: manager,
		broker:  broker,
		qos:     qos,
		logger:  logger,
	}
}

// Start subscribes to the device command topics and hooks state events
// so every transition is published to the device's state topic.
func (p *CommandPlane) Start(ctx context.Context) error {
	if err := p.broker.Subscribe(p.topics.AllDeviceCommands(), p.qos, func(topic string, payload []byte) error {
		p.handleCommand(ctx, topic, payload)
		return nil
	}); err != nil {
		return fmt.Errorf("subscribing to device commands: %w", err)
	}

	p.manager.Subscribe(func(ev StateEvent) {
		p.publishState(ev.DeviceID)
	})

	for _, id := range p.manager.IDs() {
		p.publishState(id)
	}

	p.logger.Info("command plane started", "topic", p.topics.AllDeviceCommands())

	return nil
}

// handleCommand parses and dispatches one command, then publishes the
// ack. Malformed payloads get an ack with the parse error so the sender
// sees the rejection.
func (p *CommandPlane) handleCommand(ctx context.Context, topic string, payload []byte) {
	deviceID, ok := deviceIDFromTopic(topic)
	if !ok {
		p.logger.Warn("command on unexpected topic", "topic", topic)
		return
	}

	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		p.logger.Warn("malformed command payload", "device_id", deviceID, "error", err)
		p.publishAck(deviceID, CommandMessage{}, fmt.Errorf("parsing command: %w", err))
		return
	}
	if cmd.RequestID == "" {
		cmd.RequestID = uuid.NewString()
	}

	err := p.dispatch(ctx, deviceID, cmd)
	p.publishAck(deviceID, cmd, err)

	// get_state carries no transition, so publish the snapshot here.
	if err == nil && cmd.Op == OpGetState {
		p.publishState(deviceID)
	}
}

// dispatch routes one command to the matching manager operation.
func (p *CommandPlane) dispatch(ctx context.Context, deviceID string, cmd CommandMessage) error {
	switch cmd.Op {
	case OpPowerOn:
		return p.manager.PowerOn(ctx, deviceID)
	case OpPowerOff:
		return p.manager.PowerOff(ctx, deviceID)
	case OpStreamStart:
		return p.manager.StreamStart(ctx, deviceID)
	case OpStreamStop:
		return p.manager.StreamStop(ctx, deviceID)
	case OpSetMode:
		_, err := p.manager.SetMode(ctx, deviceID, cmd.Width, cmd.Height)
		return err
	case OpSuspend:
		return p.manager.Suspend(ctx, deviceID)
	case OpResume:
		return p.manager.Resume(ctx, deviceID)
	case OpSetControl:
		return p.manager.SetControl(ctx, deviceID, cmd.Control, cmd.Value)
	case OpProbe:
		return p.manager.Probe(ctx, deviceID)
	case OpGetState:
		_, err := p.manager.Get(deviceID)
		return err
	default:
		return fmt.Errorf("%w: %s", ErrUnknownOp, cmd.Op)
	}
}

func (p *CommandPlane) publishAck(deviceID string, cmd CommandMessage, opErr error) {
	ack := AckMessage{
		RequestID: cmd.RequestID,
		DeviceID:  deviceID,
		Op:        cmd.Op,
		Success:   opErr == nil,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if opErr != nil {
		ack.Error = opErr.Error()
	}

	payload, err := json.Marshal(ack)
	if err != nil {
		p.logger.Error("marshalling ack", "device_id", deviceID, "error", err)
		return
	}

	if err := p.broker.Publish(p.topics.DeviceAck(deviceID), payload, p.qos, false); err != nil {
		p.logger.Warn("publishing ack", "device_id", deviceID, "error", err)
	}
}

func (p *CommandPlane) publishState(deviceID string) {
	snap, err := p.manager.Snapshot(deviceID)
	if err != nil {
		p.logger.Warn("state snapshot failed", "device_id", deviceID, "error", err)
		return
	}

	msg := StateMessage{
		DeviceID:  snap.ID,
		Kind:      snap.Kind,
		State:     snap.State,
		Mode:      snap.Mode,
		Controls:  snap.Controls,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		p.logger.Error("marshalling state", "device_id", deviceID, "error", err)
		return
	}

	if err := p.broker.Publish(p.topics.DeviceState(deviceID), payload, p.qos, true); err != nil {
		p.logger.Warn("publishing state", "device_id", deviceID, "error", err)
	}
}

// deviceIDFromTopic extracts the device ID from a command topic of the
// form hwcore/device/{id}/command.
func deviceIDFromTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != mqtt.TopicPrefix || parts[1] != "device" || parts[3] != "command" {
		return "", false
	}
	if parts[2] == "" {
		return "", false
	}
	return parts[2], true
}
