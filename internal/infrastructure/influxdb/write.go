package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteControlSample records the value of one device control: gain and
// exposure samples while the camera streams, flip toggles, and so on.
// Non-blocking; points are batched and sent asynchronously.
func (c *Client) WriteControlSample(deviceID string, control string, value float64) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(
		"control_samples",
		map[string]string{"device_id": deviceID, "control": control},
		map[string]interface{}{"value": value},
		time.Now(),
	))
}

// WriteStateTransition records a device state machine transition and
// how long it took: power cycle frequency, bring-up duration, and
// which transitions fail all fall out of this measurement.
func (c *Client) WriteStateTransition(deviceID string, from, to string, durationMS float64) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(
		"state_transitions",
		map[string]string{"device_id": deviceID, "from": from, "to": to},
		map[string]interface{}{"duration_ms": durationMS},
		time.Now(),
	))
}

// WriteBusError records a register bus transfer failure. Bus error
// rates are the leading indicator of flaky wiring or a part about to
// fall off the bus, so they get their own measurement.
func (c *Client) WriteBusError(deviceID string, op string) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(
		"bus_errors",
		map[string]string{"device_id": deviceID, "op": op},
		map[string]interface{}{"count": 1},
		time.Now(),
	))
}

// WritePointWithTime records a custom measurement with an explicit
// timestamp, for data that isn't stamped "now".
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, timestamp))
}
