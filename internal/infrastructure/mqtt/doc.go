// Package mqtt provides MQTT client connectivity for hwcore.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// hwcore exposes its device command plane over MQTT so that headless
// controllers (power managers, test rigs, kiosk supervisors) can drive
// the camera and display without the HTTP API. Device state changes are
// published as retained messages; commands arrive on per-device topics
// and are acknowledged individually.
//
//	controllers ↔ MQTT Broker ↔ hwcore
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all device commands
//	err = client.Subscribe(mqtt.Topics{}.AllDeviceCommands(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish a command
//	topic := mqtt.Topics{}.DeviceCommand("camera0")
//	client.Publish(topic, []byte(`{"op":"power_on"}`), 1, false)
package mqtt
