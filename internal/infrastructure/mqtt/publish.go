package mqtt

import (
	"fmt"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Maximum payload size for MQTT messages (1MB).
// This prevents resource exhaustion and aligns with typical broker limits.
const maxPayloadSize = 1 << 20 // 1MB

// Publish sends a message to the specified MQTT topic.
//
// Parameters:
//   - topic: The topic to publish to (e.g., "iotdemo/esp32dev")
//   - qos: Quality of Service level (0, 1, or 2)
//   - retain: Whether the broker should retain the message for new subscribers
//   - payload: The message payload (typically JSON, max 1MB)
//
// QoS Levels:
//   - 0: At most once (fire and forget)
//   - 1: At least once (guaranteed delivery, may duplicate)
//   - 2: Exactly once (guaranteed, no duplicates, higher overhead)
//
// Returns:
//   - uint16: The packet identifier assigned by the client (0 for QoS 0)
//   - error: nil on success, or wrapped error describing the failure
//
// Example:
//
//	id, err := client.Publish(mqtt.Topics{}.BoardResults("esp32dev"), 1, true, payload)
func (c *Client) Publish(topic string, qos byte, retain bool, payload []byte) (uint16, error) {
	if topic == "" {
		return 0, ErrInvalidTopic
	}
	if qos > maxQoS {
		return 0, ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return 0, fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return 0, ErrNotConnected
	}

	token := c.pahoClient().Publish(topic, qos, retain, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return 0, fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	var id uint16
	if pt, ok := token.(*pahomqtt.PublishToken); ok {
		id = pt.MessageID()
	}
	return id, nil
}

// PublishRetained publishes a retained message with the configured default QoS.
//
// Use for results where new subscribers should receive the latest value.
func (c *Client) PublishRetained(topic string, payload []byte) (uint16, error) {
	return c.Publish(topic, byte(c.cfg.QoS), true, payload)
}
