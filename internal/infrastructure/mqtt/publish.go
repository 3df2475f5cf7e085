package mqtt

import (
	"fmt"
)

// maxPayloadSize caps outbound messages at 1MB, in line with common
// broker limits.
const maxPayloadSize = 1 << 20

// Publish sends payload to topic and waits for the broker to accept it.
// QoS must be 0 (fire and forget), 1 (at least once) or 2 (exactly
// once). A retained message is stored by the broker and handed to new
// subscribers; use it for state topics such as presence, not for
// one-shot events.
//
//	topic := mqtt.Topics{}.TemplateUpdated("tpl-a1b2c3d4")
//	err := client.Publish(topic, []byte(`{"updated_by":"usr-9f8e7d6c"}`), 1, false)
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload is %d bytes, limit %d", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.paho.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// PublishString publishes a string payload.
func (c *Client) PublishString(topic string, payload string, qos byte, retained bool) error {
	return c.Publish(topic, []byte(payload), qos, retained)
}

// PublishRetained publishes a retained message at the configured
// default QoS.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, payload, byte(c.cfg.QoS), true)
}
