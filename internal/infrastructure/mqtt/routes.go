package mqtt

import (
	"encoding/json"
	"fmt"
)

// SubscribeCommands runs every payload published on the construct's command
// topic as an invocation argument.
func (c *Client) SubscribeCommands(constructID string, run func(argument string) error) error {
	return c.subscribe(CommandTopic(constructID), func(_ string, payload []byte) error {
		return run(string(payload))
	})
}

// SubscribeReadings hands every device reading published by a bridge to
// apply, keyed by the device ID taken from the topic.
func (c *Client) SubscribeReadings(apply func(deviceID string, reading []byte) error) error {
	return c.subscribe(stateWildcard, func(topic string, payload []byte) error {
		id, ok := deviceIDFromStateTopic(topic)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnexpectedTopic, topic)
		}
		return apply(id, payload)
	})
}

// PublishSnapshot publishes a retained JSON snapshot of a device.
func (c *Client) PublishSnapshot(deviceID string, snapshot any) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encoding snapshot of %s: %w", deviceID, err)
	}
	return c.publish(SnapshotTopic(deviceID), payload, true)
}

// PublishEcho publishes one diagnostic line. Lines are not retained.
func (c *Client) PublishEcho(constructID, line string) error {
	return c.publish(EchoTopic(constructID), []byte(line), false)
}

// ReleaseRoutes unsubscribes from every route. The client stays connected.
func (c *Client) ReleaseRoutes() error {
	c.mu.Lock()
	topics := make([]string, 0, len(c.routes))
	for topic := range c.routes {
		topics = append(topics, topic)
	}
	clear(c.routes)
	c.mu.Unlock()

	if len(topics) == 0 {
		return nil
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if err := wait(c.paho.Unsubscribe(topics...), ackTimeout); err != nil {
		return fmt.Errorf("%w: %w", ErrUnsubscribeFailed, err)
	}
	return nil
}
