package mqtt

import (
	"context"
	"fmt"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// maxPayloadSize is the largest message the client publishes (1MB), a
// common broker default.
const maxPayloadSize = 1 << 20

// Publish sends payload to topic and waits for the broker's acknowledgement
// at qos, or until ctx ends or defaultPublishTimeout passes.
//
// Example:
//
//	topic := client.Topics().Lines(lineprotocol.Milliseconds)
//	err := client.Publish(ctx, topic, []byte("cpu load=0.5 1"), 1, false)
func (c *Client) Publish(ctx context.Context, topic string, payload []byte, qos byte, retained bool) error {
	if err := checkTopic(topic, qos); err != nil {
		return err
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: %d byte payload, limit %d", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	return await(ctx, c.client.Publish(topic, qos, retained, payload), ErrPublishFailed)
}

// Subscribe registers handler for topic, which may contain + and #
// wildcards. The subscription is restored after every reconnect.
//
// Example:
//
//	err := client.Subscribe(ctx, client.Topics().Write(), 1, decoder.MessageHandler(ctx, pipe))
func (c *Client) Subscribe(ctx context.Context, topic string, qos byte, handler MessageHandler) error {
	if err := checkTopic(topic, qos); err != nil {
		return err
	}
	if handler == nil {
		return fmt.Errorf("%w: nil handler", ErrSubscribeFailed)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.subMu.Lock()
	c.handlers[topic] = subscription{qos: qos, handler: handler}
	c.subMu.Unlock()

	if err := await(ctx, c.client.Subscribe(topic, qos, c.wrapHandler(handler)), ErrSubscribeFailed); err != nil {
		c.subMu.Lock()
		delete(c.handlers, topic)
		c.subMu.Unlock()
		return err
	}
	return nil
}

// Unsubscribe drops the subscription for the exact topic pattern given to
// Subscribe. Messages already in flight may still reach the handler.
func (c *Client) Unsubscribe(ctx context.Context, topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.subMu.Lock()
	delete(c.handlers, topic)
	c.subMu.Unlock()

	return await(ctx, c.client.Unsubscribe(topic), ErrUnsubscribeFailed)
}

func checkTopic(topic string, qos byte) error {
	switch {
	case topic == "":
		return ErrInvalidTopic
	case qos > maxQoS:
		return ErrInvalidQoS
	}
	return nil
}

// subscribed reports whether topic is tracked for restoration.
func (c *Client) subscribed(topic string) bool {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	_, ok := c.handlers[topic]
	return ok
}

// await blocks until token completes, ctx ends or defaultPublishTimeout
// passes, wrapping any failure in sentinel.
func await(ctx context.Context, token pahomqtt.Token, sentinel error) error {
	ctx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()

	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", sentinel, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return nil
}
