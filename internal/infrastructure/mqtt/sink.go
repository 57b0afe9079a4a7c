package mqtt

import (
	"bytes"
	"context"
	"fmt"

	"github.com/nerrad567/gray-logic-linewriter/internal/lineprotocol"
)

// Name identifies the sink in logs and the spool.
func (c *Client) Name() string {
	return "mqtt"
}

// Precision returns the batch's aggregate precision, falling back to
// nanoseconds when no point carries a timestamp.
func (c *Client) Precision(batch *lineprotocol.Batch) lineprotocol.Precision {
	p := batch.Precision()
	if !p.IsResolved() {
		return lineprotocol.DefaultPrecision
	}
	return p
}

// Write renders the batch at Precision and publishes it.
func (c *Client) Write(ctx context.Context, batch *lineprotocol.Batch) error {
	if batch.IsEmpty() {
		return nil
	}
	p := c.Precision(batch)
	return c.Send(ctx, []byte(batch.ToLineProtocolWithPrecision(p)), p)
}

// Send publishes rendered line protocol to the Lines topic for precision.
// Payloads above the broker limit are split on line boundaries and
// published in order.
func (c *Client) Send(ctx context.Context, payload []byte, precision lineprotocol.Precision) error {
	chunks, err := splitLines(payload, maxPayloadSize)
	if err != nil {
		return err
	}

	topic := c.topics.Lines(precision)
	for _, chunk := range chunks {
		if err := c.Publish(ctx, topic, chunk, byte(c.cfg.QoS), false); err != nil {
			return err
		}
	}
	return nil
}

// splitLines cuts payload into pieces no longer than limit without breaking
// a line. Empty payloads produce no pieces.
func splitLines(payload []byte, limit int) ([][]byte, error) {
	var chunks [][]byte
	for len(payload) > 0 {
		if len(payload) <= limit {
			chunks = append(chunks, payload)
			break
		}
		cut := bytes.LastIndexByte(payload[:limit+1], '\n')
		if cut <= 0 {
			return nil, fmt.Errorf("%w: %d bytes", ErrLineTooLarge, lineLength(payload))
		}
		chunks = append(chunks, payload[:cut])
		payload = payload[cut+1:]
	}
	return chunks, nil
}

func lineLength(b []byte) int {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		return i
	}
	return len(b)
}
