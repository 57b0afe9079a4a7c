package influxdb

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	influxhttp "github.com/influxdata/influxdb-client-go/v2/api/http"

	"github.com/nerrad567/gray-logic-linewriter/internal/lineprotocol"
)

// Name identifies the sink in logs and the spool.
func (c *Client) Name() string {
	return "influxdb"
}

// Precision returns the configured write precision. The client declares
// one precision per connection, so every batch is rendered in it and finer
// timestamps are truncated.
func (c *Client) Precision(*lineprotocol.Batch) lineprotocol.Precision {
	return c.precision
}

// Write renders the batch at the configured precision and sends it.
func (c *Client) Write(ctx context.Context, batch *lineprotocol.Batch) error {
	if batch.IsEmpty() {
		return nil
	}
	return c.Send(ctx, []byte(batch.ToLineProtocolWithPrecision(c.precision)), c.precision)
}

// Send writes pre-rendered line protocol through WriteRecord.
//
// The payload must be rendered in the configured precision; anything else
// returns ErrPrecisionMismatch because the server would misread every
// timestamp.
func (c *Client) Send(ctx context.Context, payload []byte, precision lineprotocol.Precision) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if precision != c.precision {
		return fmt.Errorf("%w: payload is %s, client writes %s", ErrPrecisionMismatch, precision, c.precision)
	}
	if len(payload) == 0 {
		return nil
	}

	if err := c.writeAPI.WriteRecord(ctx, string(payload)); err != nil {
		var herr *influxhttp.Error
		if errors.As(err, &herr) && rejectedStatus(herr.StatusCode) {
			return fmt.Errorf("%w: %w: %w", ErrWriteFailed, ErrRejected, err)
		}
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

func rejectedStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return code >= 400 && code < 500
}

// Rejected reports whether err can never succeed on this connection: the
// server refused the payload, or it was rendered in another precision.
func (c *Client) Rejected(err error) bool {
	return errors.Is(err, ErrRejected) || errors.Is(err, ErrPrecisionMismatch)
}
