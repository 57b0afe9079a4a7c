package tsdb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/klauspost/compress/gzip"

	"github.com/nerrad567/gray-logic-linewriter/internal/lineprotocol"
)

// maxErrorBody bounds how much of a rejection body is kept in the error.
const maxErrorBody = 512

// v1 /write precision parameter values.
var precisionParams = map[lineprotocol.Precision]string{
	lineprotocol.Seconds:      "s",
	lineprotocol.Milliseconds: "ms",
	lineprotocol.Microseconds: "u",
	lineprotocol.Nanoseconds:  "ns",
}

// Name identifies the sink in logs and the spool.
func (c *Client) Name() string {
	return "tsdb"
}

// Precision returns the batch's own aggregate precision so no timestamp
// loses resolution. Batches with only unresolved timestamps are sent as
// nanoseconds.
func (c *Client) Precision(batch *lineprotocol.Batch) lineprotocol.Precision {
	p := batch.Precision()
	if !p.IsResolved() {
		return lineprotocol.DefaultPrecision
	}
	return p
}

// Write renders the batch at Precision and sends it.
func (c *Client) Write(ctx context.Context, batch *lineprotocol.Batch) error {
	if batch.IsEmpty() {
		return nil
	}
	p := c.Precision(batch)
	return c.Send(ctx, []byte(batch.ToLineProtocolWithPrecision(p)), p)
}

// Send POSTs newline-delimited line protocol to /write with the given
// timestamp precision.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - payload: Rendered line protocol
//   - precision: Unit the payload's timestamps are expressed in
//
// Returns:
//   - error: wraps ErrWriteFailed on transport failure or a non-2xx response
func (c *Client) Send(ctx context.Context, payload []byte, precision lineprotocol.Precision) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if len(payload) == 0 {
		return nil
	}

	param, ok := precisionParams[precision]
	if !ok {
		param = precisionParams[lineprotocol.DefaultPrecision]
	}

	body, err := c.encode(payload)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.writeURL(param), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if c.gzip {
		req.Header.Set("Content-Encoding", "gzip")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	case rejectedStatus(resp.StatusCode):
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: %w: HTTP %d: %s", ErrWriteFailed, ErrRejected, resp.StatusCode, bytes.TrimSpace(msg))
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: HTTP %d: %s", ErrWriteFailed, resp.StatusCode, bytes.TrimSpace(msg))
	}
}

// rejectedStatus reports a 4xx the server will repeat for the same payload.
// 408 and 429 are worth retrying.
func rejectedStatus(code int) bool {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return false
	}
	return code >= 400 && code < 500
}

// Rejected reports whether err means the server refused the payload itself.
// The pipeline drops such payloads instead of spooling them.
func (c *Client) Rejected(err error) bool {
	return errors.Is(err, ErrRejected)
}

func (c *Client) writeURL(precision string) string {
	q := url.Values{"precision": {precision}}
	for _, v := range c.query["extra_label"] {
		q.Add("extra_label", v)
	}
	return c.url + "/write?" + q.Encode()
}

// encode returns the request body, gzipped when the client is configured
// to compress.
func (c *Client) encode(payload []byte) ([]byte, error) {
	if !c.gzip {
		return payload, nil
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(payload); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
