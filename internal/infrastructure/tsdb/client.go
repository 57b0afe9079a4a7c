package tsdb

import (
	"context"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-linewriter/internal/infrastructure/config"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultWriteTimeout   = 5 * time.Second
)

// Client delivers rendered line protocol to a VictoriaMetrics (or any
// InfluxDB v1 compatible) /write endpoint.
//
// The client does no batching of its own. The pipeline hands it complete
// batches, and each Send is a single HTTP POST.
//
// Thread Safety: All methods are safe for concurrent use.
type Client struct {
	url        string
	httpClient *http.Client
	gzip       bool

	// query holds the extra_label parameters sent with every write.
	query url.Values

	closed atomic.Bool
}

// Connect builds a client for cfg and checks GET /health before returning it.
//
// Returns:
//   - *Client: Client ready for use
//   - error: ErrDisabled, or ErrConnectionFailed when the health check fails
func Connect(ctx context.Context, cfg config.TSDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}

	query := url.Values{}
	for _, k := range slices.Sorted(maps.Keys(cfg.ExtraLabels)) {
		query.Add("extra_label", k+"="+cfg.ExtraLabels[k])
	}

	c := &Client{
		url:        strings.TrimRight(cfg.URL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		gzip:       cfg.Gzip,
		query:      query,
	}

	healthCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()

	if err := c.HealthCheck(healthCtx); err != nil {
		return nil, fmt.Errorf("%w: health check failed: %w", ErrConnectionFailed, err)
	}
	return c, nil
}

// Close stops further sends and releases idle connections.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.closed.Store(true)
	c.httpClient.CloseIdleConnections()
	return nil
}

// HealthCheck performs GET /health and expects 200.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"/health", nil)
	if err != nil {
		return fmt.Errorf("tsdb health check: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tsdb health check: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tsdb health check: status %d", resp.StatusCode)
	}
	return nil
}

// IsConnected reports whether Close has not been called yet.
func (c *Client) IsConnected() bool {
	return !c.closed.Load()
}
