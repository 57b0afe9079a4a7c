package influxdb

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/gray-logic-linewriter/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-linewriter/internal/lineprotocol"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultPingTimeout    = 5 * time.Second
	defaultRequestTimeout = 20
)

// Client is the InfluxDB v2 sink.
//
// Writes use the blocking write API so each failure reaches the pipeline,
// which owns retry and spooling. The library's own batching and retry
// queue are never used.
//
// Thread Safety: All methods are safe for concurrent use.
type Client struct {
	client    influxdb2.Client
	writeAPI  api.WriteAPIBlocking
	precision lineprotocol.Precision
	closed    atomic.Bool
}

// Connect pings the server and prepares a blocking writer for the
// configured org and bucket.
//
// Parameters:
//   - ctx: Bounds the initial ping
//   - cfg: InfluxDB section of the configuration
//
// Returns:
//   - *Client: Client ready for use
//   - error: ErrDisabled, an unknown precision, or ErrConnectionFailed
func Connect(ctx context.Context, cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	precision, err := lineprotocol.ParsePrecision(cfg.Precision)
	if err != nil {
		return nil, fmt.Errorf("influxdb: %w", err)
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, clientOptions(cfg, precision))

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()

	if err := ping(pingCtx, client); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return &Client{
		client:    client,
		writeAPI:  client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		precision: precision,
	}, nil
}

func clientOptions(cfg config.InfluxDBConfig, precision lineprotocol.Precision) *influxdb2.Options {
	timeout := defaultRequestTimeout
	if cfg.Timeout > 0 {
		timeout = cfg.Timeout
	}
	return influxdb2.DefaultOptions().
		SetPrecision(precision.Duration()).
		SetUseGZip(cfg.Gzip).
		SetHTTPRequestTimeout(uint(timeout))
}

func ping(ctx context.Context, client influxdb2.Client) error {
	healthy, err := client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	if !healthy {
		return errors.New("ping: server not healthy")
	}
	return nil
}

// Close marks the client closed and releases the underlying HTTP client.
// Safe on a nil client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.closed.Store(true)
	c.client.Close()
	return nil
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	if err := ping(ctx, c.client); err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	return nil
}

// IsConnected reports whether Close has not been called yet. It does not
// contact the server; use HealthCheck for that.
func (c *Client) IsConnected() bool {
	return !c.closed.Load()
}
