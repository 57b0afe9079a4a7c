package influxdb_test

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-linewriter/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-linewriter/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-linewriter/internal/lineprotocol"
)

// fakeInflux answers /ping and records /api/v2/write requests.
type fakeInflux struct {
	mu      sync.Mutex
	bodies  []string
	queries []map[string]string
	gzipped []bool
	status  int
}

func (f *fakeInflux) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/api/v2/write", func(w http.ResponseWriter, r *http.Request) {
		var reader io.Reader = r.Body
		gzipped := r.Header.Get("Content-Encoding") == "gzip"
		if gzipped {
			zr, err := gzip.NewReader(r.Body)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			reader = zr
		}
		body, _ := io.ReadAll(reader)
		q := r.URL.Query()
		f.mu.Lock()
		defer f.mu.Unlock()
		f.bodies = append(f.bodies, string(body))
		f.gzipped = append(f.gzipped, gzipped)
		f.queries = append(f.queries, map[string]string{
			"org":       q.Get("org"),
			"bucket":    q.Get("bucket"),
			"precision": q.Get("precision"),
		})
		if f.status >= 400 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(`{"code":"invalid","message":"unable to parse"}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func fakeConfig(url string) config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:   true,
		URL:       url,
		Token:     "test-token",
		Org:       "graylogic",
		Bucket:    "metrics",
		Precision: "ms",
	}
}

func newTestClient(t *testing.T, f *fakeInflux) *influxdb.Client {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	client, err := influxdb.Connect(context.Background(), fakeConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// =============================================================================
// Connection Tests
// =============================================================================

func TestConnect_Disabled(t *testing.T) {
	cfg := fakeConfig("http://127.0.0.1:8086")
	cfg.Enabled = false

	_, err := influxdb.Connect(context.Background(), cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_InvalidURL(t *testing.T) {
	_, err := influxdb.Connect(context.Background(), fakeConfig("http://127.0.0.1:59999"))
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_BadPrecision(t *testing.T) {
	cfg := fakeConfig("http://127.0.0.1:8086")
	cfg.Precision = "h"

	_, err := influxdb.Connect(context.Background(), cfg)
	if !errors.Is(err, lineprotocol.ErrUnknownPrecision) {
		t.Errorf("Connect() error = %v, want ErrUnknownPrecision", err)
	}
}

func TestHealthCheck(t *testing.T) {
	client := newTestClient(t, &fakeInflux{})

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

// =============================================================================
// Write Tests
// =============================================================================

func TestWrite_RendersConfiguredPrecision(t *testing.T) {
	f := &fakeInflux{}
	client := newTestClient(t, f)

	p, err := lineprotocol.NewPointBuilder("climate").
		Tag("device_id", "thermostat-01").
		Field("temperature", 21.5).
		Timestamp(lineprotocol.FromNanoseconds(1_500_000_123)).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if got := client.Precision(nil); got != lineprotocol.Milliseconds {
		t.Errorf("Precision() = %v, want ms", got)
	}
	if err := client.Write(context.Background(), lineprotocol.BatchFrom(p)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.bodies) != 1 {
		t.Fatalf("got %d writes, want 1", len(f.bodies))
	}
	if f.bodies[0] != "climate,device_id=thermostat-01 temperature=21.5 1500" {
		t.Errorf("body = %q", f.bodies[0])
	}
	q := f.queries[0]
	if q["org"] != "graylogic" || q["bucket"] != "metrics" || q["precision"] != "ms" {
		t.Errorf("query = %v", q)
	}
}

func TestSend_PrecisionMismatch(t *testing.T) {
	client := newTestClient(t, &fakeInflux{})

	err := client.Send(context.Background(), []byte("m v=1i 1"), lineprotocol.Seconds)
	if !errors.Is(err, influxdb.ErrPrecisionMismatch) {
		t.Errorf("Send() error = %v, want ErrPrecisionMismatch", err)
	}
	if !client.Rejected(err) {
		t.Error("Rejected() = false for a precision mismatch")
	}
}

func TestSend_ServerRejects(t *testing.T) {
	client := newTestClient(t, &fakeInflux{status: http.StatusBadRequest})

	err := client.Send(context.Background(), []byte("m v=1i 1"), lineprotocol.Milliseconds)
	if !errors.Is(err, influxdb.ErrWriteFailed) {
		t.Errorf("Send() error = %v, want ErrWriteFailed", err)
	}
	if !errors.Is(err, influxdb.ErrRejected) || !client.Rejected(err) {
		t.Errorf("Send() error = %v, want a rejection", err)
	}
}

func TestSend_ServerUnavailableIsNotRejection(t *testing.T) {
	client := newTestClient(t, &fakeInflux{status: http.StatusServiceUnavailable})

	err := client.Send(context.Background(), []byte("m v=1i 1"), lineprotocol.Milliseconds)
	if !errors.Is(err, influxdb.ErrWriteFailed) {
		t.Fatalf("Send() error = %v, want ErrWriteFailed", err)
	}
	if client.Rejected(err) {
		t.Errorf("Rejected(%v) = true, want false for 503", err)
	}
}

func TestSend_Gzip(t *testing.T) {
	f := &fakeInflux{}
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	cfg := fakeConfig(srv.URL)
	cfg.Gzip = true
	client, err := influxdb.Connect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if err := client.Send(context.Background(), []byte("m v=1i 7"), lineprotocol.Milliseconds); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.bodies) != 1 {
		t.Fatalf("got %d requests, want 1", len(f.bodies))
	}
	if !f.gzipped[0] {
		t.Error("request was not gzip encoded")
	}
	if f.bodies[0] != "m v=1i 7" {
		t.Errorf("body = %q, want %q", f.bodies[0], "m v=1i 7")
	}
}

// =============================================================================
// Close Tests
// =============================================================================

func TestClose(t *testing.T) {
	client := newTestClient(t, &fakeInflux{})

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
	if err := client.Send(context.Background(), []byte("m v=1i"), lineprotocol.Milliseconds); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("Send() after Close error = %v, want ErrNotConnected", err)
	}
}

func TestClose_Nil(t *testing.T) {
	var client *influxdb.Client
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}
}

// =============================================================================
// Integration
// =============================================================================

// TestWrite_Live writes to a real InfluxDB when RUN_INTEGRATION is set.
// These values match docker-compose.yml.
func TestWrite_Live(t *testing.T) {
	if os.Getenv("RUN_INTEGRATION") == "" {
		t.Skip("RUN_INTEGRATION not set, skipping integration test")
	}

	cfg := fakeConfig("http://127.0.0.1:8086")
	cfg.Token = "graylogic-dev-token"

	client, err := influxdb.Connect(context.Background(), cfg)
	if err != nil {
		t.Skipf("InfluxDB not available: %v", err)
	}
	defer client.Close()

	p, err := lineprotocol.NewPointBuilder("linewriter_integration").
		Tag("source", "test").
		Field("value", 99.9).
		Time(time.Now(), lineprotocol.Milliseconds).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if err := client.Write(context.Background(), lineprotocol.BatchFrom(p)); err != nil {
		t.Errorf("Write() error = %v", err)
	}
}
