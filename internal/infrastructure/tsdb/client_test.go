package tsdb_test

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-linewriter/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-linewriter/internal/infrastructure/tsdb"
	"github.com/nerrad567/gray-logic-linewriter/internal/lineprotocol"
)

// fakeTSDB records /write requests and answers /health.
type fakeTSDB struct {
	mu         sync.Mutex
	bodies     []string
	precisions []string
	labels     [][]string
	encodings  []string
	status     int
}

func (f *fakeTSDB) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/write", func(w http.ResponseWriter, r *http.Request) {
		var reader io.Reader = r.Body
		if r.Header.Get("Content-Encoding") == "gzip" {
			zr, err := gzip.NewReader(r.Body)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			reader = zr
		}
		body, _ := io.ReadAll(reader)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.bodies = append(f.bodies, string(body))
		f.precisions = append(f.precisions, r.URL.Query().Get("precision"))
		f.labels = append(f.labels, r.URL.Query()["extra_label"])
		f.encodings = append(f.encodings, r.Header.Get("Content-Encoding"))
		status := f.status
		if status == 0 {
			status = http.StatusNoContent
		}
		if status >= 400 {
			http.Error(w, "unable to parse line", status)
			return
		}
		w.WriteHeader(status)
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeTSDB) *tsdb.Client {
	t.Helper()
	return newTestClientWith(t, f, config.TSDBConfig{Timeout: 2})
}

func newTestClientWith(t *testing.T, f *fakeTSDB, cfg config.TSDBConfig) *tsdb.Client {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	cfg.Enabled = true
	cfg.URL = srv.URL + "/"
	client, err := tsdb.Connect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func mustBatch(t *testing.T, builders ...*lineprotocol.PointBuilder) *lineprotocol.Batch {
	t.Helper()
	items := make([]lineprotocol.PointConvertible, len(builders))
	for i, b := range builders {
		items[i] = b
	}
	batch, err := lineprotocol.NewBatch(items...)
	if err != nil {
		t.Fatalf("NewBatch() error = %v", err)
	}
	return batch
}

// =============================================================================
// Connection Tests
// =============================================================================

func TestConnect(t *testing.T) {
	client := newTestClient(t, &fakeTSDB{})

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
	if client.Name() != "tsdb" {
		t.Errorf("Name() = %q, want %q", client.Name(), "tsdb")
	}
}

func TestConnect_Disabled(t *testing.T) {
	_, err := tsdb.Connect(context.Background(), config.TSDBConfig{URL: "http://127.0.0.1:8428"})
	if !errors.Is(err, tsdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_InvalidURL(t *testing.T) {
	_, err := tsdb.Connect(context.Background(), config.TSDBConfig{
		Enabled: true,
		URL:     "http://127.0.0.1:59999", // Non-existent port
	})
	if !errors.Is(err, tsdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_Unhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := tsdb.Connect(context.Background(), config.TSDBConfig{Enabled: true, URL: srv.URL})
	if !errors.Is(err, tsdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

// =============================================================================
// Health Check Tests
// =============================================================================

func TestHealthCheck_Cancelled(t *testing.T) {
	client := newTestClient(t, &fakeTSDB{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := client.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() should return error for cancelled context")
	}
}

// =============================================================================
// Write Tests
// =============================================================================

func TestWrite_UsesBatchPrecision(t *testing.T) {
	f := &fakeTSDB{}
	client := newTestClient(t, f)

	batch := mustBatch(t,
		lineprotocol.NewPointBuilder("energy").
			Tag("device_id", "meter-01").
			Field("power_watts", 150.5).
			Timestamp(lineprotocol.FromSeconds(2)),
		lineprotocol.NewPointBuilder("energy").
			Tag("device_id", "meter-02").
			Field("power_watts", 12.0).
			Timestamp(lineprotocol.FromMicroseconds(5)),
	)

	if err := client.Write(context.Background(), batch); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.bodies) != 1 {
		t.Fatalf("got %d requests, want 1", len(f.bodies))
	}
	if f.precisions[0] != "u" {
		t.Errorf("precision = %q, want %q", f.precisions[0], "u")
	}
	want := "energy,device_id=meter-01 power_watts=150.5 2000000\n" +
		"energy,device_id=meter-02 power_watts=12 5"
	if f.bodies[0] != want {
		t.Errorf("body = %q, want %q", f.bodies[0], want)
	}
}

func TestWrite_UnresolvedBatchSentAsNanoseconds(t *testing.T) {
	f := &fakeTSDB{}
	client := newTestClient(t, f)

	batch := mustBatch(t, lineprotocol.NewPointBuilder("m").Field("v", 1))
	if got := client.Precision(batch); got != lineprotocol.Nanoseconds {
		t.Errorf("Precision() = %v, want ns", got)
	}
	if err := client.Write(context.Background(), batch); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.precisions[0] != "ns" {
		t.Errorf("precision = %q, want %q", f.precisions[0], "ns")
	}
}

func TestWrite_EmptyBatchIsNoop(t *testing.T) {
	f := &fakeTSDB{}
	client := newTestClient(t, f)

	if err := client.Write(context.Background(), &lineprotocol.Batch{}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.bodies) != 0 {
		t.Errorf("got %d requests, want 0", len(f.bodies))
	}
}

func TestSend_Rejected(t *testing.T) {
	f := &fakeTSDB{status: http.StatusBadRequest}
	client := newTestClient(t, f)

	err := client.Send(context.Background(), []byte("m v=1i"), lineprotocol.Seconds)
	if !errors.Is(err, tsdb.ErrWriteFailed) {
		t.Fatalf("Send() error = %v, want ErrWriteFailed", err)
	}
	if !errors.Is(err, tsdb.ErrRejected) {
		t.Errorf("Send() error = %v, want ErrRejected for 4xx", err)
	}
	if !strings.Contains(err.Error(), "HTTP 400") || !strings.Contains(err.Error(), "unable to parse") {
		t.Errorf("error %q should carry status and body", err)
	}
}

func TestSend_ServerErrorIsNotRejection(t *testing.T) {
	f := &fakeTSDB{status: http.StatusServiceUnavailable}
	client := newTestClient(t, f)

	err := client.Send(context.Background(), []byte("m v=1i"), lineprotocol.Seconds)
	if !errors.Is(err, tsdb.ErrWriteFailed) {
		t.Fatalf("Send() error = %v, want ErrWriteFailed", err)
	}
	if errors.Is(err, tsdb.ErrRejected) {
		t.Errorf("Send() error = %v, 5xx should not be ErrRejected", err)
	}
}

func TestRejected(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   bool
	}{
		{"bad request", http.StatusBadRequest, true},
		{"payload too large", http.StatusRequestEntityTooLarge, true},
		{"too many requests", http.StatusTooManyRequests, false},
		{"request timeout", http.StatusRequestTimeout, false},
		{"unavailable", http.StatusServiceUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, &fakeTSDB{status: tt.status})

			err := client.Send(context.Background(), []byte("m v=1i"), lineprotocol.Seconds)
			if err == nil {
				t.Fatal("Send() error = nil")
			}
			if got := client.Rejected(err); got != tt.want {
				t.Errorf("Rejected(%v) = %v, want %v", err, got, tt.want)
			}
		})
	}
}

func TestSend_GzipAndExtraLabels(t *testing.T) {
	f := &fakeTSDB{}
	client := newTestClientWith(t, f, config.TSDBConfig{
		Gzip:        true,
		ExtraLabels: map[string]string{"site": "site-001", "env": "test"},
	})

	if err := client.Send(context.Background(), []byte("m v=1i 5"), lineprotocol.Milliseconds); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bodies[0] != "m v=1i 5" {
		t.Errorf("body = %q, want decompressed payload", f.bodies[0])
	}
	if f.encodings[0] != "gzip" {
		t.Errorf("Content-Encoding = %q, want gzip", f.encodings[0])
	}
	if f.precisions[0] != "ms" {
		t.Errorf("precision = %q, want ms", f.precisions[0])
	}
	want := []string{"env=test", "site=site-001"}
	if strings.Join(f.labels[0], ",") != strings.Join(want, ",") {
		t.Errorf("extra_label = %v, want %v", f.labels[0], want)
	}
}

func TestSend_AfterClose(t *testing.T) {
	client := newTestClient(t, &fakeTSDB{})
	client.Close()

	err := client.Send(context.Background(), []byte("m v=1i"), lineprotocol.Seconds)
	if !errors.Is(err, tsdb.ErrNotConnected) {
		t.Errorf("Send() error = %v, want ErrNotConnected", err)
	}
}

func TestSend_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/write" {
			time.Sleep(200 * time.Millisecond)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := tsdb.Connect(context.Background(), config.TSDBConfig{Enabled: true, URL: srv.URL})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := client.Send(ctx, []byte("m v=1i"), lineprotocol.Seconds); !errors.Is(err, tsdb.ErrWriteFailed) {
		t.Errorf("Send() error = %v, want ErrWriteFailed", err)
	}
}
