package sampler

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	protocol "github.com/influxdata/line-protocol"

	"github.com/nerrad567/gray-logic-linewriter/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-linewriter/internal/lineprotocol"
	"github.com/nerrad567/gray-logic-linewriter/internal/pipeline"
)

type recordingAdder struct {
	mu     sync.Mutex
	points []lineprotocol.Point
}

func (a *recordingAdder) Add(_ context.Context, points ...lineprotocol.Point) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.points = append(a.points, points...)
	return nil
}

func (a *recordingAdder) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.points)
}

type fixedStats pipeline.Stats

func (f fixedStats) Stats() pipeline.Stats { return pipeline.Stats(f) }

func TestSample_RuntimeOnly(t *testing.T) {
	s := New(Config{Site: "site-001", Precision: lineprotocol.Milliseconds}, &recordingAdder{}, nil, logging.Discard())
	s.host = "core-01"
	s.now = func() time.Time { return time.UnixMilli(1_700_000_000_123) }

	points, err := s.Sample()
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}
	if len(points) != 7 {
		t.Fatalf("Sample() returned %d points, want 7", len(points))
	}

	line := points[0].StringWithPrecision(lineprotocol.Milliseconds)
	if !strings.HasPrefix(line, "linewriter_runtime,site=site-001,host=core-01 goroutines=") {
		t.Errorf("line = %q", line)
	}
	if !strings.HasSuffix(line, "i 1700000000123") {
		t.Errorf("line %q should end with the ms timestamp", line)
	}
	heap := points[1].StringWithPrecision(lineprotocol.Milliseconds)
	if !strings.HasPrefix(heap, "linewriter_runtime,site=site-001,host=core-01 heap_alloc_bytes=") ||
		!strings.HasSuffix(heap, "u 1700000000123") {
		t.Errorf("heap line = %q, want an unsigned field", heap)
	}
	for i, p := range points {
		if len(p.Fields()) != 1 {
			t.Errorf("points[%d] has %d fields, want 1", i, len(p.Fields()))
		}
		if p.Precision() != lineprotocol.Milliseconds {
			t.Errorf("points[%d].Precision() = %v, want ms", i, p.Precision())
		}
	}
}

func TestSample_LinesParse(t *testing.T) {
	s := New(Config{Site: "s"}, &recordingAdder{}, fixedStats{Buffered: 1}, logging.Discard())
	s.host = "vm"

	points, err := s.Sample()
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}

	payload := lineprotocol.BatchFromPoints(points).ToLineProtocolWithPrecision(lineprotocol.Seconds) + "\n"
	metrics, err := protocol.NewParser(protocol.NewMetricHandler()).Parse([]byte(payload))
	if err != nil {
		t.Fatalf("Parse() error = %v\npayload:\n%s", err, payload)
	}
	if len(metrics) != len(points) {
		t.Errorf("parsed %d metrics, want %d", len(metrics), len(points))
	}
}

func TestSample_WithPipelineStats(t *testing.T) {
	stats := fixedStats{Buffered: 3, PointsAccepted: 10, Spooled: 1}
	s := New(Config{Site: "s"}, &recordingAdder{}, stats, logging.Discard())

	points, err := s.Sample()
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}
	// Seven runtime metrics, then nine pipeline counters.
	if len(points) != 16 {
		t.Fatalf("Sample() returned %d points, want 16", len(points))
	}

	var lines []string
	for _, p := range points[7:] {
		lines = append(lines, p.String())
	}
	all := strings.Join(lines, "\n")
	for _, want := range []string{PipelineMeasurement + ",site=s,", " buffered=3i ", " points_accepted=10i ", " spooled=1i ", " rejected=0i "} {
		if !strings.Contains(all, want) {
			t.Errorf("pipeline lines missing %q:\n%s", want, all)
		}
	}
	// Unset precision defaults to seconds.
	if points[7].Precision() != lineprotocol.Seconds {
		t.Errorf("Precision() = %v, want s", points[7].Precision())
	}
}

func TestSample_InvalidSite(t *testing.T) {
	s := New(Config{Site: "bad\nsite"}, &recordingAdder{}, nil, logging.Discard())

	if _, err := s.Sample(); err == nil {
		t.Error("Sample() should reject a site tag containing a newline")
	}
}

func TestRun(t *testing.T) {
	adder := &recordingAdder{}
	s := New(Config{Site: "s", Interval: 5 * time.Millisecond}, adder, nil, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for adder.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if adder.count() < 2 {
		t.Errorf("Run() added %d points, want at least 2", adder.count())
	}
}

func TestRun_ZeroIntervalReturns(t *testing.T) {
	s := New(Config{Site: "s"}, &recordingAdder{}, nil, logging.Discard())
	s.Run(context.Background())
}
