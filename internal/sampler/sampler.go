// Package sampler turns the writer's own runtime and pipeline counters into
// points, so the line writer reports on itself through the same sinks it
// serves.
package sampler

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/nerrad567/gray-logic-linewriter/internal/lineprotocol"
	"github.com/nerrad567/gray-logic-linewriter/internal/pipeline"
)

// Measurement names written by the sampler.
const (
	RuntimeMeasurement  = "linewriter_runtime"
	PipelineMeasurement = "linewriter_pipeline"
)

// Adder receives sampled points. *pipeline.Pipeline satisfies it.
type Adder interface {
	Add(ctx context.Context, points ...lineprotocol.Point) error
}

// StatsSource supplies pipeline counters. Optional.
type StatsSource interface {
	Stats() pipeline.Stats
}

// Config controls sampling.
type Config struct {
	Site      string
	Precision lineprotocol.Precision
	Interval  time.Duration
}

// Sampler periodically samples runtime statistics.
type Sampler struct {
	cfg    Config
	host   string
	adder  Adder
	stats  StatsSource
	logger pipeline.Logger
	now    func() time.Time
}

// New creates a sampler. stats may be nil to skip pipeline counters.
func New(cfg Config, adder Adder, stats StatsSource, logger pipeline.Logger) *Sampler {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	if !cfg.Precision.IsResolved() {
		cfg.Precision = lineprotocol.Seconds
	}
	return &Sampler{
		cfg:    cfg,
		host:   host,
		adder:  adder,
		stats:  stats,
		logger: logger,
		now:    time.Now,
	}
}

// metric is one sampled value, written as a single-field point.
type metric struct {
	name  string
	value any
}

// Sample builds one point per metric, all stamped with the current time.
// Every point carries a single field so the lines parse on servers that
// split fields on a bare comma.
func (s *Sampler) Sample() ([]lineprotocol.Point, error) {
	now := s.now()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	points, err := s.points(RuntimeMeasurement, now, []metric{
		{"goroutines", runtime.NumGoroutine()},
		{"heap_alloc_bytes", mem.HeapAlloc},
		{"heap_objects", mem.HeapObjects},
		{"sys_bytes", mem.Sys},
		{"gc_cycles", mem.NumGC},
		{"gc_pause_total_ns", mem.PauseTotalNs},
		{"gc_cpu_fraction", mem.GCCPUFraction},
	})
	if err != nil {
		return nil, err
	}

	if s.stats != nil {
		st := s.stats.Stats()
		pipelinePoints, err := s.points(PipelineMeasurement, now, []metric{
			{"buffered", st.Buffered},
			{"points_accepted", st.PointsAccepted},
			{"batches_flushed", st.BatchesFlushed},
			{"points_delivered", st.PointsDelivered},
			{"send_failures", st.SendFailures},
			{"spooled", st.Spooled},
			{"replayed", st.Replayed},
			{"dropped", st.Dropped},
			{"rejected", st.Rejected},
		})
		if err != nil {
			return nil, err
		}
		points = append(points, pipelinePoints...)
	}

	return points, nil
}

func (s *Sampler) points(measurement string, now time.Time, metrics []metric) ([]lineprotocol.Point, error) {
	points := make([]lineprotocol.Point, 0, len(metrics))
	for _, m := range metrics {
		p, err := lineprotocol.NewPointBuilder(measurement).
			Tag("site", s.cfg.Site).
			Tag("host", s.host).
			Field(m.name, m.value).
			Time(now, s.cfg.Precision).
			Build()
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}

// Run samples on every interval tick until ctx is cancelled. A zero
// interval returns immediately.
func (s *Sampler) Run(ctx context.Context) {
	if s.cfg.Interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			points, err := s.Sample()
			if err != nil {
				s.logger.Error("sampling runtime stats", "error", err)
				continue
			}
			if err := s.adder.Add(ctx, points...); err != nil {
				s.logger.Warn("adding sampled points", "error", err)
			}
		}
	}
}
