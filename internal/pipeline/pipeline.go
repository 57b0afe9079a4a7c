package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-linewriter/internal/lineprotocol"
	"github.com/nerrad567/gray-logic-linewriter/internal/spool"
)

// Defaults applied to zero Config values.
const (
	defaultBatchSize      = 1000
	defaultFlushInterval  = time.Second
	defaultReplayInterval = 30 * time.Second
	defaultReplayLimit    = 100
	defaultSendTimeout    = 10 * time.Second
)

var errNoSpool = errors.New("spool disabled")

// Config controls batching and replay.
type Config struct {
	// BatchSize is the buffered point count that triggers a flush.
	BatchSize int

	// FlushInterval is the longest a point waits in the buffer.
	FlushInterval time.Duration

	// ReplayInterval is how often spooled payloads are retried.
	ReplayInterval time.Duration

	// ReplayLimit caps entries retried per sink per replay.
	ReplayLimit int

	// SendTimeout bounds a single Sink.Send call.
	SendTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = defaultFlushInterval
	}
	if c.ReplayInterval <= 0 {
		c.ReplayInterval = defaultReplayInterval
	}
	if c.ReplayLimit <= 0 {
		c.ReplayLimit = defaultReplayLimit
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = defaultSendTimeout
	}
	return c
}

// Pipeline buffers points and delivers them to every sink.
type Pipeline struct {
	cfg    Config
	sinks  []Sink
	store  spool.Store
	logger Logger

	mu     sync.Mutex
	batch  lineprotocol.Batch
	closed bool

	// flushMu serialises flushes and replays.
	flushMu sync.Mutex

	stats counters

	onError   func(err error)
	onErrorMu sync.RWMutex

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a pipeline. store may be nil, in which case failed sends are
// reported and lost. logger may be nil to use slog's default logger.
func New(cfg Config, sinks []Sink, store spool.Store, logger Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cfg:    cfg.withDefaults(),
		sinks:  sinks,
		store:  store,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start launches the interval flush loop and, when a spool is configured,
// the replay loop. Both stop when ctx is cancelled or Close is called.
func (p *Pipeline) Start(ctx context.Context) {
	p.wg.Add(1)
	go p.loop(ctx, p.cfg.FlushInterval, func(ctx context.Context) error {
		return p.Flush(ctx)
	})

	if p.store != nil {
		p.wg.Add(1)
		go p.loop(ctx, p.cfg.ReplayInterval, func(ctx context.Context) error {
			_, err := p.Replay(ctx)
			return err
		})
	}
}

func (p *Pipeline) loop(ctx context.Context, interval time.Duration, fn func(context.Context) error) {
	defer p.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				p.reportError(err)
			}
		case <-p.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Add buffers points. When the buffer reaches BatchSize the batch is
// flushed before Add returns, and any delivery loss is returned.
func (p *Pipeline) Add(ctx context.Context, points ...lineprotocol.Point) error {
	if len(points) == 0 {
		return nil
	}
	for i, pt := range points {
		if _, err := pt.ToPoint(); err != nil {
			return fmt.Errorf("point %d: %w", i, err)
		}
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.batch.PushPoints(points...)
	full := p.batch.Len() >= p.cfg.BatchSize
	p.mu.Unlock()

	p.stats.pointsAccepted.Add(int64(len(points)))

	if full {
		return p.Flush(ctx)
	}
	return nil
}

// Push converts each item and buffers the resulting points. Nothing is
// buffered if any item fails to convert.
func (p *Pipeline) Push(ctx context.Context, items ...lineprotocol.PointConvertible) error {
	batch, err := lineprotocol.NewBatch(items...)
	if err != nil {
		return err
	}
	return p.Add(ctx, batch.Points()...)
}

// Flush detaches the buffered batch and delivers it to every sink.
//
// A sink failure is spooled and logged. The returned error only reports
// payloads that could be neither delivered nor spooled, and payloads a
// Rejecter sink refused (ErrRejected).
func (p *Pipeline) Flush(ctx context.Context) error {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	p.mu.Lock()
	batch := p.batch.CloneAndClear()
	p.mu.Unlock()

	if batch.IsEmpty() {
		return nil
	}
	p.stats.batchesFlushed.Add(1)

	return p.deliver(ctx, batch)
}

func (p *Pipeline) deliver(ctx context.Context, batch *lineprotocol.Batch) error {
	rendered := make(map[lineprotocol.Precision][]byte, 1)
	n := batch.Len()

	var lost []error
	for _, sink := range p.sinks {
		precision := sink.Precision(batch)
		payload, ok := rendered[precision]
		if !ok {
			payload = []byte(batch.ToLineProtocolWithPrecision(precision))
			rendered[precision] = payload
		}

		err := p.send(ctx, sink, payload, precision)
		if err == nil {
			p.stats.pointsDelivered.Add(int64(n))
			p.logger.Debug("batch delivered", "sink", sink.Name(), "points", n, "precision", precision.String())
			continue
		}

		p.stats.sendFailures.Add(1)
		if rejected(sink, err) {
			p.stats.rejected.Add(1)
			p.logger.Error("sink rejected batch, dropped", "sink", sink.Name(), "points", n, "error", err)
			lost = append(lost, fmt.Errorf("%w: %s: %w", ErrRejected, sink.Name(), err))
			continue
		}
		if spoolErr := p.spoolPayload(ctx, sink.Name(), precision, payload, n); spoolErr != nil {
			lost = append(lost, fmt.Errorf("%w: %s: %w", ErrDeliveryFailed, sink.Name(), errors.Join(err, spoolErr)))
			continue
		}
		p.logger.Warn("sink send failed, batch spooled", "sink", sink.Name(), "points", n, "error", err)
	}

	return errors.Join(lost...)
}

func (p *Pipeline) send(ctx context.Context, sink Sink, payload []byte, precision lineprotocol.Precision) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.SendTimeout)
	defer cancel()
	return sink.Send(ctx, payload, precision)
}

func (p *Pipeline) spoolPayload(ctx context.Context, sink string, precision lineprotocol.Precision, payload []byte, points int) error {
	if p.store == nil {
		return errNoSpool
	}
	if _, err := p.store.Enqueue(ctx, sink, precision, payload, points); err != nil {
		return err
	}
	p.stats.spooled.Add(1)
	return nil
}

// Replay retries spooled payloads, oldest first. Replay for a sink stops at
// its first transient failure so entries are not reordered. An entry the
// sink rejects is removed and replay moves on. Returns the number of
// entries delivered.
func (p *Pipeline) Replay(ctx context.Context) (int, error) {
	if p.store == nil {
		return 0, nil
	}

	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	delivered := 0
	var errs []error
	for _, sink := range p.sinks {
		n, err := p.replaySink(ctx, sink)
		delivered += n
		if err != nil {
			errs = append(errs, err)
		}
	}
	return delivered, errors.Join(errs...)
}

func (p *Pipeline) replaySink(ctx context.Context, sink Sink) (int, error) {
	entries, err := p.store.Pending(ctx, sink.Name(), p.cfg.ReplayLimit)
	if err != nil {
		return 0, fmt.Errorf("replay %s: %w", sink.Name(), err)
	}

	delivered := 0
	for _, e := range entries {
		sendErr := p.send(ctx, sink, e.Payload, e.Precision)
		if sendErr == nil {
			if err := p.store.Ack(ctx, e.ID); err != nil {
				return delivered, fmt.Errorf("replay %s: %w", sink.Name(), err)
			}
			delivered++
			p.stats.replayed.Add(1)
			p.stats.pointsDelivered.Add(int64(e.Points))
			continue
		}

		if rejected(sink, sendErr) {
			if err := p.store.Ack(ctx, e.ID); err != nil {
				return delivered, fmt.Errorf("replay %s: %w", sink.Name(), err)
			}
			p.stats.rejected.Add(1)
			p.logger.Error("sink rejected spooled batch, dropped",
				"sink", sink.Name(), "id", e.ID, "points", e.Points, "error", sendErr)
			continue
		}

		dropped, err := p.store.MarkAttempt(ctx, e.ID, sendErr)
		if err != nil {
			return delivered, fmt.Errorf("replay %s: %w", sink.Name(), err)
		}
		if dropped {
			p.stats.dropped.Add(1)
			p.logger.Error("spooled batch dropped after max attempts",
				"sink", sink.Name(), "id", e.ID, "points", e.Points, "error", sendErr)
			continue
		}
		p.logger.Debug("replay failed, will retry", "sink", sink.Name(), "id", e.ID, "error", sendErr)
		break
	}

	if delivered > 0 {
		p.logger.Info("replayed spooled batches", "sink", sink.Name(), "batches", delivered)
	}
	return delivered, nil
}

// Close stops the background loops and flushes what is buffered. Add
// returns ErrClosed afterwards.
func (p *Pipeline) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.closeOnce.Do(func() { close(p.done) })
	p.wg.Wait()

	return p.Flush(ctx)
}

// Stats returns a snapshot of pipeline counters.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	buffered := p.batch.Len()
	p.mu.Unlock()
	return p.stats.snapshot(buffered)
}

// SinkNames lists the configured sinks in delivery order.
func (p *Pipeline) SinkNames() []string {
	names := make([]string, len(p.sinks))
	for i, s := range p.sinks {
		names[i] = s.Name()
	}
	return names
}

// SetOnError sets a callback for errors from the background loops. Without
// one they are logged.
func (p *Pipeline) SetOnError(callback func(err error)) {
	p.onErrorMu.Lock()
	defer p.onErrorMu.Unlock()
	p.onError = callback
}

func (p *Pipeline) reportError(err error) {
	p.onErrorMu.RLock()
	callback := p.onError
	p.onErrorMu.RUnlock()

	if callback != nil {
		callback(err)
		return
	}
	p.logger.Error("pipeline background error", "error", err)
}
