package lineprotocol

import (
	"fmt"
	"io"
)

// Batch is an ordered collection of points rendered together, one line per
// point.
//
// The batch tracks its aggregate precision: the finest precision among its
// points' resolved timestamps. Points with unresolved timestamps do not
// affect it, and an empty batch has PrecisionNone.
//
// A Batch is not safe for concurrent mutation; guard shared batches with a
// mutex.
type Batch struct {
	points    []Point
	precision Precision
}

// NewBatch converts every item and appends it in order.
//
// Returns the first conversion error, wrapped with the item's index.
func NewBatch(items ...PointConvertible) (*Batch, error) {
	b := &Batch{points: make([]Point, 0, len(items))}
	for i, item := range items {
		if err := b.Push(item); err != nil {
			return nil, fmt.Errorf("batch item %d: %w", i, err)
		}
	}
	return b, nil
}

// BatchFrom returns a batch holding a single point.
func BatchFrom(p Point) *Batch {
	b := &Batch{}
	b.PushPoint(p)
	return b
}

// BatchFromPoints returns a batch that takes ownership of points. The
// caller must not modify the slice afterwards.
func BatchFromPoints(points []Point) *Batch {
	b := &Batch{points: points}
	for _, p := range points {
		b.precision = MaxPrecision(b.precision, p.Precision())
	}
	return b
}

// Push converts item and appends the resulting point.
func (b *Batch) Push(item PointConvertible) error {
	p, err := item.ToPoint()
	if err != nil {
		return err
	}
	b.PushPoint(p)
	return nil
}

// PushPoint appends p and raises the aggregate precision if p is finer.
//
// p must come from Build. PushPoint does not check it; the zero Point would
// render as an empty line. Use Push to have it rejected.
func (b *Batch) PushPoint(p Point) {
	b.points = append(b.points, p)
	b.precision = MaxPrecision(b.precision, p.Precision())
}

// PushPoints appends points in order.
func (b *Batch) PushPoints(points ...Point) {
	for _, p := range points {
		b.PushPoint(p)
	}
}

// Len returns the number of points.
func (b *Batch) Len() int { return len(b.points) }

// IsEmpty reports whether the batch holds no points.
func (b *Batch) IsEmpty() bool { return len(b.points) == 0 }

// Precision returns the aggregate precision.
func (b *Batch) Precision() Precision { return b.precision }

// Points returns a copy of the points in insertion order.
func (b *Batch) Points() []Point {
	return append([]Point(nil), b.points...)
}

// ToLineProtocol renders every point with nanosecond timestamps, joined
// with '\n' and without a trailing newline.
func (b *Batch) ToLineProtocol() string {
	return string(b.appendLines(nil, Nanoseconds))
}

// ToLineProtocolWithPrecision renders every point with its timestamp
// converted to unit.
//
// This is lossy on purpose: a point finer than unit has its sub-unit
// resolution truncated. Passing b.Precision() never loses data. The
// receiving endpoint must be told the same unit (for example with a
// precision query parameter). PrecisionNone renders nanoseconds.
func (b *Batch) ToLineProtocolWithPrecision(unit Precision) string {
	return string(b.appendLines(nil, unit))
}

// WriteTo writes the nanosecond rendering to w. It implements io.WriterTo.
func (b *Batch) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b.appendLines(nil, Nanoseconds))
	return int64(n), err
}

// CloneAndClear moves the points and aggregate precision into a new Batch
// and leaves b empty with PrecisionNone. No point is copied.
//
// Typical flush-and-continue use:
//
//	mu.Lock()
//	pending := batch.CloneAndClear()
//	mu.Unlock()
//	send(pending)
func (b *Batch) CloneAndClear() *Batch {
	out := &Batch{points: b.points, precision: b.precision}
	b.points = nil
	b.precision = PrecisionNone
	return out
}

func (b *Batch) appendLines(dst []byte, unit Precision) []byte {
	for i, p := range b.points {
		if i > 0 {
			dst = append(dst, '\n')
		}
		dst = p.appendLine(dst, unit)
	}
	return dst
}
