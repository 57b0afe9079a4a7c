package lineprotocol

import (
	"fmt"
	"math"
	"time"
)

// Timestamp is either unresolved ("now") or a fixed instant counted in a
// unit since the Unix epoch.
//
// An unresolved timestamp carries no value and is omitted from rendered
// lines, which leaves time assignment to the ingesting server. The zero
// Timestamp is unresolved.
type Timestamp struct {
	value int64
	unit  Precision
}

// Unresolved returns the "now" timestamp.
func Unresolved() Timestamp {
	return Timestamp{}
}

// FromSeconds returns a fixed instant in seconds.
func FromSeconds(v int64) Timestamp { return Timestamp{value: v, unit: Seconds} }

// FromMilliseconds returns a fixed instant in milliseconds.
func FromMilliseconds(v int64) Timestamp { return Timestamp{value: v, unit: Milliseconds} }

// FromMicroseconds returns a fixed instant in microseconds.
func FromMicroseconds(v int64) Timestamp { return Timestamp{value: v, unit: Microseconds} }

// FromNanoseconds returns a fixed instant in nanoseconds.
func FromNanoseconds(v int64) Timestamp { return Timestamp{value: v, unit: Nanoseconds} }

// NewTimestamp returns a fixed instant of value in unit.
//
// Returns ErrUnknownPrecision if unit is PrecisionNone or not a known unit.
func NewTimestamp(value int64, unit Precision) (Timestamp, error) {
	if !unit.IsResolved() {
		return Timestamp{}, fmt.Errorf("%w: %v", ErrUnknownPrecision, unit)
	}
	return Timestamp{value: value, unit: unit}, nil
}

// TimestampFromTime captures t in the given unit, truncating anything finer.
// PrecisionNone yields an unresolved timestamp.
func TimestampFromTime(t time.Time, unit Precision) Timestamp {
	switch unit {
	case Seconds:
		return FromSeconds(t.Unix())
	case Milliseconds:
		return FromMilliseconds(t.UnixMilli())
	case Microseconds:
		return FromMicroseconds(t.UnixMicro())
	case Nanoseconds:
		return FromNanoseconds(t.UnixNano())
	default:
		return Unresolved()
	}
}

// IsResolved reports whether the timestamp holds a fixed instant.
func (t Timestamp) IsResolved() bool {
	return t.unit.IsResolved()
}

// Precision returns the unit, or PrecisionNone when unresolved.
func (t Timestamp) Precision() Precision {
	return t.unit
}

// Value returns the stored count and whether the timestamp is resolved.
func (t Timestamp) Value() (int64, bool) {
	return t.value, t.IsResolved()
}

// ToNanoseconds converts a resolved timestamp to nanoseconds.
//
// The conversion is exact; ErrTimestampOverflow is returned when the result
// does not fit in int64. An unresolved timestamp is returned unchanged.
func (t Timestamp) ToNanoseconds() (Timestamp, error) {
	return t.ConvertLossy(Nanoseconds)
}

// ConvertLossy converts a resolved timestamp to target.
//
// Converting to a finer unit multiplies and fails with ErrTimestampOverflow
// rather than wrapping. Converting to a coarser unit divides with
// truncation toward zero, so sub-unit resolution is discarded:
// FromNanoseconds(1500) becomes FromMicroseconds(1).
//
// An unresolved timestamp is returned unchanged.
func (t Timestamp) ConvertLossy(target Precision) (Timestamp, error) {
	if !t.IsResolved() {
		return t, nil
	}
	if !target.IsResolved() {
		return Timestamp{}, fmt.Errorf("%w: %v", ErrUnknownPrecision, target)
	}

	from := precisionInfo[t.unit].scale
	to := precisionInfo[target].scale

	if from >= to {
		factor := from / to
		if t.value > math.MaxInt64/factor || t.value < math.MinInt64/factor {
			return Timestamp{}, fmt.Errorf("%w: %d%s in %s", ErrTimestampOverflow, t.value, t.unit, target)
		}
		return Timestamp{value: t.value * factor, unit: target}, nil
	}

	return Timestamp{value: t.value / (to / from), unit: target}, nil
}

// Time returns the instant as a time.Time in UTC. The second result is
// false for unresolved timestamps.
func (t Timestamp) Time() (time.Time, bool) {
	if !t.IsResolved() {
		return time.Time{}, false
	}
	scale := precisionInfo[t.unit].scale
	perSecond := int64(time.Second) / scale
	sec, rem := t.value/perSecond, t.value%perSecond
	return time.Unix(sec, rem*scale).UTC(), true
}

// String returns "now" for unresolved timestamps, otherwise the value
// followed by the unit, e.g. "1500ms".
func (t Timestamp) String() string {
	if !t.IsResolved() {
		return "now"
	}
	return fmt.Sprintf("%d%s", t.value, t.unit)
}
