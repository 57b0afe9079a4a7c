// Package lineprotocol models time-series points and renders them as
// InfluxDB line protocol text.
//
// It is the write path only: there is no parser. Everything a caller can
// hold is already valid, because identifiers and values are checked when
// they are constructed rather than when they are rendered.
//
// # Data Model
//
//   - Measurement: a name without a newline
//   - TagKey, FieldKey: names; no leading '_' and no newline
//   - TagValue: any string without a newline
//   - FieldValue: string, unsigned integer, signed integer, non-NaN float or boolean
//   - Timestamp: unresolved ("now", assigned by the server) or a fixed instant
//     in seconds, milliseconds, microseconds or nanoseconds
//   - Point: measurement, ordered tags, ordered fields (at least one), timestamp
//   - Batch: ordered points plus the highest precision seen among them
//
// # Usage
//
//	point, err := lineprotocol.NewPointBuilder("climate").
//	    Tag("room", "living room").
//	    Field("temperature", 21.5).
//	    Field("heating", true).
//	    Timestamp(lineprotocol.FromMilliseconds(1767225600000)).
//	    Build()
//	if err != nil {
//	    return err
//	}
//
//	batch := lineprotocol.BatchFrom(point)
//	body := batch.ToLineProtocolWithPrecision(batch.Precision())
//
// # Wire Format
//
//	<measurement>[,<tag-key>=<tag-value>]* <field-key>=<value>[, <field-key>=<value>]* [ <timestamp>]
//
// Field values are encoded as "<escaped>" for strings, <n>u for unsigned
// integers, <n>i for signed integers, plain decimal for floats and
// true/false for booleans. The timestamp segment is omitted when the
// timestamp is unresolved.
//
// # Thread Safety
//
// Point, Tag, Field and Timestamp are immutable values and safe to share.
// Batch and PointBuilder are not synchronised; callers that share one across
// goroutines must hold their own lock.
package lineprotocol
