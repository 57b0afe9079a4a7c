package lineprotocol

import "strconv"

// Point is a single data record: a measurement, ordered tags, ordered
// fields and a timestamp.
//
// Points are created with PointBuilder and never change afterwards. Tags
// and fields keep their insertion order and duplicates are kept.
type Point struct {
	measurement Measurement
	tags        []Tag
	fields      []Field
	timestamp   Timestamp
}

// Measurement returns the point's measurement.
func (p Point) Measurement() Measurement { return p.measurement }

// Tags returns a copy of the point's tags in insertion order.
func (p Point) Tags() []Tag {
	return append([]Tag(nil), p.tags...)
}

// Fields returns a copy of the point's fields in insertion order.
func (p Point) Fields() []Field {
	return append([]Field(nil), p.fields...)
}

// Timestamp returns the point's timestamp.
func (p Point) Timestamp() Timestamp { return p.timestamp }

// Precision returns the timestamp's precision, PrecisionNone if unresolved.
func (p Point) Precision() Precision { return p.timestamp.Precision() }

// ToPoint implements PointConvertible. The zero Point has no fields and
// returns ErrNoFields.
func (p Point) ToPoint() (Point, error) {
	if len(p.fields) == 0 {
		return Point{}, ErrNoFields
	}
	return p, nil
}

// String renders the point as one line of line protocol, with a resolved
// timestamp written in nanoseconds.
//
// Example output:
//
//	test,host=serverA value=1i 100
func (p Point) String() string {
	return string(p.AppendTo(nil))
}

// AppendTo appends the rendered line (without a trailing newline) to dst.
func (p Point) AppendTo(dst []byte) []byte {
	return p.appendLine(dst, Nanoseconds)
}

// StringWithPrecision renders the point with its timestamp converted to
// unit. Converting to a coarser unit truncates; see Timestamp.ConvertLossy.
func (p Point) StringWithPrecision(unit Precision) string {
	return string(p.appendLine(nil, unit))
}

// appendLine writes measurement, tag set, field set and, for resolved
// timestamps, the value in unit. A point that was built successfully
// always converts without overflow: Build checked the nanosecond form,
// and every other unit is coarser.
func (p Point) appendLine(dst []byte, unit Precision) []byte {
	dst = appendEscaped(dst, p.measurement.name, measurementReserved)

	for _, t := range p.tags {
		dst = append(dst, ',')
		dst = t.appendTo(dst)
	}

	for i, f := range p.fields {
		if i == 0 {
			dst = append(dst, ' ')
		} else {
			dst = append(dst, ',', ' ')
		}
		dst = f.appendTo(dst)
	}

	if !p.timestamp.IsResolved() {
		return dst
	}
	if !unit.IsResolved() {
		unit = Nanoseconds
	}
	ts, err := p.timestamp.ConvertLossy(unit)
	if err != nil {
		panic("lineprotocol: " + err.Error())
	}
	dst = append(dst, ' ')
	return strconv.AppendInt(dst, ts.value, 10)
}
