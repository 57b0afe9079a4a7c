package lineprotocol

import (
	"slices"
	"time"
)

// PointBuilder assembles a Point.
//
// It accepts two kinds of input:
//   - typed values (AddTag, AddField, Timestamp) that are already valid and
//     are appended as is
//   - raw values (Tag, Field, Tags, Fields) that are validated on the spot;
//     a failure is queued and the chain continues, so later valid input is
//     still recorded
//
// Queued errors can be inspected with Errors before calling Build, which
// fails if anything was queued.
//
// A PointBuilder is not safe for concurrent use.
type PointBuilder struct {
	measurement    string
	measurementErr error
	tags           []Tag
	fields         []Field
	timestamp      Timestamp
	errs           []error
}

// NewPointBuilder starts a point for the given measurement. The measurement
// is validated immediately; a failure is reported by Build.
func NewPointBuilder(measurement string) *PointBuilder {
	return &PointBuilder{
		measurement:    measurement,
		measurementErr: validateMeasurement(measurement),
	}
}

// AddTag appends a validated tag.
func (b *PointBuilder) AddTag(tag Tag) *PointBuilder {
	b.tags = append(b.tags, tag)
	return b
}

// AddField appends a validated field.
func (b *PointBuilder) AddField(field Field) *PointBuilder {
	b.fields = append(b.fields, field)
	return b
}

// Tag validates and appends a tag, queueing any error.
func (b *PointBuilder) Tag(key, value string) *PointBuilder {
	tag, err := NewTag(key, value)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	return b.AddTag(tag)
}

// Field validates and appends a field, queueing any error. value is
// converted with NewFieldValue.
func (b *PointBuilder) Field(key string, value any) *PointBuilder {
	field, err := NewField(key, value)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	return b.AddField(field)
}

// Tags appends every entry of tags in ascending key order, queueing errors.
func (b *PointBuilder) Tags(tags map[string]string) *PointBuilder {
	for _, k := range sortedKeys(tags) {
		b.Tag(k, tags[k])
	}
	return b
}

// Fields appends every entry of fields in ascending key order, queueing
// errors.
func (b *PointBuilder) Fields(fields map[string]any) *PointBuilder {
	for _, k := range sortedKeys(fields) {
		b.Field(k, fields[k])
	}
	return b
}

// Timestamp sets the timestamp. The default is Unresolved.
func (b *PointBuilder) Timestamp(ts Timestamp) *PointBuilder {
	b.timestamp = ts
	return b
}

// Time sets the timestamp from t in the given unit.
func (b *PointBuilder) Time(t time.Time, unit Precision) *PointBuilder {
	return b.Timestamp(TimestampFromTime(t, unit))
}

// Errors returns a copy of the errors queued so far, including an invalid
// measurement. It is empty when the builder is still valid.
func (b *PointBuilder) Errors() []error {
	var errs []error
	if b.measurementErr != nil {
		errs = append(errs, b.measurementErr)
	}
	return append(errs, b.errs...)
}

// Build validates the accumulated state and returns the Point.
//
// It fails with:
//   - *BuildError if the measurement or any raw input was invalid; its
//     message reports the first queued error and it unwraps to all of them
//   - ErrNoFields if no field was added
//   - ErrTimestampOverflow if the timestamp cannot be expressed in nanoseconds
//
// The builder may be reused afterwards; the returned Point does not share
// memory with it.
func (b *PointBuilder) Build() (Point, error) {
	if errs := b.Errors(); len(errs) > 0 {
		return Point{}, &BuildError{Measurement: b.measurement, Errs: errs}
	}
	if len(b.fields) == 0 {
		return Point{}, ErrNoFields
	}
	for _, f := range b.fields {
		if f.value.kind == 0 {
			return Point{}, &ValidationError{Kind: KindFieldValue, Value: f.key.name, Err: ErrUnsupportedValue}
		}
	}
	if _, err := b.timestamp.ToNanoseconds(); err != nil {
		return Point{}, err
	}

	return Point{
		measurement: Measurement{name: b.measurement},
		tags:        slices.Clone(b.tags),
		fields:      slices.Clone(b.fields),
		timestamp:   b.timestamp,
	}, nil
}

// ToPoint implements PointConvertible by calling Build.
func (b *PointBuilder) ToPoint() (Point, error) {
	return b.Build()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
