// Package ingest decodes JSON point documents into line protocol points.
//
// The same document shape is accepted by the HTTP gateway and the MQTT write
// topic:
//
//	{
//	  "points": [
//	    {
//	      "measurement": "climate",
//	      "tags": {"room": "kitchen"},
//	      "fields": {"temperature": 21.5, "occupied": true, "count": {"uint": 3}},
//	      "timestamp": 1767225600000,
//	      "precision": "ms"
//	    }
//	  ]
//	}
//
// A bare array of points is accepted as well. Integral JSON numbers become
// signed integers (unsigned when they only fit uint64) and all other numbers
// become floats. A single-key object {"int": n}, {"uint": n} or {"float": n}
// forces the type.
//
// Every point is run through the raw PointBuilder so all validation problems
// are collected. A document is accepted whole or rejected whole.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/nerrad567/gray-logic-linewriter/internal/lineprotocol"
)

// DefaultMaxPoints caps the points accepted from one document.
const DefaultMaxPoints = 50_000

// Document is the JSON envelope carrying points.
type Document struct {
	Points []PointJSON `json:"points"`
}

// PointJSON is one point in a Document.
type PointJSON struct {
	Measurement string            `json:"measurement"`
	Tags        map[string]string `json:"tags,omitempty"`
	Fields      map[string]any    `json:"fields"`
	Timestamp   *int64            `json:"timestamp,omitempty"`
	Precision   string            `json:"precision,omitempty"`
}

// Adder receives decoded points. *pipeline.Pipeline satisfies it.
type Adder interface {
	Add(ctx context.Context, points ...lineprotocol.Point) error
}

// Decoder turns documents into points.
type Decoder struct {
	// DefaultTags are added to every point that does not set the key itself.
	DefaultTags map[string]string

	// MaxPoints caps a document's size. Zero means DefaultMaxPoints.
	MaxPoints int

	// SplitFields emits one point per field. Each keeps the measurement,
	// tags and timestamp of the document point. Servers that parse the
	// standard field separator need this for multi-field points.
	SplitFields bool
}

// Decode parses data and builds every point in it.
//
// Returns:
//   - []lineprotocol.Point: the points in document order
//   - error: ErrMalformed or ErrEmpty for document problems, *DecodeError
//     listing every rejected point otherwise
func (d *Decoder) Decode(data []byte) ([]lineprotocol.Point, error) {
	raw, err := parseDocument(data)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, ErrEmpty
	}
	maxPoints := d.MaxPoints
	if maxPoints <= 0 {
		maxPoints = DefaultMaxPoints
	}
	if len(raw) > maxPoints {
		return nil, fmt.Errorf("%w: %d points exceeds limit of %d", ErrMalformed, len(raw), maxPoints)
	}

	points := make([]lineprotocol.Point, 0, len(raw))
	var rejected []*PointError
	for i, pj := range raw {
		p, errs := d.build(pj)
		if len(errs) > 0 {
			rejected = append(rejected, &PointError{Index: i, Measurement: pj.Measurement, Errs: errs})
			continue
		}
		if d.SplitFields {
			points = append(points, splitFields(p)...)
			continue
		}
		points = append(points, p)
	}
	if len(rejected) > 0 {
		return nil, &DecodeError{Points: rejected}
	}
	return points, nil
}

// Batch decodes data into a Batch.
func (d *Decoder) Batch(data []byte) (*lineprotocol.Batch, error) {
	points, err := d.Decode(data)
	if err != nil {
		return nil, err
	}
	return lineprotocol.BatchFromPoints(points), nil
}

// MessageHandler returns an MQTT message handler that decodes each payload
// and hands the points to adder. Decode and add errors are returned so the
// MQTT client logs them against the topic.
func (d *Decoder) MessageHandler(ctx context.Context, adder Adder) func(topic string, payload []byte) error {
	return func(topic string, payload []byte) error {
		points, err := d.Decode(payload)
		if err != nil {
			return fmt.Errorf("decoding %s: %w", topic, err)
		}
		if err := adder.Add(ctx, points...); err != nil {
			return fmt.Errorf("adding points from %s: %w", topic, err)
		}
		return nil
	}
}

func parseDocument(data []byte) ([]PointJSON, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrEmpty
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	dec.DisallowUnknownFields()

	var points []PointJSON
	if trimmed[0] == '[' {
		if err := dec.Decode(&points); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	} else {
		var doc Document
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		points = doc.Points
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after document", ErrMalformed)
	}
	return points, nil
}

// build returns the point, or every error found while building it.
func (d *Decoder) build(pj PointJSON) (lineprotocol.Point, []error) {
	b := lineprotocol.NewPointBuilder(pj.Measurement).Tags(pj.Tags)
	for _, key := range slices.Sorted(maps.Keys(d.DefaultTags)) {
		if _, ok := pj.Tags[key]; !ok {
			b.Tag(key, d.DefaultTags[key])
		}
	}

	var errs []error
	for _, key := range slices.Sorted(maps.Keys(pj.Fields)) {
		v, err := fieldValue(pj.Fields[key])
		if err != nil {
			errs = append(errs, &lineprotocol.ValidationError{Kind: lineprotocol.KindFieldValue, Value: key, Err: err})
			continue
		}
		b.Field(key, v)
	}

	switch {
	case pj.Timestamp != nil:
		unit := lineprotocol.DefaultPrecision
		if pj.Precision != "" {
			p, err := lineprotocol.ParsePrecision(pj.Precision)
			if err != nil {
				errs = append(errs, err)
				break
			}
			unit = p
		}
		ts, err := lineprotocol.NewTimestamp(*pj.Timestamp, unit)
		if err != nil {
			errs = append(errs, err)
			break
		}
		b.Timestamp(ts)
	case pj.Precision != "":
		errs = append(errs, ErrPrecisionWithoutTimestamp)
	}

	if queued := b.Errors(); len(queued) > 0 {
		return lineprotocol.Point{}, append(queued, errs...)
	}
	// A field that failed conversion must not also report ErrNoFields.
	if len(errs) > 0 {
		return lineprotocol.Point{}, errs
	}
	p, err := b.Build()
	if err != nil {
		return lineprotocol.Point{}, []error{err}
	}
	return p, nil
}

// splitFields returns p as one single-field point per field, in field
// order. The parts were validated as part of p and cannot fail to build.
func splitFields(p lineprotocol.Point) []lineprotocol.Point {
	fields := p.Fields()
	if len(fields) == 1 {
		return []lineprotocol.Point{p}
	}

	tags := p.Tags()
	out := make([]lineprotocol.Point, 0, len(fields))
	for _, f := range fields {
		b := lineprotocol.NewPointBuilder(p.Measurement().String())
		for _, t := range tags {
			b.AddTag(t)
		}
		single, err := b.AddField(f).Timestamp(p.Timestamp()).Build()
		if err != nil {
			continue
		}
		out = append(out, single)
	}
	return out
}

// fieldValue maps a decoded JSON value onto a type NewFieldValue accepts.
func fieldValue(v any) (any, error) {
	switch val := v.(type) {
	case string, bool:
		return val, nil
	case json.Number:
		return numberValue(val)
	case map[string]any:
		return typedValue(val)
	case nil:
		return nil, fmt.Errorf("%w: null", lineprotocol.ErrUnsupportedValue)
	default:
		return nil, fmt.Errorf("%w: %T", lineprotocol.ErrUnsupportedValue, v)
	}
}

func numberValue(n json.Number) (any, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
		if u, err := strconv.ParseUint(s, 10, 64); err == nil {
			return u, nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", lineprotocol.ErrUnsupportedValue, s)
	}
	return f, nil
}

func typedValue(obj map[string]any) (any, error) {
	if len(obj) != 1 {
		return nil, fmt.Errorf("%w: typed value needs exactly one of int, uint, float", lineprotocol.ErrUnsupportedValue)
	}
	for kind, raw := range obj {
		n, ok := raw.(json.Number)
		if !ok {
			return nil, fmt.Errorf("%w: %s value must be a number", lineprotocol.ErrUnsupportedValue, kind)
		}
		var (
			v   any
			err error
		)
		switch kind {
		case "int":
			v, err = strconv.ParseInt(n.String(), 10, 64)
		case "uint":
			v, err = strconv.ParseUint(n.String(), 10, 64)
		case "float":
			v, err = strconv.ParseFloat(n.String(), 64)
		default:
			return nil, fmt.Errorf("%w: unknown type %q", lineprotocol.ErrUnsupportedValue, kind)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s %s", lineprotocol.ErrUnsupportedValue, kind, n)
		}
		return v, nil
	}
	return nil, nil
}
