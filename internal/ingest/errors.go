package ingest

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed indicates the document is not valid JSON or has the wrong shape.
	ErrMalformed = errors.New("ingest: malformed document")

	// ErrEmpty indicates the document carried no points.
	ErrEmpty = errors.New("ingest: no points")

	// ErrPrecisionWithoutTimestamp indicates a precision was given for a point
	// that has no timestamp.
	ErrPrecisionWithoutTimestamp = errors.New("ingest: precision given without timestamp")
)

// PointError reports every problem found in one point of a document.
type PointError struct {
	Index       int
	Measurement string
	Errs        []error
}

func (e *PointError) Error() string {
	if len(e.Errs) == 1 {
		return fmt.Sprintf("point %d (%q): %v", e.Index, e.Measurement, e.Errs[0])
	}
	return fmt.Sprintf("point %d (%q): %v (and %d more)", e.Index, e.Measurement, e.Errs[0], len(e.Errs)-1)
}

func (e *PointError) Unwrap() []error {
	return e.Errs
}

// DecodeError collects the failures of every rejected point in a document.
// No point of the document is accepted when a DecodeError is returned.
type DecodeError struct {
	Points []*PointError
}

func (e *DecodeError) Error() string {
	if len(e.Points) == 1 {
		return e.Points[0].Error()
	}
	return fmt.Sprintf("%v (and %d more rejected points)", e.Points[0], len(e.Points)-1)
}

func (e *DecodeError) Unwrap() []error {
	errs := make([]error, len(e.Points))
	for i, p := range e.Points {
		errs[i] = p
	}
	return errs
}
