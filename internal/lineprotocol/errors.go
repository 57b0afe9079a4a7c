package lineprotocol

import (
	"errors"
	"fmt"
)

// Sentinel errors for point construction.
//
// Validation failures are wrapped in *ValidationError and build failures in
// *BuildError; both unwrap to these values, so errors.Is works throughout:
//
//	if errors.Is(err, lineprotocol.ErrReservedPrefix) {
//	    // Rename the key
//	}
var (
	// ErrNewlineNotAllowed indicates a name or string value contains '\n'.
	ErrNewlineNotAllowed = errors.New("lineprotocol: newline is not allowed")

	// ErrReservedPrefix indicates a name starts with '_', which is reserved
	// for the database's own use.
	ErrReservedPrefix = errors.New("lineprotocol: names starting with '_' are reserved")

	// ErrNotANumber indicates a float field value is NaN.
	ErrNotANumber = errors.New("lineprotocol: float field value is NaN")

	// ErrTimestampOverflow indicates a unit conversion overflowed int64.
	ErrTimestampOverflow = errors.New("lineprotocol: timestamp overflows int64")

	// ErrNoFields indicates a point was built without any field.
	ErrNoFields = errors.New("lineprotocol: point requires at least one field")

	// ErrUnsupportedValue indicates a Go value has no field value encoding.
	ErrUnsupportedValue = errors.New("lineprotocol: unsupported field value type")

	// ErrUnknownPrecision indicates a precision name or value is not recognised.
	ErrUnknownPrecision = errors.New("lineprotocol: unknown precision")
)

// Token kinds reported in ValidationError.Kind.
const (
	KindMeasurement = "measurement"
	KindTagKey      = "tag key"
	KindTagValue    = "tag value"
	KindFieldKey    = "field key"
	KindFieldValue  = "field value"
)

// ValidationError describes which token failed validation and why.
type ValidationError struct {
	Kind  string // One of the Kind* constants
	Value string // The rejected input, or a description for non-string values
	Err   error  // The sentinel error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Kind, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// BuildError is returned by PointBuilder.Build when the builder queued one
// or more errors.
//
// Error() reports the first queued error, which is the one callers see in
// logs. Unwrap exposes every queued error, so errors.Is and errors.As match
// any of them, and Errs can be inspected directly.
type BuildError struct {
	Measurement string
	Errs        []error
}

func (e *BuildError) Error() string {
	if len(e.Errs) == 1 {
		return fmt.Sprintf("building point %q: %v", e.Measurement, e.Errs[0])
	}
	return fmt.Sprintf("building point %q: %v (and %d more)", e.Measurement, e.Errs[0], len(e.Errs)-1)
}

func (e *BuildError) Unwrap() []error {
	return e.Errs
}

// First returns the first queued error.
func (e *BuildError) First() error {
	return e.Errs[0]
}
