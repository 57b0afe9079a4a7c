package pipeline

import "errors"

// Sentinel errors for pipeline operations.
var (
	// ErrClosed is returned when points are added after Close.
	ErrClosed = errors.New("pipeline: closed")

	// ErrDeliveryFailed wraps a sink failure that could not be spooled.
	ErrDeliveryFailed = errors.New("pipeline: delivery failed")

	// ErrRejected wraps a payload a sink refused outright. It is dropped,
	// not spooled.
	ErrRejected = errors.New("pipeline: payload rejected by sink")
)
