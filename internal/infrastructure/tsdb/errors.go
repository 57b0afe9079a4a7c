package tsdb

import "errors"

// Sentinel errors returned by the /write sink. Check with errors.Is.
var (
	// ErrDisabled indicates the sink is turned off in configuration.
	ErrDisabled = errors.New("tsdb: disabled in configuration")

	// ErrConnectionFailed indicates the endpoint failed its health check at Connect.
	ErrConnectionFailed = errors.New("tsdb: connection failed")

	// ErrNotConnected indicates Send was called after Close.
	ErrNotConnected = errors.New("tsdb: not connected")

	// ErrWriteFailed wraps every delivery failure.
	ErrWriteFailed = errors.New("tsdb: write failed")

	// ErrRejected is added for 4xx responses: the server refused the
	// payload itself, so retrying the same bytes will not help.
	ErrRejected = errors.New("tsdb: payload rejected")
)
