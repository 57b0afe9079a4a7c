package influxdb

import "errors"

var (
	// ErrDisabled is returned by Connect when the sink is turned off.
	ErrDisabled = errors.New("influxdb: disabled in configuration")

	// ErrConnectionFailed means the server did not answer the initial ping.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrNotConnected is returned once the client has been closed.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrWriteFailed wraps any error from the write API.
	ErrWriteFailed = errors.New("influxdb: write failed")

	// ErrRejected is added when the server refuses the payload with a 4xx
	// that retrying cannot fix.
	ErrRejected = errors.New("influxdb: payload rejected")

	// ErrPrecisionMismatch means a payload was rendered in a unit other
	// than the one the connection declares to the server.
	ErrPrecisionMismatch = errors.New("influxdb: precision mismatch")
)
