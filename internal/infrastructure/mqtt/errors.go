package mqtt

import "errors"

// Errors returned by the client. Match with errors.Is.
var (
	ErrDisabled         = errors.New("mqtt: disabled in configuration")
	ErrConnectionFailed = errors.New("mqtt: connection failed")
	ErrNotConnected     = errors.New("mqtt: client not connected")

	ErrPublishFailed     = errors.New("mqtt: publish failed")
	ErrSubscribeFailed   = errors.New("mqtt: subscribe failed")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS rejects a QoS outside 0..2.
	ErrInvalidQoS = errors.New("mqtt: qos must be 0, 1 or 2")

	// ErrInvalidTopic rejects an empty topic.
	ErrInvalidTopic = errors.New("mqtt: empty topic")

	// ErrLineTooLarge means one line of a batch is bigger than a whole
	// message may be, so the batch cannot be split to fit.
	ErrLineTooLarge = errors.New("mqtt: line exceeds maximum payload size")
)
